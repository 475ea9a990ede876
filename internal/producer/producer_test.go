package producer

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const testAPIKey = "AIza-test-key-0123456789abcdefghij"

func TestValidateCredential(t *testing.T) {
	cases := []struct {
		name string
		key  string
		want ConfigReason
	}{
		{"missing", "", ReasonCredentialMissing},
		{"wrong prefix", "xyz123", ReasonCredentialPrefix},
		{"wrong prefix long", "sk-" + strings.Repeat("a", 40), ReasonCredentialPrefix},
		{"too short", "AIzaShort", ReasonCredentialShort},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateCredential(tc.key)
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("error = %v, want *ConfigError", err)
			}
			if cfgErr.Reason != tc.want {
				t.Fatalf("reason = %q, want %q", cfgErr.Reason, tc.want)
			}
		})
	}

	if err := ValidateCredential(testAPIKey); err != nil {
		t.Fatalf("valid credential rejected: %v", err)
	}
}

func TestNewGeminiClient_RejectsBadCredential(t *testing.T) {
	_, err := NewGeminiClient(GeminiConfig{APIKey: "xyz123"})
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v, want *ConfigError", err)
	}
}

func TestGeminiGenerate_StreamsFragmentsInOrder(t *testing.T) {
	sse := strings.Join([]string{
		`data: {"candidates":[{"content":{"parts":[{"text":"Thinking about structure.","thought":true}]}}]}`,
		``,
		`data: {"candidates":[{"content":{"parts":[{"text":"# Heading\n"}]}}]}`,
		``,
		`data: {"candidates":[{"content":{"parts":[{"text":"Body text."}]},"groundingMetadata":{"groundingChunks":[{"web":{"uri":"https://example.org/a","title":"Example"}}],"groundingSupports":[{"groundingChunkIndices":[0]}]}}]}`,
		``,
	}, "\n")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-goog-api-key"); got != testAPIKey {
			t.Errorf("api key header = %q", got)
		}
		if !strings.Contains(r.URL.Path, ":streamGenerateContent") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, sse)
	}))
	defer srv.Close()

	client, err := NewGeminiClient(GeminiConfig{APIKey: testAPIKey, BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewGeminiClient() error = %v", err)
	}

	stream, err := client.Generate(context.Background(), &Request{
		System: "sys",
		Parts:  []Part{{Role: "user", Text: "topic"}},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	defer stream.Close()

	var got []Fragment
	for {
		f, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Recv() error = %v", err)
		}
		got = append(got, f)
	}

	if len(got) != 4 {
		t.Fatalf("fragments = %d, want 4", len(got))
	}
	if got[0].Kind != KindReasoning {
		t.Errorf("fragment 0 kind = %q, want reasoning", got[0].Kind)
	}
	if got[1].Kind != KindNarration || got[1].Text != "# Heading\n" {
		t.Errorf("fragment 1 = %+v", got[1])
	}
	if got[3].Kind != KindProvenance {
		t.Fatalf("fragment 3 kind = %q, want provenance", got[3].Kind)
	}
	p := got[3].Provenance
	if len(p.Chunks) != 1 || p.Chunks[0].URI != "https://example.org/a" {
		t.Errorf("provenance chunks = %+v", p.Chunks)
	}
	if len(p.Supports) != 1 || p.Supports[0].ChunkIndexes[0] != 0 {
		t.Errorf("provenance supports = %+v", p.Supports)
	}
}

func TestGeminiGenerate_RetryableStatusIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client, err := NewGeminiClient(GeminiConfig{APIKey: testAPIKey, BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}

	_, err = client.Generate(context.Background(), &Request{Parts: []Part{{Text: "t"}}})
	var transient *TransientError
	if !errors.As(err, &transient) {
		t.Fatalf("error = %v, want *TransientError", err)
	}
	if transient.Status != http.StatusTooManyRequests {
		t.Errorf("status = %d", transient.Status)
	}
}

func TestGeminiGenerate_NonRetryableStatusIsPlainError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	client, err := NewGeminiClient(GeminiConfig{APIKey: testAPIKey, BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}

	_, err = client.Generate(context.Background(), &Request{Parts: []Part{{Text: "t"}}})
	if err == nil {
		t.Fatal("expected error")
	}
	var transient *TransientError
	if errors.As(err, &transient) {
		t.Fatalf("400 must not be transient: %v", err)
	}
}

func TestMockProducer_ScriptsAndRecording(t *testing.T) {
	mock := &MockProducer{
		Scripts: [][]Fragment{
			{Narration("round zero")},
			{Narration("round one")},
		},
		Errs: map[int]error{},
	}

	for i, want := range []string{"round zero", "round one", "round one"} {
		stream, err := mock.Generate(context.Background(), &Request{})
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		f, err := stream.Recv()
		if err != nil {
			t.Fatalf("call %d recv: %v", i, err)
		}
		if f.Text != want {
			t.Errorf("call %d text = %q, want %q", i, f.Text, want)
		}
		if _, err := stream.Recv(); err != io.EOF {
			t.Errorf("call %d: expected EOF, got %v", i, err)
		}
	}

	if mock.Calls() != 3 {
		t.Errorf("calls = %d", mock.Calls())
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	mock := NewMockProducer()
	r.Register("mock", mock)

	got, err := r.Get("mock")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != mock {
		t.Fatal("Get returned wrong producer")
	}

	if _, err := r.Get("absent"); err == nil {
		t.Fatal("expected error for unknown producer")
	}

	r.Unregister("mock")
	if _, err := r.Get("mock"); err == nil {
		t.Fatal("expected error after unregister")
	}
}
