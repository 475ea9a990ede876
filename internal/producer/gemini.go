package producer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	GeminiName    = "gemini"
	GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	geminiDefaultModel = "gemini-2.5-flash"
)

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration
	RateLimit    int // Requests per minute
}

// GeminiClient implements Producer against the Generative Language API's
// SSE streaming endpoint.
type GeminiClient struct {
	apiKey       string
	baseURL      string
	defaultModel string
	client       *http.Client
	limiter      *RateLimiter
}

// NewGeminiClient creates a new Gemini client. The credential is
// validated here so misconfiguration surfaces before any request.
func NewGeminiClient(cfg GeminiConfig) (*GeminiClient, error) {
	if err := ValidateCredential(cfg.APIKey); err != nil {
		return nil, err
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = GeminiBaseURL
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = geminiDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 300 * time.Second
	}

	return &GeminiClient{
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		defaultModel: cfg.DefaultModel,
		client:       &http.Client{Timeout: cfg.Timeout},
		limiter:      NewRateLimiter(cfg.RateLimit),
	}, nil
}

// Name returns the client identifier.
func (c *GeminiClient) Name() string { return GeminiName }

// Wire types for the Generative Language API.

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  geminiGenConfig `json:"generationConfig"`
	Tools             []geminiTool    `json:"tools,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text    string `json:"text"`
	Thought bool   `json:"thought,omitempty"`
}

type geminiGenConfig struct {
	Temperature      float64               `json:"temperature,omitempty"`
	ResponseMimeType string                `json:"responseMimeType,omitempty"`
	ThinkingConfig   *geminiThinkingConfig `json:"thinkingConfig,omitempty"`
}

type geminiThinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type geminiTool struct {
	GoogleSearch *struct{} `json:"google_search,omitempty"`
}

type geminiChunk struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		GroundingMetadata *geminiGrounding `json:"groundingMetadata,omitempty"`
	} `json:"candidates"`
}

type geminiGrounding struct {
	GroundingChunks []struct {
		Web struct {
			URI   string `json:"uri"`
			Title string `json:"title"`
		} `json:"web"`
	} `json:"groundingChunks"`
	GroundingSupports []struct {
		GroundingChunkIndices []int `json:"groundingChunkIndices"`
	} `json:"groundingSupports"`
}

// Generate issues one streaming request. Each call makes a single HTTP
// attempt: retryable failures come back as *TransientError and the
// caller's retry executor owns the backoff.
func (c *GeminiClient) Generate(ctx context.Context, req *Request) (Stream, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	wire := geminiRequest{
		Contents: make([]geminiContent, 0, len(req.Parts)),
		GenerationConfig: geminiGenConfig{
			Temperature: req.Temperature,
		},
	}
	if req.System != "" {
		wire.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	for _, p := range req.Parts {
		role := p.Role
		if role == "" {
			role = "user"
		}
		wire.Contents = append(wire.Contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: p.Text}},
		})
	}
	if req.ReasoningBudget > 0 {
		wire.GenerationConfig.ThinkingConfig = &geminiThinkingConfig{ThinkingBudget: req.ReasoningBudget}
	}
	if req.ResponseJSON {
		wire.GenerationConfig.ResponseMimeType = "application/json"
	}
	if req.EnableSearch {
		wire.Tools = append(wire.Tools, geminiTool{GoogleSearch: &struct{}{}})
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", c.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &TransientError{Message: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		msg := strings.TrimSpace(string(respBody))
		if retryableStatus(resp.StatusCode) {
			return nil, &TransientError{Status: resp.StatusCode, Message: msg}
		}
		return nil, fmt.Errorf("gemini error (status %d): %s", resp.StatusCode, msg)
	}

	return &geminiStream{
		body:    resp.Body,
		scanner: newSSEScanner(resp.Body),
	}, nil
}

// geminiStream converts SSE data events into fragments. A single SSE
// event may carry text parts and grounding metadata together, so decoded
// fragments queue up and Recv drains the queue before reading more.
type geminiStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	pending []Fragment
	done    bool
}

func newSSEScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return sc
}

// Recv returns the next fragment, or io.EOF when the stream ends.
func (s *geminiStream) Recv() (Fragment, error) {
	for {
		if len(s.pending) > 0 {
			f := s.pending[0]
			s.pending = s.pending[1:]
			return f, nil
		}
		if s.done {
			return Fragment{}, io.EOF
		}

		if !s.scanner.Scan() {
			s.done = true
			if err := s.scanner.Err(); err != nil {
				// Mid-stream transport failure: surface whatever arrived,
				// the caller's truncation handling takes it from here.
				return Fragment{}, &TransientError{Message: err.Error()}
			}
			return Fragment{}, io.EOF
		}

		line := strings.TrimSpace(s.scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" || data == "[DONE]" {
			continue
		}

		var chunk geminiChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// Skip undecodable keep-alives rather than killing the stream.
			continue
		}
		s.enqueue(&chunk)
	}
}

func (s *geminiStream) enqueue(chunk *geminiChunk) {
	for _, cand := range chunk.Candidates {
		for _, part := range cand.Content.Parts {
			if part.Text == "" {
				continue
			}
			kind := KindNarration
			if part.Thought {
				kind = KindReasoning
			}
			s.pending = append(s.pending, Fragment{Kind: kind, Text: part.Text})
		}
		if gm := cand.GroundingMetadata; gm != nil {
			s.pending = append(s.pending, Fragment{Kind: KindProvenance, Provenance: convertGrounding(gm)})
		}
	}
}

func convertGrounding(gm *geminiGrounding) *Provenance {
	p := &Provenance{}
	for _, gc := range gm.GroundingChunks {
		p.Chunks = append(p.Chunks, Chunk{Title: gc.Web.Title, URI: gc.Web.URI})
	}
	for _, gs := range gm.GroundingSupports {
		p.Supports = append(p.Supports, Support{ChunkIndexes: gs.GroundingChunkIndices})
	}
	return p
}

// Close releases the underlying response body.
func (s *geminiStream) Close() error {
	return s.body.Close()
}
