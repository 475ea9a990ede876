package jsonx

import (
	"reflect"
	"testing"
)

func TestSanitize_DecodesCleanInputWithoutRepairs(t *testing.T) {
	m := Sanitize(wellFormed)
	if m.Title != "Nephron Transport" {
		t.Fatalf("title = %q", m.Title)
	}
	if len(m.Nodes) != 2 || len(m.Links) != 1 {
		t.Fatalf("nodes = %d, links = %d", len(m.Nodes), len(m.Links))
	}
}

func TestSanitize_InvalidBackslash(t *testing.T) {
	m := Sanitize(`{"title": "Beta\-blockers", "summary": "s"}`)
	if m.Title != `Beta\-blockers` {
		t.Fatalf("title = %q, want escaped backslash preserved as literal", m.Title)
	}
}

func TestSanitize_TrailingCommas(t *testing.T) {
	m := Sanitize(`{"title": "T", "nodes": [{"id": "a", "label": "A",},],}`)
	if m.Title != "T" || len(m.Nodes) != 1 {
		t.Fatalf("got title=%q nodes=%d", m.Title, len(m.Nodes))
	}
}

func TestSanitize_RawNewlineInString(t *testing.T) {
	m := Sanitize("{\"title\": \"Line one\nLine two\"}")
	if m.Title != "Line one\nLine two" {
		t.Fatalf("title = %q", m.Title)
	}
}

func TestSanitize_NullBytes(t *testing.T) {
	m := Sanitize("{\"title\": \"T\x00itle\"}")
	if m.Title != "Title" {
		t.Fatalf("title = %q", m.Title)
	}
}

func TestSanitize_OpenStringTrimmed(t *testing.T) {
	m := Sanitize(`{"title": "Cardiac Cycle", "summary": "cut off mid sent`)
	if m.Title != "Cardiac Cycle" {
		t.Fatalf("title = %q, want intact field preserved", m.Title)
	}
}

func TestSanitize_AllRepairsFailYieldsEmptyMap(t *testing.T) {
	m := Sanitize(`{this is not json at all`)
	if m == nil {
		t.Fatal("Sanitize must never return nil")
	}
	if !m.Empty() {
		t.Fatalf("expected empty map, got %+v", m)
	}
}

func TestSanitize_Deterministic(t *testing.T) {
	in := `{"title": "T", "nodes": [{"id": "a", "label": "A",}, {"id": "b", "label": "B"`
	first := Sanitize(in)
	for i := 0; i < 5; i++ {
		if got := Sanitize(in); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %+v vs %+v", i, got, first)
		}
	}
}

func TestDecode_DropsDanglingLinks(t *testing.T) {
	m, err := Decode(`{
		"nodes": [{"id": "a", "label": "A"}],
		"links": [
			{"source": "a", "target": "a", "label": "self"},
			{"source": "a", "target": "ghost", "label": "dangling"}
		]
	}`)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(m.Links) != 1 {
		t.Fatalf("links = %d, want dangling link dropped", len(m.Links))
	}
}

func TestDecode_NormalizesPearlKinds(t *testing.T) {
	m, err := Decode(`{"pearls": [{"type": "exam-tip", "content": "c"}, {"type": "bogus", "content": "c"}]}`)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if m.Pearls[0].Kind != "exam-tip" || m.Pearls[1].Kind != "gap-filler" {
		t.Fatalf("pearl kinds = %q, %q", m.Pearls[0].Kind, m.Pearls[1].Kind)
	}
}

func TestDecode_RejectsSchemaViolations(t *testing.T) {
	if _, err := Decode(`{"nodes": "not an array"}`); err == nil {
		t.Fatal("expected schema violation error")
	}
}

func TestRecover_NoObjectYieldsEmptyMap(t *testing.T) {
	m := Recover("just prose, no structured data")
	if !m.Empty() {
		t.Fatalf("expected empty map, got %+v", m)
	}
}
