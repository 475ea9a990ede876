package mcpserver

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/latticedocs/lattice/internal/producer"
	"github.com/latticedocs/lattice/internal/prompts"
	"github.com/latticedocs/lattice/internal/prompts/conceptmap"
	"github.com/latticedocs/lattice/internal/prompts/narrative"
	"github.com/latticedocs/lattice/internal/store"
	"github.com/latticedocs/lattice/internal/types"
)

const toolConceptMap = `{
	"title": "Migraine",
	"summary": "A primary headache disorder with trigeminovascular activation.",
	"nodes": [
		{"id": "aura", "label": "Aura", "group": 3, "weight": 3},
		{"id": "triptans", "label": "Triptans", "group": 5, "weight": 5}
	],
	"links": [{"source": "aura", "target": "triptans", "label": "treated with"}]
}`

var toolNarrative = "## Overview\n" +
	strings.Repeat("Cortical spreading depression precedes the headache phase. ", 4) +
	"Abortive therapy works best early."

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "lattice.db"))
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newTestDeps(t *testing.T, mock *producer.MockProducer) Deps {
	t.Helper()
	registry := producer.NewRegistry()
	if mock != nil {
		registry.Register("mock", mock)
	}
	resolver := prompts.NewResolver(nil)
	conceptmap.RegisterPrompts(resolver)
	narrative.RegisterPrompts(resolver)
	return Deps{
		Store:     newTestStore(t),
		Producers: registry,
		Prompts:   resolver,
	}
}

// makeReq builds a mcp.CallToolRequest with the given arguments.
func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text content from a tool result.
func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestGenerateTool_Definition(t *testing.T) {
	tool := NewGenerateTool(newTestDeps(t, nil))
	def := tool.Definition()
	if def.Name != "lattice_generate" {
		t.Errorf("name = %q", def.Name)
	}
}

func TestGenerateTool_RequiresTopic(t *testing.T) {
	tool := NewGenerateTool(newTestDeps(t, nil))

	r, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	if err != nil {
		t.Fatal(err)
	}
	if !r.IsError {
		t.Error("expected error result for missing topic")
	}
}

func TestGenerateTool_UnknownProducer(t *testing.T) {
	tool := NewGenerateTool(newTestDeps(t, nil))

	r, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"topic":    "Migraine",
		"producer": "nope",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if !r.IsError {
		t.Error("expected error result for unknown producer")
	}
}

func TestGenerateTool_GeneratesAndSaves(t *testing.T) {
	mock := &producer.MockProducer{
		Scripts: [][]producer.Fragment{
			{producer.Narration(toolConceptMap)},
			{producer.Narration(toolNarrative)},
		},
	}
	deps := newTestDeps(t, mock)
	tool := NewGenerateTool(deps)

	r, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"topic":    "Migraine",
		"producer": "mock",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if r.IsError {
		t.Fatalf("tool error: %s", resultText(r))
	}
	text := resultText(r)
	if !strings.Contains(text, "Generated document") || !strings.Contains(text, "Migraine") {
		t.Errorf("result = %q", text)
	}

	// The document must be persisted and listable.
	docs, err := deps.Store.ListDocuments(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].Topic != "Migraine" {
		t.Errorf("stored docs = %+v", docs)
	}
}

func TestGetDocumentTool(t *testing.T) {
	st := newTestStore(t)
	tool := NewGetDocumentTool(st)

	if def := tool.Definition(); def.Name != "lattice_get_document" {
		t.Errorf("name = %q", def.Name)
	}

	r, _ := tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	if !r.IsError {
		t.Error("expected error result for missing id")
	}

	r, _ = tool.Handle(context.Background(), makeReq(map[string]interface{}{"id": "missing"}))
	if !r.IsError {
		t.Error("expected error result for unknown id")
	}

	doc := &types.Document{
		ID:    "doc-1",
		Topic: "Migraine",
		ConceptMap: types.ConceptMap{
			Title: "Migraine",
			Nodes: []types.GraphNode{{ID: "aura", Label: "Aura"}},
		},
		Narrative: "## Overview\nShort text.",
		CreatedAt: time.Now().UTC(),
	}
	if err := st.SaveDocument(context.Background(), doc); err != nil {
		t.Fatal(err)
	}

	r, _ = tool.Handle(context.Background(), makeReq(map[string]interface{}{"id": "doc-1"}))
	if r.IsError {
		t.Fatalf("tool error: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), `"topic": "Migraine"`) {
		t.Errorf("result = %q", resultText(r))
	}
}

func TestListDocumentsTool(t *testing.T) {
	st := newTestStore(t)
	tool := NewListDocumentsTool(st)

	if def := tool.Definition(); def.Name != "lattice_list_documents" {
		t.Errorf("name = %q", def.Name)
	}

	r, _ := tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	if r.IsError {
		t.Fatalf("tool error: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "No documents") {
		t.Errorf("empty list result = %q", resultText(r))
	}

	doc := &types.Document{
		ID:         "doc-1",
		Topic:      "Migraine",
		ConceptMap: types.ConceptMap{Title: "Migraine"},
		CreatedAt:  time.Now().UTC(),
	}
	if err := st.SaveDocument(context.Background(), doc); err != nil {
		t.Fatal(err)
	}

	r, _ = tool.Handle(context.Background(), makeReq(map[string]interface{}{"limit": float64(5)}))
	if !strings.Contains(resultText(r), "doc-1") {
		t.Errorf("list result = %q", resultText(r))
	}
}

func TestNew_RegistersTools(t *testing.T) {
	s := New(newTestDeps(t, nil))
	if s == nil {
		t.Fatal("New() returned nil")
	}
}
