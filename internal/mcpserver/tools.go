package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/latticedocs/lattice/internal/config"
	"github.com/latticedocs/lattice/internal/pipeline"
	"github.com/latticedocs/lattice/internal/store"
)

// GenerateTool handles the lattice_generate MCP tool. It runs the full
// pipeline synchronously and persists the result.
type GenerateTool struct {
	deps Deps
}

// NewGenerateTool creates a GenerateTool with the given dependencies.
func NewGenerateTool(deps Deps) *GenerateTool {
	return &GenerateTool{deps: deps}
}

// Definition returns the MCP tool definition for lattice_generate.
func (t *GenerateTool) Definition() mcp.Tool {
	return mcp.NewTool("lattice_generate",
		mcp.WithDescription(
			"Generate a concept document (concept map + cited narrative) for a clinical topic. "+
				"Repeated calls for the same topic return the cached document.",
		),
		mcp.WithString("topic",
			mcp.Required(),
			mcp.Description("Clinical topic to generate a document for, e.g. 'Septic shock'"),
		),
		mcp.WithString("producer",
			mcp.Description("Producer to use (defaults to the configured default)"),
		),
		mcp.WithString("model",
			mcp.Description("Model override"),
		),
	)
}

// Handle processes the lattice_generate tool call.
func (t *GenerateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	topic := strings.TrimSpace(req.GetString("topic", ""))
	if topic == "" {
		return mcp.NewToolResultError("'topic' is required"), nil
	}

	cfg := config.DefaultConfig()
	if t.deps.ConfigMgr != nil {
		cfg = t.deps.ConfigMgr.Get()
	}

	name := req.GetString("producer", "")
	if name == "" {
		name = cfg.Defaults.Producer
	}
	p, err := t.deps.Producers.Get(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	g := pipeline.New(pipeline.Options{
		Producer:   p,
		Resolver:   t.deps.Prompts,
		Model:      req.GetString("model", ""),
		Generation: cfg.Generation,
		Cache:      t.deps.Cache,
		Recorder:   t.deps.Store,
		Logger:     t.deps.Logger,
	})

	doc, err := g.Generate(ctx, topic)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("generation failed: %v", err)), nil
	}

	if t.deps.Store != nil {
		if err := t.deps.Store.SaveDocument(ctx, doc); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to save document: %v", err)), nil
		}
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Generated document %s\nTitle: %s\nConcepts: %d\nSources: %d\n\n%s",
		doc.ID, doc.Title, len(doc.Nodes), len(doc.Sources), doc.Summary,
	)), nil
}

// GetDocumentTool handles the lattice_get_document MCP tool.
type GetDocumentTool struct {
	store *store.Store
}

// NewGetDocumentTool creates a GetDocumentTool with the given store.
func NewGetDocumentTool(st *store.Store) *GetDocumentTool {
	return &GetDocumentTool{store: st}
}

// Definition returns the MCP tool definition for lattice_get_document.
func (t *GetDocumentTool) Definition() mcp.Tool {
	return mcp.NewTool("lattice_get_document",
		mcp.WithDescription("Fetch a generated document by id, including the concept map, narrative, and sources."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Document id returned by lattice_generate or lattice_list_documents"),
		),
	)
}

// Handle processes the lattice_get_document tool call.
func (t *GetDocumentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}

	doc, err := t.store.GetDocument(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get document: %v", err)), nil
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode document: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ListDocumentsTool handles the lattice_list_documents MCP tool.
type ListDocumentsTool struct {
	store *store.Store
}

// NewListDocumentsTool creates a ListDocumentsTool with the given store.
func NewListDocumentsTool(st *store.Store) *ListDocumentsTool {
	return &ListDocumentsTool{store: st}
}

// Definition returns the MCP tool definition for lattice_list_documents.
func (t *ListDocumentsTool) Definition() mcp.Tool {
	return mcp.NewTool("lattice_list_documents",
		mcp.WithDescription("List generated documents, newest first."),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of documents to return (default 20)"),
		),
	)
}

// Handle processes the lattice_list_documents tool call.
func (t *ListDocumentsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := intArg(req, "limit", 20)
	if limit < 1 {
		limit = 20
	}

	docs, err := t.store.ListDocuments(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list documents: %v", err)), nil
	}
	if len(docs) == 0 {
		return mcp.NewToolResultText("No documents generated yet."), nil
	}

	var b strings.Builder
	for _, d := range docs {
		fmt.Fprintf(&b, "%s  %s — %s (%s)\n", d.ID, d.Topic, d.Title, d.CreatedAt.Format("2006-01-02 15:04"))
	}
	return mcp.NewToolResultText(b.String()), nil
}

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}
