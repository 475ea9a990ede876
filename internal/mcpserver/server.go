// Package mcpserver wires the MCP server and creates the tool instances.
//
// This is the composition root: it creates concrete implementations and
// injects them into the tools that depend on them. No business logic
// lives here — only wiring.
package mcpserver

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/latticedocs/lattice/internal/config"
	"github.com/latticedocs/lattice/internal/pipeline"
	"github.com/latticedocs/lattice/internal/producer"
	"github.com/latticedocs/lattice/internal/prompts"
	"github.com/latticedocs/lattice/internal/store"
	"github.com/latticedocs/lattice/version"
)

// Deps holds the services the MCP tools operate on.
type Deps struct {
	Store     *store.Store
	Producers *producer.Registry
	Prompts   *prompts.Resolver
	ConfigMgr *config.Manager
	Cache     *pipeline.Cache
	Logger    *slog.Logger
}

// New creates and configures the MCP server with all tools registered.
func New(deps Deps) *server.MCPServer {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Cache == nil {
		deps.Cache = &pipeline.Cache{}
	}

	s := server.NewMCPServer(
		"lattice",
		version.GitRelease,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	generateTool := NewGenerateTool(deps)
	s.AddTool(generateTool.Definition(), generateTool.Handle)

	getTool := NewGetDocumentTool(deps.Store)
	s.AddTool(getTool.Definition(), getTool.Handle)

	listTool := NewListDocumentsTool(deps.Store)
	s.AddTool(listTool.Definition(), listTool.Handle)

	return s
}

// ServeStdio runs the server over stdio until the client disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func serverInstructions() string {
	return `Lattice generates teaching documents for clinical topics: a concept
map (nodes, links, pearls) plus a cited narrative. Use lattice_generate to
build a document for a topic, lattice_get_document to fetch one by id, and
lattice_list_documents to browse what has been generated. Generation calls
an external model and can take a minute or more.`
}
