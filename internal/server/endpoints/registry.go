package endpoints

import (
	"github.com/latticedocs/lattice/internal/api"
)

// All returns all endpoint instances.
func All() []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&StatusEndpoint{},

		// Document endpoints
		&CreateDocumentEndpoint{},
		&ListDocumentsEndpoint{},
		&GetDocumentEndpoint{},
		&DeleteDocumentEndpoint{},

		// Job endpoints
		&ListJobsEndpoint{},
		&GetJobEndpoint{},

		// Producer call history
		&ListCallsEndpoint{},
	}
}

// DocumentCommands returns endpoints for document operations.
// This groups document-related commands under a "documents" subcommand.
func DocumentCommands() []api.Endpoint {
	return []api.Endpoint{
		&CreateDocumentEndpoint{},
		&ListDocumentsEndpoint{},
		&GetDocumentEndpoint{},
		&DeleteDocumentEndpoint{},
	}
}

// JobCommands returns endpoints for job operations.
// This groups job-related commands under a "jobs" subcommand.
func JobCommands() []api.Endpoint {
	return []api.Endpoint{
		&ListJobsEndpoint{},
		&GetJobEndpoint{},
	}
}
