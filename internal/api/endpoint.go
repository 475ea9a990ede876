package api

import (
	"net/http"

	"github.com/spf13/cobra"
)

// Endpoint is one API operation, described once and surfaced twice:
// as an HTTP route on the server and as a CLI command that calls it.
type Endpoint interface {
	// Route returns the method, path pattern, and handler to mount.
	Route() (method, path string, handler http.HandlerFunc)

	// RequiresInit reports whether the route needs the store and job
	// manager to be up; such routes 503 until the server finishes
	// starting.
	RequiresInit() bool

	// Command builds the cobra command for this operation.
	// getServerURL is deferred so the --server flag is read after
	// parsing.
	Command(getServerURL func() string) *cobra.Command
}
