package endpoints

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/latticedocs/lattice/internal/api"
	"github.com/latticedocs/lattice/internal/store"
	"github.com/latticedocs/lattice/internal/svcctx"
)

// ListCallsResponse wraps recent producer call records.
type ListCallsResponse struct {
	Calls []store.CallRecord `json:"calls"`
}

// ListCallsEndpoint handles GET /api/calls. Every producer call made
// by the pipeline is recorded; this exposes the recent history for
// debugging latency and failures.
type ListCallsEndpoint struct{}

func (e *ListCallsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/calls", e.handler
}

func (e *ListCallsEndpoint) RequiresInit() bool { return true }

func (e *ListCallsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	calls, err := svcctx.StoreFrom(r.Context()).RecentCalls(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ListCallsResponse{Calls: calls})
}

func (e *ListCallsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "calls",
		Short: "List recent producer calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListCallsResponse
			path := fmt.Sprintf("/api/calls?limit=%d", limit)
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum number of calls")
	return cmd
}
