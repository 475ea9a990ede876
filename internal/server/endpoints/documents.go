package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/latticedocs/lattice/internal/api"
	"github.com/latticedocs/lattice/internal/config"
	"github.com/latticedocs/lattice/internal/jobs"
	"github.com/latticedocs/lattice/internal/pipeline"
	"github.com/latticedocs/lattice/internal/store"
	"github.com/latticedocs/lattice/internal/svcctx"
	"github.com/latticedocs/lattice/internal/types"
)

// CreateDocumentRequest asks for a new document to be generated.
type CreateDocumentRequest struct {
	Topic    string `json:"topic"`
	Producer string `json:"producer,omitempty"`
	Model    string `json:"model,omitempty"`
}

// CreateDocumentResponse acknowledges an accepted generation job.
type CreateDocumentResponse struct {
	JobID string `json:"job_id"`
	Topic string `json:"topic"`
}

// CreateDocumentEndpoint handles POST /api/documents.
// Generation runs asynchronously; poll the returned job id.
type CreateDocumentEndpoint struct{}

func (e *CreateDocumentEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/documents", e.handler
}

func (e *CreateDocumentEndpoint) RequiresInit() bool { return true }

func (e *CreateDocumentEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		writeError(w, http.StatusBadRequest, "topic is required")
		return
	}

	svcs := svcctx.ServicesFrom(r.Context())
	cfg := config.DefaultConfig()
	if svcs.ConfigMgr != nil {
		cfg = svcs.ConfigMgr.Get()
	}

	name := req.Producer
	if name == "" {
		name = cfg.Defaults.Producer
	}
	p, err := svcs.Producers.Get(name)
	if err != nil {
		// Misconfigured credentials surface here, before any work starts.
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	job := &jobs.GenerateJob{
		Topic: strings.TrimSpace(req.Topic),
		Opts: pipeline.Options{
			Producer:   p,
			Resolver:   svcs.Prompts,
			Model:      req.Model,
			Generation: cfg.Generation,
			Cache:      svcs.Cache,
			Recorder:   svcs.Store,
			Logger:     svcs.Logger,
		},
		Docs: svcs.Store,
	}

	id, err := svcs.JobManager.Submit(job)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, CreateDocumentResponse{JobID: id, Topic: req.Topic})
}

func (e *CreateDocumentEndpoint) Command(getServerURL func() string) *cobra.Command {
	var producerName, model string
	cmd := &cobra.Command{
		Use:   "create <topic>",
		Short: "Generate a document for a topic",
		Long: `Queue document generation for a clinical topic.

Generation is asynchronous. The command returns a job id; use
"lattice api jobs get <id>" to follow progress.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			req := CreateDocumentRequest{Topic: args[0], Producer: producerName, Model: model}
			var resp CreateDocumentResponse
			if err := client.Post(cmd.Context(), "/api/documents", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&producerName, "producer", "", "Producer to use (default from config)")
	cmd.Flags().StringVar(&model, "model", "", "Model override")
	return cmd
}

// ListDocumentsResponse wraps a page of document summaries.
type ListDocumentsResponse struct {
	Documents []store.DocumentSummary `json:"documents"`
}

// ListDocumentsEndpoint handles GET /api/documents.
type ListDocumentsEndpoint struct{}

func (e *ListDocumentsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/documents", e.handler
}

func (e *ListDocumentsEndpoint) RequiresInit() bool { return true }

func (e *ListDocumentsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	docs, err := svcctx.StoreFrom(r.Context()).ListDocuments(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ListDocumentsResponse{Documents: docs})
}

func (e *ListDocumentsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List generated documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListDocumentsResponse
			path := fmt.Sprintf("/api/documents?limit=%d", limit)
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of documents")
	return cmd
}

// GetDocumentEndpoint handles GET /api/documents/{id}.
type GetDocumentEndpoint struct{}

func (e *GetDocumentEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/documents/{id}", e.handler
}

func (e *GetDocumentEndpoint) RequiresInit() bool { return true }

func (e *GetDocumentEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "document id is required")
		return
	}

	doc, err := svcctx.StoreFrom(r.Context()).GetDocument(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (e *GetDocumentEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a document by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var doc types.Document
			if err := client.Get(cmd.Context(), "/api/documents/"+args[0], &doc); err != nil {
				return err
			}
			return api.Output(doc)
		},
	}
}

// DeleteDocumentEndpoint handles DELETE /api/documents/{id}.
type DeleteDocumentEndpoint struct{}

func (e *DeleteDocumentEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/documents/{id}", e.handler
}

func (e *DeleteDocumentEndpoint) RequiresInit() bool { return true }

func (e *DeleteDocumentEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "document id is required")
		return
	}

	if err := svcctx.StoreFrom(r.Context()).DeleteDocument(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (e *DeleteDocumentEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/api/documents/"+args[0]); err != nil {
				return err
			}
			fmt.Println("deleted", args[0])
			return nil
		},
	}
}
