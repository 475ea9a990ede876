package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/latticedocs/lattice/internal/pipeline"
	"github.com/latticedocs/lattice/internal/types"
)

// DocumentSaver persists generated documents. *store.Store satisfies it.
type DocumentSaver interface {
	SaveDocument(ctx context.Context, doc *types.Document) error
}

// GenerateJob runs the full document pipeline for a single topic and
// saves the result. Each job builds its own generator so phase events
// can be tracked per job.
type GenerateJob struct {
	Topic string
	Opts  pipeline.Options
	Docs  DocumentSaver

	mu    sync.Mutex
	phase pipeline.Phase
	docID string
}

func (j *GenerateJob) Type() string { return "generate" }

func (j *GenerateJob) Execute(ctx context.Context) error {
	events := make(chan pipeline.Event, 16)
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			select {
			case ev := <-events:
				j.mu.Lock()
				j.phase = ev.Phase
				j.mu.Unlock()
			case <-done:
				return
			}
		}
	}()

	opts := j.Opts
	opts.Events = events

	doc, err := pipeline.New(opts).Generate(ctx, j.Topic)
	if err != nil {
		return err
	}

	if j.Docs != nil {
		if err := j.Docs.SaveDocument(ctx, doc); err != nil {
			return fmt.Errorf("saving document: %w", err)
		}
	}

	j.mu.Lock()
	j.docID = doc.ID
	j.mu.Unlock()
	return nil
}

func (j *GenerateJob) Status(ctx context.Context) (map[string]string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	progress := map[string]string{"topic": j.Topic}
	if j.phase != "" {
		progress["phase"] = string(j.phase)
	}
	if j.docID != "" {
		progress["document_id"] = j.docID
	}
	return progress, nil
}
