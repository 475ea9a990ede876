// Package pipeline assembles concept documents from a text producer:
// a structured concept-map phase, then a narrative phase with bounded
// continuation rounds, then linking and citation passes.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/latticedocs/lattice/internal/citations"
	"github.com/latticedocs/lattice/internal/config"
	"github.com/latticedocs/lattice/internal/jsonx"
	"github.com/latticedocs/lattice/internal/linker"
	"github.com/latticedocs/lattice/internal/markdown"
	"github.com/latticedocs/lattice/internal/producer"
	"github.com/latticedocs/lattice/internal/prompts"
	"github.com/latticedocs/lattice/internal/prompts/conceptmap"
	"github.com/latticedocs/lattice/internal/prompts/narrative"
	"github.com/latticedocs/lattice/internal/retryx"
	"github.com/latticedocs/lattice/internal/types"
)

const (
	// MaxContinuations bounds the extra narrative rounds after the
	// first. Together with BufferHardCap it is the only stop on
	// runaway generation.
	MaxContinuations = 2

	// BufferHardCap terminates the narrative phase regardless of what
	// the truncation detector says.
	BufferHardCap = 100_000

	// DefaultCooldown separates the two top-level producer phases, and
	// precedes the single empty-output retry.
	DefaultCooldown = 2 * time.Second

	// minNarrativeLen below this the first narrative round counts as
	// empty output.
	minNarrativeLen = 200

	// resumeTailLen is how much of the buffer tail the continuation
	// prompt carries for alignment.
	resumeTailLen = 2_000
)

// Phase names for progress reporting. Reporting only: consumers must
// not drive control flow off these.
type Phase string

const (
	PhaseStructuring Phase = "structuring"
	PhaseWriting     Phase = "writing"
	PhaseCiting      Phase = "citing"
	PhaseDone        Phase = "done"
)

// Event is a progress notification emitted during generation.
type Event struct {
	Phase     Phase `json:"phase"`
	Round     int   `json:"round"`
	BufferLen int   `json:"buffer_len"`
}

// CallRecord captures one producer call for traceability.
type CallRecord struct {
	RequestID string
	Producer  string
	Model     string
	Phase     string
	Round     int
	Latency   time.Duration
	Chars     int
	Err       string
}

// CallRecorder receives a record of each producer call.
type CallRecorder interface {
	RecordCall(ctx context.Context, rec CallRecord)
}

// Options configures a Generator.
type Options struct {
	Producer   producer.Producer
	Resolver   *prompts.Resolver
	Model      string // empty means the producer's default
	Generation config.GenerationCfg
	Retry      retryx.Config
	Cooldown   time.Duration
	Cache      *Cache       // shared across generators; nil makes a private one
	Recorder   CallRecorder // optional
	Events     chan<- Event // optional; sends never block
	Logger     *slog.Logger
}

// Generator runs the full assembly pipeline for one topic at a time.
// Independent Generate calls may run concurrently; the only shared
// state is the insert-if-absent cache.
type Generator struct {
	opts   Options
	logger *slog.Logger
}

// New creates a Generator.
func New(opts Options) *Generator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultCooldown
	}
	if opts.Cache == nil {
		opts.Cache = &Cache{}
	}
	return &Generator{opts: opts, logger: opts.Logger}
}

// Generate assembles the document for a topic. The caller receives a
// complete or partial document, or one typed error naming the violated
// contract.
func (g *Generator) Generate(ctx context.Context, topic string) (*types.Document, error) {
	fingerprint := Fingerprint(topic, g.opts.Model)
	if doc, ok := g.opts.Cache.Get(fingerprint); ok {
		g.logger.Info("cache hit", "topic", topic)
		g.emit(PhaseDone, 0, len(doc.Narrative))
		return doc, nil
	}

	g.emit(PhaseStructuring, 0, 0)
	cm, err := g.conceptMapPhase(ctx, topic)
	if err != nil {
		return nil, err
	}

	// Cool down between independently-dispatched phases.
	if err := g.sleep(ctx, g.opts.Cooldown); err != nil {
		return nil, err
	}

	g.emit(PhaseWriting, 0, 0)
	narrativeText, prov, err := g.narrativePhase(ctx, topic, cm)
	if err != nil {
		return nil, err
	}

	g.emit(PhaseCiting, 0, len(narrativeText))
	narrativeText = markdown.RemoveDuplicateSections(narrativeText)
	narrativeText = markdown.NormalizeTables(narrativeText)
	narrativeText = linker.Link(narrativeText, linker.NewIndex(cm.Nodes))
	sources := citations.Extract(prov, narrativeText)

	doc := &types.Document{
		ID:         uuid.NewString(),
		Topic:      topic,
		ConceptMap: *cm,
		Narrative:  narrativeText,
		Sources:    sources,
		CreatedAt:  time.Now().UTC(),
	}
	doc = g.opts.Cache.Put(fingerprint, doc)

	g.emit(PhaseDone, 0, len(doc.Narrative))
	g.logger.Info("document assembled",
		"topic", topic,
		"nodes", len(doc.ConceptMap.Nodes),
		"narrative_chars", len(doc.Narrative),
		"sources", len(doc.Sources))
	return doc, nil
}

// conceptMapPhase obtains the structured concept map. Recovery never
// errors; only a fully absent object is fatal.
func (g *Generator) conceptMapPhase(ctx context.Context, topic string) (*types.ConceptMap, error) {
	system, err := g.opts.Resolver.Render(conceptmap.SystemKey, nil)
	if err != nil {
		return nil, err
	}
	user, err := g.opts.Resolver.Render(conceptmap.UserKey, map[string]string{"Topic": topic})
	if err != nil {
		return nil, err
	}

	req := &producer.Request{
		System:          system,
		Parts:           []producer.Part{{Role: "user", Text: user}},
		Model:           g.opts.Model,
		Temperature:     g.opts.Generation.Temperature,
		ReasoningBudget: g.opts.Generation.ReasoningBudget,
		ResponseJSON:    true,
	}

	text, _, err := g.call(ctx, "concept-map", 0, req)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		// One retry after a cool-down before giving up on the phase.
		g.logger.Warn("empty concept-map output, retrying once")
		if err := g.sleep(ctx, g.opts.Cooldown); err != nil {
			return nil, err
		}
		text, _, err = g.call(ctx, "concept-map", 0, req)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(text) == "" {
			return nil, &EmptyOutputError{Phase: "concept-map"}
		}
	}

	cm := jsonx.Recover(text)
	if cm.Empty() {
		return nil, ErrStructuredDataAbsent
	}
	return cm, nil
}

// narrativePhase accumulates the markdown narrative across up to
// 1+MaxContinuations rounds. Failed continuations never discard what
// earlier rounds produced.
func (g *Generator) narrativePhase(ctx context.Context, topic string, cm *types.ConceptMap) (string, *producer.Provenance, error) {
	system, err := g.opts.Resolver.Render(narrative.SystemKey, nil)
	if err != nil {
		return "", nil, err
	}
	cmJSON, err := json.MarshalIndent(cm, "", "  ")
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal concept map: %w", err)
	}
	user, err := g.opts.Resolver.Render(narrative.UserKey, map[string]string{
		"Topic":          topic,
		"ConceptMapJSON": string(cmJSON),
	})
	if err != nil {
		return "", nil, err
	}

	var (
		buffer        string
		prov          *producer.Provenance
		resumeHeading string
		retriedEmpty  bool
	)

	for round := 0; ; round++ {
		parts := []producer.Part{{Role: "user", Text: user}}
		if round > 0 {
			cont, err := g.opts.Resolver.Render(narrative.ContinuationKey, map[string]string{
				"ResumeHeading": resumeHeading,
				"Tail":          tail(buffer, resumeTailLen),
			})
			if err != nil {
				return "", nil, err
			}
			parts = append(parts,
				producer.Part{Role: "model", Text: buffer},
				producer.Part{Role: "user", Text: cont},
			)
		}

		req := &producer.Request{
			System:          system,
			Parts:           parts,
			Model:           g.opts.Model,
			Temperature:     g.opts.Generation.Temperature,
			ReasoningBudget: g.opts.Generation.ReasoningBudget,
			EnableSearch:    g.opts.Generation.EnableSearch,
		}

		text, roundProv, err := g.call(ctx, "narrative", round, req)
		if err != nil {
			if round == 0 {
				return "", nil, err
			}
			// Partial output is valid output.
			g.logger.Warn("continuation round failed, keeping accumulated narrative",
				"round", round, "error", err)
			break
		}
		prov = mergeProvenance(prov, roundProv)

		prevLen := len(buffer)
		buffer += text

		if round == 0 && len(strings.TrimSpace(buffer)) < minNarrativeLen {
			if retriedEmpty {
				return "", nil, &EmptyOutputError{Phase: "narrative"}
			}
			retriedEmpty = true
			g.logger.Warn("empty narrative output, retrying once")
			if err := g.sleep(ctx, g.opts.Cooldown); err != nil {
				return "", nil, err
			}
			buffer = ""
			round--
			continue
		}

		if len(buffer) == prevLen {
			break
		}
		if len(buffer) > BufferHardCap {
			g.logger.Warn("narrative buffer hit hard cap", "chars", len(buffer))
			break
		}
		report := markdown.DetectTruncation(buffer)
		if !report.Truncated {
			break
		}
		if round >= MaxContinuations {
			g.logger.Warn("continuation rounds exhausted, keeping partial narrative",
				"chars", len(buffer))
			break
		}
		resumeHeading = report.ResumeHeading
		g.emit(PhaseWriting, round+1, len(buffer))
	}

	return buffer, prov, nil
}

// call makes one producer call wrapped in the retry executor and drains
// the stream. Transient errors consume attempts; everything else is
// permanent.
func (g *Generator) call(ctx context.Context, phase string, round int, req *producer.Request) (string, *producer.Provenance, error) {
	type result struct {
		text string
		prov *producer.Provenance
	}

	requestID := uuid.NewString()
	req.RequestID = requestID
	start := time.Now()

	res, err := retryx.Do(ctx, g.opts.Retry, func(ctx context.Context) (result, error) {
		stream, err := g.opts.Producer.Generate(ctx, req)
		if err != nil {
			return result{}, classify(err)
		}
		defer stream.Close()

		var sb strings.Builder
		var prov *producer.Provenance
		for {
			frag, recvErr := stream.Recv()
			if recvErr == io.EOF {
				break
			}
			if recvErr != nil {
				if sb.Len() > 0 {
					// Keep what arrived; truncation handling resumes it.
					g.logger.Warn("stream ended early", "phase", phase, "error", recvErr)
					break
				}
				return result{}, classify(recvErr)
			}
			switch frag.Kind {
			case producer.KindNarration:
				sb.WriteString(frag.Text)
			case producer.KindReasoning:
				g.logger.Debug("producer reasoning", "phase", phase, "chars", len(frag.Text))
			case producer.KindProvenance:
				prov = mergeProvenance(prov, frag.Provenance)
			}
		}
		return result{text: sb.String(), prov: prov}, nil
	})

	g.record(ctx, CallRecord{
		RequestID: requestID,
		Producer:  g.opts.Producer.Name(),
		Model:     req.Model,
		Phase:     phase,
		Round:     round,
		Latency:   time.Since(start),
		Chars:     len(res.text),
		Err:       errString(err),
	})

	if err != nil {
		return "", nil, err
	}
	return res.text, res.prov, nil
}

func classify(err error) error {
	var transient *producer.TransientError
	if errors.As(err, &transient) {
		return err
	}
	return retryx.Permanent(err)
}

// mergeProvenance appends b's chunks to a's, re-basing b's support
// indices onto the combined chunk list.
func mergeProvenance(a, b *producer.Provenance) *producer.Provenance {
	if b == nil {
		return a
	}
	if a == nil {
		return b
	}
	base := len(a.Chunks)
	a.Chunks = append(a.Chunks, b.Chunks...)
	for _, s := range b.Supports {
		rebased := make([]int, len(s.ChunkIndexes))
		for i, idx := range s.ChunkIndexes {
			rebased[i] = idx + base
		}
		a.Supports = append(a.Supports, producer.Support{ChunkIndexes: rebased})
	}
	return a
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func (g *Generator) emit(phase Phase, round, bufferLen int) {
	if g.opts.Events == nil {
		return
	}
	select {
	case g.opts.Events <- Event{Phase: phase, Round: round, BufferLen: bufferLen}:
	default:
		// A slow consumer must never stall generation.
	}
}

func (g *Generator) sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (g *Generator) record(ctx context.Context, rec CallRecord) {
	if g.opts.Recorder == nil {
		return
	}
	g.opts.Recorder.RecordCall(ctx, rec)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
