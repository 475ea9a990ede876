// Package producer defines the generative text service contract and its
// implementations. A producer accepts one request and yields an ordered
// fragment stream: narration text, auxiliary reasoning text, and optional
// provenance metadata. Streams are consumed exactly once, in order, by a
// single consumer; nothing here buffers ahead or reorders.
package producer

import "context"

// FragmentKind discriminates stream events.
type FragmentKind string

const (
	// KindNarration is output text that belongs to the document.
	KindNarration FragmentKind = "narration"
	// KindReasoning is auxiliary model thinking, never part of output.
	KindReasoning FragmentKind = "reasoning"
	// KindProvenance carries source/citation metadata.
	KindProvenance FragmentKind = "provenance"
)

// Fragment is one stream event.
type Fragment struct {
	Kind       FragmentKind
	Text       string
	Provenance *Provenance
}

// Provenance is structured source metadata attached to producer output.
type Provenance struct {
	// Chunks are the web sources the producer consulted.
	Chunks []Chunk
	// Supports map narrative segments onto Chunks by index.
	Supports []Support
}

// Chunk is a single consulted source.
type Chunk struct {
	Title string
	URI   string
}

// Support ties a narrative segment to the chunks backing it.
type Support struct {
	ChunkIndexes []int
}

// Part is one conversation/content part of a request.
type Part struct {
	Role string // "user" or "model"
	Text string
}

// Request is a single generation request.
type Request struct {
	// System is the static instruction block.
	System string
	// Parts are the conversation/content parts, in order.
	Parts []Part

	// Model selection (producer default if empty).
	Model string

	Temperature     float64
	ReasoningBudget int

	// EnableSearch asks the producer to ground output in web search,
	// surfacing provenance metadata when it does.
	EnableSearch bool

	// ResponseJSON asks for a JSON response body where supported.
	ResponseJSON bool

	// RequestID is used for call recording; generated when empty.
	RequestID string
}

// Stream is a pull iterator over fragments. Recv returns io.EOF after
// the final fragment. Implementations are not safe for concurrent use:
// the contract is one consumer, strict order.
type Stream interface {
	Recv() (Fragment, error)
	Close() error
}

// Producer is a generative text service.
type Producer interface {
	// Name returns the producer identifier (e.g. "gemini").
	Name() string

	// Generate issues one request. Transient upstream failures are
	// reported as *TransientError so the caller's retry executor can
	// distinguish them from contract violations.
	Generate(ctx context.Context, req *Request) (Stream, error)
}
