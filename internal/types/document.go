// Package types provides shared types used across multiple packages.
// This package has no dependencies on other lattice packages to avoid import cycles.
package types

import "time"

// PearlKind categorizes a teaching pearl.
type PearlKind string

const (
	PearlGapFiller PearlKind = "gap-filler"
	PearlExamTip   PearlKind = "exam-tip"
	PearlRedFlag   PearlKind = "red-flag"
	PearlFactCheck PearlKind = "fact-check"
)

// ParsePearlKind converts a string to a PearlKind.
// Returns PearlGapFiller if the string is not recognized.
func ParsePearlKind(s string) PearlKind {
	switch s {
	case "gap-filler":
		return PearlGapFiller
	case "exam-tip":
		return PearlExamTip
	case "red-flag":
		return PearlRedFlag
	case "fact-check":
		return PearlFactCheck
	default:
		return PearlGapFiller
	}
}

// Pearl is a short high-yield teaching point attached to a concept map.
type Pearl struct {
	Kind    PearlKind `json:"type"`
	Content string    `json:"content"`
}

// GraphNode is a single concept in the map.
type GraphNode struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Group       int      `json:"group"`
	Weight      float64  `json:"weight"`
	Description string   `json:"description"`
	Detail      string   `json:"detail,omitempty"`
	Synonyms    []string `json:"synonyms,omitempty"`
}

// GraphLink is a typed directional relationship between two nodes.
type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label"`
}

// ConceptMap is the structured half of a generated document: metadata,
// pearls, and the node/link graph.
type ConceptMap struct {
	Title   string      `json:"title"`
	Summary string      `json:"summary"`
	Analogy string      `json:"analogy,omitempty"`
	Pearls  []Pearl     `json:"pearls,omitempty"`
	Nodes   []GraphNode `json:"nodes"`
	Links   []GraphLink `json:"links"`
}

// Empty reports whether the map carries no usable content.
func (m *ConceptMap) Empty() bool {
	return m == nil || (m.Title == "" && m.Summary == "" && len(m.Nodes) == 0)
}

// NodeIDs returns the set of node identifiers present in the map.
func (m *ConceptMap) NodeIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(m.Nodes))
	for _, n := range m.Nodes {
		ids[n.ID] = struct{}{}
	}
	return ids
}

// PruneDanglingLinks removes links whose source or target does not
// reference a known node. Dangling links are dropped, never fatal.
// Returns the number of links removed.
func (m *ConceptMap) PruneDanglingLinks() int {
	ids := m.NodeIDs()
	kept := m.Links[:0]
	for _, l := range m.Links {
		if _, ok := ids[l.Source]; !ok {
			continue
		}
		if _, ok := ids[l.Target]; !ok {
			continue
		}
		kept = append(kept, l)
	}
	removed := len(m.Links) - len(kept)
	m.Links = kept
	return removed
}

// Source is a cited reference. Sources are deduplicated by URI and
// never mutated after creation.
type Source struct {
	Title string `json:"title"`
	URI   string `json:"uri,omitempty"`
}

// Document is the full pipeline output: the concept map plus the
// assembled narrative and its sources.
type Document struct {
	ID    string `json:"id"`
	Topic string `json:"topic"`

	ConceptMap

	Narrative string   `json:"narrative"`
	Sources   []Source `json:"sources,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
