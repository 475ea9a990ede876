// Package linker rewrites plain-text mentions of concept-map node labels
// into cross-reference markers of the form [text](#node-id).
//
// The pass is idempotent: markers it produces are ordinary markdown
// links, and existing links are never altered, so running it on its own
// output is a no-op.
package linker

import (
	"regexp"
	"sort"
	"strings"

	"github.com/latticedocs/lattice/internal/types"
)

var (
	headingPrefix = regexp.MustCompile(`^#{1,6}\s`)
	spaceRuns     = regexp.MustCompile(`\s+`)
)

// Index maps normalized entity text to the owning node's identifier.
// Built once per narrative pass and used read-only.
type Index struct {
	byKey map[string]string

	// bodyPattern matches, in priority order: an existing markdown
	// link, bracketed text, or a bare occurrence of a known term.
	// headingPattern omits the bare-term alternative. termPattern is
	// the bare-term alternative alone, for re-scanning stripped text.
	bodyPattern    *regexp.Regexp
	headingPattern *regexp.Regexp
	termPattern    *regexp.Regexp
}

// normalize folds term text to its index key: lower-cased, hyphens to
// spaces, whitespace collapsed.
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", " ")
	return spaceRuns.ReplaceAllString(s, " ")
}

// NewIndex builds a link index from the graph nodes. Both the label and
// the identifier of each node contribute keys, so either form resolves.
// First node wins on key collisions.
func NewIndex(nodes []types.GraphNode) *Index {
	idx := &Index{byKey: make(map[string]string)}

	var forms []string
	add := func(text, id string) {
		key := normalize(text)
		if key == "" {
			return
		}
		if _, exists := idx.byKey[key]; !exists {
			idx.byKey[key] = id
			forms = append(forms, key)
		}
	}

	for _, n := range nodes {
		if n.ID == "" {
			continue
		}
		add(n.Label, n.ID)
		add(n.ID, n.ID)
		for _, syn := range n.Synonyms {
			add(syn, n.ID)
		}
	}

	// Longest-first so multi-word labels win over single-word
	// substrings; ties broken lexically for determinism.
	sort.Slice(forms, func(i, j int) bool {
		if len(forms[i]) != len(forms[j]) {
			return len(forms[i]) > len(forms[j])
		}
		return forms[i] < forms[j]
	})

	const (
		linkAlt    = `\[([^\[\]]+)\]\(([^()]*)\)`
		bracketAlt = `\[([^\[\]]+)\]`
	)

	escaped := make([]string, len(forms))
	for i, f := range forms {
		// Keys use spaces; mentions in text may use hyphens.
		escaped[i] = strings.ReplaceAll(regexp.QuoteMeta(f), ` `, `[ -]`)
	}

	idx.headingPattern = regexp.MustCompile(linkAlt + `|` + bracketAlt)
	if len(escaped) > 0 {
		termAlt := `\b(?i:` + strings.Join(escaped, `|`) + `)\b`
		idx.termPattern = regexp.MustCompile(termAlt)
		idx.bodyPattern = regexp.MustCompile(linkAlt + `|` + bracketAlt + `|` + termAlt)
	} else {
		idx.bodyPattern = idx.headingPattern
	}

	return idx
}

// Resolve returns the node id for a text form, if known.
func (idx *Index) Resolve(text string) (string, bool) {
	id, ok := idx.byKey[normalize(text)]
	return id, ok
}

// Len returns the number of distinct text forms in the index.
func (idx *Index) Len() int {
	return len(idx.byKey)
}

// Link rewrites mentions of known terms in the narrative into
// cross-reference markers.
//
// Heading lines only resolve already-bracketed text; body lines also
// link bare occurrences. Existing markdown links pass through
// unchanged. Bracketed text that resolves becomes a marker; bracketed
// text that does not resolve has its brackets stripped.
func Link(text string, idx *Index) string {
	if idx == nil || idx.Len() == 0 {
		return text
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		pattern := idx.bodyPattern
		body := true
		if headingPrefix.MatchString(line) {
			pattern = idx.headingPattern
			body = false
		}
		lines[i] = pattern.ReplaceAllStringFunc(line, func(match string) string {
			return rewrite(match, idx, body)
		})
	}
	return strings.Join(lines, "\n")
}

func rewrite(match string, idx *Index, body bool) string {
	// Existing markdown link: never altered.
	if strings.HasPrefix(match, "[") && strings.HasSuffix(match, ")") {
		return match
	}

	// Bracketed text: resolve or strip. Stripped text on a body line
	// is re-scanned for bare terms, so one pass is already a fixpoint.
	if strings.HasPrefix(match, "[") && strings.HasSuffix(match, "]") {
		inner := match[1 : len(match)-1]
		if id, ok := idx.Resolve(inner); ok {
			return "[" + inner + "](#" + id + ")"
		}
		if body && idx.termPattern != nil {
			return idx.termPattern.ReplaceAllStringFunc(inner, func(term string) string {
				if id, ok := idx.Resolve(term); ok {
					return "[" + term + "](#" + id + ")"
				}
				return term
			})
		}
		return inner
	}

	// Bare term.
	if id, ok := idx.Resolve(match); ok {
		return "[" + match + "](#" + id + ")"
	}
	return match
}
