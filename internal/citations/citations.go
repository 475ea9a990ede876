// Package citations assembles the source list for a generated document.
//
// Provenance metadata from the producer is the preferred source of
// citations. When the producer supplies none, a best-effort pattern
// match over the narrative recovers common citation shapes.
package citations

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/latticedocs/lattice/internal/producer"
	"github.com/latticedocs/lattice/internal/types"
)

// proxyHosts are redirect/search-proxy domains that carry no reader
// value; chunks pointing at them are dropped.
var proxyHosts = []string{
	"vertexaisearch.cloud.google.com",
	"vertexaisearch.google.com",
	"googleusercontent.com",
}

var (
	// (Smith et al., 2023) and (Smith et al. 2023)
	etAlPattern = regexp.MustCompile(`\(([A-Z][A-Za-z'-]+(?:\s+(?:and|&)\s+[A-Z][A-Za-z'-]+)?\s+et\s+al\.?,?\s+(\d{4}[a-z]?))\)`)
	// (World Health Organization, 2024)
	orgPattern = regexp.MustCompile(`\(([A-Z][A-Za-z]+(?:\s+[A-Za-z]+){1,6},\s+(\d{4}))\)`)
	// (WHO 2024), (NICE, 2023)
	acronymPattern = regexp.MustCompile(`\(([A-Z]{2,10},?\s+\d{4})\)`)
	// [title](https://...) inline links; anchors like (#node-id) are
	// cross-reference markers, not citations.
	inlineLinkPattern = regexp.MustCompile(`\[([^\[\]]+)\]\((https?://[^()\s]+)\)`)
)

// FromProvenance extracts sources from producer grounding metadata.
// Directly-cited chunks come first, then chunks reachable only through
// support-segment indices. Proxy-domain chunks are excluded.
func FromProvenance(prov *producer.Provenance) []types.Source {
	if prov == nil {
		return nil
	}

	dedup := newDeduper()

	for _, chunk := range prov.Chunks {
		dedup.add(types.Source{Title: chunk.Title, URI: chunk.URI})
	}
	for _, support := range prov.Supports {
		for _, i := range support.ChunkIndexes {
			if i < 0 || i >= len(prov.Chunks) {
				continue
			}
			chunk := prov.Chunks[i]
			dedup.add(types.Source{Title: chunk.Title, URI: chunk.URI})
		}
	}

	return dedup.sources
}

// FromNarrative pattern-matches the narrative for common citation
// shapes. Used only when no provenance metadata exists.
func FromNarrative(text string) []types.Source {
	dedup := newDeduper()

	for _, m := range inlineLinkPattern.FindAllStringSubmatch(text, -1) {
		dedup.add(types.Source{Title: m[1], URI: m[2]})
	}
	for _, pattern := range []*regexp.Regexp{etAlPattern, orgPattern, acronymPattern} {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			dedup.add(types.Source{Title: m[1]})
		}
	}

	return dedup.sources
}

// Extract returns the document's source list: provenance when present,
// narrative patterns otherwise.
func Extract(prov *producer.Provenance, narrative string) []types.Source {
	if prov != nil {
		return FromProvenance(prov)
	}
	return FromNarrative(narrative)
}

// deduper keeps first occurrence order, keyed by URI, or by title for
// URI-less sources.
type deduper struct {
	seen    map[string]bool
	sources []types.Source
}

func newDeduper() *deduper {
	return &deduper{seen: make(map[string]bool)}
}

func (d *deduper) add(s types.Source) {
	if s.URI == "" && s.Title == "" {
		return
	}
	if s.URI != "" && isProxyURI(s.URI) {
		return
	}
	key := strings.ToLower(s.URI)
	if key == "" {
		key = "title:" + strings.ToLower(s.Title)
	}
	if d.seen[key] {
		return
	}
	d.seen[key] = true
	d.sources = append(d.sources, s)
}

func isProxyURI(uri string) bool {
	u, err := url.Parse(uri)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, proxy := range proxyHosts {
		if host == proxy || strings.HasSuffix(host, "."+proxy) {
			return true
		}
	}
	return false
}
