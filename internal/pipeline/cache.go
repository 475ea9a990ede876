package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"

	"github.com/latticedocs/lattice/internal/types"
)

// Fingerprint derives the cache key for a generation request. Topic
// text is case- and whitespace-insensitive; the model is part of the
// key because different models produce different documents.
func Fingerprint(topic, model string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(topic)), " ")
	h := sha256.Sum256([]byte(normalized + "\x00" + model))
	return hex.EncodeToString(h[:])
}

// Cache is a read-through document cache safe for concurrent use.
// Writers only ever insert-if-absent, so two racing generations of the
// same topic agree on a single winner.
type Cache struct {
	m sync.Map
}

// Get returns the cached document for a fingerprint.
func (c *Cache) Get(fingerprint string) (*types.Document, bool) {
	v, ok := c.m.Load(fingerprint)
	if !ok {
		return nil, false
	}
	return v.(*types.Document), true
}

// Put inserts a document if absent and returns the winning document.
func (c *Cache) Put(fingerprint string, doc *types.Document) *types.Document {
	v, _ := c.m.LoadOrStore(fingerprint, doc)
	return v.(*types.Document)
}
