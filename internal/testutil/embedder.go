package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"sync"
)

// HashEmbedder produces deterministic unit vectors derived from the
// input text. Identical texts embed identically and different texts
// almost never collide, which is enough for similarity plumbing tests
// without a real model or API key.
type HashEmbedder struct {
	mu        sync.Mutex
	overrides map[string][]float32
}

// NewHashEmbedder creates a deterministic test embedder.
func NewHashEmbedder() *HashEmbedder {
	return &HashEmbedder{overrides: make(map[string][]float32)}
}

// SetVector pins an exact vector for one input text, overriding the
// hash derivation. Tests use it to force known similarity orderings.
func (e *HashEmbedder) SetVector(text string, vec []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.overrides[text] = vec
}

// Embed returns a 768-dimension unit vector for text.
func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	if vec, ok := e.overrides[text]; ok {
		e.mu.Unlock()
		return vec, nil
	}
	e.mu.Unlock()

	const dim = 768
	vec := make([]float32, dim)
	seed := sha256.Sum256([]byte(text))

	// Expand the digest into dim pseudo-random components.
	var norm float64
	for i := range vec {
		var buf [40]byte
		copy(buf[:32], seed[:])
		binary.LittleEndian.PutUint64(buf[32:], uint64(i))
		h := sha256.Sum256(buf[:])
		v := float32(int32(binary.LittleEndian.Uint32(h[:4]))) / float32(math.MaxInt32)
		vec[i] = v
		norm += float64(v) * float64(v)
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec, nil
}

// ModelName identifies the fake model in stored records.
func (e *HashEmbedder) ModelName() string { return "hash-embedder-768" }
