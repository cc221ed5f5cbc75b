package embeddings

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

// LocalEmbedder is an offline embedder that hashes word and character
// trigram features into a fixed number of buckets. Texts sharing vocabulary
// get close vectors and identical texts get identical vectors.
type LocalEmbedder struct {
	dims int
}

// NewLocalEmbedder creates a feature-hashing embedder with dims buckets.
func NewLocalEmbedder(dims int) *LocalEmbedder {
	if dims <= 0 {
		dims = 384
	}
	return &LocalEmbedder{dims: dims}
}

func (e *LocalEmbedder) Name() string    { return "local/hash-v1" }
func (e *LocalEmbedder) Dimensions() int { return e.dims }

func (e *LocalEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.vector(text)
	}
	return out, nil
}

func (e *LocalEmbedder) vector(text string) []float32 {
	vec := make([]float32, e.dims)
	for _, word := range tokenize(text) {
		vec[e.bucket("w:"+word)] += 1.0
		padded := "^" + word + "$"
		runes := []rune(padded)
		for i := 0; i+3 <= len(runes); i++ {
			vec[e.bucket("t:"+string(runes[i:i+3]))] += 0.25
		}
	}

	empty := true
	for _, v := range vec {
		if v != 0 {
			empty = false
			break
		}
	}
	if empty {
		// Text without word characters still needs a unit vector.
		vec[0] = 1
	}
	return normalize(vec)
}

func (e *LocalEmbedder) bucket(feature string) int {
	h := fnv.New32a()
	h.Write([]byte(feature))
	return int(h.Sum32() % uint32(e.dims))
}

// tokenize lowercases text and splits it on anything that is not a letter
// or digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
