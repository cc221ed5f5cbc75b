// Package vectordb is the collection-scoped similarity search layer. The
// rest of testkb only sees the Store interface; backends own embedding and
// persistence.
package vectordb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// Store defines collection-scoped insert and nearest-neighbour query.
type Store interface {
	// EnsureCollection creates the collection if it does not exist yet.
	// Calling it again for an existing collection is a no-op.
	EnsureCollection(ctx context.Context, name string) error

	// Add embeds text and stores it with metadata under a freshly
	// generated ID, which is returned.
	Add(ctx context.Context, collection, text string, metadata map[string]string) (string, error)

	// Query returns up to n hits ordered by descending similarity. Only
	// records whose metadata equals every key/value in where are
	// considered. An empty collection yields no hits and no error.
	Query(ctx context.Context, collection, text string, n int, where map[string]string) ([]Hit, error)

	// Count returns the number of records in the collection.
	Count(ctx context.Context, collection string) (int, error)

	// Collections lists the names of existing collections.
	Collections(ctx context.Context) ([]string, error)

	// Close releases backend resources.
	Close() error
}

// Hit is a single query result. Similarity is a percentage in [0,100].
type Hit struct {
	ID         string
	Text       string
	Metadata   map[string]string
	Similarity float64
}

var (
	// ErrEmptyText is returned when adding or querying with blank text.
	ErrEmptyText = errors.New("text must not be empty")
	// ErrCollectionNotFound is returned for operations on a collection
	// that was never ensured.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrInvalidCollectionName is returned for names outside [a-z0-9_-].
	ErrInvalidCollectionName = errors.New("invalid collection name")
)

var collectionNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,62}$`)

// ValidateCollectionName checks that name is usable by every backend.
func ValidateCollectionName(name string) error {
	if !collectionNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidCollectionName, name)
	}
	return nil
}

// toPercent maps a cosine similarity to [0,100].
func toPercent(sim float32) float64 {
	p := float64(sim) * 100
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

// matches reports whether md contains every pair in where.
func matches(md, where map[string]string) bool {
	for k, v := range where {
		if md[k] != v {
			return false
		}
	}
	return true
}

func copyMetadata(md map[string]string) map[string]string {
	out := make(map[string]string, len(md))
	for k, v := range md {
		out[k] = v
	}
	return out
}
