package vectordb

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ziadkadry99/testkb/internal/embeddings"
)

type memoryRecord struct {
	id       string
	seq      int
	text     string
	metadata map[string]string
	vector   []float32
}

// MemoryStore is a process-local Store. Nothing is persisted.
type MemoryStore struct {
	mu          sync.RWMutex
	embedder    embeddings.Embedder
	collections map[string][]memoryRecord
	seq         int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(embedder embeddings.Embedder) *MemoryStore {
	return &MemoryStore{
		embedder:    embedder,
		collections: make(map[string][]memoryRecord),
	}
}

func (s *MemoryStore) EnsureCollection(ctx context.Context, name string) error {
	if err := ValidateCollectionName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; !ok {
		s.collections[name] = nil
	}
	return nil
}

func (s *MemoryStore) Add(ctx context.Context, collection, text string, metadata map[string]string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	vec, err := s.embed(ctx, text)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	records, ok := s.collections[collection]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	s.seq++
	id := uuid.New().String()
	s.collections[collection] = append(records, memoryRecord{
		id:       id,
		seq:      s.seq,
		text:     text,
		metadata: copyMetadata(metadata),
		vector:   vec,
	})
	return id, nil
}

func (s *MemoryStore) Query(ctx context.Context, collection, text string, n int, where map[string]string) ([]Hit, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	s.mu.RLock()
	records, ok := s.collections[collection]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	if n <= 0 || len(records) == 0 {
		return nil, nil
	}

	query, err := s.embed(ctx, text)
	if err != nil {
		return nil, err
	}

	type scored struct {
		rec memoryRecord
		sim float64
	}
	candidates := make([]scored, 0, len(records))
	for _, rec := range records {
		if !matches(rec.metadata, where) {
			continue
		}
		candidates = append(candidates, scored{rec: rec, sim: toPercent(cosineSimilarity(query, rec.vector))})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].sim != candidates[j].sim {
			return candidates[i].sim > candidates[j].sim
		}
		return candidates[i].rec.seq < candidates[j].rec.seq
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}

	hits := make([]Hit, len(candidates))
	for i, c := range candidates {
		hits[i] = Hit{
			ID:         c.rec.id,
			Text:       c.rec.text,
			Metadata:   copyMetadata(c.rec.metadata),
			Similarity: c.sim,
		}
	}
	return hits, nil
}

func (s *MemoryStore) Count(ctx context.Context, collection string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records, ok := s.collections[collection]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	return len(records), nil
}

func (s *MemoryStore) Collections(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) embed(ctx context.Context, text string) ([]float32, error) {
	return embeddings.EmbedOne(ctx, s.embedder, text)
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
