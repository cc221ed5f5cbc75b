package vectordb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/ziadkadry99/testkb/internal/embeddings"
)

// ChromemStore implements Store using a persistent chromem-go database.
type ChromemStore struct {
	db        *chromem.DB
	embedFunc chromem.EmbeddingFunc
	path      string
	logger    *zap.Logger
}

// NewChromemStore opens (or creates) a chromem database in dir. It fails if
// dir cannot be created or written to.
func NewChromemStore(dir string, compress bool, embedder embeddings.Embedder, logger *zap.Logger) (*ChromemStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("expanding home directory: %w", err)
		}
		dir = filepath.Join(home, dir[2:])
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating vector store directory: %w", err)
	}
	if err := probeWritable(dir); err != nil {
		return nil, err
	}

	db, err := chromem.NewPersistentDB(dir, compress)
	if err != nil {
		return nil, fmt.Errorf("opening chromem database at %s: %w", dir, err)
	}

	logger.Debug("chromem store opened",
		zap.String("path", dir),
		zap.Bool("compress", compress),
		zap.Int("collections", len(db.ListCollections())),
	)

	return &ChromemStore{
		db:        db,
		embedFunc: embeddings.ToChromemFunc(embedder),
		path:      dir,
		logger:    logger,
	}, nil
}

func probeWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".write-probe-*")
	if err != nil {
		return fmt.Errorf("vector store directory %s is not writable: %w", dir, err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

func (s *ChromemStore) EnsureCollection(ctx context.Context, name string) error {
	if err := ValidateCollectionName(name); err != nil {
		return err
	}
	// The embedding func must be passed on every lookup: collections loaded
	// from disk otherwise fall back to chromem's default OpenAI embedder.
	if _, err := s.db.GetOrCreateCollection(name, nil, s.embedFunc); err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	return nil
}

func (s *ChromemStore) collection(name string) (*chromem.Collection, error) {
	col := s.db.GetCollection(name, s.embedFunc)
	if col == nil {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	return col, nil
}

func (s *ChromemStore) Add(ctx context.Context, collection, text string, metadata map[string]string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	col, err := s.collection(collection)
	if err != nil {
		return "", err
	}

	id := uuid.New().String()
	err = col.AddDocument(ctx, chromem.Document{
		ID:       id,
		Content:  text,
		Metadata: copyMetadata(metadata),
	})
	if err != nil {
		return "", fmt.Errorf("chromem add to %s: %w", collection, err)
	}
	return id, nil
}

func (s *ChromemStore) Query(ctx context.Context, collection, text string, n int, where map[string]string) ([]Hit, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	col, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}

	// chromem-go requires nResults <= collection size.
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if n > count {
		n = count
	}
	if len(where) == 0 {
		where = nil
	}

	results, err := col.Query(ctx, text, n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query %s: %w", collection, err)
	}

	hits := make([]Hit, len(results))
	for i, r := range results {
		hits[i] = Hit{
			ID:         r.ID,
			Text:       r.Content,
			Metadata:   r.Metadata,
			Similarity: toPercent(r.Similarity),
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	return hits, nil
}

func (s *ChromemStore) Count(ctx context.Context, collection string) (int, error) {
	col, err := s.collection(collection)
	if err != nil {
		return 0, err
	}
	return col.Count(), nil
}

func (s *ChromemStore) Collections(ctx context.Context) ([]string, error) {
	cols := s.db.ListCollections()
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Close is a no-op: the persistent DB writes every document on insert.
func (s *ChromemStore) Close() error {
	return nil
}
