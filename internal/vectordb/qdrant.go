package vectordb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ziadkadry99/testkb/internal/embeddings"
)

// payloadText is the payload key holding the record text. Metadata keys
// share the payload namespace with it.
const payloadText = "_text"

// QdrantConfig holds connection settings for QdrantStore.
type QdrantConfig struct {
	Host   string
	Port   int
	UseTLS bool
	APIKey string
}

// QdrantStore implements Store on a Qdrant server over gRPC.
type QdrantStore struct {
	client   *qdrant.Client
	embedder embeddings.Embedder
	logger   *zap.Logger
}

// NewQdrantStore connects to Qdrant and verifies the server is reachable.
func NewQdrantStore(cfg QdrantConfig, embedder embeddings.Embedder, logger *zap.Logger) (*QdrantStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.UseTLS {
		logger.Warn("qdrant gRPC connection is plaintext", zap.String("host", cfg.Host))
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		UseTLS: cfg.UseTLS,
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant at %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.HealthCheck(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("qdrant health check failed: %w", err)
	}

	return &QdrantStore{client: client, embedder: embedder, logger: logger}, nil
}

func (s *QdrantStore) EnsureCollection(ctx context.Context, name string) error {
	if err := ValidateCollectionName(name); err != nil {
		return err
	}
	ok, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", name, err)
	}
	if ok {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.embedder.Dimensions()),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		// Lost a race with another creator.
		if st, ok := status.FromError(err); ok && st.Code() == grpccodes.AlreadyExists {
			return nil
		}
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	s.logger.Info("qdrant collection created",
		zap.String("collection", name),
		zap.Int("dimensions", s.embedder.Dimensions()),
	)
	return nil
}

func (s *QdrantStore) embed(ctx context.Context, text string) ([]float32, error) {
	return embeddings.EmbedOne(ctx, s.embedder, text)
}

func (s *QdrantStore) Add(ctx context.Context, collection, text string, metadata map[string]string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	vec, err := s.embed(ctx, text)
	if err != nil {
		return "", err
	}

	payload := make(map[string]*qdrant.Value, len(metadata)+1)
	for k, v := range metadata {
		payload[k] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: v}}
	}
	payload[payloadText] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: text}}

	id := uuid.New().String()
	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDUUID(id),
			Vectors: qdrant.NewVectors(vec...),
			Payload: payload,
		}},
	})
	if err != nil {
		if st, ok := status.FromError(err); ok && st.Code() == grpccodes.NotFound {
			return "", fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
		}
		return "", fmt.Errorf("qdrant upsert into %s: %w", collection, err)
	}
	return id, nil
}

func (s *QdrantStore) Query(ctx context.Context, collection, text string, n int, where map[string]string) ([]Hit, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	if n <= 0 {
		return nil, nil
	}
	vec, err := s.embed(ctx, text)
	if err != nil {
		return nil, err
	}

	var filter *qdrant.Filter
	if len(where) > 0 {
		conditions := make([]*qdrant.Condition, 0, len(where))
		for k, v := range where {
			conditions = append(conditions, &qdrant.Condition{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key: k,
						Match: &qdrant.Match{
							MatchValue: &qdrant.Match_Keyword{Keyword: v},
						},
					},
				},
			})
		}
		filter = &qdrant.Filter{Must: conditions}
	}

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vec...),
		Limit:          qdrant.PtrOf(uint64(n)),
		Filter:         filter,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		if st, ok := status.FromError(err); ok && st.Code() == grpccodes.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
		}
		return nil, fmt.Errorf("qdrant query %s: %w", collection, err)
	}

	hits := make([]Hit, 0, len(points))
	for _, p := range points {
		hit := Hit{
			ID:         p.GetId().GetUuid(),
			Metadata:   make(map[string]string, len(p.Payload)),
			Similarity: toPercent(p.Score),
		}
		for k, v := range p.Payload {
			if k == payloadText {
				hit.Text = v.GetStringValue()
				continue
			}
			hit.Metadata[k] = v.GetStringValue()
		}
		hits = append(hits, hit)
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	return hits, nil
}

func (s *QdrantStore) Count(ctx context.Context, collection string) (int, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		if st, ok := status.FromError(err); ok && st.Code() == grpccodes.NotFound {
			return 0, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
		}
		return 0, fmt.Errorf("qdrant count %s: %w", collection, err)
	}
	return int(n), nil
}

func (s *QdrantStore) Collections(ctx context.Context) ([]string, error) {
	names, err := s.client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing qdrant collections: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

func (s *QdrantStore) Close() error {
	return s.client.Close()
}
