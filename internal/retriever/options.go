package retriever

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/testkb/internal/config"
	"github.com/ziadkadry99/testkb/internal/journal"
	"github.com/ziadkadry99/testkb/internal/metrics"
)

// Tier classifies how well cached application knowledge covers a query.
type Tier string

const (
	TierExact   Tier = "EXACT"
	TierPartial Tier = "PARTIAL"
	TierNone    Tier = "NONE"
)

func (t Tier) rank() int {
	switch t {
	case TierExact:
		return 2
	case TierPartial:
		return 1
	default:
		return 0
	}
}

// Thresholds are similarity percentages. A hit is EXACT at or above Exact,
// PARTIAL at or above Partial and NONE otherwise. Hits below Floor are not
// returned at all.
type Thresholds struct {
	Exact   float64
	Partial float64
	Floor   float64
}

// DefaultThresholds returns 90/60/30.
func DefaultThresholds() Thresholds {
	return Thresholds{Exact: 90, Partial: 60, Floor: 30}
}

// Validate requires 0 <= Floor <= Partial <= Exact <= 100.
func (t Thresholds) Validate() error {
	if t.Floor < 0 || t.Floor > t.Partial || t.Partial > t.Exact || t.Exact > 100 {
		return fmt.Errorf("thresholds must satisfy 0 <= floor <= partial <= exact <= 100, got floor=%v partial=%v exact=%v",
			t.Floor, t.Partial, t.Exact)
	}
	return nil
}

// Classify returns the tier of a similarity percentage.
func (t Thresholds) Classify(similarity float64) Tier {
	switch {
	case similarity >= t.Exact:
		return TierExact
	case similarity >= t.Partial:
		return TierPartial
	default:
		return TierNone
	}
}

// Journal records every stored knowledge item.
type Journal interface {
	Append(ctx context.Context, entry journal.Entry) (int64, error)
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithThresholds overrides the tier thresholds and similarity floor.
func WithThresholds(t Thresholds) Option {
	return func(r *Retriever) { r.thresholds = t }
}

// WithFixWeights sets the weights of similarity and success rate in the
// fix ranking score. They are normalized to sum to one.
func WithFixWeights(similarity, successRate float64) Option {
	return func(r *Retriever) {
		r.simWeight = similarity
		r.rateWeight = successRate
	}
}

// WithDefaultResults sets the result count used when a search asks for n <= 0.
func WithDefaultResults(n int) Option {
	return func(r *Retriever) { r.defaultResults = n }
}

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(r *Retriever) { r.logger = l }
}

// WithJournal records every stored record in j.
func WithJournal(j Journal) Option {
	return func(r *Retriever) { r.journal = j }
}

// WithMetrics sets the instrumentation hook; the default is metrics.Nop.
func WithMetrics(m metrics.Recorder) Option {
	return func(r *Retriever) { r.metrics = m }
}

// WithClock replaces time.Now for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Retriever) { r.now = now }
}

// ConfigOptions translates the retrieval section of the config file.
func ConfigOptions(cfg config.RetrievalConfig) []Option {
	return []Option{
		WithThresholds(Thresholds{
			Exact:   cfg.ExactThreshold,
			Partial: cfg.PartialThreshold,
			Floor:   cfg.Floor,
		}),
		WithFixWeights(cfg.SimilarityWeight, cfg.SuccessWeight),
		WithDefaultResults(cfg.DefaultResults),
	}
}
