// Package retriever turns agent intents into vector store calls. It applies
// metadata pre-filters before similarity ranking, tiers application
// knowledge hits and re-ranks fixes by their success rate.
package retriever

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/testkb/internal/journal"
	"github.com/ziadkadry99/testkb/internal/knowledge"
	"github.com/ziadkadry99/testkb/internal/metrics"
	"github.com/ziadkadry99/testkb/internal/vectordb"
)

var (
	// ErrUnavailable wraps every failure of the underlying vector store.
	// Callers fall back to their uncached path when they see it.
	ErrUnavailable = errors.New("retrieval unavailable")
	// ErrEmptyText is returned for blank queries and records.
	ErrEmptyText = errors.New("text must not be empty")
)

// Status distinguishes an empty lookup from a failed one.
type Status string

const (
	StatusMatches     Status = "matches"
	StatusNoMatches   Status = "no_matches"
	StatusUnavailable Status = "unavailable"
)

// DefaultSuccessRate is the success rate of a freshly verified fix.
const DefaultSuccessRate = 100.0

// fixPoolFactor enlarges the fix candidate pool so re-ranking by success
// rate can promote hits that raw similarity placed below n.
const fixPoolFactor = 4

// Hit is one ranked search result. Similarity is a percentage rounded to
// two decimals. Score is the ranking key: the composite score for fixes,
// Similarity for every other collection.
type Hit struct {
	ID         string
	Text       string
	Meta       knowledge.Metadata
	Similarity float64
	Score      float64
	Tier       Tier
}

// MarshalJSON flattens Meta into its stored string fields.
func (h Hit) MarshalJSON() ([]byte, error) {
	var fields map[string]string
	if h.Meta != nil {
		fields = h.Meta.Fields()
	}
	return json.Marshal(struct {
		ID         string            `json:"id"`
		Text       string            `json:"text"`
		Metadata   map[string]string `json:"metadata"`
		Similarity float64           `json:"similarity"`
		Score      float64           `json:"score"`
		Tier       Tier              `json:"tier"`
	}{h.ID, h.Text, fields, h.Similarity, h.Score, h.Tier})
}

// Result is the outcome of a search. Hits is never nil.
type Result struct {
	Collection knowledge.Collection `json:"collection"`
	Query      string               `json:"query"`
	Status     Status               `json:"status"`
	Tier       Tier                 `json:"tier"`
	Hits       []Hit                `json:"hits"`
}

// Retriever is the typed query and store surface over a vector store.
type Retriever struct {
	store          vectordb.Store
	thresholds     Thresholds
	simWeight      float64
	rateWeight     float64
	defaultResults int
	logger         *zap.Logger
	journal        Journal
	metrics        metrics.Recorder
	now            func() time.Time

	mu   sync.Mutex
	last time.Time
}

// New builds a Retriever over store and ensures the four knowledge
// collections exist.
func New(ctx context.Context, store vectordb.Store, opts ...Option) (*Retriever, error) {
	r := &Retriever{
		store:          store,
		thresholds:     DefaultThresholds(),
		simWeight:      0.7,
		rateWeight:     0.3,
		defaultResults: 3,
		logger:         zap.NewNop(),
		metrics:        metrics.Nop{},
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.thresholds.Validate(); err != nil {
		return nil, err
	}
	if r.simWeight < 0 || r.rateWeight < 0 || r.simWeight+r.rateWeight == 0 {
		return nil, fmt.Errorf("fix weights must be non-negative and not both zero, got %v/%v", r.simWeight, r.rateWeight)
	}
	sum := r.simWeight + r.rateWeight
	r.simWeight, r.rateWeight = r.simWeight/sum, r.rateWeight/sum
	if r.defaultResults < 1 {
		r.defaultResults = 3
	}

	for _, c := range knowledge.Collections() {
		if err := store.EnsureCollection(ctx, string(c)); err != nil {
			return nil, fmt.Errorf("ensuring collection %s: %w", c, err)
		}
	}
	return r, nil
}

// Thresholds returns the active tier thresholds.
func (r *Retriever) Thresholds() Thresholds { return r.thresholds }

// SearchErrorFixes finds proven fixes for an error message. Candidates
// below the similarity floor are dropped; the rest are ranked by a weighted
// average of similarity and historical success rate.
func (r *Retriever) SearchErrorFixes(ctx context.Context, errorText string, n int) (*Result, error) {
	return r.SearchErrorFixesOfType(ctx, errorText, "", n)
}

// SearchErrorFixesOfType is SearchErrorFixes restricted to one error type.
// An empty errorType searches all fixes.
func (r *Retriever) SearchErrorFixesOfType(ctx context.Context, errorText string, errorType knowledge.ErrorType, n int) (*Result, error) {
	var where map[string]string
	if errorType != "" {
		where = map[string]string{knowledge.FieldErrorType: string(knowledge.ParseErrorType(string(errorType)))}
	}
	n = r.limit(n)
	return r.search(ctx, knowledge.CollectionFixes, errorText, n, n*fixPoolFactor, where, r.scoreFix)
}

func (r *Retriever) scoreFix(h *Hit) {
	rate := 0.0
	if m, ok := h.Meta.(knowledge.FixMeta); ok {
		rate = m.SuccessRate
	}
	h.Score = round2(r.simWeight*h.Similarity + r.rateWeight*rate)
}

// SearchCodePatterns ranks code patterns against a task description. A
// non-empty patternType restricts candidates to that type before ranking.
func (r *Retriever) SearchCodePatterns(ctx context.Context, description string, patternType knowledge.PatternType, n int) (*Result, error) {
	var where map[string]string
	if patternType != "" {
		pt := knowledge.ParsePatternType(string(patternType))
		if !patternType.Valid() {
			r.logger.Warn("unknown pattern type, searching as other",
				zap.String("pattern_type", string(patternType)))
		}
		where = map[string]string{knowledge.FieldPatternType: string(pt)}
	}
	n = r.limit(n)
	return r.search(ctx, knowledge.CollectionPatterns, description, n, n, where, nil)
}

// SearchTestPlans ranks test plan templates against a scenario. A non-empty
// planType restricts candidates to that type before ranking.
func (r *Retriever) SearchTestPlans(ctx context.Context, scenario string, planType knowledge.PlanType, n int) (*Result, error) {
	var where map[string]string
	if planType != "" {
		pt := knowledge.ParsePlanType(string(planType))
		if !planType.Valid() {
			r.logger.Warn("unknown plan type, searching as other",
				zap.String("plan_type", string(planType)))
		}
		where = map[string]string{knowledge.FieldPlanType: string(pt)}
	}
	n = r.limit(n)
	return r.search(ctx, knowledge.CollectionPlans, scenario, n, n, where, nil)
}

// AppQuery is a lookup of cached UI exploration. When Action is empty it
// is inferred from the verbs in Text; Module is optional.
type AppQuery struct {
	Text   string
	Action knowledge.Action
	Module string
}

// SearchApplicationKnowledge looks up cached explorations. Only records
// whose action equals the query action are candidates, so a cached create
// flow never answers a delete query. Each hit carries a tier and the
// result tier is that of the best hit.
//
// When neither q.Action nor the query text names an action, hits tagged
// with a concrete action are still returned but demoted to TierNone: they
// cannot be trusted to describe the flow being asked about.
func (r *Retriever) SearchApplicationKnowledge(ctx context.Context, q AppQuery, n int) (*Result, error) {
	where := map[string]string{}
	action := q.Action
	if action == "" {
		if inferred, ok := knowledge.InferAction(q.Text); ok {
			action = inferred
		}
	}
	if action != "" {
		where[knowledge.FieldAction] = string(knowledge.ParseAction(string(action)))
	}
	if m := strings.TrimSpace(q.Module); m != "" {
		where[knowledge.FieldModule] = m
	}
	if len(where) == 0 {
		where = nil
	}
	var demote func(*Hit)
	if action == "" {
		demote = demoteActionTagged
	}
	n = r.limit(n)
	res, err := r.search(ctx, knowledge.CollectionApplication, q.Text, n, n, where, demote)
	if err != nil {
		return nil, err
	}
	r.metrics.ObserveTier(string(res.Tier))
	r.logger.Debug("application knowledge tier",
		zap.String("tier", string(res.Tier)),
		zap.String("action", string(action)),
		zap.Int("hits", len(res.Hits)))
	return res, nil
}

// demoteActionTagged drops a hit to TierNone unless its action is other.
func demoteActionTagged(h *Hit) {
	if m, ok := h.Meta.(knowledge.AppMeta); ok && m.Action != knowledge.ActionOther {
		h.Tier = TierNone
	}
}

func (r *Retriever) limit(n int) int {
	if n <= 0 {
		return r.defaultResults
	}
	return n
}

// search queries pool candidates, drops those below the floor, scores,
// sorts and truncates to n.
func (r *Retriever) search(ctx context.Context, c knowledge.Collection, text string, n, pool int, where map[string]string, score func(*Hit)) (*Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	start := time.Now()
	raw, err := r.store.Query(ctx, string(c), text, pool, where)
	if err != nil {
		r.metrics.ObserveSearch(string(c), string(StatusUnavailable), time.Since(start))
		r.logger.Warn("knowledge search failed", zap.String("collection", string(c)), zap.Error(err))
		return nil, fmt.Errorf("%w: searching %s: %w", ErrUnavailable, c, err)
	}

	hits := make([]Hit, 0, len(raw))
	for _, h := range raw {
		sim := round2(h.Similarity)
		if sim < r.thresholds.Floor {
			continue
		}
		meta, err := knowledge.DecodeMetadata(c, h.Metadata)
		if err != nil {
			return nil, err
		}
		hit := Hit{
			ID:         h.ID,
			Text:       h.Text,
			Meta:       meta,
			Similarity: sim,
			Score:      sim,
			Tier:       r.thresholds.Classify(sim),
		}
		if score != nil {
			score(&hit)
		}
		hits = append(hits, hit)
	}
	sortHits(hits)
	if len(hits) > n {
		hits = hits[:n]
	}

	res := &Result{Collection: c, Query: text, Status: StatusNoMatches, Tier: TierNone, Hits: hits}
	if len(hits) > 0 {
		res.Status = StatusMatches
		res.Tier = hits[0].Tier
		for _, h := range hits[1:] {
			if h.Tier.rank() > res.Tier.rank() {
				res.Tier = h.Tier
			}
		}
	}

	r.metrics.ObserveSearch(string(c), string(res.Status), time.Since(start))
	r.logger.Info("knowledge search",
		zap.String("collection", string(c)),
		zap.String("status", string(res.Status)),
		zap.Int("candidates", len(raw)),
		zap.Int("hits", len(hits)))
	return res, nil
}

// sortHits orders by score, then similarity, then newer timestamp, then id.
func sortHits(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		ta, tb := a.Meta.Time(), b.Meta.Time()
		if !ta.Equal(tb) {
			return ta.After(tb)
		}
		return a.ID < b.ID
	})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// FixInput is a fix that passed re-verification. Unknown error types are
// stored as other and SuccessRate is clamped to [0,100].
type FixInput struct {
	ErrorMessage string
	FixApplied   string
	ErrorType    knowledge.ErrorType
	TestFile     string
	SuccessRate  float64
}

// StoreSuccessfulFix stores a fix and returns its record ID.
func (r *Retriever) StoreSuccessfulFix(ctx context.Context, in FixInput) (string, error) {
	return r.add(ctx, knowledge.Record{
		Text: in.ErrorMessage,
		Meta: knowledge.FixMeta{
			ErrorType:   knowledge.ParseErrorType(string(in.ErrorType)),
			FixApplied:  in.FixApplied,
			SuccessRate: knowledge.ClampSuccessRate(in.SuccessRate),
			TestFile:    in.TestFile,
		},
	}, journal.KindStored)
}

// PatternInput is a reusable code snippet and its description.
type PatternInput struct {
	Description string
	Code        string
	PatternType knowledge.PatternType
	Language    string
}

// StoreCodePattern stores a code pattern and returns its record ID.
func (r *Retriever) StoreCodePattern(ctx context.Context, in PatternInput) (string, error) {
	lang := in.Language
	if lang == "" {
		lang = "typescript"
	}
	return r.add(ctx, knowledge.Record{
		Text: knowledge.PatternText(in.Description, in.Code),
		Meta: knowledge.PatternMeta{
			PatternType: knowledge.ParsePatternType(string(in.PatternType)),
			Language:    lang,
		},
	}, journal.KindStored)
}

// PlanInput is a test plan template.
type PlanInput struct {
	Scenario string
	Steps    string
	PlanType knowledge.PlanType
}

// StoreTestPlan stores a test plan and returns its record ID.
func (r *Retriever) StoreTestPlan(ctx context.Context, in PlanInput) (string, error) {
	return r.add(ctx, knowledge.Record{
		Text: knowledge.PlanText(in.Scenario, in.Steps),
		Meta: knowledge.PlanMeta{
			PlanType: knowledge.ParsePlanType(string(in.PlanType)),
			Scenario: in.Scenario,
		},
	}, journal.KindStored)
}

// AppInput is the narrative of a completed UI exploration.
type AppInput struct {
	Scenario  string
	Action    knowledge.Action
	Module    string
	Narrative string
}

// StoreApplicationKnowledge caches an exploration. An unknown action is
// stored as other, which no create/edit/delete/view/navigate query matches.
func (r *Retriever) StoreApplicationKnowledge(ctx context.Context, in AppInput) (string, error) {
	return r.add(ctx, knowledge.Record{
		Text: knowledge.AppText(in.Scenario, in.Narrative),
		Meta: knowledge.AppMeta{
			Scenario: in.Scenario,
			Action:   knowledge.ParseAction(string(in.Action)),
			Module:   strings.TrimSpace(in.Module),
		},
	}, journal.KindStored)
}

func (r *Retriever) add(ctx context.Context, rec knowledge.Record, kind journal.Kind) (string, error) {
	if strings.TrimSpace(rec.Text) == "" {
		return "", ErrEmptyText
	}
	c := rec.Collection()
	meta := withTimestamp(rec.Meta, r.stamp())

	id, err := r.store.Add(ctx, string(c), rec.Text, meta.Fields())
	r.metrics.ObserveStore(string(c), err)
	if err != nil {
		r.logger.Warn("storing knowledge failed", zap.String("collection", string(c)), zap.Error(err))
		return "", fmt.Errorf("%w: storing into %s: %w", ErrUnavailable, c, err)
	}

	if r.journal != nil {
		seq, err := r.journal.Append(ctx, journal.Entry{
			RecordID:   id,
			Collection: string(c),
			Kind:       kind,
			Summary:    rec.Text,
			Label:      label(meta),
			CreatedAt:  meta.Time(),
		})
		if err != nil {
			r.logger.Warn("journal append failed", zap.String("record_id", id), zap.Error(err))
		} else {
			r.logger.Debug("journaled record", zap.String("record_id", id), zap.Int64("seq", seq))
		}
	}

	r.logger.Info("stored knowledge record",
		zap.String("collection", string(c)),
		zap.String("id", id),
		zap.String("kind", string(kind)))
	return id, nil
}

// stamp returns a UTC timestamp strictly after the previous one, so stored
// timestamps follow insertion order even if the clock stalls or steps back.
func (r *Retriever) stamp() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.now().UTC()
	if !t.After(r.last) {
		t = r.last.Add(time.Nanosecond)
	}
	r.last = t
	return t
}

func withTimestamp(m knowledge.Metadata, t time.Time) knowledge.Metadata {
	switch v := m.(type) {
	case knowledge.FixMeta:
		v.Timestamp = t
		return v
	case knowledge.PatternMeta:
		v.Timestamp = t
		return v
	case knowledge.PlanMeta:
		v.Timestamp = t
		return v
	case knowledge.AppMeta:
		v.Timestamp = t
		return v
	}
	return m
}

// label is a short journal tag per record.
func label(m knowledge.Metadata) string {
	switch v := m.(type) {
	case knowledge.FixMeta:
		if v.TestFile != "" {
			return string(v.ErrorType) + " " + v.TestFile
		}
		return string(v.ErrorType)
	case knowledge.PatternMeta:
		return string(v.PatternType) + "/" + v.Language
	case knowledge.PlanMeta:
		return string(v.PlanType)
	case knowledge.AppMeta:
		if v.Module != "" {
			return v.Module + "/" + string(v.Action)
		}
		return string(v.Action)
	}
	return ""
}

// Stats returns the record count of every collection.
func (r *Retriever) Stats(ctx context.Context) (map[knowledge.Collection]int, error) {
	out := make(map[knowledge.Collection]int, 4)
	for _, c := range knowledge.Collections() {
		n, err := r.store.Count(ctx, string(c))
		if err != nil {
			return nil, fmt.Errorf("%w: counting %s: %w", ErrUnavailable, c, err)
		}
		out[c] = n
		r.metrics.SetRecords(string(c), n)
	}
	return out, nil
}
