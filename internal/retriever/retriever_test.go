package retriever

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/ziadkadry99/testkb/internal/embeddings"
	"github.com/ziadkadry99/testkb/internal/journal"
	"github.com/ziadkadry99/testkb/internal/knowledge"
	"github.com/ziadkadry99/testkb/internal/logging"
	"github.com/ziadkadry99/testkb/internal/vectordb"
)

func newMemoryRetriever(t *testing.T, opts ...Option) (*Retriever, *vectordb.MemoryStore) {
	t.Helper()
	store := vectordb.NewMemoryStore(embeddings.NewLocalEmbedder(384))
	r, err := New(context.Background(), store, opts...)
	require.NoError(t, err)
	return r, store
}

// fixedStore returns canned hits so scores can be controlled exactly.
type fixedStore struct {
	hits      []vectordb.Hit
	lastN     int
	lastWhere map[string]string
}

func (s *fixedStore) EnsureCollection(context.Context, string) error { return nil }
func (s *fixedStore) Add(context.Context, string, string, map[string]string) (string, error) {
	return "fixed-id", nil
}
func (s *fixedStore) Query(_ context.Context, _, _ string, n int, where map[string]string) ([]vectordb.Hit, error) {
	s.lastN, s.lastWhere = n, where
	var out []vectordb.Hit
	for _, h := range s.hits {
		ok := true
		for k, v := range where {
			if h.Metadata[k] != v {
				ok = false
			}
		}
		if ok {
			out = append(out, h)
		}
	}
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}
func (s *fixedStore) Count(context.Context, string) (int, error) { return len(s.hits), nil }
func (s *fixedStore) Collections(context.Context) ([]string, error) {
	return nil, nil
}
func (s *fixedStore) Close() error { return nil }

// brokenStore accepts collection setup and fails everything else.
type brokenStore struct{ fixedStore }

var errBackendDown = errors.New("backend down")

func (s *brokenStore) Add(context.Context, string, string, map[string]string) (string, error) {
	return "", errBackendDown
}
func (s *brokenStore) Query(context.Context, string, string, int, map[string]string) ([]vectordb.Hit, error) {
	return nil, errBackendDown
}
func (s *brokenStore) Count(context.Context, string) (int, error) { return 0, errBackendDown }

type recordingJournal struct {
	mu      sync.Mutex
	entries []journal.Entry
	err     error
}

func (j *recordingJournal) Append(_ context.Context, e journal.Entry) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return 0, j.err
	}
	j.entries = append(j.entries, e)
	return int64(len(j.entries)), nil
}

func TestNew_EnsuresCollections(t *testing.T) {
	_, store := newMemoryRetriever(t)
	names, err := store.Collections(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"test_fixes", "code_patterns", "test_plans", "application_knowledge"}, names)

	// A second retriever over the same store must not fail or duplicate.
	_, err = New(context.Background(), store)
	require.NoError(t, err)
	names, err = store.Collections(context.Background())
	require.NoError(t, err)
	assert.Len(t, names, 4)
}

func TestNew_RejectsBadSettings(t *testing.T) {
	store := vectordb.NewMemoryStore(embeddings.NewLocalEmbedder(64))
	_, err := New(context.Background(), store, WithThresholds(Thresholds{Exact: 50, Partial: 60, Floor: 10}))
	assert.Error(t, err)
	_, err = New(context.Background(), store, WithFixWeights(0, 0))
	assert.Error(t, err)
	_, err = New(context.Background(), store, WithFixWeights(-1, 2))
	assert.Error(t, err)
}

func TestStore_CountGrows(t *testing.T) {
	r, _ := newMemoryRetriever(t)
	ctx := context.Background()

	before, err := r.Stats(ctx)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := r.StoreSuccessfulFix(ctx, FixInput{ErrorMessage: "timeout waiting for selector", FixApplied: "wait", ErrorType: knowledge.ErrorTimeout})
		require.NoError(t, err)
	}
	_, err = r.StoreCodePattern(ctx, PatternInput{Description: "fill login form", Code: "await page.fill()", PatternType: knowledge.PatternForm})
	require.NoError(t, err)
	_, err = r.StoreTestPlan(ctx, PlanInput{Scenario: "login smoke", Steps: "1. open", PlanType: knowledge.PlanSmoke})
	require.NoError(t, err)
	_, err = r.StoreApplicationKnowledge(ctx, AppInput{Scenario: "create account", Action: knowledge.ActionCreate, Narrative: "click New"})
	require.NoError(t, err)

	after, err := r.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, before[knowledge.CollectionFixes]+3, after[knowledge.CollectionFixes])
	assert.Equal(t, before[knowledge.CollectionPatterns]+1, after[knowledge.CollectionPatterns])
	assert.Equal(t, before[knowledge.CollectionPlans]+1, after[knowledge.CollectionPlans])
	assert.Equal(t, before[knowledge.CollectionApplication]+1, after[knowledge.CollectionApplication])
}

func TestFixRoundTrip(t *testing.T) {
	r, _ := newMemoryRetriever(t)
	ctx := context.Background()

	id, err := r.StoreSuccessfulFix(ctx, FixInput{
		ErrorMessage: "X",
		FixApplied:   "Y",
		ErrorType:    "locator",
		TestFile:     "t.spec",
		SuccessRate:  DefaultSuccessRate,
	})
	require.NoError(t, err)

	res, err := r.SearchErrorFixes(ctx, "X", 3)
	require.NoError(t, err)
	require.Equal(t, StatusMatches, res.Status)
	require.NotEmpty(t, res.Hits)

	top := res.Hits[0]
	assert.Equal(t, id, top.ID)
	meta, ok := top.Meta.(knowledge.FixMeta)
	require.True(t, ok)
	assert.Equal(t, "Y", meta.FixApplied)
	assert.Equal(t, knowledge.ErrorLocator, meta.ErrorType)
	assert.Equal(t, "t.spec", meta.TestFile)
	assert.Equal(t, 100.0, top.Similarity)
	assert.False(t, meta.Timestamp.IsZero())
}

func TestStoreSuccessfulFix_CoercesAndClamps(t *testing.T) {
	r, _ := newMemoryRetriever(t)
	ctx := context.Background()

	_, err := r.StoreSuccessfulFix(ctx, FixInput{ErrorMessage: "weird failure", FixApplied: "retry", ErrorType: "cosmic-ray", SuccessRate: 250})
	require.NoError(t, err)

	res, err := r.SearchErrorFixes(ctx, "weird failure", 1)
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	meta := res.Hits[0].Meta.(knowledge.FixMeta)
	assert.Equal(t, knowledge.ErrorOther, meta.ErrorType)
	assert.Equal(t, 100.0, meta.SuccessRate)
}

func TestStore_EmptyTextRejected(t *testing.T) {
	r, _ := newMemoryRetriever(t)
	_, err := r.StoreSuccessfulFix(context.Background(), FixInput{ErrorMessage: "  "})
	assert.ErrorIs(t, err, ErrEmptyText)
	_, err = r.SearchCodePatterns(context.Background(), "", "", 3)
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestSearchCodePatterns_EmptyCollection(t *testing.T) {
	r, _ := newMemoryRetriever(t)

	res, err := r.SearchCodePatterns(context.Background(), "fill a form and submit", "", 3)
	require.NoError(t, err)
	assert.Equal(t, StatusNoMatches, res.Status)
	assert.Equal(t, TierNone, res.Tier)
	assert.NotNil(t, res.Hits)
	assert.Empty(t, res.Hits)
}

func TestSearchCodePatterns_TypeFilter(t *testing.T) {
	r, _ := newMemoryRetriever(t)
	ctx := context.Background()

	_, err := r.StoreCodePattern(ctx, PatternInput{Description: "wait for the spinner to disappear", PatternType: knowledge.PatternWait})
	require.NoError(t, err)
	_, err = r.StoreCodePattern(ctx, PatternInput{Description: "wait for the spinner to disappear then click", PatternType: knowledge.PatternForm})
	require.NoError(t, err)

	res, err := r.SearchCodePatterns(ctx, "wait for the spinner to disappear", knowledge.PatternForm, 5)
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, knowledge.PatternForm, res.Hits[0].Meta.(knowledge.PatternMeta).PatternType)
	assert.Equal(t, "typescript", res.Hits[0].Meta.(knowledge.PatternMeta).Language)
}

func TestSearchCodePatterns_UnknownTypeWarns(t *testing.T) {
	obs := logging.NewObserved()
	r, _ := newMemoryRetriever(t, WithLogger(obs.Logger))

	res, err := r.SearchCodePatterns(context.Background(), "anything at all", "bogus", 3)
	require.NoError(t, err)
	assert.Empty(t, res.Hits)
	obs.AssertLogged(t, zapcore.WarnLevel, "unknown pattern type")
}

func TestSearchTestPlans_TypeFilter(t *testing.T) {
	r, _ := newMemoryRetriever(t)
	ctx := context.Background()
	_, err := r.Seed(ctx, mustSeed(t), nil)
	require.NoError(t, err)

	res, err := r.SearchTestPlans(ctx, "create a new record and verify it", knowledge.PlanCRUD, 10)
	require.NoError(t, err)
	for _, h := range res.Hits {
		assert.Equal(t, knowledge.PlanCRUD, h.Meta.(knowledge.PlanMeta).PlanType)
	}
}

func TestSearch_OrderingAndLimit(t *testing.T) {
	r, _ := newMemoryRetriever(t)
	ctx := context.Background()
	_, err := r.Seed(ctx, mustSeed(t), nil)
	require.NoError(t, err)

	queries := map[knowledge.Collection]func(n int) (*Result, error){
		knowledge.CollectionFixes: func(n int) (*Result, error) {
			return r.SearchErrorFixes(ctx, "locator getByRole button not found timeout", n)
		},
		knowledge.CollectionPatterns: func(n int) (*Result, error) {
			return r.SearchCodePatterns(ctx, "fill the form fields and click submit", "", n)
		},
		knowledge.CollectionPlans: func(n int) (*Result, error) {
			return r.SearchTestPlans(ctx, "smoke test the login page", "", n)
		},
	}
	for c, query := range queries {
		t.Run(string(c), func(t *testing.T) {
			for _, n := range []int{1, 2, 50} {
				res, err := query(n)
				require.NoError(t, err)
				assert.LessOrEqual(t, len(res.Hits), n)
				for i := 1; i < len(res.Hits); i++ {
					assert.GreaterOrEqual(t, res.Hits[i-1].Score, res.Hits[i].Score)
				}
				if c != knowledge.CollectionFixes {
					for _, h := range res.Hits {
						assert.Equal(t, h.Similarity, h.Score)
					}
				}
				for _, h := range res.Hits {
					assert.GreaterOrEqual(t, h.Similarity, DefaultThresholds().Floor)
					assert.LessOrEqual(t, h.Similarity, 100.0)
				}
			}
		})
	}
}

func TestSearchApplicationKnowledge_ActionMismatch(t *testing.T) {
	r, _ := newMemoryRetriever(t)
	ctx := context.Background()

	narrative := "Open Accounts tab, click New, fill Account Name, click Save"
	_, err := r.StoreApplicationKnowledge(ctx, AppInput{
		Scenario:  "Account management",
		Action:    knowledge.ActionCreate,
		Module:    "Accounts",
		Narrative: narrative,
	})
	require.NoError(t, err)

	text := knowledge.AppText("Account management", narrative)

	res, err := r.SearchApplicationKnowledge(ctx, AppQuery{Text: text, Action: knowledge.ActionDelete}, 3)
	require.NoError(t, err)
	assert.Empty(t, res.Hits)
	assert.Equal(t, StatusNoMatches, res.Status)
	assert.Equal(t, TierNone, res.Tier)

	res, err = r.SearchApplicationKnowledge(ctx, AppQuery{Text: text, Action: knowledge.ActionCreate}, 3)
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, TierExact, res.Tier)
	assert.Equal(t, TierExact, res.Hits[0].Tier)
}

func TestSearchApplicationKnowledge_InfersAction(t *testing.T) {
	r, _ := newMemoryRetriever(t)
	ctx := context.Background()

	_, err := r.StoreApplicationKnowledge(ctx, AppInput{
		Scenario:  "create account",
		Action:    knowledge.ActionCreate,
		Module:    "Accounts",
		Narrative: "click New then Save",
	})
	require.NoError(t, err)

	res, err := r.SearchApplicationKnowledge(ctx, AppQuery{Text: "delete account"}, 3)
	require.NoError(t, err)
	assert.Empty(t, res.Hits)

	text := knowledge.AppText("create account", "click New then Save")
	res, err = r.SearchApplicationKnowledge(ctx, AppQuery{Text: text, Module: "Contacts"}, 3)
	require.NoError(t, err)
	assert.Empty(t, res.Hits)

	res, err = r.SearchApplicationKnowledge(ctx, AppQuery{Text: text, Module: "Accounts"}, 3)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Hits)
}

func TestSearchApplicationKnowledge_InflectedAndMixedVerbs(t *testing.T) {
	r, _ := newMemoryRetriever(t)
	ctx := context.Background()

	createNarrative := "Open Accounts tab, click New, fill Account Name, click Save"
	_, err := r.StoreApplicationKnowledge(ctx, AppInput{
		Scenario:  "Create account in Salesforce via Accounts",
		Action:    knowledge.ActionCreate,
		Module:    "Accounts",
		Narrative: createNarrative,
	})
	require.NoError(t, err)
	viewScenario := "view new account list in Salesforce"
	viewNarrative := "Open Accounts tab, pick the Recently Viewed list"
	_, err = r.StoreApplicationKnowledge(ctx, AppInput{
		Scenario:  viewScenario,
		Action:    knowledge.ActionView,
		Module:    "Accounts",
		Narrative: viewNarrative,
	})
	require.NoError(t, err)

	for _, query := range []string{
		"Deleted account in Salesforce via Accounts",
		"Removes account in Salesforce",
		"deleting an account from the Accounts tab",
	} {
		res, err := r.SearchApplicationKnowledge(ctx, AppQuery{Text: query}, 3)
		require.NoError(t, err, query)
		assert.Empty(t, res.Hits, query)
		assert.Equal(t, TierNone, res.Tier, query)
	}

	res, err := r.SearchApplicationKnowledge(ctx, AppQuery{Text: knowledge.AppText(viewScenario, viewNarrative)}, 3)
	require.NoError(t, err)
	require.NotEmpty(t, res.Hits)
	for _, h := range res.Hits {
		assert.Equal(t, knowledge.ActionView, h.Meta.(knowledge.AppMeta).Action)
	}
	assert.Equal(t, TierExact, res.Tier)
}

func TestSearchApplicationKnowledge_NoActionDemotesTaggedHits(t *testing.T) {
	other := appHit("other", 97)
	other.Metadata = map[string]string{
		knowledge.FieldAction:    "other",
		knowledge.FieldScenario:  "accounts",
		knowledge.FieldTimestamp: "2025-01-01T00:00:00Z",
	}
	store := &fixedStore{hits: []vectordb.Hit{appHit("nav", 95), other}}
	r, err := New(context.Background(), store)
	require.NoError(t, err)

	res, err := r.SearchApplicationKnowledge(context.Background(), AppQuery{Text: "accounts list"}, 5)
	require.NoError(t, err)
	assert.Nil(t, store.lastWhere)
	require.Len(t, res.Hits, 2)
	tiers := map[string]Tier{}
	for _, h := range res.Hits {
		tiers[h.ID] = h.Tier
	}
	assert.Equal(t, TierNone, tiers["nav"])
	assert.Equal(t, TierExact, tiers["other"])

	store.hits = []vectordb.Hit{appHit("nav", 95)}
	res, err = r.SearchApplicationKnowledge(context.Background(), AppQuery{Text: "accounts list"}, 5)
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, TierNone, res.Tier)
	assert.Equal(t, StatusMatches, res.Status)

	res, err = r.SearchApplicationKnowledge(context.Background(), AppQuery{Text: "accounts list", Action: knowledge.ActionNavigate}, 5)
	require.NoError(t, err)
	assert.Equal(t, TierExact, res.Tier)
}

func TestSearchApplicationKnowledge_UnknownActionNeverMatchesKnown(t *testing.T) {
	r, _ := newMemoryRetriever(t)
	ctx := context.Background()

	_, err := r.StoreApplicationKnowledge(ctx, AppInput{Scenario: "archive account", Action: "archive", Narrative: "click Archive"})
	require.NoError(t, err)

	res, err := r.SearchApplicationKnowledge(ctx, AppQuery{Text: "archive account", Action: knowledge.ActionEdit}, 3)
	require.NoError(t, err)
	assert.Empty(t, res.Hits)

	res, err = r.SearchApplicationKnowledge(ctx, AppQuery{Text: knowledge.AppText("archive account", "click Archive"), Action: "archive"}, 3)
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, knowledge.ActionOther, res.Hits[0].Meta.(knowledge.AppMeta).Action)
}

func appHit(id string, sim float64) vectordb.Hit {
	return vectordb.Hit{
		ID:         id,
		Text:       "navigate to accounts",
		Similarity: sim,
		Metadata: map[string]string{
			knowledge.FieldAction:    "navigate",
			knowledge.FieldScenario:  "accounts",
			knowledge.FieldTimestamp: "2025-01-01T00:00:00Z",
		},
	}
}

func TestTierBoundaryDeterministic(t *testing.T) {
	tests := []struct {
		sim  float64
		want Tier
	}{
		{90, TierExact},
		{89.996, TierExact},
		{89.994, TierPartial},
		{60, TierPartial},
		{59.99, TierNone},
		{30, TierNone},
	}
	for _, tt := range tests {
		store := &fixedStore{hits: []vectordb.Hit{appHit("a", tt.sim)}}
		r, err := New(context.Background(), store)
		require.NoError(t, err)

		for run := 0; run < 5; run++ {
			res, err := r.SearchApplicationKnowledge(context.Background(), AppQuery{Text: "go to accounts", Action: knowledge.ActionNavigate}, 1)
			require.NoError(t, err)
			require.Len(t, res.Hits, 1, "sim %v", tt.sim)
			assert.Equal(t, tt.want, res.Tier, "sim %v", tt.sim)
		}
	}
}

func TestFloorDropsWeakHits(t *testing.T) {
	store := &fixedStore{hits: []vectordb.Hit{appHit("a", 29.99), appHit("b", 45)}}
	r, err := New(context.Background(), store)
	require.NoError(t, err)

	res, err := r.SearchApplicationKnowledge(context.Background(), AppQuery{Text: "accounts", Action: knowledge.ActionNavigate}, 5)
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "b", res.Hits[0].ID)
	assert.Equal(t, TierNone, res.Tier)
	assert.Equal(t, StatusMatches, res.Status)
}

func fixHit(id string, sim float64, rate string) vectordb.Hit {
	return vectordb.Hit{
		ID:         id,
		Text:       "locator not found",
		Similarity: sim,
		Metadata: map[string]string{
			knowledge.FieldErrorType:   "locator",
			knowledge.FieldFixApplied:  "fix " + id,
			knowledge.FieldSuccessRate: rate,
			knowledge.FieldTimestamp:   "2025-01-01T00:00:00Z",
		},
	}
}

func TestSearchErrorFixes_SuccessRateReranks(t *testing.T) {
	store := &fixedStore{hits: []vectordb.Hit{
		fixHit("unreliable", 80, "10"),
		fixHit("reliable", 70, "100"),
	}}
	r, err := New(context.Background(), store)
	require.NoError(t, err)

	res, err := r.SearchErrorFixes(context.Background(), "locator not found", 1)
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "reliable", res.Hits[0].ID)
	assert.Equal(t, 79.0, res.Hits[0].Score)
	assert.Equal(t, 70.0, res.Hits[0].Similarity)
	assert.Equal(t, 1*fixPoolFactor, store.lastN)
}

func TestSearchErrorFixes_WeightsNormalized(t *testing.T) {
	store := &fixedStore{hits: []vectordb.Hit{fixHit("a", 80, "40")}}
	r, err := New(context.Background(), store, WithFixWeights(1, 1))
	require.NoError(t, err)

	res, err := r.SearchErrorFixes(context.Background(), "x", 3)
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, 60.0, res.Hits[0].Score)
}

func TestSearchErrorFixesOfType_Filter(t *testing.T) {
	timeout := fixHit("t", 90, "100")
	timeout.Metadata[knowledge.FieldErrorType] = "timeout"
	store := &fixedStore{hits: []vectordb.Hit{fixHit("l", 95, "100"), timeout}}
	r, err := New(context.Background(), store)
	require.NoError(t, err)

	res, err := r.SearchErrorFixesOfType(context.Background(), "x", knowledge.ErrorTimeout, 3)
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "t", res.Hits[0].ID)
	assert.Equal(t, map[string]string{knowledge.FieldErrorType: "timeout"}, store.lastWhere)
}

func TestSortHits_TieBreak(t *testing.T) {
	older := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)
	hits := []Hit{
		{ID: "b", Similarity: 50, Score: 50, Meta: knowledge.PlanMeta{Timestamp: older}},
		{ID: "a", Similarity: 50, Score: 50, Meta: knowledge.PlanMeta{Timestamp: older}},
		{ID: "c", Similarity: 50, Score: 50, Meta: knowledge.PlanMeta{Timestamp: newer}},
		{ID: "d", Similarity: 70, Score: 50, Meta: knowledge.PlanMeta{Timestamp: older}},
		{ID: "e", Similarity: 10, Score: 60, Meta: knowledge.PlanMeta{Timestamp: older}},
	}
	sortHits(hits)

	var ids []string
	for _, h := range hits {
		ids = append(ids, h.ID)
	}
	assert.Equal(t, []string{"e", "d", "c", "a", "b"}, ids)
}

func TestUnavailable(t *testing.T) {
	obs := logging.NewObserved()
	r, err := New(context.Background(), &brokenStore{}, WithLogger(obs.Logger))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = r.SearchErrorFixes(ctx, "locator not found", 3)
	require.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, errBackendDown)
	obs.AssertLogged(t, zapcore.WarnLevel, "knowledge search failed")

	_, err = r.SearchApplicationKnowledge(ctx, AppQuery{Text: "create account"}, 3)
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = r.StoreTestPlan(ctx, PlanInput{Scenario: "s", PlanType: knowledge.PlanSmoke})
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = r.Stats(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)

	msg := FormatError(err)
	assert.Contains(t, msg, "unavailable")
	assert.NotEqual(t, Format(&Result{Collection: knowledge.CollectionFixes, Status: StatusNoMatches}), msg)
}

func TestNew_EnsureFailureIsFatal(t *testing.T) {
	_, err := New(context.Background(), failingEnsureStore{&fixedStore{}})
	assert.Error(t, err)
}

type failingEnsureStore struct{ *fixedStore }

func (failingEnsureStore) EnsureCollection(context.Context, string) error {
	return errBackendDown
}

func TestTimestampsStrictlyIncrease(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	j := &recordingJournal{}
	r, _ := newMemoryRetriever(t, WithClock(func() time.Time { return fixed }), WithJournal(j))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := r.StoreTestPlan(ctx, PlanInput{Scenario: "plan", PlanType: knowledge.PlanE2E})
		require.NoError(t, err)
	}

	require.Len(t, j.entries, 5)
	for i := 1; i < len(j.entries); i++ {
		assert.True(t, j.entries[i].CreatedAt.After(j.entries[i-1].CreatedAt))
	}
	assert.Equal(t, fixed, j.entries[0].CreatedAt)
	assert.Equal(t, journal.KindStored, j.entries[0].Kind)
	assert.Equal(t, "test_plans", j.entries[0].Collection)
	assert.Equal(t, "e2e", j.entries[0].Label)
}

func TestJournalFailureDoesNotFailStore(t *testing.T) {
	obs := logging.NewObserved()
	r, _ := newMemoryRetriever(t, WithJournal(&recordingJournal{err: errors.New("disk full")}), WithLogger(obs.Logger))

	id, err := r.StoreCodePattern(context.Background(), PatternInput{Description: "click save", PatternType: knowledge.PatternForm})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	obs.AssertLogged(t, zapcore.WarnLevel, "journal append failed")
}

func mustSeed(t *testing.T) map[knowledge.Collection][]knowledge.Record {
	t.Helper()
	seed, err := knowledge.Seed()
	require.NoError(t, err)
	return seed
}

func TestSeed_Idempotent(t *testing.T) {
	j := &recordingJournal{}
	r, _ := newMemoryRetriever(t, WithJournal(j))
	ctx := context.Background()

	loaded, err := r.Seed(ctx, mustSeed(t), nil)
	require.NoError(t, err)
	assert.Equal(t, 12, loaded[knowledge.CollectionFixes])

	stats, err := r.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, stats[knowledge.CollectionFixes])
	assert.Equal(t, 5, stats[knowledge.CollectionPatterns])
	assert.Equal(t, 4, stats[knowledge.CollectionPlans])
	assert.Equal(t, 1, stats[knowledge.CollectionApplication])
	assert.Len(t, j.entries, 22)
	for _, e := range j.entries {
		assert.Equal(t, journal.KindSeeded, e.Kind)
	}

	loaded, err = r.Seed(ctx, mustSeed(t), nil)
	require.NoError(t, err)
	assert.Empty(t, loaded)

	again, err := r.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, stats, again)
}

func TestSeed_OnlyEmptyCollections(t *testing.T) {
	r, _ := newMemoryRetriever(t)
	ctx := context.Background()

	_, err := r.StoreSuccessfulFix(ctx, FixInput{ErrorMessage: "my own fix", FixApplied: "x", SuccessRate: 50})
	require.NoError(t, err)

	loaded, err := r.Seed(ctx, mustSeed(t), nil)
	require.NoError(t, err)
	assert.NotContains(t, loaded, knowledge.CollectionFixes)
	assert.Equal(t, 5, loaded[knowledge.CollectionPatterns])

	stats, err := r.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats[knowledge.CollectionFixes])
}

type countingReporter struct {
	mu         sync.Mutex
	total, inc int
	finished   bool
}

func (c *countingReporter) Start(total int) { c.total = total }
func (c *countingReporter) Increment(string) {
	c.mu.Lock()
	c.inc++
	c.mu.Unlock()
}
func (c *countingReporter) Finish() { c.finished = true }

func TestSeed_ReportsProgress(t *testing.T) {
	r, _ := newMemoryRetriever(t)
	rep := &countingReporter{}

	_, err := r.Seed(context.Background(), mustSeed(t), rep)
	require.NoError(t, err)
	assert.Equal(t, 22, rep.total)
	assert.Equal(t, 22, rep.inc)
	assert.True(t, rep.finished)
}

func TestFormat(t *testing.T) {
	r, _ := newMemoryRetriever(t)
	ctx := context.Background()

	empty, err := r.SearchErrorFixes(ctx, "nothing stored yet", 3)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(Format(empty), "No similar errors found"))

	_, err = r.StoreSuccessfulFix(ctx, FixInput{
		ErrorMessage: "locator('#save') not found",
		FixApplied:   "use getByRole('button', { name: 'Save' })",
		ErrorType:    knowledge.ErrorLocator,
		SuccessRate:  90,
	})
	require.NoError(t, err)
	res, err := r.SearchErrorFixes(ctx, "locator('#save') not found", 3)
	require.NoError(t, err)
	out := Format(res)
	assert.Contains(t, out, "[LOCATOR] Success: 90% | Match: 100%")
	assert.Contains(t, out, "Fix: use getByRole")

	_, err = r.StoreApplicationKnowledge(ctx, AppInput{Scenario: "view account", Action: knowledge.ActionView, Module: "Accounts", Narrative: "open record"})
	require.NoError(t, err)
	app, err := r.SearchApplicationKnowledge(ctx, AppQuery{Text: knowledge.AppText("view account", "open record"), Action: knowledge.ActionView}, 3)
	require.NoError(t, err)
	out = Format(app)
	assert.True(t, strings.HasPrefix(out, "EXACT match"))
	assert.Contains(t, out, "[ACCOUNTS - view] EXACT")

	stats, err := r.Stats(ctx)
	require.NoError(t, err)
	assert.Contains(t, FormatStats(stats), "- test_fixes: 1 items")
}

func TestHitMarshalJSON(t *testing.T) {
	h := Hit{ID: "1", Text: "t", Meta: knowledge.PatternMeta{PatternType: knowledge.PatternWait, Language: "go"}, Similarity: 75.5, Score: 75.5, Tier: TierPartial}
	data, err := h.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"1","text":"t","metadata":{"pattern_type":"wait","language":"go","timestamp":""},"similarity":75.5,"score":75.5,"tier":"PARTIAL"}`, string(data))
}
