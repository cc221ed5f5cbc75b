package knowledge

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVocabularies(t *testing.T) {
	assert.Equal(t, ErrorLocator, ParseErrorType("locator"))
	assert.Equal(t, ErrorTimeout, ParseErrorType("  TIMEOUT "))
	assert.Equal(t, ErrorOther, ParseErrorType("flaky"))
	assert.Equal(t, ErrorOther, ParseErrorType(""))

	assert.Equal(t, PatternForm, ParsePatternType("Form"))
	assert.Equal(t, PatternOther, ParsePatternType("graphql"))

	assert.Equal(t, PlanE2E, ParsePlanType("e2e"))
	assert.Equal(t, PlanOther, ParsePlanType("load"))

	assert.Equal(t, ActionDelete, ParseAction("delete"))
	assert.Equal(t, ActionOther, ParseAction("archive"))

	assert.True(t, ActionNavigate.Valid())
	assert.False(t, Action("archive").Valid())
	assert.True(t, ErrorOther.Valid())
}

func TestInferAction(t *testing.T) {
	tests := []struct {
		text string
		want Action
		ok   bool
	}{
		{"Create a new account in Salesforce", ActionCreate, true},
		{"delete account", ActionDelete, true},
		{"Deleted account in Salesforce via Accounts", ActionDelete, true},
		{"Deleting the contact", ActionDelete, true},
		{"Removes account in Salesforce", ActionDelete, true},
		{"account removal flow", ActionDelete, true},
		{"view and then remove the contact", ActionView, true},
		{"remove and then view the contact", ActionDelete, true},
		{"view new account list in Salesforce", ActionView, true},
		{"Update the phone number", ActionEdit, true},
		{"modified the billing address", ActionEdit, true},
		{"modifies the owner", ActionEdit, true},
		{"Added a contact", ActionCreate, true},
		{"creating an opportunity", ActionCreate, true},
		{"open the opportunity record", ActionView, true},
		{"displayed account details", ActionView, true},
		{"navigate to reports", ActionNavigate, true},
		{"goes to the reports tab", ActionNavigate, true},
		{"new account", "", false},
		{"shipping address field", "", false},
		{"accounts list page", "", false},
	}
	for _, tt := range tests {
		got, ok := InferAction(tt.text)
		assert.Equal(t, tt.ok, ok, tt.text)
		assert.Equal(t, tt.want, got, tt.text)
	}
}

func TestParseCollection(t *testing.T) {
	for in, want := range map[string]Collection{
		"fixes":                 CollectionFixes,
		"code_patterns":         CollectionPatterns,
		"Plans":                 CollectionPlans,
		"app":                   CollectionApplication,
		"application_knowledge": CollectionApplication,
	} {
		got, err := ParseCollection(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseCollection("logs")
	assert.Error(t, err)
}

func TestClampSuccessRate(t *testing.T) {
	assert.Equal(t, 0.0, ClampSuccessRate(-5))
	assert.Equal(t, 42.5, ClampSuccessRate(42.5))
	assert.Equal(t, 100.0, ClampSuccessRate(250))
	assert.Equal(t, 0.0, ClampSuccessRate(math.NaN()))
}

func TestMetadataFieldsRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 123, time.UTC)
	metas := []Metadata{
		FixMeta{ErrorType: ErrorLocator, FixApplied: "use getByRole", SuccessRate: 87.5, TestFile: "login.spec.ts", Timestamp: ts},
		PatternMeta{PatternType: PatternWait, Language: "typescript", Timestamp: ts},
		PlanMeta{PlanType: PlanCRUD, Scenario: "contacts", Timestamp: ts},
		AppMeta{Scenario: "create account", Action: ActionCreate, Module: "accounts", Timestamp: ts},
	}
	for _, m := range metas {
		decoded, err := DecodeMetadata(m.Collection(), m.Fields())
		require.NoError(t, err)
		assert.Equal(t, m, decoded)
	}
}

func TestFieldsUseContractKeys(t *testing.T) {
	keys := func(m map[string]string) []string {
		out := make([]string, 0, len(m))
		for k := range m {
			out = append(out, k)
		}
		return out
	}
	assert.ElementsMatch(t, []string{"error_type", "fix_applied", "success_rate", "test_file", "timestamp"}, keys(FixMeta{}.Fields()))
	assert.ElementsMatch(t, []string{"pattern_type", "language", "timestamp"}, keys(PatternMeta{}.Fields()))
	assert.ElementsMatch(t, []string{"plan_type", "scenario", "timestamp"}, keys(PlanMeta{}.Fields()))
	assert.ElementsMatch(t, []string{"scenario", "action", "module", "timestamp"}, keys(AppMeta{}.Fields()))
}

func TestDecodeMetadataCoerces(t *testing.T) {
	m, err := DecodeMetadata(CollectionFixes, map[string]string{
		"error_type":   "weird",
		"success_rate": "140",
		"timestamp":    "2024-01-01",
	})
	require.NoError(t, err)
	fix := m.(FixMeta)
	assert.Equal(t, ErrorOther, fix.ErrorType)
	assert.Equal(t, 100.0, fix.SuccessRate)
	assert.Equal(t, 2024, fix.Timestamp.Year())

	m, err = DecodeMetadata(CollectionApplication, map[string]string{"action": "archive"})
	require.NoError(t, err)
	assert.Equal(t, ActionOther, m.(AppMeta).Action)

	_, err = DecodeMetadata("logs", nil)
	assert.Error(t, err)
}

func TestSeed(t *testing.T) {
	seed, err := Seed()
	require.NoError(t, err)

	assert.Len(t, seed[CollectionFixes], 12)
	assert.Len(t, seed[CollectionPatterns], 5)
	assert.Len(t, seed[CollectionPlans], 4)
	assert.Len(t, seed[CollectionApplication], 1)

	for c, records := range seed {
		for _, r := range records {
			assert.NotEmpty(t, r.Text, "empty text in %s", c)
			assert.Equal(t, c, r.Collection())
		}
	}
	for _, r := range seed[CollectionFixes] {
		fix := r.Meta.(FixMeta)
		assert.NotEqual(t, ErrorOther, fix.ErrorType, r.Text)
		assert.NotEmpty(t, fix.FixApplied)
		assert.True(t, fix.SuccessRate > 0 && fix.SuccessRate <= 100)
	}
	app := seed[CollectionApplication][0].Meta.(AppMeta)
	assert.Equal(t, ActionCreate, app.Action)
	assert.Equal(t, "accounts", app.Module)
}

func TestParseSeedInvalid(t *testing.T) {
	_, err := ParseSeed([]byte("test_fixes: [unclosed"))
	assert.Error(t, err)
}

func TestTextHelpers(t *testing.T) {
	assert.Equal(t, "Fill form\nawait page.fill()", PatternText("Fill form", "await page.fill()\n"))
	assert.Equal(t, "only scenario", AppText("only scenario", "  "))
}

func TestLoadSeedGlob(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "team", "accounts")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "fixes.yaml"), []byte(`
test_fixes:
  - error: "Timeout 30000ms exceeded"
    fix: "wait for network idle"
    error_type: timeout
    success_rate: 80
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "explore.yaml"), []byte(`
test_fixes:
  - error: "locator resolved to 2 elements"
    fix: "add .first()"
    error_type: locator
    success_rate: 95
application_knowledge:
  - scenario: "edit account"
    action: edit
    module: accounts
    narrative: "open record, click Edit"
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	seed, err := LoadSeedGlob(filepath.Join(dir, "**", "*.yaml"))
	require.NoError(t, err)
	assert.Len(t, seed[CollectionFixes], 2)
	require.Len(t, seed[CollectionApplication], 1)
	assert.Equal(t, ActionEdit, seed[CollectionApplication][0].Meta.(AppMeta).Action)

	_, err = LoadSeedGlob(filepath.Join(dir, "**", "*.json"))
	assert.Error(t, err)
}
