package knowledge

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seedYAML []byte

type seedFile struct {
	Fixes []struct {
		Error       string  `yaml:"error"`
		Fix         string  `yaml:"fix"`
		ErrorType   string  `yaml:"error_type"`
		SuccessRate float64 `yaml:"success_rate"`
		TestFile    string  `yaml:"test_file"`
	} `yaml:"test_fixes"`
	Patterns []struct {
		Description string `yaml:"description"`
		PatternType string `yaml:"pattern_type"`
		Language    string `yaml:"language"`
		Code        string `yaml:"code"`
	} `yaml:"code_patterns"`
	Plans []struct {
		Scenario string `yaml:"scenario"`
		PlanType string `yaml:"plan_type"`
		Steps    string `yaml:"steps"`
	} `yaml:"test_plans"`
	Application []struct {
		Scenario  string `yaml:"scenario"`
		Action    string `yaml:"action"`
		Module    string `yaml:"module"`
		Narrative string `yaml:"narrative"`
	} `yaml:"application_knowledge"`
}

// Seed returns the initial knowledge base grouped by collection. Records
// carry no ID or timestamp; both are assigned when they are stored.
func Seed() (map[Collection][]Record, error) {
	return ParseSeed(seedYAML)
}

// ParseSeed decodes a seed document in the format of the embedded
// knowledge base.
func ParseSeed(data []byte) (map[Collection][]Record, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing seed knowledge: %w", err)
	}

	out := make(map[Collection][]Record, 4)
	for _, fx := range f.Fixes {
		out[CollectionFixes] = append(out[CollectionFixes], Record{
			Text: fx.Error,
			Meta: FixMeta{
				ErrorType:   ParseErrorType(fx.ErrorType),
				FixApplied:  fx.Fix,
				SuccessRate: ClampSuccessRate(fx.SuccessRate),
				TestFile:    fx.TestFile,
			},
		})
	}
	for _, p := range f.Patterns {
		out[CollectionPatterns] = append(out[CollectionPatterns], Record{
			Text: PatternText(p.Description, p.Code),
			Meta: PatternMeta{
				PatternType: ParsePatternType(p.PatternType),
				Language:    p.Language,
			},
		})
	}
	for _, p := range f.Plans {
		out[CollectionPlans] = append(out[CollectionPlans], Record{
			Text: PlanText(p.Scenario, p.Steps),
			Meta: PlanMeta{
				PlanType: ParsePlanType(p.PlanType),
				Scenario: p.Scenario,
			},
		})
	}
	for _, a := range f.Application {
		out[CollectionApplication] = append(out[CollectionApplication], Record{
			Text: AppText(a.Scenario, a.Narrative),
			Meta: AppMeta{
				Scenario: a.Scenario,
				Action:   ParseAction(a.Action),
				Module:   a.Module,
			},
		})
	}
	return out, nil
}

// LoadSeedGlob parses every seed file matching pattern and merges them in
// path order. Patterns use doublestar syntax, e.g. "knowledge/**/*.yaml".
func LoadSeedGlob(pattern string) (map[Collection][]Record, error) {
	paths, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("matching seed files %q: %w", pattern, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no seed files match %q", pattern)
	}
	sort.Strings(paths)

	out := make(map[Collection][]Record, 4)
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading seed file: %w", err)
		}
		recs, err := ParseSeed(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		for c, rs := range recs {
			out[c] = append(out[c], rs...)
		}
	}
	return out, nil
}

// PatternText is the embedded text of a code pattern.
func PatternText(description, code string) string {
	return joinNonEmpty(description, code)
}

// PlanText is the embedded text of a test plan.
func PlanText(scenario, steps string) string {
	return joinNonEmpty(scenario, steps)
}

// AppText is the embedded text of an application knowledge record.
func AppText(scenario, narrative string) string {
	return joinNonEmpty(scenario, narrative)
}

func joinNonEmpty(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}
