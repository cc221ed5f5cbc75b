package retriever

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ziadkadry99/testkb/internal/knowledge"
)

const separator = "------------------------------------------------------------"

var noMatchText = map[knowledge.Collection]string{
	knowledge.CollectionFixes:       "No similar errors found in knowledge base. Proceed with standard debugging.",
	knowledge.CollectionPatterns:    "No matching code patterns found. Create new code following best practices.",
	knowledge.CollectionPlans:       "No matching test plans found. Create plan using standard structure.",
	knowledge.CollectionApplication: "No previous exploration found for this scenario. Proceed with live browser exploration.",
}

var tierAdvice = map[Tier]string{
	TierExact:   "EXACT match: skip exploration and reuse the cached navigation verbatim.",
	TierPartial: "PARTIAL match: start from the cached navigation, then verify and extend it.",
	TierNone:    "Weak match only: full exploration is still required.",
}

// Format renders a search result as text for an agent prompt. An empty
// result says so explicitly.
func Format(res *Result) string {
	if res == nil || len(res.Hits) == 0 {
		if res != nil {
			if s, ok := noMatchText[res.Collection]; ok {
				return s
			}
		}
		return "No matches found."
	}

	var b strings.Builder
	switch res.Collection {
	case knowledge.CollectionFixes:
		fmt.Fprintf(&b, "Found %d proven fix(es) for similar errors:\n\n", len(res.Hits))
		for i, h := range res.Hits {
			m, _ := h.Meta.(knowledge.FixMeta)
			fmt.Fprintf(&b, "%d. [%s] Success: %.0f%% | Match: %.0f%%\n", i+1, strings.ToUpper(string(m.ErrorType)), m.SuccessRate, h.Similarity)
			fmt.Fprintf(&b, "   Error: %s\n", oneLine(h.Text))
			fmt.Fprintf(&b, "   Fix: %s\n", m.FixApplied)
			if m.TestFile != "" {
				fmt.Fprintf(&b, "   Seen in: %s\n", m.TestFile)
			}
			b.WriteString("\n")
		}
		b.WriteString("Fixes are ordered by match and success rate. Try the first one first.")

	case knowledge.CollectionPatterns:
		fmt.Fprintf(&b, "Found %d code pattern(s):\n\n", len(res.Hits))
		for i, h := range res.Hits {
			m, _ := h.Meta.(knowledge.PatternMeta)
			fmt.Fprintf(&b, "Pattern %d: %s (Language: %s | Match: %.0f%%)\n", i+1, strings.ToUpper(string(m.PatternType)), m.Language, h.Similarity)
			fmt.Fprintf(&b, "%s\n\n%s\n\n", h.Text, separator)
		}
		b.WriteString("Adapt these patterns to your specific requirements.")

	case knowledge.CollectionPlans:
		fmt.Fprintf(&b, "Found %d test plan template(s):\n\n", len(res.Hits))
		for i, h := range res.Hits {
			m, _ := h.Meta.(knowledge.PlanMeta)
			fmt.Fprintf(&b, "Template %d: %s (Match: %.0f%%)\n", i+1, strings.ToUpper(string(m.PlanType)), h.Similarity)
			fmt.Fprintf(&b, "%s\n\n%s\n\n", h.Text, separator)
		}
		b.WriteString("Use these templates as a starting point for your test plan.")

	case knowledge.CollectionApplication:
		fmt.Fprintf(&b, "%s\n\n", tierAdvice[res.Tier])
		for i, h := range res.Hits {
			m, _ := h.Meta.(knowledge.AppMeta)
			module := m.Module
			if module == "" {
				module = "-"
			}
			fmt.Fprintf(&b, "%d. [%s - %s] %s | Match: %.0f%%\n", i+1, strings.ToUpper(module), m.Action, h.Tier, h.Similarity)
			fmt.Fprintf(&b, "%s\n\n", h.Text)
		}
		b.WriteString("Use this cached knowledge to speed up test planning.")

	default:
		for i, h := range res.Hits {
			fmt.Fprintf(&b, "%d. Match: %.0f%%\n%s\n\n", i+1, h.Similarity, h.Text)
		}
	}
	return b.String()
}

// FormatError renders a failed lookup. Retrieval outages read differently
// from an empty result so agents never confuse the two.
func FormatError(err error) string {
	if errors.Is(err, ErrUnavailable) {
		return fmt.Sprintf("Knowledge lookup unavailable (%v). Continue on the uncached path.", err)
	}
	return fmt.Sprintf("Knowledge lookup failed: %v", err)
}

// FormatStats renders record counts per collection.
func FormatStats(stats map[knowledge.Collection]int) string {
	var b strings.Builder
	b.WriteString("Knowledge base statistics:\n\n")
	total := 0
	for _, c := range knowledge.Collections() {
		fmt.Fprintf(&b, "- %s: %d items\n", c, stats[c])
		total += stats[c]
	}
	fmt.Fprintf(&b, "\nTotal knowledge items: %d\n", total)
	return b.String()
}

func oneLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > 160 {
		return string(r[:160]) + "..."
	}
	return s
}
