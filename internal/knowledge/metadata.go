package knowledge

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Metadata field names. Prompt templates rely on exactly these keys.
const (
	FieldErrorType   = "error_type"
	FieldFixApplied  = "fix_applied"
	FieldSuccessRate = "success_rate"
	FieldTestFile    = "test_file"
	FieldPatternType = "pattern_type"
	FieldLanguage    = "language"
	FieldPlanType    = "plan_type"
	FieldScenario    = "scenario"
	FieldAction      = "action"
	FieldModule      = "module"
	FieldTimestamp   = "timestamp"
)

// TimestampLayout is the stored timestamp format. Lexical order matches
// chronological order for UTC values.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Metadata is the typed metadata of one record. Each collection has exactly
// one implementation.
type Metadata interface {
	Collection() Collection
	// Fields flattens the metadata into the string map the vector store
	// persists.
	Fields() map[string]string
	Time() time.Time
}

// FixMeta describes a proven fix for a test failure.
type FixMeta struct {
	ErrorType   ErrorType
	FixApplied  string
	SuccessRate float64 // percentage, 0-100
	TestFile    string
	Timestamp   time.Time
}

func (m FixMeta) Collection() Collection { return CollectionFixes }
func (m FixMeta) Time() time.Time        { return m.Timestamp }

func (m FixMeta) Fields() map[string]string {
	return map[string]string{
		FieldErrorType:   string(m.ErrorType),
		FieldFixApplied:  m.FixApplied,
		FieldSuccessRate: strconv.FormatFloat(ClampSuccessRate(m.SuccessRate), 'f', -1, 64),
		FieldTestFile:    m.TestFile,
		FieldTimestamp:   formatTime(m.Timestamp),
	}
}

// PatternMeta describes a reusable code pattern.
type PatternMeta struct {
	PatternType PatternType
	Language    string
	Timestamp   time.Time
}

func (m PatternMeta) Collection() Collection { return CollectionPatterns }
func (m PatternMeta) Time() time.Time        { return m.Timestamp }

func (m PatternMeta) Fields() map[string]string {
	return map[string]string{
		FieldPatternType: string(m.PatternType),
		FieldLanguage:    m.Language,
		FieldTimestamp:   formatTime(m.Timestamp),
	}
}

// PlanMeta describes a test plan template.
type PlanMeta struct {
	PlanType  PlanType
	Scenario  string
	Timestamp time.Time
}

func (m PlanMeta) Collection() Collection { return CollectionPlans }
func (m PlanMeta) Time() time.Time        { return m.Timestamp }

func (m PlanMeta) Fields() map[string]string {
	return map[string]string{
		FieldPlanType:  string(m.PlanType),
		FieldScenario:  m.Scenario,
		FieldTimestamp: formatTime(m.Timestamp),
	}
}

// AppMeta describes a cached UI exploration.
type AppMeta struct {
	Scenario  string
	Action    Action
	Module    string
	Timestamp time.Time
}

func (m AppMeta) Collection() Collection { return CollectionApplication }
func (m AppMeta) Time() time.Time        { return m.Timestamp }

func (m AppMeta) Fields() map[string]string {
	return map[string]string{
		FieldScenario:  m.Scenario,
		FieldAction:    string(m.Action),
		FieldModule:    m.Module,
		FieldTimestamp: formatTime(m.Timestamp),
	}
}

// Record is a stored knowledge item.
type Record struct {
	ID   string
	Text string
	Meta Metadata
}

// Collection returns the collection the record belongs to.
func (r Record) Collection() Collection {
	if r.Meta == nil {
		return ""
	}
	return r.Meta.Collection()
}

// DecodeMetadata rebuilds the typed metadata of a record read back from the
// vector store. Vocabulary fields are coerced and success_rate is clamped,
// so records written by older versions still decode.
func DecodeMetadata(c Collection, fields map[string]string) (Metadata, error) {
	ts := parseTime(fields[FieldTimestamp])
	switch c {
	case CollectionFixes:
		rate, err := strconv.ParseFloat(fields[FieldSuccessRate], 64)
		if err != nil {
			rate = 0
		}
		return FixMeta{
			ErrorType:   ParseErrorType(fields[FieldErrorType]),
			FixApplied:  fields[FieldFixApplied],
			SuccessRate: ClampSuccessRate(rate),
			TestFile:    fields[FieldTestFile],
			Timestamp:   ts,
		}, nil
	case CollectionPatterns:
		return PatternMeta{
			PatternType: ParsePatternType(fields[FieldPatternType]),
			Language:    fields[FieldLanguage],
			Timestamp:   ts,
		}, nil
	case CollectionPlans:
		return PlanMeta{
			PlanType:  ParsePlanType(fields[FieldPlanType]),
			Scenario:  fields[FieldScenario],
			Timestamp: ts,
		}, nil
	case CollectionApplication:
		return AppMeta{
			Scenario:  fields[FieldScenario],
			Action:    ParseAction(fields[FieldAction]),
			Module:    fields[FieldModule],
			Timestamp: ts,
		}, nil
	default:
		return nil, fmt.Errorf("unknown collection %q", c)
	}
}

// ClampSuccessRate bounds v to [0,100]. NaN becomes 0.
func ClampSuccessRate(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimestampLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	// Seed data carries plain dates.
	t, _ := time.Parse(time.DateOnly, s)
	return t
}
