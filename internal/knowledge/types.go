// Package knowledge defines the four knowledge collections, their typed
// metadata variants and the seed knowledge base.
package knowledge

import (
	"fmt"
	"strings"
)

// Collection names a partition of the knowledge store.
type Collection string

const (
	CollectionFixes       Collection = "test_fixes"
	CollectionPatterns    Collection = "code_patterns"
	CollectionPlans       Collection = "test_plans"
	CollectionApplication Collection = "application_knowledge"
)

// Collections returns every collection in a stable order.
func Collections() []Collection {
	return []Collection{CollectionFixes, CollectionPatterns, CollectionPlans, CollectionApplication}
}

var collectionAliases = map[string]Collection{
	"test_fixes":            CollectionFixes,
	"fixes":                 CollectionFixes,
	"fix":                   CollectionFixes,
	"code_patterns":         CollectionPatterns,
	"patterns":              CollectionPatterns,
	"pattern":               CollectionPatterns,
	"test_plans":            CollectionPlans,
	"plans":                 CollectionPlans,
	"plan":                  CollectionPlans,
	"application_knowledge": CollectionApplication,
	"application":           CollectionApplication,
	"app":                   CollectionApplication,
}

// ParseCollection resolves a collection name or short alias.
func ParseCollection(s string) (Collection, error) {
	if c, ok := collectionAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return c, nil
	}
	return "", fmt.Errorf("unknown collection %q", s)
}

// ErrorType classifies a test failure.
type ErrorType string

const (
	ErrorLocator        ErrorType = "locator"
	ErrorTimeout        ErrorType = "timeout"
	ErrorInteraction    ErrorType = "interaction"
	ErrorAssertion      ErrorType = "assertion"
	ErrorVisibility     ErrorType = "visibility"
	ErrorAuthentication ErrorType = "authentication"
	ErrorNavigation     ErrorType = "navigation"
	ErrorOther          ErrorType = "other"
)

var errorTypes = []ErrorType{
	ErrorLocator, ErrorTimeout, ErrorInteraction, ErrorAssertion,
	ErrorVisibility, ErrorAuthentication, ErrorNavigation, ErrorOther,
}

// ParseErrorType normalizes s; unknown values become ErrorOther.
func ParseErrorType(s string) ErrorType {
	return parseEnum(s, errorTypes, ErrorOther)
}

func (t ErrorType) Valid() bool { return contains(errorTypes, t) }

// ErrorTypes returns the accepted error types.
func ErrorTypes() []ErrorType { return append([]ErrorType(nil), errorTypes...) }

// PatternType classifies a reusable code pattern.
type PatternType string

const (
	PatternNavigation PatternType = "navigation"
	PatternForm       PatternType = "form"
	PatternWait       PatternType = "wait"
	PatternAssertion  PatternType = "assertion"
	PatternLocator    PatternType = "locator"
	PatternOther      PatternType = "other"
)

var patternTypes = []PatternType{
	PatternNavigation, PatternForm, PatternWait, PatternAssertion, PatternLocator, PatternOther,
}

// ParsePatternType normalizes s; unknown values become PatternOther.
func ParsePatternType(s string) PatternType {
	return parseEnum(s, patternTypes, PatternOther)
}

func (t PatternType) Valid() bool { return contains(patternTypes, t) }

// PatternTypes returns the accepted pattern types.
func PatternTypes() []PatternType { return append([]PatternType(nil), patternTypes...) }

// PlanType classifies a test plan template.
type PlanType string

const (
	PlanSmoke      PlanType = "smoke"
	PlanE2E        PlanType = "e2e"
	PlanCRUD       PlanType = "crud"
	PlanNavigation PlanType = "navigation"
	PlanRegression PlanType = "regression"
	PlanOther      PlanType = "other"
)

var planTypes = []PlanType{PlanSmoke, PlanE2E, PlanCRUD, PlanNavigation, PlanRegression, PlanOther}

// ParsePlanType normalizes s; unknown values become PlanOther.
func ParsePlanType(s string) PlanType {
	return parseEnum(s, planTypes, PlanOther)
}

func (t PlanType) Valid() bool { return contains(planTypes, t) }

// PlanTypes returns the accepted plan types.
func PlanTypes() []PlanType { return append([]PlanType(nil), planTypes...) }

// Action is the kind of UI operation an exploration narrative covers.
type Action string

const (
	ActionCreate   Action = "create"
	ActionEdit     Action = "edit"
	ActionDelete   Action = "delete"
	ActionView     Action = "view"
	ActionNavigate Action = "navigate"
	ActionOther    Action = "other"
)

var actions = []Action{ActionCreate, ActionEdit, ActionDelete, ActionView, ActionNavigate, ActionOther}

// ParseAction normalizes s; unknown values become ActionOther.
func ParseAction(s string) Action {
	return parseEnum(s, actions, ActionOther)
}

func (a Action) Valid() bool { return contains(actions, a) }

// Actions returns the accepted actions.
func Actions() []Action { return append([]Action(nil), actions...) }

// actionVerbs lists the base verbs (and a few nouns) that name each action.
// "new" is not an action verb.
var actionVerbs = []struct {
	action Action
	verbs  []string
	extra  []string
}{
	{ActionDelete, []string{"delete", "remove", "destroy", "erase", "discard"}, []string{"deletion", "removal"}},
	{ActionCreate, []string{"create", "add", "register", "insert"}, []string{"creation", "registration"}},
	{ActionEdit, []string{"edit", "update", "modify", "change", "rename"}, []string{"modification"}},
	{ActionView, []string{"view", "open", "read", "display", "show", "inspect"}, []string{"shown"}},
	{ActionNavigate, []string{"navigate", "go", "visit", "browse"}, []string{"went", "gone", "navigation"}},
}

// actionWords maps every inflected form in actionVerbs to its action.
var actionWords = func() map[string]Action {
	m := make(map[string]Action)
	for _, av := range actionVerbs {
		for _, v := range av.verbs {
			for _, form := range inflect(v) {
				m[form] = av.action
			}
		}
		for _, w := range av.extra {
			m[w] = av.action
		}
	}
	return m
}()

// inflect returns v with its regular third-person, past and gerund forms.
func inflect(v string) []string {
	forms := []string{v, v + "s", v + "ed", v + "ing"}
	last := v[len(v)-1]
	switch {
	case last == 'e':
		stem := v[:len(v)-1]
		forms = append(forms, v+"d", stem+"ing")
	case last == 'y' && len(v) > 1 && !strings.ContainsRune("aeiou", rune(v[len(v)-2])):
		stem := v[:len(v)-1]
		forms = append(forms, stem+"ies", stem+"ied")
	case last == 'o' || strings.HasSuffix(v, "sh") || strings.HasSuffix(v, "ch"):
		forms = append(forms, v+"es")
	}
	return forms
}

// InferAction guesses the action a free-text query refers to from the
// first action verb it contains, in any inflection. It reports false when
// no known verb is present.
func InferAction(text string) (Action, bool) {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	})
	for _, w := range words {
		if a, ok := actionWords[w]; ok {
			return a, true
		}
	}
	return "", false
}

func parseEnum[T ~string](s string, valid []T, fallback T) T {
	v := T(strings.ToLower(strings.TrimSpace(s)))
	if contains(valid, v) {
		return v
	}
	return fallback
}

func contains[T comparable](list []T, v T) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
