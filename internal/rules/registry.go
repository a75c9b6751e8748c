package rules

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/layerlint/internal/project"
)

// Registry holds rules by name in registration order.
type Registry struct {
	rules  []Rule
	byName map[string]Rule
}

// NewRegistry returns a registry holding rules. Names must be unique.
func NewRegistry(rules ...Rule) (*Registry, error) {
	r := &Registry{byName: make(map[string]Rule, len(rules))}
	for _, rule := range rules {
		if err := r.Register(rule); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a rule.
func (r *Registry) Register(rule Rule) error {
	key := strings.ToLower(rule.Name())
	if _, exists := r.byName[key]; exists {
		return fmt.Errorf("rule %q is already registered", rule.Name())
	}
	r.byName[key] = rule
	r.rules = append(r.rules, rule)
	return nil
}

// Get finds a rule by name, ignoring case.
func (r *Registry) Get(name string) (Rule, bool) {
	rule, ok := r.byName[strings.ToLower(name)]
	return rule, ok
}

// All returns every rule in registration order.
func (r *Registry) All() []Rule {
	return append([]Rule(nil), r.rules...)
}

// Names returns the sorted rule names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.rules))
	for _, rule := range r.rules {
		names = append(names, rule.Name())
	}
	sort.Strings(names)
	return names
}

// Enabled returns the rules not named in disabled. Unknown names are an
// error so that a typo does not silently keep a rule on.
func (r *Registry) Enabled(disabled []string) ([]Rule, error) {
	off := make(map[string]bool, len(disabled))
	for _, name := range disabled {
		if _, ok := r.Get(name); !ok {
			return nil, fmt.Errorf("unknown rule %q", name)
		}
		off[strings.ToLower(name)] = true
	}
	out := make([]Rule, 0, len(r.rules))
	for _, rule := range r.rules {
		if !off[strings.ToLower(rule.Name())] {
			out = append(out, rule)
		}
	}
	return out, nil
}

// DefaultRegistry returns the full rule catalogue.
func DefaultRegistry(logger *zap.Logger) *Registry {
	all := []Rule{
		newEmptyIDRule("EmptyEventIds", project.Events, "event", logger),
		newEmptyIDRule("EmptyDataViewIds", project.DataViews, "dataview", logger),
		newEmptyIDRule("EmptyLayoutIds", project.Layout, "layout component", logger),
		newEmptyIDRule("EmptyRuleIds", project.Rules, "rule", logger),
		newEmptyIDRule("EmptySearchIds", project.Search, "search", logger),
		newEmptyIDRule("EmptyComboIds", project.Combo, "combo", logger),
		newEmptyIDRule("EmptyToolIds", project.Tools, "tool", logger),
		newEmptyIDRule("EmptyStringIds", project.Strings, "string", logger),
		newEmptyIDRule("EmptyPatchIds", project.Patch, "patch", logger),
		newEmptyTriggerTargetsRule(logger),

		newEmptyStringValuesRule(logger),
		newEmptyEventsRule(logger),
		newIncompleteDataViewsRule(logger),
		newUnknownTriggerTypesRule(logger),
		newInconsistentVersionsRule(logger),

		newRedundantStringsRule(logger),
		newRedundantEventsRule(logger),
		newRedundantDataViewsRule(logger),
		newRedundantPatchesRule(logger),
		newRedundantCombosRule(logger),

		newCallNonExistingEventsRule(logger),
		newCallNonExistingDataViewsRule(logger),
		newCallNonExistingStringsRule(logger),
		newCallNonExistingPatchesRule(logger),
		newCallNonExistingCombosRule(logger),
		newCallNonExistingTableFieldsRule(logger),

		newOverrideRule("OverridingEvents", project.Events, "Event", false, logger),
		newOverrideRule("OverridingDataViews", project.DataViews, "Dataview", false, logger),
		newOverrideRule("OverridingStrings", project.Strings, "String", true, logger),
		newOverrideRule("OverridingPatches", project.Patch, "Patch", true, logger),
		newOverrideRule("OverridingRules", project.Rules, "Rule", false, logger),
		newOverrideRule("OverridingCombos", project.Combo, "Combo", false, logger),
		newOverrideRule("OverridingTools", project.Tools, "Tool", false, logger),

		newDuplicateIDsRule(logger),
		newDuplicateGUIDsRule(logger),
		newMismatchedLayoutIDsRule(logger),
		newIncorrectDataViewConditionsRule(logger),
		newIncorrectTabIDsRule(logger),
		newJSONSyntaxRule(logger),

		newIncorrectRestCallsRule(logger),
		newSchemaValidationRule(logger),
	}
	r, err := NewRegistry(all...)
	if err != nil {
		panic(err)
	}
	return r
}
