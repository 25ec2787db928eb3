package summary

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rcflow/rcflow/domain/changerequest"
	"github.com/rcflow/rcflow/domain/remoteconfig"
)

// Fallback renders a markdown summary of the change request's diff.
// Sections: overall counts, condition changes, parameter changes and
// rollout notes. Iteration over conditional values is sorted so the
// output is stable.
func Fallback(cr *changerequest.ChangeRequest) string {
	d := cr.Diff

	var conditionDetails []string
	for _, name := range d.AddedConditions {
		if cond, ok := cr.Candidate.Condition(name); ok {
			conditionDetails = append(conditionDetails, fmt.Sprintf("- **%s** (Added): %s", name, cond.Expression))
		}
	}
	for _, name := range d.RemovedConditions {
		conditionDetails = append(conditionDetails, fmt.Sprintf("- **%s** (Removed)", name))
	}
	for _, update := range d.UpdatedConditions {
		conditionDetails = append(conditionDetails, fmt.Sprintf("- **%s** (Updated):\n  - From: %s\n  - To: %s",
			update.Name, conditionExpr(update.From), conditionExpr(update.To)))
	}

	var parameterDetails []string
	for _, update := range d.UpdatedParams {
		details := []string{fmt.Sprintf("**%s** (Updated)", update.Key)}
		fromDefault := paramDefault(update.From)
		toDefault := paramDefault(update.To)
		if fromDefault != toDefault {
			details = append(details, fmt.Sprintf("  - Default value: %q → %q", fromDefault, toDefault))
		}
		condChanges := conditionalValueChanges(cr.Candidate, update.From, update.To)
		if len(condChanges) > 0 {
			details = append(details, "  - Conditional values:")
			details = append(details, condChanges...)
		}
		parameterDetails = append(parameterDetails, strings.Join(details, "\n"))
	}
	for _, key := range d.AddedParams {
		param, ok := cr.Candidate.ParameterIndex()[key]
		details := []string{fmt.Sprintf("**%s** (Added)", key)}
		if ok && param.DefaultValue != nil {
			details = append(details, fmt.Sprintf("  - Default value: %q", *param.DefaultValue))
		}
		if ok && len(param.ConditionalValues) > 0 {
			details = append(details, "  - Conditional values:")
			for _, condName := range sortedMapKeys(param.ConditionalValues) {
				details = append(details, fmt.Sprintf("    - Condition %q: %q", condName, param.ConditionalValues[condName]))
				details = append(details, fmt.Sprintf("      Expression: %s", expressionFor(cr.Candidate, condName)))
			}
		}
		parameterDetails = append(parameterDetails, strings.Join(details, "\n"))
	}

	conditionChanges := len(d.AddedConditions) + len(d.RemovedConditions) + len(d.UpdatedConditions)

	var b strings.Builder
	fmt.Fprintf(&b, "## Overall Summary\n")
	fmt.Fprintf(&b,
		"This change request modifies %d parameter(s), adds %d new parameter(s), removes %d parameter(s), and affects %d condition(s).\n\n",
		len(d.UpdatedParams), len(d.AddedParams), len(d.RemovedParams), conditionChanges)
	fmt.Fprintf(&b, "## Condition Changes\n%s\n\n", joinOr(conditionDetails, "No condition changes"))
	fmt.Fprintf(&b, "## Parameter Changes\n%s\n\n", joinOr(parameterDetails, "No parameter changes"))
	b.WriteString("## Risk & Rollout Notes\n")
	b.WriteString("Please review the parameter changes carefully, especially default value changes and conditional value modifications. Test in staging environment before production deployment.")
	return b.String()
}

// conditionalValueChanges renders per-condition value transitions for
// an updated parameter, annotated with the condition's expression from
// the candidate snapshot.
func conditionalValueChanges(candidate *remoteconfig.Snapshot, from, to *remoteconfig.Parameter) []string {
	fromValues := map[string]string{}
	toValues := map[string]string{}
	if from != nil {
		fromValues = from.ConditionalValues
	}
	if to != nil {
		toValues = to.ConditionalValues
	}

	names := make(map[string]struct{}, len(fromValues)+len(toValues))
	for name := range fromValues {
		names[name] = struct{}{}
	}
	for name := range toValues {
		names[name] = struct{}{}
	}

	var lines []string
	for _, name := range sortedSetKeys(names) {
		expr := expressionFor(candidate, name)
		fromValue, hadFrom := fromValues[name]
		toValue, hasTo := toValues[name]
		switch {
		case !hadFrom && hasTo:
			lines = append(lines, fmt.Sprintf("    - Added value for condition %q: %q", name, toValue))
			lines = append(lines, fmt.Sprintf("      Condition expression: %s", expr))
		case hadFrom && !hasTo:
			lines = append(lines, fmt.Sprintf("    - Removed value for condition %q", name))
			lines = append(lines, fmt.Sprintf("      Condition expression (was): %s", expr))
		case fromValue != toValue:
			lines = append(lines, fmt.Sprintf("    - Updated value for condition %q: %q → %q", name, fromValue, toValue))
			lines = append(lines, fmt.Sprintf("      Condition expression: %s", expr))
		}
	}
	return lines
}

func expressionFor(candidate *remoteconfig.Snapshot, name string) string {
	if candidate != nil {
		if cond, ok := candidate.Condition(name); ok {
			return cond.Expression
		}
	}
	return "unknown"
}

func conditionExpr(c *remoteconfig.Condition) string {
	if c == nil || c.Expression == "" {
		return "none"
	}
	return c.Expression
}

func paramDefault(p *remoteconfig.Parameter) string {
	if p == nil || p.DefaultValue == nil {
		return "none"
	}
	return *p.DefaultValue
}

func joinOr(items []string, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	return strings.Join(items, "\n\n")
}

func sortedMapKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedSetKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
