// Package summary provides an OpenAI-backed summary generator for
// change requests. The application layer falls back to the
// deterministic renderer when generation fails.
package summary

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/rcflow/rcflow/domain/changerequest"
	"github.com/rcflow/rcflow/domain/diff"
	"github.com/rcflow/rcflow/domain/remoteconfig"
	domain "github.com/rcflow/rcflow/domain/summary"
)

// DefaultModel is the chat model used when none is configured.
const DefaultModel = openai.GPT4

const systemPrompt = `You are a release reviewer for Firebase Remote Config. Analyze changes and provide detailed, clear summaries focusing on user impact and risks. When a parameter has a conditional value with a condition, you MUST parse the condition's expression and list ALL criteria that make up the condition (country/region, language, app version, percentage ranges, device types, etc.). Do NOT just mention the condition name - you MUST explain what each condition means by parsing its expression. For example, if parameter "A" uses condition "us_1" with expression "user.country == 'US' && user.randomPercentage >= 0 && user.randomPercentage < 50", you must explain: "Parameter A has a conditional value for condition us_1, which targets users in United States (user.country == 'US') with random percentage between 0% and 50% (user.randomPercentage >= 0 && user.randomPercentage < 50). This affects 50% of users in United States."`

// Config configures the OpenAI generator.
type Config struct {
	// APIKey authenticates against the OpenAI API.
	APIKey string

	// Model is the chat model. Defaults to DefaultModel.
	Model string

	// BaseURL overrides the API endpoint (for testing).
	BaseURL string
}

// Generator produces change request summaries with the OpenAI chat
// API.
type Generator struct {
	client *openai.Client
	model  string
}

// NewGenerator creates an OpenAI summary generator.
func NewGenerator(cfg Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Generator{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}, nil
}

// Generate asks the model for a summary of the change request.
func (g *Generator) Generate(ctx context.Context, cr *changerequest.ChangeRequest) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(cr)},
		},
		Temperature: 0.7,
		MaxTokens:   1000,
	})
	if err != nil {
		return "", fmt.Errorf("create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: response contains no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// buildPrompt renders the change request into the review prompt: diff
// counts, condition details, parameter details and the
// parameter-to-condition mapping with full expressions so the model
// can explain each targeting rule.
func buildPrompt(cr *changerequest.ChangeRequest) string {
	d := cr.Diff

	var b strings.Builder

	b.WriteString(`You are a release reviewer for Firebase Remote Config.

Given the following diff between the current config and the proposed change, provide a DETAILED summary in 3 sections:

1. Overall Summary (3-4 sentences)
   - Explain what this change does at a high level
   - Mention key user segments, regions, or percentages affected
   - Highlight the main purpose of the change

2. Detailed Impact Analysis (detailed bullet points)
   - For EACH parameter that has conditional values, list the parameter, what changed, and for EACH condition parse its expression and list ALL criteria (country/region, language, app version, percentage range, device type), the user segment it targets and the value that segment receives
   - Mention default values and how they affect users not matching any condition
   - For EACH condition that was added/updated/removed, parse the expression and explain what user segment it targets

3. Risk & Rollout Recommendations
   - Identify potential risks based on the changes
   - Recommend rollout strategy (e.g., gradual rollout, A/B testing considerations)
   - Highlight any breaking changes or user-facing impacts

IMPORTANT: Do NOT just name a condition - parse its expression and list every criterion. Be specific and use clear, business-friendly language.

`)

	fmt.Fprintf(&b, "Change Request: %s\n", cr.Title)
	if cr.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", cr.Description)
	}

	b.WriteString("\n=== DIFF SUMMARY ===\n")
	fmt.Fprintf(&b, "- Added parameters: %d (%s)\n", len(d.AddedParams), joinOrNone(d.AddedParams))
	fmt.Fprintf(&b, "- Removed parameters: %d (%s)\n", len(d.RemovedParams), joinOrNone(d.RemovedParams))
	fmt.Fprintf(&b, "- Updated parameters: %d (%s)\n", len(d.UpdatedParams), joinOrNone(parameterKeys(d.UpdatedParams)))
	fmt.Fprintf(&b, "- Added conditions: %d (%s)\n", len(d.AddedConditions), joinOrNone(d.AddedConditions))
	fmt.Fprintf(&b, "- Removed conditions: %d (%s)\n", len(d.RemovedConditions), joinOrNone(d.RemovedConditions))
	fmt.Fprintf(&b, "- Updated conditions: %d (%s)\n", len(d.UpdatedConditions), joinOrNone(conditionNames(d.UpdatedConditions)))

	b.WriteString("\n=== CONDITION DETAILS ===\n")
	details := conditionDetails(cr)
	if len(details) == 0 {
		b.WriteString("No condition changes\n")
	} else {
		b.WriteString(strings.Join(details, "\n"))
		b.WriteString("\n")
	}

	if len(d.UpdatedParams) > 0 {
		b.WriteString("\n=== PARAMETER DETAILS ===\n")
		for _, p := range d.UpdatedParams {
			fmt.Fprintf(&b, "Parameter %q:\n  Default value: %s → %s\n  Description: %s → %s\n\n",
				p.Key,
				paramDefault(p.From), paramDefault(p.To),
				paramDescription(p.From), paramDescription(p.To))
		}
	}

	if len(d.AddedParams) > 0 {
		b.WriteString("\n=== NEW PARAMETERS ===\n")
		index := cr.Candidate.ParameterIndex()
		for _, key := range d.AddedParams {
			param := index[key]
			fmt.Fprintf(&b, "Parameter %q:\n  Default: %s\n  Description: %s\n\n",
				key, paramDefault(&param), paramDescription(&param))
		}
	}

	if mapping := parameterConditionMapping(cr); len(mapping) > 0 {
		b.WriteString("\n=== PARAMETER-CONDITION MAPPING ===\n")
		b.WriteString(strings.Join(mapping, "\n\n"))
		b.WriteString("\n")
	}

	return b.String()
}

func conditionDetails(cr *changerequest.ChangeRequest) []string {
	d := cr.Diff
	details := []string{}

	for _, name := range d.AddedConditions {
		if cond, ok := cr.Candidate.Condition(name); ok {
			details = append(details, fmt.Sprintf("- Added condition %q: %s", name, cond.Expression))
		}
	}
	for _, name := range d.RemovedConditions {
		details = append(details, fmt.Sprintf("- Removed condition %q", name))
	}
	for _, update := range d.UpdatedConditions {
		details = append(details, fmt.Sprintf("- Updated condition %q:\n  From: %s\n  To: %s",
			update.Name, conditionExpr(update.From), conditionExpr(update.To)))
	}

	return details
}

// parameterConditionMapping lists, per parameter, every conditional
// value change together with the condition's expression.
func parameterConditionMapping(cr *changerequest.ChangeRequest) []string {
	d := cr.Diff
	mapping := []string{}

	for _, update := range d.UpdatedParams {
		var from, to map[string]string
		if update.From != nil {
			from = update.From.ConditionalValues
		}
		if update.To != nil {
			to = update.To.ConditionalValues
		}

		lines := []string{}
		for _, name := range sortedUnion(from, to) {
			fromValue, hasFrom := from[name]
			toValue, hasTo := to[name]

			var changeLine string
			switch {
			case !hasFrom && hasTo:
				changeLine = fmt.Sprintf("  - Added conditional value for condition %q: %s", name, toValue)
			case hasFrom && !hasTo:
				changeLine = fmt.Sprintf("  - Removed conditional value for condition %q", name)
			case fromValue != toValue:
				changeLine = fmt.Sprintf("  - Updated conditional value for condition %q: %s → %s", name, fromValue, toValue)
			default:
				continue
			}

			lines = append(lines, changeLine,
				fmt.Sprintf("    Condition %q expression: %s", name, candidateExpr(cr, name)))
		}

		if len(lines) > 0 {
			mapping = append(mapping, fmt.Sprintf("Parameter %q conditional values:\n%s",
				update.Key, strings.Join(lines, "\n")))
		}
	}

	index := cr.Candidate.ParameterIndex()
	for _, key := range d.AddedParams {
		param, ok := index[key]
		if !ok || len(param.ConditionalValues) == 0 {
			continue
		}

		lines := []string{}
		for _, name := range sortedUnion(param.ConditionalValues, nil) {
			lines = append(lines,
				fmt.Sprintf("  - Condition %q: %s", name, param.ConditionalValues[name]),
				fmt.Sprintf("    Expression: %s", candidateExpr(cr, name)))
		}
		mapping = append(mapping, fmt.Sprintf("New parameter %q with conditional values:\n%s",
			key, strings.Join(lines, "\n")))
	}

	return mapping
}

func candidateExpr(cr *changerequest.ChangeRequest, name string) string {
	if cond, ok := cr.Candidate.Condition(name); ok {
		return cond.Expression
	}
	return "unknown"
}

func parameterKeys(changes []diff.ParameterChange) []string {
	keys := make([]string, len(changes))
	for i, c := range changes {
		keys[i] = c.Key
	}
	return keys
}

func conditionNames(changes []diff.ConditionChange) []string {
	names := make([]string, len(changes))
	for i, c := range changes {
		names[i] = c.Name
	}
	return names
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func paramDefault(p *remoteconfig.Parameter) string {
	if p == nil || p.DefaultValue == nil {
		return "none"
	}
	return *p.DefaultValue
}

func paramDescription(p *remoteconfig.Parameter) string {
	if p == nil || p.Description == nil {
		return "none"
	}
	return *p.Description
}

func conditionExpr(c *remoteconfig.Condition) string {
	if c == nil {
		return "none"
	}
	return c.Expression
}

// sortedUnion returns the sorted union of both maps' keys.
func sortedUnion(a, b map[string]string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	keys := []string{}
	for name := range a {
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			keys = append(keys, name)
		}
	}
	for name := range b {
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			keys = append(keys, name)
		}
	}
	sort.Strings(keys)
	return keys
}

var _ domain.Generator = (*Generator)(nil)
