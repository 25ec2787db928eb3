package firebase

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/rcflow/rcflow/domain/remoteconfig"
)

// template mirrors the Remote Config REST API template body. Parameter
// groups are carried opaquely so publishing preserves them.
type template struct {
	Conditions      []templateCondition          `json:"conditions,omitempty"`
	Parameters      map[string]templateParameter `json:"parameters,omitempty"`
	ParameterGroups json.RawMessage              `json:"parameterGroups,omitempty"`

	etag string
}

type templateParameter struct {
	DefaultValue      *parameterValue           `json:"defaultValue,omitempty"`
	ConditionalValues map[string]parameterValue `json:"conditionalValues,omitempty"`
	Description       string                    `json:"description,omitempty"`
}

// parameterValue is either an explicit value or a directive to use the
// in-app default.
type parameterValue struct {
	Value           string `json:"value,omitempty"`
	UseInAppDefault bool   `json:"useInAppDefault,omitempty"`
}

type templateCondition struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
	TagColor   string `json:"tagColor,omitempty"`
}

// toSnapshot converts an API template to a domain snapshot. Parameters
// are sorted by key so repeated fetches of the same template produce
// the same ordering.
func (t *template) toSnapshot() *remoteconfig.Snapshot {
	keys := make([]string, 0, len(t.Parameters))
	for key := range t.Parameters {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parameters := make([]remoteconfig.Parameter, 0, len(keys))
	for _, key := range keys {
		param := t.Parameters[key]

		p := remoteconfig.Parameter{Key: key}
		if param.DefaultValue != nil && !param.DefaultValue.UseInAppDefault {
			v := param.DefaultValue.Value
			p.DefaultValue = &v
		}
		if param.Description != "" {
			d := param.Description
			p.Description = &d
		}
		if len(param.ConditionalValues) > 0 {
			p.ConditionalValues = make(map[string]string, len(param.ConditionalValues))
			for name, value := range param.ConditionalValues {
				p.ConditionalValues[name] = value.Value
			}
		}
		parameters = append(parameters, p)
	}

	conditions := make([]remoteconfig.Condition, 0, len(t.Conditions))
	for _, cond := range t.Conditions {
		c := remoteconfig.Condition{
			Name:       cond.Name,
			Expression: cond.Expression,
		}
		if cond.TagColor != "" {
			tag := cond.TagColor
			c.Tag = &tag
		}
		conditions = append(conditions, c)
	}

	return &remoteconfig.Snapshot{
		ID:         newSnapshotID(),
		Parameters: parameters,
		Conditions: conditions,
		CreatedAt:  time.Now(),
		CreatedBy:  "firebase",
	}
}

// templateFromSnapshot converts a domain snapshot to an API template
// body for publishing.
func templateFromSnapshot(s *remoteconfig.Snapshot) *template {
	tmpl := &template{
		Parameters: make(map[string]templateParameter, len(s.Parameters)),
		Conditions: make([]templateCondition, 0, len(s.Conditions)),
	}

	for _, p := range s.Parameters {
		param := templateParameter{}
		if p.DefaultValue != nil {
			param.DefaultValue = &parameterValue{Value: *p.DefaultValue}
		}
		if p.Description != nil {
			param.Description = *p.Description
		}
		if len(p.ConditionalValues) > 0 {
			param.ConditionalValues = make(map[string]parameterValue, len(p.ConditionalValues))
			for name, value := range p.ConditionalValues {
				param.ConditionalValues[name] = parameterValue{Value: value}
			}
		}
		tmpl.Parameters[p.Key] = param
	}

	for _, c := range s.Conditions {
		cond := templateCondition{
			Name:       c.Name,
			Expression: c.Expression,
		}
		if c.Tag != nil {
			cond.TagColor = *c.Tag
		}
		tmpl.Conditions = append(tmpl.Conditions, cond)
	}

	return tmpl
}
