// Package remoteconfig provides the domain model for Remote Config
// templates: parameters, named conditions, and immutable snapshots.
package remoteconfig

import (
	"time"

	"github.com/google/uuid"
)

// Env identifies a Remote Config environment.
type Env string

const (
	// EnvProd is the production environment.
	EnvProd Env = "prod"

	// EnvStaging is the staging environment.
	EnvStaging Env = "staging"
)

// Valid returns true if the environment is a known value.
func (e Env) Valid() bool {
	return e == EnvProd || e == EnvStaging
}

// ParseEnv parses an environment string. An empty string defaults to prod.
func ParseEnv(s string) (Env, error) {
	if s == "" {
		return EnvProd, nil
	}
	e := Env(s)
	if !e.Valid() {
		return "", ErrInvalidEnv
	}
	return e, nil
}

// Parameter is a single Remote Config parameter.
//
// DefaultValue and Description are pointers because an absent value and
// an explicit empty string are different things in a template.
type Parameter struct {
	// Key uniquely identifies the parameter within a snapshot.
	Key string `json:"key" bson:"key"`

	// DefaultValue is the value served when no condition matches.
	DefaultValue *string `json:"defaultValue,omitempty" bson:"default_value,omitempty"`

	// ConditionalValues maps condition names to the value served when
	// that condition matches.
	ConditionalValues map[string]string `json:"conditionalValues,omitempty" bson:"conditional_values,omitempty"`

	// Description is free-form documentation.
	Description *string `json:"description,omitempty" bson:"description,omitempty"`
}

// Equal reports whether two parameters carry the same content.
// Conditional value map ordering is irrelevant; a nil map equals an
// empty one.
func (p Parameter) Equal(other Parameter) bool {
	if !strPtrEqual(p.DefaultValue, other.DefaultValue) {
		return false
	}
	if !strPtrEqual(p.Description, other.Description) {
		return false
	}
	if len(p.ConditionalValues) != len(other.ConditionalValues) {
		return false
	}
	for name, value := range p.ConditionalValues {
		otherValue, ok := other.ConditionalValues[name]
		if !ok || otherValue != value {
			return false
		}
	}
	return true
}

// Condition is a named targeting rule. The expression is opaque to this
// system; it is parsed only by the Remote Config backend.
type Condition struct {
	// Name uniquely identifies the condition within a snapshot.
	Name string `json:"name" bson:"name"`

	// Expression is the boolean targeting expression.
	Expression string `json:"expression" bson:"expression"`

	// Tag is an optional display tag (color in the Firebase console).
	Tag *string `json:"tag,omitempty" bson:"tag,omitempty"`
}

// Equal reports whether two conditions carry the same content, treating
// an absent tag as distinct from an empty one.
func (c Condition) Equal(other Condition) bool {
	return c.Expression == other.Expression && strPtrEqual(c.Tag, other.Tag)
}

// Snapshot is an immutable capture of a Remote Config template at a
// point in time. A new snapshot is always a new value; snapshots are
// never mutated in place.
type Snapshot struct {
	// ID uniquely identifies this snapshot.
	ID string `json:"id" bson:"id"`

	// Parameters is the ordered list of parameters. Order matters for
	// display only, not for semantics.
	Parameters []Parameter `json:"parameters" bson:"parameters"`

	// Conditions is the list of named conditions.
	Conditions []Condition `json:"conditions" bson:"conditions"`

	// CreatedAt is when the snapshot was taken.
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`

	// CreatedBy identifies who or what took the snapshot.
	CreatedBy string `json:"createdBy" bson:"created_by"`
}

// NewSnapshot creates a snapshot with a generated ID, copying the input
// slices so the caller cannot mutate the snapshot afterwards.
func NewSnapshot(parameters []Parameter, conditions []Condition, createdBy string) *Snapshot {
	s := &Snapshot{
		ID:         uuid.New().String(),
		Parameters: make([]Parameter, len(parameters)),
		Conditions: make([]Condition, len(conditions)),
		CreatedAt:  time.Now(),
		CreatedBy:  createdBy,
	}
	copy(s.Parameters, parameters)
	copy(s.Conditions, conditions)
	return s
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	copied := *s
	copied.Parameters = make([]Parameter, len(s.Parameters))
	for i, p := range s.Parameters {
		copied.Parameters[i] = p.clone()
	}
	copied.Conditions = make([]Condition, len(s.Conditions))
	copy(copied.Conditions, s.Conditions)
	return &copied
}

// ParameterIndex returns the parameters keyed by parameter key.
// Duplicate keys are not validated against; the last occurrence wins.
func (s *Snapshot) ParameterIndex() map[string]Parameter {
	index := make(map[string]Parameter, len(s.Parameters))
	for _, p := range s.Parameters {
		index[p.Key] = p
	}
	return index
}

// ConditionIndex returns the conditions keyed by condition name.
// Duplicate names are not validated against; the last occurrence wins.
func (s *Snapshot) ConditionIndex() map[string]Condition {
	index := make(map[string]Condition, len(s.Conditions))
	for _, c := range s.Conditions {
		index[c.Name] = c
	}
	return index
}

// Condition returns the named condition and whether it exists.
func (s *Snapshot) Condition(name string) (Condition, bool) {
	for _, c := range s.Conditions {
		if c.Name == name {
			return c, true
		}
	}
	return Condition{}, false
}

func (p Parameter) clone() Parameter {
	copied := p
	if p.DefaultValue != nil {
		v := *p.DefaultValue
		copied.DefaultValue = &v
	}
	if p.Description != nil {
		v := *p.Description
		copied.Description = &v
	}
	if p.ConditionalValues != nil {
		copied.ConditionalValues = make(map[string]string, len(p.ConditionalValues))
		for k, v := range p.ConditionalValues {
			copied.ConditionalValues[k] = v
		}
	}
	return copied
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
