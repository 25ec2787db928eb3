// Package diff computes the structural difference between two Remote
// Config snapshots. Generation is pure: no I/O, no side effects, and
// deterministic output regardless of input ordering.
package diff

import (
	"sort"

	"github.com/rcflow/rcflow/domain/remoteconfig"
)

// ParameterChange records a parameter present in both snapshots whose
// content differs.
type ParameterChange struct {
	Key  string                  `json:"key" bson:"key"`
	From *remoteconfig.Parameter `json:"from" bson:"from"`
	To   *remoteconfig.Parameter `json:"to" bson:"to"`
}

// ConditionChange records a condition present in both snapshots whose
// content differs.
type ConditionChange struct {
	Name string                  `json:"name" bson:"name"`
	From *remoteconfig.Condition `json:"from" bson:"from"`
	To   *remoteconfig.Condition `json:"to" bson:"to"`
}

// Diff is the structural difference between a base snapshot and a
// candidate snapshot. It is computed once, at change-request creation
// time, and never recomputed afterwards.
type Diff struct {
	AddedParams       []string          `json:"addedParams" bson:"added_params"`
	RemovedParams     []string          `json:"removedParams" bson:"removed_params"`
	UpdatedParams     []ParameterChange `json:"updatedParams" bson:"updated_params"`
	AddedConditions   []string          `json:"addedConditions" bson:"added_conditions"`
	RemovedConditions []string          `json:"removedConditions" bson:"removed_conditions"`
	UpdatedConditions []ConditionChange `json:"updatedConditions" bson:"updated_conditions"`
}

// Generate computes the diff from base to candidate.
//
// Parameters are keyed by key and conditions by name; duplicates are
// not validated against (last occurrence wins). Result lists are sorted
// lexicographically so that permuting either snapshot's lists yields an
// identical diff.
func Generate(base, candidate *remoteconfig.Snapshot) Diff {
	d := Diff{
		AddedParams:       []string{},
		RemovedParams:     []string{},
		UpdatedParams:     []ParameterChange{},
		AddedConditions:   []string{},
		RemovedConditions: []string{},
		UpdatedConditions: []ConditionChange{},
	}

	baseParams := base.ParameterIndex()
	candidateParams := candidate.ParameterIndex()

	for _, key := range sortedKeys(candidateParams) {
		candidateParam := candidateParams[key]
		baseParam, ok := baseParams[key]
		if !ok {
			d.AddedParams = append(d.AddedParams, key)
			continue
		}
		if !baseParam.Equal(candidateParam) {
			from := baseParam
			to := candidateParam
			d.UpdatedParams = append(d.UpdatedParams, ParameterChange{Key: key, From: &from, To: &to})
		}
	}
	for _, key := range sortedKeys(baseParams) {
		if _, ok := candidateParams[key]; !ok {
			d.RemovedParams = append(d.RemovedParams, key)
		}
	}

	baseConds := base.ConditionIndex()
	candidateConds := candidate.ConditionIndex()

	for _, name := range sortedKeys(candidateConds) {
		candidateCond := candidateConds[name]
		baseCond, ok := baseConds[name]
		if !ok {
			d.AddedConditions = append(d.AddedConditions, name)
			continue
		}
		if !baseCond.Equal(candidateCond) {
			from := baseCond
			to := candidateCond
			d.UpdatedConditions = append(d.UpdatedConditions, ConditionChange{Name: name, From: &from, To: &to})
		}
	}
	for _, name := range sortedKeys(baseConds) {
		if _, ok := candidateConds[name]; !ok {
			d.RemovedConditions = append(d.RemovedConditions, name)
		}
	}

	return d
}

// Empty returns true if the diff contains no changes.
func (d Diff) Empty() bool {
	return len(d.AddedParams) == 0 &&
		len(d.RemovedParams) == 0 &&
		len(d.UpdatedParams) == 0 &&
		len(d.AddedConditions) == 0 &&
		len(d.RemovedConditions) == 0 &&
		len(d.UpdatedConditions) == 0
}

// ConditionChangeCount returns the number of condition-level changes.
func (d Diff) ConditionChangeCount() int {
	return len(d.AddedConditions) + len(d.RemovedConditions) + len(d.UpdatedConditions)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
