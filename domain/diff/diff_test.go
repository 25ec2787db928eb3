package diff

import (
	"reflect"
	"testing"

	"github.com/rcflow/rcflow/domain/remoteconfig"
)

func strPtr(s string) *string { return &s }

func snap(params []remoteconfig.Parameter, conds []remoteconfig.Condition) *remoteconfig.Snapshot {
	return &remoteconfig.Snapshot{ID: "s", Parameters: params, Conditions: conds}
}

func TestGenerate_IdenticalSnapshotsYieldEmptyDiff(t *testing.T) {
	t.Parallel()

	s := snap(
		[]remoteconfig.Parameter{
			{Key: "a", DefaultValue: strPtr("1")},
			{Key: "b", ConditionalValues: map[string]string{"us": "x"}},
		},
		[]remoteconfig.Condition{{Name: "us", Expression: "country=='US'"}},
	)

	d := Generate(s, s)
	if !d.Empty() {
		t.Errorf("expected empty diff, got %+v", d)
	}
}

func TestGenerate_UpdatedDefaultValue(t *testing.T) {
	t.Parallel()

	base := snap([]remoteconfig.Parameter{{Key: "x", DefaultValue: strPtr("1")}}, nil)
	candidate := snap([]remoteconfig.Parameter{{Key: "x", DefaultValue: strPtr("2")}}, nil)

	d := Generate(base, candidate)

	if len(d.UpdatedParams) != 1 {
		t.Fatalf("expected 1 updated parameter, got %d", len(d.UpdatedParams))
	}
	change := d.UpdatedParams[0]
	if change.Key != "x" {
		t.Errorf("key = %s, want x", change.Key)
	}
	if *change.From.DefaultValue != "1" || *change.To.DefaultValue != "2" {
		t.Errorf("from/to = %v/%v, want 1/2", change.From.DefaultValue, change.To.DefaultValue)
	}
	if len(d.AddedParams) != 0 || len(d.RemovedParams) != 0 {
		t.Errorf("unexpected added/removed entries: %+v", d)
	}
}

func TestGenerate_AddedAndRemovedParams(t *testing.T) {
	t.Parallel()

	base := snap([]remoteconfig.Parameter{{Key: "old", DefaultValue: strPtr("v")}}, nil)
	candidate := snap([]remoteconfig.Parameter{{Key: "new", DefaultValue: strPtr("v")}}, nil)

	d := Generate(base, candidate)

	// Same content under a different key is a remove plus an add, never
	// a rename.
	if !reflect.DeepEqual(d.AddedParams, []string{"new"}) {
		t.Errorf("AddedParams = %v, want [new]", d.AddedParams)
	}
	if !reflect.DeepEqual(d.RemovedParams, []string{"old"}) {
		t.Errorf("RemovedParams = %v, want [old]", d.RemovedParams)
	}
	if len(d.UpdatedParams) != 0 {
		t.Errorf("UpdatedParams = %v, want empty", d.UpdatedParams)
	}
}

func TestGenerate_AddedConditionLeavesParamsUntouched(t *testing.T) {
	t.Parallel()

	base := snap([]remoteconfig.Parameter{{Key: "p", DefaultValue: strPtr("1")}}, nil)
	candidate := snap(
		[]remoteconfig.Parameter{{Key: "p", DefaultValue: strPtr("1")}},
		[]remoteconfig.Condition{{Name: "us", Expression: "country=='US'"}},
	)

	d := Generate(base, candidate)

	if !reflect.DeepEqual(d.AddedConditions, []string{"us"}) {
		t.Errorf("AddedConditions = %v, want [us]", d.AddedConditions)
	}
	if len(d.AddedParams)+len(d.RemovedParams)+len(d.UpdatedParams) != 0 {
		t.Errorf("parameter diff affected by condition add: %+v", d)
	}
}

func TestGenerate_UpdatedConditionExpression(t *testing.T) {
	t.Parallel()

	base := snap(nil, []remoteconfig.Condition{{Name: "us", Expression: "country=='US'"}})
	candidate := snap(nil, []remoteconfig.Condition{{Name: "us", Expression: "country=='CA'"}})

	d := Generate(base, candidate)

	if len(d.UpdatedConditions) != 1 {
		t.Fatalf("expected 1 updated condition, got %d", len(d.UpdatedConditions))
	}
	if d.UpdatedConditions[0].From.Expression != "country=='US'" {
		t.Errorf("From.Expression = %s", d.UpdatedConditions[0].From.Expression)
	}
	if d.UpdatedConditions[0].To.Expression != "country=='CA'" {
		t.Errorf("To.Expression = %s", d.UpdatedConditions[0].To.Expression)
	}
}

func TestGenerate_TagChangeIsAnUpdate(t *testing.T) {
	t.Parallel()

	base := snap(nil, []remoteconfig.Condition{{Name: "us", Expression: "e"}})
	candidate := snap(nil, []remoteconfig.Condition{{Name: "us", Expression: "e", Tag: strPtr("BLUE")}})

	d := Generate(base, candidate)
	if len(d.UpdatedConditions) != 1 {
		t.Fatalf("expected tag change to register as update, got %+v", d)
	}
}

func TestGenerate_OrderIndependence(t *testing.T) {
	t.Parallel()

	params := []remoteconfig.Parameter{
		{Key: "a", DefaultValue: strPtr("1")},
		{Key: "b", DefaultValue: strPtr("2")},
		{Key: "c", ConditionalValues: map[string]string{"us": "x", "eu": "y"}},
	}
	conds := []remoteconfig.Condition{
		{Name: "us", Expression: "country=='US'"},
		{Name: "eu", Expression: "country=='DE'"},
	}
	permutedParams := []remoteconfig.Parameter{params[2], params[0], params[1]}
	permutedConds := []remoteconfig.Condition{conds[1], conds[0]}

	candidate := snap(
		[]remoteconfig.Parameter{
			{Key: "a", DefaultValue: strPtr("changed")},
			{Key: "d", DefaultValue: strPtr("new")},
		},
		conds,
	)

	d1 := Generate(snap(params, conds), candidate)
	d2 := Generate(snap(permutedParams, permutedConds), candidate)

	if !reflect.DeepEqual(d1, d2) {
		t.Errorf("diff depends on input order:\n%+v\n%+v", d1, d2)
	}
}

func TestGenerate_Completeness(t *testing.T) {
	t.Parallel()

	base := snap([]remoteconfig.Parameter{
		{Key: "kept", DefaultValue: strPtr("1")},
		{Key: "changed", DefaultValue: strPtr("1")},
		{Key: "dropped", DefaultValue: strPtr("1")},
	}, nil)
	candidate := snap([]remoteconfig.Parameter{
		{Key: "kept", DefaultValue: strPtr("1")},
		{Key: "changed", DefaultValue: strPtr("2")},
		{Key: "introduced", DefaultValue: strPtr("1")},
	}, nil)

	d := Generate(base, candidate)

	seen := make(map[string]int)
	for _, k := range d.AddedParams {
		seen[k]++
	}
	for _, k := range d.RemovedParams {
		seen[k]++
	}
	for _, c := range d.UpdatedParams {
		seen[c.Key]++
	}

	for key, want := range map[string]int{"kept": 0, "changed": 1, "dropped": 1, "introduced": 1} {
		if seen[key] != want {
			t.Errorf("key %q appears %d times in diff, want %d", key, seen[key], want)
		}
	}
}

func TestGenerate_EmptyStringDefaultDiffersFromAbsent(t *testing.T) {
	t.Parallel()

	base := snap([]remoteconfig.Parameter{{Key: "x"}}, nil)
	candidate := snap([]remoteconfig.Parameter{{Key: "x", DefaultValue: strPtr("")}}, nil)

	d := Generate(base, candidate)
	if len(d.UpdatedParams) != 1 {
		t.Fatalf("expected absent vs empty-string default to diff, got %+v", d)
	}
}

func TestGenerate_EmptyListsAreNonNil(t *testing.T) {
	t.Parallel()

	d := Generate(snap(nil, nil), snap(nil, nil))

	if d.AddedParams == nil || d.RemovedParams == nil || d.UpdatedParams == nil ||
		d.AddedConditions == nil || d.RemovedConditions == nil || d.UpdatedConditions == nil {
		t.Error("diff lists must be non-nil so they serialize as JSON arrays")
	}
}
