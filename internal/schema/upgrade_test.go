package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpgradeNil(t *testing.T) {
	out, err := Upgrade(nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestUpgradeLegacyMovesInlinedFieldsIntoParams(t *testing.T) {
	doc := RawDocument{
		"version": "0.1.197",
		"steps": map[string]any{
			"1": map[string]any{
				"step_version": 1,
				"step_type":    "filter",
				"sheet_index":  0,
				"value":        "x",
			},
		},
	}

	out, err := Upgrade(doc)
	require.NoError(t, err)
	assert.Equal(t, RawDocument{
		"version": "0.1.197",
		"steps_data": []any{
			map[string]any{
				"step_version": 1,
				"step_type":    "filter",
				"params": map[string]any{
					"sheet_index": 0,
					"value":       "x",
				},
			},
		},
	}, out)
}

func TestUpgradeDoesNotMutateInput(t *testing.T) {
	step := map[string]any{"step_version": 2, "step_type": "sort", "column_id": "A"}
	doc := RawDocument{"version": "0.1.50", "steps": map[string]any{"1": step}}

	_, err := Upgrade(doc)
	require.NoError(t, err)
	assert.Contains(t, doc, "steps")
	assert.NotContains(t, doc, "steps_data")
	assert.Equal(t, map[string]any{"step_version": 2, "step_type": "sort", "column_id": "A"}, step)
}

func TestUpgradeOrdersLegacyStepsByKey(t *testing.T) {
	doc := RawDocument{
		"version": "0.1.10",
		"steps": map[string]any{
			"10": map[string]any{"step_version": 1, "step_type": "c"},
			"2":  map[string]any{"step_version": 1, "step_type": "b"},
			"1":  map[string]any{"step_version": 1, "step_type": "a"},
			"x":  map[string]any{"step_version": 1, "step_type": "d"},
		},
	}

	out, err := Upgrade(doc)
	require.NoError(t, err)
	steps := out["steps_data"].([]any)
	require.Len(t, steps, 4)
	var types []string
	for _, s := range steps {
		types = append(types, s.(map[string]any)["step_type"].(string))
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, types)
}

func TestUpgradeEmptyLegacySteps(t *testing.T) {
	out, err := Upgrade(RawDocument{"version": "0.1.0", "steps": map[string]any{}})
	require.NoError(t, err)
	assert.Equal(t, RawDocument{"version": "0.1.0", "steps_data": []any{}}, out)
}

func TestUpgradePassThrough(t *testing.T) {
	cases := map[string]RawDocument{
		"current":      {"version": "0.2.0", "steps_data": []any{}},
		"unrecognized": {"hello": "world"},
		"empty":        {},
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			out, err := Upgrade(doc)
			require.NoError(t, err)
			assert.Equal(t, doc, out)
		})
	}
}

func TestUpgradeIsIdempotent(t *testing.T) {
	doc := RawDocument{
		"version": "0.1.3",
		"steps": map[string]any{
			"1": map[string]any{"step_version": 1, "step_type": "add_column", "sheet_index": 0},
			"2": map[string]any{"step_version": 3, "step_type": "set_formula", "new_formula": "=A<B"},
		},
	}
	once, err := Upgrade(doc)
	require.NoError(t, err)
	twice, err := Upgrade(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestUpgradeMissingFields(t *testing.T) {
	cases := []struct {
		name  string
		doc   RawDocument
		field string
	}{
		{
			name:  "version",
			doc:   RawDocument{"steps": map[string]any{}},
			field: "version",
		},
		{
			name:  "step_version",
			doc:   RawDocument{"version": "1.0.0", "steps": map[string]any{"1": map[string]any{"step_type": "filter"}}},
			field: "step_version",
		},
		{
			name:  "step_type",
			doc:   RawDocument{"version": "1.0.0", "steps": map[string]any{"1": map[string]any{"step_version": 1}}},
			field: "step_type",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Upgrade(tc.doc)
			assert.Nil(t, out)
			require.ErrorIs(t, err, ErrMissingField)
			var mf *MissingFieldError
			require.True(t, errors.As(err, &mf))
			assert.Equal(t, tc.field, mf.Field)
		})
	}
}

func TestUpgradeFailsAtomicallyOnLaterBadStep(t *testing.T) {
	doc := RawDocument{
		"version": "1.0.0",
		"steps": map[string]any{
			"1": map[string]any{"step_version": 1, "step_type": "filter"},
			"2": map[string]any{"step_type": "sort"},
		},
	}
	out, err := Upgrade(doc)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestUpgradeShapeErrors(t *testing.T) {
	_, err := Upgrade(RawDocument{"version": "1.0.0", "steps": []any{}})
	assert.ErrorIs(t, err, ErrShape)

	_, err = Upgrade(RawDocument{"version": "1.0.0", "steps": map[string]any{"1": "filter"}})
	assert.ErrorIs(t, err, ErrShape)
}

func TestSortedStepKeys(t *testing.T) {
	keys := SortedStepKeys(map[string]any{"b": nil, "3": nil, "a": nil, "20": nil, "-1": nil})
	assert.Equal(t, []string{"-1", "3", "20", "a", "b"}, keys)
}
