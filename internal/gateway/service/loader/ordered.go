package loader

import (
	"fmt"

	"savedanalysis/internal/schema"
	"savedanalysis/internal/util/jsonutil"
)

// upgradeOrdered renders the format upgrade of a legacy file with "version"
// first and every step's params in the order they were written. raw must
// already have passed schema.Upgrade.
func upgradeOrdered(raw []byte) ([]byte, error) {
	tree, err := jsonutil.DecodeOrdered(raw)
	if err != nil {
		return nil, err
	}
	src, ok := tree.(*jsonutil.Object)
	if !ok {
		return nil, fmt.Errorf("expected object, got %T", tree)
	}
	version, _ := src.Get(schema.KeyVersion)
	rawSteps, _ := src.Get(schema.KeySteps)
	steps, ok := rawSteps.(*jsonutil.Object)
	if !ok {
		return nil, &schema.ShapeError{Path: schema.KeySteps, Want: "object", Got: rawSteps}
	}

	stepsData := make([]any, 0, steps.Len())
	for _, key := range schema.SortedStepKeys(steps.Map()) {
		v, _ := steps.Get(key)
		step, ok := v.(*jsonutil.Object)
		if !ok {
			return nil, &schema.ShapeError{Path: schema.KeySteps + "[" + key + "]", Want: "object", Got: v}
		}
		stepVersion, _ := step.Get(schema.KeyStepVersion)
		stepType, _ := step.Get(schema.KeyStepType)
		params := jsonutil.NewObject()
		for _, k := range step.Keys() {
			if k == schema.KeyStepVersion || k == schema.KeyStepType {
				continue
			}
			pv, _ := step.Get(k)
			params.Set(k, pv)
		}
		rec := jsonutil.NewObject()
		rec.Set(schema.KeyStepVersion, stepVersion)
		rec.Set(schema.KeyStepType, stepType)
		rec.Set(schema.KeyParams, params)
		stepsData = append(stepsData, rec)
	}

	out := jsonutil.NewObject()
	out.Set(schema.KeyVersion, version)
	out.Set(schema.KeyStepsData, stepsData)
	return jsonutil.MarshalNoEscapeIndent(out, "", "  ")
}

// orderedDocument lays a typed document out in wire order. Params written
// by step upgraders have no source order and are emitted sorted.
func orderedDocument(a *schema.SavedAnalysis) *jsonutil.Object {
	steps := make([]any, 0, len(a.Steps))
	for _, s := range a.Steps {
		params := s.Params
		if params == nil {
			params = map[string]any{}
		}
		rec := jsonutil.NewObject()
		rec.Set(schema.KeyStepVersion, s.StepVersion)
		rec.Set(schema.KeyStepType, s.StepType)
		rec.Set(schema.KeyParams, params)
		steps = append(steps, rec)
	}
	out := jsonutil.NewObject()
	out.Set(schema.KeyVersion, a.Version)
	out.Set(schema.KeyStepsData, steps)
	return out
}
