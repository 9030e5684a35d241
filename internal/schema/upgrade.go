// Package schema converts saved-analysis documents between their on-disk
// shapes and compares the dotted version strings they are stamped with.
//
// The current document shape is:
//
//	{
//	    "version": "0.1.197",
//	    "steps_data": [
//	        {"step_version": 1, "step_type": "filter", "params": {...}}
//	    ]
//	}
//
// Older files stored the steps under "steps" as a keyed object, with each
// step's params inlined next to step_version and step_type:
//
//	{
//	    "version": "0.1.197",
//	    "steps": {
//	        "1": {"step_version": 1, "step_type": "filter", "sheet_index": 1}
//	    }
//	}
package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	KeyVersion     = "version"
	KeySteps       = "steps"
	KeyStepsData   = "steps_data"
	KeyStepVersion = "step_version"
	KeyStepType    = "step_type"
	KeyParams      = "params"
)

// RawDocument is a saved analysis as decoded from JSON, before its shape is known.
type RawDocument = map[string]any

// Upgrade rewrites a legacy document into the current shape. It does not
// touch the individual steps' params; that is the job of the per-step
// upgraders that run afterwards.
//
// A nil document is returned as nil. A document without a "steps" key is
// returned as is, so Upgrade is idempotent. The input is never mutated.
func Upgrade(doc RawDocument) (RawDocument, error) {
	if doc == nil {
		return nil, nil
	}
	rawSteps, legacy := doc[KeySteps]
	if !legacy {
		return doc, nil
	}

	version, ok := doc[KeyVersion]
	if !ok {
		return nil, &MissingFieldError{Field: KeyVersion}
	}
	steps, ok := rawSteps.(map[string]any)
	if !ok {
		return nil, &ShapeError{Path: KeySteps, Want: "object", Got: rawSteps}
	}

	stepsData := make([]any, 0, len(steps))
	for _, key := range SortedStepKeys(steps) {
		path := fmt.Sprintf("%s[%s]", KeySteps, key)
		step, ok := steps[key].(map[string]any)
		if !ok {
			return nil, &ShapeError{Path: path, Want: "object", Got: steps[key]}
		}
		stepVersion, ok := step[KeyStepVersion]
		if !ok {
			return nil, &MissingFieldError{Path: path, Field: KeyStepVersion}
		}
		stepType, ok := step[KeyStepType]
		if !ok {
			return nil, &MissingFieldError{Path: path, Field: KeyStepType}
		}
		params := make(map[string]any, len(step))
		for k, v := range step {
			if k == KeyStepVersion || k == KeyStepType {
				continue
			}
			params[k] = v
		}
		stepsData = append(stepsData, map[string]any{
			KeyStepVersion: stepVersion,
			KeyStepType:    stepType,
			KeyParams:      params,
		})
	}

	return RawDocument{
		KeyVersion:   version,
		KeyStepsData: stepsData,
	}, nil
}

// SortedStepKeys orders the keys of a legacy steps object in recording order.
// Keys that parse as integers come first in numeric order; anything else
// follows in lexical order.
func SortedStepKeys(steps map[string]any) []string {
	keys := make([]string, 0, len(steps))
	for k := range steps {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, aErr := strconv.ParseInt(strings.TrimSpace(keys[i]), 10, 64)
		b, bErr := strconv.ParseInt(strings.TrimSpace(keys[j]), 10, 64)
		switch {
		case aErr == nil && bErr == nil:
			if a != b {
				return a < b
			}
			return keys[i] < keys[j]
		case aErr == nil:
			return true
		case bErr == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}
