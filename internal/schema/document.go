package schema

import (
	"encoding/json"
	"fmt"
	"math"
)

type Shape int

const (
	ShapeNone Shape = iota
	ShapeLegacy
	ShapeCurrent
	ShapeUnrecognized
)

func (s Shape) String() string {
	switch s {
	case ShapeNone:
		return "none"
	case ShapeLegacy:
		return "legacy"
	case ShapeCurrent:
		return "current"
	default:
		return "unrecognized"
	}
}

// Classify probes a raw document for the keys that tell its shape apart.
// "steps" wins over "steps_data" because that is the key Upgrade acts on.
func Classify(doc RawDocument) Shape {
	if doc == nil {
		return ShapeNone
	}
	if _, ok := doc[KeySteps]; ok {
		return ShapeLegacy
	}
	if _, ok := doc[KeyStepsData]; ok {
		return ShapeCurrent
	}
	return ShapeUnrecognized
}

// SavedAnalysis is a document in the current shape.
type SavedAnalysis struct {
	Version string       `json:"version"`
	Steps   []StepRecord `json:"steps_data"`
}

type StepRecord struct {
	StepVersion int            `json:"step_version"`
	StepType    string         `json:"step_type"`
	Params      map[string]any `json:"params"`
}

// Decode upgrades doc and converts the result into typed records. A nil
// document decodes to nil.
func Decode(doc RawDocument) (*SavedAnalysis, error) {
	upgraded, err := Upgrade(doc)
	if err != nil {
		return nil, err
	}
	if upgraded == nil {
		return nil, nil
	}

	rawVersion, ok := upgraded[KeyVersion]
	if !ok {
		return nil, &MissingFieldError{Field: KeyVersion}
	}
	version, ok := rawVersion.(string)
	if !ok {
		return nil, &ShapeError{Path: KeyVersion, Want: "string", Got: rawVersion}
	}
	rawSteps, ok := upgraded[KeyStepsData]
	if !ok {
		return nil, &MissingFieldError{Field: KeyStepsData}
	}
	steps, ok := rawSteps.([]any)
	if !ok && rawSteps != nil {
		return nil, &ShapeError{Path: KeyStepsData, Want: "array", Got: rawSteps}
	}

	out := &SavedAnalysis{Version: version, Steps: make([]StepRecord, 0, len(steps))}
	for i, raw := range steps {
		step, err := decodeStep(fmt.Sprintf("%s[%d]", KeyStepsData, i), raw)
		if err != nil {
			return nil, err
		}
		out.Steps = append(out.Steps, step)
	}
	return out, nil
}

func decodeStep(path string, raw any) (StepRecord, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return StepRecord{}, &ShapeError{Path: path, Want: "object", Got: raw}
	}
	rawVersion, ok := m[KeyStepVersion]
	if !ok {
		return StepRecord{}, &MissingFieldError{Path: path, Field: KeyStepVersion}
	}
	stepVersion, ok := toInt(rawVersion)
	if !ok {
		return StepRecord{}, &ShapeError{Path: path + "." + KeyStepVersion, Want: "integer", Got: rawVersion}
	}
	rawType, ok := m[KeyStepType]
	if !ok {
		return StepRecord{}, &MissingFieldError{Path: path, Field: KeyStepType}
	}
	stepType, ok := rawType.(string)
	if !ok {
		return StepRecord{}, &ShapeError{Path: path + "." + KeyStepType, Want: "string", Got: rawType}
	}
	params := map[string]any{}
	if rawParams, ok := m[KeyParams]; ok && rawParams != nil {
		p, ok := rawParams.(map[string]any)
		if !ok {
			return StepRecord{}, &ShapeError{Path: path + "." + KeyParams, Want: "object", Got: rawParams}
		}
		params = p
	}
	return StepRecord{StepVersion: stepVersion, StepType: stepType, Params: params}, nil
}

// Raw renders the document back into its current wire shape.
func (a *SavedAnalysis) Raw() RawDocument {
	if a == nil {
		return nil
	}
	steps := make([]any, 0, len(a.Steps))
	for _, s := range a.Steps {
		params := s.Params
		if params == nil {
			params = map[string]any{}
		}
		steps = append(steps, map[string]any{
			KeyStepVersion: s.StepVersion,
			KeyStepType:    s.StepType,
			KeyParams:      params,
		})
	}
	return RawDocument{
		KeyVersion:   a.Version,
		KeyStepsData: steps,
	}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return fitInt(n)
	case float64:
		// 1<<63 is the smallest float64 above the int64 range; NaN fails the Trunc check.
		if n != math.Trunc(n) || n < math.MinInt64 || n >= 1<<63 {
			return 0, false
		}
		return fitInt(int64(n))
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return fitInt(i)
	default:
		return 0, false
	}
}

func fitInt(i int64) (int, bool) {
	if int64(int(i)) != i {
		return 0, false
	}
	return int(i), true
}
