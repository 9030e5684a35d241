package loader

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"savedanalysis/internal/schema"
)

// StepUpgrader rewrites one step's params into the shape the running release
// expects. It receives steps written by releases older than the app version
// and returns the replacement record.
type StepUpgrader interface {
	UpgradeStep(ctx context.Context, docVersion string, step schema.StepRecord) (schema.StepRecord, error)
}

type StepUpgraderFunc func(ctx context.Context, docVersion string, step schema.StepRecord) (schema.StepRecord, error)

func (f StepUpgraderFunc) UpgradeStep(ctx context.Context, docVersion string, step schema.StepRecord) (schema.StepRecord, error) {
	return f(ctx, docVersion, step)
}

// StepRegistry maps a step_type to the upgraders that run for it, in
// registration order.
type StepRegistry struct {
	mu     sync.RWMutex
	byType map[string][]StepUpgrader
}

func NewStepRegistry() *StepRegistry {
	return &StepRegistry{byType: make(map[string][]StepUpgrader)}
}

func (r *StepRegistry) Register(stepType string, u StepUpgrader) {
	stepType = strings.TrimSpace(stepType)
	if stepType == "" || u == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byType[stepType] = append(r.byType[stepType], u)
}

func (r *StepRegistry) lookup(stepType string) []StepUpgrader {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byType[stepType]
}

// Apply runs the registered upgraders over every step and returns a new slice
// along with the number of upgrader calls made.
func (r *StepRegistry) Apply(ctx context.Context, doc *schema.SavedAnalysis) (steps []schema.StepRecord, applied int, err error) {
	steps = make([]schema.StepRecord, 0, len(doc.Steps))
	for i, step := range doc.Steps {
		for _, u := range r.lookup(step.StepType) {
			if err := ctx.Err(); err != nil {
				return nil, 0, err
			}
			next, err := u.UpgradeStep(ctx, doc.Version, step)
			if err != nil {
				return nil, 0, fmt.Errorf("upgrade step %d (%s v%d): %w", i, step.StepType, step.StepVersion, err)
			}
			step = next
			applied++
		}
		steps = append(steps, step)
	}
	return steps, applied, nil
}
