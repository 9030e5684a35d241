package loader

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	analysisrepo "savedanalysis/internal/gateway/repository/analysis"
	"savedanalysis/internal/schema"
	"savedanalysis/internal/util/jsonutil"
)

type Store = analysisrepo.Store

// Result describes one saved analysis after it went through the load path.
type Result struct {
	ID string
	// Document is nil when the stored file is a JSON null, which means no
	// analysis was ever saved under this id.
	Document      *schema.SavedAnalysis
	SourceShape   schema.Shape
	SourceVersion string
	// FormatUpgraded is set when the file was in the legacy "steps" shape.
	FormatUpgraded bool
	// NeedsStepUpgrade is set when the file predates the app version. The
	// document is only restamped with the app version when StepUpgrades > 0,
	// so files no upgrader touched keep their version for later releases.
	NeedsStepUpgrade bool
	StepUpgrades     int
}

func (r *Result) Changed() bool {
	return r != nil && r.Document != nil && (r.FormatUpgraded || r.StepUpgrades > 0)
}

type Option func(*Service)

func WithStepRegistry(reg *StepRegistry) Option {
	return func(s *Service) {
		if reg != nil {
			s.steps = reg
		}
	}
}

type Service struct {
	store      Store
	appVersion string
	steps      *StepRegistry
}

func New(store Store, appVersion string, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	appVersion = strings.TrimSpace(appVersion)
	if _, err := schema.ParseVersion(appVersion); err != nil {
		return nil, fmt.Errorf("app version: %w", err)
	}
	s := &Service{
		store:      store,
		appVersion: appVersion,
		steps:      NewStepRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) AppVersion() string { return s.appVersion }

func (s *Service) Steps() *StepRegistry { return s.steps }

func (s *Service) List(ctx context.Context) ([]string, error) {
	return s.store.List(ctx)
}

// Load reads a saved analysis, brings it to the current format and, when it
// was written by an earlier release, runs the step upgraders over it.
func (s *Service) Load(ctx context.Context, id string) (*Result, error) {
	_, res, err := s.load(ctx, id)
	return res, err
}

func (s *Service) load(ctx context.Context, id string) ([]byte, *Result, error) {
	raw, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("load analysis %s: %w", id, err)
	}
	res, err := s.upgrade(ctx, raw)
	if err != nil {
		return nil, nil, fmt.Errorf("load analysis %s: %w", id, err)
	}
	res.ID = strings.TrimSpace(id)
	if res.FormatUpgraded {
		log.Printf("analysis %s: upgraded legacy steps format (version %s, %d steps)", res.ID, res.SourceVersion, len(res.Document.Steps))
	}
	if res.NeedsStepUpgrade {
		log.Printf("analysis %s: version %s predates %s, ran %d step upgrades", res.ID, res.SourceVersion, s.appVersion, res.StepUpgrades)
	}
	return raw, res, nil
}

// Decode runs the load path over an in-memory file without touching the store.
func (s *Service) Decode(ctx context.Context, raw []byte) (*Result, error) {
	return s.upgrade(ctx, raw)
}

func (s *Service) upgrade(ctx context.Context, raw []byte) (*Result, error) {
	doc, err := jsonutil.DecodeDocument(raw)
	if err != nil {
		return nil, err
	}
	res := &Result{SourceShape: schema.Classify(doc)}
	typed, err := schema.Decode(doc)
	if err != nil {
		return nil, err
	}
	if typed == nil {
		return res, nil
	}
	res.Document = typed
	res.SourceVersion = typed.Version
	res.FormatUpgraded = res.SourceShape == schema.ShapeLegacy

	prev, err := schema.IsPrevVersion(typed.Version, s.appVersion)
	if err != nil {
		return nil, err
	}
	if !prev {
		return res, nil
	}
	steps, applied, err := s.steps.Apply(ctx, typed)
	if err != nil {
		return nil, err
	}
	res.NeedsStepUpgrade = true
	res.StepUpgrades = applied
	if applied > 0 {
		res.Document = &schema.SavedAnalysis{Version: s.appVersion, Steps: steps}
	}
	return res, nil
}

// Save stores a saved analysis file as given, after checking that it goes
// through the load path cleanly.
func (s *Service) Save(ctx context.Context, id string, raw []byte) (*Result, error) {
	id, err := analysisrepo.NormalizeID(id)
	if err != nil {
		return nil, err
	}
	res, err := s.upgrade(ctx, raw)
	if err != nil {
		return nil, err
	}
	if err := s.store.Put(ctx, id, raw); err != nil {
		return nil, fmt.Errorf("save analysis %s: %w", id, err)
	}
	res.ID = id
	return res, nil
}

// Migrate loads a saved analysis and writes it back in the current shape
// when the load path changed anything.
func (s *Service) Migrate(ctx context.Context, id string) (*Result, error) {
	raw, res, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !res.Changed() {
		return res, nil
	}
	var out []byte
	if res.StepUpgrades == 0 {
		// params are untouched, keep them as the file had them
		out, err = upgradeOrdered(raw)
	} else {
		out, err = jsonutil.MarshalNoEscapeIndent(orderedDocument(res.Document), "", "  ")
	}
	if err != nil {
		return nil, fmt.Errorf("encode analysis %s: %w", res.ID, err)
	}
	if err := s.store.Put(ctx, res.ID, out); err != nil {
		return nil, fmt.Errorf("save analysis %s: %w", res.ID, err)
	}
	log.Printf("analysis %s: migrated to version %s", res.ID, res.Document.Version)
	return res, nil
}

type Report struct {
	Migrated  []string
	Unchanged []string
	Failed    map[string]error
}

// MigrateAll migrates every stored analysis. A failing document is recorded
// in the report and does not stop the others; only listing errors and
// context cancellation abort the run.
func (s *Service) MigrateAll(ctx context.Context) (Report, error) {
	report := Report{Failed: map[string]error{}}
	ids, err := s.store.List(ctx)
	if err != nil {
		return report, fmt.Errorf("list analyses: %w", err)
	}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res, err := s.Migrate(ctx, id)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return report, err
			}
			log.Printf("analysis %s: migrate failed: %v", id, err)
			report.Failed[id] = err
			continue
		}
		if res.Changed() {
			report.Migrated = append(report.Migrated, id)
		} else {
			report.Unchanged = append(report.Unchanged, id)
		}
	}
	return report, nil
}

// UpgradeBytes applies the format-level upgrade to a saved analysis file.
// Files that are not in the legacy shape come back untouched with
// upgraded=false. Keys keep the order they had in raw.
func UpgradeBytes(raw []byte) (out []byte, upgraded bool, err error) {
	doc, err := jsonutil.DecodeDocument(raw)
	if err != nil {
		return nil, false, err
	}
	if schema.Classify(doc) != schema.ShapeLegacy {
		return raw, false, nil
	}
	if _, err := schema.Upgrade(doc); err != nil {
		return nil, false, err
	}
	out, err = upgradeOrdered(raw)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}
