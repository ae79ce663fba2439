package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/cohort"
	"github.com/aretw0/cohort/internal/logging"
	"github.com/aretw0/cohort/pkg/domain"
	"github.com/aretw0/cohort/pkg/model"
	"github.com/aretw0/cohort/pkg/ports"
	"github.com/aretw0/cohort/pkg/psa"
	"github.com/google/uuid"
)

// Runner builds, runs and records models.
type Runner struct {
	// Store keeps finished runs. If nil, runs are not recorded.
	Store ports.ResultStore

	// Logger is used for run logging.
	// If nil, a no-op logger is used.
	Logger *slog.Logger

	// Hooks are attached to every engine.
	Hooks domain.LifecycleHooks

	// EngineOptions are applied after the model settings, so they win.
	EngineOptions []cohort.Option

	// NewID generates run IDs. Defaults to random UUIDs.
	NewID func() string

	now func() time.Time
}

// New creates a Runner recording into store.
func New(store ports.ResultStore, opts ...Option) *Runner {
	r := &Runner{
		Store:  store,
		Logger: logging.NewNop(),
		NewID:  uuid.NewString,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) engineOptions() []cohort.Option {
	opts := []cohort.Option{
		cohort.WithLogger(r.Logger),
		cohort.WithLifecycleHooks(r.Hooks),
	}
	return append(opts, r.EngineOptions...)
}

// Build returns an initialized and verified engine for def without running it.
// When seed is non-nil the parameters are sampled with it.
func (r *Runner) Build(def *model.Definition, seed *uint64) (*cohort.Engine, error) {
	opts := []model.BuildOption{model.WithEngineOptions(r.engineOptions()...)}
	if seed != nil {
		opts = append(opts, model.WithSeed(*seed))
	}
	return model.Build(def, opts...)
}

// Run builds and runs def, then saves the record when a store is set.
func (r *Runner) Run(ctx context.Context, def *model.Definition, seed *uint64) (*domain.RunRecord, error) {
	eng, err := r.Build(def, seed)
	if err != nil {
		return nil, err
	}
	res, err := eng.Run(ctx)
	if err != nil {
		return nil, err
	}

	rec := &domain.RunRecord{
		ID:        r.NewID(),
		Model:     def.Name,
		CreatedAt: r.now().UTC(),
		Seed:      seed,
		Settings:  eng.Settings(),
		Result:    *res,
	}
	if r.Store != nil {
		if err := r.Store.Save(ctx, rec); err != nil {
			return nil, fmt.Errorf("save run %s: %w", rec.ID, err)
		}
		r.Logger.DebugContext(ctx, "run saved", "id", rec.ID, "model", def.Name)
	}
	return rec, nil
}

// PSA runs a sensitivity analysis of def. Iterations are not recorded.
func (r *Runner) PSA(ctx context.Context, def *model.Definition, iterations, concurrency int, seed uint64) (*psa.Summary, error) {
	return psa.Run(ctx, def, psa.Options{
		Iterations:    iterations,
		Seed:          seed,
		Concurrency:   concurrency,
		Logger:        r.Logger,
		EngineOptions: append([]cohort.Option{cohort.WithLifecycleHooks(r.Hooks)}, r.EngineOptions...),
	})
}

// Get loads a stored run.
func (r *Runner) Get(ctx context.Context, id string) (*domain.RunRecord, error) {
	if r.Store == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrRunNotFound, id)
	}
	return r.Store.Load(ctx, id)
}
