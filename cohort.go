package cohort

import (
	"context"
	"log/slog"

	"github.com/aretw0/cohort/internal/logging"
	"github.com/aretw0/cohort/internal/runtime"
	"github.com/aretw0/cohort/pkg/domain"
)

// Engine is the high-level entry point for the cohort library.
// It wraps the internal controller and provides a simplified API for consumers.
type Engine struct {
	controller *runtime.Controller
	settings   domain.Settings
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	Name       string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithSettings replaces all simulation settings at once.
func WithSettings(s domain.Settings) Option {
	return func(e *Engine) {
		e.settings = s
	}
}

// WithCycles sets the number of simulated cycles.
func WithCycles(n int) Option {
	return func(e *Engine) {
		e.settings.Cycles = n
	}
}

// WithCountMethod sets how a cycle window is counted (start, end or half).
func WithCountMethod(m domain.CountMethod) Option {
	return func(e *Engine) {
		e.settings.CountMethod = m
	}
}

// WithDiscountRate sets the per-cycle discount rate applied to variables.
func WithDiscountRate(r float64) Option {
	return func(e *Engine) {
		e.settings.DiscountRate = r
	}
}

// WithName labels the engine, typically with the model name.
func WithName(name string) Option {
	return func(e *Engine) {
		e.Name = name
	}
}

// New initializes an empty engine. States are added with AddState.
func New(opts ...Option) *Engine {
	eng := &Engine{settings: domain.DefaultSettings()}
	for _, opt := range opts {
		opt(eng)
	}

	// Ensure logger is initialized (so we don't pass nil to runtime)
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("model", eng.Name)
	}

	eng.controller = runtime.NewController(
		runtime.WithSettings(eng.settings),
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithLogger(eng.logger),
	)
	return eng
}

// AddState registers a top-level state.
func (e *Engine) AddState(s *domain.MarkovState) error {
	return e.controller.AddState(s)
}

// Attach registers n as a top-level node. Only states are accepted.
func (e *Engine) Attach(n domain.Node) error {
	return e.controller.Attach(n)
}

// InitializeProbabilities samples every probability with seed (nil keeps current
// values) and binds complement probabilities to their siblings.
func (e *Engine) InitializeProbabilities(seed *uint64) error {
	return e.controller.InitializeProbabilities(seed)
}

// Verify checks the model structure and settings.
func (e *Engine) Verify() error {
	return e.controller.Verify()
}

// Run simulates the configured number of cycles.
func (e *Engine) Run(ctx context.Context) (*domain.Result, error) {
	return e.controller.Run(ctx)
}

// Settings returns the simulation settings.
func (e *Engine) Settings() domain.Settings {
	return e.controller.Settings()
}

// SetSettings replaces the simulation settings for subsequent runs.
func (e *Engine) SetSettings(s domain.Settings) {
	e.settings = s
	e.controller.SetSettings(s)
}

// Lookup finds a node anywhere in the model by name.
func (e *Engine) Lookup(name string) domain.Node {
	return e.controller.Lookup(name)
}

// States returns the top-level states in declaration order.
func (e *Engine) States() []*domain.MarkovState {
	return e.controller.States()
}
