package runner

import (
	"log/slog"

	"github.com/aretw0/cohort"
	"github.com/aretw0/cohort/pkg/domain"
)

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. Nil is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.Logger = logger
		}
	}
}

// WithLifecycleHooks registers hooks on every engine the runner builds.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(r *Runner) {
		r.Hooks = r.Hooks.Merge(hooks)
	}
}

// WithEngineOptions appends engine options, applied after the model settings.
func WithEngineOptions(opts ...cohort.Option) Option {
	return func(r *Runner) {
		r.EngineOptions = append(r.EngineOptions, opts...)
	}
}

// WithIDGenerator replaces the run ID generator.
func WithIDGenerator(gen func() string) Option {
	return func(r *Runner) {
		r.NewID = gen
	}
}
