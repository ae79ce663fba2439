package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/cohort/pkg/domain"
)

// LoggingHooks logs run boundaries at info level and cycles at debug level.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunStart: func(ctx context.Context, e *domain.RunEvent) {
			logger.InfoContext(ctx, "run_start",
				"states", e.States,
				"cycles", e.Settings.Cycles,
				"count_method", e.Settings.CountMethod,
			)
		},
		OnRunEnd: func(ctx context.Context, e *domain.RunEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "run_end", "duration", e.Duration, "error", e.Err)
				return
			}
			logger.InfoContext(ctx, "run_end", "duration", e.Duration)
		},
		OnCycleEnd: func(ctx context.Context, e *domain.CycleEvent) {
			logger.DebugContext(ctx, "cycle_end", "cycle", e.Cycle, "mass", e.Mass)
		},
	}
}
