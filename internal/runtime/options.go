package runtime

import (
	"log/slog"

	"github.com/aretw0/cohort/pkg/domain"
)

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithSettings sets the horizon, count method and discount rate.
func WithSettings(s domain.Settings) ControllerOption {
	return func(c *Controller) {
		c.settings = s
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) ControllerOption {
	return func(c *Controller) {
		c.hooks = hooks
	}
}

// WithLogger sets the structured logger. A nil logger is ignored.
func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}
