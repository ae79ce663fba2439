package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/cohort/internal/config"
	"github.com/aretw0/cohort/internal/logging"
	"github.com/aretw0/cohort/pkg/adapters/file"
	"github.com/aretw0/cohort/pkg/adapters/memory"
	"github.com/aretw0/cohort/pkg/adapters/redis"
	"github.com/aretw0/cohort/pkg/domain"
	"github.com/aretw0/cohort/pkg/observability"
	"github.com/aretw0/cohort/pkg/persistence/middleware"
	"github.com/aretw0/cohort/pkg/ports"
	"github.com/aretw0/cohort/pkg/runner"
	"golang.org/x/term"
)

// App carries what every command needs: configuration, logger and output streams.
type App struct {
	Config *config.Config
	Logger *slog.Logger
	Out    io.Writer
	Err    io.Writer
}

// NewApp loads the configuration at cfgPath (see config.Load), applies a
// non-empty logLevel over it and validates the result.
func NewApp(cfgPath, logLevel string, out, errOut io.Writer) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	return &App{
		Config: cfg,
		Logger: logging.NewWithWriter(errOut, level),
		Out:    out,
		Err:    errOut,
	}, nil
}

// OpenStore returns the configured result store and a function releasing it.
// The store is wrapped with encryption when a key is configured.
func (a *App) OpenStore() (ports.ResultStore, func() error, error) {
	store, closer, err := a.openBackend()
	if err != nil {
		return nil, nil, err
	}

	enc, err := a.Config.Store.Encryption()
	if err != nil {
		_ = closer()
		return nil, nil, err
	}
	if enc != nil {
		mw, err := middleware.NewEncryptionMiddleware(*enc)
		if err != nil {
			_ = closer()
			return nil, nil, err
		}
		store = middleware.Chain(store, mw)
	}
	return store, closer, nil
}

func (a *App) openBackend() (ports.ResultStore, func() error, error) {
	noop := func() error { return nil }
	switch a.Config.Store.Backend {
	case config.StoreFile:
		return file.New(a.Config.Store.Dir), noop, nil
	case config.StoreRedis:
		s := redis.New(a.Config.Store.RedisAddr, a.Config.Store.RedisPassword, a.Config.Store.RedisDB)
		return s, s.Close, nil
	case config.StoreMemory, "":
		return memory.NewStore(), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", a.Config.Store.Backend)
	}
}

// NewRunner returns a runner logging through the app logger.
// Extra hooks are merged after the logging hooks.
func (a *App) NewRunner(store ports.ResultStore, hooks ...domain.LifecycleHooks) *runner.Runner {
	all := observability.LoggingHooks(a.Logger)
	for _, h := range hooks {
		all = all.Merge(h)
	}
	return runner.New(store,
		runner.WithLogger(a.Logger),
		runner.WithLifecycleHooks(all),
	)
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// printSystemMessage prints a standardized system message to the error stream.
func (a *App) printSystemMessage(format string, args ...any) {
	fmt.Fprintf(a.Err, ">>> %s\n", fmt.Sprintf(format, args...))
}
