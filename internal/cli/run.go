package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/cohort/internal/presentation/graph"
	"github.com/aretw0/cohort/internal/presentation/report"
	"github.com/aretw0/cohort/internal/presentation/tui"
	"github.com/aretw0/cohort/internal/validator"
	"github.com/aretw0/cohort/pkg/domain"
	"github.com/aretw0/cohort/pkg/model"
	"github.com/aretw0/cohort/pkg/ports"
)

// SettingsFlags are run settings given on the command line. Nil fields are unset.
type SettingsFlags struct {
	Cycles       *int
	CountMethod  *string
	DiscountRate *float64
}

// RunOptions configures the run command.
type RunOptions struct {
	Model    string
	Seed     *uint64
	Settings SettingsFlags
	Format   string
	// Save keeps the run in the configured store.
	Save bool
}

// loadDefinition reads the model and layers configuration and flags over its settings.
func (a *App) loadDefinition(path string, flags SettingsFlags) (*model.Definition, error) {
	def, err := model.Load(path)
	if err != nil {
		return nil, err
	}
	s := a.Config.Simulation.Apply(def.Settings)
	if flags.Cycles != nil {
		s.Cycles = *flags.Cycles
	}
	if flags.CountMethod != nil {
		s.CountMethod = domain.CountMethod(*flags.CountMethod)
	}
	if flags.DiscountRate != nil {
		s.DiscountRate = *flags.DiscountRate
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	def.Settings = s
	return def, nil
}

// Run simulates a model and writes the report to the app output.
func (a *App) Run(ctx context.Context, opts RunOptions) error {
	format, err := report.ParseFormat(opts.Format)
	if err != nil {
		return err
	}
	def, err := a.loadDefinition(opts.Model, opts.Settings)
	if err != nil {
		return err
	}

	var store ports.ResultStore
	closeStore := func() error { return nil }
	if opts.Save {
		store, closeStore, err = a.OpenStore()
		if err != nil {
			return err
		}
	}
	defer func() {
		if err := closeStore(); err != nil {
			a.Logger.Warn("closing store failed", "error", err)
		}
	}()

	rec, err := a.NewRunner(store).Run(ctx, def, opts.Seed)
	if err != nil {
		return handleExecutionError(ctx, err)
	}
	if opts.Save {
		a.printSystemMessage("Run saved as %s", rec.ID)
	}

	return a.writeReport(format, func(w io.Writer) error {
		return report.Write(w, format, &rec.Result)
	})
}

// writeReport renders markdown through glamour when the output is a terminal.
func (a *App) writeReport(format report.Format, write func(io.Writer) error) error {
	if format != report.Markdown || !isTerminal(a.Out) {
		return write(a.Out)
	}
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return err
	}
	rendered, err := tui.NewRenderer(0)(buf.String())
	if err != nil {
		rendered = buf.String()
	}
	_, err = io.WriteString(a.Out, rendered)
	return err
}

// Validate builds and verifies a model without running it.
func (a *App) Validate(path string) error {
	def, err := a.loadDefinition(path, SettingsFlags{})
	if err != nil {
		return err
	}
	eng, err := a.NewRunner(nil).Build(def, nil)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Model %q is valid: %d states, %d cycles.\n", def.Name, len(def.States()), def.Settings.Cycles)

	warnings, err := validator.CheckGraph(eng.States())
	if err != nil {
		return err
	}
	if len(warnings) > 0 {
		fmt.Fprintf(a.Out, "%d warnings:\n%s\n", len(warnings), validator.Format(warnings))
	}
	return nil
}

// Graph writes the Mermaid chart of a model. With occupancy set the model is
// run first and every state shows its occupancy in the last cycle. Highlighted
// nodes are styled apart.
func (a *App) Graph(ctx context.Context, path string, occupancy bool, highlight ...string) error {
	def, err := a.loadDefinition(path, SettingsFlags{})
	if err != nil {
		return err
	}
	eng, err := a.NewRunner(nil).Build(def, nil)
	if err != nil {
		return err
	}

	var overlay *graph.Overlay
	if occupancy || len(highlight) > 0 {
		overlay = &graph.Overlay{Highlight: highlight}
	}
	if occupancy {
		res, err := eng.Run(ctx)
		if err != nil {
			return handleExecutionError(ctx, err)
		}
		overlay.Occupancy = lastRow(res.Probabilities)
	}
	_, err = io.WriteString(a.Out, graph.GenerateMermaid(eng.States(), overlay))
	return err
}

func lastRow(t domain.Table) map[string]float64 {
	out := make(map[string]float64, len(t.Columns))
	if len(t.Rows) == 0 {
		return out
	}
	row := t.Rows[len(t.Rows)-1]
	for i, c := range t.Columns {
		out[c] = row[i]
	}
	return out
}

// PSAOptions configures the psa command.
type PSAOptions struct {
	Model       string
	Iterations  int
	Concurrency int
	Seed        uint64
	Settings    SettingsFlags
	Format      string
}

// PSA runs a sensitivity analysis and writes its summary.
func (a *App) PSA(ctx context.Context, opts PSAOptions) error {
	format, err := report.ParseFormat(opts.Format)
	if err != nil {
		return err
	}
	def, err := a.loadDefinition(opts.Model, opts.Settings)
	if err != nil {
		return err
	}
	summary, err := a.NewRunner(nil).PSA(ctx, def, opts.Iterations, opts.Concurrency, opts.Seed)
	if err != nil {
		return handleExecutionError(ctx, err)
	}
	return a.writeReport(format, func(w io.Writer) error {
		return report.WritePSA(w, format, summary)
	})
}

// handleExecutionError reports an interrupted run without the context noise,
// naming the signal when ctx caught one.
func handleExecutionError(ctx context.Context, err error) error {
	if !errors.Is(err, context.Canceled) {
		return err
	}
	if sc, ok := ctx.(*SignalContext); ok && sc.Signal() != nil {
		return fmt.Errorf("interrupted by %s", sc.Signal())
	}
	return errors.New("interrupted")
}
