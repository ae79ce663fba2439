// Package psa runs probabilistic sensitivity analysis: the same model is built
// and simulated many times, each time with parameters sampled from a different seed.
package psa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"

	"github.com/aretw0/cohort"
	"github.com/aretw0/cohort/internal/logging"
	"github.com/aretw0/cohort/pkg/domain"
	"github.com/aretw0/cohort/pkg/model"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// ErrNoIterations is returned when Options.Iterations is not positive.
var ErrNoIterations = errors.New("psa needs at least one iteration")

// Options configures a PSA run.
type Options struct {
	// Iterations is the number of sampled runs.
	Iterations int
	// Seed of the first iteration; iteration i uses Seed+i.
	Seed uint64
	// Concurrency bounds the runs in flight. Zero means GOMAXPROCS.
	Concurrency int

	Logger        *slog.Logger
	EngineOptions []cohort.Option
}

// Iteration is the outcome of one sampled run.
type Iteration struct {
	Index  int                `json:"index"`
	Seed   uint64             `json:"seed"`
	Totals map[string]float64 `json:"totals"`
}

// Stat summarises one variable total across iterations.
type Stat struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Lower  float64 `json:"p2_5"`
	Median float64 `json:"p50"`
	Upper  float64 `json:"p97_5"`
}

// Summary is the result of a PSA run.
type Summary struct {
	Iterations []Iteration     `json:"iterations"`
	Mean       domain.Result   `json:"mean"`
	Totals     map[string]Stat `json:"totals"`
}

// Run builds and simulates def opts.Iterations times in parallel. Each run owns
// its model tree, so nothing is shared between goroutines except the results slice.
// The first failing iteration cancels the others and its error is returned.
func Run(ctx context.Context, def *model.Definition, opts Options) (*Summary, error) {
	if opts.Iterations <= 0 {
		return nil, ErrNoIterations
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	limit := opts.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	results := make([]*domain.Result, opts.Iterations)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i := 0; i < opts.Iterations; i++ {
		seed := opts.Seed + uint64(i)
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			eng, err := model.Build(def, model.WithSeed(seed), model.WithEngineOptions(opts.EngineOptions...))
			if err != nil {
				return fmt.Errorf("iteration %d (seed %d): %w", i, seed, err)
			}
			res, err := eng.Run(gCtx)
			if err != nil {
				return fmt.Errorf("iteration %d (seed %d): %w", i, seed, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.ErrorContext(ctx, "psa failed", "model", def.Name, "error", err)
		return nil, err
	}

	logger.InfoContext(ctx, "psa finished", "model", def.Name, "iterations", opts.Iterations, "concurrency", limit)
	return summarize(results, opts.Seed), nil
}

func summarize(results []*domain.Result, seed uint64) *Summary {
	s := &Summary{
		Iterations: make([]Iteration, len(results)),
		Mean: domain.Result{
			Probabilities: meanTable(results, func(r *domain.Result) domain.Table { return r.Probabilities }),
			Variables:     meanTable(results, func(r *domain.Result) domain.Table { return r.Variables }),
		},
		Totals: make(map[string]Stat),
	}

	samples := make(map[string][]float64)
	for i, r := range results {
		totals := r.Variables.Totals()
		s.Iterations[i] = Iteration{Index: i, Seed: seed + uint64(i), Totals: totals}
		for k, v := range totals {
			samples[k] = append(samples[k], v)
		}
	}

	for k, xs := range samples {
		sort.Float64s(xs)
		mean, std := stat.MeanStdDev(xs, nil)
		if len(xs) < 2 {
			std = 0
		}
		s.Totals[k] = Stat{
			Mean:   mean,
			StdDev: std,
			Lower:  stat.Quantile(0.025, stat.Empirical, xs, nil),
			Median: stat.Quantile(0.5, stat.Empirical, xs, nil),
			Upper:  stat.Quantile(0.975, stat.Empirical, xs, nil),
		}
	}
	return s
}

// meanTable averages tables cell by cell. Columns follow the first table; a
// column missing from a later table counts as zero.
func meanTable(results []*domain.Result, pick func(*domain.Result) domain.Table) domain.Table {
	first := pick(results[0])
	out := domain.Table{
		Columns: append([]string{}, first.Columns...),
		Rows:    make([][]float64, len(first.Rows)),
	}
	for r := range out.Rows {
		out.Rows[r] = make([]float64, len(out.Columns))
	}

	n := float64(len(results))
	for _, res := range results {
		t := pick(res)
		for c, name := range out.Columns {
			idx := t.Index(name)
			if idx < 0 {
				continue
			}
			for r := range out.Rows {
				if r < len(t.Rows) {
					out.Rows[r][c] += t.Rows[r][idx] / n
				}
			}
		}
	}
	return out
}
