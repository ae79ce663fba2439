package psa_test

import (
	"context"
	"math"
	"testing"

	"github.com/aretw0/cohort/pkg/model"
	"github.com/aretw0/cohort/pkg/psa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func loadDef(t *testing.T) *model.Definition {
	t.Helper()
	def, err := model.Load("../../examples/three-state/model.yaml")
	require.NoError(t, err)
	return def
}

func TestRun_Deterministic(t *testing.T) {
	def := loadDef(t)
	opts := psa.Options{Iterations: 8, Seed: 42, Concurrency: 3}

	a, err := psa.Run(context.Background(), def, opts)
	require.NoError(t, err)
	opts.Concurrency = 1
	b, err := psa.Run(context.Background(), def, opts)
	require.NoError(t, err)

	assert.Equal(t, a.Iterations, b.Iterations)
	assert.Equal(t, a.Totals, b.Totals)
	require.Len(t, a.Iterations, 8)
	for i, it := range a.Iterations {
		assert.Equal(t, i, it.Index)
		assert.Equal(t, uint64(42+i), it.Seed)
	}
}

func TestRun_Summary(t *testing.T) {
	def := loadDef(t)
	s, err := psa.Run(context.Background(), def, psa.Options{Iterations: 20, Seed: 1})
	require.NoError(t, err)

	cost := s.Totals["cost"]
	assert.LessOrEqual(t, cost.Lower, cost.Median)
	assert.LessOrEqual(t, cost.Median, cost.Upper)
	assert.Greater(t, cost.StdDev, 0.0)
	// Sampling only perturbs a recovery probability and background mortality.
	assert.InDelta(t, 1414.8, cost.Mean, 100)

	require.Len(t, s.Mean.Probabilities.Rows, 20)
	for r, row := range s.Mean.Probabilities.Rows {
		assert.InDelta(t, 1, row[0]+row[1]+row[2], 1e-9, "cycle %d", r)
	}
}

const independentModel = `
name: independent
settings: {cycles: 1, count_method: start}
parameters:
  c1: {type: range, value: 50, params: [0, 100]}
  c2: {type: range, value: 0.5, params: [0, 1]}
nodes:
  - {name: only, parent: __start__, probability: 1, variables: {x: c1, y: c2}}
transitions:
  - {name: stay, parent: only, destination: only, probability: 1}
`

func TestRun_ParametersSampledIndependently(t *testing.T) {
	def, err := model.Parse([]byte(independentModel), model.FormatYAML)
	require.NoError(t, err)

	s, err := psa.Run(context.Background(), def, psa.Options{Iterations: 50, Seed: 3})
	require.NoError(t, err)

	xs := make([]float64, len(s.Iterations))
	ys := make([]float64, len(s.Iterations))
	for i, it := range s.Iterations {
		xs[i] = it.Totals["x"]
		ys[i] = it.Totals["y"]
		assert.NotEqual(t, xs[i]/100, ys[i], "iteration %d reused the same draw", i)
	}
	corr := stat.Correlation(xs, ys, nil)
	if math.Abs(corr) > 0.9 {
		t.Fatalf("expected independent draws, got corr(x, y) = %f", corr)
	}
}

func TestRun_SingleIteration(t *testing.T) {
	s, err := psa.Run(context.Background(), loadDef(t), psa.Options{Iterations: 1, Seed: 5})
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.Totals["utility"].StdDev)
	assert.Equal(t, s.Iterations[0].Totals["cost"], s.Totals["cost"].Mean)
}

func TestRun_Errors(t *testing.T) {
	_, err := psa.Run(context.Background(), loadDef(t), psa.Options{})
	assert.ErrorIs(t, err, psa.ErrNoIterations)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = psa.Run(ctx, loadDef(t), psa.Options{Iterations: 4})
	assert.ErrorIs(t, err, context.Canceled)
}
