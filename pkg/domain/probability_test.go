package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstantSurvivesSampling(t *testing.T) {
	p := Constant(0.25)
	require.NoError(t, p.Sample(7))

	v, err := Scalar(p)
	require.NoError(t, err)
	assert.Equal(t, 0.25, v)
}

func TestRangedSampling(t *testing.T) {
	tests := []struct {
		name     string
		dist     Distribution
		p1, p2   float64
		min, max float64
	}{
		{name: "Uniform", dist: Uniform, p1: 0.1, p2: 0.3, min: 0.1, max: 0.3},
		{name: "Beta", dist: Beta, p1: 2, p2: 5, min: 0, max: 1},
		{name: "Binomial", dist: Binomial, p1: 10, p2: 0.5, min: 0, max: 10},
		{name: "Gamma", dist: Gamma, p1: 2, p2: 0.5, min: 0, max: 1e6},
		{name: "LogNormal", dist: LogNormal, p1: 0, p2: 0.1, min: 0, max: 1e6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewRanged(0.2, tt.p1, tt.p2, tt.dist)
			require.NoError(t, err)
			require.NoError(t, p.Sample(42))

			v, _ := p.Value(CurrentCycle)
			assert.GreaterOrEqual(t, v, tt.min)
			assert.LessOrEqual(t, v, tt.max)

			// Same seed, same draw.
			q, _ := NewRanged(0.2, tt.p1, tt.p2, tt.dist)
			require.NoError(t, q.Sample(42))
			w, _ := q.Value(CurrentCycle)
			assert.Equal(t, v, w)
		})
	}
}

func TestRangedInvalidParameters(t *testing.T) {
	tests := []struct {
		name   string
		dist   Distribution
		p1, p2 float64
	}{
		{"Beta zero shape", Beta, 0, 1},
		{"Gamma zero scale", Gamma, 1, 0},
		{"Binomial p above one", Binomial, 10, 1.5},
		{"Binomial fractional n", Binomial, 2.5, 0.5},
		{"Normal negative sd", Normal, 0, -1},
		{"Unknown", Distribution("cauchy"), 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRanged(0.5, tt.p1, tt.p2, tt.dist)
			assert.ErrorIs(t, err, ErrInvalidDistribution)
		})
	}
}

func TestParseDistribution(t *testing.T) {
	d, err := ParseDistribution("")
	require.NoError(t, err)
	assert.Equal(t, Uniform, d)

	d, err = ParseDistribution("beta")
	require.NoError(t, err)
	assert.Equal(t, Beta, d)

	_, err = ParseDistribution("weibull")
	assert.ErrorIs(t, err, ErrInvalidDistribution)
}

func TestTimeVarying(t *testing.T) {
	p := NewTimeVarying(Constant(0.1), Constant(0.2), Constant(0.3))

	v, err := p.Value(2)
	require.NoError(t, err)
	assert.Equal(t, 0.3, v)

	// The cursor stays on the last requested cycle.
	v, err = Scalar(p)
	require.NoError(t, err)
	assert.Equal(t, 0.3, v)

	v, _ = p.Value(0)
	assert.Equal(t, 0.1, v)

	_, err = p.Value(3)
	assert.ErrorIs(t, err, ErrCycleOutOfRange)
}

func TestTimeVaryingSamplesEveryElement(t *testing.T) {
	a, _ := NewRanged(0.1, 0, 0.2, Uniform)
	b, _ := NewRanged(0.5, 0.4, 0.6, Uniform)
	p := NewTimeVarying(a, b)

	require.NoError(t, p.Sample(3))

	v0, _ := p.Value(0)
	v1, _ := p.Value(1)
	assert.InDelta(t, 0.1, v0, 0.1)
	assert.InDelta(t, 0.5, v1, 0.1)
	assert.NotEqual(t, 0.1, v0)
	assert.NotEqual(t, 0.5, v1)
}

type group []Probability

func (g group) NumSiblings() int                     { return len(g) }
func (g group) SiblingProbability(i int) Probability { return g[i] }

func TestComplement(t *testing.T) {
	ranged, err := NewRanged(0.2, 0.1, 0.3, Uniform)
	require.NoError(t, err)
	c := NewComplement()

	_, err = c.Value(0)
	if !errors.Is(err, ErrComplementUnbound) {
		t.Fatalf("expected ErrComplementUnbound, got %v", err)
	}

	g := group{Constant(0.3), ranged, c}
	require.NoError(t, c.SetOtherProbabilities(g, 2))
	assert.True(t, c.Bound())

	v, err := c.Value(0)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, v, 1e-12)

	require.NoError(t, ranged.Sample(11))
	r, _ := Scalar(ranged)
	v, err = c.Value(0)
	require.NoError(t, err)
	assert.InDelta(t, 1-0.3-r, v, 1e-12)

	// Rebinding to the same slot is fine, another group is not.
	require.NoError(t, c.SetOtherProbabilities(g, 2))
	other := group{Constant(1), c}
	assert.ErrorIs(t, c.SetOtherProbabilities(other, 1), ErrMultipleComplements)
}

func TestComplementFollowsTimeVaryingSibling(t *testing.T) {
	tv := NewTimeVarying(Constant(0.1), Constant(0.4))
	c := NewComplement()
	require.NoError(t, c.SetOtherProbabilities(group{tv, c}, 1))

	v, _ := c.Value(0)
	assert.InDelta(t, 0.9, v, 1e-12)
	v, _ = c.Value(1)
	assert.InDelta(t, 0.6, v, 1e-12)
}
