package cohort_test

import (
	"context"
	"testing"

	"github.com/aretw0/cohort"
	"github.com/aretw0/cohort/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildThreeState builds the three-state reference model by hand.
func buildThreeState(t *testing.T, opts ...cohort.Option) *cohort.Engine {
	t.Helper()
	const cycles = 20

	elems := make([]*domain.RangedProbability, cycles)
	for i := range elems {
		v := 0.0001 + float64(i)*0.0001
		p, err := domain.NewRanged(v, v-0.0001, v+0.0001, domain.Uniform)
		require.NoError(t, err)
		elems[i] = p
	}
	mortality := domain.NewTimeVarying(elems...)

	stateA := domain.NewMarkovState("state_a", domain.Constant(1), domain.Variables{"cost": 50, "utility": 1})
	stateB := domain.NewMarkovState("state_b", domain.Constant(0), domain.Variables{"cost": 100, "utility": 0.7})
	stateC := domain.NewMarkovState("state_c", domain.Constant(0), domain.Variables{"cost": 0, "utility": 0})

	k1 := domain.NewChanceNode("k1", domain.NewComplement(), domain.Variables{"cost": 20, "utility": -0.1})
	k2 := domain.NewChanceNode("k2", domain.NewComplement(), domain.Variables{"cost": 30, "utility": -0.2})

	must := func(err error) {
		t.Helper()
		require.NoError(t, err)
	}
	must(stateA.AddChild(domain.NewStateTransition("a_to_a", domain.NewComplement(), stateA, domain.Variables{"cost": 1})))
	must(stateA.AddChild(domain.NewStateTransition("a_to_b", domain.Constant(0.2), stateB, domain.Variables{"cost": 2, "utility": -0.1})))
	must(stateA.AddChild(domain.NewStateTransition("a_to_c", mortality, stateC, domain.Variables{"cost": 2, "utility": -0.1})))

	must(k2.AddChild(domain.NewStateTransition("k2_to_a", domain.Constant(0.3), stateA, domain.Variables{"cost": 6, "utility": -0.2})))
	must(k2.AddChild(domain.NewStateTransition("k2_to_b", domain.NewComplement(), stateB, domain.Variables{"cost": 7, "utility": -0.1})))
	must(k1.AddChild(k2))
	must(k1.AddChild(domain.NewStateTransition("k1_to_c", domain.Constant(0.01), stateC, nil)))
	must(stateB.AddChild(k1))
	must(stateB.AddChild(domain.NewStateTransition("b_to_c", mortality, stateC, domain.Variables{"cost": 0, "utility": 0})))

	must(stateC.AddChild(domain.NewStateTransition("c_to_c", domain.Constant(1), stateC, domain.Variables{"cost": 0, "utility": 0})))

	base := []cohort.Option{cohort.WithCycles(cycles), cohort.WithCountMethod(domain.CountHalf), cohort.WithDiscountRate(0.02)}
	eng := cohort.New(append(base, opts...)...)
	must(eng.AddState(stateA))
	must(eng.AddState(stateB))
	must(eng.AddState(stateC))

	must(eng.InitializeProbabilities(nil))
	must(eng.Verify())
	return eng
}

var referenceProbabilities = [][]float64{
	{0.899950, 0.100000, 0.000050},
	{0.749524, 0.249276, 0.001200},
	{0.673450, 0.322608, 0.003942},
	{0.634306, 0.358178, 0.007515},
	{0.613491, 0.374967, 0.011542},
	{0.601760, 0.382407, 0.015833},
	{0.594518, 0.385188, 0.020294},
	{0.589484, 0.385639, 0.024878},
	{0.585523, 0.384917, 0.029560},
	{0.582074, 0.383599, 0.034327},
	{0.578858, 0.381970, 0.039173},
	{0.575735, 0.380172, 0.044093},
	{0.572638, 0.378277, 0.049085},
	{0.569534, 0.376320, 0.054146},
	{0.566407, 0.374318, 0.059275},
	{0.563248, 0.372282, 0.064470},
	{0.560054, 0.370215, 0.069730},
	{0.556825, 0.368121, 0.075054},
	{0.553560, 0.366001, 0.080439},
	{0.550259, 0.363856, 0.085885},
}

var referenceVariables = [][]float64{
	{55.597550, 0.959945},
	{67.760844, 0.846416},
	{77.731424, 0.747721},
	{81.518997, 0.691599},
	{82.315430, 0.656381},
	{81.675745, 0.631504},
	{80.357265, 0.611820},
	{78.728608, 0.594818},
	{76.969019, 0.579275},
	{75.165492, 0.564592},
	{73.360090, 0.550473},
	{71.572995, 0.536775},
	{69.813736, 0.523425},
	{68.086659, 0.510383},
	{66.393587, 0.497631},
	{64.735118, 0.485155},
	{63.111254, 0.472948},
	{61.521710, 0.461003},
	{59.966064, 0.449316},
	{58.443828, 0.437882},
}

func TestEngine_ThreeStateReference(t *testing.T) {
	eng := buildThreeState(t)

	res, err := eng.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"state_a", "state_b", "state_c"}, res.Probabilities.Columns)
	assert.Equal(t, []string{"cost", "utility"}, res.Variables.Columns)
	require.Len(t, res.Probabilities.Rows, 20)
	require.Len(t, res.Variables.Rows, 20)

	for r := range referenceProbabilities {
		for c, want := range referenceProbabilities[r] {
			assert.InDelta(t, want, res.Probabilities.Rows[r][c], 1e-6, "probability row %d col %d", r, c)
		}
		for c, want := range referenceVariables[r] {
			assert.InDelta(t, want, res.Variables.Rows[r][c], 1e-5, "variable row %d col %d", r, c)
		}
	}

	totals := res.Variables.Totals()
	assert.InDelta(t, 1414.825414, totals["cost"], 1e-5)
	assert.InDelta(t, 11.809063, totals["utility"], 1e-5)
}

func TestEngine_RerunIsIdentical(t *testing.T) {
	eng := buildThreeState(t)

	first, err := eng.Run(context.Background())
	require.NoError(t, err)
	second, err := eng.Run(context.Background())
	require.NoError(t, err)

	if !assert.Equal(t, first, second) {
		t.Fatalf("second run differs from the first")
	}
}

func TestEngine_SampledRunStaysClosed(t *testing.T) {
	eng := buildThreeState(t, cohort.WithCountMethod(domain.CountEnd))
	seed := uint64(2024)
	require.NoError(t, eng.InitializeProbabilities(&seed))
	require.NoError(t, eng.Verify())

	res, err := eng.Run(context.Background())
	require.NoError(t, err)
	for r, row := range res.Probabilities.Rows {
		total := row[0] + row[1] + row[2]
		assert.InDelta(t, 1, total, 1e-9, "cycle %d", r)
	}
}

func TestEngine_Lookup(t *testing.T) {
	eng := buildThreeState(t)

	n := eng.Lookup("k2_to_b")
	require.NotNil(t, n)
	tr, ok := n.(*domain.StateTransition)
	require.True(t, ok)
	assert.Equal(t, "state_b", tr.Destination().Name())

	assert.Nil(t, eng.Lookup("nope"))
	assert.Len(t, eng.States(), 3)
}

func TestEngine_SettingsValidation(t *testing.T) {
	eng := buildThreeState(t)
	eng.SetSettings(domain.Settings{Cycles: 5, CountMethod: "middle"})

	_, err := eng.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidCountMethod)
}
