package validator

import (
	"testing"

	"github.com/aretw0/cohort/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckGraph(t *testing.T) {
	healthy := domain.NewMarkovState("healthy", domain.Constant(1), nil)
	sick := domain.NewMarkovState("sick", domain.Constant(0), nil)
	dead := domain.NewMarkovState("dead", domain.Constant(0), nil)
	orphan := domain.NewMarkovState("orphan", domain.Constant(0), nil)
	leaky := domain.NewMarkovState("leaky", domain.Constant(0), nil)

	branch := domain.NewChanceNode("branch", domain.Constant(0.5), nil)
	require.NoError(t, branch.AddChild(domain.NewStateTransition("to_dead", domain.Constant(1), dead, nil)))
	require.NoError(t, healthy.AddChild(branch))
	require.NoError(t, healthy.AddChild(domain.NewStateTransition("to_sick", domain.Constant(0.5), sick, nil)))
	require.NoError(t, sick.AddChild(domain.NewStateTransition("sick_stay", domain.Constant(1), sick, nil)))
	require.NoError(t, dead.AddChild(domain.NewStateTransition("dead_stay", domain.Constant(1), dead, nil)))
	require.NoError(t, orphan.AddChild(domain.NewStateTransition("to_leaky", domain.Constant(1), leaky, nil)))

	warnings, err := CheckGraph([]*domain.MarkovState{healthy, sick, dead, orphan, leaky})
	require.NoError(t, err)

	assert.Equal(t, []Warning{
		{State: "orphan", Message: "unreachable from the initial distribution"},
		{State: "leaky", Message: "unreachable from the initial distribution"},
		{State: "leaky", Message: "has no transitions; its mass leaves the model"},
	}, warnings)
	assert.Equal(t, "- orphan: unreachable from the initial distribution\n"+
		"- leaky: unreachable from the initial distribution\n"+
		"- leaky: has no transitions; its mass leaves the model", Format(warnings))
}

func TestCheckGraph_Clean(t *testing.T) {
	only := domain.NewMarkovState("only", domain.Constant(1), nil)
	require.NoError(t, only.AddChild(domain.NewStateTransition("stay", domain.Constant(1), only, nil)))

	warnings, err := CheckGraph([]*domain.MarkovState{only})
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

func TestCheckGraph_MissingDestination(t *testing.T) {
	s := domain.NewMarkovState("s", domain.Constant(1), nil)
	require.NoError(t, s.AddChild(domain.NewStateTransition("broken", domain.Constant(1), nil, nil)))

	_, err := CheckGraph([]*domain.MarkovState{s})
	assert.ErrorIs(t, err, domain.ErrTransitionTarget)
}
