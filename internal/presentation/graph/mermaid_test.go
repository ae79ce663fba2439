package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/cohort/internal/presentation/graph"
	"github.com/aretw0/cohort/pkg/domain"
	"github.com/stretchr/testify/require"
)

func buildTree(t *testing.T) []*domain.MarkovState {
	t.Helper()
	healthy := domain.NewMarkovState("healthy", domain.Constant(1), nil)
	sick := domain.NewMarkovState("sick-state", domain.Constant(0), nil)

	treat := domain.NewChanceNode("treat.choice", domain.Constant(0.3), nil)
	require.NoError(t, treat.AddChild(domain.NewStateTransition("recover", domain.Constant(1), healthy, nil)))
	require.NoError(t, healthy.AddChild(treat))
	require.NoError(t, healthy.AddChild(domain.NewStateTransition("stay", domain.NewComplement(), healthy, nil)))
	require.NoError(t, sick.AddChild(domain.NewStateTransition("to \"healthy\"", domain.Constant(1), healthy, nil)))
	return []*domain.MarkovState{healthy, sick}
}

func TestGenerateMermaid(t *testing.T) {
	states := buildTree(t)

	tests := []struct {
		name     string
		overlay  *graph.Overlay
		contains []string
	}{
		{
			name: "State Shape",
			contains: []string{
				`healthy(("healthy"))`,
				`sick_state(("sick-state"))`,
			},
		},
		{
			name: "Chance Node Shape",
			contains: []string{
				`treat_choice{"treat.choice"}`,
				`healthy -- "0.3" --> treat_choice`,
				`treat_choice -- "recover: 1" --> healthy`,
			},
		},
		{
			name: "Self Loop Is Dotted",
			contains: []string{
				`healthy -. "stay: complement" .-> healthy`,
			},
		},
		{
			name: "Label Escaping",
			contains: []string{
				`sick_state -- "to 'healthy': 1" --> healthy`,
			},
		},
		{
			name: "Overlay",
			overlay: &graph.Overlay{
				Occupancy: map[string]float64{"healthy": 0.5},
				Highlight: []string{"sick-state", "sick-state"},
			},
			contains: []string{
				`healthy(("healthy <br/> 0.5000"))`,
				"classDef highlighted",
				"class sick_state highlighted;",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(states, tt.overlay)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
				}
			}
			if tt.overlay != nil && strings.Count(got, "class sick_state") != 1 {
				t.Errorf("highlight should be deduplicated:\n%v", got)
			}
		})
	}
}
