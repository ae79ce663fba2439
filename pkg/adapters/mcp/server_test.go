package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/aretw0/cohort/pkg/adapters/memory"
	"github.com/aretw0/cohort/pkg/domain"
	"github.com/aretw0/cohort/pkg/runner"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modelYAML = `
name: two-state
settings: {cycles: 2, count_method: start}
nodes:
  - {name: alive, parent: __start__, probability: 1, variables: {cost: 10}}
  - {name: dead,  parent: __start__, probability: 0}
transitions:
  - {name: die,  parent: alive, destination: dead,  probability: 0.5}
  - {name: live, parent: alive, destination: alive, probability: complement}
  - {name: stay, parent: dead,  destination: dead,  probability: 1}
`

func newServer() *Server {
	return NewServer(runner.New(memory.NewStore()))
}

func TestRunModel(t *testing.T) {
	s := newServer()
	ctx := context.Background()

	resp, err := s.handleRunModel(ctx, mcp.CallToolRequest{}, map[string]any{
		"model":  modelYAML,
		"seed":   float64(3),
		"output": "csv",
	})
	require.NoError(t, err)
	assert.Equal(t, "two-state", resp.Model)
	assert.NotEmpty(t, resp.ID)
	assert.InDelta(t, 15.0, resp.Totals["cost"], 1e-12)
	assert.True(t, strings.HasPrefix(resp.Report, "cycle,alive,dead,cost\n"), resp.Report)

	text, err := s.listRuns(ctx)
	require.NoError(t, err)
	var runs []domain.RunRecord
	require.NoError(t, json.Unmarshal([]byte(text), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, resp.ID, runs[0].ID)
	assert.Empty(t, runs[0].Result.Probabilities.Rows)
}

func TestRunModel_Errors(t *testing.T) {
	s := newServer()
	ctx := context.Background()

	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing model", map[string]any{}},
		{"bad output", map[string]any{"model": modelYAML, "output": "xml"}},
		{"negative seed", map[string]any{"model": modelYAML, "seed": float64(-1)}},
		{"invalid model", map[string]any{"model": strings.Replace(modelYAML, "complement", "0.2", 1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.handleRunModel(ctx, mcp.CallToolRequest{}, tt.args); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestValidateModel(t *testing.T) {
	s := newServer()
	ctx := context.Background()

	ok, err := s.handleValidateModel(ctx, mcp.CallToolRequest{}, map[string]any{"model": modelYAML})
	require.NoError(t, err)
	assert.True(t, ok.Valid)
	assert.Equal(t, []string{"alive", "dead"}, ok.States)

	bad, err := s.handleValidateModel(ctx, mcp.CallToolRequest{}, map[string]any{
		"model": strings.Replace(modelYAML, "complement", "0.2", 1),
	})
	require.NoError(t, err)
	assert.False(t, bad.Valid)
	assert.Contains(t, bad.Error, "sum")
}

func TestGraphModel(t *testing.T) {
	s := newServer()
	jsonModel := `{"name": "j", "nodes": [{"name": "only", "parent": "__start__"}],
		"transitions": [{"name": "stay", "parent": "only", "destination": "only"}]}`

	chart, err := s.graphModel(map[string]any{"model": jsonModel, "format": "json"})
	require.NoError(t, err)
	assert.Contains(t, chart, "graph TD")
	assert.Contains(t, chart, `only(("only"))`)
	assert.Contains(t, chart, `only -. "stay: 1" .-> only`)
}
