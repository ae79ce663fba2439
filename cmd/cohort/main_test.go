package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aretw0/cohort"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "cohort version "+strings.TrimSpace(cohort.Version)+"\n", out)
}

func TestValidateCommand(t *testing.T) {
	out, err := execute(t, "validate", "../../examples/three-state-csv")
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")

	_, err = execute(t, "validate")
	assert.Error(t, err, "model argument is required")
}

func TestRunCommand(t *testing.T) {
	out, err := execute(t, "run", "../../examples/three-state/model.yaml", "--format", "csv", "--cycles", "2", "--seed", "4")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 3)
}
