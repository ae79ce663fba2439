package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/aretw0/cohort/internal/config"
	"github.com/aretw0/cohort/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const referenceModel = "../../examples/three-state/model.yaml"

func newTestApp(t *testing.T) (*App, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	app, err := NewApp("", "", &out, &errOut)
	require.NoError(t, err)
	return app, &out, &errOut
}

func ptr[T any](v T) *T { return &v }

func TestNewApp(t *testing.T) {
	_, err := NewApp("", "loud", &bytes.Buffer{}, &bytes.Buffer{})
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "cohort.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  backend: file\n  dir: "+t.TempDir()+"\n"), 0644))
	app, err := NewApp(path, "debug", &bytes.Buffer{}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "debug", app.Config.Logging.Level)
	assert.Equal(t, config.StoreFile, app.Config.Store.Backend)
}

func TestRun_CSV(t *testing.T) {
	app, out, _ := newTestApp(t)
	err := app.Run(context.Background(), RunOptions{Model: referenceModel, Format: "csv"})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 21, "header plus one row per cycle")
	assert.True(t, strings.HasPrefix(lines[0], "cycle,"), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "0,0.89995"), lines[1])
}

func TestRun_FlagsOverrideModel(t *testing.T) {
	app, out, _ := newTestApp(t)
	err := app.Run(context.Background(), RunOptions{
		Model:    referenceModel,
		Format:   "csv",
		Settings: SettingsFlags{Cycles: ptr(3), CountMethod: ptr("start")},
	})
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out.String()), "\n"), 4)
}

func TestRun_Save(t *testing.T) {
	app, _, errOut := newTestApp(t)
	app.Config.Store = config.StoreConfig{Backend: config.StoreFile, Dir: t.TempDir()}

	require.NoError(t, app.Run(context.Background(), RunOptions{Model: referenceModel, Format: "json", Save: true}))
	assert.Contains(t, errOut.String(), ">>> Run saved as ")

	store, _, err := app.OpenStore()
	require.NoError(t, err)
	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestRun_Errors(t *testing.T) {
	app, _, _ := newTestApp(t)
	ctx := context.Background()

	assert.Error(t, app.Run(ctx, RunOptions{Model: referenceModel, Format: "xml"}))
	assert.Error(t, app.Run(ctx, RunOptions{Model: "missing.yaml"}))
	err := app.Run(ctx, RunOptions{Model: referenceModel, Settings: SettingsFlags{CountMethod: ptr("middle")}})
	assert.ErrorIs(t, err, domain.ErrInvalidCountMethod)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	err = app.Run(cancelled, RunOptions{Model: referenceModel})
	require.Error(t, err)
	assert.Equal(t, "interrupted", err.Error())
}

func TestValidate(t *testing.T) {
	app, out, _ := newTestApp(t)
	require.NoError(t, app.Validate(referenceModel))
	assert.Contains(t, out.String(), `Model "three-state" is valid: 3 states, 20 cycles.`)
}

func TestGraph(t *testing.T) {
	app, out, _ := newTestApp(t)
	require.NoError(t, app.Graph(context.Background(), referenceModel, true))
	assert.Contains(t, out.String(), "graph TD")
	assert.Contains(t, out.String(), "<br/>")

	out.Reset()
	require.NoError(t, app.Graph(context.Background(), referenceModel, false, "state_b"))
	assert.Contains(t, out.String(), "class state_b highlighted;")
	assert.NotContains(t, out.String(), "<br/>")
}

func TestPSA(t *testing.T) {
	app, out, _ := newTestApp(t)
	err := app.PSA(context.Background(), PSAOptions{
		Model:       referenceModel,
		Iterations:  5,
		Concurrency: 2,
		Seed:        1,
		Format:      "csv",
	})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 6)
	assert.Equal(t, "iteration,seed,cost,utility", lines[0])
}

func TestOpenStore(t *testing.T) {
	app, _, _ := newTestApp(t)
	for _, backend := range []string{config.StoreMemory, config.StoreFile, config.StoreRedis} {
		app.Config.Store.Backend = backend
		store, closeStore, err := app.OpenStore()
		require.NoError(t, err, backend)
		assert.NotNil(t, store)
		_ = closeStore()
	}
	app.Config.Store.Backend = "s3"
	_, _, err := app.OpenStore()
	assert.Error(t, err)
}

func TestOpenStore_Encrypted(t *testing.T) {
	app, _, errOut := newTestApp(t)
	app.Config.Store.Backend = config.StoreFile
	app.Config.Store.Dir = t.TempDir()
	app.Config.Store.EncryptionKey = base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))

	require.NoError(t, app.Run(context.Background(), RunOptions{Model: referenceModel, Format: "json", Save: true}))
	require.Contains(t, errOut.String(), ">>> Run saved as ")

	store, _, err := app.OpenStore()
	require.NoError(t, err)
	ids, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, ids, 1)

	rec, err := store.Load(context.Background(), ids[0])
	require.NoError(t, err)
	assert.InDelta(t, 1414.8254144, rec.Result.Variables.Totals()["cost"], 1e-6)

	raw, err := os.ReadFile(filepath.Join(app.Config.Store.Dir, ids[0]+".json"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"sealed"`)
	assert.NotContains(t, string(raw), `"state_a"`)

	app.Config.Store.EncryptionKey = "short"
	_, _, err = app.OpenStore()
	assert.Error(t, err)
}

func TestValidate_Warnings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: leaky
nodes:
  - {name: a, parent: __start__, probability: 1}
  - {name: b, parent: __start__, probability: 0}
transitions:
  - {name: a_stay, parent: a, destination: a}
`), 0644))

	app, out, _ := newTestApp(t)
	require.NoError(t, app.Validate(path))
	assert.Contains(t, out.String(), "2 warnings:")
	assert.Contains(t, out.String(), "- b: unreachable from the initial distribution")
}

func TestHandleExecutionError_Signal(t *testing.T) {
	sc := NewSignalContext(context.Background())
	defer sc.Cancel()

	assert.Equal(t, "interrupted", handleExecutionError(sc, context.Canceled).Error())

	sc.mu.Lock()
	sc.sigVal = syscall.SIGTERM
	sc.mu.Unlock()
	assert.Equal(t, "interrupted by terminated", handleExecutionError(sc, context.Canceled).Error())

	other := errors.New("boom")
	assert.Equal(t, other, handleExecutionError(sc, other))
}
