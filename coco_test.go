package coco

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocomr/coco/port"
	"github.com/cocomr/coco/registry"
	"github.com/cocomr/coco/task"
)

type tickerComponent struct {
	out   *port.OutputPort[int]
	ticks int
}

func (c *tickerComponent) Init(t *task.Task) error {
	c.out = port.NewOutputPort[int](t.InstanceName(), "out", port.Hooks{})
	return t.AddPort(c.out)
}
func (c *tickerComponent) OnConfig(*task.Task) error { return nil }
func (c *tickerComponent) OnUpdate(*task.Task) error {
	c.ticks++
	c.out.Write(c.ticks)
	return nil
}
func (c *tickerComponent) OnAborted(*task.Task, error) {}

func writeDescriptor(t *testing.T, yamlText string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlText), 0o644))
	return dir
}

func TestNewSingleShotRunsOneStepThenStops(t *testing.T) {
	comp := &tickerComponent{}
	reg := registry.New(slog.Default())
	reg.RegisterSpec("ticker", func(name string, logger *slog.Logger) (*task.Task, error) {
		return task.New("ticker", name, comp, logger), nil
	})

	dir := writeDescriptor(t, `
package: demo
components:
  - task: ticker
    name: t1
activities:
  - name: main
    kind: sequential
    mode: periodic
    period_ms: 1
    tasks: [t1]
`)

	app, err := New(dir, WithRegistry(reg), WithSingleShot())
	require.NoError(t, err)
	assert.True(t, app.HasSequential())

	t1, _ := reg.Task("t1")
	require.NoError(t, t1.Start())

	assert.Equal(t, 1, comp.ticks, "single-shot mode should run exactly one step")
}

func TestSetupObservabilityInstallsProviders(t *testing.T) {
	shutdown, err := SetupObservability(context.Background())
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	require.NoError(t, shutdown(context.Background()))
}
