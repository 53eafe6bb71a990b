package assembly

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cocomr/coco/descriptor"
	"github.com/cocomr/coco/port"
	"github.com/cocomr/coco/registry"
	"github.com/cocomr/coco/task"
)

// sourceComponent emits an incrementing int on its "out" port each update.
type sourceComponent struct {
	out *port.OutputPort[int]
	n   int
}

func (c *sourceComponent) Init(t *task.Task) error {
	c.out = port.NewOutputPort[int](t.InstanceName(), "out", port.Hooks{})
	return t.AddPort(c.out)
}
func (c *sourceComponent) OnConfig(*task.Task) error { return nil }
func (c *sourceComponent) OnUpdate(*task.Task) error {
	c.n++
	c.out.Write(c.n)
	return nil
}
func (c *sourceComponent) OnAborted(*task.Task, error) {}

// sinkComponent records whatever arrives on its "in" port.
type sinkComponent struct {
	in      *port.InputPort[int]
	Got     []int
}

func (c *sinkComponent) Init(t *task.Task) error {
	c.in = port.NewInputPort[int](t.InstanceName(), "in", false)
	return t.AddPort(c.in)
}
func (c *sinkComponent) OnConfig(*task.Task) error { return nil }
func (c *sinkComponent) OnUpdate(*task.Task) error {
	if v, status := c.in.Read(); status == port.NewData {
		c.Got = append(c.Got, v)
	}
	return nil
}
func (c *sinkComponent) OnAborted(*task.Task, error) {}

func TestBuildWiresAndRunsEndToEnd(t *testing.T) {
	src := &sourceComponent{}
	sink := &sinkComponent{}

	reg := registry.New(nil)
	reg.RegisterSpec("source", func(name string, logger *slog.Logger) (*task.Task, error) {
		return task.New("source", name, src, logger), nil
	})
	reg.RegisterSpec("sink", func(name string, logger *slog.Logger) (*task.Task, error) {
		return task.New("sink", name, sink, logger), nil
	})

	yamlText := `
package: demo
components:
  - task: source
    name: s1
  - task: sink
    name: k1
connections:
  - src: {task: s1, port: out}
    dest: {task: k1, port: in}
    data: DATA
    lock: UNSYNC
activities:
  - name: main
    kind: parallel
    mode: periodic
    period_ms: 5
    tasks: [s1, k1]
`
	dir := t.TempDir()
	path := filepath.Join(dir, "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlText), 0o644))

	d, err := descriptor.Load(dir)
	require.NoError(t, err)

	app, err := Build(reg, d, nil)
	require.NoError(t, err)

	s1, _ := reg.Task("s1")
	k1, _ := reg.Task("k1")
	require.NoError(t, s1.Start())
	require.NoError(t, k1.Start())

	time.Sleep(40 * time.Millisecond)
	app.Stop()

	require.NotEmpty(t, sink.Got, "sink never observed a value produced by source")
}

func TestBuildAllowsUNSYNCBetweenOwnerAndItsPeer(t *testing.T) {
	src := &sourceComponent{}
	sink := &sinkComponent{}

	reg := registry.New(nil)
	reg.RegisterSpec("source", func(name string, logger *slog.Logger) (*task.Task, error) {
		return task.New("source", name, src, logger), nil
	})
	reg.RegisterSpec("sink", func(name string, logger *slog.Logger) (*task.Task, error) {
		return task.New("sink", name, sink, logger), nil
	})

	// sink is declared as a peer nested under source; it never appears in
	// the activities block. A UNSYNC connection between them is only valid
	// because a peer executes inside its owner's activity thread.
	yamlText := `
package: demo
components:
  - task: source
    name: s1
    components:
      - task: sink
        name: k1
connections:
  - src: {task: s1, port: out}
    dest: {task: k1, port: in}
    data: DATA
    lock: UNSYNC
activities:
  - name: main
    kind: parallel
    mode: periodic
    period_ms: 5
    tasks: [s1]
`
	dir := t.TempDir()
	path := filepath.Join(dir, "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlText), 0o644))

	d, err := descriptor.Load(dir)
	require.NoError(t, err)

	app, err := Build(reg, d, nil)
	require.NoError(t, err)

	s1, _ := reg.Task("s1")
	k1, _ := reg.Task("k1")
	require.NotNil(t, k1.Activity(), "peer should inherit its owner's bound activity")
	require.Equal(t, s1.Activity(), k1.Activity())

	require.NoError(t, s1.Start())
	time.Sleep(40 * time.Millisecond)
	require.NoError(t, app.Stop())
}

func TestBuildFailsOnMissingEndpoint(t *testing.T) {
	reg := registry.New(nil)
	reg.RegisterSpec("source", func(name string, logger *slog.Logger) (*task.Task, error) {
		return task.New("source", name, &sourceComponent{}, logger), nil
	})

	d := &descriptor.Descriptor{
		Components: []descriptor.Component{{Task: "source", Name: "s1"}},
		Connections: []descriptor.Connection{{
			Src:  descriptor.Endpoint{Task: "s1", Port: "out"},
			Dest: descriptor.Endpoint{Task: "nope", Port: "in"},
			Data: "DATA", Lock: "UNSYNC",
		}},
	}

	if _, err := Build(reg, d, nil); err == nil {
		t.Fatal("Build should fail when a connection endpoint does not resolve")
	}
}
