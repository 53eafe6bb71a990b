// Package assembly builds a running application from a parsed descriptor
// and a populated registry: instantiating tasks, wiring their ports, and
// binding them to activities.
package assembly

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cocomr/coco/activity"
	"github.com/cocomr/coco/cocoerr"
	"github.com/cocomr/coco/descriptor"
	"github.com/cocomr/coco/engine"
	"github.com/cocomr/coco/port"
	"github.com/cocomr/coco/registry"
	"github.com/cocomr/coco/task"
)

// App is the fully wired result of Build: every task instantiated, every
// connection made, every activity bound and ready to start.
type App struct {
	logger *slog.Logger

	registry   *registry.Registry
	tasks      []*task.Task
	parallel   []*activity.ParallelActivity
	sequential []*activity.SequentialActivity
	wired      []wiredConnection
}

// wiredConnection remembers the two endpoint tasks behind a connection so
// that validateActivityBoundaries can inspect their activity bindings once
// bindActivities has run, without needing the registry a second time.
type wiredConnection struct {
	conn     port.Connection
	srcTask  *task.Task
	destTask *task.Task
}

// Build instantiates every component named in d, wires its connections,
// and binds its activities, using reg to resolve type names to factories.
// Library loading, task creation, and port wiring all happen here, before
// any activity starts — assembly itself is not safe for concurrent use,
// matching the shared-resource policy that assembly precedes scheduling.
func Build(reg *registry.Registry, d *descriptor.Descriptor, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{logger: logger, registry: reg}

	if err := a.loadLibraries(reg, d); err != nil {
		return nil, err
	}
	if err := a.instantiate(reg, d); err != nil {
		return nil, err
	}
	if err := a.wireConnections(reg, d); err != nil {
		return nil, err
	}
	if err := a.bindActivities(reg, d); err != nil {
		return nil, err
	}
	if err := a.validateActivityBoundaries(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) loadLibraries(reg *registry.Registry, d *descriptor.Descriptor) error {
	var walk func(comps []descriptor.Component) error
	walk = func(comps []descriptor.Component) error {
		for _, c := range comps {
			if c.Library != "" {
				path := c.LibraryPath
				if path == "" {
					path = d.LibraryPath
				}
				if _, err := reg.AddLibrary(c.Library, path); err != nil {
					return err
				}
			}
			if err := walk(c.Components); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(d.Components)
}

// instantiate creates every component (and recursively its peers),
// applying attributes — including the peer-attribute-inheritance
// supplement — before calling each task's one-time Init hook.
func (a *App) instantiate(reg *registry.Registry, d *descriptor.Descriptor) error {
	var walk func(comps []descriptor.Component, owner *task.Task) error
	walk = func(comps []descriptor.Component, owner *task.Task) error {
		for _, c := range comps {
			instanceName := c.Name
			if instanceName == "" {
				// An anonymous peer (no name given in the descriptor) gets
				// a generated instance discriminator rather than colliding
				// on an empty key in the registry's instance table.
				instanceName = c.Task + "-" + uuid.NewString()
			}
			t, ok, err := reg.Create(c.Task, instanceName)
			if err != nil {
				return err
			}
			if !ok {
				return cocoerr.New("assembly.Build", cocoerr.KindUnknownComponent, nil).
					WithContext(map[string]any{"type": c.Task, "instance": c.Name})
			}

			for _, attr := range c.Attributes {
				value := attr.Value
				if attr.Inherit && owner != nil {
					if src, found := owner.GetAttribute(attr.Name); found {
						value = fmt.Sprintf("%v", src.Get())
					}
				}
				existing, found := t.GetAttribute(attr.Name)
				if !found {
					existing = task.NewAttribute(attr.Name, value)
					if err := t.AddAttribute(existing); err != nil {
						return err
					}
					continue
				}
				if err := existing.SetFromString(value); err != nil {
					return err
				}
			}

			if owner != nil {
				owner.AddPeer(t)
			}
			if err := t.RunInit(); err != nil {
				return err
			}
			a.tasks = append(a.tasks, t)

			if err := walk(c.Components, t); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(d.Components, nil)
}

func (a *App) wireConnections(reg *registry.Registry, d *descriptor.Descriptor) error {
	for _, c := range d.Connections {
		srcTask, ok := reg.Task(c.Src.Task)
		if !ok {
			return missingEndpoint(c.Src)
		}
		destTask, ok := reg.Task(c.Dest.Task)
		if !ok {
			return missingEndpoint(c.Dest)
		}
		srcPort, ok := srcTask.GetPort(c.Src.Port)
		if !ok {
			return missingEndpoint(c.Src)
		}
		destPort, ok := destTask.GetPort(c.Dest.Port)
		if !ok {
			return missingEndpoint(c.Dest)
		}
		out, ok := srcPort.(port.Output)
		if !ok {
			return cocoerr.New("assembly.Build", cocoerr.KindMissingEndpoint, nil).
				WithContext(map[string]any{"task": c.Src.Task, "port": c.Src.Port, "reason": "not an output port"})
		}
		in, ok := destPort.(port.Input)
		if !ok {
			return cocoerr.New("assembly.Build", cocoerr.KindMissingEndpoint, nil).
				WithContext(map[string]any{"task": c.Dest.Task, "port": c.Dest.Port, "reason": "not an input port"})
		}

		policy, err := parsePolicy(c)
		if err != nil {
			return err
		}
		conn, err := port.Wire(out, in, policy)
		if err != nil {
			return err
		}
		a.wired = append(a.wired, wiredConnection{conn: conn, srcTask: srcTask, destTask: destTask})
	}
	return nil
}

// validateActivityBoundaries enforces that an UNSYNC connection never
// crosses an activity boundary: UNSYNC asserts single-threaded access, so
// its two ports must be driven by the same activity thread. LOCKED and
// LOCK_FREE connections carry their own synchronization and are exempt.
func (a *App) validateActivityBoundaries() error {
	for _, w := range a.wired {
		if w.conn.Policy().Lock != port.UNSYNC {
			continue
		}
		if w.srcTask.Activity() != w.destTask.Activity() {
			return cocoerr.New("assembly.Build", cocoerr.KindInvalidPolicy, nil).
				WithContext(map[string]any{
					"reason": "UNSYNC connection crosses an activity boundary",
					"output": w.conn.OutputName(),
					"input":  w.conn.InputName(),
				})
		}
	}
	return nil
}

func missingEndpoint(e descriptor.Endpoint) error {
	return cocoerr.New("assembly.Build", cocoerr.KindMissingEndpoint, nil).
		WithContext(map[string]any{"task": e.Task, "port": e.Port})
}

func parsePolicy(c descriptor.Connection) (port.Policy, error) {
	data, err := parseDataPolicy(c.Data)
	if err != nil {
		return port.Policy{}, cocoerr.New("assembly.Build", cocoerr.KindInvalidPolicy, err)
	}
	lock, err := parseLockPolicy(c.Lock)
	if err != nil {
		return port.Policy{}, cocoerr.New("assembly.Build", cocoerr.KindInvalidPolicy, err)
	}
	p := port.Policy{Data: data, Lock: lock, Transport: port.LOCAL, BufferSize: c.BufferSize}
	if err := p.Validate(); err != nil {
		return port.Policy{}, cocoerr.New("assembly.Build", cocoerr.KindInvalidPolicy, err)
	}
	return p, nil
}

func parseDataPolicy(s string) (port.DataPolicy, error) {
	switch strings.ToUpper(s) {
	case "DATA", "":
		return port.DATA, nil
	case "BUFFER":
		return port.BUFFER, nil
	case "CIRCULAR_BUFFER":
		return port.CIRCULAR_BUFFER, nil
	default:
		return 0, fmt.Errorf("unknown data policy %q", s)
	}
}

func parseLockPolicy(s string) (port.LockPolicy, error) {
	switch strings.ToUpper(s) {
	case "UNSYNC", "":
		return port.UNSYNC, nil
	case "LOCKED":
		return port.LOCKED, nil
	case "LOCK_FREE":
		return port.LOCK_FREE, nil
	default:
		return 0, fmt.Errorf("unknown lock policy %q", s)
	}
}

// bindActivities builds one activity per distinct descriptor Activity
// name (multiple descriptor entries sharing a name are folded into the
// same built activity, per the named-activity-reuse supplement) and binds
// every named task's engine to it, in the order listed.
func (a *App) bindActivities(reg *registry.Registry, d *descriptor.Descriptor) error {
	singleShot := d.Launch != nil && d.Launch.SingleShot

	built := make(map[string]activity.Activity)
	for _, spec := range d.Activities {
		act, ok := built[spec.Name]
		if !ok {
			mode := activity.Periodic
			if strings.EqualFold(spec.Mode, "triggered") {
				mode = activity.Triggered
			}
			period := time.Duration(spec.PeriodMs) * time.Millisecond

			if strings.EqualFold(spec.Kind, "sequential") {
				seq := activity.NewSequential(spec.Name, mode, period, singleShot, a.logger)
				a.sequential = append(a.sequential, seq)
				act = seq
			} else {
				par := activity.NewParallel(spec.Name, mode, period, singleShot, a.logger)
				a.parallel = append(a.parallel, par)
				act = par
			}
			built[spec.Name] = act
		}

		for _, name := range spec.Tasks {
			t, ok := reg.Task(name)
			if !ok {
				return cocoerr.New("assembly.Build", cocoerr.KindUnknownComponent, nil).
					WithContext(map[string]any{"task": name, "activity": spec.Name})
			}
			switch r := act.(type) {
			case *activity.ParallelActivity:
				r.Add(engine.New(t))
			case *activity.SequentialActivity:
				r.Add(engine.New(t))
			}
			t.BindActivity(act)
			bindPeersToOwnerActivity(t, act)
		}
	}

	// Every event-triggered input port wakes its task's bound activity
	// when a connection delivers into it.
	for _, t := range a.tasks {
		for _, p := range t.Ports() {
			if in, ok := p.(port.Input); ok && in.IsEvent() {
				in.SetTrigger(t.TriggerActivity)
			}
		}
	}
	return nil
}

// bindPeersToOwnerActivity propagates owner's activity binding down to
// every peer (and, recursively, a peer's own peers), since a peer never
// appears in a descriptor's activities block — it runs inside its owner's
// on_update rather than holding an independent schedule, so its Activity()
// must resolve to the same activity its owner was just bound to, not nil.
func bindPeersToOwnerActivity(owner *task.Task, act activity.Activity) {
	for _, peer := range owner.Peers() {
		peer.BindActivity(act)
		bindPeersToOwnerActivity(peer, act)
	}
}

// Start starts every ParallelActivity. SequentialActivity instances are
// left to RunSequential, since starting one blocks the calling thread.
func (a *App) Start() error {
	for _, p := range a.parallel {
		if err := p.Start(); err != nil {
			return err
		}
	}
	return nil
}

// HasSequential reports whether the assembled app has any activity meant
// to run on the caller's own thread.
func (a *App) HasSequential() bool { return len(a.sequential) > 0 }

// RunSequential starts and blocks on every SequentialActivity in
// registration order. In the common case there is exactly one, intended
// for the process's main thread; if there is more than one, each after
// the first runs on its own goroutine since only one can own the caller's
// thread.
func (a *App) RunSequential() error {
	if len(a.sequential) == 0 {
		return nil
	}
	for _, s := range a.sequential[1:] {
		go s.Start()
	}
	return a.sequential[0].Start()
}

// Stop stops and joins every activity.
func (a *App) Stop() error {
	for _, p := range a.parallel {
		if err := p.Stop(); err != nil {
			a.logger.Warn("parallel activity stop failed", slog.Any("error", err))
		}
		p.Join()
	}
	for _, s := range a.sequential {
		if err := s.Stop(); err != nil {
			a.logger.Warn("sequential activity stop failed", slog.Any("error", err))
		}
		s.Join()
	}
	return nil
}

// Tasks returns every instantiated task, in assembly order.
func (a *App) Tasks() []*task.Task { return a.tasks }

// Registry returns the registry the app was built from.
func (a *App) Registry() *registry.Registry { return a.registry }
