package registry

import (
	"log/slog"
	"testing"

	"github.com/cocomr/coco/task"
)

func echoFactory(instanceName string, logger *slog.Logger) (*task.Task, error) {
	return task.New("echo", instanceName, task.NopComponent{}, logger), nil
}

func TestCreateUnknownTypeReturnsNotOk(t *testing.T) {
	r := New(nil)
	tk, ok, err := r.Create("nope", "i1")
	if ok || tk != nil || err != nil {
		t.Fatalf("Create(unknown) = (%v, %v, %v), want (nil, false, nil)", tk, ok, err)
	}
}

func TestCreateAndLookup(t *testing.T) {
	r := New(nil)
	r.RegisterSpec("echo", echoFactory)

	tk, ok, err := r.Create("echo", "i1")
	if !ok || err != nil {
		t.Fatalf("Create: ok=%v err=%v", ok, err)
	}
	if tk.InstanceName() != "i1" {
		t.Fatalf("instance name = %q, want i1", tk.InstanceName())
	}

	got, found := r.Task("i1")
	if !found || got != tk {
		t.Fatalf("Task lookup: found=%v got=%v want=%v", found, got, tk)
	}
}

func TestCreateReplacesExistingInstance(t *testing.T) {
	r := New(nil)
	r.RegisterSpec("echo", echoFactory)
	r.Create("echo", "i1")
	second, _, _ := r.Create("echo", "i1")

	got, _ := r.Task("i1")
	if got != second {
		t.Fatal("re-using an instance name should replace the previous task")
	}
	if len(r.Tasks()) != 1 {
		t.Fatalf("Tasks() = %v, want exactly one instance", r.Tasks())
	}
}

func TestAliasResolvesToSameFactory(t *testing.T) {
	r := New(nil)
	r.RegisterSpec("echo", echoFactory)
	r.Alias("echo2", "echo")

	tk, ok, err := r.Create("echo2", "i1")
	if !ok || err != nil || tk == nil {
		t.Fatalf("Create via alias: ok=%v err=%v", ok, err)
	}
}

func TestAliasOfUnknownNameIsNoOp(t *testing.T) {
	r := New(nil)
	r.Alias("new", "missing")
	if _, ok, _ := r.Create("new", "i1"); ok {
		t.Fatal("alias of an unregistered type should remain unresolvable")
	}
}

func TestComponentNamesListsRegisteredTypes(t *testing.T) {
	r := New(nil)
	r.RegisterSpec("echo", echoFactory)
	r.RegisterSpec("sink", echoFactory)

	names := r.ComponentNames()
	if len(names) != 2 {
		t.Fatalf("ComponentNames() = %v, want 2 entries", names)
	}
}

func TestLibraryPathPerPlatform(t *testing.T) {
	// libraryPath is exercised indirectly by AddLibrary; this checks the
	// filename assembly logic in isolation for the current platform.
	got := libraryPath("detectors", "/opt/coco/lib")
	if got == "" {
		t.Fatal("libraryPath returned empty string")
	}
}
