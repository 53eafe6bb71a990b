package descriptor

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `
package: demo
librarypath: /opt/coco/lib
logconfig:
  level: debug
  format: json
components:
  - task: sensor
    name: s1
    attributes:
      - name: rate_hz
        value: "10"
  - task: sink
    name: k1
connections:
  - src: {task: s1, port: out}
    dest: {task: k1, port: in}
    data: BUFFER
    lock: LOCKED
    buffer_size: 4
activities:
  - name: main
    mode: periodic
    period_ms: 100
    tasks: [s1, k1]
launch:
  single_shot: true
`

func TestLoadParsesFullDescriptor(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	d, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if d.Package != "demo" {
		t.Fatalf("Package = %q, want demo", d.Package)
	}
	if d.LibraryPath != "/opt/coco/lib" {
		t.Fatalf("LibraryPath = %q", d.LibraryPath)
	}
	if len(d.Components) != 2 || d.Components[0].Name != "s1" {
		t.Fatalf("Components = %+v", d.Components)
	}
	if len(d.Connections) != 1 || d.Connections[0].BufferSize != 4 {
		t.Fatalf("Connections = %+v", d.Connections)
	}
	if len(d.Activities) != 1 || d.Activities[0].PeriodMs != 100 {
		t.Fatalf("Activities = %+v", d.Activities)
	}
	if d.Launch == nil || !d.Launch.SingleShot {
		t.Fatalf("Launch = %+v, want single_shot true", d.Launch)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("Load on a directory with no descriptor should fail")
	}
}
