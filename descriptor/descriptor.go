// Package descriptor loads and parses the YAML application descriptor
// that names which task types to instantiate, how to wire their ports,
// and which activities drive them.
package descriptor

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Descriptor is the top-level shape of an application descriptor file.
type Descriptor struct {
	Package    string      `yaml:"package"`
	LogConfig  *LogConfig  `yaml:"logconfig,omitempty"`
	// LibraryPath is the default search path applied to any component
	// that omits its own librarypath, supplementing the per-component
	// field with a single application-wide default.
	LibraryPath string       `yaml:"librarypath,omitempty"`
	Components  []Component  `yaml:"components"`
	Connections []Connection `yaml:"connections"`
	Activities  []Activity   `yaml:"activities"`
	Launch      *Launch      `yaml:"launch,omitempty"`
}

// LogConfig holds a logger level and format; purely ambient, not a
// functional feature of the application being described. It is parsed
// but not applied: no package in this module reads it to configure a
// logger.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn, error
	Format string `yaml:"format,omitempty"` // text, json
}

// Launch carries debug/operational flags for the application runner.
type Launch struct {
	// SingleShot, if true, runs every periodic activity for exactly one
	// step then stops the application. Supplements the distilled spec
	// with the `-s` single-run debug mode of the original launcher.
	SingleShot bool `yaml:"single_shot,omitempty"`
}

// Component describes one task to instantiate, with optional nested peer
// components.
type Component struct {
	Task        string      `yaml:"task"` // registered type name
	Name        string      `yaml:"name"` // instance name
	Library     string      `yaml:"library,omitempty"`
	LibraryPath string      `yaml:"librarypath,omitempty"`
	Attributes  []Attribute `yaml:"attributes,omitempty"`
	Components  []Component `yaml:"components,omitempty"` // peers
}

// Attribute is a single name/value pair applied to a task at assembly
// time via Attribute.SetFromString.
type Attribute struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
	// Inherit, when true on a peer's attribute entry, marks the value as
	// copied from the owning task's same-named attribute instead of
	// parsed from Value — the peer attribute inheritance supplement.
	Inherit bool `yaml:"inherit,omitempty"`
}

// Endpoint identifies a port by its owning task's instance name and the
// port's local name.
type Endpoint struct {
	Task string `yaml:"task"`
	Port string `yaml:"port"`
}

// Connection describes one wiring between two ports and the policy tuple
// governing it.
type Connection struct {
	Src        Endpoint `yaml:"src"`
	Dest       Endpoint `yaml:"dest"`
	Data       string   `yaml:"data"`                 // DATA, BUFFER, CIRCULAR_BUFFER
	Lock       string   `yaml:"lock"`                 // UNSYNC, LOCKED, LOCK_FREE
	BufferSize int      `yaml:"buffer_size,omitempty"`
}

// Activity describes one scheduling unit and the task instances bound to
// it. Multiple Activity entries may share the same Name; they are folded
// into one shared activity instance, not one each.
type Activity struct {
	Name      string   `yaml:"name"`
	Kind      string   `yaml:"kind,omitempty"` // sequential, parallel (default: parallel)
	Mode      string   `yaml:"mode"`           // periodic, triggered
	PeriodMs  int      `yaml:"period_ms,omitempty"`
	Affinity  string   `yaml:"affinity,omitempty"`
	Exclusive bool     `yaml:"exclusive,omitempty"`
	Tasks     []string `yaml:"tasks"`
}

// Load reads and parses an application descriptor from path. If path is a
// directory, it looks for app.yaml then app.yml within it.
func Load(path string) (*Descriptor, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("descriptor: stat %s: %w", path, err)
	}

	configPath := path
	if info.IsDir() {
		yamlPath := filepath.Join(path, "app.yaml")
		if _, err := os.Stat(yamlPath); err == nil {
			configPath = yamlPath
		} else if ymlPath := filepath.Join(path, "app.yml"); fileExists(ymlPath) {
			configPath = ymlPath
		} else {
			return nil, fmt.Errorf("descriptor: no app.yaml or app.yml found in %s", path)
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("descriptor: read %s: %w", configPath, err)
	}

	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("descriptor: parse %s: %w", configPath, err)
	}
	return &d, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
