package task

import (
	"fmt"
	"strconv"

	"github.com/cocomr/coco/input"
)

// Attribute is named, typed storage mutated during configuration and
// treated as read-mostly once a task is running. The value is stored as
// any, mirroring how a descriptor supplies it as a bare string that each
// attribute parses into its own concrete type.
type Attribute struct {
	name  string
	value any
}

// NewAttribute creates an attribute with an initial value, typically the
// zero value of the type a component wants to store there.
func NewAttribute(name string, value any) *Attribute {
	return &Attribute{name: name, value: value}
}

func (a *Attribute) Name() string { return a.name }

// Get returns the current stored value.
func (a *Attribute) Get() any { return a.value }

// Set replaces the stored value outright, for component code that already
// holds a typed value (e.g. an int computed at init time).
func (a *Attribute) Set(v any) { a.value = v }

// SetFromString parses raw against the type of the attribute's current
// value and stores the result. This is the path a descriptor's
// `attributes: [{name, value}]` list uses, since YAML scalars arrive as
// strings.
func (a *Attribute) SetFromString(raw string) error {
	switch a.value.(type) {
	case string:
		a.value = raw
	case bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("attribute %s: %w", a.name, err)
		}
		a.value = b
	case int, int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("attribute %s: %w", a.name, err)
		}
		a.value = int(n)
	case float64, float32:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("attribute %s: %w", a.name, err)
		}
		a.value = f
	default:
		a.value = raw
	}
	return nil
}

// box wraps the attribute's value as a single-key map so callers can reuse
// the input package's coercion helpers (GetString, GetInt, ...) instead of
// a second set of type switches.
func (a *Attribute) box() map[string]any {
	return map[string]any{a.name: a.value}
}

// String, Int, Bool, and Float64 coerce the stored value the same way a
// descriptor-supplied operation argument would be coerced, returning
// defaultVal on a type mismatch rather than an error — consistent with how
// the rest of the runtime treats a malformed attribute as "use the
// fallback, log if the caller cares" instead of a hard failure.
func (a *Attribute) String(defaultVal string) string   { return input.GetString(a.box(), a.name, defaultVal) }
func (a *Attribute) Int(defaultVal int) int             { return input.GetInt(a.box(), a.name, defaultVal) }
func (a *Attribute) Bool(defaultVal bool) bool          { return input.GetBool(a.box(), a.name, defaultVal) }
func (a *Attribute) Float64(defaultVal float64) float64 { return input.GetFloat64(a.box(), a.name, defaultVal) }
