// Package input coerces an attribute's stored value to the concrete type a
// component asks for, the way a value parsed from a YAML-sourced descriptor
// string needs coercing into an int, bool, or float64.
//
// Every function takes a single-key map so task.Attribute can reuse the same
// coercion logic for its String/Int/Bool/Float64 accessors without a second
// set of type switches; a function returns defaultVal rather than an error
// on a missing key, a nil value, or a type it doesn't know how to convert.
package input
