// Package coco is the top-level convenience API for the component-based
// dataflow execution runtime: load a descriptor, assemble it against a
// registry, and run it.
//
// Most programs only need New and the returned App's Start/RunSequential/
// Stop; the registry, task, port, engine, activity, descriptor, and
// assembly packages are exported separately for components and tooling
// that need the lower-level primitives directly.
package coco
