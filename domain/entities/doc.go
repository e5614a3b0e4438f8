// Package entities provides the core domain types shared by the interpreter
// pool and the native bridge: the tagged Value that crosses the runtime
// boundary, execution results, statistics snapshots, configuration and the
// host model records the sub-bridges operate on.
package entities
