// Package ports defines the interfaces between the bridge's core and its
// infrastructure: the embedded interpreter, the host model it mutates, and
// the stores and parsers that feed it.
package ports
