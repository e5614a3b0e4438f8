// Package wazero imports WebAssembly modules into interpreters.
//
// A .wasm file found on an interpreter's search path is compiled and
// instantiated in a wazero runtime owned by that interpreter. Every exported
// function with numeric parameters and results becomes a callable member of
// the imported module.
package wazero
