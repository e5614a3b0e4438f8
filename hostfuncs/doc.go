// Package hostfuncs provides the registry of host functions that scripts can
// call, grouped into modules such as "element" or "geometry".
package hostfuncs
