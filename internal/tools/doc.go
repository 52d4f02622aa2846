// Package tools provides reusable runtime helpers shared by the CLI and the
// container bootstrap.
//
// Ownership boundary:
// - command execution helpers
//
// - host/runtime utility primitives
package tools
