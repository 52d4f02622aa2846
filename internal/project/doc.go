// Package project owns project discovery and descriptor parsing.
//
// Ownership boundary:
// - marker-file discovery and precedence ordering
// - self.yaml descriptor and template metadata
// - per-project resource directory layout
package project
