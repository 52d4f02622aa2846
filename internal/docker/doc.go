// Package docker talks to the container engine on behalf of the tool.
//
// Ownership boundary:
// - architecture canonicalization and build compatibility rules
// - image name parsing and compilation, cpk label namespace
// - engine commands (build, run, push, pull) over a machine shell
// - registry HTTP API lookups (digests, remote image metadata)
package docker
