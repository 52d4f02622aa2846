// Package bootstrap owns the in-container start-up pipeline: project
// discovery hand-off, environment merge, launcher installation, and the final
// process hand-off to application code.
//
// Ownership boundary:
// - environment state and idempotence guards
// - configuration merge across discovered projects
// - launcher registry and alias materialization
// - bootstrap phase sequencing and command hand-off
package bootstrap
