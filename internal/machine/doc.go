// Package machine owns the remote endpoint registry.
//
// Ownership boundary:
// - machine records (ssh/tcp/socket) and their validation rules
// - on-disk registry under the cpk config directory
// - ssh credential provisioning and remote shell execution
package machine
