// Package daemon wires the queue store, workflow manager, and acquisition
// scheduler into a single-instance background service.
package daemon
