// Package queue persists acquisition runs in a local SQLite database.
//
// Each run moves through pending, acquiring, acquired, assembling, and
// finally completed or failed. The store is safe for use by the daemon
// workflow and the CLI at the same time; writes retry on SQLITE_BUSY.
package queue
