// Package persist saves and restores store state across restarts.
//
// A Snapshot is the JSON form of a manager's non-transient state. A
// Store moves snapshots to durable storage; FileStore writes a local
// file atomically and S3Store keeps snapshots in an S3 bucket.
//
//	store := persist.NewFileStore("state.json")
//	persist.AutoPersist(scope, m, store,
//	    persist.WithDebounce(2*time.Second))
//
// AutoPersist watches the manager and writes a snapshot after changes
// settle; it stops when the owning scope is disposed.
package persist
