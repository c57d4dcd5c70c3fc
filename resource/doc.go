// Package resource implements a hierarchical resource store with a local
// layer of pending changes.
//
// A Store is a session over a backing Adapter. Reads consult the session's
// ChangeSet before the adapter: pending writes are returned directly and
// pending deletes hide the deleted path and everything below it. Writes only
// mutate the ChangeSet. Commit pushes the pending deletes and then the
// pending writes to the adapter, notifying an event.Notifier as each path is
// applied, and Revert discards them.
//
// Queries go straight to the adapter and do not see pending changes.
//
// Commit is not atomic. See Store.Commit for what happens when the adapter
// fails part way through.
package resource
