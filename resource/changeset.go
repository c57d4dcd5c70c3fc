package resource

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/ndlib/arbor/pathmatch"
)

// ChangeSet buffers the pending writes and deletes of one session. It does
// no I/O and is not goroutine safe. A ChangeSet is owned by exactly one
// Store and is never handed out to callers.
//
// A pending delete of a path implies the deletion of everything under it,
// so the set of deletes is kept minimal: deleting a path drops any pending
// deletes and pending writes at or below it. Writes remember the order in
// which each path was first written; overwriting a pending write keeps its
// place.
type ChangeSet struct {
	writes  map[string]*Data
	order   []string // paths of writes in insertion order
	deletes map[string]struct{}
}

// NewChangeSet returns an empty ChangeSet.
func NewChangeSet() *ChangeSet {
	return &ChangeSet{
		writes:  make(map[string]*Data),
		deletes: make(map[string]struct{}),
	}
}

// Create records a pending write for path, undoing any pending delete of
// exactly that path. The caller is expected to have already checked the
// path does not exist.
func (cs *ChangeSet) Create(path string, props map[string]interface{}) (*Data, error) {
	if pathmatch.IsRoot(path) {
		return nil, errors.Wrap(ErrIllegalRoot, "create")
	}
	delete(cs.deletes, path)
	return cs.put(path, props), nil
}

// MarkChanged records a pending write for path without touching the pending
// deletes. It is used when an existing resource is modified in place.
func (cs *ChangeSet) MarkChanged(path string, props map[string]interface{}) (*Data, error) {
	if pathmatch.IsRoot(path) {
		return nil, errors.Wrap(ErrIllegalRoot, "update")
	}
	return cs.put(path, props), nil
}

func (cs *ChangeSet) put(path string, props map[string]interface{}) *Data {
	if _, ok := cs.writes[path]; !ok {
		cs.order = append(cs.order, path)
	}
	d := NewData(path, props)
	cs.writes[path] = d
	return d
}

// Delete records a pending delete for path and everything underneath it.
func (cs *ChangeSet) Delete(path string) error {
	if pathmatch.IsRoot(path) {
		return errors.Wrap(ErrIllegalRoot, "delete")
	}
	under := pathmatch.SameOrDescendant(path)
	for p := range cs.deletes {
		if under(p) {
			delete(cs.deletes, p)
		}
	}
	if len(cs.writes) > 0 {
		kept := cs.order[:0]
		for _, p := range cs.order {
			if under(p) {
				delete(cs.writes, p)
				continue
			}
			kept = append(kept, p)
		}
		cs.order = kept
	}
	cs.deletes[path] = struct{}{}
	return nil
}

// Revert discards every pending change.
func (cs *ChangeSet) Revert() {
	cs.writes = make(map[string]*Data)
	cs.order = nil
	cs.deletes = make(map[string]struct{})
}

// HasChanges reports whether there is anything pending.
func (cs *ChangeSet) HasChanges() bool {
	return len(cs.writes) > 0 || len(cs.deletes) > 0
}

// Deleted reports whether path is at or under a pending delete.
func (cs *ChangeSet) Deleted(path string) bool {
	if _, ok := cs.deletes[path]; ok {
		return true
	}
	for p := range cs.deletes {
		if pathmatch.SameOrDescendant(p)(path) {
			return true
		}
	}
	return false
}

// Written returns the pending write for exactly path, if there is one.
func (cs *ChangeSet) Written(path string) (*Data, bool) {
	d, ok := cs.writes[path]
	return d, ok
}

// ChildWrites returns the pending writes exactly one level below parent, in
// insertion order.
func (cs *ChangeSet) ChildWrites(parent string) []*Data {
	var result []*Data
	child := pathmatch.DirectChild(parent)
	for _, p := range cs.order {
		if child(p) {
			result = append(result, cs.writes[p])
		}
	}
	return result
}

// Deletes returns the pending deletes in lexical order.
func (cs *ChangeSet) Deletes() []string {
	result := make([]string, 0, len(cs.deletes))
	for p := range cs.deletes {
		result = append(result, p)
	}
	sort.Strings(result)
	return result
}

// Writes returns the pending writes in the order they were first made.
func (cs *ChangeSet) Writes() []*Data {
	result := make([]*Data, 0, len(cs.order))
	for _, p := range cs.order {
		result = append(result, cs.writes[p])
	}
	return result
}
