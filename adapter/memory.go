package adapter

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/ndlib/arbor/pathmatch"
	"github.com/ndlib/arbor/resource"
)

// Memory implements a simple in-memory adapter. It is intended mainly for
// testing.
type Memory struct {
	m    sync.RWMutex
	data map[string]*resource.Data
}

var (
	// ensure Memory satisfies the Adapter interface
	_ resource.Adapter = &Memory{}
)

// NewMemory returns a new, empty memory adapter.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]*resource.Data)}
}

// ValidPath implements resource.Adapter.
func (ms *Memory) ValidPath(path string) bool {
	return ValidPath(path)
}

// Get returns the resource stored at path, or nil.
func (ms *Memory) Get(path string) (*resource.Data, error) {
	ms.m.RLock()
	d := ms.data[path]
	ms.m.RUnlock()
	return d, nil
}

// Children returns the resources one level below path, ordered by path.
func (ms *Memory) Children(path string) ([]*resource.Data, error) {
	child := pathmatch.DirectChild(path)
	var result []*resource.Data
	ms.m.RLock()
	for k, v := range ms.data {
		if child(k) {
			result = append(result, v)
		}
	}
	ms.m.RUnlock()
	sortData(result)
	return result, nil
}

// Store saves d, replacing whatever was at its path.
func (ms *Memory) Store(d *resource.Data) (bool, error) {
	ms.m.Lock()
	_, exists := ms.data[d.Path()]
	ms.data[d.Path()] = d
	ms.m.Unlock()
	return !exists, nil
}

// DeleteRecursive removes path and everything under it. It is not an error
// if nothing is there.
func (ms *Memory) DeleteRecursive(path string) error {
	under := pathmatch.SameOrDescendant(path)
	ms.m.Lock()
	for k := range ms.data {
		if under(k) {
			delete(ms.data, k)
		}
	}
	ms.m.Unlock()
	return nil
}

// Query evaluates expression against every stored resource. The results
// are a snapshot taken when Query is called.
func (ms *Memory) Query(expression, language string) (resource.Iterator, error) {
	m, err := compileQuery(expression, language)
	if m == nil || err != nil {
		return nil, err
	}
	ms.m.RLock()
	all := make([]*resource.Data, 0, len(ms.data))
	for _, v := range ms.data {
		all = append(all, v)
	}
	ms.m.RUnlock()
	sortData(all)
	return filter(resource.NewSliceIterator(all), m), nil
}

// Len returns the number of stored resources.
func (ms *Memory) Len() int {
	ms.m.RLock()
	defer ms.m.RUnlock()
	return len(ms.data)
}

// Dump writes a listing of the contents of the adapter to the given writer.
// This is intended for testing and debugging.
func (ms *Memory) Dump(w io.Writer) {
	ms.m.RLock()
	keys := make([]string, 0, len(ms.data))
	for k := range ms.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s: %v\n", k, ms.data[k].Properties())
	}
	ms.m.RUnlock()
}

func sortData(items []*resource.Data) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].Path() < items[j].Path()
	})
}
