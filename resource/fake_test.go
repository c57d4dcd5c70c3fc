package resource

import (
	"errors"
	"sort"
	"strings"

	"github.com/ndlib/arbor/event"
	"github.com/ndlib/arbor/pathmatch"
)

// fakeAdapter is a minimal map backed adapter with failure injection.
type fakeAdapter struct {
	data    map[string]*Data
	calls   []string // log of mutating calls, in order
	failOn  string   // path for which Store or DeleteRecursive fails
	failErr error
}

func newFake(paths ...string) *fakeAdapter {
	f := &fakeAdapter{data: make(map[string]*Data)}
	for _, p := range paths {
		f.data[p] = NewData(p, map[string]interface{}{"src": "adapter"})
	}
	return f
}

func (f *fakeAdapter) ValidPath(path string) bool {
	return strings.HasPrefix(path, "/") && !strings.Contains(path, " ")
}

func (f *fakeAdapter) Get(path string) (*Data, error) {
	return f.data[path], nil
}

func (f *fakeAdapter) Children(path string) ([]*Data, error) {
	var result []*Data
	child := pathmatch.DirectChild(path)
	for k, v := range f.data {
		if child(k) {
			result = append(result, v)
		}
	}
	// scramble the order to make sure the store sorts
	sort.Slice(result, func(i, j int) bool { return result[i].Path() > result[j].Path() })
	return result, nil
}

func (f *fakeAdapter) Store(d *Data) (bool, error) {
	f.calls = append(f.calls, "store "+d.Path())
	if d.Path() == f.failOn {
		return false, f.failErr
	}
	_, exists := f.data[d.Path()]
	f.data[d.Path()] = d
	return !exists, nil
}

func (f *fakeAdapter) DeleteRecursive(path string) error {
	f.calls = append(f.calls, "delete "+path)
	if path == f.failOn {
		return f.failErr
	}
	under := pathmatch.SameOrDescendant(path)
	for k := range f.data {
		if under(k) {
			delete(f.data, k)
		}
	}
	return nil
}

func (f *fakeAdapter) Query(expression, language string) (Iterator, error) {
	if language != "prefix" {
		return nil, nil
	}
	var result []*Data
	for k, v := range f.data {
		if strings.HasPrefix(k, expression) {
			result = append(result, v)
		}
	}
	return NewSliceIterator(result), nil
}

var errBoom = errors.New("boom")

// recorder collects notifications as "kind path" strings.
type recorder struct {
	events []string
}

func (r *recorder) Notify(kind event.Kind, path string) {
	r.events = append(r.events, kind.String()+" "+path)
}
