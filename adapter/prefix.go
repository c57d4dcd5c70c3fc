package adapter

import (
	"strings"

	"github.com/ndlib/arbor/pathmatch"
	"github.com/ndlib/arbor/resource"
)

// NewWithPrefix wraps the adapter a by one which mounts the tree at root.
// The path "/x" of the returned adapter is root+"/x" of a, and "/" is root
// itself. This provides a way to share the same underlying adapter among
// several trees. Query expressions are passed to a unchanged, so any which
// look at paths see the paths of a.
func NewWithPrefix(a resource.Adapter, root string) resource.Adapter {
	root = pathmatch.Clean(root)
	if pathmatch.IsRoot(root) {
		root = ""
	}
	return prefixadapter{a: a, p: root}
}

type prefixadapter struct {
	a resource.Adapter // the adapter being wrapped
	p string           // where our root is in a, "" for its root
}

// inner translates one of our paths to a path of a.
func (pa prefixadapter) inner(path string) string {
	if pa.p == "" {
		return path
	}
	if pathmatch.IsRoot(path) {
		return pa.p
	}
	return pa.p + path
}

// outer translates a path of a to one of ours, if it is inside the mount.
func (pa prefixadapter) outer(path string) (string, bool) {
	switch {
	case pa.p == "":
		return path, true
	case path == pa.p:
		return pathmatch.Root, true
	case strings.HasPrefix(path, pa.p+pathmatch.Separator):
		return path[len(pa.p):], true
	}
	return "", false
}

func (pa prefixadapter) relocate(d *resource.Data) *resource.Data {
	p, ok := pa.outer(d.Path())
	if !ok {
		return nil
	}
	return d.WithPath(p)
}

func (pa prefixadapter) ValidPath(path string) bool {
	return strings.HasPrefix(path, pathmatch.Root) && pa.a.ValidPath(pa.inner(path))
}

func (pa prefixadapter) Get(path string) (*resource.Data, error) {
	d, err := pa.a.Get(pa.inner(path))
	if d == nil || err != nil {
		return nil, err
	}
	return d.WithPath(path), nil
}

func (pa prefixadapter) Children(path string) ([]*resource.Data, error) {
	items, err := pa.a.Children(pa.inner(path))
	var result []*resource.Data
	for _, d := range items {
		if d = pa.relocate(d); d != nil {
			result = append(result, d)
		}
	}
	return result, err
}

func (pa prefixadapter) Store(d *resource.Data) (bool, error) {
	return pa.a.Store(d.WithPath(pa.inner(d.Path())))
}

func (pa prefixadapter) DeleteRecursive(path string) error {
	return pa.a.DeleteRecursive(pa.inner(path))
}

func (pa prefixadapter) Query(expression, language string) (resource.Iterator, error) {
	it, err := pa.a.Query(expression, language)
	if it == nil || err != nil {
		return nil, err
	}
	return resource.NewFuncIterator(func() (*resource.Data, error) {
		for it.Next() {
			if d := pa.relocate(it.Data()); d != nil {
				return d, nil
			}
		}
		return nil, it.Err()
	}, it.Close), nil
}
