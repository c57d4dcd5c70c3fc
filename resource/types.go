package resource

import (
	"github.com/pkg/errors"
)

// Data is a snapshot of one resource: its path and its properties. It is
// immutable once constructed. Property values are opaque to this package.
type Data struct {
	path  string
	props map[string]interface{}
}

// NewData returns a Data for path holding a copy of props.
func NewData(path string, props map[string]interface{}) *Data {
	return &Data{path: path, props: copyProps(props)}
}

// Path returns the location of the resource.
func (d *Data) Path() string { return d.path }

// Properties returns a copy of the resource's properties. It is never nil.
func (d *Data) Properties() map[string]interface{} {
	return copyProps(d.props)
}

// Property returns the single named property.
func (d *Data) Property(name string) (interface{}, bool) {
	v, ok := d.props[name]
	return v, ok
}

// Len returns the number of properties.
func (d *Data) Len() int { return len(d.props) }

// WithPath returns a copy of d relocated to path. Adapters which mount a
// tree somewhere else use it to translate results.
func (d *Data) WithPath(path string) *Data {
	return &Data{path: path, props: d.props}
}

func copyProps(props map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(props))
	for k, v := range props {
		result[k] = v
	}
	return result
}

// Adapter is a backing store for resources. Implementations must be
// goroutine safe since one adapter is normally shared by many sessions.
//
// Get returns nil, nil when nothing is stored at path. Store reports whether
// the call created a new entry (true) or replaced an existing one (false).
// DeleteRecursive removes path and everything under it, and is not an error
// if nothing is there. Query returns nil, nil if the adapter does not
// understand the given language.
type Adapter interface {
	ValidPath(path string) bool
	Get(path string) (*Data, error)
	Children(path string) ([]*Data, error)
	Store(d *Data) (created bool, err error)
	DeleteRecursive(path string) error
	Query(expression, language string) (Iterator, error)
}

var (
	// ErrInvalidPath means the adapter rejected a path.
	ErrInvalidPath = errors.New("invalid path")

	// ErrIllegalRoot means there was an attempt to create, update or
	// delete the root resource.
	ErrIllegalRoot = errors.New("root resource cannot be modified")

	// ErrAlreadyExists means a create targeted a path which already has
	// data, either pending or in the backing store.
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrNotFound means there is no resource at a path.
	ErrNotFound = errors.New("resource not found")

	// ErrNotSupported means an operation is not available, such as
	// modifying a result sequence or querying in an unknown language.
	ErrNotSupported = errors.New("operation not supported")

	// ErrClosed means the session has been closed.
	ErrClosed = errors.New("session closed")
)
