package resource

// Iterator is a lazy, finite, single-pass sequence of resources. It cannot
// be restarted. Typical use:
//
//	for it.Next() {
//		d := it.Data()
//		...
//	}
//	if err := it.Err(); err != nil {
//		...
//	}
//
// Close releases anything held by the iterator and may be called at any
// time. Remove always fails with ErrNotSupported since result sequences are
// read-only.
type Iterator interface {
	Next() bool
	Data() *Data
	Err() error
	Close() error
	Remove() error
}

// NewSliceIterator returns an Iterator over items.
func NewSliceIterator(items []*Data) Iterator {
	return &sliceIterator{items: items, pos: -1}
}

type sliceIterator struct {
	items []*Data
	pos   int
}

func (s *sliceIterator) Next() bool {
	if s.pos >= len(s.items) {
		return false
	}
	s.pos++
	return s.pos < len(s.items)
}

func (s *sliceIterator) Data() *Data {
	if s.pos < 0 || s.pos >= len(s.items) {
		return nil
	}
	return s.items[s.pos]
}

func (s *sliceIterator) Err() error { return nil }

func (s *sliceIterator) Close() error {
	s.pos = len(s.items)
	s.items = nil
	return nil
}

func (s *sliceIterator) Remove() error { return ErrNotSupported }

// NewFuncIterator returns an Iterator which calls next to produce each
// item. next returns nil, nil when the sequence is exhausted. The optional
// closer is called once, by Close or when the sequence ends.
func NewFuncIterator(next func() (*Data, error), closer func() error) Iterator {
	return &funcIterator{next: next, closer: closer}
}

type funcIterator struct {
	next    func() (*Data, error)
	closer  func() error
	current *Data
	err     error
	done    bool
}

func (f *funcIterator) Next() bool {
	if f.done {
		return false
	}
	f.current, f.err = f.next()
	if f.current == nil || f.err != nil {
		f.current = nil
		if cerr := f.Close(); f.err == nil {
			f.err = cerr
		}
		return false
	}
	return true
}

func (f *funcIterator) Data() *Data { return f.current }

func (f *funcIterator) Err() error { return f.err }

func (f *funcIterator) Close() error {
	if f.done {
		return nil
	}
	f.done = true
	if f.closer != nil {
		return f.closer()
	}
	return nil
}

func (f *funcIterator) Remove() error { return ErrNotSupported }

// Collect drains it into a slice and closes it.
func Collect(it Iterator) ([]*Data, error) {
	defer it.Close()
	var result []*Data
	for it.Next() {
		result = append(result, it.Data())
	}
	return result, it.Err()
}
