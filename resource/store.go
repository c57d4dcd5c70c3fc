package resource

import (
	"sort"

	"github.com/facebookgo/stats"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/ndlib/arbor/event"
	"github.com/ndlib/arbor/logging"
	"github.com/ndlib/arbor/pathmatch"
)

// Store is the view of a resource tree seen by one session. Reads combine
// the backing Adapter with the session's pending changes. Writes only touch
// the pending changes until Commit pushes them to the Adapter.
//
// A Store is not goroutine safe. It is meant to be used by a single caller
// for the duration of one unit of work (e.g. one request) and then thrown
// away. Many Stores may share one Adapter.
type Store struct {
	adapter  Adapter
	changes  *ChangeSet
	notifier event.Notifier
	log      zerolog.Logger
	stats    stats.Client
	session  string
	closed   bool
}

// Option configures a Store.
type Option func(*Store)

// WithNotifier sets the Notifier which is told about every path changed by
// a commit.
func WithNotifier(n event.Notifier) Option {
	return func(s *Store) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithLogger sets the logger used by the Store.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

// WithStats sets the client which receives commit counters and timings.
func WithStats(c stats.Client) Option {
	return func(s *Store) {
		if c != nil {
			s.stats = c
		}
	}
}

// New starts a new session over the given adapter.
func New(adapter Adapter, opts ...Option) *Store {
	s := &Store{
		adapter:  adapter,
		changes:  NewChangeSet(),
		notifier: event.Nobody{},
		log:      logging.Get("resource"),
		stats:    nostats{},
		session:  uuid.New().String(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("session", s.session).Logger()
	return s
}

// Session returns the identifier of this session, as used in log lines.
func (s *Store) Session() string { return s.session }

// Get returns the resource at path. A pending delete of the path or of any
// of its ancestors hides everything at or below it, including pending
// writes. Otherwise a pending write for the path is returned as is. The
// root always exists, even when the adapter has nothing stored for it.
//
// A path created under a deleted ancestor stays hidden until the delete is
// undone, although Commit, which applies deletes before writes, would store
// it.
func (s *Store) Get(path string) (*Data, error) {
	if s.closed {
		return nil, ErrClosed
	}
	path = pathmatch.Clean(path)
	if !s.adapter.ValidPath(path) {
		return nil, errors.Wrapf(ErrNotFound, "get %q", path)
	}
	if s.changes.Deleted(path) {
		return nil, errors.Wrapf(ErrNotFound, "get %q", path)
	}
	if d, ok := s.changes.Written(path); ok {
		return d, nil
	}
	d, err := s.adapter.Get(path)
	if err != nil {
		return nil, err
	}
	if d != nil {
		return d, nil
	}
	if pathmatch.IsRoot(path) {
		return NewData(pathmatch.Root, nil), nil
	}
	return nil, errors.Wrapf(ErrNotFound, "get %q", path)
}

// Parent returns the resource one level above path. The root has no parent.
func (s *Store) Parent(path string) (*Data, error) {
	parent, ok := pathmatch.Parent(pathmatch.Clean(path))
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "parent of %q", path)
	}
	return s.Get(parent)
}

// Children returns the resources directly below parent, ordered by path.
// Children in the adapter are hidden if they are pending deletion or if they
// have a pending write, and every pending write directly below parent which
// is not under a pending delete is included. An invalid parent has no
// children.
func (s *Store) Children(parent string) (Iterator, error) {
	if s.closed {
		return nil, ErrClosed
	}
	parent = pathmatch.Clean(parent)
	if !s.adapter.ValidPath(parent) {
		return NewSliceIterator(nil), nil
	}
	stored, err := s.adapter.Children(parent)
	if err != nil {
		return nil, err
	}
	merged := make(map[string]*Data, len(stored))
	for _, d := range stored {
		p := d.Path()
		if s.changes.Deleted(p) {
			continue
		}
		if _, ok := s.changes.Written(p); ok {
			continue
		}
		merged[p] = d
	}
	for _, d := range s.changes.ChildWrites(parent) {
		if s.changes.Deleted(d.Path()) {
			continue
		}
		merged[d.Path()] = d
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	result := make([]*Data, len(keys))
	for i, k := range keys {
		result[i] = merged[k]
	}
	return NewSliceIterator(result), nil
}

// checkWritable validates a path which is about to be modified.
func (s *Store) checkWritable(op, path string) error {
	if s.closed {
		return ErrClosed
	}
	if pathmatch.IsRoot(path) {
		return errors.Wrapf(ErrIllegalRoot, "%s %s", op, path)
	}
	if !s.adapter.ValidPath(path) {
		return errors.Wrapf(ErrInvalidPath, "%s %q", op, path)
	}
	return nil
}

// Create adds a new resource at path to the pending changes. Unless path is
// pending deletion, it fails if there is a pending write for path or if the
// adapter has data at path.
func (s *Store) Create(path string, props map[string]interface{}) (*Data, error) {
	path = pathmatch.Clean(path)
	if err := s.checkWritable("create", path); err != nil {
		return nil, err
	}
	if !s.changes.Deleted(path) {
		if _, ok := s.changes.Written(path); ok {
			return nil, errors.Wrapf(ErrAlreadyExists, "create %s", path)
		}
		d, err := s.adapter.Get(path)
		if err != nil {
			return nil, err
		}
		if d != nil {
			return nil, errors.Wrapf(ErrAlreadyExists, "create %s", path)
		}
	}
	s.log.Debug().Str("path", path).Msg("create")
	return s.changes.Create(path, props)
}

// Update replaces the properties of the existing resource at path.
func (s *Store) Update(path string, props map[string]interface{}) (*Data, error) {
	path = pathmatch.Clean(path)
	if err := s.checkWritable("update", path); err != nil {
		return nil, err
	}
	if _, err := s.Get(path); err != nil {
		return nil, err
	}
	s.log.Debug().Str("path", path).Msg("update")
	return s.changes.MarkChanged(path, props)
}

// Delete marks path and everything under it for deletion. It is not an error
// if nothing exists there.
func (s *Store) Delete(path string) error {
	path = pathmatch.Clean(path)
	if err := s.checkWritable("delete", path); err != nil {
		return err
	}
	s.log.Debug().Str("path", path).Msg("delete")
	return s.changes.Delete(path)
}

// Revert discards every pending change.
func (s *Store) Revert() {
	s.changes.Revert()
}

// HasChanges reports whether there are pending changes.
func (s *Store) HasChanges() bool {
	return s.changes.HasChanges()
}

// Commit pushes the pending changes to the adapter. Pending deletes are
// applied first, in path order, then pending writes in the order they were
// first made. The Notifier is told about each path once it has been applied.
//
// Commit is not atomic. The first adapter error stops the commit and is
// returned, but changes applied before the failure stay applied. In every
// case the pending changes are discarded when Commit returns, exactly as if
// Revert had been called, so a failed commit leaves an empty session in
// front of a backing store which may be partially updated.
func (s *Store) Commit() error {
	if s.closed {
		return ErrClosed
	}
	defer s.changes.Revert()
	defer s.stats.BumpTime("commit").End()

	deletes := s.changes.Deletes()
	writes := s.changes.Writes()
	for _, p := range deletes {
		if err := s.adapter.DeleteRecursive(p); err != nil {
			s.commitFailed(err, p, "delete")
			return err
		}
		s.notifier.Notify(event.Removed, p)
	}
	for _, d := range writes {
		created, err := s.adapter.Store(d)
		if err != nil {
			s.commitFailed(err, d.Path(), "store")
			return err
		}
		kind := event.Updated
		if created {
			kind = event.Added
		}
		s.notifier.Notify(kind, d.Path())
	}
	s.stats.BumpSum("commit.deletes", float64(len(deletes)))
	s.stats.BumpSum("commit.writes", float64(len(writes)))
	s.log.Info().
		Int("deletes", len(deletes)).
		Int("writes", len(writes)).
		Msg("commit")
	return nil
}

func (s *Store) commitFailed(err error, path, op string) {
	s.stats.BumpSum("commit.errors", 1)
	s.log.Error().
		Err(err).
		Str("path", path).
		Str("op", op).
		Msg("commit failed, pending changes discarded")
}

// Query runs expression in the given language against the adapter. Pending
// changes are not visible to queries. An adapter which does not know the
// language yields an error wrapping ErrNotSupported.
func (s *Store) Query(expression, language string) (Iterator, error) {
	if s.closed {
		return nil, ErrClosed
	}
	it, err := s.adapter.Query(expression, language)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, errors.Wrapf(ErrNotSupported, "query language %q", language)
	}
	return it, nil
}

// Live reports whether the session is still open.
func (s *Store) Live() bool {
	return !s.closed
}

// Close discards any pending changes and ends the session. Every later call
// on the Store returns ErrClosed.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	if s.changes.HasChanges() {
		s.log.Debug().Msg("closing with pending changes")
	}
	s.changes.Revert()
	s.closed = true
	return nil
}

// nostats discards everything.
type nostats struct{}

func (nostats) BumpAvg(string, float64)       {}
func (nostats) BumpSum(string, float64)       {}
func (nostats) BumpHistogram(string, float64) {}
func (nostats) BumpTime(string) interface {
	End()
} {
	return nostats{}
}
func (nostats) End() {}
