package resource

import (
	"reflect"
	"testing"

	"github.com/pkg/errors"
)

func listChildren(t *testing.T, s *Store, parent string) []string {
	t.Helper()
	it, err := s.Children(parent)
	if err != nil {
		t.Fatalf("Children(%s) received %s", parent, err)
	}
	items, err := Collect(it)
	if err != nil {
		t.Fatalf("Children(%s) iteration received %s", parent, err)
	}
	return paths(items)
}

func expectNotFound(t *testing.T, s *Store, path string) {
	t.Helper()
	d, err := s.Get(path)
	if errors.Cause(err) != ErrNotFound {
		t.Errorf("Get(%s) received (%v, %v), expected ErrNotFound", path, d, err)
	}
}

func expectFound(t *testing.T, s *Store, path string) *Data {
	t.Helper()
	d, err := s.Get(path)
	if err != nil {
		t.Fatalf("Get(%s) received %s", path, err)
	}
	if d.Path() != path {
		t.Errorf("Get(%s) received path %s", path, d.Path())
	}
	return d
}

func TestDeleteWins(t *testing.T) {
	s := New(newFake("/p", "/p/q", "/p/q/r"))
	if err := s.Delete("/p"); err != nil {
		t.Fatalf("Received %s", err)
	}
	for _, p := range []string{"/p", "/p/q", "/p/q/r", "/p/never/stored"} {
		expectNotFound(t, s, p)
	}
	if got := listChildren(t, s, "/p"); len(got) != 0 {
		t.Errorf("Received children %v of deleted path", got)
	}
}

func TestCreateAfterDelete(t *testing.T) {
	s := New(newFake("/p"))
	s.Delete("/p")
	if _, err := s.Create("/p", map[string]interface{}{"v": "new"}); err != nil {
		t.Fatalf("Received %s", err)
	}
	d := expectFound(t, s, "/p")
	if v, _ := d.Property("v"); v != "new" {
		t.Errorf("Received v=%v, expected new", v)
	}
}

func TestCreateUnderDeletedAncestor(t *testing.T) {
	s := New(newFake("/p", "/p/q"))
	s.Delete("/p")
	if _, err := s.Create("/p/q", map[string]interface{}{"v": "new"}); err != nil {
		t.Fatalf("Received %s", err)
	}
	// the delete of /p still hides everything under it
	expectNotFound(t, s, "/p/q")
	expectNotFound(t, s, "/p")
	if got := listChildren(t, s, "/p"); len(got) != 0 {
		t.Errorf("Received %v, expected no children", got)
	}
	// a second create is allowed since the path is pending deletion
	if _, err := s.Create("/p/q", map[string]interface{}{"v": "again"}); err != nil {
		t.Errorf("Received %v, expected no error", err)
	}
	if _, err := s.Update("/p/q", nil); errors.Cause(err) != ErrNotFound {
		t.Errorf("Update received %v, expected ErrNotFound", err)
	}

	// creating /p undoes its delete and makes the write under it visible
	if _, err := s.Create("/p", nil); err != nil {
		t.Fatalf("Received %s", err)
	}
	d := expectFound(t, s, "/p/q")
	if v, _ := d.Property("v"); v != "again" {
		t.Errorf("Received v=%v, expected again", v)
	}
}

func TestPrefixNonAliasing(t *testing.T) {
	s := New(newFake("/a", "/ab"))
	s.Delete("/a")
	expectNotFound(t, s, "/a")
	expectFound(t, s, "/ab")
}

func TestChildrenMergeAndOrder(t *testing.T) {
	s := New(newFake("/r", "/r/b", "/r/c", "/r/c/deep", "/rx"))
	s.Create("/r/a", nil)
	s.Update("/r/b", map[string]interface{}{"src": "pending"})

	if got := listChildren(t, s, "/r"); !reflect.DeepEqual(got, []string{"/r/a", "/r/b", "/r/c"}) {
		t.Errorf("Received %v, expected [/r/a /r/b /r/c]", got)
	}

	it, _ := s.Children("/r")
	items, _ := Collect(it)
	if v, _ := items[1].Property("src"); v != "pending" {
		t.Errorf("Received src=%v for /r/b, expected the pending write", v)
	}

	s.Delete("/r/c")
	if got := listChildren(t, s, "/r"); !reflect.DeepEqual(got, []string{"/r/a", "/r/b"}) {
		t.Errorf("Received %v, expected [/r/a /r/b]", got)
	}
	if got := listChildren(t, s, "/"); !reflect.DeepEqual(got, []string{"/r", "/rx"}) {
		t.Errorf("Received %v, expected [/r /rx]", got)
	}
}

func TestCommitClearsState(t *testing.T) {
	f := newFake()
	s := New(f)
	s.Create("/x", nil)
	s.Delete("/y")
	if err := s.Commit(); err != nil {
		t.Fatalf("Received %s", err)
	}
	if s.HasChanges() {
		t.Errorf("HasChanges() true after Commit")
	}

	f.failOn = "/fail"
	f.failErr = errBoom
	s.Create("/ok", nil)
	s.Create("/fail", nil)
	s.Create("/never", nil)
	err := s.Commit()
	if err != errBoom {
		t.Errorf("Received %v, expected the adapter error unchanged", err)
	}
	if s.HasChanges() {
		t.Errorf("HasChanges() true after a failed Commit")
	}
	// partially applied: /ok is durable, /never was not attempted
	if _, ok := f.data["/ok"]; !ok {
		t.Errorf("/ok was rolled back")
	}
	if _, ok := f.data["/never"]; ok {
		t.Errorf("/never was stored after the failure")
	}
}

func TestCommitFailureDuringDeletes(t *testing.T) {
	f := newFake("/a", "/b")
	f.failOn = "/a"
	f.failErr = errBoom
	rec := &recorder{}
	s := New(f, WithNotifier(rec))
	s.Delete("/a")
	s.Create("/c", nil)
	if err := s.Commit(); err != errBoom {
		t.Errorf("Received %v, expected %v", err, errBoom)
	}
	if len(rec.events) != 0 {
		t.Errorf("Received events %v for a failed delete", rec.events)
	}
	if !reflect.DeepEqual(f.calls, []string{"delete /a"}) {
		t.Errorf("Received calls %v", f.calls)
	}
	if s.HasChanges() {
		t.Errorf("HasChanges() true after a failed Commit")
	}
}

func TestCommitOrderAndEvents(t *testing.T) {
	f := newFake("/old", "/gone", "/gone/child", "/z")
	rec := &recorder{}
	s := New(f, WithNotifier(rec))

	s.Create("/n2", nil)
	s.Update("/old", map[string]interface{}{"v": 2})
	s.Create("/n1", nil)
	s.Delete("/z")
	s.Delete("/gone")
	s.Update("/n2", map[string]interface{}{"v": 3})

	if err := s.Commit(); err != nil {
		t.Fatalf("Received %s", err)
	}
	expectedCalls := []string{"delete /gone", "delete /z", "store /n2", "store /old", "store /n1"}
	if !reflect.DeepEqual(f.calls, expectedCalls) {
		t.Errorf("Received calls %v, expected %v", f.calls, expectedCalls)
	}
	expectedEvents := []string{"removed /gone", "removed /z", "added /n2", "updated /old", "added /n1"}
	if !reflect.DeepEqual(rec.events, expectedEvents) {
		t.Errorf("Received events %v, expected %v", rec.events, expectedEvents)
	}
	if _, ok := f.data["/gone/child"]; ok {
		t.Errorf("/gone/child survived a recursive delete")
	}
}

func TestIdempotentDelete(t *testing.T) {
	s := New(newFake("/a"))
	for i := 0; i < 2; i++ {
		if err := s.Delete("/a"); err != nil {
			t.Errorf("Delete(/a) #%d received %s", i, err)
		}
	}
	if err := s.Delete("/nothing/here"); err != nil {
		t.Errorf("Delete of missing path received %s", err)
	}
	if err := s.Commit(); err != nil {
		t.Errorf("Commit received %s", err)
	}
}

func TestRootImmutability(t *testing.T) {
	s := New(newFake())
	if _, err := s.Create("/", map[string]interface{}{}); errors.Cause(err) != ErrIllegalRoot {
		t.Errorf("Create(/) received %v, expected ErrIllegalRoot", err)
	}
	if err := s.Delete("/"); errors.Cause(err) != ErrIllegalRoot {
		t.Errorf("Delete(/) received %v, expected ErrIllegalRoot", err)
	}
	if _, err := s.Update("/", nil); errors.Cause(err) != ErrIllegalRoot {
		t.Errorf("Update(/) received %v, expected ErrIllegalRoot", err)
	}
	d := expectFound(t, s, "/")
	if d.Len() != 0 {
		t.Errorf("Received root properties %v, expected none", d.Properties())
	}
	if _, err := s.Parent("/"); errors.Cause(err) != ErrNotFound {
		t.Errorf("Parent(/) received %v, expected ErrNotFound", err)
	}
}

func TestInvalidPaths(t *testing.T) {
	s := New(newFake())
	if _, err := s.Create("/has space", nil); errors.Cause(err) != ErrInvalidPath {
		t.Errorf("Create received %v, expected ErrInvalidPath", err)
	}
	if err := s.Delete("relative"); errors.Cause(err) != ErrInvalidPath {
		t.Errorf("Delete received %v, expected ErrInvalidPath", err)
	}
	expectNotFound(t, s, "/has space")
	if got := listChildren(t, s, "relative"); len(got) != 0 {
		t.Errorf("Children received %v, expected none", got)
	}
}

func TestAlreadyExists(t *testing.T) {
	s := New(newFake("/a"))
	if _, err := s.Create("/a", nil); errors.Cause(err) != ErrAlreadyExists {
		t.Errorf("Received %v, expected ErrAlreadyExists", err)
	}
	s.Create("/b", nil)
	if _, err := s.Create("/b", nil); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("Received %v, expected ErrAlreadyExists", err)
	}
}

func TestUpdateRequiresExisting(t *testing.T) {
	s := New(newFake("/a"))
	if _, err := s.Update("/missing", nil); errors.Cause(err) != ErrNotFound {
		t.Errorf("Received %v, expected ErrNotFound", err)
	}
	d, err := s.Update("/a", map[string]interface{}{"v": 9})
	if err != nil {
		t.Fatalf("Received %s", err)
	}
	if v, _ := d.Property("v"); v != 9 {
		t.Errorf("Received %v, expected 9", v)
	}
	s.Delete("/a")
	if _, err := s.Update("/a", nil); errors.Cause(err) != ErrNotFound {
		t.Errorf("Update of deleted path received %v, expected ErrNotFound", err)
	}
}

func TestPathsAreCleaned(t *testing.T) {
	s := New(newFake())
	s.Create("/a/b/", nil)
	expectFound(t, s, "/a//b")
	p, err := s.Parent("/a/b/c")
	if err != nil || p.Path() != "/a/b" {
		t.Errorf("Parent received (%v, %v)", p, err)
	}
}

func TestQueryIgnoresPendingChanges(t *testing.T) {
	s := New(newFake("/q/1", "/q/2"))
	s.Create("/q/3", nil)
	s.Delete("/q/1")

	it, err := s.Query("/q/", "prefix")
	if err != nil {
		t.Fatalf("Received %s", err)
	}
	if err := it.Remove(); errors.Cause(err) != ErrNotSupported {
		t.Errorf("Remove received %v, expected ErrNotSupported", err)
	}
	items, _ := Collect(it)
	got := paths(items)
	if len(got) != 2 {
		t.Errorf("Received %v, expected the two stored resources", got)
	}

	if _, err := s.Query("x", "xpath"); errors.Cause(err) != ErrNotSupported {
		t.Errorf("Received %v, expected ErrNotSupported", err)
	}
}

func TestClose(t *testing.T) {
	s := New(newFake())
	s.Create("/a", nil)
	if !s.Live() {
		t.Fatalf("new session not live")
	}
	s.Close()
	if s.Live() {
		t.Errorf("closed session still live")
	}
	if s.HasChanges() {
		t.Errorf("Close kept pending changes")
	}
	if _, err := s.Get("/"); err != ErrClosed {
		t.Errorf("Get received %v, expected ErrClosed", err)
	}
	if err := s.Commit(); err != ErrClosed {
		t.Errorf("Commit received %v, expected ErrClosed", err)
	}
	if err := s.Delete("/a"); err != ErrClosed {
		t.Errorf("Delete received %v, expected ErrClosed", err)
	}
	if s.Session() == "" {
		t.Errorf("empty session id")
	}
}

// Follows a single resource through create, commit, delete and revert.
func TestEndToEnd(t *testing.T) {
	f := newFake()
	rec := &recorder{}
	s := New(f, WithNotifier(rec))

	if _, err := s.Create("/x", map[string]interface{}{"v": 1}); err != nil {
		t.Fatalf("Received %s", err)
	}
	if err := s.Commit(); err != nil {
		t.Fatalf("Received %s", err)
	}
	if !reflect.DeepEqual(rec.events, []string{"added /x"}) {
		t.Errorf("Received events %v, expected [added /x]", rec.events)
	}
	if s.HasChanges() {
		t.Errorf("changes pending after commit")
	}
	d := expectFound(t, s, "/x")
	if d != f.data["/x"] {
		t.Errorf("Get did not come from the adapter")
	}
	if v, _ := d.Property("v"); v != 1 {
		t.Errorf("Received v=%v, expected 1", v)
	}

	s.Delete("/x")
	expectNotFound(t, s, "/x")
	s.Revert()
	d = expectFound(t, s, "/x")
	if v, _ := d.Property("v"); v != 1 {
		t.Errorf("Received v=%v, expected 1", v)
	}
	if len(rec.events) != 1 {
		t.Errorf("Revert emitted events %v", rec.events[1:])
	}
}

func TestSliceIterator(t *testing.T) {
	it := NewSliceIterator([]*Data{NewData("/a", nil), NewData("/b", nil)})
	if it.Data() != nil {
		t.Errorf("Data() before Next() should be nil")
	}
	var got []string
	for it.Next() {
		got = append(got, it.Data().Path())
	}
	if !reflect.DeepEqual(got, []string{"/a", "/b"}) {
		t.Errorf("Received %v", got)
	}
	if it.Next() {
		t.Errorf("iterator restarted")
	}
}

func TestFuncIterator(t *testing.T) {
	n := 0
	closed := 0
	it := NewFuncIterator(func() (*Data, error) {
		n++
		if n > 2 {
			return nil, nil
		}
		return NewData("/x", nil), nil
	}, func() error {
		closed++
		return nil
	})
	items, err := Collect(it)
	if err != nil || len(items) != 2 {
		t.Errorf("Received (%v, %v)", items, err)
	}
	if closed != 1 {
		t.Errorf("closer called %d times, expected 1", closed)
	}

	it = NewFuncIterator(func() (*Data, error) { return nil, errBoom }, nil)
	if it.Next() {
		t.Errorf("Next() true on error")
	}
	if it.Err() != errBoom {
		t.Errorf("Received %v, expected %v", it.Err(), errBoom)
	}
}
