// Package adaptertest provides functions for facilitating the testing of
// anything implementing the resource.Adapter interface.
package adaptertest

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
	"testing"

	"github.com/ndlib/arbor/resource"
)

// Run checks that a behaves the way resource.Store expects an adapter to.
// The adapter should start out empty. Every property value used is a string
// so that adapters which serialize properties round trip them exactly.
func Run(t *testing.T, a resource.Adapter) {
	t.Run("ValidPath", func(t *testing.T) { validPath(t, a) })
	t.Run("Get", func(t *testing.T) { get(t, a) })
	t.Run("Store", func(t *testing.T) { store(t, a) })
	t.Run("Children", func(t *testing.T) { children(t, a) })
	t.Run("DeleteRecursive", func(t *testing.T) { deleteRecursive(t, a) })
	t.Run("Query", func(t *testing.T) { query(t, a) })
	t.Run("Session", func(t *testing.T) { session(t, a) })
}

func props(kv ...string) map[string]interface{} {
	result := make(map[string]interface{})
	for i := 0; i+1 < len(kv); i += 2 {
		result[kv[i]] = kv[i+1]
	}
	return result
}

func mustStore(t *testing.T, a resource.Adapter, path string, p map[string]interface{}) {
	t.Helper()
	if _, err := a.Store(resource.NewData(path, p)); err != nil {
		t.Fatalf("Store(%s) received %s", path, err)
	}
}

func paths(items []*resource.Data) []string {
	result := make([]string, 0, len(items))
	for _, d := range items {
		result = append(result, d.Path())
	}
	sort.Strings(result)
	return result
}

func validPath(t *testing.T, a resource.Adapter) {
	var table = []struct {
		path  string
		valid bool
	}{
		{"/", true},
		{"/a", true},
		{"/a/b-c/d.e", true},
		{"relative", false},
		{"/with space", false},
		{"/a//b", false},
	}
	for _, tab := range table {
		if v := a.ValidPath(tab.path); v != tab.valid {
			t.Errorf("ValidPath(%q) received %v, expected %v", tab.path, v, tab.valid)
		}
	}
}

func get(t *testing.T, a resource.Adapter) {
	d, err := a.Get("/get/missing")
	if d != nil || err != nil {
		t.Errorf("Received %v, %v, expected nil, nil", d, err)
	}
	mustStore(t, a, "/get/x", props("title", "hello", "kind", "get"))
	d, err = a.Get("/get/x")
	if err != nil {
		t.Fatalf("Received %s", err)
	}
	if d == nil {
		t.Fatalf("Received nil, expected /get/x")
	}
	if d.Path() != "/get/x" {
		t.Errorf("Received path %s, expected /get/x", d.Path())
	}
	expected := props("title", "hello", "kind", "get")
	if !reflect.DeepEqual(d.Properties(), expected) {
		t.Errorf("Received %v, expected %v", d.Properties(), expected)
	}
}

func store(t *testing.T, a resource.Adapter) {
	created, err := a.Store(resource.NewData("/store/x", props("v", "1")))
	if err != nil || !created {
		t.Errorf("first Store received %v, %v, expected true, nil", created, err)
	}
	created, err = a.Store(resource.NewData("/store/x", props("v", "2")))
	if err != nil || created {
		t.Errorf("second Store received %v, %v, expected false, nil", created, err)
	}
	d, _ := a.Get("/store/x")
	if d == nil {
		t.Fatalf("Received nil after Store")
	}
	if v, _ := d.Property("v"); v != "2" {
		t.Errorf("Received v=%v, expected 2", v)
	}
	// storing a resource whose ancestors do not exist is fine
	mustStore(t, a, "/store/deep/down/here", nil)
	if d, _ := a.Get("/store/deep"); d != nil {
		t.Errorf("Received %s, expected no resource at intermediate level", d.Path())
	}
}

func children(t *testing.T, a resource.Adapter) {
	for _, p := range []string{"/kids/b", "/kids/a", "/kids/a/x", "/kids/c/y", "/kidsz"} {
		mustStore(t, a, p, nil)
	}
	items, err := a.Children("/kids")
	if err != nil {
		t.Fatalf("Received %s", err)
	}
	if got := paths(items); !reflect.DeepEqual(got, []string{"/kids/a", "/kids/b"}) {
		t.Errorf("Received %v, expected [/kids/a /kids/b]", got)
	}
	items, err = a.Children("/nothing/here")
	if err != nil || len(items) != 0 {
		t.Errorf("Received %v, %v, expected nothing", paths(items), err)
	}
}

func deleteRecursive(t *testing.T, a resource.Adapter) {
	for _, p := range []string{"/del", "/del/a", "/del/a/b", "/del/ab", "/delx"} {
		mustStore(t, a, p, nil)
	}
	if err := a.DeleteRecursive("/del/a"); err != nil {
		t.Fatalf("Received %s", err)
	}
	for _, p := range []string{"/del/a", "/del/a/b"} {
		if d, _ := a.Get(p); d != nil {
			t.Errorf("%s still exists after delete", p)
		}
	}
	for _, p := range []string{"/del", "/del/ab", "/delx"} {
		if d, _ := a.Get(p); d == nil {
			t.Errorf("%s was removed by deleting /del/a", p)
		}
	}
	if err := a.DeleteRecursive("/del/never/was"); err != nil {
		t.Errorf("Deleting a missing path received %s", err)
	}
	if err := a.DeleteRecursive("/del"); err != nil {
		t.Fatalf("Received %s", err)
	}
	if d, _ := a.Get("/delx"); d == nil {
		t.Errorf("/delx was removed by deleting /del")
	}
}

func query(t *testing.T, a resource.Adapter) {
	mustStore(t, a, "/q/one", props("kind", "query", "color", "red"))
	mustStore(t, a, "/q/two", props("kind", "query", "color", "blue"))
	mustStore(t, a, "/q/two/three", props("kind", "query", "color", "red"))

	it, err := a.Query(`kind == "query" && color == "red"`, "expr")
	if err != nil {
		t.Fatalf("Received %s", err)
	}
	if it == nil {
		t.Fatalf("Received nil iterator for expr")
	}
	items, err := resource.Collect(it)
	if err != nil {
		t.Fatalf("Received %s", err)
	}
	if got := paths(items); !reflect.DeepEqual(got, []string{"/q/one", "/q/two/three"}) {
		t.Errorf("Received %v, expected [/q/one /q/two/three]", got)
	}

	// closing early must not hang or fail
	it, err = a.Query(`kind == "query"`, "expr")
	if err != nil {
		t.Fatalf("Received %s", err)
	}
	if !it.Next() {
		t.Errorf("Expected at least one result")
	}
	if err := it.Close(); err != nil {
		t.Errorf("Close received %s", err)
	}
	if it.Remove() == nil {
		t.Errorf("Remove succeeded, expected an error")
	}

	it, err = a.Query("anything", "no-such-language")
	if it != nil || err != nil {
		t.Errorf("Received %v, %v, expected nil, nil", it, err)
	}
}

func session(t *testing.T, a resource.Adapter) {
	s := resource.New(a)
	for _, p := range []string{"/sess", "/sess/a", "/sess/b"} {
		if _, err := s.Create(p, props("kind", "session")); err != nil {
			t.Fatalf("Create(%s) received %s", p, err)
		}
	}
	if err := s.Commit(); err != nil {
		t.Fatalf("Commit received %s", err)
	}

	s = resource.New(a)
	if _, err := s.Create("/sess/a", nil); err == nil {
		t.Errorf("Create of committed resource succeeded")
	}
	s.Delete("/sess/a")
	s.Create("/sess/c", nil)
	if err := s.Commit(); err != nil {
		t.Fatalf("Commit received %s", err)
	}

	it, err := resource.New(a).Children("/sess")
	if err != nil {
		t.Fatalf("Received %s", err)
	}
	items, _ := resource.Collect(it)
	if got := paths(items); !reflect.DeepEqual(got, []string{"/sess/b", "/sess/c"}) {
		t.Errorf("Received %v, expected [/sess/b /sess/c]", got)
	}
}

// Stress runs the given number of goroutines which concurrently create, read
// and delete their own resources under /stress. It is a good test to run
// with the -race flag.
func Stress(t *testing.T, a resource.Adapter, workers int) {
	const rounds = 20
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				path := fmt.Sprintf("/stress/w%d/r%d", w, i)
				value := fmt.Sprintf("%d-%d", w, i)
				created, err := a.Store(resource.NewData(path, props("v", value)))
				if err != nil || !created {
					t.Errorf("Store(%s) received %v, %v", path, created, err)
					return
				}
				d, err := a.Get(path)
				if err != nil || d == nil {
					t.Errorf("Get(%s) received %v, %v", path, d, err)
					return
				}
				if v, _ := d.Property("v"); v != value {
					t.Errorf("Get(%s) received v=%v, expected %s", path, v, value)
				}
				if i%2 == 1 {
					if err := a.DeleteRecursive(path); err != nil {
						t.Errorf("DeleteRecursive(%s) received %s", path, err)
					}
				}
			}
		}(w)
	}
	wg.Wait()
	for w := 0; w < workers; w++ {
		items, err := a.Children(fmt.Sprintf("/stress/w%d", w))
		if err != nil {
			t.Fatalf("Received %s", err)
		}
		if len(items) != rounds/2 {
			t.Errorf("worker %d: received %d resources, expected %d", w, len(items), rounds/2)
		}
	}
}
