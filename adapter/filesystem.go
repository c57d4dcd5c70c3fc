package adapter

import (
	"io"
	"os"
	"path/filepath"

	raven "github.com/getsentry/raven-go"
	"github.com/rs/zerolog"

	"github.com/ndlib/arbor/logging"
	"github.com/ndlib/arbor/pathmatch"
	"github.com/ndlib/arbor/resource"
)

// FileSystem keeps a resource tree in a directory tree. Each resource is a
// directory, and its properties are kept in a file named DataName inside
// it. A directory without that file is an intermediate level which does
// not exist as a resource, but whose descendants may.
type FileSystem struct {
	root string
	log  zerolog.Logger
}

var (
	// make sure it implements the Adapter interface
	_ resource.Adapter = &FileSystem{}
)

const (
	// prefix of the scratch files properties are written to before being
	// moved into place.
	scratchPattern = ".arbor-*.tmp"
)

// NewFileSystem creates a new FileSystem adapter based at the given root
// directory. The directory is created when the first resource is stored.
func NewFileSystem(root string) *FileSystem {
	return &FileSystem{
		root: root,
		log:  logging.Get("filesystem").With().Str("root", root).Logger(),
	}
}

// ValidPath implements resource.Adapter.
func (s *FileSystem) ValidPath(path string) bool {
	return ValidPath(path)
}

// dir returns the directory holding the resource at path.
func (s *FileSystem) dir(path string) string {
	return filepath.Join(s.root, filepath.FromSlash(path))
}

// Get reads the properties file of path.
func (s *FileSystem) Get(path string) (*resource.Data, error) {
	b, err := os.ReadFile(filepath.Join(s.dir(path), DataName))
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return decode(path, b)
}

// Children lists the subdirectories of path which hold a resource.
func (s *FileSystem) Children(path string) ([]*resource.Data, error) {
	entries, err := os.ReadDir(s.dir(path))
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	var result []*resource.Data
	for _, e := range entries {
		child := pathmatch.Join(path, e.Name())
		if !e.IsDir() || !ValidPath(child) {
			continue
		}
		d, err := s.Get(child)
		if err != nil {
			return nil, err
		}
		if d != nil {
			result = append(result, d)
		}
	}
	return result, nil
}

// Store writes the properties of d. They are first written to a scratch
// file in the target directory, which is then renamed over the old one.
func (s *FileSystem) Store(d *resource.Data) (bool, error) {
	b, err := encode(d)
	if err != nil {
		return false, err
	}
	dir := s.dir(d.Path())
	err = os.MkdirAll(dir, 0775)
	if err != nil {
		return false, err
	}
	target := filepath.Join(dir, DataName)
	_, err = os.Stat(target)
	created := os.IsNotExist(err)
	w, err := os.CreateTemp(dir, scratchPattern)
	if err != nil {
		return false, err
	}
	mc := &moveCloser{File: w, source: w.Name(), target: target}
	_, err = mc.Write(b)
	if err != nil {
		mc.File.Close()
		os.Remove(mc.source)
		return false, err
	}
	return created, mc.Close()
}

// track the scratch file so when it is closed, we can move it into the
// correct place
type moveCloser struct {
	*os.File
	source string
	target string
}

func (w *moveCloser) Close() error {
	err := w.File.Close()
	if err != nil {
		os.Remove(w.source)
		return err
	}
	return os.Rename(w.source, w.target)
}

// DeleteRecursive removes the directory of path and everything in it. It is
// not an error if it doesn't exist. Deleting the root empties the tree.
func (s *FileSystem) DeleteRecursive(path string) error {
	if !pathmatch.IsRoot(path) {
		return os.RemoveAll(s.dir(path))
	}
	entries, err := os.ReadDir(s.root)
	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return err
	}
	for _, e := range entries {
		err = os.RemoveAll(filepath.Join(s.root, e.Name()))
		if err != nil {
			return err
		}
	}
	return nil
}

// Query walks the whole tree, yielding the resources which match. The walk
// runs in its own goroutine and stops when the iterator is closed.
func (s *FileSystem) Query(expression, language string) (resource.Iterator, error) {
	m, err := compileQuery(expression, language)
	if m == nil || err != nil {
		return nil, err
	}
	out := make(chan *resource.Data)
	done := make(chan struct{})
	go func() {
		defer close(out)
		s.walkTree(out, done, pathmatch.Root)
	}()
	return filter(chanIterator(out, done), m), nil
}

// Perform depth first walk of the tree at path, emitting every resource
// found on channel out. Returns false if done was closed.
func (s *FileSystem) walkTree(out chan<- *resource.Data, done <-chan struct{}, path string) bool {
	d, err := s.Get(path)
	if err != nil {
		s.walkError(err, path)
	} else if d != nil {
		select {
		case out <- d:
		case <-done:
			return false
		}
	}
	f, err := os.Open(s.dir(path))
	if err != nil {
		if !os.IsNotExist(err) {
			s.walkError(err, path)
		}
		return true
	}
	defer f.Close()
	for {
		entries, err := f.Readdir(1000)
		if err == io.EOF {
			return true
		} else if err != nil {
			s.walkError(err, path)
			return true
		}
		for _, e := range entries {
			child := pathmatch.Join(path, e.Name())
			if !e.IsDir() || !ValidPath(child) {
				continue
			}
			if !s.walkTree(out, done, child) {
				return false
			}
		}
	}
}

// we have no other way of passing a walk error back
func (s *FileSystem) walkError(err error, path string) {
	s.log.Error().Err(err).Str("path", path).Msg("walk")
	raven.CaptureError(err, map[string]string{"Root": s.root, "Path": path})
}
