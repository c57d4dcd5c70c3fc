// Package pathmatch holds the predicates used to relate paths in the
// resource tree to one another. Paths are slash delimited and "/" is the
// root. A path is only ever related to another at a segment boundary, so
// "/ab" is never considered to be underneath "/a".
package pathmatch

import (
	"path"
	"strings"
)

// Root is the distinguished path of the tree root.
const Root = "/"

// Separator delimits the segments of a path.
const Separator = "/"

// Clean returns the lexically normalized form of p. The empty string is
// returned unchanged so that callers can reject it.
func Clean(p string) string {
	if p == "" {
		return ""
	}
	return path.Clean(p)
}

// IsRoot reports whether p is the root path.
func IsRoot(p string) bool {
	return p == Root
}

// SameOrDescendant returns a predicate which is true for base itself and for
// every path nested underneath base by full segments.
func SameOrDescendant(base string) func(candidate string) bool {
	prefix := base + Separator
	if base == Root {
		prefix = Root
	}
	return func(candidate string) bool {
		return candidate == base || strings.HasPrefix(candidate, prefix)
	}
}

// DirectChild returns a predicate which is true for paths exactly one
// non-empty segment below parent.
func DirectChild(parent string) func(candidate string) bool {
	prefix := parent + Separator
	if parent == Root {
		prefix = Root
	}
	return func(candidate string) bool {
		if !strings.HasPrefix(candidate, prefix) {
			return false
		}
		rest := candidate[len(prefix):]
		return rest != "" && !strings.Contains(rest, Separator)
	}
}

// Parent returns the path one segment above p. The second return value is
// false for the root and for paths without a separator.
func Parent(p string) (string, bool) {
	if p == "" || p == Root {
		return "", false
	}
	i := strings.LastIndex(p, Separator)
	switch {
	case i < 0:
		return "", false
	case i == 0:
		return Root, true
	}
	return p[:i], true
}

// Name returns the last segment of p, or "" for the root.
func Name(p string) string {
	if p == Root {
		return ""
	}
	return p[strings.LastIndex(p, Separator)+1:]
}

// Join appends the segment name to the path parent.
func Join(parent, name string) string {
	if parent == Root {
		return Root + name
	}
	return parent + Separator + name
}
