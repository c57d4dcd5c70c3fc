package adapter

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/ndlib/arbor/pathmatch"
)

// DataName is the name of the file (or object) holding a resource's
// properties for the adapters which keep one entry per directory. No
// segment of a path may be equal to it.
const DataName = ".arbor.json"

var (
	// ErrPathNotAbsolute means the path does not begin with a slash.
	ErrPathNotAbsolute = errors.New("Path is not absolute")

	// ErrPathNotClean means the path has empty, "." or ".." segments,
	// or a trailing slash.
	ErrPathNotClean = errors.New("Path is not clean")

	// ErrPathNonUnicode means the path contains a Non Unicode Rune
	ErrPathNonUnicode = errors.New("Path contains Non-Unicode character")

	// ErrPathWhiteSpace means the path contains WhiteSpace
	ErrPathWhiteSpace = errors.New("Path contains White Space")

	// ErrPathControlChar means the path contains Control Characters
	ErrPathControlChar = errors.New("Path contains Control Characters")

	// ErrPathReserved means a segment of the path is DataName
	ErrPathReserved = errors.New("Path contains a reserved name")
)

// ValidPath reports whether p may be stored by the adapters in this package.
func ValidPath(p string) bool {
	return CheckPath(p) == nil
}

// CheckPath returns the reason p is not a valid path, or nil.
func CheckPath(p string) error {
	if !strings.HasPrefix(p, pathmatch.Root) {
		return ErrPathNotAbsolute
	}
	if p != pathmatch.Clean(p) {
		return ErrPathNotClean
	}
	if !utf8.ValidString(p) {
		return ErrPathNonUnicode
	}
	for _, r := range p {
		if unicode.IsSpace(r) {
			return ErrPathWhiteSpace
		}
		if unicode.IsControl(r) {
			return ErrPathControlChar
		}
	}
	for _, segment := range strings.Split(p[1:], pathmatch.Separator) {
		if segment == DataName {
			return ErrPathReserved
		}
	}
	return nil
}
