// Package query compiles the filter expressions adapters use to answer
// free-form queries. Each supported language turns an expression into a
// Matcher which is then run against every candidate resource.
//
// The languages "expr", "js" and "jmespath" see the resource properties as
// top level variables. Every language also sees "path" (the resource path),
// "name" (its last segment) and "properties" (the full property map); these
// three names shadow properties of the same name. CEL only sees the three
// fixed variables, so properties are reached as properties.key.
package query

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/ndlib/arbor/pathmatch"
)

// ErrUnsupported is returned by Compile for a language it does not know.
var ErrUnsupported = errors.New("query language not supported")

// A Matcher decides whether a resource satisfies a compiled expression.
// A failure while evaluating against a particular resource, such as a
// missing key or a type mismatch, counts as no match. Matchers are goroutine
// safe.
type Matcher interface {
	Match(path string, properties map[string]interface{}) bool
}

// CompileFunc turns an expression into a Matcher.
type CompileFunc func(expression string) (Matcher, error)

var (
	m         sync.RWMutex
	languages = map[string]CompileFunc{
		"expr":     compileExpr,
		"cel":      compileCEL,
		"js":       compileJS,
		"jmespath": compileJMESPath,
	}
)

// Register makes a new language available to Compile, replacing any
// existing language with the same name.
func Register(language string, f CompileFunc) {
	m.Lock()
	languages[language] = f
	m.Unlock()
}

// Supported reports whether language is known to Compile.
func Supported(language string) bool {
	m.RLock()
	_, ok := languages[language]
	m.RUnlock()
	return ok
}

// Languages returns the names of all the registered languages, sorted.
func Languages() []string {
	m.RLock()
	result := make([]string, 0, len(languages))
	for k := range languages {
		result = append(result, k)
	}
	m.RUnlock()
	sort.Strings(result)
	return result
}

// Compile parses expression in the given language. Unknown languages give
// an error wrapping ErrUnsupported. Compilation failures are returned as
// an *Error.
func Compile(language, expression string) (Matcher, error) {
	m.RLock()
	f, ok := languages[language]
	m.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnsupported, "language %q", language)
	}
	if expression == "" {
		return nil, &Error{Language: language, Err: errors.New("expression must not be empty")}
	}
	matcher, err := f(expression)
	if err != nil {
		return nil, &Error{Language: language, Expression: expression, Err: err}
	}
	return matcher, nil
}

// Error records a failure to compile an expression.
type Error struct {
	Language   string
	Expression string
	Err        error
}

func (e *Error) Error() string {
	if e.Expression == "" {
		return fmt.Sprintf("query %s: %v", e.Language, e.Err)
	}
	return fmt.Sprintf("query %s %q: %v", e.Language, e.Expression, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// environment builds the variables visible to an expression.
func environment(path string, properties map[string]interface{}) map[string]interface{} {
	env := make(map[string]interface{}, len(properties)+3)
	for k, v := range properties {
		env[k] = v
	}
	if properties == nil {
		properties = map[string]interface{}{}
	}
	env["path"] = path
	env["name"] = pathmatch.Name(path)
	env["properties"] = properties
	return env
}

// truthy follows the JMESPath notion of truth: false, null, and empty
// strings, arrays and objects are false. Everything else is true.
func truthy(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case []interface{}:
		return len(x) > 0
	case map[string]interface{}:
		return len(x) > 0
	}
	return true
}
