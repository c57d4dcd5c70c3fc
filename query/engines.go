package query

import (
	"github.com/dop251/goja"
	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
	celgo "github.com/google/cel-go/cel"
	"github.com/jmespath/go-jmespath"

	"github.com/ndlib/arbor/pathmatch"
)

// expr-lang/expr

type exprMatcher struct {
	program *exprvm.Program
}

func compileExpr(expression string) (Matcher, error) {
	program, err := exprlang.Compile(expression,
		exprlang.Env(map[string]interface{}{}),
		exprlang.AllowUndefinedVariables(),
		exprlang.AsBool())
	if err != nil {
		return nil, err
	}
	return &exprMatcher{program: program}, nil
}

func (e *exprMatcher) Match(path string, properties map[string]interface{}) bool {
	out, err := exprlang.Run(e.program, environment(path, properties))
	if err != nil {
		return false
	}
	b, _ := out.(bool)
	return b
}

// google/cel-go

type celMatcher struct {
	program celgo.Program
}

func compileCEL(expression string) (Matcher, error) {
	env, err := celgo.NewEnv(
		celgo.Variable("path", celgo.StringType),
		celgo.Variable("name", celgo.StringType),
		celgo.Variable("properties", celgo.MapType(celgo.StringType, celgo.DynType)),
	)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	return &celMatcher{program: program}, nil
}

func (c *celMatcher) Match(path string, properties map[string]interface{}) bool {
	if properties == nil {
		properties = map[string]interface{}{}
	}
	out, _, err := c.program.Eval(map[string]interface{}{
		"path":       path,
		"name":       pathmatch.Name(path),
		"properties": properties,
	})
	if err != nil {
		return false
	}
	b, _ := out.Value().(bool)
	return b
}

// dop251/goja. A goja.Runtime is not goroutine safe, so each match gets a
// fresh one. The compiled program is shared.

type jsMatcher struct {
	program *goja.Program
}

func compileJS(expression string) (Matcher, error) {
	program, err := goja.Compile("", "(function() { return ("+expression+"); })()", false)
	if err != nil {
		return nil, err
	}
	return &jsMatcher{program: program}, nil
}

func (j *jsMatcher) Match(path string, properties map[string]interface{}) bool {
	vm := goja.New()
	for k, v := range environment(path, properties) {
		if err := vm.Set(k, v); err != nil {
			return false
		}
	}
	value, err := vm.RunProgram(j.program)
	if err != nil {
		return false
	}
	return value.ToBoolean()
}

// jmespath/go-jmespath

type jmespathMatcher struct {
	jp *jmespath.JMESPath
}

func compileJMESPath(expression string) (Matcher, error) {
	jp, err := jmespath.Compile(expression)
	if err != nil {
		return nil, err
	}
	return &jmespathMatcher{jp: jp}, nil
}

func (j *jmespathMatcher) Match(path string, properties map[string]interface{}) bool {
	out, err := j.jp.Search(environment(path, properties))
	if err != nil {
		return false
	}
	return truthy(out)
}
