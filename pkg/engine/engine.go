// Package engine evaluates user-supplied stability rule predicates written
// in zygomys Lisp. Every evaluation runs in a fresh sandbox with the
// measured metrics bound as com_y and base, under a hard timeout.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/whitedwarf/pkg/stability"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in the predicate.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine evaluates predicates. It is safe for concurrent use; each call to
// Evaluate creates its own sandboxed environment.
type Engine struct {
	timeout time.Duration
}

// NewEngine creates an Engine with the given evaluation limit. A
// non-positive limit selects EvalTimeout.
func NewEngine(timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = EvalTimeout
	}
	return &Engine{timeout: timeout}
}

// Evaluate reports whether predicate holds for m.
//
// Return semantics:
//   - On success: returns the predicate outcome + nil errors + nil error
//   - On parse/eval failure: returns false + eval errors + nil error
//   - On fatal failure (timeout, panic): returns false + nil + error
func (e *Engine) Evaluate(predicate string, m stability.Metrics) (bool, []EvalError, error) {
	if strings.TrimSpace(predicate) == "" {
		return false, []EvalError{{Message: "empty predicate"}}, nil
	}

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		matched, evalErrs, err := evaluate(predicate, m)
		ch <- evalResult{matched: matched, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, e.timeout)
}

// preludeLines is the number of lines program places before the predicate.
const preludeLines = 1

// program binds the metrics and wraps the predicate so that its outcome is
// reported through a builtin rather than through the printed result.
func program(predicate string, m stability.Metrics) string {
	return fmt.Sprintf("(def com_y %s) (def base %s) (cond\n%s\n(rule_matched) (rule_unmatched))",
		lispFloat(m.ComY), lispFloat(m.Base), preprocessSource(predicate))
}

// lispFloat formats f so zygomys reads it back as a float, never an int.
func lispFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func evaluate(predicate string, m stability.Metrics) (bool, []EvalError, error) {
	// Sandbox mode prevents predicates from reaching the filesystem or
	// syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	matched := false
	env.AddFunction("rule_matched", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		matched = true
		return zygo.SexpNull, nil
	})
	env.AddFunction("rule_unmatched", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		matched = false
		return zygo.SexpNull, nil
	})

	if err := env.LoadString(program(predicate, m)); err != nil {
		return false, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return false, parseZygomysError(err), nil
	}
	return matched, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError
// values, mapping line numbers back onto the predicate text.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, p := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := p.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			line -= preludeLines
			if line < 0 {
				line = 0
			}
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	// Fallback: no line info available.
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
