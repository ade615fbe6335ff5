package engine

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/chazu/whitedwarf/pkg/kernel/kerneltest"
	"github.com/chazu/whitedwarf/pkg/kernel/sdfx"
	"github.com/chazu/whitedwarf/pkg/stability"
)

func TestEvaluatePredicate(t *testing.T) {
	eng := NewEngine(0)

	tests := []struct {
		name      string
		predicate string
		metrics   stability.Metrics
		want      bool
	}{
		{"simple true", "(< com_y 0.5)", stability.Metrics{ComY: 0.2, Base: 0.9}, true},
		{"simple false", "(< com_y 0.5)", stability.Metrics{ComY: 0.7, Base: 0.9}, false},
		{"conjunction", "(and (< com_y 0.3) (> base 0.8))", stability.Metrics{ComY: 0.2, Base: 0.9}, true},
		{"conjunction fails", "(and (< com_y 0.3) (> base 0.8))", stability.Metrics{ComY: 0.2, Base: 0.5}, false},
		{"kebab case binding", "(> com-y 0.1)", stability.Metrics{ComY: 0.5, Base: 0}, true},
		{"whole number metric", "(== base 1.0)", stability.Metrics{ComY: 0, Base: 1}, true},
		{"with comment", "; the base must cover half the footprint\n(> base 0.5)", stability.Metrics{Base: 0.6}, true},
		{"constant", "true", stability.Metrics{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, evalErrs, err := eng.Evaluate(tt.predicate, tt.metrics)
			if err != nil {
				t.Fatalf("unexpected fatal error: %v", err)
			}
			if len(evalErrs) > 0 {
				t.Fatalf("unexpected eval errors: %v", evalErrs)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.predicate, got, tt.want)
			}
		})
	}
}

func TestEvaluateEmptyPredicate(t *testing.T) {
	eng := NewEngine(0)

	for _, src := range []string{"", "   \n\t  \n  "} {
		ok, evalErrs, err := eng.Evaluate(src, stability.Metrics{})
		if err != nil {
			t.Fatalf("unexpected fatal error: %v", err)
		}
		if ok {
			t.Error("empty predicate matched")
		}
		if len(evalErrs) == 0 {
			t.Error("expected an eval error for an empty predicate")
		}
	}
}

func TestEvaluateSyntaxError(t *testing.T) {
	eng := NewEngine(0)

	// Unmatched paren is a parse error.
	ok, evalErrs, err := eng.Evaluate("(< com_y 0.5", stability.Metrics{})
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if ok {
		t.Fatal("expected no match on syntax error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for syntax error")
	}
	if evalErrs[0].Message == "" {
		t.Error("eval error message should not be empty")
	}
}

func TestEvaluateUndefinedSymbol(t *testing.T) {
	eng := NewEngine(0)

	ok, evalErrs, err := eng.Evaluate("(< height 0.5)", stability.Metrics{})
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if ok {
		t.Fatal("expected no match on eval error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for undefined symbol")
	}
}

func TestEvalErrorImplementsError(t *testing.T) {
	e := EvalError{Line: 5, Col: 0, Message: "something went wrong"}
	s := e.Error()
	if !strings.Contains(s, "line 5") {
		t.Errorf("Error() should contain line info, got: %s", s)
	}
	if !strings.Contains(s, "something went wrong") {
		t.Errorf("Error() should contain message, got: %s", s)
	}

	e2 := EvalError{Line: 0, Col: 0, Message: "no location"}
	if strings.Contains(e2.Error(), "line") {
		t.Errorf("Error() with no line should not contain 'line', got: %s", e2.Error())
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	eng := NewEngine(0)

	for i := 0; i < 5; i++ {
		ok, evalErrs, err := eng.Evaluate("(> base 0.25)", stability.Metrics{Base: 0.3})
		if err != nil {
			t.Fatalf("iteration %d: unexpected fatal error: %v", i, err)
		}
		if len(evalErrs) > 0 {
			t.Fatalf("iteration %d: unexpected eval errors: %v", i, evalErrs)
		}
		if !ok {
			t.Fatalf("iteration %d: expected match", i)
		}
	}
}

func TestWaitWithTimeout(t *testing.T) {
	ch := make(chan evalResult) // Never sends

	start := time.Now()
	_, _, err := waitWithTimeout(ch, 50*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected timeout error message, got: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("timeout took %s", elapsed)
	}
}

func TestWaitWithTimeoutDelivers(t *testing.T) {
	ch := make(chan evalResult, 1)
	ch <- evalResult{matched: true}

	ok, _, err := waitWithTimeout(ch, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected delivered result")
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{
			name:     "error on line format",
			msg:      "Error on line 5: unexpected token\n",
			wantLine: 4,
			wantMsg:  "unexpected token",
		},
		{
			name:     "no line info",
			msg:      "some generic error",
			wantLine: 0,
			wantMsg:  "some generic error",
		},
		{
			name:     "prelude line clamps to zero",
			msg:      "error on line 1: missing paren",
			wantLine: 0,
			wantMsg:  "missing paren",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errString(tt.msg))
			if len(errs) == 0 {
				t.Fatal("expected at least one error")
			}
			e := errs[0]
			if e.Line != tt.wantLine {
				t.Errorf("line = %d, want %d", e.Line, tt.wantLine)
			}
			if !strings.Contains(e.Message, tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", e.Message, tt.wantMsg)
			}
		})
	}
}

func TestLispFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.0"},
		{1, "1.0"},
		{0.25, "0.25"},
		{0.1234567, "0.1234567"},
	}
	for _, tt := range tests {
		if got := lispFloat(tt.in); got != tt.want {
			t.Errorf("lispFloat(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCompile(t *testing.T) {
	eng := NewEngine(0)

	rules, err := eng.Compile([]RuleScript{
		{Name: "squat", Predicate: "(and (< com_y 0.3) (> base 0.9))", Stable: true, Verdict: "Squat"},
	}, nil)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("got %d rules, want 1", len(rules))
	}
	if !rules[0].Match(stability.Metrics{ComY: 0.1, Base: 1}) {
		t.Error("squat rule should match a low wide object")
	}
	if rules[0].Match(stability.Metrics{ComY: 0.5, Base: 1}) {
		t.Error("squat rule should not match a moderate object")
	}
}

func TestCompileRejectsBadScripts(t *testing.T) {
	eng := NewEngine(0)

	tests := []struct {
		name   string
		script RuleScript
	}{
		{"missing name", RuleScript{Predicate: "true", Verdict: "v"}},
		{"missing verdict", RuleScript{Name: "r", Predicate: "true"}},
		{"empty predicate", RuleScript{Name: "r", Verdict: "v"}},
		{"syntax error", RuleScript{Name: "r", Predicate: "(< com_y", Verdict: "v"}},
		{"unknown symbol", RuleScript{Name: "r", Predicate: "(< mass 1.0)", Verdict: "v"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := eng.Compile([]RuleScript{tt.script}, nil); err == nil {
				t.Error("expected compile error")
			}
		})
	}
}

func TestCompiledRulesDriveAnalyzer(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	eng := NewEngine(0)

	rules, err := eng.Compile([]RuleScript{
		{Name: "anything-tall", Predicate: "(> com_y 0.7)", Stable: false, Verdict: "Tall"},
	}, zap.New(core))
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	a := stability.New(sdfx.New(), stability.WithRules(rules...))

	r, err := a.Analyze(kerneltest.TopHeavyPole())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if r.Verdict != "Tall" {
		t.Errorf("verdict = %q, want Tall", r.Verdict)
	}

	r, err = a.Analyze(kerneltest.UnitCube())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if r.Verdict != stability.VerdictMarginal {
		t.Errorf("verdict = %q, want default table verdict", r.Verdict)
	}
	if logs.Len() != 0 {
		t.Errorf("unexpected warnings: %v", logs.All())
	}
}

func TestScriptRuleDisabledAfterTimeout(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	calls := 0
	eval := func(string, stability.Metrics) (bool, []EvalError, error) {
		calls++
		return false, nil, fmt.Errorf("%w after 1ms", ErrTimeout)
	}
	rule := scriptRule(RuleScript{Name: "spin", Predicate: "true", Verdict: "v"}, eval, zap.New(core))

	for i := 0; i < 3; i++ {
		if rule.Match(stability.Metrics{ComY: 0.5, Base: 0.5}) {
			t.Fatal("timed out rule should not match")
		}
	}
	if calls != 1 {
		t.Errorf("predicate evaluated %d times, want 1", calls)
	}
	if logs.Len() != 1 {
		t.Errorf("got %d log entries, want 1", logs.Len())
	}
}

func TestScriptRuleKeepsEvaluatingAfterEvalError(t *testing.T) {
	calls := 0
	eval := func(string, stability.Metrics) (bool, []EvalError, error) {
		calls++
		return false, []EvalError{{Message: "bad"}}, nil
	}
	rule := scriptRule(RuleScript{Name: "flaky", Predicate: "true", Verdict: "v"}, eval, zap.NewNop())
	rule.Match(stability.Metrics{})
	rule.Match(stability.Metrics{})
	if calls != 2 {
		t.Errorf("predicate evaluated %d times, want 2", calls)
	}
}

func TestProgramWrapsPredicateInCond(t *testing.T) {
	src := program("(> base 0.2)", stability.Metrics{ComY: 0.1, Base: 0.3})
	if !strings.Contains(src, "(cond\n(> base 0.2)\n(rule_matched) (rule_unmatched))") {
		t.Errorf("unexpected program: %s", src)
	}
	ok, evalErrs, err := NewEngine(0).Evaluate("(> base 0.2)", stability.Metrics{ComY: 0.1, Base: 0.3})
	if err != nil || len(evalErrs) > 0 || !ok {
		t.Errorf("Evaluate = %v, %v, %v; want true", ok, evalErrs, err)
	}
}

// errString is a simple error type for testing.
type errString string

func (e errString) Error() string { return string(e) }
