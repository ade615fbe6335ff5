package engine

import (
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/chazu/whitedwarf/pkg/stability"
)

// RuleScript is a stability rule whose condition is a Lisp predicate over
// com_y and base, for example "(and (< com_y 0.3) (> base 0.8))".
type RuleScript struct {
	Name      string `yaml:"name" json:"name"`
	Predicate string `yaml:"predicate" json:"predicate"`
	Stable    bool   `yaml:"stable" json:"stable"`
	Verdict   string `yaml:"verdict" json:"verdict"`
}

// sample is the point every script is checked against at compile
// time.
var sample = stability.Metrics{ComY: 0.5, Base: 0.5}

// Compile checks each script once and turns it into a stability.Rule. A
// compiled rule that later fails at evaluation time does not match and
// logs a warning; one that times out is disabled.
func (e *Engine) Compile(scripts []RuleScript, logger *zap.Logger) ([]stability.Rule, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "engine"))

	var errs []error
	rules := make([]stability.Rule, 0, len(scripts))
	for i, s := range scripts {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("rule %d: missing name", i))
			continue
		}
		if s.Verdict == "" {
			errs = append(errs, fmt.Errorf("rule %q: missing verdict", s.Name))
			continue
		}

		_, evalErrs, err := e.Evaluate(s.Predicate, sample)
		if err != nil {
			errs = append(errs, fmt.Errorf("rule %q: %w", s.Name, err))
			continue
		}
		if len(evalErrs) > 0 {
			errs = append(errs, fmt.Errorf("rule %q: %w", s.Name, evalErrs[0]))
			continue
		}

		rules = append(rules, scriptRule(s, e.Evaluate, logger))
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("engine: compile rules: %w", errors.Join(errs...))
	}
	return rules, nil
}

type evalFunc func(predicate string, m stability.Metrics) (bool, []EvalError, error)

// scriptRule wraps a checked script as a stability.Rule. A predicate that
// times out is disabled for the life of the rule, since each timeout
// leaves its sandbox goroutine running.
func scriptRule(s RuleScript, eval evalFunc, logger *zap.Logger) stability.Rule {
	var disabled atomic.Bool
	return stability.Rule{
		Name:    s.Name,
		Stable:  s.Stable,
		Verdict: s.Verdict,
		Match: func(m stability.Metrics) bool {
			if disabled.Load() {
				return false
			}
			ok, evalErrs, err := eval(s.Predicate, m)
			if err == nil && len(evalErrs) > 0 {
				err = evalErrs[0]
			}
			if errors.Is(err, ErrTimeout) {
				disabled.Store(true)
				logger.Error("rule predicate timed out; rule disabled",
					zap.String("rule", s.Name), zap.Error(err))
				return false
			}
			if err != nil {
				logger.Warn("rule predicate failed",
					zap.String("rule", s.Name), zap.Error(err))
				return false
			}
			return ok
		},
	}
}
