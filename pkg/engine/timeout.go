package engine

import (
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned when a predicate does not finish within the
// evaluation limit.
var ErrTimeout = errors.New("evaluation timed out")

// EvalTimeout is the default hard limit for a single predicate evaluation.
const EvalTimeout = 2 * time.Second

// evalResult passes an evaluation outcome back from the sandbox goroutine.
type evalResult struct {
	matched bool
	errors  []EvalError
	err     error
}

// waitWithTimeout waits for a result from ch, or returns a timeout error
// once limit elapses. The sandbox goroutine cannot be interrupted and keeps
// running after a timeout; ch is buffered so its late result is dropped.
// Compiled rules stop evaluating a predicate once it has timed out, so a
// looping predicate costs at most one stuck goroutine.
func waitWithTimeout(ch <-chan evalResult, limit time.Duration) (bool, []EvalError, error) {
	timer := time.NewTimer(limit)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res.matched, res.errors, res.err
	case <-timer.C:
		return false, nil, fmt.Errorf("%w after %s", ErrTimeout, limit)
	}
}
