package console

import (
	"fmt"
	"sync"
	"time"
)

// EvalTimeout is the hard limit for a single evaluation.
const EvalTimeout = 5 * time.Second

// evalResult is the internal type used to pass evaluation results through channels.
type evalResult struct {
	output []string
	errors []EvalError
	err    error
}

// waitWithTimeout waits for a result from ch, but returns a timeout error
// if the evaluation exceeds EvalTimeout. It uses a generation counter to
// discard stale results from previous evaluations.
//
// On timeout, the goroutine may still be running, and its builtins drive
// shared controller state. Abandoning the session makes every remaining
// builtin call fail, so the goroutine stops mutating the scene and unwinds.
func waitWithTimeout(
	ch <-chan evalResult,
	sess *session,
	gen uint64,
	mu *sync.Mutex,
	currentGen *uint64,
) (*Result, error) {
	timer := time.NewTimer(EvalTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		// Check if this result is still relevant (not stale).
		mu.Lock()
		current := *currentGen
		mu.Unlock()

		if gen != current {
			// A newer evaluation was started; discard this result.
			return nil, fmt.Errorf("evaluation superseded by newer request")
		}

		if res.err != nil {
			return nil, res.err
		}
		return &Result{Output: res.output, Errors: res.errors}, nil

	case <-timer.C:
		sess.abandon()
		return nil, fmt.Errorf("evaluation timed out after %s", EvalTimeout)
	}
}
