// Package console provides the Lisp command console for Cota.
// It wraps zygomys in a sandboxed environment and exposes the viewer
// commands as builtins, so a session can script loads, layer visibility,
// and measurements against the live scene.
package console

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/chazu/cota/pkg/viewer"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
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

// Result bundles the full output of an evaluation for use by UI bindings.
// Output holds the lines printed by commands that ran; Errors holds parse
// and runtime errors. Commands that ran before an error keep their effects,
// so Output may be non-empty even when Errors is not.
type Result struct {
	Output []string
	Errors []EvalError
}

// Console wraps the zygomys interpreter for viewer scripting. It is safe
// for concurrent use; each call to Eval creates a fresh sandboxed
// environment bound to the shared controller.
type Console struct {
	mu         sync.Mutex
	generation uint64
	ctrl       *viewer.Controller
}

// New creates a Console driving the given controller.
func New(ctrl *viewer.Controller) *Console {
	return &Console{ctrl: ctrl}
}

// session is the per-evaluation state shared between Eval and the builtins.
// Unlike the sandbox itself, the controller behind it is shared program
// state, so a session that outlives its timeout must stop issuing commands:
// once abandoned, every builtin refuses to run and the runaway goroutine
// unwinds at its next command.
type session struct {
	ctrl      *viewer.Controller
	abandoned uint32
	output    []string
}

func (s *session) printf(format string, args ...interface{}) {
	s.output = append(s.output, fmt.Sprintf(format, args...))
}

func (s *session) abandon() {
	atomic.StoreUint32(&s.abandoned, 1)
}

// guard returns an error once the session has been abandoned.
func (s *session) guard() error {
	if atomic.LoadUint32(&s.abandoned) == 1 {
		return fmt.Errorf("session abandoned after timeout")
	}
	return nil
}

// Eval runs console source against the controller.
//
// Return semantics:
//   - On success: returns a Result with output + nil error
//   - On parse/eval failure: returns a Result with errors + nil error
//   - On fatal failure (timeout, panic): returns nil + error
func (c *Console) Eval(source string) (*Result, error) {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	sess := &session{ctrl: c.ctrl}
	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		out, evalErrs, err := c.evaluate(sess, source)
		ch <- evalResult{output: out, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, sess, gen, &c.mu, &c.generation)
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (c *Console) evaluate(sess *session, source string) ([]string, []EvalError, error) {
	// Empty source is a valid program that does nothing.
	if strings.TrimSpace(source) == "" {
		return nil, nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or
	// syscalls directly; files are only reachable through load-las.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	registerBuiltins(env, sess)

	err := env.LoadString(preprocessSource(source))
	if err != nil {
		return nil, parseZygomysError(err), nil
	}

	_, err = env.Run()
	if err != nil {
		// Commands before the failure already ran; keep their output.
		return sess.output, parseZygomysError(err), nil
	}

	return sess.output, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	if m := linePattern.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return []EvalError{{
			Line:    line,
			Col:     0,
			Message: strings.TrimSpace(m[2]),
		}}
	}

	if m := linePatternShort.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return []EvalError{{
			Line:    line,
			Col:     0,
			Message: strings.TrimSpace(m[2]),
		}}
	}

	// Fallback: no line info available.
	return []EvalError{{
		Line:    0,
		Col:     0,
		Message: strings.TrimSpace(msg),
	}}
}
