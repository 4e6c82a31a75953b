// Package scripting hosts user-supplied JavaScript that can override
// per-operation redaction verdicts. Scripts run in an isolated goja VM
// with context-based interruption; they see operation metadata only and
// cannot touch the document.
package scripting

import (
	"context"

	"github.com/dop251/goja"
)

// Engine executes scripts with cancellation support.
type Engine interface {
	Execute(ctx context.Context, script string) (interface{}, error)
}

// GojaEngine is the goja-backed Engine. Policy invocations run through
// the same VM and the same interrupt path, so a runaway decide function
// is stopped when the redaction context expires.
type GojaEngine struct {
	vm *goja.Runtime
}

// NewEngine creates a fresh VM.
func NewEngine() *GojaEngine {
	return &GojaEngine{vm: goja.New()}
}

// Execute runs script, interrupting it if ctx is canceled.
func (e *GojaEngine) Execute(ctx context.Context, script string) (interface{}, error) {
	val, err := e.run(ctx, func() (goja.Value, error) {
		return e.vm.RunString(script)
	})
	if err != nil {
		return nil, err
	}
	return val.Export(), nil
}

// Call invokes a function resolved from this VM under the same
// interruption rules as Execute.
func (e *GojaEngine) Call(ctx context.Context, fn goja.Callable, args ...goja.Value) (goja.Value, error) {
	return e.run(ctx, func() (goja.Value, error) {
		return fn(goja.Undefined(), args...)
	})
}

// run evaluates invoke on the VM, interrupting it when ctx is canceled.
// Not safe for concurrent use; callers serialize access to the VM.
func (e *GojaEngine) run(ctx context.Context, invoke func() (goja.Value, error)) (goja.Value, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	defer close(done)
	defer e.vm.ClearInterrupt()

	go func() {
		select {
		case <-ctx.Done():
			e.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	val, err := invoke()
	if err != nil {
		if interruptedErr, ok := err.(*goja.InterruptedError); ok {
			if cause := interruptedErr.Unwrap(); cause != nil {
				return nil, cause
			}
			return nil, context.Canceled
		}
		return nil, err
	}
	return val, nil
}
