package server

import (
	"context"
	"fmt"

	"github.com/chazu/kutes/vm"
)

// vmRequest represents a unit of work to be executed on the worker goroutine.
type vmRequest struct {
	fn   func(*vm.VM) any
	done chan vmResult
}

// vmResult holds the return value from a VM operation.
type vmResult struct {
	value any
	err   error
}

// VMWorker serializes all interpreter access through a single goroutine.
// Interpreters are single-threaded; every HTTP handler that touches a
// session's interpreter or document goes through the worker.
type VMWorker struct {
	vm       *vm.VM
	requests chan vmRequest
	quit     chan struct{}
}

// NewVMWorker creates a VMWorker and starts the processing goroutine.
func NewVMWorker(v *vm.VM) *VMWorker {
	w := &VMWorker{
		vm:       v,
		requests: make(chan vmRequest, 64),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w
}

// loop processes requests sequentially on a dedicated goroutine.
func (w *VMWorker) loop() {
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs a function, recovering from panics.
func (w *VMWorker) execute(fn func(*vm.VM) any) vmResult {
	var result vmResult
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("worker panic: %v", r)
				result.err = fmt.Errorf("%v", r)
			}
		}()
		result.value = fn(w.vm)
	}()
	return result
}

// Do submits a function for execution on the worker goroutine and blocks
// until it completes or ctx is done. A function already queued still runs
// when ctx is cancelled; only the wait is abandoned.
func (w *VMWorker) Do(ctx context.Context, fn func(*vm.VM) any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req := vmRequest{
		fn:   fn,
		done: make(chan vmResult, 1),
	}
	select {
	case w.requests <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case result := <-req.done:
		return result.value, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stop shuts down the worker goroutine.
func (w *VMWorker) Stop() {
	close(w.quit)
}

// VM returns the shared environment. Only the frozen native context and
// atom table may be read outside the worker.
func (w *VMWorker) VM() *vm.VM {
	return w.vm
}
