// Package async provides Future, the completion handle returned by every
// non-blocking cache operation. The blocking form of an operation is always
// its future's Wait, so each operation is written exactly once.
//
// Example usage:
//
//	f := async.Run(ctx, func(ctx context.Context) ([]byte, error) {
//	    return store.Load(ctx, key, now)
//	})
//	value, err := f.Wait()
package async

import (
	"context"
	"fmt"
	"runtime/debug"
)

// Future is the eventual result of a function started by Run. It is safe
// for concurrent use; every waiter observes the same result.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
	panic *panicError
}

// panicError carries a recovered panic value to the waiters.
type panicError struct {
	value interface{}
	stack []byte
}

func (p *panicError) Error() string {
	return fmt.Sprintf("panic in async operation: %v\n%s", p.value, p.stack)
}

// Run starts fn on its own goroutine and returns immediately.
func Run[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.panic = &panicError{value: r, stack: debug.Stack()}
			}
		}()
		f.value, f.err = fn(ctx)
	}()
	return f
}

// Completed returns a future that is already resolved with value and err.
func Completed[T any](value T, err error) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), value: value, err: err}
	close(f.done)
	return f
}

// Done is closed once the operation has finished.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the operation finishes and returns its result. The
// operation's error is returned unchanged. If the operation panicked, Wait
// panics with the original value.
func (f *Future[T]) Wait() (T, error) {
	<-f.done
	if f.panic != nil {
		panic(f.panic.value)
	}
	return f.value, f.err
}

// Await is Wait bounded by ctx. When ctx ends first it returns ctx.Err();
// the operation itself keeps running under the context it was started with.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.Wait()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Err reports the outcome without blocking: nil while the operation is
// pending, the recovered panic as an error if it panicked, otherwise the
// operation's own error.
func (f *Future[T]) Err() error {
	select {
	case <-f.done:
	default:
		return nil
	}
	if f.panic != nil {
		return f.panic
	}
	return f.err
}
