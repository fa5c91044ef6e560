package work

import (
	"context"
)

// Future is the eventual result of a computation started once
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Go starts fn in a new goroutine and returns its future
func Go[T any](fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.value, f.err = fn()
	}()
	return f
}

// Resolved returns an already completed future
func Resolved[T any](value T, err error) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), value: value, err: err}
	close(f.done)
	return f
}

// Await blocks until the computation completes or ctx is done
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done is closed once the computation completes
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}
