package wsclient

import (
	"context"
	"sync"
)

// Future is a single-assignment result. It resolves exactly once, with either
// a value or an error, and any number of goroutines may wait on it.
type Future[T any] struct {
	once sync.Once
	done chan struct{}
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func failedFuture[T any](err error) *Future[T] {
	f := newFuture[T]()
	var zero T
	f.resolve(zero, err)
	return f
}

// resolve sets the result. It reports false if the future was already resolved.
func (f *Future[T]) resolve(val T, err error) bool {
	resolved := false
	f.once.Do(func() {
		f.val = val
		f.err = err
		close(f.done)
		resolved = true
	})
	return resolved
}

// Done returns a channel closed once the future resolves.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the future resolves or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Err returns the resolved error, or nil if the future is still pending.
func (f *Future[T]) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

func (f *Future[T]) resolved() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
