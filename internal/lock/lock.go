package lock

import (
	"context"
	"sync"
)

// Lock claims exclusive ownership of a named resource, such as one event.
type Lock interface {
	// Acquire returns false without error when another owner holds name.
	Acquire(ctx context.Context, name string) (bool, error)
	Release(ctx context.Context, name string) error
	// ReleaseAll drops every lock held by this instance.
	ReleaseAll(ctx context.Context)
	Close() error
}

// LocalLock is an in-process Lock for single-instance deployments and tests.
type LocalLock struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewLocalLock() *LocalLock {
	return &LocalLock{held: make(map[string]bool)}
}

func (l *LocalLock) Acquire(_ context.Context, name string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[name] {
		return false, nil
	}
	l.held[name] = true
	return true, nil
}

func (l *LocalLock) Release(_ context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, name)
	return nil
}

func (l *LocalLock) ReleaseAll(_ context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = make(map[string]bool)
}

func (l *LocalLock) Close() error {
	l.ReleaseAll(context.Background())
	return nil
}
