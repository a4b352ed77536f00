package chat

import (
	"context"
	"sync"
)

// Locker serializes work on a session. Lock blocks until the session is free
// or ctx is done and returns the function that releases it.
type Locker interface {
	Lock(ctx context.Context, sessionID string) (unlock func(), err error)
}

// NoopLocker never blocks. Concurrent turns on one session race and the last
// save wins.
type NoopLocker struct{}

// Lock implements Locker.
func (NoopLocker) Lock(context.Context, string) (func(), error) {
	return func() {}, nil
}

// KeyedMutex is an in-process Locker with one mutex per active session.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	ch   chan struct{}
	refs int
}

// NewKeyedMutex creates an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*sessionLock)}
}

// Lock implements Locker.
func (k *KeyedMutex) Lock(ctx context.Context, sessionID string) (func(), error) {
	k.mu.Lock()
	l, ok := k.locks[sessionID]
	if !ok {
		l = &sessionLock{ch: make(chan struct{}, 1)}
		k.locks[sessionID] = l
	}
	l.refs++
	k.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(sessionID, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.ch
			k.release(sessionID, l)
		})
	}, nil
}

func (k *KeyedMutex) release(sessionID string, l *sessionLock) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, sessionID)
	}
}

func (k *KeyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
