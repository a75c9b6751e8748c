package patch

import (
	"context"
	"sync"
)

// Latch is a one-shot completion signal. Everything written before Release
// is visible to goroutines that return from Wait.
type Latch struct {
	once sync.Once
	done chan struct{}
}

func NewLatch() *Latch {
	return &Latch{done: make(chan struct{})}
}

// Release opens the latch; further calls do nothing.
func (l *Latch) Release() {
	l.once.Do(func() { close(l.done) })
}

// Done is closed once the latch is released.
func (l *Latch) Done() <-chan struct{} {
	return l.done
}

// Wait blocks until the latch is released or ctx ends.
func (l *Latch) Wait(ctx context.Context) error {
	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
