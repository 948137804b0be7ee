package status

import (
	"context"
	"sync"
)

type contextKey string

const channelKey contextKey = "status-channel"

// sink guards a status channel so that sends after close are dropped
// instead of panicking. Updates can be sent from goroutines that outlive
// the command that started the handler.
type sink struct {
	mu     sync.RWMutex
	ch     chan<- Update
	closed bool
}

// trySend delivers u without blocking and reports whether it was queued.
func (s *sink) trySend(u Update) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- u:
		return true
	default:
		return false
	}
}

func (s *sink) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// WithChannel returns a context carrying ch. Senders never block on it,
// so ch should be buffered. The caller keeps ownership of ch and must not
// close it while updates may still be sent.
func WithChannel(ctx context.Context, ch chan<- Update) context.Context {
	return withSink(ctx, &sink{ch: ch})
}

func withSink(ctx context.Context, s *sink) context.Context {
	return context.WithValue(ctx, channelKey, s)
}

// getSink returns the sink carried by ctx, or nil.
func getSink(ctx context.Context) *sink {
	if ctx == nil {
		return nil
	}
	s, ok := ctx.Value(channelKey).(*sink)
	if !ok {
		return nil
	}
	return s
}
