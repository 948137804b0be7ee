package status

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultChannelSize is the buffer size of the channel made by StartHandler.
	DefaultChannelSize = 100

	// DefaultFlushTimeout bounds how long cleanup waits for queued updates.
	DefaultFlushTimeout = 5 * time.Second
)

// Level is the severity of an update.
type Level string

const (
	// LevelInfo is a plain informational message.
	LevelInfo Level = "info"

	// LevelProgress reports that a page was retrieved.
	LevelProgress Level = "progress"

	// LevelRetry reports that a request failed and will be retried.
	LevelRetry Level = "retry"

	// LevelWarning reports a condition that did not stop the command.
	LevelWarning Level = "warning"

	// LevelError reports a terminal failure.
	LevelError Level = "error"
)

// Update is a progress message emitted while a command runs. Updates go to
// stderr through the handler and never mix with command output.
type Update struct {
	Level   Level
	Message string

	// Resource is the collection or endpoint involved ("zones", "records", "token").
	Resource string

	// Zone is set while records of a particular zone are being read.
	Zone string

	// Page is the 1-based page number within the current collection.
	Page int

	// Fetched is the running total of entities read so far.
	Fetched int

	// Attempt and Delay describe a pending retry.
	Attempt int
	Delay   time.Duration

	Timestamp time.Time
}

// NewUpdate creates an Update stamped with the current time.
func NewUpdate(level Level, message string) Update {
	return Update{
		Level:     level,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// WithResource sets the resource of the update.
func (u Update) WithResource(resource string) Update {
	u.Resource = resource
	return u
}

// WithZone sets the zone of the update.
func (u Update) WithZone(zone string) Update {
	u.Zone = zone
	return u
}

// Send delivers update on the channel carried by ctx. It never blocks: if
// there is no channel, or it is full or already closed, the update is
// dropped.
func Send(ctx context.Context, update Update) {
	s := getSink(ctx)
	if s == nil {
		return
	}

	if update.Timestamp.IsZero() {
		update.Timestamp = time.Now()
	}

	s.trySend(update)
}

// Sendf sends a formatted update.
func Sendf(ctx context.Context, level Level, format string, args ...any) {
	Send(ctx, Update{
		Level:     level,
		Message:   fmt.Sprintf(format, args...),
		Timestamp: time.Now(),
	})
}

// Infof sends a formatted informational update.
func Infof(ctx context.Context, format string, args ...any) {
	Sendf(ctx, LevelInfo, format, args...)
}

// Warningf sends a formatted warning.
func Warningf(ctx context.Context, format string, args ...any) {
	Sendf(ctx, LevelWarning, format, args...)
}

// PageFetched reports that page number page of resource was read, bringing
// the running total to fetched.
func PageFetched(ctx context.Context, resource, zone string, page, fetched int) {
	u := NewUpdate(LevelProgress, fmt.Sprintf("fetched page %d of %s", page, resource)).
		WithResource(resource).
		WithZone(zone)
	u.Page = page
	u.Fetched = fetched
	Send(ctx, u)
}

// Retrying reports that attempt failed with err and the next one follows
// after delay.
func Retrying(ctx context.Context, resource string, attempt int, delay time.Duration, err error) {
	u := NewUpdate(LevelRetry, fmt.Sprintf("attempt %d failed, retrying in %s: %v", attempt, delay, err)).
		WithResource(resource)
	u.Attempt = attempt
	u.Delay = delay
	Send(ctx, u)
}

// Handler processes updates received on the channel.
type Handler func(Update)

// CleanupFunc closes the status channel and waits for queued updates to be
// handled. Defer it right after StartHandler.
type CleanupFunc func()

// StartHandler attaches a new status channel to ctx and drains it with
// handler on a separate goroutine.
//
//	ctx, cleanup := status.StartHandler(ctx, func(u status.Update) {
//	    slog.Info("Status", "message", u.Message)
//	})
//	defer cleanup()
func StartHandler(ctx context.Context, handler Handler) (context.Context, CleanupFunc) {
	return StartHandlerWithOptions(ctx, handler, DefaultChannelSize, DefaultFlushTimeout)
}

// StartHandlerWithOptions is StartHandler with an explicit channel size and
// flush timeout.
func StartHandlerWithOptions(ctx context.Context, handler Handler, channelSize int, flushTimeout time.Duration) (context.Context, CleanupFunc) {
	ch := make(chan Update, channelSize)
	s := &sink{ch: ch}
	ctx = withSink(ctx, s)

	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		for update := range ch {
			handler(update)
		}
	}()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			s.close()

			done := make(chan struct{})
			go func() {
				wg.Wait()
				close(done)
			}()

			select {
			case <-done:
			case <-time.After(flushTimeout):
			}
		})
	}

	return ctx, cleanup
}
