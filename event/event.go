// Package event defines the change notifications emitted when a session
// commits its pending changes, along with a few ways to consume them.
//
// A Notifier is called synchronously from within a commit, once per affected
// path. It is never called for reads or for reverts.
package event

import (
	"fmt"
	"sync"
	"time"

	"github.com/facebookgo/clock"
	"github.com/rs/zerolog"
)

// Kind identifies what happened to a path.
type Kind int

const (
	Added Kind = iota + 1
	Updated
	Removed
)

func (k Kind) String() string {
	switch k {
	case Added:
		return "added"
	case Updated:
		return "updated"
	case Removed:
		return "removed"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Notifier receives change notifications.
type Notifier interface {
	Notify(kind Kind, path string)
}

// Func adapts an ordinary function into a Notifier.
type Func func(kind Kind, path string)

// Notify calls f(kind, path).
func (f Func) Notify(kind Kind, path string) {
	f(kind, path)
}

// Nobody is a Notifier which discards everything.
type Nobody struct{}

// Notify does nothing.
func (Nobody) Notify(Kind, string) {}

// Event is a single notification, stamped with the time it was delivered.
type Event struct {
	Kind Kind
	Path string
	Time time.Time
}

// Multi fans notifications out to a list of subscribers. It is goroutine
// safe, so one Multi may be shared by many sessions.
type Multi struct {
	m    sync.RWMutex
	subs []Notifier
}

var _ Notifier = &Multi{}

// Subscribe adds n to the list of subscribers.
func (m *Multi) Subscribe(n Notifier) {
	m.m.Lock()
	m.subs = append(m.subs, n)
	m.m.Unlock()
}

// Notify passes the notification to every subscriber, in the order they
// subscribed.
func (m *Multi) Notify(kind Kind, path string) {
	m.m.RLock()
	defer m.m.RUnlock()
	for _, n := range m.subs {
		n.Notify(kind, path)
	}
}

// Channel delivers notifications as Events on C. Sends block, so C needs to
// be drained or buffered deeply enough for a whole commit.
type Channel struct {
	C     chan Event
	Clock clock.Clock
}

// NewChannel returns a Channel with a buffer of size n which stamps events
// using the wall clock.
func NewChannel(n int) *Channel {
	return &Channel{
		C:     make(chan Event, n),
		Clock: clock.New(),
	}
}

// Notify sends an Event on c.C.
func (c *Channel) Notify(kind Kind, path string) {
	c.C <- Event{Kind: kind, Path: path, Time: c.Clock.Now()}
}

// Log writes each notification to a zerolog logger at info level.
type Log struct {
	Logger zerolog.Logger
}

// Notify logs the notification.
func (l Log) Notify(kind Kind, path string) {
	l.Logger.Info().
		Str("kind", kind.String()).
		Str("path", path).
		Msg("resource changed")
}
