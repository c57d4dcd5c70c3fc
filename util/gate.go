// Package util holds small concurrency helpers shared by the arbor server.
package util

// A Gate limits concurrency. Every gate has a maximum number of goroutines
// to allow through at a time. Goroutines enter the gate by calling Enter(),
// and signal that they are done by calling Leave(). Once Stop has been
// called every Enter fails.
type Gate struct {
	slots chan struct{}
	stop  chan struct{}
}

// NewGate returns a Gate which accepts at most n entries at a time.
// An n less than 1 is taken to be 1.
func NewGate(n int) *Gate {
	if n < 1 {
		n = 1
	}
	return &Gate{
		slots: make(chan struct{}, n),
		stop:  make(chan struct{}),
	}
}

// Enter is called at the beginning of the section to be protected by
// the gate, and will block the calling goroutine until there are less than
// n goroutines inside. It returns false if the gate was stopped, in which
// case the caller must not call Leave.
// It is safe to call this from multiple goroutines.
func (g *Gate) Enter() bool {
	select {
	case <-g.stop:
		return false
	case g.slots <- struct{}{}:
	}
	select {
	case <-g.stop:
		<-g.slots
		return false
	default:
		return true
	}
}

// Leave marks a goroutine outside the critical section. It is important to
// balance each successful call to Enter with a call to Leave. Enter and
// Leave do not need to be called from the same goroutine, necessarily.
func (g *Gate) Leave() {
	<-g.slots
}

// Stop makes every waiting and future Enter fail, and then blocks until
// every goroutine inside the gate has left. Stop may only be called once.
func (g *Gate) Stop() {
	close(g.stop)
	for i := 0; i < cap(g.slots); i++ {
		g.slots <- struct{}{}
	}
}
