package server

import (
	"expvar"
	"time"

	"github.com/facebookgo/clock"
	"github.com/facebookgo/stats"
)

// expvarStats is a stats.Client which keeps running totals in an expvar
// map. For a key k, BumpSum adds to k. BumpAvg and BumpHistogram add to
// k.sum and k.count. BumpTime records milliseconds the same way under
// k.ms.
type expvarStats struct {
	m     *expvar.Map
	clock clock.Clock
}

var _ stats.Client = &expvarStats{}

// NewExpvarStats returns a stats.Client writing to m and timing with c.
func NewExpvarStats(m *expvar.Map, c clock.Clock) stats.Client {
	return &expvarStats{m: m, clock: c}
}

func (e *expvarStats) BumpSum(key string, val float64) {
	e.m.AddFloat(key, val)
}

func (e *expvarStats) BumpAvg(key string, val float64) {
	e.m.AddFloat(key+".sum", val)
	e.m.Add(key+".count", 1)
}

func (e *expvarStats) BumpHistogram(key string, val float64) {
	e.BumpAvg(key, val)
}

func (e *expvarStats) BumpTime(key string) interface {
	End()
} {
	return timer{e: e, key: key, start: e.clock.Now()}
}

type timer struct {
	e     *expvarStats
	key   string
	start time.Time
}

func (t timer) End() {
	elapsed := t.e.clock.Now().Sub(t.start)
	t.e.BumpAvg(t.key+".ms", float64(elapsed)/float64(time.Millisecond))
}
