package event

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindString(t *testing.T) {
	assert.Equal(t, "added", Added.String())
	assert.Equal(t, "updated", Updated.String())
	assert.Equal(t, "removed", Removed.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}

func TestMultiFanOut(t *testing.T) {
	var first, second []string
	m := &Multi{}
	m.Subscribe(Func(func(k Kind, p string) { first = append(first, k.String()+" "+p) }))
	m.Subscribe(Func(func(k Kind, p string) { second = append(second, k.String()+" "+p) }))

	m.Notify(Added, "/x")
	m.Notify(Removed, "/y")

	expected := []string{"added /x", "removed /y"}
	assert.Equal(t, expected, first)
	assert.Equal(t, expected, second)
}

func TestChannelStampsTime(t *testing.T) {
	mock := clock.NewMock()
	mock.Add(90 * time.Second)
	c := &Channel{C: make(chan Event, 2), Clock: mock}

	c.Notify(Updated, "/a/b")

	require.Len(t, c.C, 1)
	ev := <-c.C
	assert.Equal(t, Updated, ev.Kind)
	assert.Equal(t, "/a/b", ev.Path)
	assert.True(t, ev.Time.Equal(mock.Now()))
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	l := Log{Logger: zerolog.New(&buf)}

	l.Notify(Added, "/x")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "added", line["kind"])
	assert.Equal(t, "/x", line["path"])
	assert.Equal(t, "info", line["level"])
}

func TestNobody(t *testing.T) {
	var n Notifier = Nobody{}
	assert.NotPanics(t, func() { n.Notify(Removed, "/") })
}
