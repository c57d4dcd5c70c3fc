package adapter

// The S3 adapter needs to remember which remote objects exist. This file
// implements a small cache for that.

import (
	"strings"
	"sync"
	"time"

	"github.com/facebookgo/clock"
)

// presence is the state remembered for a key.
type presence int

const (
	unknown presence = iota
	present
	missing
)

type entry struct {
	expire time.Time
	state  presence
}

// An existcache remembers whether a remote object exists. Entries expire
// after some amount of time. Misses expire quicker than hits.
type existcache struct {
	m         sync.Mutex       // protects everything below
	cache     map[string]entry // cache for key states
	sweeptime time.Time        // next time to age everything
	clock     clock.Clock
	hitTTL    time.Duration
	missTTL   time.Duration
}

const (
	defaultMissTTL = 5 * time.Minute
	defaultHitTTL  = 24 * time.Hour
	sweepInterval  = time.Hour
)

func newExistCache(c clock.Clock) *existcache {
	if c == nil {
		c = clock.New()
	}
	return &existcache{
		cache:   make(map[string]entry),
		clock:   c,
		hitTTL:  defaultHitTTL,
		missTTL: defaultMissTTL,
	}
}

// Get reports whether key exists. If the cache does not know, it calls
// fill to find out and remembers the answer, unless fill fails.
func (s *existcache) Get(key string, fill func(key string) (bool, error)) (bool, error) {
	s.m.Lock()
	now := s.clock.Now()
	if now.After(s.sweeptime) {
		s.age(now)
	}
	e, ok := s.cache[key]
	if ok && now.After(e.expire) {
		e.state = unknown
	}
	s.m.Unlock()
	switch e.state {
	case present:
		return true, nil
	case missing:
		return false, nil
	}
	if fill == nil {
		return false, nil
	}
	exists, err := fill(key)
	if err != nil {
		return false, err
	}
	s.Set(key, exists)
	return exists, nil
}

// Known returns the cached state of key without trying to fill it.
func (s *existcache) Known(key string) (exists bool, ok bool) {
	s.m.Lock()
	defer s.m.Unlock()
	e, found := s.cache[key]
	if !found || s.clock.Now().After(e.expire) {
		return false, false
	}
	return e.state == present, true
}

// Set records whether key exists.
func (s *existcache) Set(key string, exists bool) {
	ttl := s.missTTL
	state := missing
	if exists {
		ttl = s.hitTTL
		state = present
	}
	s.m.Lock()
	s.cache[key] = entry{expire: s.clock.Now().Add(ttl), state: state}
	s.m.Unlock()
}

// ForgetPrefix drops every entry whose key begins with prefix.
func (s *existcache) ForgetPrefix(prefix string) {
	s.m.Lock()
	for k := range s.cache {
		if strings.HasPrefix(k, prefix) {
			delete(s.cache, k)
		}
	}
	s.m.Unlock()
}

// age removes the expired entries. The caller must hold m.
func (s *existcache) age(now time.Time) {
	s.sweeptime = now.Add(sweepInterval)
	for k, v := range s.cache {
		if now.After(v.expire) {
			delete(s.cache, k)
		}
	}
}
