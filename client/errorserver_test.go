package client

import (
	"net/http"
	"sort"
	"sync"
)

// An errorServer wraps another http.Handler and injects errors as
// described by a given playbook. Each call to ServeHTTP on the server
// increments a count starting at 0. A play gives a count to activate, and
// when the server reaches that count it will return the given Status and
// Body. Otherwise, requests are passed on to the wrapped handler.
// This is safe for concurrent use.
type errorServer struct {
	h http.Handler

	m        sync.Mutex
	count    int
	playbook []play
}

type play struct {
	When   int
	Status int
	Body   string
}

func (s *errorServer) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	s.m.Lock()
	count := s.count
	s.count++
	for len(s.playbook) > 0 && s.playbook[0].When <= count {
		p := s.playbook[0]
		s.playbook = s.playbook[1:]
		if p.When < count {
			// more than one play had same count. Ignore the rest.
			continue
		}
		s.m.Unlock()
		w.WriteHeader(p.Status)
		w.Write([]byte(p.Body))
		return
	}
	s.m.Unlock()
	s.h.ServeHTTP(w, req)
}

func (s *errorServer) Reset(playbook []play) {
	s.m.Lock()
	s.count = 0
	s.playbook = append([]play(nil), playbook...)
	sort.Slice(s.playbook, func(i, j int) bool {
		return s.playbook[i].When < s.playbook[j].When
	})
	s.m.Unlock()
}
