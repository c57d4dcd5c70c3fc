package server

import (
	"net/http"
	"strconv"

	raven "github.com/getsentry/raven-go"
	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"

	"github.com/ndlib/arbor/event"
	"github.com/ndlib/arbor/query"
	"github.com/ndlib/arbor/resource"
)

// resourceJSON is how a resource is sent to clients.
type resourceJSON struct {
	Path       string                 `json:"path"`
	Properties map[string]interface{} `json:"properties"`
}

func toJSON(d *resource.Data) resourceJSON {
	return resourceJSON{Path: d.Path(), Properties: d.Properties()}
}

// statusFor maps an error from a Store to an HTTP status code.
func statusFor(err error) int {
	switch errors.Cause(err) {
	case resource.ErrInvalidPath, resource.ErrIllegalRoot:
		return http.StatusBadRequest
	case resource.ErrNotFound:
		return http.StatusNotFound
	case resource.ErrAlreadyExists:
		return http.StatusConflict
	case resource.ErrNotSupported:
		return http.StatusNotImplemented
	}
	var qe *query.Error
	if errors.As(err, &qe) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

// ResourceHandler handles requests to GET /resource/*path
func (s *RESTServer) ResourceHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	st := s.session(nil)
	defer st.Close()
	d, err := st.Get(ps.ByName("path"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toJSON(d))
}

// ChildrenHandler handles requests to GET /children/*path
func (s *RESTServer) ChildrenHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	st := s.session(nil)
	defer st.Close()
	it, err := st.Children(ps.ByName("path"))
	if err != nil {
		writeError(w, err)
		return
	}
	s.writeIterator(w, it, 0)
}

// QueryHandler handles requests to GET /query?lang=...&q=...&limit=...
// The language defaults to "expr". A limit of 0 means no limit.
func (s *RESTServer) QueryHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	v := r.URL.Query()
	lang := v.Get("lang")
	if lang == "" {
		lang = "expr"
	}
	var limit int
	if l := v.Get("limit"); l != "" {
		var err error
		limit, err = strconv.Atoi(l)
		if err != nil || limit < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad limit " + l})
			return
		}
	}
	st := s.session(nil)
	defer st.Close()
	it, err := st.Query(v.Get("q"), lang)
	if err != nil {
		writeError(w, err)
		return
	}
	s.writeIterator(w, it, limit)
}

// writeIterator sends up to limit items of it as a JSON array, closing it.
func (s *RESTServer) writeIterator(w http.ResponseWriter, it resource.Iterator, limit int) {
	defer it.Close()
	result := []resourceJSON{}
	for it.Next() {
		result = append(result, toJSON(it.Data()))
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	if err := it.Err(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// eventJSON is how a committed change is sent to clients.
type eventJSON struct {
	Kind string `json:"kind"`
	Path string `json:"path"`
}

// batchResult is the response to a batch.
type batchResult struct {
	Events []eventJSON `json:"events"`
	Error  string      `json:"error,omitempty"`
	Index  *int        `json:"index,omitempty"` // the operation which failed
}

// BatchHandler handles requests to POST /batch. The body is a JSON array of
// operations, each an object with the fields "op" (one of "create",
// "update" or "delete"), "path" and, except for delete, "properties". The
// operations are applied in order to a new session, which is committed if
// they all succeed. The response lists the changes made.
func (s *RESTServer) BatchHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if !s.Writable() {
		writeJSON(w, http.StatusServiceUnavailable, batchResult{Events: []eventJSON{}, Error: "server is read only"})
		return
	}
	ops, err := parseBatch(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, batchResult{Events: []eventJSON{}, Error: err.Error()})
		return
	}
	if !s.commits.Enter() {
		writeJSON(w, http.StatusServiceUnavailable, batchResult{Events: []eventJSON{}, Error: "server is stopping"})
		return
	}
	defer s.commits.Leave()

	result := batchResult{Events: []eventJSON{}}
	var fanout event.Multi
	fanout.Subscribe(event.Func(func(kind event.Kind, path string) {
		result.Events = append(result.Events, eventJSON{Kind: kind.String(), Path: path})
	}))
	fanout.Subscribe(s.Notifier)
	st := s.session(&fanout)
	defer st.Close()

	for i, op := range ops {
		if err := op.apply(st); err != nil {
			st.Revert()
			result.Error = err.Error()
			result.Index = &i
			writeJSON(w, statusFor(err), result)
			return
		}
	}
	if err := st.Commit(); err != nil {
		raven.CaptureError(err, map[string]string{"Session": st.Session()})
		result.Error = err.Error()
		writeJSON(w, http.StatusInternalServerError, result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
