package server

import (
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// SetWritableHandler handles requests to PUT /admin/writable/:status
func (s *RESTServer) SetWritableHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	status := ps.ByName("status")

	switch status {
	case "on":
		s.SetWritable(true)
		w.WriteHeader(201)
	case "off":
		s.SetWritable(false)
		w.WriteHeader(201)
	default:
		w.WriteHeader(400)
		fmt.Fprintf(w, "unknown status %q\n", status)
	}
}

// GetWritableHandler handles requests from GET /admin/writable
func (s *RESTServer) GetWritableHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	switch s.Writable() {
	case true:
		fmt.Fprintf(w, "On")
	case false:
		fmt.Fprintf(w, "Off")
	}
}
