package server

import (
	"encoding/json"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof" // for pprof server
	"sync/atomic"
	"time"

	"github.com/facebookgo/clock"
	"github.com/facebookgo/httpdown"
	"github.com/facebookgo/stats"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"

	"github.com/ndlib/arbor/event"
	"github.com/ndlib/arbor/logging"
	"github.com/ndlib/arbor/resource"
	"github.com/ndlib/arbor/util"
)

// RESTServer holds the configuration for an arbor REST API server.
//
// Set all the public fields and then call Run. Run will listen on the given
// port and handle requests. Every request gets its own resource.Store over
// the shared Adapter, which is thrown away when the request finishes. Do not
// change any fields after calling Run.
type RESTServer struct {
	// Port number to run arbor on. defaults to 14100
	PortNumber string
	PProfPort  string

	// Adapter is the backing store. Run will panic if Adapter is nil.
	Adapter resource.Adapter

	// Notifier is told about every change committed through the server.
	// If nil, changes are only logged.
	Notifier event.Notifier

	// Validator does authentication by decoding any user tokens
	// presented to the API. If this is nil then every request is allowed.
	Validator TokenDecoder

	// Stats receives the commit counters and timings. If nil they are
	// published with expvar under "arbor".
	Stats stats.Client

	// MaxConcurrentCommits limits how many batches may be applied and
	// committed at the same time. Defaults to 1.
	MaxConcurrentCommits int

	commits  *util.Gate
	server   httpdown.Server // used to close our listening socket
	readonly int32           // 1 when batches are refused
	log      zerolog.Logger
}

// the expvar map the default stats are published in
var arborVars = expvar.NewMap("arbor")

// Run initializes the server and then blocks listening for and handling
// http requests.
func (s *RESTServer) Run() error {
	s.init()
	s.log.Info().
		Str("version", Version).
		Str("port", s.PortNumber).
		Msg("Starting Arbor Server")

	// for pprof
	if s.PProfPort != "" {
		s.log.Info().Str("port", s.PProfPort).Msg("Starting PProf")
		go func() {
			err := http.ListenAndServe(":"+s.PProfPort, nil)
			s.log.Error().Err(err).Msg("pprof")
		}()
	}

	var err error
	h := httpdown.HTTP{
		StopTimeout: 10 * time.Second,
		KillTimeout: 1 * time.Second,
		Stats:       s.Stats,
	}
	s.server, err = h.ListenAndServe(&http.Server{
		Addr:    ":" + s.PortNumber,
		Handler: s.addRoutes(),
	})
	if err != nil {
		s.log.Error().Err(err).Msg("listen")
		return err
	}
	return s.server.Wait()
}

// Stop will stop the server and return when all the server goroutines have
// exited and the socket closed. Batches in progress are allowed to finish
// and any new ones are refused.
func (s *RESTServer) Stop() error {
	if s.commits != nil {
		s.commits.Stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Stop()
}

// Handler returns the routes of the server without listening on a port.
// It is used for testing and for embedding arbor in another server.
func (s *RESTServer) Handler() http.Handler {
	s.init()
	return s.addRoutes()
}

func (s *RESTServer) init() {
	if s.Adapter == nil {
		panic("No backing store given. Adapter is nil.")
	}
	s.log = logging.Get("server")
	if s.PortNumber == "" {
		s.PortNumber = "14100"
	}
	if s.Validator == nil {
		s.log.Info().Msg("No Validator given")
		s.Validator = NewNobodyDecoder()
	}
	if s.Notifier == nil {
		s.Notifier = event.Log{Logger: logging.Get("event")}
	}
	if s.Stats == nil {
		s.Stats = NewExpvarStats(arborVars, clock.New())
	}
	if s.MaxConcurrentCommits <= 0 {
		s.MaxConcurrentCommits = 1
	}
	s.commits = util.NewGate(s.MaxConcurrentCommits)
}

func (s *RESTServer) addRoutes() http.Handler {
	var routes = []struct {
		method  string
		route   string
		role    Role // RoleUnknown means no API key is needed to access
		handler httprouter.Handle
	}{
		{"GET", "/resource/*path", RoleRead, s.ResourceHandler},
		{"GET", "/children/*path", RoleRead, s.ChildrenHandler},
		{"GET", "/query", RoleRead, s.QueryHandler},
		{"POST", "/batch", RoleWrite, s.BatchHandler},

		// /admin/writable (enable, disable, get status)
		{"GET", "/admin/writable", RoleUnknown, s.GetWritableHandler},
		{"PUT", "/admin/writable/:status", RoleAdmin, s.SetWritableHandler},

		// other
		{"GET", "/", RoleUnknown, WelcomeHandler},
		{"GET", "/debug/vars", RoleUnknown, VarHandler}, // standard route for expvars data
	}

	r := httprouter.New()
	for _, route := range routes {
		r.Handle(route.method,
			route.route,
			s.logWrapper(s.authzWrapper(route.handler, route.role)))
	}
	return r
}

// session starts a new Store over the server's adapter.
func (s *RESTServer) session(n event.Notifier) *resource.Store {
	return resource.New(s.Adapter,
		resource.WithNotifier(n),
		resource.WithStats(s.Stats),
		resource.WithLogger(logging.Get("resource")))
}

// Writable reports whether the server accepts batches.
func (s *RESTServer) Writable() bool {
	return atomic.LoadInt32(&s.readonly) == 0
}

// SetWritable turns the acceptance of batches on or off.
func (s *RESTServer) SetWritable(on bool) {
	var v int32 = 1
	if on {
		v = 0
	}
	atomic.StoreInt32(&s.readonly, v)
	s.log.Info().Bool("writable", on).Msg("set writable")
}

// General route handlers and convenience functions

// VarHandler adapts the expvar default handler to the httprouter three parameter handler.
func VarHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	// this code is taken from the stdlib expvar package.
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	fmt.Fprintf(w, "{\n")
	first := true
	expvar.Do(func(kv expvar.KeyValue) {
		if !first {
			fmt.Fprintf(w, ",\n")
		}
		first = false
		fmt.Fprintf(w, "%q: %s", kv.Key, kv.Value)
	})
	fmt.Fprintf(w, "\n}\n")
}

// writeJSON sends val as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, val interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(val)
}

// authzWrapper returns a Handler which will first verify the user token as
// having at least the given Role. The user name is added as a parameter
// "username".
func (s *RESTServer) authzWrapper(handler httprouter.Handle, leastRole Role) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		token := r.Header.Get("X-Api-Key")
		user, role, err := s.Validator.TokenDecode(token)
		if err != nil {
			w.WriteHeader(500)
			fmt.Fprintln(w, err.Error())
			return
		}
		if role < leastRole {
			w.WriteHeader(401)
			fmt.Fprintln(w, "Forbidden")
			return
		}
		ps = append(ps, httprouter.Param{Key: "username", Value: user})
		handler(w, r, ps)
	}
}

// statusWriter remembers the status code sent through it.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

// logWrapper takes a handler and returns a handler which does the same
// thing, and then logs the request with its status and duration.
func (s *RESTServer) logWrapper(handler httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		handler(sw, r, ps)
		s.log.Info().
			Str("method", r.Method).
			Str("url", r.URL.String()).
			Int("status", sw.status).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}
