package resourcetest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/resourcekit/errors"
	"github.com/kbukum/resourcekit/inflector"
)

// Request is a request received by the server.
type Request struct {
	Method     string
	Path       string
	Query      map[string][]string
	Header     http.Header
	Body       any
	ProtoMajor int
}

type collection struct {
	singular string
	plural   string
	records  map[string]map[string]any
	nextID   int
}

type failure struct {
	status int
	err    *errors.AppError
}

// Server is an in-memory REST backend. Collections speak root-wrapped JSON:
// single records under the singular name, lists under the plural name.
type Server struct {
	srv    *httptest.Server
	engine *gin.Engine
	h2c    bool

	mu          sync.Mutex
	collections map[string]*collection
	requests    []Request
	failures    []failure
	delay       time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithH2C serves cleartext HTTP/2 alongside HTTP/1.1.
func WithH2C() Option {
	return func(s *Server) { s.h2c = true }
}

// WithDelay holds every response for d.
func WithDelay(d time.Duration) Option {
	return func(s *Server) { s.delay = d }
}

// NewServer starts a server that is closed when the test ends.
func NewServer(t testing.TB, opts ...Option) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &Server{
		engine:      gin.New(),
		collections: map[string]*collection{},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.engine.Use(gin.Recovery(), s.record)
	s.engine.NoRoute(s.serve)

	var handler http.Handler = s.engine
	if s.h2c {
		handler = h2c.NewHandler(s.engine, &http2.Server{})
	}
	s.srv = httptest.NewUnstartedServer(handler)
	s.srv.Start()
	t.Cleanup(s.srv.Close)
	return s
}

// URL returns the base URL of the server.
func (s *Server) URL() string { return s.srv.URL }

// Engine returns the gin engine for custom routes.
func (s *Server) Engine() *gin.Engine { return s.engine }

// Collection registers a collection served under the plural of name and
// seeds it with records. Records without an id get one assigned.
func (s *Server) Collection(name string, records ...map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	plural := inflector.Pluralize(name)
	c, ok := s.collections[plural]
	if !ok {
		c = &collection{singular: name, plural: plural, records: map[string]map[string]any{}}
		s.collections[plural] = c
	}
	for _, r := range records {
		c.insert(copyRecord(r))
	}
}

// Record returns a stored record, or nil.
func (s *Server) Record(name string, id any) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[inflector.Pluralize(name)]
	if !ok {
		return nil
	}
	if r, ok := c.records[fmt.Sprint(id)]; ok {
		return copyRecord(r)
	}
	return nil
}

// FailNext answers the next n requests with status and an error body.
func (s *Server) FailNext(n int, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.failures = append(s.failures, failure{status: status, err: errors.FromStatus(status)})
	}
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// LastRequest returns the most recent request.
func (s *Server) LastRequest(t testing.TB) Request {
	t.Helper()
	reqs := s.Requests()
	if len(reqs) == 0 {
		t.Fatal("expected a request, got none")
	}
	return reqs[len(reqs)-1]
}

func (s *Server) record(c *gin.Context) {
	var body any
	if c.Request.Body != nil {
		raw, _ := io.ReadAll(c.Request.Body)
		if len(raw) > 0 {
			var v any
			if err := json.Unmarshal(raw, &v); err == nil {
				body = v
			} else {
				body = string(raw)
			}
		}
		c.Set("body", body)
	}
	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method:     c.Request.Method,
		Path:       c.Request.URL.Path,
		Query:      c.Request.URL.Query(),
		Header:     c.Request.Header.Clone(),
		Body:       body,
		ProtoMajor: c.Request.ProtoMajor,
	})
	s.mu.Unlock()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-c.Request.Context().Done():
			c.Abort()
			return
		}
	}

	s.mu.Lock()
	var fail *failure
	if len(s.failures) > 0 {
		fail = &s.failures[0]
		s.failures = s.failures[1:]
	}
	s.mu.Unlock()
	if fail != nil {
		c.AbortWithStatusJSON(fail.status, fail.err.ToResponse())
		return
	}
	c.Next()
}

// serve dispatches /.../{plural} and /.../{plural}/{id}. Parent segments
// are ignored.
func (s *Server) serve(c *gin.Context) {
	segments := strings.Split(strings.Trim(c.Request.URL.Path, "/"), "/")
	plural, id := segments[len(segments)-1], ""
	if len(segments)%2 == 0 {
		plural, id = segments[len(segments)-2], segments[len(segments)-1]
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.collections[plural]
	if !ok {
		respondError(c, errors.NotFound(plural, ""))
		return
	}

	body, _ := c.Get("body")
	fields := col.unwrap(body)

	switch {
	case c.Request.Method == http.MethodGet && id == "":
		list := col.list(c.Request.URL.Query())
		c.JSON(http.StatusOK, gin.H{col.plural: list})
	case c.Request.Method == http.MethodGet:
		r, ok := col.records[id]
		if !ok {
			respondError(c, errors.NotFound(col.singular, id))
			return
		}
		c.JSON(http.StatusOK, gin.H{col.singular: r})
	case c.Request.Method == http.MethodPost:
		if _, ok := fields["id"]; !ok && id != "" {
			fields["id"] = parseID(id)
		}
		r := col.insert(fields)
		c.JSON(http.StatusCreated, gin.H{col.singular: r})
	case c.Request.Method == http.MethodPut || c.Request.Method == http.MethodPatch:
		r, ok := col.records[id]
		if !ok {
			respondError(c, errors.NotFound(col.singular, id))
			return
		}
		if c.Request.Method == http.MethodPut {
			r = map[string]any{"id": r["id"]}
		}
		for k, v := range fields {
			if k != "id" {
				r[k] = v
			}
		}
		r["updated_at"] = time.Now().UTC().Format(time.RFC3339)
		col.records[id] = r
		c.JSON(http.StatusOK, gin.H{col.singular: r})
	case c.Request.Method == http.MethodDelete:
		if _, ok := col.records[id]; !ok {
			respondError(c, errors.NotFound(col.singular, id))
			return
		}
		delete(col.records, id)
		c.Status(http.StatusNoContent)
	default:
		c.Status(http.StatusMethodNotAllowed)
	}
}

func respondError(c *gin.Context, err *errors.AppError) {
	c.JSON(err.HTTPStatus, err.ToResponse())
}

// unwrap lifts the singular key out of a request body.
func (c *collection) unwrap(body any) map[string]any {
	m, ok := body.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	if inner, ok := m[c.singular].(map[string]any); ok {
		return copyRecord(inner)
	}
	return copyRecord(m)
}

func (c *collection) insert(r map[string]any) map[string]any {
	id, ok := r["id"]
	if !ok || id == nil {
		c.nextID++
		r["id"] = c.nextID
		id = c.nextID
	} else if n, err := strconv.Atoi(fmt.Sprint(id)); err == nil && n > c.nextID {
		c.nextID = n
	}
	c.records[fmt.Sprint(id)] = r
	return r
}

// list returns records matching every query parameter by string equality,
// ordered by id.
func (c *collection) list(query map[string][]string) []map[string]any {
	out := []map[string]any{}
	for _, r := range c.records {
		if matches(r, query) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return lessID(out[i]["id"], out[j]["id"])
	})
	return out
}

func matches(r map[string]any, query map[string][]string) bool {
	for k, vs := range query {
		v, ok := r[k]
		if !ok || len(vs) == 0 || fmt.Sprint(v) != vs[0] {
			return false
		}
	}
	return true
}

func parseID(id string) any {
	if n, err := strconv.Atoi(id); err == nil {
		return n
	}
	return id
}

func lessID(a, b any) bool {
	x, errA := strconv.Atoi(fmt.Sprint(a))
	y, errB := strconv.Atoi(fmt.Sprint(b))
	if errA == nil && errB == nil {
		return x < y
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}

func copyRecord(r map[string]any) map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
