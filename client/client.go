// Package client talks to an arbor server over its REST API.
package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/antonholmquist/jason"

	"github.com/ndlib/arbor/resource"
)

// Exported errors
var (
	ErrNotFound       = errors.New("Resource Not Found in Arbor")
	ErrNotAuthorized  = errors.New("Access Denied")
	ErrBadRequest     = errors.New("Bad Request")
	ErrConflict       = errors.New("Resource Already Exists")
	ErrNotImplemented = errors.New("Not Implemented")
	ErrReadOnly       = errors.New("Server is Read Only")
	ErrServerError    = errors.New("Server Error")
)

// A Connection represents a connection with an arbor server.
// It can be shared between multiple goroutines.
type Connection struct {
	// The arbor server this connection is to, e.g. "http://localhost:14100"
	HostURL string

	// Token is sent as the X-Api-Key header if not empty
	Token string

	// HTTPClient is used for requests. If nil a client with a one
	// minute timeout is used.
	HTTPClient *http.Client
}

// The timeout is arbitrary, and is just there so we don't hang
// indefinitely should the server never close the connection.
var defaultClient = &http.Client{Timeout: 1 * time.Minute}

// Get returns the resource at path. Numbers in the properties of returned
// resources are json.Number values.
func (c *Connection) Get(path string) (*resource.Data, error) {
	v, err := c.doJason("GET", "/resource"+path, nil)
	if err != nil {
		return nil, err
	}
	obj, err := v.Object()
	if err != nil {
		return nil, err
	}
	return decodeResource(obj)
}

// Children returns the resources directly below path, ordered by path.
func (c *Connection) Children(path string) ([]*resource.Data, error) {
	v, err := c.doJason("GET", "/children"+path, nil)
	if err != nil {
		return nil, err
	}
	return decodeList(v)
}

// Query runs expression in the given language on the server. A limit of 0
// means no limit.
func (c *Connection) Query(expression, language string, limit int) ([]*resource.Data, error) {
	q := url.Values{}
	q.Set("q", expression)
	q.Set("lang", language)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	v, err := c.doJason("GET", "/query?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return decodeList(v)
}

// An Op is one operation of a batch.
type Op struct {
	Op         string                 `json:"op"` // "create", "update" or "delete"
	Path       string                 `json:"path"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// Create returns an Op creating path.
func Create(path string, props map[string]interface{}) Op {
	return Op{Op: "create", Path: path, Properties: props}
}

// Update returns an Op replacing the properties of path.
func Update(path string, props map[string]interface{}) Op {
	return Op{Op: "update", Path: path, Properties: props}
}

// Delete returns an Op deleting path and everything under it.
func Delete(path string) Op {
	return Op{Op: "delete", Path: path}
}

// A Change is one change made by a batch.
type Change struct {
	Kind string // "added", "updated" or "removed"
	Path string
}

func (ch Change) String() string {
	return ch.Kind + " " + ch.Path
}

// A BatchError describes why a batch failed.
type BatchError struct {
	Err     error  // one of the exported errors
	Message string // as given by the server
	Index   int    // the failed operation, or -1 if there is none
}

func (e *BatchError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("batch: %s", e.Message)
	}
	return fmt.Sprintf("batch operation %d: %s", e.Index, e.Message)
}

func (e *BatchError) Unwrap() error { return e.Err }

// Batch sends ops to the server to be applied and committed together. The
// changes made are returned. They may be non-empty even when there is an
// error, since a commit that fails part way is not undone.
func (c *Connection) Batch(ops []Op) ([]Change, error) {
	body, err := json.Marshal(ops)
	if err != nil {
		return nil, err
	}
	v, err := c.doJason("POST", "/batch", body)
	if v == nil {
		return nil, err
	}
	obj, oerr := v.Object()
	if oerr != nil {
		return nil, oerr
	}
	var changes []Change
	events, _ := obj.GetObjectArray("events")
	for _, e := range events {
		var ch Change
		ch.Kind, _ = e.GetString("kind")
		ch.Path, _ = e.GetString("path")
		changes = append(changes, ch)
	}
	if err == nil {
		return changes, nil
	}
	berr := &BatchError{Err: err, Index: -1}
	berr.Message, _ = obj.GetString("error")
	if idx, ierr := obj.GetInt64("index"); ierr == nil {
		berr.Index = int(idx)
	}
	return changes, berr
}

func decodeResource(obj *jason.Object) (*resource.Data, error) {
	path, err := obj.GetString("path")
	if err != nil {
		return nil, err
	}
	var props map[string]interface{}
	if p, err := obj.GetObject("properties"); err == nil {
		props, _ = p.Interface().(map[string]interface{})
	}
	return resource.NewData(path, props), nil
}

func decodeList(v *jason.Value) ([]*resource.Data, error) {
	list, err := v.ObjectArray()
	if err != nil {
		return nil, err
	}
	var result []*resource.Data
	for _, obj := range list {
		d, err := decodeResource(obj)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, nil
}

// doJason performs a request and parses the JSON response. A response with
// an error status still has its body parsed when it is JSON, so the caller
// can look at the details.
func (c *Connection) doJason(method, path string, body []byte) (*jason.Value, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, c.HostURL+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	err = statusError(resp.StatusCode)
	v, jerr := jason.NewValueFromReader(resp.Body)
	if jerr != nil {
		if err == nil {
			err = jerr
		}
		return nil, err
	}
	return v, err
}

func statusError(status int) error {
	switch status {
	case 200:
		return nil
	case 400:
		return ErrBadRequest
	case 401:
		return ErrNotAuthorized
	case 404:
		return ErrNotFound
	case 409:
		return ErrConflict
	case 501:
		return ErrNotImplemented
	case 503:
		return ErrReadOnly
	case 500:
		return ErrServerError
	}
	return fmt.Errorf("Received status %d from Arbor", status)
}

// do performs an http request, adding our token.
func (c *Connection) do(req *http.Request) (*http.Response, error) {
	if c.Token != "" {
		req.Header.Add("X-Api-Key", c.Token)
	}
	client := c.HTTPClient
	if client == nil {
		client = defaultClient
	}
	return client.Do(req)
}
