package paygate

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
)

// Default allow-lists for free requests. GET requests to these paths and
// JSON-RPC calls declaring these methods pass through without payment.
var (
	DefaultFreePaths = []string{"/", "/health", "/.well-known/x402"}

	DefaultFreeMethods = []string{
		"initialize",
		"notifications/initialized",
		"tools/list",
		"ping",
	}
)

// Classifier decides whether a request is free or requires payment.
// It has no side effects beyond restoring any request body it reads.
type Classifier struct {
	freePaths   map[string]struct{}
	freeMethods map[string]struct{}
}

// ClassifierOption customizes a Classifier.
type ClassifierOption func(*Classifier)

// WithFreePaths adds paths to the GET allow-list.
func WithFreePaths(paths ...string) ClassifierOption {
	return func(c *Classifier) {
		for _, p := range paths {
			c.freePaths[p] = struct{}{}
		}
	}
}

// WithFreeMethods adds JSON-RPC methods to the allow-list.
func WithFreeMethods(methods ...string) ClassifierOption {
	return func(c *Classifier) {
		for _, m := range methods {
			c.freeMethods[m] = struct{}{}
		}
	}
}

// NewClassifier creates a Classifier with the default allow-lists.
func NewClassifier(opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		freePaths:   make(map[string]struct{}),
		freeMethods: make(map[string]struct{}),
	}
	for _, p := range DefaultFreePaths {
		c.freePaths[p] = struct{}{}
	}
	for _, m := range DefaultFreeMethods {
		c.freeMethods[m] = struct{}{}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FreeMethod reports whether a JSON-RPC method is on the allow-list.
func (c *Classifier) FreeMethod(method string) bool {
	_, ok := c.freeMethods[method]
	return ok
}

// FreePath reports whether a path is on the GET allow-list.
func (c *Classifier) FreePath(path string) bool {
	_, ok := c.freePaths[path]
	return ok
}

// Free reports whether the request may proceed without payment.
// GET requests to allow-listed paths are free. POST requests whose JSON-RPC
// body declares an allow-listed method are free. Everything else is paid.
// If the request body is read, it is restored before returning.
func (c *Classifier) Free(r *http.Request) bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		return c.FreePath(r.URL.Path)
	case http.MethodPost:
		method, ok := c.rpcMethod(r)
		if !ok {
			return false
		}
		return c.FreeMethod(method)
	default:
		return false
	}
}

// rpcMethod extracts the "method" field from a JSON-RPC request body,
// restoring the body afterwards so the handler chain can re-read it.
func (c *Classifier) rpcMethod(r *http.Request) (string, bool) {
	if r.Body == nil {
		return "", false
	}
	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		return "", false
	}
	r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

	var rpc struct {
		Method string `json:"method"`
	}
	if err := json.Unmarshal(bodyBytes, &rpc); err != nil || rpc.Method == "" {
		return "", false
	}
	return rpc.Method, true
}
