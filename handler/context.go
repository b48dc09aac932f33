package handler

import (
	"context"
	"net/http"
)

// Context provides access to request data and the response writer.
// It embeds context.Context so handlers can pass it straight to blocking calls.
type Context interface {
	context.Context

	Request() *http.Request
	ResponseWriter() http.ResponseWriter
}

type httpContext struct {
	context.Context
	w http.ResponseWriter
	r *http.Request
}

// NewContext creates a Context bound to the request's context.
func NewContext(w http.ResponseWriter, r *http.Request) Context {
	return &httpContext{
		Context: r.Context(),
		w:       w,
		r:       r,
	}
}

func (c *httpContext) Request() *http.Request { return c.r }

func (c *httpContext) ResponseWriter() http.ResponseWriter { return c.w }
