// Package ctx gives handlers a single request context instead of the
// (http.ResponseWriter, *http.Request) pair:
//
//	func Dashboard(c *ctx.Context) {
//	    c.Page("dashboard", nil)
//	}
//
//	r.Get("/dashboard", "dashboard", ctx.Wrap(Dashboard), guard)
//
// Browser flows answer with a page descriptor or a 303 plus a flash; JSON
// endpoints answer with plain JSON objects.
package ctx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/shashiranjanraj/krishimitra/pkg/bind"
	"github.com/shashiranjanraj/krishimitra/pkg/logger"
	"github.com/shashiranjanraj/krishimitra/pkg/response"
	"github.com/shashiranjanraj/krishimitra/pkg/session"
	"github.com/shashiranjanraj/krishimitra/pkg/validate"
)

// HandlerFunc is the context-aware handler signature.
type HandlerFunc func(c *Context)

// Wrap adapts a HandlerFunc for the router.
func Wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := acquire(w, r)
		defer release(c)
		h(c)
	}
}

// Context wraps a request/response pair.
type Context struct {
	W http.ResponseWriter
	R *http.Request
}

var pool = sync.Pool{
	New: func() any { return &Context{} },
}

func acquire(w http.ResponseWriter, r *http.Request) *Context {
	c := pool.Get().(*Context)
	c.W, c.R = w, r
	return c
}

func release(c *Context) {
	c.W, c.R = nil, nil
	pool.Put(c)
}

// ─── Request helpers ──────────────────────────────────────────────────────────

// Param returns a URL path parameter.
func (c *Context) Param(key string) string { return chi.URLParam(c.R, key) }

// PostForm returns a url-encoded or multipart form field, untrimmed.
func (c *Context) PostForm(key string) string { return c.R.FormValue(key) }

// FormFile returns the uploaded file under key. http.ErrMissingFile means the
// field was absent; an empty filename means the field was sent blank.
func (c *Context) FormFile(key string) (multipart.File, *multipart.FileHeader, error) {
	if c.R.MultipartForm == nil {
		c.R.Body = http.MaxBytesReader(c.W, c.R.Body, bind.MaxUploadBytes())
	}
	if err := c.R.ParseMultipartForm(bind.MaxUploadBytes()); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil, http.ErrMissingFile
		}
		return nil, nil, err
	}
	return c.R.FormFile(key)
}

// ReadAll reads an uploaded file, capped at the body limit.
func ReadAll(f multipart.File) ([]byte, error) {
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, bind.MaxUploadBytes()))
}

func (c *Context) Context() context.Context { return c.R.Context() }

// Logger returns the request-scoped logger.
func (c *Context) Logger() *slog.Logger { return logger.WithCtx(c.R.Context()) }

// ─── Session ──────────────────────────────────────────────────────────────────

func (c *Context) Session() *session.Session { return session.FromCtx(c.R) }

// Identity returns the signed-in farmer, if any.
func (c *Context) Identity() (session.Identity, bool) {
	id, err := session.Require(c.R)
	return id, err == nil
}

// Flash queues a one-shot message for the next page.
func (c *Context) Flash(category, message string) {
	c.Session().AddFlash(category, message)
}

// ─── Binding ──────────────────────────────────────────────────────────────────

// BindJSON decodes and validates the body. On failure the response is already
// written and false is returned.
func (c *Context) BindJSON(dest any) bool {
	errs, err := bind.JSON(c.R, dest)
	if err != nil {
		c.Error(http.StatusBadRequest, err.Error())
		return false
	}
	if validate.HasErrors(errs) {
		response.ValidationError(c.W, errs)
		return false
	}
	return true
}

// ─── Responses ────────────────────────────────────────────────────────────────

// Page is the descriptor returned for browser pages.
type Page struct {
	Page    string            `json:"page"`
	Farmer  *session.Identity `json:"farmer,omitempty"`
	Flashes []session.Flash   `json:"flashes"`
	Data    any               `json:"data,omitempty"`
}

// Page renders the named page with the signed-in farmer and pops pending
// flashes.
func (c *Context) Page(name string, data any) {
	p := Page{Page: name, Flashes: c.Session().Flashes(), Data: data}
	if id, ok := c.Identity(); ok {
		p.Farmer = &id
	}
	c.JSON(http.StatusOK, p)
}

// JSON writes v with the given status.
func (c *Context) JSON(code int, v any) {
	c.W.Header().Set("Content-Type", "application/json")
	c.W.WriteHeader(code)
	json.NewEncoder(c.W).Encode(v) //nolint:errcheck
}

// Error sends the standard error envelope.
func (c *Context) Error(code int, message string) {
	response.Error(c.W, code, message)
}

func (c *Context) NotFound() {
	response.NotFound(c.W)
}

// Redirect answers 303 See Other.
func (c *Context) Redirect(url string) {
	http.Redirect(c.W, c.R, url, http.StatusSeeOther)
}

// FlashRedirect queues a flash and redirects.
func (c *Context) FlashRedirect(category, message, url string) {
	c.Flash(category, message)
	c.Redirect(url)
}

// Blob writes raw bytes with the given content type.
func (c *Context) Blob(contentType string, b []byte) {
	c.W.Header().Set("Content-Type", contentType)
	c.W.Header().Set("Content-Length", fmt.Sprint(len(b)))
	c.W.WriteHeader(http.StatusOK)
	c.W.Write(b) //nolint:errcheck
}
