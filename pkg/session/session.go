// Package session provides cookie-identified, server-side sessions.
//
// The cookie carries only an opaque random token; the payload lives in a
// Store (memory for tests and single-node runs, redis in production).
//
//	r.Use(session.Middleware(store, session.DefaultOptions()))
//
//	sess := session.FromCtx(r)
//	sess.AddFlash(session.FlashSuccess, "Saved.")
//
// The session is persisted automatically before the first response byte is
// written, so handlers only mutate it.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shashiranjanraj/krishimitra/pkg/logger"
)

// Options configures the session cookie.
type Options struct {
	CookieName string
	TTL        time.Duration
	HTTPOnly   bool
	Secure     bool
	SameSite   http.SameSite
	Path       string
}

func DefaultOptions() Options {
	return Options{
		CookieName: "krishi_session",
		TTL:        2 * time.Hour,
		HTTPOnly:   true,
		SameSite:   http.SameSiteLaxMode,
		Path:       "/",
	}
}

type ctxKey struct{}

// Session is the per-request handle on one client's session.
type Session struct {
	id      string
	prevID  string
	data    map[string]interface{}
	opts    Options
	store   Store
	changed bool
}

func newID() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("session: entropy unavailable: %v", err))
	}
	return hex.EncodeToString(b)
}

// ID returns the session token.
func (s *Session) ID() string { return s.id }

func (s *Session) Set(key string, value interface{}) {
	s.data[key] = value
	s.changed = true
}

func (s *Session) Get(key string) (interface{}, bool) {
	v, ok := s.data[key]
	return v, ok
}

func (s *Session) GetString(key string) (string, bool) {
	v, ok := s.data[key].(string)
	return v, ok
}

// GetUint handles both in-request values and JSON-decoded numbers.
func (s *Session) GetUint(key string) (uint, bool) {
	switch n := s.data[key].(type) {
	case uint:
		return n, true
	case int:
		if n >= 0 {
			return uint(n), true
		}
	case float64:
		if n >= 0 {
			return uint(n), true
		}
	case json.Number:
		if i, err := n.Int64(); err == nil && i >= 0 {
			return uint(i), true
		}
	}
	return 0, false
}

func (s *Session) Delete(key string) {
	if _, ok := s.data[key]; ok {
		delete(s.data, key)
		s.changed = true
	}
}

// Regenerate moves the payload to a fresh token. The old token is deleted
// from the store on the next save.
func (s *Session) Regenerate() {
	if s.prevID == "" {
		s.prevID = s.id
	}
	s.id = newID()
	s.changed = true
}

// Invalidate drops every key and rotates the token.
func (s *Session) Invalidate() {
	s.data = map[string]interface{}{}
	s.Regenerate()
}

// Save persists the session and sets the cookie. It is a no-op when nothing
// changed.
func (s *Session) Save(ctx context.Context, w http.ResponseWriter) error {
	if !s.changed {
		return nil
	}
	if s.prevID != "" {
		if err := s.store.Delete(ctx, s.prevID); err != nil {
			return fmt.Errorf("session: delete rotated token: %w", err)
		}
		s.prevID = ""
	}
	if err := s.store.Save(ctx, s.id, s.data, s.opts.TTL); err != nil {
		return fmt.Errorf("session: save: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.CookieName,
		Value:    s.id,
		Path:     s.opts.Path,
		MaxAge:   int(s.opts.TTL.Seconds()),
		HttpOnly: s.opts.HTTPOnly,
		Secure:   s.opts.Secure,
		SameSite: s.opts.SameSite,
	})
	s.changed = false
	return nil
}

// ── Middleware ───────────────────────────────────────────────────────────────

// Middleware loads the session named by the cookie or starts a new one. A
// token the store does not know is never adopted; a fresh one is issued.
func Middleware(store Store, opts Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := &Session{opts: opts, store: store}

			if cookie, err := r.Cookie(opts.CookieName); err == nil && cookie.Value != "" {
				data, err := store.Load(r.Context(), cookie.Value)
				switch {
				case err == nil:
					sess.id, sess.data = cookie.Value, data
				case !errors.Is(err, ErrNotFound):
					logger.WithCtx(r.Context()).Error("session: load failed", "error", err)
				}
			}
			if sess.id == "" {
				sess.id = newID()
				sess.data = map[string]interface{}{}
			}

			sw := &saveWriter{ResponseWriter: w, sess: sess, ctx: r.Context()}
			next.ServeHTTP(sw, r.WithContext(context.WithValue(r.Context(), ctxKey{}, sess)))
			sw.persist()
		})
	}
}

// FromCtx returns the request's session. Outside the middleware it returns a
// detached session backed by a throwaway memory store.
func FromCtx(r *http.Request) *Session {
	if s, ok := r.Context().Value(ctxKey{}).(*Session); ok {
		return s
	}
	return &Session{id: newID(), data: map[string]interface{}{}, opts: DefaultOptions(), store: NewMemoryStore()}
}

// saveWriter persists the session right before headers go out.
type saveWriter struct {
	http.ResponseWriter
	sess  *Session
	ctx   context.Context
	saved bool
}

func (w *saveWriter) persist() {
	if w.saved {
		return
	}
	w.saved = true
	if err := w.sess.Save(w.ctx, w.ResponseWriter); err != nil {
		logger.WithCtx(w.ctx).Error("session: persist failed", "error", err)
	}
}

func (w *saveWriter) WriteHeader(code int) {
	w.persist()
	w.ResponseWriter.WriteHeader(code)
}

func (w *saveWriter) Write(b []byte) (int, error) {
	w.persist()
	return w.ResponseWriter.Write(b)
}

func (w *saveWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
