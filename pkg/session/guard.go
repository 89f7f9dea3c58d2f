package session

import (
	"context"
	"errors"
	"net/http"

	"github.com/shashiranjanraj/krishimitra/pkg/response"
)

// ErrUnauthenticated means the request carries no farmer binding.
var ErrUnauthenticated = errors.New("session: unauthenticated")

const (
	keyFarmerID    = "farmer_id"
	keyFarmerEmail = "farmer_email"
)

// Identity is the farmer a session is bound to.
type Identity struct {
	FarmerID uint   `json:"id"`
	Email    string `json:"email"`
}

// Start binds the session to a farmer after a successful login and returns
// the new token. The token is rotated so a pre-login token cannot be reused.
func Start(s *Session, farmerID uint, email string) string {
	s.Regenerate()
	s.Set(keyFarmerID, farmerID)
	s.Set(keyFarmerEmail, email)
	return s.ID()
}

// End removes the farmer binding. Ending an anonymous session is a no-op
// apart from token rotation.
func End(s *Session) {
	s.Invalidate()
}

// Current returns the identity bound to s.
func Current(s *Session) (Identity, error) {
	id, ok := s.GetUint(keyFarmerID)
	if !ok || id == 0 {
		return Identity{}, ErrUnauthenticated
	}
	email, _ := s.GetString(keyFarmerEmail)
	return Identity{FarmerID: id, Email: email}, nil
}

// Require resolves the identity for r, preferring one already placed in the
// context by RequireFarmer.
func Require(r *http.Request) (Identity, error) {
	if id, ok := IdentityFromCtx(r.Context()); ok {
		return id, nil
	}
	return Current(FromCtx(r))
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFromCtx(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// RequireFarmer guards browser pages: anonymous requests get a flash and a
// 303 to loginPath.
func RequireFarmer(loginPath, message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := FromCtx(r)
			id, err := Current(sess)
			if err != nil {
				sess.AddFlash(FlashError, message)
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireFarmerJSON guards JSON endpoints with a 401 envelope.
func RequireFarmerJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := Current(FromCtx(r))
		if err != nil {
			response.Unauthorized(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}
