package controllers

import (
	"errors"

	"github.com/shashiranjanraj/krishimitra/app/services"
	"github.com/shashiranjanraj/krishimitra/pkg/ctx"
	"github.com/shashiranjanraj/krishimitra/pkg/session"
)

// AuthController handles registration, login and logout.
type AuthController struct {
	auth *services.AuthService
}

func NewAuthController(auth *services.AuthService) *AuthController {
	return &AuthController{auth: auth}
}

func (a *AuthController) RegisterPage(c *ctx.Context) { c.Page("register", nil) }

func (a *AuthController) LoginPage(c *ctx.Context) { c.Page("login", nil) }

// Register creates the account and sends the farmer to the login page.
func (a *AuthController) Register(c *ctx.Context) {
	password := c.PostForm("password")
	if password != c.PostForm("confirm_password") {
		c.FlashRedirect(session.FlashError, services.MsgPasswordsDontMatch, "/register")
		return
	}

	_, err := a.auth.Register(c.Context(), c.PostForm("name"), c.PostForm("email"), password)
	var verr *services.ValidationError
	switch {
	case err == nil:
		c.FlashRedirect(session.FlashSuccess, msgRegistered, "/login")
	case errors.As(err, &verr):
		c.FlashRedirect(session.FlashError, verr.Message, "/register")
	case errors.Is(err, services.ErrDuplicateEmail):
		c.FlashRedirect(session.FlashError, msgEmailTaken, "/register")
	default:
		c.Logger().Error("auth: register failed", "error", err)
		c.FlashRedirect(session.FlashError, msgGeneric, "/register")
	}
}

// Login starts a session for valid credentials.
func (a *AuthController) Login(c *ctx.Context) {
	f, err := a.auth.Authenticate(c.Context(), c.PostForm("email"), c.PostForm("password"))
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		c.FlashRedirect(session.FlashError, msgBadLogin, "/login")
		return
	case err != nil:
		c.Logger().Error("auth: login failed", "error", err)
		c.FlashRedirect(session.FlashError, msgGeneric, "/login")
		return
	}

	session.Start(c.Session(), f.ID, f.Email)
	c.Logger().Info("auth: farmer signed in", "farmer_id", f.ID)
	c.FlashRedirect(session.FlashSuccess, msgLoggedIn, "/dashboard")
}

// Logout ends the session. Logging out twice is harmless.
func (a *AuthController) Logout(c *ctx.Context) {
	session.End(c.Session())
	c.FlashRedirect(session.FlashSuccess, msgLoggedOut, "/")
}
