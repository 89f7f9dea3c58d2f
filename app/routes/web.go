// Package routes declares the HTTP surface.
package routes

import (
	"time"

	"github.com/shashiranjanraj/krishimitra/app/controllers"
	"github.com/shashiranjanraj/krishimitra/app/models"
	"github.com/shashiranjanraj/krishimitra/pkg/ctx"
	"github.com/shashiranjanraj/krishimitra/pkg/middleware"
	"github.com/shashiranjanraj/krishimitra/pkg/router"
	"github.com/shashiranjanraj/krishimitra/pkg/session"
)

const loginPath = "/login"

// Controllers are the handlers the routes dispatch to.
type Controllers struct {
	Auth      *controllers.AuthController
	Dashboard *controllers.DashboardController
	Listings  *controllers.ListingController
	Advisor   *controllers.AdvisorController
	Detection *controllers.DetectionController

	// AuthRateLimit caps login and registration posts per client IP per
	// minute. Zero disables it.
	AuthRateLimit int
	// TrustProxy keys the limit by X-Forwarded-For.
	TrustProxy bool
}

func guard(feature string) router.Middleware {
	return session.RequireFarmer(loginPath, "Please log in to access "+feature+".")
}

// RegisterWeb mounts every browser page, form post and JSON endpoint.
func RegisterWeb(r *router.Router, c Controllers) {
	authLimit := middleware.RateLimit(c.AuthRateLimit, time.Minute, middleware.TrustProxy(c.TrustProxy))

	r.Get("/", "home", ctx.Wrap(controllers.Page("home")))

	r.Get("/register", "register", ctx.Wrap(c.Auth.RegisterPage))
	r.Post("/register", "register.store", ctx.Wrap(c.Auth.Register), authLimit)
	r.Get("/login", "login", ctx.Wrap(c.Auth.LoginPage))
	r.Post("/login", "login.store", ctx.Wrap(c.Auth.Login), authLimit)
	r.Get("/logout", "logout", ctx.Wrap(c.Auth.Logout))

	// Paths the first version of the site used.
	r.Get("/farmer-register", "", ctx.Wrap(c.Auth.RegisterPage))
	r.Post("/farmer-register", "", ctx.Wrap(c.Auth.Register), authLimit)
	r.Get("/farmer-login", "", ctx.Wrap(c.Auth.LoginPage))
	r.Post("/farmer-login", "", ctx.Wrap(c.Auth.Login), authLimit)
	r.Get("/farmer-logout", "", ctx.Wrap(c.Auth.Logout))

	r.Get("/dashboard", "dashboard", ctx.Wrap(c.Dashboard.Show), guard("the dashboard"))
	r.Get("/ask-ai", "ask-ai", ctx.Wrap(controllers.Page("ask-ai")), guard("the chatbot"))
	r.Get("/merchant", "merchant", ctx.Wrap(controllers.Page("merchant")), guard("the merchant place"))
	r.Get("/farmer-merchant", "", ctx.Wrap(controllers.Page("merchant")), guard("the merchant place"))
	r.Get("/organic-guidance", "organic-guidance", ctx.Wrap(controllers.Page("organic-guidance")), guard("organic guidance"))
	r.Get("/yield-optimization", "yield-optimization", ctx.Wrap(controllers.Page("yield-optimization")), guard("yield optimization"))

	forms := r.Group("", guard("the form"))
	forms.Get("/organic-form", "organic-form", ctx.Wrap(controllers.Page("organic-form")))
	forms.Get("/chemical-form", "chemical-form", ctx.Wrap(controllers.Page("chemical-form")))
	forms.Post("/submit-organic-form", "listing.organic", ctx.Wrap(c.Listings.Submit(models.KindOrganic)))
	forms.Post("/submit-chemical-form", "listing.chemical", ctx.Wrap(c.Listings.Submit(models.KindChemical)))

	detection := r.Group("", guard("the disease detection feature"))
	detection.Get("/disease-detection", "disease-detection", ctx.Wrap(c.Detection.Show))
	detection.Post("/disease-detection", "disease-detection.upload", ctx.Wrap(c.Detection.Upload))
	detection.Get("/uploads/{filename}", "uploads.show", ctx.Wrap(c.Detection.Serve))

	api := r.Group("", session.RequireFarmerJSON)
	api.Post("/chat", "chat", ctx.Wrap(c.Advisor.Chat))
	api.Post("/get-organic-guidance", "guide.organic", ctx.Wrap(c.Advisor.OrganicGuidance))
	api.Post("/get-yield-optimization", "guide.yield", ctx.Wrap(c.Advisor.YieldOptimization))
	api.Post("/get-disease-solution", "guide.disease", ctx.Wrap(c.Advisor.DiseaseSolution))
}
