// Package kernel assembles the HTTP handler: global middleware, the
// application routes, and the controllers and services behind them.
//
// Every long-lived handle arrives through Deps, so tests can build a full
// kernel over an in-memory database and test doubles.
package kernel

import (
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/krishimitra/app/controllers"
	"github.com/shashiranjanraj/krishimitra/app/notifications"
	"github.com/shashiranjanraj/krishimitra/app/repositories"
	"github.com/shashiranjanraj/krishimitra/app/routes"
	"github.com/shashiranjanraj/krishimitra/app/services"
	"github.com/shashiranjanraj/krishimitra/pkg/ai"
	"github.com/shashiranjanraj/krishimitra/pkg/auth"
	"github.com/shashiranjanraj/krishimitra/pkg/ctx"
	khttp "github.com/shashiranjanraj/krishimitra/pkg/http"
	"github.com/shashiranjanraj/krishimitra/pkg/mail"
	"github.com/shashiranjanraj/krishimitra/pkg/metrics"
	"github.com/shashiranjanraj/krishimitra/pkg/middleware"
	"github.com/shashiranjanraj/krishimitra/pkg/notification"
	"github.com/shashiranjanraj/krishimitra/pkg/reqid"
	"github.com/shashiranjanraj/krishimitra/pkg/response"
	"github.com/shashiranjanraj/krishimitra/pkg/router"
	"github.com/shashiranjanraj/krishimitra/pkg/session"
	"github.com/shashiranjanraj/krishimitra/pkg/storage"
	"github.com/shashiranjanraj/krishimitra/pkg/vision"
)

// Deps are the handles the kernel wires together.
type Deps struct {
	DB             *gorm.DB
	Sessions       session.Store
	SessionOptions session.Options
	Hasher         *auth.Hasher

	Mailer     mail.Sender
	WebhookURL string
	// HTTP is used for webhooks; nil means khttp.Default.
	HTTP *khttp.Client

	Completer     ai.Completer
	AITimeout     time.Duration
	Detector      vision.Detector
	VisionTimeout time.Duration
	Disk          storage.Disk

	AuthRateLimit int
	TrustProxy    bool
}

// HTTPKernel owns the router.
type HTTPKernel struct {
	router *router.Router
}

// NewHTTPKernel builds the handler. Missing optional pieces degrade rather
// than fail at boot: with no Completer the AI endpoints always answer with
// the fallback text.
func NewHTTPKernel(d Deps) *HTTPKernel {
	if d.Hasher == nil {
		d.Hasher = auth.NewHasher(auth.DefaultParams)
	}
	if d.Completer == nil {
		d.Completer = ai.Unconfigured{}
	}
	if d.Detector == nil {
		d.Detector = vision.NewHTTPDetector(nil, "", "")
	}
	if d.Sessions == nil {
		d.Sessions = session.NewMemoryStore()
	}
	if d.SessionOptions.CookieName == "" {
		d.SessionOptions = session.DefaultOptions()
	}

	var notifyOpts []notification.Option
	if d.WebhookURL != "" {
		notifyOpts = append(notifyOpts, notification.WithWebhook(d.WebhookURL, d.HTTP))
	}
	notifier := notifications.NewNotifier(notification.NewDispatcher(d.Mailer, notifyOpts...))

	farmers := repositories.NewFarmerRepository(d.DB)
	listings := repositories.NewListingRepository(d.DB)

	authSvc := services.NewAuthService(farmers, d.Hasher)
	listingSvc := services.NewListingService(listings, notifier)
	advisorSvc := services.NewAdvisorService(ai.New(d.Completer, d.AITimeout))
	detectionSvc := services.NewDetectionService(d.Disk, vision.New(d.Detector, d.VisionTimeout))

	r := router.New()

	// Outermost first: metrics sees total latency, recovery guards the rest,
	// the request id exists before anything logs, and the farmer tag needs
	// the session.
	r.Use(metrics.Middleware())
	r.Use(middleware.Recovery)
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)
	r.Use(session.Middleware(d.Sessions, d.SessionOptions))
	r.Use(middleware.TagFarmer)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) { response.NotFound(w) })
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Handle("/metrics", "metrics", metrics.Handler())
	r.Get("/healthz", "healthz", ctx.Wrap(controllers.Health(d.DB)))

	routes.RegisterWeb(r, routes.Controllers{
		Auth:          controllers.NewAuthController(authSvc),
		Dashboard:     controllers.NewDashboardController(farmers, listings),
		Listings:      controllers.NewListingController(listingSvc),
		Advisor:       controllers.NewAdvisorController(advisorSvc),
		Detection:     controllers.NewDetectionController(detectionSvc),
		AuthRateLimit: d.AuthRateLimit,
		TrustProxy:    d.TrustProxy,
	})

	return &HTTPKernel{router: r}
}

func (k *HTTPKernel) Handler() http.Handler { return k.router.Handler() }

// Routes lists every mounted route for route:list.
func (k *HTTPKernel) Routes() []router.RouteInfo { return k.router.Routes() }
