package kernel_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/krishimitra/app/models"
	_ "github.com/shashiranjanraj/krishimitra/database/migrations"
	"github.com/shashiranjanraj/krishimitra/internal/kernel"
	"github.com/shashiranjanraj/krishimitra/pkg/auth"
	"github.com/shashiranjanraj/krishimitra/pkg/ctx"
	"github.com/shashiranjanraj/krishimitra/pkg/database"
	khttp "github.com/shashiranjanraj/krishimitra/pkg/http"
	"github.com/shashiranjanraj/krishimitra/pkg/logger"
	"github.com/shashiranjanraj/krishimitra/pkg/migration"
	"github.com/shashiranjanraj/krishimitra/pkg/storage"
	"github.com/shashiranjanraj/krishimitra/pkg/testkit"
	"github.com/shashiranjanraj/krishimitra/pkg/vision"
)

const visionURL = "http://vision.test/detect"

type echoCompleter struct{}

func (echoCompleter) Complete(_ context.Context, prompt string) (string, error) {
	return "echo: " + prompt, nil
}

type app struct {
	t      *testing.T
	srv    *httptest.Server
	db     *gorm.DB
	mailer *testkit.MockMailer
	vision *testkit.MockTransport
}

func newApp(t *testing.T, mutate ...func(*kernel.Deps)) *app {
	t.Helper()
	logger.SetOutput(io.Discard)

	db, err := database.Open("sqlite", ":memory:")
	require.NoError(t, err)
	_, err = migration.New(db).Run()
	require.NoError(t, err)

	disk, err := storage.NewLocal(t.TempDir(), "/uploads")
	require.NoError(t, err)

	a := &app{t: t, db: db, mailer: testkit.NewMockMailer()}
	a.vision = testkit.NewMockTransport(testkit.MockStep{
		Method: http.MethodPost, MatchURL: visionURL,
		Body: []byte(`{"detections":[{"label":"leaf_blight","confidence":0.91,"box":[1,2,3,4]}]}`),
	})

	deps := kernel.Deps{
		DB:        db,
		Hasher:    auth.NewHasher(auth.Params{Memory: 1024, Time: 1, Threads: 1, SaltLen: 16, KeyLen: 32}),
		Mailer:    a.mailer,
		Completer: echoCompleter{},
		Detector:  vision.NewHTTPDetector(khttp.NewClient(a.vision), visionURL, ""),
		Disk:      disk,
	}
	for _, m := range mutate {
		m(&deps)
	}

	a.srv = httptest.NewServer(kernel.NewHTTPKernel(deps).Handler())
	t.Cleanup(a.srv.Close)
	return a
}

// browser keeps cookies and stops at redirects so tests can see them.
type browser struct {
	a  *app
	hc *http.Client
}

func (a *app) browser() *browser {
	jar, err := cookiejar.New(nil)
	require.NoError(a.t, err)
	return &browser{a: a, hc: &http.Client{
		Jar:           jar,
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}}
}

func (b *browser) do(req *http.Request) *http.Response {
	b.a.t.Helper()
	resp, err := b.hc.Do(req)
	require.NoError(b.a.t, err)
	b.a.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (b *browser) get(path string) *http.Response {
	req, err := http.NewRequest(http.MethodGet, b.a.srv.URL+path, nil)
	require.NoError(b.a.t, err)
	return b.do(req)
}

func (b *browser) postForm(path string, form url.Values) *http.Response {
	req, err := http.NewRequest(http.MethodPost, b.a.srv.URL+path, strings.NewReader(form.Encode()))
	require.NoError(b.a.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) postJSON(path, body string) *http.Response {
	req, err := http.NewRequest(http.MethodPost, b.a.srv.URL+path, strings.NewReader(body))
	require.NoError(b.a.t, err)
	req.Header.Set("Content-Type", "application/json")
	return b.do(req)
}

func (b *browser) page(path string) ctx.Page {
	b.a.t.Helper()
	resp := b.get(path)
	require.Equal(b.a.t, http.StatusOK, resp.StatusCode, path)
	var p ctx.Page
	require.NoError(b.a.t, json.NewDecoder(resp.Body).Decode(&p))
	return p
}

func (b *browser) signUpAndIn(name, email, password string) {
	b.a.t.Helper()
	resp := b.postForm("/register", url.Values{
		"name": {name}, "email": {email}, "password": {password}, "confirm_password": {password},
	})
	require.Equal(b.a.t, http.StatusSeeOther, resp.StatusCode)
	resp = b.postForm("/login", url.Values{"email": {email}, "password": {password}})
	require.Equal(b.a.t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(b.a.t, "/dashboard", resp.Header.Get("Location"))
}

func assertRedirect(t *testing.T, resp *http.Response, location string) {
	t.Helper()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, location, resp.Header.Get("Location"))
}

func messages(p ctx.Page) []string {
	out := make([]string, 0, len(p.Flashes))
	for _, f := range p.Flashes {
		out = append(out, f.Message)
	}
	return out
}

func listingForm() url.Values {
	return url.Values{
		"farmer_name": {"Asha"}, "farmer_email": {"asha@x.com"}, "product_name": {"Rice"},
		"address": {"Village Road"}, "contact_number": {"9876543210"}, "market_price": {"40"},
		"quantity": {"50kg"}, "quality": {"A"}, "expected_price": {"45"},
		"merchant_email": {"m@y.com"}, "message": {""},
	}
}

func (a *app) listings() []models.Listing {
	var out []models.Listing
	require.NoError(a.t, a.db.Find(&out).Error)
	return out
}

// ─── Scenario ────────────────────────────────────────────────────────────────

func TestAshaRegistersLogsInAndListsRice(t *testing.T) {
	a := newApp(t)
	b := a.browser()

	resp := b.postForm("/register", url.Values{
		"name": {"Asha"}, "email": {"asha@x.com"}, "password": {"pw123"}, "confirm_password": {"pw123"},
	})
	assertRedirect(t, resp, "/login")
	assert.Equal(t, []string{"Registration successful! Please log in."}, messages(b.page("/login")))

	resp = b.postForm("/login", url.Values{"email": {"asha@x.com"}, "password": {"pw123"}})
	assertRedirect(t, resp, "/dashboard")

	dash := b.page("/dashboard")
	assert.Equal(t, "dashboard", dash.Page)
	require.NotNil(t, dash.Farmer)
	assert.Equal(t, "asha@x.com", dash.Farmer.Email)
	assert.Equal(t, []string{"Login successful!"}, messages(dash))

	resp = b.postForm("/submit-organic-form", listingForm())
	assertRedirect(t, resp, "/dashboard")
	after := b.page("/dashboard")
	assert.Equal(t, []string{"Your application has been submitted successfully!"}, messages(after))
	assert.Equal(t, map[string]any{"name": "Asha", "listings": float64(1)}, after.Data)

	rows := a.listings()
	require.Len(t, rows, 1)
	assert.Equal(t, models.KindOrganic, rows[0].Kind)
	assert.Equal(t, dash.Farmer.FarmerID, rows[0].FarmerID)
	assert.NotNil(t, rows[0].NotifiedAt)

	sent := a.mailer.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Subject, "Organic")
	assert.Equal(t, []string{"m@y.com"}, sent[0].To)
	assert.Contains(t, sent[0].Body, "Contact Number: 9876543210")
}

// ─── Auth ────────────────────────────────────────────────────────────────────

func TestRegistrationFailures(t *testing.T) {
	a := newApp(t)
	b := a.browser()

	resp := b.postForm("/register", url.Values{
		"name": {"Asha"}, "email": {"asha@x.com"}, "password": {"pw123"}, "confirm_password": {"pw124"},
	})
	assertRedirect(t, resp, "/register")
	assert.Equal(t, []string{"Passwords do not match!"}, messages(b.page("/register")))

	b.signUpAndIn("Asha", "asha@x.com", "pw123")

	other := a.browser()
	resp = other.postForm("/farmer-register", url.Values{
		"name": {"Imposter"}, "email": {"asha@x.com"}, "password": {"x"}, "confirm_password": {"x"},
	})
	assertRedirect(t, resp, "/register")
	assert.Equal(t, []string{"Email already registered!"}, messages(other.page("/register")))

	resp = other.postForm("/login", url.Values{"email": {"asha@x.com"}, "password": {"pw123"}})
	assertRedirect(t, resp, "/dashboard")
}

func TestLoginFailuresLookTheSame(t *testing.T) {
	a := newApp(t)
	a.browser().signUpAndIn("Asha", "asha@x.com", "pw123")

	for _, creds := range []url.Values{
		{"email": {"asha@x.com"}, "password": {"wrong"}},
		{"email": {"nobody@x.com"}, "password": {"pw123"}},
	} {
		b := a.browser()
		resp := b.postForm("/login", creds)
		assertRedirect(t, resp, "/login")
		assert.Equal(t, []string{"Invalid email or password!"}, messages(b.page("/login")))
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	a := newApp(t)
	b := a.browser()
	b.signUpAndIn("Asha", "asha@x.com", "pw123")

	assertRedirect(t, b.get("/logout"), "/")
	assertRedirect(t, b.get("/farmer-logout"), "/")

	home := b.page("/")
	assert.Nil(t, home.Farmer)
	assert.Equal(t, []string{"You have been logged out."}, messages(home))
	assertRedirect(t, b.get("/dashboard"), "/login")
}

func TestProtectedPagesRedirectToLogin(t *testing.T) {
	a := newApp(t)

	cases := map[string]string{
		"/dashboard":          "Please log in to access the dashboard.",
		"/ask-ai":             "Please log in to access the chatbot.",
		"/merchant":           "Please log in to access the merchant place.",
		"/organic-form":       "Please log in to access the form.",
		"/disease-detection":  "Please log in to access the disease detection feature.",
		"/yield-optimization": "Please log in to access yield optimization.",
	}
	for path, flash := range cases {
		b := a.browser()
		assertRedirect(t, b.get(path), "/login")
		assert.Equal(t, []string{flash}, messages(b.page("/login")), path)
	}

	b := a.browser()
	assertRedirect(t, b.postForm("/submit-chemical-form", listingForm()), "/login")
	assert.Empty(t, a.listings())
}

func TestAuthRateLimit(t *testing.T) {
	a := newApp(t, func(d *kernel.Deps) { d.AuthRateLimit = 2 })
	b := a.browser()
	creds := url.Values{"email": {"nobody@x.com"}, "password": {"x"}}

	assert.Equal(t, http.StatusSeeOther, b.postForm("/login", creds).StatusCode)
	assert.Equal(t, http.StatusSeeOther, b.postForm("/farmer-login", creds).StatusCode)
	resp := b.postForm("/login", creds)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

// ─── Listings ────────────────────────────────────────────────────────────────

func TestListingValidationReturnsToForm(t *testing.T) {
	a := newApp(t)
	b := a.browser()
	b.signUpAndIn("Asha", "asha@x.com", "pw123")
	b.page("/dashboard")

	form := listingForm()
	form.Set("contact_number", "12345")
	assertRedirect(t, b.postForm("/submit-chemical-form", form), "/chemical-form")
	assert.Equal(t, []string{"Invalid phone number. Please enter a 10-digit number."}, messages(b.page("/chemical-form")))

	form = listingForm()
	form.Del("product_name")
	assertRedirect(t, b.postForm("/submit-organic-form", form), "/organic-form")
	assert.Equal(t, []string{"Please fill out all required fields."}, messages(b.page("/organic-form")))

	assert.Empty(t, a.listings())
	assert.Empty(t, a.mailer.Sent())
}

func TestNotifyFailureKeepsListingAndWarns(t *testing.T) {
	a := newApp(t)
	a.mailer.FailWith(errors.New("relay down"))
	b := a.browser()
	b.signUpAndIn("Asha", "asha@x.com", "pw123")
	b.page("/dashboard")

	assertRedirect(t, b.postForm("/submit-chemical-form", listingForm()), "/dashboard")

	dash := b.page("/dashboard")
	require.Len(t, dash.Flashes, 1)
	assert.Equal(t, "warning", dash.Flashes[0].Category)
	assert.Equal(t, "Your listing was saved, but the merchant could not be notified. Please contact them directly.", dash.Flashes[0].Message)

	rows := a.listings()
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].NotifiedAt)
	assert.Equal(t, 1, a.mailer.WasCalled())
}

// ─── Advisor ─────────────────────────────────────────────────────────────────

func TestAdvisorEndpoints(t *testing.T) {
	a := newApp(t)

	anon := a.browser()
	resp := anon.postJSON("/chat", `{"message":"hi"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	b := a.browser()
	b.signUpAndIn("Asha", "asha@x.com", "pw123")

	decode := func(resp *http.Response) map[string]string {
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var out map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return out
	}

	assert.Equal(t, "echo: hi", decode(b.postJSON("/chat", `{"message":"hi"}`))["response"])
	assert.Contains(t, decode(b.postJSON("/get-organic-guidance", `{"crop":"rice"}`))["guide"], "organic cultivation of rice")
	assert.Contains(t, decode(b.postJSON("/get-yield-optimization", `{}`))["guide"], "yield of unknown crop")
	assert.Contains(t, decode(b.postJSON("/get-disease-solution", `{"disease":"rust"}`))["solution"], "treating rust in crops")

	assert.Equal(t, http.StatusBadRequest, b.postJSON("/chat", `{not json`).StatusCode)

	resp = b.postJSON("/get-organic-guidance", `{"crop":"`+strings.Repeat("r", 101)+`"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	testkit.AssertJSONSubset(t, `{"errors":{"crop":"The crop must not exceed 100 characters."}}`, body)
}

func TestAdvisorWithoutCompleterFallsBack(t *testing.T) {
	a := newApp(t, func(d *kernel.Deps) { d.Completer = nil })
	b := a.browser()
	b.signUpAndIn("Asha", "asha@x.com", "pw123")

	resp := b.postJSON("/chat", `{"message":"hi"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "Sorry, something went wrong. Please try again.", out["response"])
}

// ─── Detection ───────────────────────────────────────────────────────────────

func (b *browser) upload(field, filename string, content []byte) *http.Response {
	b.a.t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if field != "" {
		fw, err := w.CreateFormFile(field, filename)
		require.NoError(b.a.t, err)
		_, err = fw.Write(content)
		require.NoError(b.a.t, err)
	}
	require.NoError(b.a.t, w.Close())

	req, err := http.NewRequest(http.MethodPost, b.a.srv.URL+"/disease-detection", &body)
	require.NoError(b.a.t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return b.do(req)
}

func leafPNG(t *testing.T) []byte {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))))
	return buf.Bytes()
}

func TestDiseaseDetectionUploadAndServe(t *testing.T) {
	a := newApp(t)
	b := a.browser()
	b.signUpAndIn("Asha", "asha@x.com", "pw123")
	img := leafPNG(t)

	resp := b.upload("file", "leaf.png", img)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var p struct {
		Page string `json:"page"`
		Data struct {
			Image       string             `json:"image"`
			URL         string             `json:"url"`
			Predictions []vision.Detection `json:"predictions"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	assert.Equal(t, "disease-detection", p.Page)
	require.Len(t, p.Data.Predictions, 1)
	assert.Equal(t, "leaf_blight", p.Data.Predictions[0].Label)
	assert.InDelta(t, 0.91, p.Data.Predictions[0].Confidence, 1e-9)
	testkit.AssertMocksAllCalled(t, a.vision)

	got := b.get(p.Data.URL)
	require.Equal(t, http.StatusOK, got.StatusCode)
	assert.Equal(t, "image/png", got.Header.Get("Content-Type"))
	served, err := io.ReadAll(got.Body)
	require.NoError(t, err)
	assert.Equal(t, img, served)

	stranger := a.browser()
	stranger.signUpAndIn("Ravi", "ravi@x.com", "pw456")
	assert.Equal(t, http.StatusNotFound, stranger.get(p.Data.URL).StatusCode)
}

func TestDiseaseDetectionUploadErrors(t *testing.T) {
	a := newApp(t)
	b := a.browser()
	b.signUpAndIn("Asha", "asha@x.com", "pw123")
	b.page("/dashboard")

	assertRedirect(t, b.upload("", "", nil), "/disease-detection")
	assert.Equal(t, []string{"No file uploaded!"}, messages(b.page("/disease-detection")))

	assertRedirect(t, b.upload("file", "", []byte("x")), "/disease-detection")
	assert.Equal(t, []string{"No file selected!"}, messages(b.page("/disease-detection")))

	assertRedirect(t, b.upload("file", "leaf.png", []byte("not an image")), "/disease-detection")
	assert.Equal(t, []string{"Error processing the image. Please try again."}, messages(b.page("/disease-detection")))
	assert.Empty(t, a.vision.Requests())
}

// ─── Ops ─────────────────────────────────────────────────────────────────────

func TestHealthAndMetrics(t *testing.T) {
	a := newApp(t)
	b := a.browser()

	resp := b.get("/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	b.get("/")
	resp = b.get("/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `krishi_http_requests_total`)
	assert.Contains(t, string(body), `route="/"`)

	assert.Equal(t, http.StatusNotFound, b.get("/nope").StatusCode)
}

func TestRoutesListIncludesAliases(t *testing.T) {
	k := kernel.NewHTTPKernel(kernel.Deps{})
	paths := map[string]bool{}
	for _, r := range k.Routes() {
		paths[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /", "POST /register", "POST /login", "GET /logout", "GET /farmer-login",
		"GET /farmer-merchant", "POST /submit-organic-form", "POST /chat",
		"GET /uploads/{filename}", "GET /metrics", "GET /healthz",
	} {
		assert.True(t, paths[want], want)
	}
}
