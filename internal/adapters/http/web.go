package web

import (
	"crypto/rand"
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"go.uber.org/zap"

	"redline/internal/adapters/analytics"
	"redline/internal/adapters/gateway"
	"redline/internal/adapters/http/middleware"
	"redline/internal/adapters/http/perf"
	"redline/internal/adapters/producer"
	leadStore "redline/internal/adapters/storage/lead"
	outboxStore "redline/internal/adapters/storage/outbox"
	"redline/internal/application/orchestrators"
	"redline/internal/application/sessionstate"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Deps holds every collaborator the handlers use.
type Deps struct {
	State *sessionstate.State

	Producer        producer.ReportProducer
	Improver        producer.QuestionImprover
	ProducerTimeout time.Duration

	// Payment drives the checkout handoff.
	Payment orchestrators.InitiatePaymentDeps
	// Confirmer verifies returned payments for the reconciler.
	Confirmer gateway.Confirmer
	// Confirm backs the hosted confirmation endpoint.
	Confirm orchestrators.ConfirmPaymentDeps

	Leads        leadStore.Store
	Outbox       outboxStore.Store
	LeadNotifyTo string

	Tracker   *analytics.Tracker
	Collector *perf.Collector
	Log       *zap.Logger
}

// Options configures the HTTP surface itself.
type Options struct {
	// StaticDir overrides the embedded assets when set.
	StaticDir string
	// BasePath is the sub-path the app is mounted under, "" for the root.
	BasePath       string
	Production     bool
	TrustedOrigins []string
	RateLimit      float64
	RateBurst      int
	Keys           middleware.Keys
}

// Global dependencies (set by NewMux)
var app *Deps

// basePath prefixes every link and redirect the app emits.
var basePath string

// timeNow is a variable for testability.
var timeNow = time.Now

// LoadKeys derives the CSRF and session-hash keys from the configured
// secret. Outside production a missing secret is replaced by a random one,
// which ends every session on restart.
func LoadKeys(secret string, production bool, log *zap.Logger) (middleware.Keys, error) {
	if secret != "" {
		return middleware.DeriveKeys([]byte(secret))
	}
	if production {
		return middleware.Keys{}, errors.New("session.secret is required in production")
	}
	master := make([]byte, middleware.KeySize)
	if _, err := rand.Read(master); err != nil {
		return middleware.Keys{}, err
	}
	if log != nil {
		log.Warn("random_session_secret", zap.String("hint", "set REDLINE_SESSION_SECRET so sessions survive restarts"))
	}
	return middleware.DeriveKeys(master)
}

// NewMux wires HTTP handlers for the app.
func NewMux(opts Options, d *Deps) (http.Handler, error) {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	app = d
	basePath = opts.BasePath

	static, err := staticHandler(opts.StaticDir)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("GET /static/", static)
	registerRoutes(mux, !opts.Production)

	cookiePath := opts.BasePath
	if cookiePath == "" {
		cookiePath = "/"
	}
	sessions := middleware.NewBrowserSessions(opts.Keys.SessionHash, opts.Production, cookiePath, d.Log)
	limiter := middleware.NewRateLimiter(opts.RateLimit, opts.RateBurst, d.Log)

	h := middleware.Chain(mux,
		middleware.Session(sessions),
		middleware.CSRF(opts.Keys.CSRF, opts.Production, opts.TrustedOrigins),
		middleware.SecurityHeaders,
		middleware.RateLimit(limiter),
		middleware.Timing(d.Log.Named("http"), d.Collector),
	)
	if opts.BasePath != "" {
		return mountAt(opts.BasePath, h), nil
	}
	return h, nil
}

// mountAt serves h under prefix and sends the bare prefix to prefix + "/".
func mountAt(prefix string, h http.Handler) http.Handler {
	stripped := http.StripPrefix(prefix, h)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == prefix {
			http.Redirect(w, r, prefix+"/", http.StatusMovedPermanently)
			return
		}
		stripped.ServeHTTP(w, r)
	})
}

func staticHandler(dir string) (http.Handler, error) {
	if dir != "" {
		return http.StripPrefix("/static/", http.FileServer(http.Dir(dir))), nil
	}
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, err
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub))), nil
}

func registerRoutes(mux *http.ServeMux, dev bool) {
	mux.HandleFunc("GET /{$}", handleIndex)
	mux.HandleFunc("POST /analyze", handleAnalyze)
	mux.HandleFunc("POST /lang", handleLang)
	mux.HandleFunc("POST /view", handleView)
	mux.HandleFunc("POST /improve", handleImprove)
	mux.HandleFunc("POST /lead", handleLead)

	mux.HandleFunc("POST /payment/checkout", handleCheckout)
	mux.HandleFunc("GET /payment/success", handlePaymentSuccess)
	mux.HandleFunc("GET /payment/fail", handlePaymentFail)
	mux.HandleFunc("POST /payment/abort", handlePaymentAbort)
	mux.HandleFunc("GET /payment/sdk.js", handleSDK)

	mux.HandleFunc("POST /api/analyze-resume", handleAPIAnalyze)
	mux.HandleFunc("POST /api/improve-question", handleAPIImprove)
	mux.HandleFunc("POST /api/payment/confirm", handleAPIConfirm)
	mux.HandleFunc("POST /api/fakedoor/lead", handleAPILead)
	mux.HandleFunc("GET /health", handleHealth)

	if dev {
		mux.HandleFunc("GET /debug/perf", handlePerf)
		mux.HandleFunc("GET /debug/outbox", handleDebugOutbox)
	}
}
