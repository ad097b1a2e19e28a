package web

import (
	"context"
	"html"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"redline/internal/adapters/gateway"
	"redline/internal/adapters/http/middleware"
	"redline/internal/adapters/http/perf"
	"redline/internal/adapters/producer"
	"redline/internal/adapters/producer/static"
	"redline/internal/adapters/storage"
	confirmationStore "redline/internal/adapters/storage/confirmation"
	leadStore "redline/internal/adapters/storage/lead"
	outboxStore "redline/internal/adapters/storage/outbox"
	sessionStore "redline/internal/adapters/storage/session"
	"redline/internal/application/orchestrators"
	"redline/internal/application/sessionstate"
	"redline/internal/domain/payment"
	"redline/internal/domain/report"
)

const (
	testSID   = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	testPrice = 2000
)

var testSecret = []byte("test-secret-test-secret-32-bytes")

// countingConfirmer records every confirmation it is asked for.
type countingConfirmer struct {
	mu    sync.Mutex
	calls []payment.ReturnParams
	err   error
}

func (c *countingConfirmer) Confirm(_ context.Context, p payment.ReturnParams) (payment.Confirmation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, p)
	if c.err != nil {
		return payment.Confirmation{}, c.err
	}
	return payment.Confirmation{OrderID: p.OrderID, Amount: p.Amount}, nil
}

func (c *countingConfirmer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

// multiProducer returns a report long enough to be partly obscured.
type multiProducer struct {
	err error
}

func (p multiProducer) ProduceReport(_ context.Context, in producer.Input) (report.Report, error) {
	if err := in.Validate(); err != nil {
		return report.Report{}, err
	}
	if p.err != nil {
		return report.Report{}, p.err
	}
	return report.Report{
		KeyRisks: []report.KeyRisk{
			{Type: report.RiskVagueClaim, Quote: "Led growth", Analysis: "No numbers.", InterviewerIntent: "Scope"},
			{Type: report.RiskVagueClaim, Quote: "Owned platform", Analysis: "No owner.", InterviewerIntent: "Role"},
		},
		PressureQuestions: []report.PressureQuestion{
			{Question: "What moved?", Goal: "metrics"},
			{Question: "Who else?", Goal: "contribution"},
		},
	}, nil
}

// setupTestApp installs a fully wired app backed by an in-memory database.
func setupTestApp(t *testing.T) *countingConfirmer {
	t.Helper()
	db, err := storage.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.MigrateDB(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	confirmer := &countingConfirmer{}
	state := sessionstate.New(sessionStore.NewSQLiteStore(db), nil)
	app = &Deps{
		State:           state,
		Producer:        multiProducer{},
		Improver:        static.Producer{},
		ProducerTimeout: 5 * time.Second,
		Payment: orchestrators.InitiatePaymentDeps{
			ClientKey: "test_ck",
			Amount:    testPrice,
			OrderName: "REDLINE report",
			Method:    "CARD",
			SDK:       gateway.StaticSDK("window.TossPayments=function(){};"),
			Gateway:   gateway.SandboxGateway{},
		},
		Confirmer: confirmer,
		Confirm: orchestrators.ConfirmPaymentDeps{
			Ledger: confirmationStore.NewSQLiteStore(db),
			API:    gateway.SandboxPaymentsAPI{},
			Price:  testPrice,
		},
		Leads:        leadStore.NewSQLiteStore(db),
		Outbox:       outboxStore.NewSQLiteStore(db),
		LeadNotifyTo: "team@example.com",
		Collector:    perf.NewCollector(100),
	}
	app.Log = zap.NewNop()
	basePath = ""
	return confirmer
}

// withSession attaches the test session to r the way the Session middleware does.
func withSession(r *http.Request) *http.Request {
	return r.WithContext(middleware.WithSessionID(r.Context(), testSID))
}

func seedReport(t *testing.T) {
	t.Helper()
	rep, err := multiProducer{}.ProduceReport(context.Background(), producer.Input{ResumeText: "x"})
	if err != nil {
		t.Fatalf("produce: %v", err)
	}
	if err := app.State.ReplaceReport(context.Background(), testSID, rep); err != nil {
		t.Fatalf("seed report: %v", err)
	}
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return withSession(req)
}

func TestNewMux_HealthAndStatic(t *testing.T) {
	setupTestApp(t)
	keys, err := middleware.DeriveKeys(testSecret)
	if err != nil {
		t.Fatalf("derive keys: %v", err)
	}
	h, err := NewMux(Options{Keys: keys, RateLimit: 100, RateBurst: 100}, app)
	if err != nil {
		t.Fatalf("NewMux: %v", err)
	}

	for _, path := range []string{"/health", "/static/app.css", "/static/app.js", "/static/checkout.js"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestStaticAppJS_WritesThroughOnInput(t *testing.T) {
	setupTestApp(t)
	keys, _ := middleware.DeriveKeys(testSecret)
	h, err := NewMux(Options{Keys: keys, RateLimit: 100, RateBurst: 100}, app)
	if err != nil {
		t.Fatalf("NewMux: %v", err)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/app.js", nil))
	js := rec.Body.String()
	if strings.Contains(js, "setTimeout") {
		t.Error("job description autosave must not wait for a timer")
	}
	for _, want := range []string{"keepalive: true", `"pagehide"`} {
		if !strings.Contains(js, want) {
			t.Errorf("app.js missing %s", want)
		}
	}
}

func TestNewMux_DebugRoutesOnlyOutsideProduction(t *testing.T) {
	setupTestApp(t)
	keys, _ := middleware.DeriveKeys(testSecret)

	for _, tc := range []struct {
		production bool
		want       int
	}{
		{production: false, want: http.StatusOK},
		{production: true, want: http.StatusNotFound},
	} {
		h, err := NewMux(Options{Keys: keys, Production: tc.production, RateLimit: 100, RateBurst: 100}, app)
		if err != nil {
			t.Fatalf("NewMux: %v", err)
		}
		for _, path := range []string{"/debug/perf", "/debug/outbox"} {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			if tc.production {
				req.Header.Set("X-Forwarded-Proto", "https")
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Errorf("production=%v GET %s = %d, want %d", tc.production, path, rec.Code, tc.want)
			}
		}
	}
}

func TestNewMux_MountedUnderBasePath(t *testing.T) {
	setupTestApp(t)
	keys, _ := middleware.DeriveKeys(testSecret)
	h, err := NewMux(Options{Keys: keys, BasePath: "/redline", RateLimit: 100, RateBurst: 100}, app)
	if err != nil {
		t.Fatalf("NewMux: %v", err)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/redline", nil))
	if rec.Code != http.StatusMovedPermanently || rec.Header().Get("Location") != "/redline/" {
		t.Errorf("bare prefix = %d %q, want 301 /redline/", rec.Code, rec.Header().Get("Location"))
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/redline/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /redline/ = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `action="/redline/analyze"`) {
		t.Error("links should carry the base path")
	}
	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			session = c
		}
	}
	if session == nil || session.Path != "/redline" {
		t.Errorf("session cookie: %+v", session)
	}
}

// TestNewMux_AnalyzeThroughCSRF posts the analyze form the way a browser
// does: token from the rendered page, cookies carried over.
func TestNewMux_AnalyzeThroughCSRF(t *testing.T) {
	setupTestApp(t)
	keys, _ := middleware.DeriveKeys(testSecret)
	h, err := NewMux(Options{Keys: keys, RateLimit: 100, RateBurst: 100}, app)
	if err != nil {
		t.Fatalf("NewMux: %v", err)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET / = %d", rec.Code)
	}
	token := extractCSRFToken(t, rec.Body.String())
	cookies := rec.Result().Cookies()

	form := url.Values{"gorilla.csrf.Token": {token}, "resume_text": {"Led growth."}, "job_description": {"Go"}, "language": {"en"}}
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("POST /analyze = %d, body %s", rec.Code, rec.Body.String())
	}

	// Same form without the token is refused.
	req = httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader("resume_text=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("POST without token = %d, want 403", rec.Code)
	}
}

func extractCSRFToken(t *testing.T, body string) string {
	t.Helper()
	const marker = `<meta name="csrf-token" content="`
	i := strings.Index(body, marker)
	if i < 0 {
		t.Fatal("csrf meta tag not rendered")
	}
	rest := body[i+len(marker):]
	j := strings.Index(rest, `"`)
	if j <= 0 {
		t.Fatal("empty csrf token")
	}
	return html.UnescapeString(rest[:j])
}

func TestLoadKeys(t *testing.T) {
	if _, err := LoadKeys("", true, nil); err == nil {
		t.Error("production without a secret should fail")
	}
	a, err := LoadKeys("", false, nil)
	if err != nil {
		t.Fatalf("dev random key: %v", err)
	}
	b, _ := LoadKeys("", false, nil)
	if string(a.CSRF) == string(b.CSRF) {
		t.Error("random dev keys should differ between calls")
	}
	c, _ := LoadKeys(string(testSecret), true, nil)
	d, _ := LoadKeys(string(testSecret), true, nil)
	if string(c.SessionHash) != string(d.SessionHash) {
		t.Error("configured secret should derive stable keys")
	}
}
