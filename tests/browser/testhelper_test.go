//go:build browser

package browser_test

import (
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"

	"redline/internal/adapters/analytics"
	"redline/internal/adapters/gateway"
	web "redline/internal/adapters/http"
	"redline/internal/adapters/producer/static"
	"redline/internal/adapters/storage"
	confirmationStore "redline/internal/adapters/storage/confirmation"
	leadStore "redline/internal/adapters/storage/lead"
	outboxStore "redline/internal/adapters/storage/outbox"
	sessionStore "redline/internal/adapters/storage/session"
	"redline/internal/application/orchestrators"
	"redline/internal/application/sessionstate"
)

const testPrice = 2000

// testApp holds the running test server and Playwright handles.
type testApp struct {
	BaseURL string
	DB      *sql.DB
	Server  *http.Server
	PW      *playwright.Playwright
	Browser playwright.Browser
	Deps    *web.Deps
}

// newTestApp starts the app on a free port with a temp SQLite DB, the
// placeholder producer and the sandbox gateway.
func newTestApp(t *testing.T) *testApp {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := storage.OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("failed to open test DB: %v", err)
	}
	if err := storage.MigrateDB(db); err != nil {
		t.Fatalf("failed to migrate test DB: %v", err)
	}

	state := sessionstate.New(sessionStore.NewSQLiteStore(db), nil)
	confirm := orchestrators.ConfirmPaymentDeps{
		Ledger: confirmationStore.NewSQLiteStore(db),
		API:    gateway.SandboxPaymentsAPI{},
		Price:  testPrice,
	}
	deps := &web.Deps{
		State:           state,
		Producer:        static.Producer{},
		Improver:        static.Producer{},
		ProducerTimeout: 10 * time.Second,
		Payment: orchestrators.InitiatePaymentDeps{
			ClientKey: "test_ck_sandbox",
			Amount:    testPrice,
			OrderName: "REDLINE full report",
			Method:    "CARD",
			SDK:       gateway.StaticSDK("window.TossPayments=function(){};"),
			Gateway:   gateway.SandboxGateway{},
		},
		Confirmer:    orchestrators.LocalConfirmer{Deps: confirm},
		Confirm:      confirm,
		Leads:        leadStore.NewSQLiteStore(db),
		Outbox:       outboxStore.NewSQLiteStore(db),
		LeadNotifyTo: "team@test.com",
		Tracker:      analytics.New(nil),
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	keys, err := web.LoadKeys("browser-test-secret-0123456789", false, nil)
	if err != nil {
		t.Fatalf("failed to derive keys: %v", err)
	}
	mux, err := web.NewMux(web.Options{
		Keys:           keys,
		RateLimit:      50,
		RateBurst:      100,
		TrustedOrigins: []string{fmt.Sprintf("127.0.0.1:%d", port), fmt.Sprintf("localhost:%d", port)},
	}, deps)
	if err != nil {
		t.Fatalf("failed to build mux: %v", err)
	}
	srv := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", port),
		Handler: mux,
	}
	go func() {
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("test server error: %v", err)
		}
	}()

	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	for i := 0; i < 50; i++ {
		resp, err := http.Get(baseURL + "/health")
		if err == nil {
			resp.Body.Close()
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	pw, err := playwright.Run()
	if err != nil {
		srv.Close()
		db.Close()
		t.Skipf("playwright driver not installed: %v", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		pw.Stop()
		srv.Close()
		db.Close()
		t.Skipf("chromium not available: %v", err)
	}

	app := &testApp{
		BaseURL: baseURL,
		DB:      db,
		Server:  srv,
		PW:      pw,
		Browser: browser,
		Deps:    deps,
	}
	t.Cleanup(func() {
		browser.Close()
		pw.Stop()
		srv.Close()
		db.Close()
	})
	return app
}

// newPage creates a new browser page (tab) in its own context, so each
// page is a fresh browser session.
func (a *testApp) newPage(t *testing.T) playwright.Page {
	t.Helper()
	bctx, err := a.Browser.NewContext()
	if err != nil {
		t.Fatalf("failed to create browser context: %v", err)
	}
	t.Cleanup(func() { bctx.Close() })
	page, err := bctx.NewPage()
	if err != nil {
		t.Fatalf("failed to create page: %v", err)
	}
	return page
}

// analyze fills the job description and resume text and submits the
// analysis form.
func (a *testApp) analyze(t *testing.T, page playwright.Page, resume string) {
	t.Helper()
	if _, err := page.Goto(a.BaseURL + "/"); err != nil {
		t.Fatalf("failed to navigate to surface: %v", err)
	}
	if err := page.Locator("#job_description").Fill("Backend engineer, payments team"); err != nil {
		t.Fatalf("failed to fill job description: %v", err)
	}
	if err := page.Locator("#resume_text").Fill(resume); err != nil {
		t.Fatalf("failed to fill resume: %v", err)
	}
	if err := page.Locator(".inputs button[type=submit]").Click(); err != nil {
		t.Fatalf("failed to submit analysis: %v", err)
	}
	if err := page.Locator(".items.risks").WaitFor(playwright.LocatorWaitForOptions{
		Timeout: playwright.Float(10000),
	}); err != nil {
		t.Fatalf("report not rendered: %v", err)
	}
}

func waitVisible(t *testing.T, loc playwright.Locator, what string) {
	t.Helper()
	if err := loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(5000),
	}); err != nil {
		t.Fatalf("%s not visible: %v", what, err)
	}
}
