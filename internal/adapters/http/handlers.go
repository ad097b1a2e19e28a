package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
	"go.uber.org/zap"

	"redline/internal/adapters/http/middleware"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 64 << 10

var errNoSession = errors.New("request has no browser session")

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in markdown input is escaped (WithUnsafe is NOT set), preventing XSS.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	app.Log.Error("internal_error", zap.Error(err))
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		app.Log.Warn("json_encode_failed", zap.Error(err))
	}
}

// writeDetail sends the {"detail": "..."} error shape of the backend endpoints.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// sessionID returns the hashed browser session id, or writes an error.
func sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	sid, ok := middleware.SessionIDFromContext(r.Context())
	if !ok {
		internalError(w, errNoSession)
		return "", false
	}
	return sid, true
}

// appPath prefixes p with the mount point.
func appPath(p string) string {
	return basePath + p
}

// redirect sends a 303 to an in-app path.
func redirect(w http.ResponseWriter, r *http.Request, p string, q url.Values) {
	target := appPath(p)
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// requestOrigin is the scheme and host the browser used to reach us.
func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func renderTemplate(w http.ResponseWriter, r *http.Request, status int, templateName string, data any) {
	funcMap := template.FuncMap{
		"csrfToken":      func() string { return csrf.Token(r) },
		"csrfField":      func() template.HTML { return csrf.TemplateField(r) },
		"path":           appPath,
		"renderMarkdown": renderMarkdown,
		"add":            func(a, b int) int { return a + b },
	}

	tpl, err := template.New("layout.html").Funcs(funcMap).ParseFS(templateFS,
		"templates/layout.html",
		"templates/"+templateName,
	)
	if err != nil {
		internalError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		internalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
