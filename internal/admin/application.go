package admin

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/sessions"
	"github.com/hashicorp/go-hclog"
	"github.com/klauspost/compress/gzhttp"
)

// Application matches requests against its route list (first match wins),
// builds a handler per request and dispatches on the HTTP verb.
type Application struct {
	settings  Settings
	routes    []compiledRoute
	templates *templateSet
	static    *staticFiles
	sessions  *sessions.CookieStore
	log       hclog.Logger
	handler   http.Handler
}

func NewApplication(routes []Route, settings Settings, log hclog.Logger) (*Application, error) {
	if settings.DB == nil {
		return nil, errors.New("admin: DB is required")
	}
	if settings.Config == nil {
		return nil, errors.New("admin: Config is required")
	}
	if strings.TrimSpace(settings.CookieSecret) == "" {
		return nil, errors.New("admin: CookieSecret is required")
	}
	if log == nil {
		log = hclog.NewNullLogger()
	}
	if settings.UIModules == nil {
		settings.UIModules = DefaultUIModules()
	}

	a := &Application{
		settings: settings,
		log:      log,
		sessions: newSessionStore(settings.CookieSecret),
	}
	a.templates = newTemplateSet(settings.TemplatePath, settings.UIModules)

	all := routes
	if settings.StaticPath != "" {
		a.static = newStaticFiles(settings.StaticPath)
		all = append(a.static.routes(), routes...)
	}
	compiled, err := compileRoutes(all)
	if err != nil {
		return nil, err
	}
	a.routes = compiled

	var h http.Handler = http.HandlerFunc(a.serve)
	if settings.CompressResponse {
		h = gzhttp.GzipHandler(h)
	}
	a.handler = h

	if settings.UsesDefaultCookieSecret() {
		log.Warn("using the built-in cookie secret; set --cookie-secret or PANOPTES_COOKIE_SECRET")
	}
	return a, nil
}

func (a *Application) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

func (a *Application) Settings() Settings { return a.settings }

// Reload drops cached templates and static versions; the next request re-reads them.
func (a *Application) Reload() {
	a.templates.invalidate()
	if a.static != nil {
		a.static.invalidate()
	}
}

func (a *Application) serve(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w}
	defer func() { a.logRequest(rec, r, time.Since(start)) }()

	if _, ok := supportedMethods[r.Method]; !ok {
		a.sendError(rec, r, errStatus(http.StatusMethodNotAllowed))
		return
	}

	route, args, ok := matchRoute(a.routes, r.URL.Path)
	if !ok {
		a.sendError(rec, r, errStatus(http.StatusNotFound))
		return
	}

	c := &Context{
		Settings: &a.settings,
		Request:  r,
		Writer:   rec,
		Args:     args,
		Route:    route.Name,
		app:      a,
	}

	if a.settings.XSRFCookies && needsXSRFCheck(r.Method) {
		if err := c.checkXSRF(); err != nil {
			a.sendError(rec, r, err)
			return
		}
	}

	if err := dispatch(route.New(), c); err != nil {
		a.sendError(rec, r, err)
	}
}

func (a *Application) sendError(w *statusRecorder, r *http.Request, err error) {
	code := http.StatusInternalServerError
	var he *HTTPError
	if errors.As(err, &he) {
		code = he.StatusCode
	}
	if code >= 500 {
		a.log.Error("uncaught handler error", "method", r.Method, "path", r.URL.Path, "error", err)
	} else if he != nil && he.Message != "" {
		a.log.Warn(he.Message, "method", r.Method, "path", r.URL.Path, "status", code)
	}

	if w.status != 0 {
		// Headers already sent; nothing sensible left to write.
		return
	}
	text := fmt.Sprintf("%d: %s", code, http.StatusText(code))
	w.Header().Set("Content-Type", "text/html; charset=UTF-8")
	w.WriteHeader(code)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = fmt.Fprintf(w, "<html><title>%s</title><body>%s</body></html>", text, text)
}

func (a *Application) logRequest(w *statusRecorder, r *http.Request, d time.Duration) {
	status := w.status
	if status == 0 {
		status = http.StatusOK
	}
	args := []any{
		"status", status,
		"method", r.Method,
		"path", r.URL.RequestURI(),
		"remote", r.RemoteAddr,
		"duration", d.Round(10 * time.Microsecond),
	}
	switch {
	case status < 400:
		a.log.Info("request", args...)
	case status < 500:
		a.log.Warn("request", args...)
	default:
		a.log.Error("request", args...)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusRecorder) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func isSecureRequest(r *http.Request) bool {
	if r == nil {
		return false
	}
	if r.TLS != nil {
		return true
	}
	xfProto := r.Header.Get("X-Forwarded-Proto")
	proto := strings.ToLower(strings.TrimSpace(strings.Split(xfProto, ",")[0]))
	return proto == "https"
}
