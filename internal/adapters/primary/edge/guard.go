package edge

import (
	"net/http"
	"strings"

	"github.com/lorrc/devexchange/internal/core/domain"
	"github.com/lorrc/devexchange/internal/infrastructure/metrics"
)

// Guard decisions, as recorded in the edge decision metric.
const (
	decisionPass              = "pass"
	decisionRedirectLogin     = "redirect_login"
	decisionRedirectDashboard = "redirect_dashboard"
)

// Guard redirects on the presence of the session cookie mirror. It only
// decides where a browser lands; the backend still authorizes every call.
//
//	/dashboard...   without cookie -> /login
//	/login or /     with cookie    -> /dashboard
func Guard(cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			signedIn := hasCookie(r, cookieName)
			path := r.URL.Path

			switch {
			case isDashboard(path) && !signedIn:
				metrics.EdgeDecisions.WithLabelValues(decisionRedirectLogin).Inc()
				http.Redirect(w, r, domain.PathLogin, http.StatusTemporaryRedirect)
				return
			case (path == domain.PathLogin || path == "/") && signedIn:
				metrics.EdgeDecisions.WithLabelValues(decisionRedirectDashboard).Inc()
				http.Redirect(w, r, domain.PathDashboard, http.StatusTemporaryRedirect)
				return
			}

			metrics.EdgeDecisions.WithLabelValues(decisionPass).Inc()
			next.ServeHTTP(w, r)
		})
	}
}

// NoCache forces browsers and intermediaries not to keep dashboard pages,
// so going back after logout triggers a fresh, guarded request. The headers
// replace whatever the upstream sent.
func NoCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isDashboard(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(&noCacheWriter{ResponseWriter: w}, r)
	})
}

type noCacheWriter struct {
	http.ResponseWriter
	wroteHeader bool
}

func (w *noCacheWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		h := w.Header()
		h.Set("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
		h.Set("Pragma", "no-cache")
		h.Set("Expires", "0")
		h.Set("Surrogate-Control", "no-store")
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *noCacheWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *noCacheWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *noCacheWriter) Flush() {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func hasCookie(r *http.Request, name string) bool {
	c, err := r.Cookie(name)
	return err == nil && c.Value != ""
}

func isDashboard(path string) bool {
	return strings.HasPrefix(path, domain.PathDashboard)
}
