package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/gridpulse/gridpulse/internal/config"
)

// WithAuth wraps next with API-key authentication per cfg. Mode "none" (or
// empty) passes everything through. The health endpoint is always open so
// load balancers can probe without credentials.
func WithAuth(next http.Handler, cfg config.AuthConfig) http.Handler {
	if cfg.Mode != "apikey" {
		return next
	}
	header := cfg.EffectiveHeader()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/health" {
			next.ServeHTTP(w, r)
			return
		}

		want := cfg.Key()
		got := r.Header.Get(header)
		if want == "" || subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
			jsonErr(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}
