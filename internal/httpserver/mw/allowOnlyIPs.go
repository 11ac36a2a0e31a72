package mw

import (
	"net/http"

	"github.com/MrSnakeDoc/tripdesk/internal/httpserver/respond"
	"github.com/MrSnakeDoc/tripdesk/internal/logger"
	"github.com/MrSnakeDoc/tripdesk/internal/utils"
)

// AllowOnlyCIDRS guards the admin endpoints (reload, infra, metrics) to
// specific IPs/CIDRs. An empty list is a passthrough.
// trustProxy should be true when running behind a trusted reverse proxy/tunnel (e.g., cloudflared).
func AllowOnlyCIDRS(allowed []string, trustProxy bool, log logger.Logger) func(http.Handler) http.Handler {
	m := utils.NewIPMatcher(allowed)
	if bad := m.Rejected(); len(bad) > 0 {
		log.Warn("AllowOnlyCIDRS: ignoring unparsable entries", logger.Strings("entries", bad))
	}
	if m.IsEmpty() {
		log.Debug("AllowOnlyCIDRS: empty matcher, passthrough mode")
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ClientIP(r, trustProxy)
			if !m.Allow(ip) {
				log.Warn("admin endpoint refused",
					logger.String("ip", ip),
					logger.String("path", r.URL.Path),
					logger.Bool("trust_proxy", trustProxy))
				respond.Error(w, http.StatusForbidden, "address not allowed", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
