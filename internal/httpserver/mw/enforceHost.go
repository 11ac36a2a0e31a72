package mw

import (
	"net"
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/tripdesk/internal/httpserver/respond"
	"github.com/MrSnakeDoc/tripdesk/internal/logger"
)

// hostMatcher holds lower-cased Host patterns. "*.example.com" matches any
// subdomain but not example.com itself.
type hostMatcher struct {
	exact     map[string]bool
	suffixes  []string
	keepPorts bool // a pattern pins a port, so Host is matched with its port
}

func newHostMatcher(patterns []string) *hostMatcher {
	m := &hostMatcher{exact: make(map[string]bool, len(patterns))}
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, _, err := net.SplitHostPort(p); err == nil {
			m.keepPorts = true
		}
		if strings.HasPrefix(p, "*.") {
			m.suffixes = append(m.suffixes, p[1:])
			continue
		}
		m.exact[p] = true
	}
	return m
}

func (m *hostMatcher) empty() bool {
	return len(m.exact) == 0 && len(m.suffixes) == 0
}

func (m *hostMatcher) match(host string) bool {
	host = strings.ToLower(host)
	if !m.keepPorts {
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
	}
	if m.exact[host] {
		return true
	}
	for _, s := range m.suffixes {
		if strings.HasSuffix(host, s) {
			return true
		}
	}
	return false
}

// EnforceHost allows requests only if r.Host matches one of the allowed
// hosts. An empty list is a passthrough.
func EnforceHost(allowedHosts []string, log logger.Logger) func(http.Handler) http.Handler {
	m := newHostMatcher(allowedHosts)
	if m.empty() {
		log.Debug("EnforceHost: empty allowedHosts, passthrough mode")
		return func(next http.Handler) http.Handler { return next }
	}

	log.Debug("EnforceHost: initialized", logger.Strings("hosts", allowedHosts))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !m.match(r.Host) {
				log.Debug("EnforceHost: host rejected", logger.String("host", r.Host))
				respond.Error(w, http.StatusForbidden, "host not allowed", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
