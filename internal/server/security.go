package server

import (
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/osse101/MinerSync_Go/internal/domain"
	"github.com/osse101/MinerSync_Go/internal/logger"
)

// AuthMiddleware requires the daemon API key on every non-public path. The key is
// read from X-API-Key, a bearer Authorization header, or, for the event stream
// only, the access_token query parameter since browser EventSource cannot set headers.
func AuthMiddleware(apiKey string, proxies *TrustedProxies, guard *RequestGuard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			provided := credential(r)
			if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
				ip := proxies.ClientIP(r)
				guard.RecordFailedAuth(ip)

				logger.FromContext(r.Context()).Warn(LogMsgAuthFailed,
					"path", r.URL.Path,
					"has_key", provided != "",
					"ip", ip)

				http.Error(w, ErrMsgUnauthorized, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func credential(r *http.Request) string {
	if key := r.Header.Get(HeaderAPIKey); key != "" {
		return key
	}
	if auth := r.Header.Get(HeaderAuthorization); strings.HasPrefix(auth, BearerPrefix) {
		return strings.TrimPrefix(auth, BearerPrefix)
	}
	if r.URL.Path == EventStreamPath {
		return r.URL.Query().Get(QueryAccessToken)
	}
	return ""
}

func isPublicPath(path string) bool {
	for _, p := range PublicPaths {
		if path == p {
			return true
		}
	}
	return false
}

// RequestSizeLimitMiddleware caps request bodies at maxBytes.
func RequestSizeLimitMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// ipWindow counts one client's traffic since start.
type ipWindow struct {
	start    time.Time
	requests int
	failures int
	alerted  bool
}

// RequestGuard keeps a fixed window per client IP for request throttling and
// failed-auth alerts.
type RequestGuard struct {
	mu      sync.Mutex
	clock   domain.Clock
	window  time.Duration
	limit   int
	windows map[string]*ipWindow
}

// NewRequestGuard creates a guard whose windows follow clock.
func NewRequestGuard(clock domain.Clock) *RequestGuard {
	return &RequestGuard{
		clock:   clock,
		window:  RateWindow,
		limit:   RequestLimitPerWindow,
		windows: make(map[string]*ipWindow),
	}
}

// windowFor returns the live window for ip, starting a new one when the old has
// lapsed. Caller must hold mu.
func (g *RequestGuard) windowFor(ip string) *ipWindow {
	now := g.clock.Now()
	w, ok := g.windows[ip]
	if !ok || now.Sub(w.start) >= g.window {
		w = &ipWindow{start: now}
		g.windows[ip] = w
	}
	if len(g.windows) > MaxTrackedClients {
		g.pruneLocked(now)
	}
	return w
}

func (g *RequestGuard) pruneLocked(now time.Time) {
	for ip, w := range g.windows {
		if now.Sub(w.start) >= g.window {
			delete(g.windows, ip)
		}
	}
}

// RecordFailedAuth counts a rejected credential and alerts once per window when
// the threshold is reached.
func (g *RequestGuard) RecordFailedAuth(ip string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	w := g.windowFor(ip)
	w.failures++
	if w.failures >= FailedAuthAlertThreshold && !w.alerted {
		w.alerted = true
		slog.Warn(SecurityAlertFailedAuth, "ip", ip, "count", w.failures)
	}
}

// Allow counts a request and reports whether ip is still under its limit.
func (g *RequestGuard) Allow(ip string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	w := g.windowFor(ip)
	w.requests++
	if w.requests <= g.limit {
		return true
	}
	if w.requests == g.limit+1 {
		slog.Warn(SecurityAlertHighRate, "ip", ip, "window", g.window.String())
	}
	return false
}

func (g *RequestGuard) requestsFor(ip string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if w, ok := g.windows[ip]; ok {
		return w.requests
	}
	return 0
}

// RateLimitMiddleware rejects clients that exceed the per-window request limit.
func RateLimitMiddleware(proxies *TrustedProxies, guard *RequestGuard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !guard.Allow(proxies.ClientIP(r)) {
				http.Error(w, ErrMsgTooManyRequests, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// TrustedProxies holds the addresses allowed to report the client via
// X-Forwarded-For. Entries are single IPs or CIDR prefixes.
type TrustedProxies struct {
	prefixes []netip.Prefix
}

// ParseTrustedProxies parses proxy entries, skipping any that are neither an IP
// nor a CIDR prefix.
func ParseTrustedProxies(entries []string) *TrustedProxies {
	tp := &TrustedProxies{}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if p, err := netip.ParsePrefix(e); err == nil {
			tp.prefixes = append(tp.prefixes, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(e); err == nil {
			tp.prefixes = append(tp.prefixes, netip.PrefixFrom(a, a.BitLen()))
			continue
		}
		slog.Warn(LogMsgBadTrustedProxy, "entry", e)
	}
	return tp
}

func (tp *TrustedProxies) trusts(ip string) bool {
	if tp == nil {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range tp.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP returns the peer address, or the last X-Forwarded-For hop when the
// peer is a trusted proxy.
func (tp *TrustedProxies) ClientIP(r *http.Request) string {
	remote, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		remote = r.RemoteAddr
	}
	if !tp.trusts(remote) {
		return remote
	}
	forwarded := r.Header.Get(HeaderForwardedFor)
	if forwarded == "" {
		return remote
	}
	hops := strings.Split(forwarded, ",")
	return strings.TrimSpace(hops[len(hops)-1])
}

// SecurityHeadersMiddleware sets the static response hardening headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	headers := map[string]string{
		HeaderContentType:    HeaderValueNoSniff,
		HeaderFrameOptions:   HeaderValueSameOrigin,
		HeaderXSSProtection:  HeaderValueXSSBlock,
		HeaderReferrerPolicy: HeaderValueReferrerStrictOrigin,
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for k, v := range headers {
				w.Header().Set(k, v)
			}
			next.ServeHTTP(w, r)
		})
	}
}
