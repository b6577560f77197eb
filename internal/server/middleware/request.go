package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/google/uuid"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

// TrustedProxies is the set of peers allowed to report the client address in
// X-Forwarded-For or X-Real-IP. The zero value and nil trust nobody.
type TrustedProxies struct {
	prefixes []netip.Prefix
}

// NewTrustedProxies returns a TrustedProxies covering prefixes.
func NewTrustedProxies(prefixes []netip.Prefix) *TrustedProxies {
	return &TrustedProxies{prefixes: append([]netip.Prefix(nil), prefixes...)}
}

// Contains reports whether addr is a trusted proxy.
func (t *TrustedProxies) Contains(addr netip.Addr) bool {
	if t == nil || !addr.IsValid() {
		return false
	}
	addr = addr.Unmap()
	for _, p := range t.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// RequestInfo returns middleware that stores the client IP and a request id in the
// request context and echoes the id in the response. An incoming X-Request-ID is kept
// if it looks sane. Forwarding headers count only when the peer is in proxies.
func RequestInfo(proxies *TrustedProxies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := strings.TrimSpace(r.Header.Get(HeaderRequestID))
			if reqID == "" || len(reqID) > 128 {
				reqID = uuid.New().String()
			}
			w.Header().Set(HeaderRequestID, reqID)
			ctx := WithRequestID(r.Context(), reqID)
			ctx = WithClientIP(ctx, ClientIP(r, proxies))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIP returns the address of the client behind r, or "unknown".
//
// The connection peer is the answer unless it is a trusted proxy. Then X-Forwarded-For
// is walked from the right, skipping trusted hops, and the first other address wins;
// X-Real-IP is the fallback. Header values that are not IP addresses are ignored.
func ClientIP(r *http.Request, proxies *TrustedProxies) string {
	peer := remoteHost(r.RemoteAddr)
	peerAddr, err := netip.ParseAddr(peer)
	if err != nil || !proxies.Contains(peerAddr) {
		if peer == "" {
			return "unknown"
		}
		return peer
	}

	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		var leftmost string
		for i := len(hops) - 1; i >= 0; i-- {
			addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				continue
			}
			addr = addr.Unmap()
			if !proxies.Contains(addr) {
				return addr.String()
			}
			leftmost = addr.String()
		}
		if leftmost != "" {
			return leftmost
		}
	}
	if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return addr.Unmap().String()
	}
	return peer
}

func remoteHost(remoteAddr string) string {
	if remoteAddr == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
