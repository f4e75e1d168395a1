package api

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ipPolicy resolves who sent a request. Forwarding headers are honoured only
// behind a trusted reverse proxy, and a header value that is not an IP
// address is ignored rather than trusted as a key.
type ipPolicy struct {
	trustProxy bool
}

// ipv6LimitBits groups IPv6 clients by their /64, the smallest block a
// single subscriber is normally assigned.
const ipv6LimitBits = 64

// addr returns the client address. It is invalid only when RemoteAddr itself
// is not an IP, for example on a unix socket.
func (p ipPolicy) addr(r *http.Request) netip.Addr {
	if p.trustProxy {
		first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
		if a, ok := parseAddr(first); ok {
			return a
		}
		if a, ok := parseAddr(r.Header.Get("X-Real-IP")); ok {
			return a
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	a, _ := parseAddr(host)
	return a
}

// clientIP is the address logged for a request.
func (p ipPolicy) clientIP(r *http.Request) string {
	if a := p.addr(r); a.IsValid() {
		return a.String()
	}
	return r.RemoteAddr
}

// limitKey is the bucket the run limiter counts a request against.
func (p ipPolicy) limitKey(r *http.Request) string {
	a := p.addr(r)
	if !a.IsValid() {
		return r.RemoteAddr
	}
	if a.Is6() {
		return netip.PrefixFrom(a, ipv6LimitBits).Masked().String()
	}
	return a.String()
}

// parseAddr accepts a bare address, dropping any zone and unmapping
// IPv4-in-IPv6 so both spellings of one client share a key.
func parseAddr(s string) (netip.Addr, bool) {
	a, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return netip.Addr{}, false
	}
	return a.Unmap().WithZone(""), true
}
