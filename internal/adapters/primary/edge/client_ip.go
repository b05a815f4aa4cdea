package edge

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP resolves the address a request originates from. X-Forwarded-For
// and X-Real-IP are only believed when the direct peer is a trusted proxy;
// otherwise any client could pick its own rate limit bucket.
type ClientIP struct {
	trusted []netip.Prefix
}

// NewClientIP trusts forwarding headers from peers inside cidrs. A bare
// address is taken as a single host.
func NewClientIP(cidrs []string) (*ClientIP, error) {
	c := &ClientIP{}
	for _, raw := range cidrs {
		prefix, err := parsePrefix(raw)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", raw, err)
		}
		c.trusted = append(c.trusted, prefix)
	}
	return c, nil
}

func parsePrefix(raw string) (netip.Prefix, error) {
	if strings.Contains(raw, "/") {
		prefix, err := netip.ParsePrefix(raw)
		return prefix.Masked(), err
	}
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return netip.Prefix{}, err
	}
	return netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()), nil
}

// From returns the client address of r. A nil resolver trusts no proxy.
//
// Behind trusted proxies, X-Forwarded-For is read right to left and the
// first hop that is not itself a trusted proxy wins.
func (c *ClientIP) From(r *http.Request) string {
	peer := remoteIP(r)
	if c == nil || !c.isTrusted(peer) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if i == 0 || !c.isTrusted(hop) {
				return hop
			}
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return peer
}

func (c *ClientIP) isTrusted(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range c.trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

func remoteIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
