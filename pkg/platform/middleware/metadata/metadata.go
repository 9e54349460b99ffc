package metadata

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"engage/pkg/requestcontext"
)

// Resolver determines the client address of a request. Forwarding headers
// are honoured only when the direct peer is a trusted proxy; otherwise any
// client could pick its own address by sending them. The zero value trusts
// no proxy and reports the peer address.
type Resolver struct {
	trusted []netip.Prefix
}

// NewResolver creates a Resolver trusting the given proxies. Each entry is a
// CIDR prefix ("10.0.0.0/8") or a single address ("192.0.2.10").
func NewResolver(trustedProxies ...string) (*Resolver, error) {
	res := &Resolver{}
	for _, raw := range trustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			prefix, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", raw, err)
			}
			res.trusted = append(res.trusted, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", raw, err)
		}
		addr = addr.Unmap()
		res.trusted = append(res.trusted, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return res, nil
}

func (res *Resolver) isTrusted(addr netip.Addr) bool {
	for _, p := range res.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP returns the address of the client that sent r. Behind trusted
// proxies it is the right-most X-Forwarded-For hop that is not itself a
// trusted proxy, or X-Real-IP when no X-Forwarded-For is present.
func (res *Resolver) ClientIP(r *http.Request) string {
	peer, ok := remoteAddr(r.RemoteAddr)
	if !ok {
		if r.RemoteAddr == "" {
			return "unknown"
		}
		return r.RemoteAddr
	}
	if !res.isTrusted(peer) {
		return peer.String()
	}

	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		client := peer
		for i := len(hops) - 1; i >= 0; i-- {
			hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				break
			}
			client = hop.Unmap()
			if !res.isTrusted(client) {
				break
			}
		}
		return client.String()
	}

	if xri, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return xri.Unmap().String()
	}
	return peer.String()
}

// Middleware adds the client address and User-Agent to the context for use
// by rate limiting, flag evaluation and handlers. Apply it early in the chain.
func (res *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), res.ClientIP(r), r.Header.Get("User-Agent"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

var direct = &Resolver{}

// ClientIPFromRequest returns the peer address of r, ignoring forwarding
// headers.
func ClientIPFromRequest(r *http.Request) string {
	return direct.ClientIP(r)
}

// remoteAddr parses "ip:port", "[ipv6]:port" or a bare address.
func remoteAddr(raw string) (netip.Addr, bool) {
	host := raw
	if h, _, err := net.SplitHostPort(raw); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}
