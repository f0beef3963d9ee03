package middleware

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/labstack/echo/v4"
)

// TrustedProxies configures how c.RealIP() resolves the client address.
// X-Real-IP and X-Forwarded-For are honored only when the direct peer falls
// inside one of trustedCIDRs; otherwise the peer address is the client.
// The magic-link rate limiter keys on this value.
func TrustedProxies(e *echo.Echo, trustedCIDRs []string) error {
	extractor, err := buildIPExtractor(trustedCIDRs)
	if err != nil {
		return err
	}
	e.IPExtractor = extractor
	return nil
}

func buildIPExtractor(trustedCIDRs []string) (echo.IPExtractor, error) {
	trusted := make([]netip.Prefix, 0, len(trustedCIDRs))
	for _, cidr := range trustedCIDRs {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}
		prefix, err := netip.ParsePrefix(cidr)
		if err != nil {
			return nil, fmt.Errorf("parsing trusted proxy %q: %w", cidr, err)
		}
		trusted = append(trusted, prefix.Masked())
	}

	return func(req *http.Request) string {
		direct := peerIP(req.RemoteAddr)
		if !isTrusted(direct, trusted) {
			return direct
		}

		if realIP := strings.TrimSpace(req.Header.Get("X-Real-IP")); realIP != "" {
			return realIP
		}

		// Leftmost entry is the original client.
		if xff := req.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if first = strings.TrimSpace(first); first != "" {
				return first
			}
		}

		return direct
	}, nil
}

// peerIP strips the port from a RemoteAddr.
func peerIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

func isTrusted(ip string, trusted []netip.Prefix) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
