package imagepipe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
)

// ErrBlockedSource is returned for image URLs the service refuses to fetch.
var ErrBlockedSource = errors.New("imagepipe: image source not allowed")

// Resolver looks up the addresses of a host.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

var blockedPrefixes = mustPrefixes(
	"0.0.0.0/8",
	"100.64.0.0/10",
	"192.0.0.0/24",
	"192.0.2.0/24",
	"198.18.0.0/15",
	"198.51.100.0/24",
	"203.0.113.0/24",
	"240.0.0.0/4",
	"64:ff9b::/96",
	"100::/64",
	"2001::/32",
	"2001:db8::/32",
	"2002::/16",
)

func mustPrefixes(values ...string) []netip.Prefix {
	out := make([]netip.Prefix, 0, len(values))
	for _, v := range values {
		out = append(out, netip.MustParsePrefix(v))
	}
	return out
}

// Guard validates remote image URLs before and during download.
type Guard struct {
	allow    map[string]struct{}
	resolver Resolver
}

// NewGuard builds a guard. An empty allowlist permits any public host.
func NewGuard(allowlist []string, resolver Resolver) *Guard {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	allow := make(map[string]struct{}, len(allowlist))
	for _, h := range allowlist {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			allow[h] = struct{}{}
		}
	}
	return &Guard{allow: allow, resolver: resolver}
}

// CheckURL validates scheme, allowlist and every resolved address of raw.
func (g *Guard) CheckURL(ctx context.Context, raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBlockedSource, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q", ErrBlockedSource, u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrBlockedSource)
	}
	if u.User != nil {
		return nil, fmt.Errorf("%w: credentials in url", ErrBlockedSource)
	}
	if len(g.allow) > 0 {
		if _, ok := g.allow[host]; !ok {
			return nil, fmt.Errorf("%w: host %s not allowlisted", ErrBlockedSource, host)
		}
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		return u, checkAddr(addr)
	}
	addrs, err := g.resolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %s: %v", ErrBlockedSource, host, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%w: %s has no addresses", ErrBlockedSource, host)
	}
	for _, addr := range addrs {
		if err := checkAddr(addr); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// Control re-checks the peer address at connect time so a DNS answer that
// changed after CheckURL cannot reach an internal address.
func (g *Guard) Control(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBlockedSource, err)
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBlockedSource, err)
	}
	return checkAddr(addr)
}

func checkAddr(addr netip.Addr) error {
	addr = addr.Unmap()
	switch {
	case !addr.IsValid(),
		addr.IsLoopback(),
		addr.IsPrivate(),
		addr.IsLinkLocalUnicast(),
		addr.IsLinkLocalMulticast(),
		addr.IsInterfaceLocalMulticast(),
		addr.IsMulticast(),
		addr.IsUnspecified():
		return fmt.Errorf("%w: address %s is not public", ErrBlockedSource, addr)
	}
	if addr.Is4() && addr == netip.AddrFrom4([4]byte{255, 255, 255, 255}) {
		return fmt.Errorf("%w: broadcast address", ErrBlockedSource)
	}
	for _, p := range blockedPrefixes {
		if p.Contains(addr) {
			return fmt.Errorf("%w: address %s is reserved", ErrBlockedSource, addr)
		}
	}
	return nil
}
