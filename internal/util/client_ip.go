package util

import (
	"net/http"
	"net/netip"
	"strings"
)

// TrustedProxies is the set of reverse proxies allowed to speak for clients
// via forwarding headers. The forum typically sits behind a single nginx
// instance that terminates TLS and serves the frontend, so the list is
// usually one entry.
type TrustedProxies struct {
	prefixes []netip.Prefix
}

// NewTrustedProxies parses CIDR or plain-address entries into the trusted
// set. A nil result means no proxy is trusted and forwarding headers are
// ignored.
func NewTrustedProxies(entries []string) (*TrustedProxies, error) {
	var prefixes []netip.Prefix
	for _, raw := range entries {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		if !strings.Contains(entry, "/") {
			addr, err := netip.ParseAddr(entry)
			if err != nil {
				return nil, err
			}
			prefixes = append(prefixes, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
			continue
		}
		prefix, err := netip.ParsePrefix(entry)
		if err != nil {
			return nil, err
		}
		prefixes = append(prefixes, prefix.Masked())
	}
	if len(prefixes) == 0 {
		return nil, nil
	}
	return &TrustedProxies{prefixes: prefixes}, nil
}

// Contains reports whether addr belongs to a trusted proxy range.
func (t *TrustedProxies) Contains(addr netip.Addr) bool {
	if t == nil || !addr.IsValid() {
		return false
	}
	for _, p := range t.prefixes {
		if p.Contains(addr.Unmap()) {
			return true
		}
	}
	return false
}

// ClientIP returns the address the register and login limiters key on.
// X-Forwarded-For is honored only when the direct peer is a trusted proxy;
// the chain is then walked right to left and the first hop outside the
// trusted ranges wins, so a client cannot spoof its way past a limit by
// sending the header itself.
func ClientIP(r *http.Request, trusted *TrustedProxies) string {
	peer, ok := peerAddr(r.RemoteAddr)
	if !ok {
		return strings.TrimSpace(r.RemoteAddr)
	}
	if !trusted.Contains(peer) {
		return peer.String()
	}
	hops := forwardedChain(r.Header.Get("X-Forwarded-For"))
	for i := len(hops) - 1; i >= 0; i-- {
		if !trusted.Contains(hops[i]) {
			return hops[i].String()
		}
	}
	if len(hops) > 0 {
		return hops[0].String()
	}
	return peer.String()
}

func peerAddr(remote string) (netip.Addr, bool) {
	remote = strings.TrimSpace(remote)
	if ap, err := netip.ParseAddrPort(remote); err == nil {
		return ap.Addr().Unmap(), true
	}
	if addr, err := netip.ParseAddr(remote); err == nil {
		return addr.Unmap(), true
	}
	return netip.Addr{}, false
}

func forwardedChain(header string) []netip.Addr {
	if header == "" {
		return nil
	}
	parts := strings.Split(header, ",")
	hops := make([]netip.Addr, 0, len(parts))
	for _, part := range parts {
		addr, err := netip.ParseAddr(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		hops = append(hops, addr.Unmap())
	}
	return hops
}
