package utils

import (
	"net"
	"net/netip"
	"strings"
)

// ParseHostNoPort returns the host part (no port) from strings like "ip:port", "[v6]:port", or "ip".
func ParseHostNoPort(s string) string {
	if s == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(s); err == nil {
		return h
	}
	return s
}

// IPv4 returns the canonical form of s when it is an IPv4 address, as
// required for an A record value. Surrounding space and a port are ignored.
func IPv4(s string) (string, bool) {
	s = ParseHostNoPort(strings.TrimSpace(s))
	if s == "" {
		return "", false
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return "", false
	}
	addr = addr.Unmap()
	if !addr.Is4() {
		return "", false
	}
	return addr.String(), true
}
