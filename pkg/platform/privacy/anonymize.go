// Package privacy masks client addresses before they reach logs.
package privacy

import (
	"net/netip"
)

// AnonymizeIP truncates an address to its network portion: IPv4 to /24
// ("192.168.1.47" -> "192.168.1.0") and IPv6 to /48.
// Empty input yields "unknown"; unparseable input yields "invalid".
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}

	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "invalid"
	}
	addr = addr.Unmap().WithZone("")

	bits := 48
	if addr.Is4() {
		bits = 24
	}
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return "invalid"
	}
	return prefix.Addr().String()
}
