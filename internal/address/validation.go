package address

import (
	"net/netip"
	"strings"
)

// ValidIPv4 reports whether s is a dotted-quad IPv4 address.
func ValidIPv4(s string) bool {
	addr, err := netip.ParseAddr(s)
	return err == nil && addr.Is4()
}

// ValidIPv6 reports whether s is an IPv6 address. A "%zone" suffix is
// split off before parsing and not otherwise checked.
func ValidIPv6(s string) bool {
	host, _, _ := strings.Cut(s, "%")
	addr, err := netip.ParseAddr(host)
	return err == nil && addr.Is6()
}

// Validate checks an ad-hoc address typed by the user.
func Validate(s string) error {
	if ValidIPv4(s) || ValidIPv6(s) {
		return nil
	}
	return &Error{Input: s, Reason: "not an IPv4 or IPv6 address"}
}
