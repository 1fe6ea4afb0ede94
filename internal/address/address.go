package address

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
)

const (
	// IPv4Len is the width of a binary IPv4 address field
	IPv4Len = 4

	// IPv6Len is the width of a binary IPv6 address field
	IPv6Len = 16
)

// Error reports a network address that could not be decoded or validated.
type Error struct {
	Input  string // The offending input, hex-encoded when it was binary
	Reason string
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("invalid address %s: %s", e.Input, e.Reason)
}

// IsAddressError reports whether err is, or wraps, an *Error.
func IsAddressError(err error) bool {
	var addrErr *Error
	return errors.As(err, &addrErr)
}

func rawError(raw []byte, reason string) *Error {
	return &Error{Input: fmt.Sprintf("%x", raw), Reason: reason}
}

// DecodeIPv4 converts a 4-byte binary address into dotted-quad form.
func DecodeIPv4(raw []byte) (string, error) {
	if len(raw) != IPv4Len {
		return "", rawError(raw, fmt.Sprintf("want %d bytes for IPv4, got %d", IPv4Len, len(raw)))
	}
	addr, _ := netip.AddrFromSlice(raw)
	return addr.String(), nil
}

// DecodeIPv6 converts a 16-byte binary address into presentation form,
// appending "%zone" when zone is non-empty.
func DecodeIPv6(raw []byte, zone string) (string, error) {
	if len(raw) != IPv6Len {
		return "", rawError(raw, fmt.Sprintf("want %d bytes for IPv6, got %d", IPv6Len, len(raw)))
	}
	if strings.ContainsAny(zone, "% ") {
		return "", rawError(raw, fmt.Sprintf("malformed zone %q", zone))
	}
	addr, _ := netip.AddrFromSlice(raw)
	return addr.WithZone(zone).String(), nil
}

// Decode picks the IPv4 or IPv6 decoder based on the width of raw.
func Decode(raw []byte, zone string) (string, error) {
	switch len(raw) {
	case IPv4Len:
		return DecodeIPv4(raw)
	case IPv6Len:
		return DecodeIPv6(raw, zone)
	default:
		return "", rawError(raw, fmt.Sprintf("unexpected address width %d", len(raw)))
	}
}

// Key returns the canonical zone-less form of a presentation address.
// Two addresses that differ only in their zone share a key.
func Key(s string) (string, error) {
	addr, err := parse(s)
	if err != nil {
		return "", err
	}
	return addr.WithZone("").Unmap().String(), nil
}

func parse(s string) (netip.Addr, error) {
	host, zone, hasZone := strings.Cut(s, "%")
	if hasZone && zone == "" {
		return netip.Addr{}, &Error{Input: s, Reason: "empty zone"}
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, &Error{Input: s, Reason: err.Error()}
	}
	if hasZone && !addr.Is6() {
		return netip.Addr{}, &Error{Input: s, Reason: "zone on non-IPv6 address"}
	}
	return addr, nil
}
