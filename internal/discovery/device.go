package discovery

import (
	"fmt"
	"strings"
)

// Device is one discovered Mbed Linux OS device.
// It is a comparable value; two Devices are equal when both fields match.
type Device struct {
	// Name is the advertised instance name with the service type stripped
	// (e.g., "mbed-linux-os-8379")
	Name string

	// Address is the decoded presentation-form address
	// (e.g., "192.168.1.20" or "fe80::1%eth0")
	Address string
}

// String returns the "name: address" form shown in device lists
func (d Device) String() string {
	return fmt.Sprintf("%s: %s", d.Name, d.Address)
}

// DisplayName strips the "."+serviceType suffix from an advertised instance
// name. Trailing dots on either side are ignored. Names that do not carry
// the suffix are returned unchanged.
func DisplayName(name, serviceType string) string {
	suffix := "." + strings.TrimSuffix(serviceType, ".")
	trimmed := strings.TrimSuffix(name, ".")
	if base, ok := strings.CutSuffix(trimmed, suffix); ok && base != "" {
		return base
	}
	return name
}
