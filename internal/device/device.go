// Package device resolves the device a command should act on, either from
// an address given on the command line or from the selected device stored
// in the configuration registry.
package device

import (
	"errors"
	"fmt"

	"github.com/ARMmbed/mbl-cli/internal/address"
	"github.com/ARMmbed/mbl-cli/internal/config"
	"github.com/ARMmbed/mbl-cli/internal/discovery"
	"github.com/ARMmbed/mbl-cli/internal/logging"
	"go.uber.org/zap"
)

// ErrNoSelection is returned when no address is given and no device has
// been selected.
var ErrNoSelection = errors.New(`no device selected, run "mbl-cli select" or pass --address`)

// Resolve returns the device to act on. A non-empty addr must be a valid
// IPv4 or IPv6 address and takes precedence over the registry. A non-empty
// hostname replaces the device name in either case.
func Resolve(reg *config.Registry, addr, hostname string) (discovery.Device, error) {
	var d discovery.Device

	switch {
	case addr != "":
		if err := address.Validate(addr); err != nil {
			return discovery.Device{}, fmt.Errorf("invalid address given: %w", err)
		}
		d.Address = addr
	case reg != nil && reg.SelectedDevice != nil:
		d.Name = reg.SelectedDevice.Name
		d.Address = reg.SelectedDevice.Address
	default:
		return discovery.Device{}, ErrNoSelection
	}

	if hostname != "" {
		d.Name = hostname
	}

	logging.Debug("Resolved device",
		zap.String("name", d.Name),
		zap.String("address", d.Address),
		zap.Bool("ad_hoc", addr != ""))

	return d, nil
}
