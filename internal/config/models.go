package config

import (
	"time"

	"github.com/ARMmbed/mbl-cli/internal/discovery"
)

// Registry represents the entire user configuration file.
type Registry struct {
	Version        int             `yaml:"version"`
	SelectedDevice *SelectedDevice `yaml:"selected_device,omitempty"`
	Preferences    *Preferences    `yaml:"preferences,omitempty"`
}

// SelectedDevice is the device chosen with "mbl-cli select". Commands that
// act on a device use it unless an address is given on the command line.
type SelectedDevice struct {
	Name       string    `yaml:"name"`
	Address    string    `yaml:"address"`
	SelectedAt time.Time `yaml:"selected_at,omitempty"`
}

// Preferences represents discovery preferences.
type Preferences struct {
	DiscoverTimeout int    `yaml:"discover_timeout"`       // Discovery window in seconds
	ServiceType     string `yaml:"service_type,omitempty"` // DNS-SD service type to browse
	Backend         string `yaml:"backend,omitempty"`      // "zeroconf" or "hashicorp"
}

// DefaultPreferences returns the built-in discovery settings
func DefaultPreferences() *Preferences {
	return &Preferences{
		DiscoverTimeout: int(discovery.Timeout / time.Second),
		ServiceType:     discovery.ServiceType,
		Backend:         discovery.BackendZeroconf,
	}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     1,
		Preferences: DefaultPreferences(),
	}
}

// Window returns the discovery window, falling back to the default when
// the stored timeout is not positive.
func (p *Preferences) Window() time.Duration {
	if p == nil || p.DiscoverTimeout <= 0 {
		return discovery.Timeout
	}
	return time.Duration(p.DiscoverTimeout) * time.Second
}

// SelectDevice records d as the selected device.
func (r *Registry) SelectDevice(d discovery.Device) {
	r.SelectedDevice = &SelectedDevice{
		Name:       d.Name,
		Address:    d.Address,
		SelectedAt: time.Now(),
	}
}

// ClearSelection forgets the selected device.
func (r *Registry) ClearSelection() {
	r.SelectedDevice = nil
}
