package discovery

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ARMmbed/mbl-cli/internal/address"
	"github.com/ARMmbed/mbl-cli/internal/logging"
)

// Subscriber is notified with the display name of each newly accepted device.
type Subscriber func(identifier string)

// Listener accumulates Mbed Linux OS devices from advertisement callbacks.
// It is safe to call from the browse session's goroutines while the
// foreground reads Devices.
type Listener struct {
	// MarkerKey is the TXT property that must be true for an
	// advertisement to be accepted
	MarkerKey string

	mu          sync.Mutex
	devices     []Device
	seen        map[string]struct{}
	subscribers []Subscriber
}

// NewListener creates a listener filtering on the default marker key
func NewListener() *Listener {
	return &Listener{
		MarkerKey: MarkerKey,
		seen:      make(map[string]struct{}),
	}
}

// AddListener registers a subscriber. Subscribers are called in
// registration order.
func (l *Listener) AddListener(s Subscriber) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subscribers = append(l.subscribers, s)
}

// AddService handles one advertisement. Advertisements without a true
// marker property are ignored. A matching advertisement with a malformed
// address returns an *address.Error and leaves the device list untouched.
// An address already accepted in this session (zone ignored) is dropped.
func (l *Listener) AddService(r ServiceResolver, serviceType, name string) error {
	logging.LogServiceEvent("add", serviceType, name)

	info, err := r.GetServiceInfo(serviceType, name)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", name, err)
	}

	if !info.Flag(l.markerKey()) {
		logging.Debug("Ignoring service without marker",
			zap.String("name", name),
			zap.String("marker", l.markerKey()),
		)
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	addr, err := address.Decode(info.Address, info.Zone)
	if err != nil {
		return fmt.Errorf("service %s: %w", name, err)
	}
	key, err := address.Key(addr)
	if err != nil {
		return fmt.Errorf("service %s: %w", name, err)
	}

	if l.seen == nil {
		l.seen = make(map[string]struct{})
	}
	if _, dup := l.seen[key]; dup {
		logging.Debug("Ignoring duplicate advertisement",
			zap.String("name", name),
			zap.String("address", addr),
		)
		return nil
	}

	device := Device{Name: DisplayName(name, serviceType), Address: addr}
	l.seen[key] = struct{}{}
	l.devices = append(l.devices, device)

	logging.Info("Device accepted",
		zap.String("name", device.Name),
		zap.String("address", device.Address),
	)

	for _, notify := range l.subscribers {
		notify(device.Name)
	}

	return nil
}

// RemoveService is a no-op: devices are never withdrawn mid-session.
func (l *Listener) RemoveService(r ServiceResolver, serviceType, name string) error {
	logging.LogServiceEvent("remove", serviceType, name)
	return nil
}

// UpdateService is a no-op: the first accepted sighting of a device stands.
func (l *Listener) UpdateService(r ServiceResolver, serviceType, name string) error {
	logging.LogServiceEvent("update", serviceType, name)
	return nil
}

// Devices returns a copy of the devices accepted so far, in arrival order.
func (l *Listener) Devices() []Device {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Device, len(l.devices))
	copy(out, l.devices)
	return out
}

// Reset clears the accumulated devices. Subscribers stay registered.
func (l *Listener) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.devices = nil
	l.seen = make(map[string]struct{})
}

func (l *Listener) markerKey() string {
	if l.MarkerKey == "" {
		return MarkerKey
	}
	return l.MarkerKey
}
