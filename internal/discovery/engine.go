package discovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ARMmbed/mbl-cli/internal/logging"
)

const (
	// ServiceType is the DNS-SD service type Mbed Linux OS devices advertise
	ServiceType = "_ssh._tcp.local."

	// MarkerKey is the TXT property that marks an Mbed Linux OS device
	MarkerKey = "mblos"

	// Timeout is the discovery window. Callers print it to set expectations.
	Timeout = 5 * time.Second

	// BackendZeroconf selects github.com/grandcat/zeroconf
	BackendZeroconf = "zeroconf"

	// BackendHashicorp selects github.com/hashicorp/mdns
	BackendHashicorp = "hashicorp"
)

var (
	// ErrNoDevices is returned by callers that need at least one device.
	// The text is what users of the list command have always seen.
	ErrNoDevices = errors.New("No devices found!")

	// ErrOpen wraps failures to start a browse session. Nothing was
	// discovered when Discover returns it.
	ErrOpen = errors.New("failed to open browse session")
)

// Engine runs discovery sessions: browse for the full window, then close.
type Engine struct {
	// Browser opens the multicast browse session
	Browser Browser

	// ServiceType is the DNS-SD service type to browse for
	ServiceType string

	// MarkerKey is the TXT property required on accepted devices
	MarkerKey string

	// Window is how long each session listens
	Window time.Duration
}

// NewEngine creates an engine with the default service type, marker and window
func NewEngine(browser Browser) *Engine {
	return &Engine{
		Browser:     browser,
		ServiceType: ServiceType,
		MarkerKey:   MarkerKey,
		Window:      Timeout,
	}
}

// NewBrowser returns the browse backend with the given name
func NewBrowser(backend string, window time.Duration) (Browser, error) {
	switch backend {
	case "", BackendZeroconf:
		return NewZeroconfBrowser(), nil
	case BackendHashicorp:
		return NewHashicorpBrowser(window), nil
	default:
		return nil, fmt.Errorf("unknown discovery backend %q (want %s or %s)", backend, BackendZeroconf, BackendHashicorp)
	}
}

// Discover runs one session. onFound, if non-nil, is called with each
// accepted device's name as it arrives, from the session's goroutines.
//
// The whole window always elapses unless ctx is cancelled first. An error
// opening the session is returned with no devices. Errors raised while
// handling individual advertisements are returned alongside the devices
// that were accepted; zero devices is not an error here.
func (e *Engine) Discover(ctx context.Context, onFound Subscriber) ([]Device, error) {
	listener := NewListener()
	listener.MarkerKey = e.MarkerKey
	if onFound != nil {
		listener.AddListener(onFound)
	}

	serviceType := e.ServiceType
	if serviceType == "" {
		serviceType = ServiceType
	}
	window := e.Window
	if window <= 0 {
		window = Timeout
	}

	session, err := e.Browser.Open(ctx, serviceType, listener)
	if err != nil {
		logging.Error("Failed to open browse session", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}

	// Close is idempotent; the deferred call covers panics in this frame
	defer session.Close()

	timer := time.NewTimer(window)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		logging.Debug("Discovery interrupted", zap.Error(ctx.Err()))
	}

	closeErr := session.Close()

	devices := listener.Devices()
	logging.Info("Discovery finished",
		zap.Int("devices", len(devices)),
		zap.Duration("window", window),
	)
	return devices, closeErr
}

// DoDiscovery runs one session in the background context and reports each
// device to onFound.
func (e *Engine) DoDiscovery(onFound Subscriber) error {
	_, err := e.Discover(context.Background(), onFound)
	return err
}
