package discovery

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ARMmbed/mbl-cli/internal/logging"
)

type serviceKey struct {
	serviceType string
	name        string
}

// dispatcher is the callback side shared by the browse backends. It caches
// resolved advertisements, answers GetServiceInfo from that cache and runs
// every listener callback on its own goroutine.
type dispatcher struct {
	id          string
	serviceType string
	listener    ServiceListener

	mu     sync.Mutex
	infos  map[serviceKey]*ServiceInfo
	errs   error
	closed bool

	callbacks sync.WaitGroup
}

func newDispatcher(serviceType string, l ServiceListener) *dispatcher {
	return &dispatcher{
		id:          uuid.NewString(),
		serviceType: serviceType,
		listener:    l,
		infos:       make(map[serviceKey]*ServiceInfo),
	}
}

// GetServiceInfo implements ServiceResolver
func (d *dispatcher) GetServiceInfo(serviceType, name string) (*ServiceInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	info, ok := d.infos[serviceKey{serviceType, name}]
	if !ok {
		return nil, ErrServiceNotFound
	}
	return info, nil
}

// deliver records an advertisement and calls AddService, or UpdateService
// when the instance was already seen, on a new goroutine.
func (d *dispatcher) deliver(name string, info *ServiceInfo) {
	key := serviceKey{d.serviceType, name}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	_, known := d.infos[key]
	d.infos[key] = info
	d.callbacks.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.callbacks.Done()

		var err error
		if known {
			err = d.listener.UpdateService(d, d.serviceType, name)
		} else {
			err = d.listener.AddService(d, d.serviceType, name)
		}
		if err != nil {
			logging.Warn("Advertisement rejected",
				zap.String("session_id", d.id),
				zap.String("name", name),
				zap.Error(err),
			)
			d.fail(err)
		}
	}()
}

// fail records an error to be returned from Close
func (d *dispatcher) fail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errs = multierr.Append(d.errs, err)
}

// finish stops accepting advertisements, waits for running callbacks and
// returns their combined errors.
func (d *dispatcher) finish() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.callbacks.Wait()

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.errs
}

// browseSession ties a backend's browse goroutine to a dispatcher.
type browseSession struct {
	d      *dispatcher
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	err    error
}

func newBrowseSession(d *dispatcher, cancel context.CancelFunc) *browseSession {
	return &browseSession{d: d, cancel: cancel, done: make(chan struct{})}
}

// Close implements Session. It is safe to call more than once.
func (s *browseSession) Close() error {
	s.once.Do(func() {
		s.cancel()
		<-s.done
		s.err = s.d.finish()
		logging.LogBrowseSession(s.d.id, "closed", zap.Int("errors", len(multierr.Errors(s.err))))
	})
	return s.err
}
