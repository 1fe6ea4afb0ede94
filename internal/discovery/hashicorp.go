package discovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/hashicorp/mdns"
	"go.uber.org/zap"

	"github.com/ARMmbed/mbl-cli/internal/logging"
)

// hashicorpQuery matches mdns.QueryContext
type hashicorpQuery func(ctx context.Context, params *mdns.QueryParam) error

// hashicorpStartGrace is how long Open waits for the query to fail while
// binding its sockets. mdns binds before sending anything, so a bind
// failure returns well inside this.
const hashicorpStartGrace = 100 * time.Millisecond

// HashicorpBrowser browses with github.com/hashicorp/mdns. It issues a
// single query that runs until the session is closed or Window elapses.
type HashicorpBrowser struct {
	// Window bounds the underlying query
	Window time.Duration

	query      hashicorpQuery
	startGrace time.Duration
}

// NewHashicorpBrowser creates a browser whose query lasts at most window
func NewHashicorpBrowser(window time.Duration) *HashicorpBrowser {
	return &HashicorpBrowser{Window: window, query: mdns.QueryContext}
}

// Open implements Browser
func (b *HashicorpBrowser) Open(ctx context.Context, serviceType string, l ServiceListener) (Session, error) {
	d := newDispatcher(serviceType, l)
	ctx, cancel := context.WithCancel(ctx)
	session := newBrowseSession(d, cancel)

	window := b.Window
	if window <= 0 {
		window = Timeout
	}

	service, domain := SplitServiceType(serviceType)
	entries := make(chan *mdns.ServiceEntry, 16)
	params := &mdns.QueryParam{
		Service: service,
		Domain:  domain,
		Timeout: window,
		Entries: entries,
		Logger:  log.New(io.Discard, "", 0),
	}

	// A query error is handed to Open while it is still waiting (the
	// sockets could not be bound); after that it belongs to the session.
	startErr := make(chan error)
	started := make(chan struct{})

	// The query owns the entries channel until it returns
	go func() {
		defer close(session.done)

		consumed := make(chan struct{})
		go func() {
			defer close(consumed)
			for entry := range entries {
				name, info := hashicorpServiceInfo(entry)
				d.deliver(name, info)
			}
		}()

		err := b.query(ctx, params)
		select {
		case startErr <- err:
		case <-started:
			if err != nil && !errors.Is(err, context.Canceled) {
				logging.Error("mDNS query failed",
					zap.String("session_id", d.id),
					zap.Error(err),
				)
				d.fail(fmt.Errorf("mDNS query failed: %w", err))
			}
		}
		close(entries)
		<-consumed
	}()

	grace := b.startGrace
	if grace <= 0 {
		grace = hashicorpStartGrace
	}
	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case err := <-startErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			_ = session.Close()
			return nil, fmt.Errorf("failed to start mDNS query: %w", err)
		}
	case <-timer.C:
		close(started)
	}

	logging.LogBrowseSession(d.id, "opened",
		zap.String("backend", BackendHashicorp),
		zap.String("service_type", serviceType),
	)
	return session, nil
}

// hashicorpServiceInfo converts an entry into the full instance name and a
// ServiceInfo, keeping the IPv6 zone when one was reported.
func hashicorpServiceInfo(entry *mdns.ServiceEntry) (string, *ServiceInfo) {
	name := fqdn(entry.Name)

	info := &ServiceInfo{
		Properties: ParseTXT(entry.InfoFields),
		Host:       entry.Host,
		Port:       entry.Port,
	}

	switch {
	case entry.AddrV4 != nil && entry.AddrV4.To4() != nil:
		info.Address = entry.AddrV4.To4()
	case entry.AddrV6IPAddr != nil:
		info.Address = entry.AddrV6IPAddr.IP.To16()
		info.Zone = entry.AddrV6IPAddr.Zone
	case entry.AddrV6 != nil:
		info.Address = entry.AddrV6.To16()
	}

	return name, info
}
