package discovery

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/ARMmbed/mbl-cli/internal/logging"
)

// zeroconfResolver is the subset of *zeroconf.Resolver used for browsing,
// split out so tests can feed entries without a network.
type zeroconfResolver interface {
	Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error
}

// ZeroconfBrowser browses with github.com/grandcat/zeroconf.
type ZeroconfBrowser struct {
	newResolver func() (zeroconfResolver, error)
}

// NewZeroconfBrowser creates a browser listening on all multicast interfaces
func NewZeroconfBrowser() *ZeroconfBrowser {
	return &ZeroconfBrowser{
		newResolver: func() (zeroconfResolver, error) {
			return zeroconf.NewResolver(nil)
		},
	}
}

// Open implements Browser
func (b *ZeroconfBrowser) Open(ctx context.Context, serviceType string, l ServiceListener) (Session, error) {
	resolver, err := b.newResolver()
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	d := newDispatcher(serviceType, l)
	ctx, cancel := context.WithCancel(ctx)
	session := newBrowseSession(d, cancel)

	// zeroconf sends every entry with a blocking send and only closes the
	// channel (then its sockets) once that send completes, so the channel
	// is drained until closed rather than abandoned on cancel.
	entries := make(chan *zeroconf.ServiceEntry)
	go func() {
		defer close(session.done)
		for entry := range entries {
			name, info := zeroconfServiceInfo(entry, serviceType)
			d.deliver(name, info)
		}
	}()

	service, domain := SplitServiceType(serviceType)
	if err := resolver.Browse(ctx, service, domain, entries); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	logging.LogBrowseSession(d.id, "opened",
		zap.String("backend", BackendZeroconf),
		zap.String("service_type", serviceType),
	)
	return session, nil
}

// zeroconfServiceInfo converts an entry into the full instance name and a
// ServiceInfo. IPv4 is preferred; zeroconf does not report IPv6 zones.
func zeroconfServiceInfo(entry *zeroconf.ServiceEntry, serviceType string) (string, *ServiceInfo) {
	name := entry.Instance + "." + fqdn(serviceType)

	info := &ServiceInfo{
		Properties: ParseTXT(entry.Text),
		Host:       entry.HostName,
		Port:       entry.Port,
	}
	info.Address = firstAddress(entry.AddrIPv4, entry.AddrIPv6)
	return name, info
}

// firstAddress returns the first IPv4 address in 4-byte form, else the
// first IPv6 address in 16-byte form. nil means nothing usable was
// advertised, which the address codec rejects.
func firstAddress(v4, v6 []net.IP) []byte {
	for _, ip := range v4 {
		if b := ip.To4(); b != nil {
			return b
		}
	}
	for _, ip := range v6 {
		if b := ip.To16(); b != nil {
			return b
		}
	}
	return nil
}

// fqdn adds the trailing dot of a fully-qualified name.
func fqdn(name string) string {
	if name == "" || strings.HasSuffix(name, ".") {
		return name
	}
	return name + "."
}
