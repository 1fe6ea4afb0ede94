package discovery

import (
	"context"
	"errors"
	"strconv"
	"strings"
)

// ErrServiceNotFound is returned by a ServiceResolver that has no record
// for the requested (serviceType, name) pair.
var ErrServiceNotFound = errors.New("service info not found")

// ServiceInfo is the resolved form of one advertisement.
type ServiceInfo struct {
	// Properties holds the DNS-SD TXT record as key/value pairs
	Properties map[string]string

	// Address is the binary address field: 4 bytes (IPv4) or 16 bytes (IPv6)
	Address []byte

	// Zone is the IPv6 zone (interface) the address was seen on, if any
	Zone string

	// Host is the advertised target hostname (e.g., "mbed-linux-os-8379.local.")
	Host string

	// Port is the advertised service port
	Port int
}

// Flag reports whether the boolean property key is present and true.
// Values are parsed with strconv.ParseBool; malformed values count as false.
func (s *ServiceInfo) Flag(key string) bool {
	if s == nil || s.Properties == nil {
		return false
	}
	value, ok := s.Properties[key]
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(value)
	return err == nil && b
}

// ServiceResolver looks up the details of an advertised service instance.
type ServiceResolver interface {
	GetServiceInfo(serviceType, name string) (*ServiceInfo, error)
}

// ServiceListener receives advertisement callbacks from a browse session.
// Implementations must be safe to call from several goroutines at once.
type ServiceListener interface {
	AddService(r ServiceResolver, serviceType, name string) error
	RemoveService(r ServiceResolver, serviceType, name string) error
	UpdateService(r ServiceResolver, serviceType, name string) error
}

// Browser starts multicast browse sessions for a service type.
type Browser interface {
	// Open starts browsing and delivers advertisements to l until the
	// returned Session is closed.
	Open(ctx context.Context, serviceType string, l ServiceListener) (Session, error)
}

// Session is a live browse. Close stops listening, waits for in-flight
// callbacks and returns any errors they produced. Close must be safe to
// call more than once.
type Session interface {
	Close() error
}

// ParseTXT converts DNS-SD TXT strings into a property map. A bare key
// with no "=" is a boolean attribute and maps to "true". Keys are
// case-insensitive, so they are lowercased. The first occurrence of a
// key wins.
func ParseTXT(txt []string) map[string]string {
	props := make(map[string]string, len(txt))
	for _, record := range txt {
		if record == "" {
			continue
		}
		key, value, hasValue := strings.Cut(record, "=")
		if key == "" {
			continue
		}
		key = strings.ToLower(key)
		if _, dup := props[key]; dup {
			continue
		}
		if !hasValue {
			value = "true"
		}
		props[key] = value
	}
	return props
}

// SplitServiceType splits "_ssh._tcp.local." into the service
// ("_ssh._tcp") and domain ("local") parts.
func SplitServiceType(serviceType string) (service, domain string) {
	parts := strings.Split(strings.Trim(serviceType, "."), ".")
	if len(parts) <= 2 {
		return strings.Join(parts, "."), "local"
	}
	return strings.Join(parts[:2], "."), strings.Join(parts[2:], ".")
}
