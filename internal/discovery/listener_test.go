package discovery

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"

	"github.com/ARMmbed/mbl-cli/internal/address"
)

const sshService = "_ssh._tcp.local."

// fakeResolver returns a fixed ServiceInfo and records its lookups
type fakeResolver struct {
	info  *ServiceInfo
	err   error
	calls []string
}

func (f *fakeResolver) GetServiceInfo(serviceType, name string) (*ServiceInfo, error) {
	f.calls = append(f.calls, serviceType+"|"+name)
	return f.info, f.err
}

// mapResolver answers by instance name and is safe for concurrent use
type mapResolver map[string]*ServiceInfo

func (m mapResolver) GetServiceInfo(serviceType, name string) (*ServiceInfo, error) {
	info, ok := m[name]
	if !ok {
		return nil, ErrServiceNotFound
	}
	return info, nil
}

func marked(value string, ip string) *ServiceInfo {
	return &ServiceInfo{
		Properties: map[string]string{MarkerKey: value},
		Address:    net.ParseIP(ip).To4(),
	}
}

func TestListener_AddService_SingleDevice(t *testing.T) {
	tests := []struct {
		name       string
		info       *ServiceInfo
		instance   string
		wantDevice bool
		wantName   string
	}{
		{
			name:       "marker true",
			info:       marked("true", "168.224.0.4"),
			instance:   "mbed-linux-os-8379._ssh._tcp.local.",
			wantDevice: true,
			wantName:   "mbed-linux-os-8379",
		},
		{
			name:       "marker true, borderline address",
			info:       marked("1", "254.255.255.255"),
			instance:   "mbed-linux-os-0._ssh._tcp.local.",
			wantDevice: true,
			wantName:   "mbed-linux-os-0",
		},
		{
			name:       "dotted instance name",
			info:       marked("True", "254.255.255.255"),
			instance:   "my_iot.nonsense._ssh._tcp.local.",
			wantDevice: true,
			wantName:   "my_iot.nonsense",
		},
		{
			name:     "marker false",
			info:     marked("false", "168.224.0.4"),
			instance: "mbed-linux-os-8379._ssh._tcp.local.",
		},
		{
			name:     "marker false on another host",
			info:     marked("0", "192.254.255.0"),
			instance: "johnsdev._ssh._tcp.local.",
		},
		{
			name: "marker absent",
			info: &ServiceInfo{
				Properties: map[string]string{"sobl": "true"},
				Address:    net.ParseIP("168.224.0.4").To4(),
			},
			instance: "mbed-linux-os-8379._ssh._tcp.local.",
		},
		{
			name: "marker malformed",
			info: &ServiceInfo{
				Properties: map[string]string{MarkerKey: "yes please"},
				Address:    net.ParseIP("168.224.0.4").To4(),
			},
			instance: "mbed-linux-os-8379._ssh._tcp.local.",
		},
		{
			name:     "no properties",
			info:     &ServiceInfo{Address: net.ParseIP("10.0.0.1").To4()},
			instance: "printer._ssh._tcp.local.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listener := NewListener()
			var notified []string
			listener.AddListener(func(id string) { notified = append(notified, id) })

			resolver := &fakeResolver{info: tt.info}
			if err := listener.AddService(resolver, sshService, tt.instance); err != nil {
				t.Fatalf("AddService() error = %v", err)
			}

			if len(resolver.calls) != 1 || resolver.calls[0] != sshService+"|"+tt.instance {
				t.Errorf("resolver calls = %v, want one lookup of (%s, %s)", resolver.calls, sshService, tt.instance)
			}

			devices := listener.Devices()
			if !tt.wantDevice {
				if len(devices) != 0 {
					t.Errorf("Devices() = %v, want none", devices)
				}
				if len(notified) != 0 {
					t.Errorf("subscriber called %v, want no calls", notified)
				}
				return
			}

			if len(devices) != 1 {
				t.Fatalf("Devices() has %d entries, want 1", len(devices))
			}
			if devices[0].Name != tt.wantName {
				t.Errorf("device.Name = %q, want %q", devices[0].Name, tt.wantName)
			}
			if len(notified) != 1 || notified[0] != tt.wantName {
				t.Errorf("subscriber calls = %v, want [%s]", notified, tt.wantName)
			}
		})
	}
}

func TestListener_AddService_MultipleDevices(t *testing.T) {
	listener := NewListener()
	resolver := mapResolver{
		"mbed-linux-os-8379._ssh._tcp.local.": marked("true", "168.224.0.4"),
		"mbed-linux-os-8820._ssh._tcp.local.": marked("true", "168.224.76.4"),
	}

	for _, name := range []string{"mbed-linux-os-8379._ssh._tcp.local.", "mbed-linux-os-8820._ssh._tcp.local."} {
		if err := listener.AddService(resolver, sshService, name); err != nil {
			t.Fatalf("AddService(%s) error = %v", name, err)
		}
	}

	devices := listener.Devices()
	if len(devices) != 2 {
		t.Fatalf("Devices() has %d entries, want 2", len(devices))
	}
	if devices[0] == devices[1] {
		t.Errorf("devices should differ: %v", devices)
	}
	if devices[0].Address != "168.224.0.4" || devices[1].Address != "168.224.76.4" {
		t.Errorf("devices not in arrival order: %v", devices)
	}
}

func TestListener_AddService_SameNameDifferentAddress(t *testing.T) {
	listener := NewListener()
	resolver := &fakeResolver{}

	for _, ip := range []string{"10.0.0.1", "10.0.0.2"} {
		resolver.info = marked("true", ip)
		if err := listener.AddService(resolver, sshService, "mbed-linux-os-1._ssh._tcp.local."); err != nil {
			t.Fatalf("AddService() error = %v", err)
		}
	}

	devices := listener.Devices()
	if len(devices) != 2 {
		t.Fatalf("Devices() has %d entries, want 2", len(devices))
	}
	if devices[0] == devices[1] {
		t.Error("records with colliding names but distinct addresses should differ")
	}
}

func TestListener_AddService_MixedMarkers(t *testing.T) {
	listener := NewListener()
	resolver := mapResolver{
		"mbed-linux-os-2315._ssh._tcp.local.": marked("false", "168.224.245.0"),
		"jim._ssh._tcp.local.":                marked("true", "168.2.66.1"),
	}

	for _, name := range []string{"mbed-linux-os-2315._ssh._tcp.local.", "jim._ssh._tcp.local."} {
		if err := listener.AddService(resolver, sshService, name); err != nil {
			t.Fatalf("AddService(%s) error = %v", name, err)
		}
	}

	devices := listener.Devices()
	want := []Device{{Name: "jim", Address: "168.2.66.1"}}
	if len(devices) != 1 || devices[0] != want[0] {
		t.Errorf("Devices() = %v, want %v", devices, want)
	}
}

func TestListener_AddService_InvalidAddress(t *testing.T) {
	tests := []struct {
		name    string
		marker  string
		raw     []byte
		wantErr bool
	}{
		{"marker true, text address", "true", []byte("254.255.255.255.004"), true},
		{"marker true, letters", "true", []byte("254.255.ham.255"), true},
		{"marker true, trailing dot", "true", []byte("1683.4224.0.4."), true},
		{"marker true, missing address", "true", nil, true},
		{"marker false, bad address ignored", "false", []byte("192.254.255.___"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listener := NewListener()
			notified := 0
			listener.AddListener(func(string) { notified++ })

			resolver := &fakeResolver{info: &ServiceInfo{
				Properties: map[string]string{MarkerKey: tt.marker},
				Address:    tt.raw,
			}}
			err := listener.AddService(resolver, sshService, "mbed-linux-os-8379._ssh._tcp.local.")

			if (err != nil) != tt.wantErr {
				t.Fatalf("AddService() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !address.IsAddressError(err) {
				t.Errorf("expected address error, got %T: %v", err, err)
			}
			if n := len(listener.Devices()); n != 0 {
				t.Errorf("Devices() has %d entries, want 0", n)
			}
			if notified != 0 {
				t.Errorf("subscriber called %d times, want 0", notified)
			}
		})
	}
}

func TestListener_AddService_ErrorDoesNotBlockLaterAdvertisements(t *testing.T) {
	listener := NewListener()
	resolver := mapResolver{
		"bad._ssh._tcp.local.":  {Properties: map[string]string{MarkerKey: "true"}, Address: []byte{1, 2, 3}},
		"good._ssh._tcp.local.": marked("true", "10.1.1.1"),
	}

	if err := listener.AddService(resolver, sshService, "bad._ssh._tcp.local."); err == nil {
		t.Fatal("expected error for malformed address")
	}
	if err := listener.AddService(resolver, sshService, "good._ssh._tcp.local."); err != nil {
		t.Fatalf("AddService(good) error = %v", err)
	}

	if devices := listener.Devices(); len(devices) != 1 || devices[0].Name != "good" {
		t.Errorf("Devices() = %v, want only 'good'", devices)
	}
}

func TestListener_AddService_LookupError(t *testing.T) {
	listener := NewListener()
	lookupErr := errors.New("resolution timed out")
	resolver := &fakeResolver{err: lookupErr}

	err := listener.AddService(resolver, sshService, "mbed-linux-os-1._ssh._tcp.local.")
	if !errors.Is(err, lookupErr) {
		t.Errorf("AddService() error = %v, want wrapped %v", err, lookupErr)
	}
	if address.IsAddressError(err) {
		t.Error("lookup failure should not be reported as an address error")
	}
	if len(listener.Devices()) != 0 {
		t.Error("lookup failure should not add a device")
	}
}

func TestListener_AddService_DeduplicatesByAddress(t *testing.T) {
	listener := NewListener()
	notified := 0
	listener.AddListener(func(string) { notified++ })

	v6 := net.ParseIP("fe80::1").To16()
	resolver := mapResolver{
		"a._ssh._tcp.local.":       marked("true", "10.0.0.9"),
		"a-again._ssh._tcp.local.": marked("true", "10.0.0.9"),
		"b-eth0._ssh._tcp.local.":  {Properties: map[string]string{MarkerKey: "true"}, Address: v6, Zone: "eth0"},
		"b-wlan._ssh._tcp.local.":  {Properties: map[string]string{MarkerKey: "true"}, Address: v6, Zone: "wlan0"},
	}

	for _, name := range []string{"a._ssh._tcp.local.", "a-again._ssh._tcp.local.", "b-eth0._ssh._tcp.local.", "b-wlan._ssh._tcp.local."} {
		if err := listener.AddService(resolver, sshService, name); err != nil {
			t.Fatalf("AddService(%s) error = %v", name, err)
		}
	}

	devices := listener.Devices()
	want := []Device{
		{Name: "a", Address: "10.0.0.9"},
		{Name: "b-eth0", Address: "fe80::1%eth0"},
	}
	if len(devices) != len(want) {
		t.Fatalf("Devices() = %v, want %v", devices, want)
	}
	for i := range want {
		if devices[i] != want[i] {
			t.Errorf("devices[%d] = %v, want %v", i, devices[i], want[i])
		}
	}
	if notified != 2 {
		t.Errorf("subscriber called %d times, want 2", notified)
	}
}

func TestListener_SubscribersCalledInOrder(t *testing.T) {
	listener := NewListener()
	var calls []string
	for i := 1; i <= 3; i++ {
		i := i
		listener.AddListener(func(id string) { calls = append(calls, fmt.Sprintf("%d:%s", i, id)) })
	}

	resolver := &fakeResolver{info: marked("true", "10.0.0.1")}
	if err := listener.AddService(resolver, sshService, "dev._ssh._tcp.local."); err != nil {
		t.Fatalf("AddService() error = %v", err)
	}

	want := []string{"1:dev", "2:dev", "3:dev"}
	if fmt.Sprint(calls) != fmt.Sprint(want) {
		t.Errorf("subscriber calls = %v, want %v", calls, want)
	}
}

func TestListener_CustomMarkerKey(t *testing.T) {
	listener := NewListener()
	listener.MarkerKey = "mbl"

	resolver := &fakeResolver{info: marked("true", "10.0.0.1")}
	if err := listener.AddService(resolver, sshService, "dev._ssh._tcp.local."); err != nil {
		t.Fatalf("AddService() error = %v", err)
	}
	if len(listener.Devices()) != 0 {
		t.Error("device carrying only the default marker should be ignored")
	}
}

func TestListener_RemoveAndUpdateAreNoOps(t *testing.T) {
	listener := NewListener()
	resolver := &fakeResolver{info: marked("true", "10.0.0.1")}
	if err := listener.AddService(resolver, sshService, "dev._ssh._tcp.local."); err != nil {
		t.Fatalf("AddService() error = %v", err)
	}

	if err := listener.UpdateService(resolver, sshService, "dev._ssh._tcp.local."); err != nil {
		t.Errorf("UpdateService() error = %v", err)
	}
	if err := listener.RemoveService(resolver, sshService, "dev._ssh._tcp.local."); err != nil {
		t.Errorf("RemoveService() error = %v", err)
	}

	if len(listener.Devices()) != 1 {
		t.Error("remove/update should not change accumulated devices")
	}
	if len(resolver.calls) != 1 {
		t.Errorf("remove/update should not resolve, got %d lookups", len(resolver.calls))
	}
}

func TestListener_Reset(t *testing.T) {
	listener := NewListener()
	notified := 0
	listener.AddListener(func(string) { notified++ })
	resolver := &fakeResolver{info: marked("true", "10.0.0.1")}

	if err := listener.AddService(resolver, sshService, "dev._ssh._tcp.local."); err != nil {
		t.Fatalf("AddService() error = %v", err)
	}
	listener.Reset()

	if len(listener.Devices()) != 0 {
		t.Fatal("Reset() should clear devices")
	}

	// Same address is accepted again after a reset, and subscribers survive
	if err := listener.AddService(resolver, sshService, "dev._ssh._tcp.local."); err != nil {
		t.Fatalf("AddService() error = %v", err)
	}
	if len(listener.Devices()) != 1 || notified != 2 {
		t.Errorf("after reset: devices=%d notified=%d, want 1 and 2", len(listener.Devices()), notified)
	}
}

func TestListener_DevicesReturnsCopy(t *testing.T) {
	listener := NewListener()
	resolver := &fakeResolver{info: marked("true", "10.0.0.1")}
	if err := listener.AddService(resolver, sshService, "dev._ssh._tcp.local."); err != nil {
		t.Fatalf("AddService() error = %v", err)
	}

	devices := listener.Devices()
	devices[0].Name = "changed"

	if listener.Devices()[0].Name != "dev" {
		t.Error("mutating the returned slice should not affect the listener")
	}
}

func TestListener_ConcurrentAddService(t *testing.T) {
	listener := NewListener()
	resolver := mapResolver{}
	const n = 64
	for i := 0; i < n; i++ {
		resolver[fmt.Sprintf("dev-%d._ssh._tcp.local.", i)] = marked("true", fmt.Sprintf("10.0.%d.%d", i/256, i%256+1))
	}

	var mu sync.Mutex
	var notified []string
	listener.AddListener(func(id string) {
		mu.Lock()
		notified = append(notified, id)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for name := range resolver {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			if err := listener.AddService(resolver, sshService, name); err != nil {
				t.Errorf("AddService(%s) error = %v", name, err)
			}
		}(name)
	}
	wg.Wait()

	devices := listener.Devices()
	if len(devices) != n {
		t.Fatalf("Devices() has %d entries, want %d", len(devices), n)
	}
	// Notification order matches the device list order
	for i, d := range devices {
		if notified[i] != d.Name {
			t.Fatalf("notified[%d] = %q, devices[%d].Name = %q", i, notified[i], i, d.Name)
		}
	}
}
