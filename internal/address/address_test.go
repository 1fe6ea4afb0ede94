package address

import (
	"fmt"
	"net"
	"testing"
)

func TestDecodeIPv4(t *testing.T) {
	tests := []struct {
		name    string
		raw     []byte
		want    string
		wantErr bool
	}{
		{"private address", net.ParseIP("168.224.0.4").To4(), "168.224.0.4", false},
		{"borderline high octets", net.ParseIP("254.255.255.255").To4(), "254.255.255.255", false},
		{"zero address", []byte{0, 0, 0, 0}, "0.0.0.0", false},
		{"text instead of binary", []byte("1683.4224.0.4."), "", true},
		{"too short", []byte{192, 168, 1}, "", true},
		{"sixteen bytes", net.ParseIP("fe80::1").To16(), "", true},
		{"nil", nil, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeIPv4(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeIPv4() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !IsAddressError(err) {
				t.Errorf("expected *Error, got %T", err)
			}
			if got != tt.want {
				t.Errorf("DecodeIPv4() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeIPv6(t *testing.T) {
	tests := []struct {
		name    string
		raw     []byte
		zone    string
		want    string
		wantErr bool
	}{
		{"link local", net.ParseIP("fe80::1").To16(), "", "fe80::1", false},
		{"link local with zone", net.ParseIP("fe80::1").To16(), "eth0", "fe80::1%eth0", false},
		{"global", net.ParseIP("2001:db8::42").To16(), "", "2001:db8::42", false},
		{"four bytes", []byte{10, 0, 0, 1}, "", "", true},
		{"garbage", []byte("254.255.ham.255"), "", "", true},
		{"zone with percent", net.ParseIP("fe80::1").To16(), "eth%0", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeIPv6(tt.raw, tt.zone)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeIPv6() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("DecodeIPv6() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecode_DispatchesOnWidth(t *testing.T) {
	v4, err := Decode([]byte{192, 168, 1, 20}, "ignored")
	if err != nil || v4 != "192.168.1.20" {
		t.Errorf("Decode(v4) = %q, %v", v4, err)
	}

	v6, err := Decode(net.ParseIP("fe80::2").To16(), "wlan0")
	if err != nil || v6 != "fe80::2%wlan0" {
		t.Errorf("Decode(v6) = %q, %v", v6, err)
	}

	if _, err := Decode([]byte("254.255.255.255.004"), ""); !IsAddressError(err) {
		t.Errorf("Decode(garbage) error = %v, want *Error", err)
	}
}

func TestKey_IgnoresZone(t *testing.T) {
	a, err := Key("fe80::1%eth0")
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	b, err := Key("fe80::1%wlan0")
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	if a != b {
		t.Errorf("Key() differs by zone: %q vs %q", a, b)
	}

	mapped, _ := Key("::ffff:10.0.0.1")
	plain, _ := Key("10.0.0.1")
	if mapped != plain {
		t.Errorf("Key(mapped) = %q, want %q", mapped, plain)
	}

	for _, bad := range []string{"", "fe80::1%", "10.0.0.1%eth0", "not-an-ip"} {
		if _, err := Key(bad); !IsAddressError(err) {
			t.Errorf("Key(%q) error = %v, want *Error", bad, err)
		}
	}
}

func TestError_Message(t *testing.T) {
	_, err := DecodeIPv4([]byte{1, 2})
	want := fmt.Sprintf("invalid address 0102: want %d bytes for IPv4, got 2", IPv4Len)
	if err == nil || err.Error() != want {
		t.Errorf("error = %v, want %q", err, want)
	}

	wrapped := fmt.Errorf("add service: %w", err)
	if !IsAddressError(wrapped) {
		t.Error("IsAddressError should see through wrapping")
	}
}
