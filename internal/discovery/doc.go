// Package discovery finds Mbed Linux OS devices on the local network using
// multicast DNS service discovery (mDNS/DNS-SD).
//
// Devices advertise an SSH service ("_ssh._tcp.local.") with an "mblos"
// TXT property. Other SSH hosts share the service type, so advertisements
// without a true marker are ignored.
//
// # Discovery Process
//
//  1. Engine opens a browse session on a Browser backend
//  2. The backend resolves each advertisement and calls Listener.AddService
//     on its own goroutine
//  3. Listener checks the marker, decodes the address, drops duplicates and
//     notifies subscribers
//  4. After the discovery window the session is closed and the accepted
//     devices are returned in arrival order
//
// # Usage Example
//
//	browser, err := discovery.NewBrowser(discovery.BackendZeroconf, discovery.Timeout)
//	if err != nil {
//	    return err
//	}
//	engine := discovery.NewEngine(browser)
//	devices, err := engine.Discover(ctx, func(name string) {
//	    fmt.Println("found", name)
//	})
//
// # Backends
//
//   - zeroconf: github.com/grandcat/zeroconf (default)
//   - hashicorp: github.com/hashicorp/mdns, reports IPv6 zones
//
// # Errors
//
// A failure to open the session is fatal. An advertisement that carries the
// marker but a malformed address yields an address error; such errors are
// collected and returned from Discover together with the devices that were
// accepted. Finding nothing is not an error at this layer.
//
// # Thread Safety
//
// Listener is safe for concurrent AddService calls. Subscribers run
// synchronously under the listener's lock, so they must not call back into
// the listener.
package discovery
