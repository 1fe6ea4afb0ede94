// Package address decodes and validates the network addresses carried by
// service-discovery responses and typed on the command line.
//
// Resolvers hand addresses over as fixed-width binary fields: 4 bytes for
// IPv4, 16 bytes for IPv6 plus an optional zone (interface) name. Any other
// width is rejected with an *Error. Decoded addresses are returned in
// presentation form, e.g. "192.168.1.20" or "fe80::1%eth0".
//
// Key strips the zone so the same link-local host seen on two interfaces
// deduplicates to one device.
package address
