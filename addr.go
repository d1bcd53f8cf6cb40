package netorder

import "net/netip"

// IPv4 is an IPv4 address in its 4 byte network form.
type IPv4 [4]byte

// IPv6 is an IPv6 address in its 16 byte network form.
type IPv6 [16]byte

// IPv4From returns the 4 byte form of a, which must be an IPv4 or
// IPv4-mapped IPv6 address.
func IPv4From(a netip.Addr) (IPv4, bool) {
	a = a.Unmap()
	if !a.Is4() {
		return IPv4{}, false
	}
	return a.As4(), true
}

// IPv6From returns the 16 byte form of a. IPv4 addresses are mapped.
func IPv6From(a netip.Addr) IPv6 {
	return a.As16()
}

// Addr converts ip to a netip.Addr.
func (ip IPv4) Addr() netip.Addr { return netip.AddrFrom4(ip) }

func (ip IPv4) String() string { return ip.Addr().String() }

// Addr converts ip to a netip.Addr.
func (ip IPv6) Addr() netip.Addr { return netip.AddrFrom16(ip) }

func (ip IPv6) String() string { return ip.Addr().String() }
