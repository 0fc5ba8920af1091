//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Address value type.
//

package netsock

import (
	"encoding/binary"
	"net/netip"
	"strconv"
)

// Family identifies the address family of an [Addr].
type Family uint8

const (
	// FamilyIPv4 identifies an IPv4 address.
	FamilyIPv4 = Family(iota)

	// FamilyIPv6 identifies an IPv6 address.
	FamilyIPv6
)

// String implements [fmt.Stringer].
func (f Family) String() string {
	switch f {
	case FamilyIPv4:
		return "ipv4"
	case FamilyIPv6:
		return "ipv6"
	default:
		return "unknown"
	}
}

// Addr is a transport endpoint identity: an address family, an IP
// address, and a port.
//
// Addr values are comparable with ==. Equality is scoped by family:
// values with different families always compare unequal; IPv4 values
// compare family, port, and the four address bytes; IPv6 values
// additionally compare the flow label and the scope id. Constructors
// and mutators keep the regions unused by the current family zeroed,
// which is what makes == implement exactly this scoping.
//
// The zero value is the IPv4 wildcard with port zero ("0.0.0.0:0").
type Addr struct {
	// family is the address family tag.
	family Family

	// port holds the port in network byte order.
	port [2]byte

	// ip holds the address payload. IPv4 uses the first four
	// bytes and the rest stay zero.
	ip [16]byte

	// flow is the IPv6 flow label; always zero for IPv4.
	flow uint32

	// zone is the IPv6 scope id; always zero for IPv4.
	zone uint32
}

// AddrFromAddrPort converts a [netip.AddrPort] into an [Addr].
//
// Addresses in the 4-in-6 mapped range keep the IPv6 family. A
// non-numeric IPv6 zone is not resolved and maps to scope id zero.
func AddrFromAddrPort(ap netip.AddrPort) Addr {
	var addr Addr
	ip := ap.Addr()
	if ip.Is4() {
		addr.family = FamilyIPv4
		v4 := ip.As4()
		copy(addr.ip[:4], v4[:])
	} else {
		addr.family = FamilyIPv6
		addr.ip = ip.As16()
		if zone := ip.Zone(); zone != "" {
			if n, err := strconv.ParseUint(zone, 10, 32); err == nil {
				addr.zone = uint32(n)
			}
		}
	}
	binary.BigEndian.PutUint16(addr.port[:], ap.Port())
	return addr
}

// AddrPort converts this [Addr] into a [netip.AddrPort].
func (a Addr) AddrPort() netip.AddrPort {
	var ip netip.Addr
	if a.family == FamilyIPv4 {
		ip = netip.AddrFrom4([4]byte(a.ip[:4]))
	} else {
		ip = netip.AddrFrom16(a.ip)
		if a.zone != 0 {
			ip = ip.WithZone(strconv.FormatUint(uint64(a.zone), 10))
		}
	}
	return netip.AddrPortFrom(ip, a.Port())
}

// Family returns the address family.
func (a Addr) Family() Family { return a.family }

// Is4 reports whether this address is IPv4.
func (a Addr) Is4() bool { return a.family == FamilyIPv4 }

// Is6 reports whether this address is IPv6.
func (a Addr) Is6() bool { return a.family == FamilyIPv6 }

// Port returns the port in host byte order.
func (a Addr) Port() uint16 {
	return binary.BigEndian.Uint16(a.port[:])
}

// SetPort sets the port. The argument is in host byte order.
func (a *Addr) SetPort(port uint16) {
	binary.BigEndian.PutUint16(a.port[:], port)
}

// SetAddress replaces the IP address with the given IPv4 or IPv6
// literal, parsed without any name resolution. IPv6 literals may carry
// a numeric zone suffix ("%42"); non-numeric zones are rejected.
//
// On parse failure SetAddress returns a [*ValidationError] and leaves
// the value unchanged. On success the port is preserved; when the
// family changes every other field is reset before the new address is
// stored, and when it does not the flow label and scope id keep their
// values (unless the literal carries a zone of its own).
func (a *Addr) SetAddress(text string) error {
	ip, err := netip.ParseAddr(text)
	if err != nil {
		return &ValidationError{Reason: "invalid address: " + text}
	}

	var zone uint32
	hasZone := false
	if z := ip.Zone(); z != "" {
		n, err := strconv.ParseUint(z, 10, 32)
		if err != nil {
			return &ValidationError{Reason: "non-numeric zone in address: " + text}
		}
		zone, hasZone = uint32(n), true
	}

	if ip.Is4() {
		if a.family != FamilyIPv4 {
			*a = Addr{family: FamilyIPv4, port: a.port}
		}
		v4 := ip.As4()
		copy(a.ip[:4], v4[:])
		return nil
	}

	if a.family != FamilyIPv6 {
		*a = Addr{family: FamilyIPv6, port: a.port}
	}
	a.ip = ip.As16()
	if hasZone {
		a.zone = zone
	}
	return nil
}

// String renders the address as "addr:port" for IPv4 and as
// "[addr]:port" for IPv6, where the brackets keep the port separate
// from the colons inside the address itself.
func (a Addr) String() string {
	return a.AddrPort().String()
}
