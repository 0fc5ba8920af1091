//go:build unix

//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Address conversions for the unix socket layer.
//

package netsock

import (
	"encoding/binary"

	"golang.org/x/sys/unix"
)

// AddrFromUnix converts a [unix.Sockaddr] returned by the kernel into
// an [Addr]. Address families other than AF_INET and AF_INET6 are
// rejected with a [*ValidationError].
func AddrFromUnix(sa unix.Sockaddr) (Addr, error) {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		var addr Addr
		addr.family = FamilyIPv4
		copy(addr.ip[:4], sa.Addr[:])
		binary.BigEndian.PutUint16(addr.port[:], uint16(sa.Port))
		return addr, nil

	case *unix.SockaddrInet6:
		var addr Addr
		addr.family = FamilyIPv6
		addr.ip = sa.Addr
		addr.zone = sa.ZoneId
		binary.BigEndian.PutUint16(addr.port[:], uint16(sa.Port))
		return addr, nil

	default:
		return Addr{}, &ValidationError{Reason: "unsupported address family"}
	}
}

// AddrFromRawInet4 converts a raw IPv4 socket address into an [Addr].
// It validates that the embedded family tag actually is AF_INET and
// returns a [*ValidationError] when it is not.
func AddrFromRawInet4(raw *unix.RawSockaddrInet4) (Addr, error) {
	if raw.Family != unix.AF_INET {
		return Addr{}, &ValidationError{Reason: "family tag is not AF_INET"}
	}
	var addr Addr
	addr.family = FamilyIPv4
	copy(addr.ip[:4], raw.Addr[:])
	// The raw port is already in network byte order.
	binary.NativeEndian.PutUint16(addr.port[:], raw.Port)
	return addr, nil
}

// AddrFromRawInet6 converts a raw IPv6 socket address into an [Addr].
// It validates that the embedded family tag actually is AF_INET6 and
// returns a [*ValidationError] when it is not.
func AddrFromRawInet6(raw *unix.RawSockaddrInet6) (Addr, error) {
	if raw.Family != unix.AF_INET6 {
		return Addr{}, &ValidationError{Reason: "family tag is not AF_INET6"}
	}
	var addr Addr
	addr.family = FamilyIPv6
	addr.ip = raw.Addr
	addr.flow = raw.Flowinfo
	addr.zone = raw.Scope_id
	// The raw port is already in network byte order.
	binary.NativeEndian.PutUint16(addr.port[:], raw.Port)
	return addr, nil
}

// Unix converts this [Addr] into a [unix.Sockaddr] suitable for
// passing to bind and connect.
func (a Addr) Unix() unix.Sockaddr {
	if a.family == FamilyIPv4 {
		sa := &unix.SockaddrInet4{Port: int(a.Port())}
		copy(sa.Addr[:], a.ip[:4])
		return sa
	}
	sa := &unix.SockaddrInet6{Port: int(a.Port()), ZoneId: a.zone}
	sa.Addr = a.ip
	return sa
}
