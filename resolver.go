//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Internal code for DNS lookups.
//

package netsock

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/netip"
	"strconv"
	"time"

	"github.com/rbmk-project/common/errclass"
)

// ErrNoAddresses indicates that name resolution produced no address
// matching the configured network protocol. Callers observe it
// wrapped inside a [*ConnectionError].
var ErrNoAddresses = errors.New("netsock: no suitable addresses")

// resolveService maps a service to a TCP port number. Numeric strings
// are parsed directly and other strings are resolved as service names
// using the [net] package.
func (e *Endpoint) resolveService(ctx context.Context, service string) (uint16, error) {
	if service == "" {
		return 0, &ValidationError{Reason: "empty port or service name"}
	}
	if port, err := strconv.ParseUint(service, 10, 16); err == nil {
		return uint16(port), nil
	}
	reso := &net.Resolver{}
	port, err := reso.LookupPort(ctx, "tcp", service)
	if err != nil {
		return 0, &ValidationError{Reason: "cannot resolve service: " + service}
	}
	return uint16(port), nil
}

// resolveAddrs resolves host into the ordered list of candidate
// addresses using the given port, filtered by the configured network
// protocol. The passive flag indicates that the caller is going to
// bind rather than connect.
//
// An empty host selects the wildcard addresses when passive and the
// loopback addresses otherwise, trying IPv6 before IPv4. Addresses
// not matching the configured network protocol are skipped. When
// nothing remains, the returned error is [ErrNoAddresses].
func (e *Endpoint) resolveAddrs(ctx context.Context,
	host string, port uint16, passive bool) ([]Addr, error) {
	var literals []string
	switch {
	case host == "" && passive:
		literals = []string{"::", "0.0.0.0"}
	case host == "":
		literals = []string{"::1", "127.0.0.1"}
	default:
		addrs, err := e.maybeLookupHost(ctx, host)
		if err != nil {
			return nil, &ConnectionError{Op: "resolve", Err: err}
		}
		literals = addrs
	}

	var candidates []Addr
	for _, literal := range literals {
		ip, err := netip.ParseAddr(literal)
		if err != nil {
			continue
		}
		if e.network == NetworkIPv4 && !ip.Is4() {
			continue
		}
		if e.network == NetworkIPv6 && ip.Is4() {
			continue
		}
		candidates = append(candidates, AddrFromAddrPort(netip.AddrPortFrom(ip, port)))
	}
	if len(candidates) < 1 {
		return nil, &ConnectionError{Op: "resolve", Err: ErrNoAddresses}
	}
	return candidates, nil
}

// maybeLookupHost resolves a domain name to IP addresses unless the
// domain already is an IP address, in which case we short circuit the
// lookup.
func (e *Endpoint) maybeLookupHost(ctx context.Context, domain string) ([]string, error) {
	// IP literals do not need a lookup
	if _, err := netip.ParseAddr(domain); err == nil {
		return []string{domain}, nil
	}

	// Emit structured event before the lookup
	t0 := e.emitLookupHostStart(ctx, domain)

	// Perform the actual lookup
	addrs, err := e.doLookupHost(ctx, domain)

	// Emit structured event after the lookup
	e.emitLookupHostDone(ctx, domain, t0, addrs, err)

	return addrs, err
}

// doLookupHost performs the DNS lookup.
func (e *Endpoint) doLookupHost(ctx context.Context, domain string) ([]string, error) {
	// prefer the custom lookup function, when set
	if e.LookupHostFunc != nil {
		return e.LookupHostFunc(ctx, domain)
	}

	// otherwise fall back to the system resolver
	reso := &net.Resolver{}
	return reso.LookupHost(ctx, domain)
}

// emitLookupHostStart emits a structured event before the lookup.
func (e *Endpoint) emitLookupHostStart(ctx context.Context, domain string) time.Time {
	t0 := e.timeNow()
	if e.Logger != nil {
		e.Logger.InfoContext(
			ctx,
			"lookupHostStart",
			slog.String("domain", domain),
			slog.Time("t", t0),
		)
	}
	return t0
}

// emitLookupHostDone emits a structured event after the lookup.
func (e *Endpoint) emitLookupHostDone(ctx context.Context,
	domain string, t0 time.Time, addrs []string, err error) {
	if e.Logger != nil {
		e.Logger.InfoContext(
			ctx,
			"lookupHostDone",
			slog.Any("addrs", addrs),
			slog.String("domain", domain),
			slog.Any("err", err),
			slog.String("errClass", errclass.New(err)),
			slog.Time("t0", t0),
			slog.Time("t", e.timeNow()),
		)
	}
}
