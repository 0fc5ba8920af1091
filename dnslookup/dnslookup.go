//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// DNS lookups using configured servers.
//

// Package dnslookup resolves domain names using explicitly configured
// DNS servers instead of the system resolver.
//
// The [*Resolver.LookupHost] method has the same signature as the
// LookupHostFunc collaborator of an endpoint, so a configured
// resolver plugs directly into one.
package dnslookup

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/rbmk-project/common/errclass"
	"github.com/rbmk-project/dnscore"
)

// ErrNoConfiguredServers indicates that a lookup ran without any
// configured DNS server.
var ErrNoConfiguredServers = errors.New("dnslookup: no configured servers")

// Resolver resolves domain names by querying configured DNS servers
// in order. Construct using [NewResolver].
type Resolver struct {
	// Logger is the optional structured logger for emitting lookup
	// events. If this field is nil, we do not emit any event.
	Logger *slog.Logger

	// DialContextFunc is the optional function the DNS transport
	// uses to create connections. If this field is nil, we use a
	// [*net.Dialer].
	DialContextFunc func(ctx context.Context, network, address string) (net.Conn, error)

	// TimeNow is the optional function returning the current time,
	// used for event timestamps. If this field is nil, we use
	// [time.Now].
	TimeNow func() time.Time

	// servers are the configured DNS server addresses.
	servers []*dnscore.ServerAddr
}

// NewResolver constructs a [*Resolver] querying the given servers,
// expressed as host:port endpoints reached over UDP.
func NewResolver(servers ...string) *Resolver {
	reso := &Resolver{}
	for _, server := range servers {
		reso.AddServer(dnscore.ProtocolUDP, server)
	}
	return reso
}

// AddServer appends a DNS server reached using the given protocol,
// which is one of [dnscore.ProtocolUDP], [dnscore.ProtocolTCP],
// [dnscore.ProtocolDoT], and [dnscore.ProtocolDoH].
func (r *Resolver) AddServer(protocol dnscore.Protocol, address string) {
	r.servers = append(r.servers, dnscore.NewServerAddr(protocol, address))
}

// LookupHost resolves a domain name to IP addresses by querying the
// configured servers. It returns [ErrNoConfiguredServers] when no
// server has been configured.
func (r *Resolver) LookupHost(ctx context.Context, domain string) ([]string, error) {
	if len(r.servers) <= 0 {
		return nil, ErrNoConfiguredServers
	}

	// Emit structured event before the lookup
	t0 := r.emitLookupHostStart(ctx, domain)

	// Configure dnscore to perform the lookup proper
	reso := &dnscore.Resolver{}
	reso.Config = dnscore.NewConfig()
	for _, server := range r.servers {
		reso.Config.AddServer(server)
	}
	if r.DialContextFunc != nil {
		reso.Transport = &dnscore.Transport{
			DialContext: r.DialContextFunc,
		}
	}
	addrs, err := reso.LookupHost(ctx, domain)

	// Emit structured event after the lookup
	r.emitLookupHostDone(ctx, domain, t0, addrs, err)

	return addrs, err
}

// timeNow returns the current time for event timestamps.
func (r *Resolver) timeNow() time.Time {
	if r.TimeNow != nil {
		return r.TimeNow()
	}
	return time.Now()
}

// emitLookupHostStart emits a structured event before the lookup.
func (r *Resolver) emitLookupHostStart(ctx context.Context, domain string) time.Time {
	t0 := r.timeNow()
	if r.Logger != nil {
		r.Logger.InfoContext(
			ctx,
			"lookupHostStart",
			slog.String("domain", domain),
			slog.Time("t", t0),
		)
	}
	return t0
}

// emitLookupHostDone emits a structured event after the lookup.
func (r *Resolver) emitLookupHostDone(ctx context.Context,
	domain string, t0 time.Time, addrs []string, err error) {
	if r.Logger != nil {
		r.Logger.InfoContext(
			ctx,
			"lookupHostDone",
			slog.Any("addrs", addrs),
			slog.String("domain", domain),
			slog.Any("err", err),
			slog.String("errClass", errclass.New(err)),
			slog.Time("t0", t0),
			slog.Time("t", r.timeNow()),
		)
	}
}
