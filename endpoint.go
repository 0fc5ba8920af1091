//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Definition of Endpoint.
//

package netsock

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"runtime"
	"time"

	"github.com/rbmk-project/common/errclass"
)

// NetworkProtocol selects the network-layer protocol of an [*Endpoint].
type NetworkProtocol int

const (
	// NetworkAny admits both IPv4 and IPv6 addresses.
	NetworkAny = NetworkProtocol(iota)

	// NetworkIPv4 restricts the endpoint to IPv4 addresses.
	NetworkIPv4

	// NetworkIPv6 restricts the endpoint to IPv6 addresses.
	NetworkIPv6
)

// String implements [fmt.Stringer].
func (p NetworkProtocol) String() string {
	switch p {
	case NetworkAny:
		return "any"
	case NetworkIPv4:
		return "ipv4"
	case NetworkIPv6:
		return "ipv6"
	default:
		return "unknown"
	}
}

// TransportProtocol selects the transport-layer protocol of an [*Endpoint].
type TransportProtocol int

const (
	// TransportUDP identifies the UDP transport. UDP endpoints are
	// not supported yet and [New] rejects them.
	TransportUDP = TransportProtocol(iota)

	// TransportTCP identifies the TCP transport.
	TransportTCP
)

// String implements [fmt.Stringer].
func (p TransportProtocol) String() string {
	switch p {
	case TransportUDP:
		return "udp"
	case TransportTCP:
		return "tcp"
	default:
		return "unknown"
	}
}

const (
	// DefaultBacklog is the default pending-connection backlog used
	// when listening.
	DefaultBacklog = 5

	// DefaultChunkSize is the default transfer size in bytes used by
	// the receive operations when no explicit size is given.
	DefaultChunkSize = 1400

	// dropRate is the percent probability that [*Endpoint.PacketErrorSend]
	// silently discards the payload instead of sending it.
	dropRate = 15
)

// Endpoint is a connection-oriented stream socket owning at most one
// OS handle and providing deterministic, bounded, byte-exact I/O.
//
// Construct using [New]. The exported fields are optional collaborators
// that MAY be set before opening the endpoint.
//
// An Endpoint is meant for sequential use: it has no internal locking
// and concurrent method calls on the same instance are undefined
// behavior. Distinct endpoints are independent, so a listening endpoint
// and the connected endpoints produced by [*Endpoint.Accept] may be
// driven by different goroutines.
type Endpoint struct {
	// Logger is the optional structured logger emitting telemetry
	// events. If this field is nil, we do not emit any event.
	Logger *slog.Logger

	// LookupHostFunc is the optional function to resolve a domain
	// name to a list of IP addresses. If this field is nil, we use
	// the [net.DefaultResolver] LookupHost method.
	LookupHostFunc func(ctx context.Context, domain string) ([]string, error)

	// RandIntN is the optional function returning a uniform random
	// integer in [0, n), consumed by [*Endpoint.PacketErrorSend].
	// If this field is nil, we use [rand.IntN].
	RandIntN func(n int) int

	// TimeNow is the optional function returning the current time,
	// used for event timestamps. If this field is nil, we use
	// [time.Now].
	TimeNow func() time.Time

	// ctx is only used for logging events emitted after open.
	ctx context.Context

	// fd is the OS handle, or -1 when there is none.
	fd int

	// network is the configured network-layer protocol.
	network NetworkProtocol

	// transport is the configured transport-layer protocol.
	transport TransportProtocol

	// listening reports whether the endpoint is passively open.
	listening bool

	// connected reports whether the endpoint is connected to a peer.
	connected bool

	// backlog is the pending-connection backlog used when listening.
	backlog int

	// timeout bounds each single receive; zero means no bound.
	timeout time.Duration

	// chunkSize is the transfer size for unsized receives.
	chunkSize int

	// laddr and raddr cache the endpoint addresses for logging.
	laddr string
	raddr string

	// sys is the system call layer; nil selects the real one.
	sys sysops
}

// New constructs an [*Endpoint] using the given protocols and the
// default configuration: no OS handle, [DefaultBacklog] backlog,
// receive timeouts disabled, and [DefaultChunkSize] chunk size.
//
// Only [TransportTCP] endpoints are supported for now. New returns a
// [*ValidationError] when the transport is [TransportUDP] or either
// protocol is out of range.
func New(network NetworkProtocol, transport TransportProtocol) (*Endpoint, error) {
	if transport == TransportUDP {
		return nil, &ValidationError{Reason: "only TCP endpoints are supported"}
	}
	if transport != TransportTCP {
		return nil, &ValidationError{Reason: "unknown transport protocol"}
	}
	switch network {
	case NetworkAny, NetworkIPv4, NetworkIPv6:
	default:
		return nil, &ValidationError{Reason: "unknown network protocol"}
	}
	return &Endpoint{
		fd:        -1,
		network:   network,
		transport: transport,
		backlog:   DefaultBacklog,
		chunkSize: DefaultChunkSize,
	}, nil
}

// system returns the system call layer in use.
func (e *Endpoint) system() sysops {
	if e.sys != nil {
		return e.sys
	}
	return defaultSysops
}

// timeNow returns the current time for event timestamps.
func (e *Endpoint) timeNow() time.Time {
	if e.TimeNow != nil {
		return e.TimeNow()
	}
	return time.Now()
}

// randIntN returns a uniform random integer in [0, n).
func (e *Endpoint) randIntN(n int) int {
	if e.RandIntN != nil {
		return e.RandIntN(n)
	}
	return rand.IntN(n)
}

// logctx returns the context to use for logging events.
func (e *Endpoint) logctx() context.Context {
	if e.ctx != nil {
		return e.ctx
	}
	return context.Background()
}

// attach installs a newly created OS handle and arranges for it to be
// released if the endpoint is garbage collected while still open.
func (e *Endpoint) attach(ctx context.Context, fd int) {
	e.ctx = ctx
	e.fd = fd
	runtime.SetFinalizer(e, (*Endpoint).finalize)
}

// detach forgets the OS handle without closing it.
func (e *Endpoint) detach() int {
	fd := e.fd
	e.fd = -1
	runtime.SetFinalizer(e, nil)
	return fd
}

// finalize releases a leaked OS handle.
func (e *Endpoint) finalize() {
	if e.fd != -1 {
		_ = e.system().Close(e.fd)
		e.fd = -1
	}
}

// Close releases the OS handle, if any, and clears the listening and
// connected flags. Close is idempotent: closing an endpoint that has
// no handle does nothing and returns nil.
func (e *Endpoint) Close() error {
	if e.fd == -1 {
		return nil
	}

	t0 := e.timeNow()
	if e.Logger != nil {
		e.Logger.InfoContext(
			e.logctx(),
			"closeStart",
			slog.String("localAddr", e.laddr),
			slog.String("protocol", e.transport.String()),
			slog.String("remoteAddr", e.raddr),
			slog.Time("t", t0),
		)
	}

	fd := e.detach()
	e.listening = false
	e.connected = false
	err := e.system().Close(fd)

	if e.Logger != nil {
		e.Logger.InfoContext(
			e.logctx(),
			"closeDone",
			slog.Any("err", err),
			slog.String("errClass", errclass.New(err)),
			slog.String("localAddr", e.laddr),
			slog.String("protocol", e.transport.String()),
			slog.String("remoteAddr", e.raddr),
			slog.Time("t0", t0),
			slog.Time("t", e.timeNow()),
		)
	}

	e.laddr, e.raddr = "", ""
	return err
}

// Descriptor returns the OS handle, or -1 when the endpoint has none.
func (e *Endpoint) Descriptor() int {
	return e.fd
}

// IsListening reports whether the endpoint is passively open.
func (e *Endpoint) IsListening() bool {
	return e.listening
}

// IsConnected reports whether the endpoint is connected to a peer.
func (e *Endpoint) IsConnected() bool {
	return e.connected
}

// LocalAddr returns the address the endpoint is bound to. It returns
// a [*StateError] when the endpoint has no OS handle and a [*IOError]
// when the address cannot be obtained.
func (e *Endpoint) LocalAddr() (Addr, error) {
	if e.fd == -1 {
		return Addr{}, &StateError{Op: "localAddr", Reason: "endpoint is not open"}
	}
	addr, err := e.system().Getsockname(e.fd)
	if err != nil {
		return Addr{}, &IOError{Op: "localAddr", Err: err}
	}
	return addr, nil
}

// RemoteAddr returns the address of the connected peer. It returns a
// [*StateError] when the endpoint is not connected and a [*IOError]
// when the address cannot be obtained.
func (e *Endpoint) RemoteAddr() (Addr, error) {
	if !e.connected {
		return Addr{}, &StateError{Op: "remoteAddr", Reason: "endpoint is not connected"}
	}
	addr, err := e.system().Getpeername(e.fd)
	if err != nil {
		return Addr{}, &IOError{Op: "remoteAddr", Err: err}
	}
	return addr, nil
}
