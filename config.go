//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Endpoint configuration, cloning, and moving.
//

package netsock

import "time"

// Network returns the configured network-layer protocol.
func (e *Endpoint) Network() NetworkProtocol {
	return e.network
}

// SetNetwork reconfigures the network-layer protocol. It returns a
// [*StateError] when the endpoint has an OS handle and a
// [*ValidationError] when the protocol is out of range.
func (e *Endpoint) SetNetwork(p NetworkProtocol) error {
	if e.fd != -1 {
		return &StateError{Op: "setNetwork", Reason: "endpoint is open"}
	}
	switch p {
	case NetworkAny, NetworkIPv4, NetworkIPv6:
		e.network = p
		return nil
	default:
		return &ValidationError{Reason: "unknown network protocol"}
	}
}

// Transport returns the configured transport-layer protocol.
func (e *Endpoint) Transport() TransportProtocol {
	return e.transport
}

// SetTransport reconfigures the transport-layer protocol. It returns
// a [*StateError] when the endpoint has an OS handle and a
// [*ValidationError] unless the transport is [TransportTCP].
func (e *Endpoint) SetTransport(p TransportProtocol) error {
	if e.fd != -1 {
		return &StateError{Op: "setTransport", Reason: "endpoint is open"}
	}
	if p == TransportUDP {
		return &ValidationError{Reason: "only TCP endpoints are supported"}
	}
	if p != TransportTCP {
		return &ValidationError{Reason: "unknown transport protocol"}
	}
	e.transport = p
	return nil
}

// Backlog returns the pending-connection backlog used when listening.
func (e *Endpoint) Backlog() int {
	return e.backlog
}

// SetBacklog changes the backlog used by the next [*Endpoint.Listen].
// It returns a [*ValidationError] when the backlog is negative and a
// [*StateError] when the endpoint is already listening.
func (e *Endpoint) SetBacklog(backlog int) error {
	if backlog < 0 {
		return &ValidationError{Reason: "negative backlog"}
	}
	if e.listening {
		return &StateError{Op: "setBacklog", Reason: "endpoint is listening"}
	}
	e.backlog = backlog
	return nil
}

// Timeout returns the configured receive timeout. A zero timeout
// means receive operations block indefinitely.
func (e *Endpoint) Timeout() time.Duration {
	return e.timeout
}

// SetTimeout bounds each subsequent single receive by the given
// duration. A zero timeout disables the bound, it never means
// polling. SetTimeout returns a [*ValidationError] when the timeout
// is negative.
func (e *Endpoint) SetTimeout(timeout time.Duration) error {
	if timeout < 0 {
		return &ValidationError{Reason: "negative timeout"}
	}
	e.timeout = timeout
	return nil
}

// ChunkSize returns the transfer size in bytes used by receive
// operations when no explicit size is given.
func (e *Endpoint) ChunkSize() int {
	return e.chunkSize
}

// SetChunkSize changes the transfer size used by unsized receives.
// Values < 1 are ignored.
func (e *Endpoint) SetChunkSize(size int) {
	if size >= 1 {
		e.chunkSize = size
	}
}

// Clone returns a new closed [*Endpoint] with the same configuration
// and collaborators as e. It returns a [*StateError] when e has an
// OS handle, since the identity of an open endpoint cannot be
// duplicated.
func (e *Endpoint) Clone() (*Endpoint, error) {
	if e.fd != -1 {
		return nil, &StateError{Op: "clone", Reason: "endpoint is open"}
	}
	return &Endpoint{
		Logger:         e.Logger,
		LookupHostFunc: e.LookupHostFunc,
		RandIntN:       e.RandIntN,
		TimeNow:        e.TimeNow,
		fd:             -1,
		network:        e.network,
		transport:      e.transport,
		backlog:        e.backlog,
		timeout:        e.timeout,
		chunkSize:      e.chunkSize,
		sys:            e.sys,
	}, nil
}

// CopyConfigFrom copies the configuration of other into e: the
// network and transport protocols, the backlog, the receive timeout,
// and the chunk size. Collaborators are not copied. It returns a
// [*StateError] when either endpoint has an OS handle.
func (e *Endpoint) CopyConfigFrom(other *Endpoint) error {
	if e.fd != -1 || other.fd != -1 {
		return &StateError{Op: "copyConfig", Reason: "endpoint is open"}
	}
	e.network = other.network
	e.transport = other.transport
	e.backlog = other.backlog
	e.timeout = other.timeout
	e.chunkSize = other.chunkSize
	return nil
}

// MoveFrom transfers the whole state of other into e: the OS handle,
// the listening and connected flags, the configuration, and the
// collaborators. Any handle previously owned by e is closed first.
// After the move, other is reset as if freshly constructed with
// [NetworkAny], [TransportTCP], and the default configuration.
//
// MoveFrom never fails. Moving an endpoint into itself is a no-op.
func (e *Endpoint) MoveFrom(other *Endpoint) {
	if e == other {
		return
	}
	_ = e.Close()

	e.Logger = other.Logger
	e.LookupHostFunc = other.LookupHostFunc
	e.RandIntN = other.RandIntN
	e.TimeNow = other.TimeNow
	e.network = other.network
	e.transport = other.transport
	e.listening = other.listening
	e.connected = other.connected
	e.backlog = other.backlog
	e.timeout = other.timeout
	e.chunkSize = other.chunkSize
	e.laddr = other.laddr
	e.raddr = other.raddr
	e.sys = other.sys

	ctx := other.ctx
	if fd := other.detach(); fd != -1 {
		e.attach(ctx, fd)
	} else {
		e.ctx = ctx
		e.fd = -1
	}

	other.reset()
}

// reset restores the state of a freshly constructed default endpoint.
// The caller must have detached the OS handle already, if any.
func (e *Endpoint) reset() {
	e.Logger = nil
	e.LookupHostFunc = nil
	e.RandIntN = nil
	e.TimeNow = nil
	e.ctx = nil
	e.fd = -1
	e.network = NetworkAny
	e.transport = TransportTCP
	e.listening = false
	e.connected = false
	e.backlog = DefaultBacklog
	e.timeout = 0
	e.chunkSize = DefaultChunkSize
	e.laddr = ""
	e.raddr = ""
	e.sys = nil
}
