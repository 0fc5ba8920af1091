//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Active open.
//

package netsock

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/rbmk-project/common/errclass"
)

// Connect resolves host and service and connects the endpoint to the
// first address that accepts the connection. An empty host connects
// to the loopback address. The service may be a port number or a
// service name such as "https".
//
// The context controls name resolution only: once resolved, Connect
// proceeds synchronously. It returns a [*StateError] when the
// endpoint already has an OS handle, a [*ValidationError] when the
// service cannot be mapped to a port, a [*ConnectionError] wrapping
// [ErrNoAddresses] when no address matches the configured network
// protocol, and otherwise the union of the per-address connect
// errors.
func (e *Endpoint) Connect(ctx context.Context, host, service string) error {
	port, err := e.resolveService(ctx, service)
	if err != nil {
		return err
	}
	return e.ConnectPort(ctx, host, port)
}

// ConnectPort is like [*Endpoint.Connect] with a numeric port.
func (e *Endpoint) ConnectPort(ctx context.Context, host string, port uint16) error {
	if e.fd != -1 {
		return &StateError{Op: "connect", Reason: "endpoint is already open"}
	}

	candidates, err := e.resolveAddrs(ctx, host, port, false)
	if err != nil {
		return err
	}

	// sequentially attempt with each candidate address
	var errv []error
	for _, addr := range candidates {
		err := e.connectAddr(ctx, addr)
		if err == nil {
			return nil
		}
		errv = append(errv, err)
	}
	return errors.Join(errv...)
}

// connectAddr attempts to connect to a single candidate address.
func (e *Endpoint) connectAddr(ctx context.Context, addr Addr) error {
	t0 := e.emitConnectStart(ctx, addr)

	fd, err := e.system().Socket(addr.Family())
	if err != nil {
		err = &ConnectionError{Op: "socket", Err: err}
		e.emitConnectDone(ctx, addr, t0, err)
		return err
	}
	if cerr := e.system().Connect(fd, addr); cerr != nil {
		_ = e.system().Close(fd)
		err = &ConnectionError{Op: "connect", Err: cerr}
		e.emitConnectDone(ctx, addr, t0, err)
		return err
	}

	e.attach(ctx, fd)
	e.connected = true
	if laddr, aerr := e.system().Getsockname(fd); aerr == nil {
		e.laddr = laddr.String()
	}
	e.raddr = addr.String()

	e.emitConnectDone(ctx, addr, t0, nil)
	return nil
}

// emitConnectStart emits a structured event before connecting.
func (e *Endpoint) emitConnectStart(ctx context.Context, addr Addr) time.Time {
	t0 := e.timeNow()
	if e.Logger != nil {
		e.Logger.InfoContext(
			ctx,
			"connectStart",
			slog.String("protocol", e.transport.String()),
			slog.String("remoteAddr", addr.String()),
			slog.Time("t", t0),
		)
	}
	return t0
}

// emitConnectDone emits a structured event after connecting.
func (e *Endpoint) emitConnectDone(ctx context.Context,
	addr Addr, t0 time.Time, err error) {
	if e.Logger != nil {
		e.Logger.InfoContext(
			ctx,
			"connectDone",
			slog.Any("err", err),
			slog.String("errClass", errclass.New(err)),
			slog.String("localAddr", e.laddr),
			slog.String("protocol", e.transport.String()),
			slog.String("remoteAddr", addr.String()),
			slog.Time("t0", t0),
			slog.Time("t", e.timeNow()),
		)
	}
}
