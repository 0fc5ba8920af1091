//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Passive open.
//

package netsock

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/rbmk-project/common/errclass"
)

// Listen resolves host and service and passively opens the endpoint
// on the first address it can bind. An empty host binds the wildcard
// address. The service may be a port number or a service name such
// as "https".
//
// The context controls name resolution only: once resolved, Listen
// proceeds synchronously. It returns a [*StateError] when the
// endpoint already has an OS handle, a [*ValidationError] when the
// service cannot be mapped to a port, a [*ConnectionError] wrapping
// [ErrNoAddresses] when no address matches the configured network
// protocol, and otherwise the union of the per-address errors.
func (e *Endpoint) Listen(ctx context.Context, host, service string) error {
	port, err := e.resolveService(ctx, service)
	if err != nil {
		return err
	}
	return e.ListenPort(ctx, host, port)
}

// ListenPort is like [*Endpoint.Listen] with a numeric port. Port 0
// asks the OS to choose an ephemeral port.
func (e *Endpoint) ListenPort(ctx context.Context, host string, port uint16) error {
	if e.fd != -1 {
		return &StateError{Op: "listen", Reason: "endpoint is already open"}
	}

	candidates, err := e.resolveAddrs(ctx, host, port, true)
	if err != nil {
		return err
	}

	endpoint := net.JoinHostPort(host, strconv.Itoa(int(port)))
	t0 := e.emitListenStart(ctx, endpoint)

	fd, err := e.bindFirst(candidates)
	if err == nil {
		// The socket is bound: now make it passive. A failure here
		// closes the socket rather than leaving it half open.
		if lerr := e.system().Listen(fd, e.backlog); lerr != nil {
			_ = e.system().Close(fd)
			err = &ConnectionError{Op: "listen", Err: lerr}
		}
	}
	if err == nil {
		e.attach(ctx, fd)
		e.listening = true
		if addr, aerr := e.system().Getsockname(fd); aerr == nil {
			e.laddr = addr.String()
		}
	}

	e.emitListenDone(ctx, endpoint, t0, err)
	return err
}

// bindFirst creates and binds a socket for the first workable
// candidate address, trying them in order. It returns the union of
// the per-address errors when every candidate fails.
func (e *Endpoint) bindFirst(candidates []Addr) (int, error) {
	var errv []error
	for _, addr := range candidates {
		fd, err := e.system().Socket(addr.Family())
		if err != nil {
			errv = append(errv, &ConnectionError{Op: "socket", Err: err})
			continue
		}
		if err := e.system().Bind(fd, addr); err != nil {
			_ = e.system().Close(fd)
			errv = append(errv, &ConnectionError{Op: "bind", Err: err})
			continue
		}
		return fd, nil
	}
	return -1, errors.Join(errv...)
}

// emitListenStart emits a structured event before listening.
func (e *Endpoint) emitListenStart(ctx context.Context, endpoint string) time.Time {
	t0 := e.timeNow()
	if e.Logger != nil {
		e.Logger.InfoContext(
			ctx,
			"listenStart",
			slog.Int("backlog", e.backlog),
			slog.String("localAddr", endpoint),
			slog.String("protocol", e.transport.String()),
			slog.Time("t", t0),
		)
	}
	return t0
}

// emitListenDone emits a structured event after listening.
func (e *Endpoint) emitListenDone(ctx context.Context,
	endpoint string, t0 time.Time, err error) {
	if e.Logger != nil {
		laddr := e.laddr
		if laddr == "" {
			laddr = endpoint
		}
		e.Logger.InfoContext(
			ctx,
			"listenDone",
			slog.Any("err", err),
			slog.String("errClass", errclass.New(err)),
			slog.String("localAddr", laddr),
			slog.String("protocol", e.transport.String()),
			slog.Time("t0", t0),
			slog.Time("t", e.timeNow()),
		)
	}
}
