//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Accepting connections.
//

package netsock

import (
	"log/slog"
	"time"

	"github.com/rbmk-project/common/errclass"
)

// Accept blocks until a peer connects and returns a new connected
// [*Endpoint] for the conversation. The child endpoint shares the
// parent's protocols and collaborators and starts from the default
// backlog, receive timeout, and chunk size.
//
// Accept returns a [*StateError] when the endpoint is not listening
// and a [*ConnectionError] when accepting fails.
func (e *Endpoint) Accept() (*Endpoint, error) {
	if !e.listening {
		return nil, &StateError{Op: "accept", Reason: "endpoint is not listening"}
	}

	t0 := e.emitAcceptStart()

	conn, err := e.system().Accept(e.fd)
	if err != nil {
		err = &ConnectionError{Op: "accept", Err: err}
		e.emitAcceptDone("", t0, err)
		return nil, err
	}

	child := &Endpoint{
		Logger:         e.Logger,
		LookupHostFunc: e.LookupHostFunc,
		RandIntN:       e.RandIntN,
		TimeNow:        e.TimeNow,
		fd:             -1,
		network:        e.network,
		transport:      e.transport,
		backlog:        DefaultBacklog,
		chunkSize:      DefaultChunkSize,
		sys:            e.sys,
	}
	child.attach(e.logctx(), conn)
	child.connected = true
	if laddr, aerr := child.system().Getsockname(conn); aerr == nil {
		child.laddr = laddr.String()
	}
	if raddr, aerr := child.system().Getpeername(conn); aerr == nil {
		child.raddr = raddr.String()
	}

	e.emitAcceptDone(child.raddr, t0, nil)
	return child, nil
}

// emitAcceptStart emits a structured event before accepting.
func (e *Endpoint) emitAcceptStart() time.Time {
	t0 := e.timeNow()
	if e.Logger != nil {
		e.Logger.InfoContext(
			e.logctx(),
			"acceptStart",
			slog.String("localAddr", e.laddr),
			slog.String("protocol", e.transport.String()),
			slog.Time("t", t0),
		)
	}
	return t0
}

// emitAcceptDone emits a structured event after accepting.
func (e *Endpoint) emitAcceptDone(raddr string, t0 time.Time, err error) {
	if e.Logger != nil {
		e.Logger.InfoContext(
			e.logctx(),
			"acceptDone",
			slog.Any("err", err),
			slog.String("errClass", errclass.New(err)),
			slog.String("localAddr", e.laddr),
			slog.String("protocol", e.transport.String()),
			slog.String("remoteAddr", raddr),
			slog.Time("t0", t0),
			slog.Time("t", e.timeNow()),
		)
	}
}
