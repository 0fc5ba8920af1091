//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Sending data.
//

package netsock

import (
	"log/slog"

	"github.com/rbmk-project/common/errclass"
)

// Send performs a single write of data, returning the number of bytes
// actually accepted by the OS, which may be less than len(data). It
// returns a [*StateError] when the endpoint is not connected and a
// [*IOError] when the write fails.
//
// Sends have no timeout: a stalled write blocks indefinitely as the
// underlying transport does.
func (e *Endpoint) Send(data []byte) (int, error) {
	if !e.connected {
		return 0, &StateError{Op: "send", Reason: "endpoint is not connected"}
	}
	return e.send(data)
}

// SendAll writes the whole of data, looping over single writes until
// every byte has been accepted. Because a single write on a live
// connection cannot return zero without erroring, SendAll terminates
// with either the full count or an error alongside the partial count.
func (e *Endpoint) SendAll(data []byte) (int, error) {
	if !e.connected {
		return 0, &StateError{Op: "sendAll", Reason: "endpoint is not connected"}
	}
	return e.sendFull(data)
}

// PacketErrorSend behaves like [*Endpoint.Send] except that, with a
// fixed 15% probability, it discards the payload and reports it as
// fully sent without performing any I/O. This is fault injection for
// exercising loss-tolerant protocols layered above a reliable
// transport, not a transport feature.
//
// The connection precondition is validated before drawing, so misuse
// on an unconnected endpoint is reported even when the draw would
// have dropped the payload.
func (e *Endpoint) PacketErrorSend(data []byte) (int, error) {
	if !e.connected {
		return 0, &StateError{Op: "packetErrorSend", Reason: "endpoint is not connected"}
	}
	if e.randIntN(100) < dropRate {
		e.emitPacketDropped(len(data))
		return len(data), nil
	}
	return e.send(data)
}

// sendFull loops single writes until data is fully accepted.
func (e *Endpoint) sendFull(data []byte) (int, error) {
	var sent int
	for sent < len(data) {
		count, err := e.send(data[sent:])
		if err != nil {
			return sent, err
		}
		sent += count
	}
	return sent, nil
}

// send performs a single write along with its event pair.
func (e *Endpoint) send(data []byte) (int, error) {
	t0 := e.timeNow()
	if e.Logger != nil {
		e.Logger.InfoContext(
			e.logctx(),
			"writeStart",
			slog.Int("ioBufferSize", len(data)),
			slog.String("localAddr", e.laddr),
			slog.String("protocol", e.transport.String()),
			slog.String("remoteAddr", e.raddr),
			slog.Time("t", t0),
		)
	}

	count, err := e.system().Write(e.fd, data)
	if err != nil {
		count = 0
		err = &IOError{Op: "send", Err: err}
	}

	if e.Logger != nil {
		e.Logger.InfoContext(
			e.logctx(),
			"writeDone",
			slog.Int("ioBytesCount", count),
			slog.Any("err", err),
			slog.String("errClass", errclass.New(err)),
			slog.String("localAddr", e.laddr),
			slog.String("protocol", e.transport.String()),
			slog.String("remoteAddr", e.raddr),
			slog.Time("t0", t0),
			slog.Time("t", e.timeNow()),
		)
	}

	return count, err
}

// emitPacketDropped emits a structured event for a simulated loss.
func (e *Endpoint) emitPacketDropped(size int) {
	if e.Logger != nil {
		e.Logger.InfoContext(
			e.logctx(),
			"packetDropped",
			slog.Int("ioBufferSize", size),
			slog.String("localAddr", e.laddr),
			slog.String("protocol", e.transport.String()),
			slog.String("remoteAddr", e.raddr),
			slog.Time("t", e.timeNow()),
		)
	}
}
