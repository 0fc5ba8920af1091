//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Receiving data.
//

package netsock

import (
	"errors"
	"log/slog"
	"os"

	"github.com/rbmk-project/common/errclass"
)

// Recv performs a single bounded read into buf, returning the number
// of bytes received. A zero length buf returns zero immediately
// without touching the OS, the configured timeout, or the connection
// state.
//
// When a receive timeout is configured, Recv first waits for data to
// become ready, bounded by the timeout, and returns a [*TimeoutError]
// when the bound expires. When the OS read observes the end of the
// stream, the endpoint transitions to closed as a side effect and
// Recv returns zero.
//
// Recv returns a [*StateError] when the endpoint is not connected and
// a [*IOError] when the read fails.
func (e *Endpoint) Recv(buf []byte) (int, error) {
	if !e.connected {
		return 0, &StateError{Op: "recv", Reason: "endpoint is not connected"}
	}
	return e.recv(buf)
}

// RecvAll fills buf entirely, looping over single reads. It returns
// the number of bytes received, which is less than len(buf) only if
// the peer closed the stream first: a short return is not an error
// and leaves the endpoint closed. A timeout expiring mid-loop
// surfaces as a [*TimeoutError] whose Partial field reports the bytes
// accumulated so far, all of which are in buf.
func (e *Endpoint) RecvAll(buf []byte) (int, error) {
	if !e.connected {
		return 0, &StateError{Op: "recvAll", Reason: "endpoint is not connected"}
	}
	return e.recvFull(buf, "recvAll")
}

// RecvBytes performs a single receive into *data, replacing its
// content with exactly the received bytes. A size < 1 falls back to
// the configured chunk size when *data is empty and to len(*data)
// otherwise, so a caller can reuse a correctly sized buffer across
// calls without restating the size. On error, *data is unchanged.
func (e *Endpoint) RecvBytes(data *[]byte, size int) (int, error) {
	if !e.connected {
		return 0, &StateError{Op: "recvBytes", Reason: "endpoint is not connected"}
	}
	size = e.effectiveSize(len(*data), size)
	buf := make([]byte, size)
	count, err := e.recv(buf)
	if err != nil {
		return 0, err
	}
	*data = buf[:count]
	return count, nil
}

// RecvAllBytes is the repeat-until-complete variant of
// [*Endpoint.RecvBytes]: it keeps reading until size bytes arrived or
// the peer closed the stream. Unlike the single receive, on error
// *data holds the bytes accumulated before the failure.
func (e *Endpoint) RecvAllBytes(data *[]byte, size int) (int, error) {
	if !e.connected {
		return 0, &StateError{Op: "recvAllBytes", Reason: "endpoint is not connected"}
	}
	size = e.effectiveSize(len(*data), size)
	buf := make([]byte, size)
	count, err := e.recvFull(buf, "recvAllBytes")
	*data = buf[:count]
	return count, err
}

// effectiveSize maps an unspecified size to the chunk size for an
// empty destination and to the destination's current length
// otherwise.
func (e *Endpoint) effectiveSize(current, size int) int {
	if size >= 1 {
		return size
	}
	if current == 0 {
		return e.chunkSize
	}
	return current
}

// recvFull loops single receives until buf is full or the stream
// ends, reporting a timeout along with the accumulated byte count.
func (e *Endpoint) recvFull(buf []byte, op string) (int, error) {
	var rcvd int
	for rcvd < len(buf) {
		count, err := e.recv(buf[rcvd:])
		if err != nil {
			var timeout *TimeoutError
			if errors.As(err, &timeout) {
				return rcvd, &TimeoutError{Op: op, Partial: rcvd}
			}
			return rcvd, err
		}
		if count == 0 {
			break // peer closed the connection
		}
		rcvd += count
	}
	return rcvd, nil
}

// recv performs a single read along with its event pair.
func (e *Endpoint) recv(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}

	t0 := e.timeNow()
	if e.Logger != nil {
		e.Logger.InfoContext(
			e.logctx(),
			"readStart",
			slog.Int("ioBufferSize", len(buf)),
			slog.String("localAddr", e.laddr),
			slog.String("protocol", e.transport.String()),
			slog.String("remoteAddr", e.raddr),
			slog.Time("t", t0),
		)
	}

	count, err := e.doRecv(buf)

	if e.Logger != nil {
		e.Logger.InfoContext(
			e.logctx(),
			"readDone",
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

// doRecv waits for readability when a timeout is configured, then
// performs the read, closing the endpoint when the peer ended the
// stream.
func (e *Endpoint) doRecv(buf []byte) (int, error) {
	if e.timeout > 0 {
		if err := e.system().WaitReadable(e.fd, e.timeout); err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return 0, &TimeoutError{Op: "recv"}
			}
			return 0, &IOError{Op: "recv", Err: err}
		}
	}

	count, err := e.system().Read(e.fd, buf)
	if err != nil {
		return 0, &IOError{Op: "recv", Err: err}
	}
	if count == 0 {
		// end of stream: the peer closed the connection
		_ = e.Close()
	}
	return count, nil
}
