//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// NUL-terminated text transfer.
//

package netsock

import "errors"

// SendString writes the whole of s followed by exactly one NUL
// terminator, looping over single writes until every byte has been
// accepted. The returned count includes the terminator, so sending
// the empty string reports one byte.
func (e *Endpoint) SendString(s string) (int, error) {
	if !e.connected {
		return 0, &StateError{Op: "sendString", Reason: "endpoint is not connected"}
	}
	buf := make([]byte, 0, len(s)+1)
	buf = append(buf, s...)
	buf = append(buf, 0)
	return e.sendFull(buf)
}

// PacketErrorSendString is the simulated-loss variant of
// [Endpoint.SendString]: with 15% probability it pretends the whole
// NUL-terminated payload was delivered without performing any I/O.
// Either way the reported count includes the terminator.
func (e *Endpoint) PacketErrorSendString(s string) (int, error) {
	if !e.connected {
		return 0, &StateError{Op: "packetErrorSend", Reason: "endpoint is not connected"}
	}
	if e.randIntN(100) < dropRate {
		e.emitPacketDropped(len(s) + 1)
		return len(s) + 1, nil
	}
	return e.SendString(s)
}

// RecvString receives bytes one at a time until a NUL terminator
// arrives or max bytes of text have been gathered, replacing *s with
// the text before the terminator. A max < 1 falls back to the
// configured chunk size.
//
// The terminator is consumed but not stored. When the cap is hit
// first, the gathered text is stored and everything beyond it,
// including the not yet seen terminator, stays in the OS buffer for a
// subsequent call to resume from. Reading one byte at a time is what
// guarantees that bytes after the terminator are never consumed.
//
// The returned count is the number of bytes consumed from the
// stream, including the terminator when seen: a complete string
// satisfies count == len(*s)+1. On error, *s still holds the text
// gathered before the failure, and an expired timeout reports the
// consumed byte count through the Partial field of [*TimeoutError].
//
// Without a configured timeout, a peer that stalls before sending
// the terminator blocks RecvString indefinitely.
func (e *Endpoint) RecvString(s *string, max int) (int, error) {
	if !e.connected {
		return 0, &StateError{Op: "recvString", Reason: "endpoint is not connected"}
	}
	if max < 1 {
		max = e.chunkSize
	}

	var (
		consumed int
		gathered = make([]byte, 0, max)
		one      [1]byte
	)
	defer func() { *s = string(gathered) }()
	for len(gathered) < max {
		count, err := e.recv(one[:])
		if err != nil {
			var timeout *TimeoutError
			if errors.As(err, &timeout) {
				return consumed, &TimeoutError{Op: "recvString", Partial: consumed}
			}
			return consumed, err
		}
		if count == 0 {
			break // peer closed the connection
		}
		consumed++
		if one[0] == 0 {
			return consumed, nil
		}
		gathered = append(gathered, one[0])
	}
	return consumed, nil
}
