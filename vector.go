//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Fixed-width element transfer with byte-order conversion.
//

package netsock

import (
	"encoding/binary"
	"reflect"
)

// Element constrains vector elements to fixed-width integers. Only
// widths of 1, 2, and 4 bytes are transferable: wider elements are
// rejected at run time with a [*UnsupportedWidthError], since this
// layer deliberately does not attempt multi-word conversions.
type Element interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64 | ~int8 | ~int16 | ~int32 | ~int64
}

// The vector operations below are package functions rather than
// methods because Go methods cannot introduce type parameters.

// SendVector converts data to network byte order element by element
// and performs a single bounded send, returning the number of whole
// elements accepted, which may be less than len(data). When the OS
// accepts only part of an element, SendVector completes that element
// so the wire never carries a torn one.
func SendVector[T Element](e *Endpoint, data []T) (int, error) {
	width, err := elementWidth[T]()
	if err != nil {
		return 0, err
	}
	if !e.connected {
		return 0, &StateError{Op: "sendVector", Reason: "endpoint is not connected"}
	}
	return e.sendWholeElements(encodeElements(data, width), width)
}

// SendAllVector converts data to network byte order element by
// element and keeps writing until every element has been accepted.
func SendAllVector[T Element](e *Endpoint, data []T) (int, error) {
	width, err := elementWidth[T]()
	if err != nil {
		return 0, err
	}
	if !e.connected {
		return 0, &StateError{Op: "sendAllVector", Reason: "endpoint is not connected"}
	}
	count, err := e.sendFull(encodeElements(data, width))
	return count / width, err
}

// PacketErrorSendVector behaves like [SendVector] except that, with a
// fixed 15% probability, it discards the payload and reports every
// element as sent without performing any I/O, like
// [*Endpoint.PacketErrorSend] does for bytes.
func PacketErrorSendVector[T Element](e *Endpoint, data []T) (int, error) {
	width, err := elementWidth[T]()
	if err != nil {
		return 0, err
	}
	if !e.connected {
		return 0, &StateError{Op: "packetErrorSend", Reason: "endpoint is not connected"}
	}
	if e.randIntN(100) < dropRate {
		e.emitPacketDropped(len(data) * width)
		return len(data), nil
	}
	return e.sendWholeElements(encodeElements(data, width), width)
}

// RecvVector performs a single bounded receive of whole elements
// into *data, replacing its content with the elements converted back
// to host byte order. A size < 1 falls back to the configured chunk
// size, counted in elements, when *data is empty and to len(*data)
// otherwise. When the OS delivers only part of a trailing element,
// RecvVector keeps reading until that element completes.
func RecvVector[T Element](e *Endpoint, data *[]T, size int) (int, error) {
	width, err := elementWidth[T]()
	if err != nil {
		return 0, err
	}
	if !e.connected {
		return 0, &StateError{Op: "recvVector", Reason: "endpoint is not connected"}
	}
	size = e.effectiveSize(len(*data), size)
	buf := make([]byte, size*width)

	count, err := e.recv(buf)
	if err != nil {
		return 0, err
	}
	if rem := count % width; rem != 0 {
		extra, ferr := e.recvFull(buf[count:count+width-rem], "recvVector")
		count += extra
		err = ferr
	}

	// A stream ending mid-element leaves a remainder that cannot
	// form an element: it is dropped along with the connection.
	*data = decodeElements[T](buf[:count-count%width], width)
	return len(*data), err
}

// RecvAllVector is the repeat-until-complete variant of [RecvVector]:
// it keeps reading until size whole elements arrived or the peer
// closed the stream. On error, *data holds the whole elements
// accumulated before the failure, and an expired timeout reports the
// consumed byte count through the Partial field of [*TimeoutError].
func RecvAllVector[T Element](e *Endpoint, data *[]T, size int) (int, error) {
	width, err := elementWidth[T]()
	if err != nil {
		return 0, err
	}
	if !e.connected {
		return 0, &StateError{Op: "recvAllVector", Reason: "endpoint is not connected"}
	}
	size = e.effectiveSize(len(*data), size)
	buf := make([]byte, size*width)
	count, err := e.recvFull(buf, "recvAllVector")
	*data = decodeElements[T](buf[:count-count%width], width)
	return len(*data), err
}

// sendWholeElements performs a single bounded send of encoded
// elements, completing a torn trailing element when needed.
func (e *Endpoint) sendWholeElements(buf []byte, width int) (int, error) {
	count, err := e.send(buf)
	if err != nil {
		return 0, err
	}
	if rem := count % width; rem != 0 {
		extra, err := e.sendFull(buf[count : count+width-rem])
		count += extra
		if err != nil {
			return count / width, err
		}
	}
	return count / width, nil
}

// elementWidth returns the byte width of T, rejecting widths other
// than 1, 2, and 4.
func elementWidth[T Element]() (int, error) {
	var zero T
	width := int(reflect.TypeOf(zero).Size())
	switch width {
	case 1, 2, 4:
		return width, nil
	default:
		return 0, &UnsupportedWidthError{Width: width}
	}
}

// encodeElements converts elements to their big-endian wire form.
func encodeElements[T Element](data []T, width int) []byte {
	buf := make([]byte, 0, len(data)*width)
	for _, v := range data {
		switch width {
		case 1:
			buf = append(buf, byte(v))
		case 2:
			buf = binary.BigEndian.AppendUint16(buf, uint16(v))
		case 4:
			buf = binary.BigEndian.AppendUint32(buf, uint32(v))
		}
	}
	return buf
}

// decodeElements converts big-endian wire bytes back to elements.
func decodeElements[T Element](buf []byte, width int) []T {
	data := make([]T, 0, len(buf)/width)
	for i := 0; i+width <= len(buf); i += width {
		switch width {
		case 1:
			data = append(data, T(buf[i]))
		case 2:
			data = append(data, T(binary.BigEndian.Uint16(buf[i:])))
		case 4:
			data = append(data, T(binary.BigEndian.Uint32(buf[i:])))
		}
	}
	return data
}
