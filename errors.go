//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Error taxonomy.
//

package netsock

import (
	"fmt"
	"os"
)

// ValidationError indicates that an argument or a configuration value
// is invalid. It is always detected before any I/O takes place.
type ValidationError struct {
	// Reason describes what was invalid.
	Reason string
}

// Error implements error.
func (e *ValidationError) Error() string {
	return "netsock: " + e.Reason
}

// StateError indicates an operation that is not valid in the
// endpoint's current lifecycle state.
type StateError struct {
	// Op is the name of the failed operation.
	Op string

	// Reason describes why the current state forbids the operation.
	Reason string
}

// Error implements error.
func (e *StateError) Error() string {
	return "netsock: " + e.Op + ": " + e.Reason
}

// ConnectionError indicates that name resolution yielded no usable
// candidate or that every bind/connect/accept attempt failed.
type ConnectionError struct {
	// Op is the name of the failed operation.
	Op string

	// Err is the underlying error. When several candidate
	// addresses failed in sequence, it joins their errors.
	Err error
}

// Error implements error.
func (e *ConnectionError) Error() string {
	return "netsock: " + e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error { return e.Err }

// IOError indicates an OS-level transport failure other than a clean
// end-of-stream, which is reported as a short result instead.
type IOError struct {
	// Op is the name of the failed operation.
	Op string

	// Err is the underlying error.
	Err error
}

// Error implements error.
func (e *IOError) Error() string {
	return "netsock: " + e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *IOError) Unwrap() error { return e.Err }

// TimeoutError indicates that the configured receive timeout elapsed
// before data became ready.
type TimeoutError struct {
	// Op is the name of the failed operation.
	Op string

	// Partial counts the bytes the failed operation had already
	// accumulated. It is zero for single-attempt receives and may
	// be nonzero for the repeat-until-complete paths, which can
	// time out mid-transfer.
	Partial int
}

// Error implements error.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("netsock: %s: timeout after %d bytes", e.Op, e.Partial)
}

// Timeout lets callers test for timeouts as they would with [net.Error].
func (e *TimeoutError) Timeout() bool { return true }

// Is makes [errors.Is] match [os.ErrDeadlineExceeded] so that error
// classification treats this error like any other expired I/O deadline.
func (e *TimeoutError) Is(target error) bool {
	return target == os.ErrDeadlineExceeded
}

// UnsupportedWidthError indicates a vector element width for which no
// byte-order conversion is defined.
type UnsupportedWidthError struct {
	// Width is the rejected element width in bytes.
	Width int
}

// Error implements error.
func (e *UnsupportedWidthError) Error() string {
	return fmt.Sprintf("netsock: unsupported element width: %d bytes", e.Width)
}
