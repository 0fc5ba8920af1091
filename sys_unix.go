//go:build unix

//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// System call layer.
//

package netsock

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// sysops is the system call surface used by [*Endpoint]. The
// production implementation forwards to [golang.org/x/sys/unix];
// tests substitute function-based mocks to script partial writes,
// timeouts, and other conditions that real sockets rarely produce
// on demand.
type sysops interface {
	// Socket creates a blocking stream socket for the given family.
	Socket(family Family) (int, error)

	// Bind binds the socket to the given local address.
	Bind(fd int, addr Addr) error

	// Listen marks the socket as passive with the given backlog.
	Listen(fd int, backlog int) error

	// Connect synchronously connects the socket to the remote address.
	Connect(fd int, addr Addr) error

	// Accept blocks until a peer connection is ready and returns
	// the new connected socket.
	Accept(fd int) (int, error)

	// Getsockname returns the local address of the socket.
	Getsockname(fd int) (Addr, error)

	// Getpeername returns the remote address of the socket.
	Getpeername(fd int) (Addr, error)

	// Read performs a single read into buf.
	Read(fd int, buf []byte) (int, error)

	// Write performs a single write of buf.
	Write(fd int, buf []byte) (int, error)

	// WaitReadable blocks until the socket is readable or the
	// timeout expires, returning [os.ErrDeadlineExceeded] on expiry.
	WaitReadable(fd int, timeout time.Duration) error

	// Close releases the socket.
	Close(fd int) error
}

// unixSysops implements [sysops] using [golang.org/x/sys/unix].
//
// Read, Write, and Accept retry on EINTR: the Go runtime delivers
// preemption signals that may interrupt slow system calls.
type unixSysops struct{}

// defaultSysops is the [sysops] used when none is injected.
var defaultSysops sysops = unixSysops{}

// Socket implements [sysops].
func (unixSysops) Socket(family Family) (int, error) {
	af := unix.AF_INET
	if family == FamilyIPv6 {
		af = unix.AF_INET6
	}
	return unix.Socket(af, unix.SOCK_STREAM, 0)
}

// Bind implements [sysops].
func (unixSysops) Bind(fd int, addr Addr) error {
	return unix.Bind(fd, addr.Unix())
}

// Listen implements [sysops].
func (unixSysops) Listen(fd int, backlog int) error {
	return unix.Listen(fd, backlog)
}

// Connect implements [sysops].
func (unixSysops) Connect(fd int, addr Addr) error {
	return unix.Connect(fd, addr.Unix())
}

// Accept implements [sysops].
func (unixSysops) Accept(fd int) (int, error) {
	for {
		conn, _, err := unix.Accept(fd)
		if err == unix.EINTR {
			continue
		}
		return conn, err
	}
}

// Getsockname implements [sysops].
func (unixSysops) Getsockname(fd int) (Addr, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return Addr{}, err
	}
	return AddrFromUnix(sa)
}

// Getpeername implements [sysops].
func (unixSysops) Getpeername(fd int) (Addr, error) {
	sa, err := unix.Getpeername(fd)
	if err != nil {
		return Addr{}, err
	}
	return AddrFromUnix(sa)
}

// Read implements [sysops].
func (unixSysops) Read(fd int, buf []byte) (int, error) {
	for {
		count, err := unix.Read(fd, buf)
		if err == unix.EINTR {
			continue
		}
		return count, err
	}
}

// Write implements [sysops].
func (unixSysops) Write(fd int, buf []byte) (int, error) {
	for {
		count, err := unix.Write(fd, buf)
		if err == unix.EINTR {
			continue
		}
		return count, err
	}
}

// WaitReadable implements [sysops]. Unlike the calls above, poll(2)
// returns EINTR regardless of SA_RESTART, so the retry recomputes the
// remaining time from the original deadline.
func (unixSysops) WaitReadable(fd int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return os.ErrDeadlineExceeded
		}
		pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		n, err := unix.Poll(pfd, int(remaining.Milliseconds())+1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return os.ErrDeadlineExceeded
		}
		return nil
	}
}

// Close implements [sysops].
func (unixSysops) Close(fd int) error {
	return unix.Close(fd)
}
