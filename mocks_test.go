// SPDX-License-Identifier: GPL-3.0-or-later

package netsock

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

// mockSysops is a function-based mock for the [sysops] interface
// allowing tests to script system call behavior. Calling a method
// whose function field is unset panics, which is how tests detect
// code paths that should have stayed away from the OS.
type mockSysops struct {
	MockSocket       func(family Family) (int, error)
	MockBind         func(fd int, addr Addr) error
	MockListen       func(fd int, backlog int) error
	MockConnect      func(fd int, addr Addr) error
	MockAccept       func(fd int) (int, error)
	MockGetsockname  func(fd int) (Addr, error)
	MockGetpeername  func(fd int) (Addr, error)
	MockRead         func(fd int, buf []byte) (int, error)
	MockWrite        func(fd int, buf []byte) (int, error)
	MockWaitReadable func(fd int, timeout time.Duration) error
	MockClose        func(fd int) error
}

var _ sysops = &mockSysops{}

// Socket implements sysops.
func (m *mockSysops) Socket(family Family) (int, error) {
	return m.MockSocket(family)
}

// Bind implements sysops.
func (m *mockSysops) Bind(fd int, addr Addr) error {
	return m.MockBind(fd, addr)
}

// Listen implements sysops.
func (m *mockSysops) Listen(fd int, backlog int) error {
	return m.MockListen(fd, backlog)
}

// Connect implements sysops.
func (m *mockSysops) Connect(fd int, addr Addr) error {
	return m.MockConnect(fd, addr)
}

// Accept implements sysops.
func (m *mockSysops) Accept(fd int) (int, error) {
	return m.MockAccept(fd)
}

// Getsockname implements sysops.
func (m *mockSysops) Getsockname(fd int) (Addr, error) {
	return m.MockGetsockname(fd)
}

// Getpeername implements sysops.
func (m *mockSysops) Getpeername(fd int) (Addr, error) {
	return m.MockGetpeername(fd)
}

// Read implements sysops.
func (m *mockSysops) Read(fd int, buf []byte) (int, error) {
	return m.MockRead(fd, buf)
}

// Write implements sysops.
func (m *mockSysops) Write(fd int, buf []byte) (int, error) {
	return m.MockWrite(fd, buf)
}

// WaitReadable implements sysops.
func (m *mockSysops) WaitReadable(fd int, timeout time.Duration) error {
	return m.MockWaitReadable(fd, timeout)
}

// Close implements sysops.
func (m *mockSysops) Close(fd int) error {
	return m.MockClose(fd)
}

// mockConnectedFd is the descriptor used by [newMockConnected].
const mockConnectedFd = 7

// newMockConnected returns an endpoint that behaves as if a connect
// from 127.0.0.1:1234 to 1.1.1.1:443 just succeeded, wired to the
// given system call layer. The descriptor is fake, so the endpoint
// carries no finalizer and leaks nothing when the test ends.
func newMockConnected(sys sysops) *Endpoint {
	return &Endpoint{
		fd:        mockConnectedFd,
		network:   NetworkAny,
		transport: TransportTCP,
		connected: true,
		backlog:   DefaultBacklog,
		chunkSize: DefaultChunkSize,
		laddr:     "127.0.0.1:1234",
		raddr:     "1.1.1.1:443",
		sys:       sys,
	}
}

// streamFeeder scripts MockRead to deliver the given stream at most
// chunk bytes per call, then end of stream.
type streamFeeder struct {
	data  []byte
	chunk int
}

// Read consumes from the stream like a socket read would.
func (f *streamFeeder) Read(fd int, buf []byte) (int, error) {
	count := min(len(buf), len(f.data))
	if f.chunk > 0 {
		count = min(count, f.chunk)
	}
	copy(buf, f.data[:count])
	f.data = f.data[count:]
	return count, nil
}

// newLogCapture creates a JSON logger writing one event per line into
// the returned buffer, with the default time attribute removed so
// that tests only deal with the explicit t0 and t attributes.
func newLogCapture() (*bytes.Buffer, *slog.Logger) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
	return &buf, logger
}

// logLines parses the captured log into one map per emitted event.
func logLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	var events []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var event map[string]interface{}
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			t.Fatal(err)
		}
		events = append(events, event)
	}
	return events
}
