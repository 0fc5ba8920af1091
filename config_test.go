// SPDX-License-Identifier: GPL-3.0-or-later

package netsock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEndpointSetNetwork(t *testing.T) {
	t.Run("valid protocol", func(t *testing.T) {
		epnt, err := New(NetworkAny, TransportTCP)
		assert.NoError(t, err)
		assert.NoError(t, epnt.SetNetwork(NetworkIPv6))
		assert.Equal(t, NetworkIPv6, epnt.Network())
	})

	t.Run("unknown protocol", func(t *testing.T) {
		epnt, err := New(NetworkAny, TransportTCP)
		assert.NoError(t, err)
		var verr *ValidationError
		assert.ErrorAs(t, epnt.SetNetwork(NetworkProtocol(44)), &verr)
		assert.Equal(t, NetworkAny, epnt.Network())
	})

	t.Run("open endpoint", func(t *testing.T) {
		epnt := newMockConnected(&mockSysops{})
		var serr *StateError
		assert.ErrorAs(t, epnt.SetNetwork(NetworkIPv4), &serr)
		assert.Equal(t, "setNetwork", serr.Op)
	})
}

func TestEndpointSetTransport(t *testing.T) {
	t.Run("TCP is accepted", func(t *testing.T) {
		epnt, err := New(NetworkAny, TransportTCP)
		assert.NoError(t, err)
		assert.NoError(t, epnt.SetTransport(TransportTCP))
	})

	t.Run("UDP is not supported", func(t *testing.T) {
		epnt, err := New(NetworkAny, TransportTCP)
		assert.NoError(t, err)
		var verr *ValidationError
		assert.ErrorAs(t, epnt.SetTransport(TransportUDP), &verr)
		assert.Equal(t, TransportTCP, epnt.Transport())
	})

	t.Run("unknown protocol", func(t *testing.T) {
		epnt, err := New(NetworkAny, TransportTCP)
		assert.NoError(t, err)
		var verr *ValidationError
		assert.ErrorAs(t, epnt.SetTransport(TransportProtocol(44)), &verr)
	})

	t.Run("open endpoint", func(t *testing.T) {
		epnt := newMockConnected(&mockSysops{})
		var serr *StateError
		assert.ErrorAs(t, epnt.SetTransport(TransportTCP), &serr)
		assert.Equal(t, "setTransport", serr.Op)
	})
}

func TestEndpointSetBacklog(t *testing.T) {
	t.Run("valid backlog", func(t *testing.T) {
		epnt, err := New(NetworkAny, TransportTCP)
		assert.NoError(t, err)
		assert.NoError(t, epnt.SetBacklog(128))
		assert.Equal(t, 128, epnt.Backlog())
	})

	t.Run("zero backlog", func(t *testing.T) {
		epnt, err := New(NetworkAny, TransportTCP)
		assert.NoError(t, err)
		assert.NoError(t, epnt.SetBacklog(0))
		assert.Equal(t, 0, epnt.Backlog())
	})

	t.Run("negative backlog", func(t *testing.T) {
		epnt, err := New(NetworkAny, TransportTCP)
		assert.NoError(t, err)
		var verr *ValidationError
		assert.ErrorAs(t, epnt.SetBacklog(-1), &verr)
		assert.Equal(t, DefaultBacklog, epnt.Backlog())
	})

	t.Run("listening endpoint", func(t *testing.T) {
		epnt := newMockConnected(&mockSysops{})
		epnt.connected, epnt.listening = false, true
		var serr *StateError
		assert.ErrorAs(t, epnt.SetBacklog(128), &serr)
		assert.Equal(t, "setBacklog", serr.Op)
		assert.Equal(t, DefaultBacklog, epnt.Backlog())
	})
}

func TestEndpointSetTimeout(t *testing.T) {
	t.Run("positive timeout", func(t *testing.T) {
		epnt, err := New(NetworkAny, TransportTCP)
		assert.NoError(t, err)
		assert.NoError(t, epnt.SetTimeout(time.Second))
		assert.Equal(t, time.Second, epnt.Timeout())
	})

	t.Run("zero disables the timeout", func(t *testing.T) {
		epnt, err := New(NetworkAny, TransportTCP)
		assert.NoError(t, err)
		assert.NoError(t, epnt.SetTimeout(time.Second))
		assert.NoError(t, epnt.SetTimeout(0))
		assert.Equal(t, time.Duration(0), epnt.Timeout())
	})

	t.Run("negative timeout", func(t *testing.T) {
		epnt, err := New(NetworkAny, TransportTCP)
		assert.NoError(t, err)
		var verr *ValidationError
		assert.ErrorAs(t, epnt.SetTimeout(-time.Second), &verr)
		assert.Equal(t, time.Duration(0), epnt.Timeout())
	})
}

func TestEndpointSetChunkSize(t *testing.T) {
	epnt, err := New(NetworkAny, TransportTCP)
	assert.NoError(t, err)

	epnt.SetChunkSize(512)
	assert.Equal(t, 512, epnt.ChunkSize())

	// out of range values are ignored
	epnt.SetChunkSize(0)
	assert.Equal(t, 512, epnt.ChunkSize())
	epnt.SetChunkSize(-44)
	assert.Equal(t, 512, epnt.ChunkSize())
}

func TestEndpointClone(t *testing.T) {
	t.Run("open endpoint", func(t *testing.T) {
		epnt := newMockConnected(&mockSysops{})
		clone, err := epnt.Clone()
		var serr *StateError
		assert.ErrorAs(t, err, &serr)
		assert.Equal(t, "clone", serr.Op)
		assert.Nil(t, clone)
	})

	t.Run("closed endpoint", func(t *testing.T) {
		mock := &mockSysops{}
		epnt, err := New(NetworkIPv6, TransportTCP)
		assert.NoError(t, err)
		assert.NoError(t, epnt.SetBacklog(64))
		assert.NoError(t, epnt.SetTimeout(time.Second))
		epnt.SetChunkSize(512)
		epnt.RandIntN = func(n int) int { return 42 }
		epnt.sys = mock

		clone, err := epnt.Clone()
		assert.NoError(t, err)

		// The clone carries the configuration and the collaborators
		// but never the identity of the source
		assert.Equal(t, -1, clone.Descriptor())
		assert.False(t, clone.IsListening())
		assert.False(t, clone.IsConnected())
		assert.Equal(t, NetworkIPv6, clone.Network())
		assert.Equal(t, TransportTCP, clone.Transport())
		assert.Equal(t, 64, clone.Backlog())
		assert.Equal(t, time.Second, clone.Timeout())
		assert.Equal(t, 512, clone.ChunkSize())
		assert.Equal(t, 42, clone.RandIntN(100))
		assert.Same(t, mock, clone.sys)
	})
}

func TestEndpointCopyConfigFrom(t *testing.T) {
	newConfigured := func(t *testing.T) *Endpoint {
		epnt, err := New(NetworkIPv4, TransportTCP)
		assert.NoError(t, err)
		assert.NoError(t, epnt.SetBacklog(64))
		assert.NoError(t, epnt.SetTimeout(time.Second))
		epnt.SetChunkSize(512)
		return epnt
	}

	t.Run("destination is open", func(t *testing.T) {
		epnt := newMockConnected(&mockSysops{})
		var serr *StateError
		assert.ErrorAs(t, epnt.CopyConfigFrom(newConfigured(t)), &serr)
		assert.Equal(t, "copyConfig", serr.Op)
	})

	t.Run("source is open", func(t *testing.T) {
		epnt, err := New(NetworkAny, TransportTCP)
		assert.NoError(t, err)
		var serr *StateError
		assert.ErrorAs(t, epnt.CopyConfigFrom(newMockConnected(&mockSysops{})), &serr)
	})

	t.Run("copies configuration only", func(t *testing.T) {
		source := newConfigured(t)
		source.RandIntN = func(n int) int { return 42 }

		epnt, err := New(NetworkAny, TransportTCP)
		assert.NoError(t, err)
		assert.NoError(t, epnt.CopyConfigFrom(source))

		assert.Equal(t, NetworkIPv4, epnt.Network())
		assert.Equal(t, TransportTCP, epnt.Transport())
		assert.Equal(t, 64, epnt.Backlog())
		assert.Equal(t, time.Second, epnt.Timeout())
		assert.Equal(t, 512, epnt.ChunkSize())

		// Collaborators do not travel with the configuration
		assert.Nil(t, epnt.RandIntN)
	})
}

func TestEndpointMoveFrom(t *testing.T) {
	t.Run("self move", func(t *testing.T) {
		epnt := newMockConnected(&mockSysops{})
		epnt.MoveFrom(epnt)
		assert.Equal(t, mockConnectedFd, epnt.Descriptor())
		assert.True(t, epnt.IsConnected())
	})

	t.Run("transfers everything and resets the source", func(t *testing.T) {
		// MockClose backs the finalizer the target inherits along
		// with the moved handle
		mock := &mockSysops{
			MockClose: func(fd int) error { return nil },
		}
		source := newMockConnected(mock)
		source.ctx = context.Background()
		source.RandIntN = func(n int) int { return 42 }
		assert.NoError(t, source.SetTimeout(time.Second))
		source.SetChunkSize(512)

		target, err := New(NetworkIPv6, TransportTCP)
		assert.NoError(t, err)
		target.MoveFrom(source)

		// The target took over the whole source state
		assert.Equal(t, mockConnectedFd, target.Descriptor())
		assert.True(t, target.IsConnected())
		assert.Equal(t, NetworkAny, target.Network())
		assert.Equal(t, time.Second, target.Timeout())
		assert.Equal(t, 512, target.ChunkSize())
		assert.Equal(t, "127.0.0.1:1234", target.laddr)
		assert.Equal(t, "1.1.1.1:443", target.raddr)
		assert.Equal(t, 42, target.RandIntN(100))
		assert.Same(t, mock, target.sys)

		// The source is as good as freshly constructed
		assert.Equal(t, -1, source.Descriptor())
		assert.False(t, source.IsConnected())
		assert.False(t, source.IsListening())
		assert.Equal(t, NetworkAny, source.Network())
		assert.Equal(t, TransportTCP, source.Transport())
		assert.Equal(t, DefaultBacklog, source.Backlog())
		assert.Equal(t, time.Duration(0), source.Timeout())
		assert.Equal(t, DefaultChunkSize, source.ChunkSize())
		assert.Nil(t, source.RandIntN)
		assert.Equal(t, "", source.laddr)
		assert.Equal(t, "", source.raddr)
	})

	t.Run("closes the handle owned by the target", func(t *testing.T) {
		var closed []int
		targetMock := &mockSysops{
			MockClose: func(fd int) error {
				closed = append(closed, fd)
				return nil
			},
		}
		target := newMockConnected(targetMock)

		source := newMockConnected(&mockSysops{
			MockClose: func(fd int) error { return nil },
		})
		source.fd = 9

		target.MoveFrom(source)
		assert.Equal(t, []int{mockConnectedFd}, closed)
		assert.Equal(t, 9, target.Descriptor())
	})

	t.Run("moving a closed endpoint", func(t *testing.T) {
		source, err := New(NetworkIPv4, TransportTCP)
		assert.NoError(t, err)
		assert.NoError(t, source.SetBacklog(64))

		target, err := New(NetworkAny, TransportTCP)
		assert.NoError(t, err)
		target.MoveFrom(source)

		assert.Equal(t, -1, target.Descriptor())
		assert.Equal(t, NetworkIPv4, target.Network())
		assert.Equal(t, 64, target.Backlog())
		assert.Equal(t, NetworkAny, source.Network())
		assert.Equal(t, DefaultBacklog, source.Backlog())
	})
}
