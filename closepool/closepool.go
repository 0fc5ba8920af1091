// SPDX-License-Identifier: GPL-3.0-or-later

// Package closepool collects [io.Closer] instances, typically
// endpoints, and releases them in a single operation.
//
// A typical use is tearing down a listening endpoint together with
// the connected endpoints its accept loop produced, regardless of
// which code path unwinds first.
package closepool

import (
	"errors"
	"io"
	"slices"
	"sync"
)

// Pool collects a set of [io.Closer] to release together.
//
// The zero value is ready to use. Pool is safe for concurrent use,
// so an accept loop and the goroutines driving the accepted
// endpoints may share one.
type Pool struct {
	// handles contains the [io.Closer] to close.
	handles []io.Closer

	// mu provides mutual exclusion.
	mu sync.Mutex
}

// Add adds the given [io.Closer] to the pool.
func (p *Pool) Add(conn io.Closer) {
	p.mu.Lock()
	p.handles = append(p.handles, conn)
	p.mu.Unlock()
}

// Close closes everything inside the pool iterating in backward
// order, so endpoints accepted from a listener registered earlier
// are closed before the listener itself. The returned error is the
// join of all the errors that occurred while closing. Close empties
// the pool: calling it again is a no-op until more closers are
// added.
func (p *Pool) Close() error {
	// Lock and copy the [io.Closer] to close.
	p.mu.Lock()
	conns := p.handles
	p.handles = nil
	p.mu.Unlock()

	// Close all the [io.Closer].
	var errv []error
	for _, conn := range slices.Backward(conns) {
		if err := conn.Close(); err != nil {
			errv = append(errv, err)
		}
	}
	return errors.Join(errv...)
}
