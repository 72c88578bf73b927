// Package packet turns a stream of raw socket chunks into complete
// newline-terminated packets.
package packet

import (
	"bytes"
	"errors"
	"fmt"
)

// DefaultMaxSize is the hard ceiling for one packet when no explicit limit
// is configured.
const DefaultMaxSize = 10 * 1024 * 1024

// initialCapacity matches the receive buffer size, so a typical short
// packet never reallocates.
const initialCapacity = 1024

// ErrPacketTooLarge reports a pending packet that would exceed the
// configured maximum. The connection feeding the assembler must be aborted;
// no partial recovery is attempted.
var ErrPacketTooLarge = errors.New("packet exceeds maximum size")

// Assembler accumulates bytes until a newline completes a packet. The
// internal buffer grows by doubling up to the maximum and never shrinks for
// the lifetime of the connection, so a burst of large packets settles into
// a single allocation.
type Assembler struct {
	buf []byte
	max int
}

// NewAssembler returns an assembler with the given packet size ceiling.
// A non-positive max falls back to DefaultMaxSize.
func NewAssembler(max int) *Assembler {
	if max <= 0 {
		max = DefaultMaxSize
	}
	c := initialCapacity
	if c > max {
		c = max
	}
	return &Assembler{
		buf: make([]byte, 0, c),
		max: max,
	}
}

// Feed consumes one received chunk. Every complete packet it closes over
// (newline included) is passed to emit before Feed returns; a trailing
// piece with no newline is held for the next call. The emitted slice is
// the assembler's internal buffer and is only valid until emit returns.
//
// An emit error or ErrPacketTooLarge aborts the call; after
// ErrPacketTooLarge the assembler holds no usable state.
func (a *Assembler) Feed(chunk []byte, emit func(pkt []byte) error) error {
	for len(chunk) > 0 {
		sub := chunk
		complete := false
		if i := bytes.IndexByte(chunk, '\n'); i >= 0 {
			sub = chunk[:i+1]
			complete = true
		}

		if len(a.buf)+len(sub) > a.max {
			return fmt.Errorf("%w (%d + %d > %d)", ErrPacketTooLarge, len(a.buf), len(sub), a.max)
		}
		a.grow(len(sub))
		a.buf = append(a.buf, sub...)
		chunk = chunk[len(sub):]

		if complete {
			if err := emit(a.buf); err != nil {
				return err
			}
			a.buf = a.buf[:0]
		}
	}
	return nil
}

// Pending returns how many bytes of an incomplete packet are currently
// held.
func (a *Assembler) Pending() int {
	return len(a.buf)
}

// Capacity returns the current allocation size of the pending buffer.
func (a *Assembler) Capacity() int {
	return cap(a.buf)
}

// grow ensures room for n more bytes, doubling the capacity until it fits
// and capping it at the packet maximum. The caller has already verified the
// result stays within the maximum.
func (a *Assembler) grow(n int) {
	need := len(a.buf) + n
	if need <= cap(a.buf) {
		return
	}
	newCap := cap(a.buf)
	if newCap == 0 {
		newCap = initialCapacity
	}
	for newCap < need {
		newCap *= 2
	}
	if newCap > a.max {
		newCap = a.max
	}
	grown := make([]byte, len(a.buf), newCap)
	copy(grown, a.buf)
	a.buf = grown
}
