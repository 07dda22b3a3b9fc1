package chat

import (
	"encoding/binary"
	"fmt"
)

const (
	// HeaderSize is the length of the frame header on the wire.
	HeaderSize = 2

	// MaxPayloadSize is the largest payload a u16 length prefix can describe.
	MaxPayloadSize = 1<<16 - 1

	// ReadBatchSize is the most a single socket read consumes.
	ReadBatchSize = 64 << 10
)

// ErrFrameTooLarge is returned when an outbound payload exceeds MaxPayloadSize.
var ErrFrameTooLarge = fmt.Errorf("frame payload exceeds %d bytes", MaxPayloadSize)

// EncodeFrame prefixes payload with its big-endian u16 length.
func EncodeFrame(payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, ErrFrameTooLarge
	}
	framed := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint16(framed[:HeaderSize], uint16(len(payload)))
	copy(framed[HeaderSize:], payload)
	return framed, nil
}

// Reassembler accumulates raw socket bytes and yields complete frame payloads
// strictly in arrival order. pending is 0 while a header is awaited and the
// remaining payload length otherwise; zero-length frames complete immediately.
type Reassembler struct {
	buf     []byte
	pending int
	armed   bool // a header has been consumed and pending is meaningful
}

// Append adds bytes read from the socket to the accumulator.
func (r *Reassembler) Append(p []byte) {
	r.buf = append(r.buf, p...)
}

// Next extracts the next complete payload, or returns (nil, false) when the
// buffered bytes do not yet form one. The returned slice is a copy and stays
// valid across further Append calls. Zero-length payloads return an empty
// slice with ok == true.
func (r *Reassembler) Next() ([]byte, bool) {
	if !r.armed {
		if len(r.buf) < HeaderSize {
			return nil, false
		}
		r.pending = int(binary.BigEndian.Uint16(r.buf[:HeaderSize]))
		r.buf = r.buf[HeaderSize:]
		r.armed = true
	}

	if len(r.buf) < r.pending {
		return nil, false
	}

	payload := make([]byte, r.pending)
	copy(payload, r.buf[:r.pending])
	r.buf = r.buf[r.pending:]
	r.pending = 0
	r.armed = false
	return payload, true
}

// Buffered returns the number of accumulated bytes not yet consumed.
func (r *Reassembler) Buffered() int { return len(r.buf) }

// PendingLen returns the payload bytes still expected for the frame in
// progress, 0 when awaiting a header.
func (r *Reassembler) PendingLen() int {
	if !r.armed {
		return 0
	}
	return r.pending
}
