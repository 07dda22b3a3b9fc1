package chat

import (
	"bytes"
	"fmt"

	xdr "github.com/rasky/go-xdr/xdr2"
)

// xdrCodec implements the binary encoding. Every logical message is two
// frames: a type header frame carrying only the discriminator, then a frame
// whose bytes are the XDR encoding of the variant the discriminator names.
type xdrCodec struct{}

// typeHeader is the wire shape of the discriminator frame.
type typeHeader struct {
	Kind int32
}

func (xdrCodec) Name() string { return FormatBinary }

func (xdrCodec) Encode(msg Message) ([][]byte, error) {
	var header bytes.Buffer
	if _, err := xdr.Marshal(&header, typeHeader{Kind: int32(msg.Kind())}); err != nil {
		return nil, fmt.Errorf("encode %s type header: %w", msg.Kind(), err)
	}

	var payload bytes.Buffer
	if _, err := xdr.Marshal(&payload, msg); err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", msg.Kind(), err)
	}

	return [][]byte{header.Bytes(), payload.Bytes()}, nil
}

func (xdrCodec) NewDecoder() Decoder { return &xdrDecoder{} }

// xdrDecoder tracks the discriminator awaiting its payload frame. When the
// slot is empty the next frame is a type header; when set, the next frame is
// parsed under that variant and the slot is cleared.
type xdrDecoder struct {
	pending    MsgType
	hasPending bool
}

func (d *xdrDecoder) Decode(frame []byte) (Message, error) {
	if !d.hasPending {
		var header typeHeader
		if _, err := xdr.Unmarshal(bytes.NewReader(frame), &header); err != nil {
			return nil, fmt.Errorf("parse type header: %w", err)
		}
		kind := MsgType(header.Kind)
		if !kind.Valid() {
			return nil, fmt.Errorf("%w: %d", ErrUnknownType, header.Kind)
		}
		d.pending = kind
		d.hasPending = true
		return nil, nil
	}

	kind := d.pending
	d.hasPending = false

	msg := newMessage(kind)
	if _, err := xdr.Unmarshal(bytes.NewReader(frame), msg); err != nil {
		return nil, fmt.Errorf("parse %s payload: %w", kind, err)
	}
	return msg, nil
}
