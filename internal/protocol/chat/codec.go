package chat

import (
	"errors"
	"fmt"
)

// Wire format names accepted by the server.
const (
	FormatTextual = "textual"
	FormatBinary  = "binary"
)

var (
	// ErrMissingType reports a textual object without a "type" field.
	ErrMissingType = errors.New("message is missing a 'type' field")

	// ErrUnknownType reports a discriminator that names no known variant.
	ErrUnknownType = errors.New("unknown message type")
)

// Codec serializes logical messages to wire frames and mints per-connection
// decoders. A logical message maps to one frame in the textual encoding and
// two frames (type header, then payload) in the binary encoding.
type Codec interface {
	// Name returns the format name the codec implements.
	Name() string

	// Encode serializes one message into its wire frame payloads, in send
	// order, each still to be length-prefixed by the frame layer.
	Encode(msg Message) ([][]byte, error)

	// NewDecoder returns a fresh decoder. Decoders carry per-connection
	// state (the binary pending type) and must not be shared.
	NewDecoder() Decoder
}

// Decoder consumes one frame payload at a time. A nil message with a nil
// error means the frame was consumed as partial state (a binary type header)
// and the next frame completes the message.
type Decoder interface {
	Decode(frame []byte) (Message, error)
}

// ForFormat returns the codec for a wire format name.
func ForFormat(name string) (Codec, error) {
	switch name {
	case FormatTextual:
		return jsonCodec{}, nil
	case FormatBinary:
		return xdrCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown wire format %q", name)
	}
}
