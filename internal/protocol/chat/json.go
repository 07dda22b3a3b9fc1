package chat

import (
	"encoding/json"
	"fmt"
)

// jsonCodec implements the textual encoding: one self-describing JSON object
// per frame, carrying the discriminator in a "type" field alongside the
// payload fields.
type jsonCodec struct{}

func (jsonCodec) Name() string { return FormatTextual }

func (jsonCodec) Encode(msg Message) ([][]byte, error) {
	// Marshal the payload fields, then splice the discriminator in. Going
	// through a map keeps one encode path for every variant.
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.Kind(), err)
	}

	obj := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.Kind(), err)
	}
	name, err := json.Marshal(msg.Kind().String())
	if err != nil {
		return nil, err
	}
	obj["type"] = name

	payload, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.Kind(), err)
	}
	return [][]byte{payload}, nil
}

func (jsonCodec) NewDecoder() Decoder { return jsonDecoder{} }

// jsonDecoder is stateless; every frame is a complete message.
type jsonDecoder struct{}

func (jsonDecoder) Decode(frame []byte) (Message, error) {
	var envelope struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(frame, &envelope); err != nil {
		return nil, fmt.Errorf("parse message object: %w", err)
	}
	if envelope.Type == nil {
		return nil, ErrMissingType
	}

	kind, ok := KindFromName(*envelope.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, *envelope.Type)
	}

	msg := newMessage(kind)
	if err := json.Unmarshal(frame, msg); err != nil {
		return nil, fmt.Errorf("parse %s payload: %w", kind, err)
	}
	return msg, nil
}
