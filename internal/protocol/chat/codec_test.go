package chat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, c Codec, msg Message) Message {
	t.Helper()

	frames, err := c.Encode(msg)
	require.NoError(t, err)

	dec := c.NewDecoder()
	var out Message
	for _, frame := range frames {
		out, err = dec.Decode(frame)
		require.NoError(t, err)
	}
	require.NotNil(t, out, "message did not complete after all frames")
	return out
}

var roundTripMessages = []Message{
	&CSName{Name: "alice"},
	&CSRooms{},
	&CSCreateRoom{Title: "방제목"},
	&CSJoinRoom{RoomID: 7},
	&CSLeaveRoom{},
	&CSChat{Text: "안녕하세요"},
	&CSShutdown{},
	&SCSystemMessage{Text: "개설된 방이 없습니다."},
	&SCRoomsResult{Rooms: []RoomInfo{
		{RoomID: 1, Title: "r1", Members: []string{"a", "b"}},
		{RoomID: 3, Title: "r3", Members: []string{"c"}},
	}},
	&SCChat{Member: "bob", Text: "hi"},
}

func TestJSONCodec_RoundTrip(t *testing.T) {
	c, err := ForFormat(FormatTextual)
	require.NoError(t, err)

	for _, msg := range roundTripMessages {
		assert.Equal(t, msg, roundTrip(t, c, msg), "kind %s", msg.Kind())
	}
}

func TestJSONCodec_OneFramePerMessage(t *testing.T) {
	c, err := ForFormat(FormatTextual)
	require.NoError(t, err)

	frames, err := c.Encode(&CSChat{Text: "x"})
	require.NoError(t, err)
	assert.Len(t, frames, 1)
}

func TestJSONCodec_TypeField(t *testing.T) {
	c, err := ForFormat(FormatTextual)
	require.NoError(t, err)

	frames, err := c.Encode(&CSName{Name: "alice"})
	require.NoError(t, err)

	var obj map[string]any
	require.NoError(t, json.Unmarshal(frames[0], &obj))
	assert.Equal(t, "CSName", obj["type"])
	assert.Equal(t, "alice", obj["name"])
}

func TestJSONCodec_MissingType(t *testing.T) {
	dec := jsonCodec{}.NewDecoder()
	_, err := dec.Decode([]byte(`{"name":"alice"}`))
	assert.ErrorIs(t, err, ErrMissingType)
}

func TestJSONCodec_UnknownType(t *testing.T) {
	dec := jsonCodec{}.NewDecoder()
	_, err := dec.Decode([]byte(`{"type":"CSNope"}`))
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestJSONCodec_Malformed(t *testing.T) {
	dec := jsonCodec{}.NewDecoder()
	_, err := dec.Decode([]byte(`{"type":`))
	assert.Error(t, err)
}

func TestXDRCodec_RoundTrip(t *testing.T) {
	c, err := ForFormat(FormatBinary)
	require.NoError(t, err)

	for _, msg := range roundTripMessages {
		assert.Equal(t, msg, roundTrip(t, c, msg), "kind %s", msg.Kind())
	}
}

// Every binary message is a type header frame followed by a payload frame.
func TestXDRCodec_TwoFramePattern(t *testing.T) {
	c, err := ForFormat(FormatBinary)
	require.NoError(t, err)

	frames, err := c.Encode(&CSJoinRoom{RoomID: 2})
	require.NoError(t, err)
	require.Len(t, frames, 2)

	dec := c.NewDecoder()
	msg, err := dec.Decode(frames[0])
	require.NoError(t, err)
	assert.Nil(t, msg, "type header alone must not complete a message")

	msg, err = dec.Decode(frames[1])
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, int32(2), msg.(*CSJoinRoom).RoomID)
}

// Field-less requests encode to an empty payload frame.
func TestXDRCodec_EmptyPayloadFrame(t *testing.T) {
	c, err := ForFormat(FormatBinary)
	require.NoError(t, err)

	frames, err := c.Encode(&CSRooms{})
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Empty(t, frames[1])
}

func TestXDRCodec_UnknownDiscriminator(t *testing.T) {
	c, err := ForFormat(FormatBinary)
	require.NoError(t, err)

	frames, err := c.Encode(&CSRooms{})
	require.NoError(t, err)

	// Corrupt the discriminator to an unassigned value.
	header := []byte{0, 0, 0, 99}
	dec := c.NewDecoder()
	_, err = dec.Decode(header)
	assert.ErrorIs(t, err, ErrUnknownType)

	// The decoder must still accept a fresh, valid exchange.
	msg, err := dec.Decode(frames[0])
	require.NoError(t, err)
	assert.Nil(t, msg)
	msg, err = dec.Decode(frames[1])
	require.NoError(t, err)
	assert.IsType(t, &CSRooms{}, msg)
}

func TestForFormat_Unknown(t *testing.T) {
	_, err := ForFormat("protobuf")
	assert.Error(t, err)
}

func TestKindNames(t *testing.T) {
	for kind, name := range kindNames {
		back, ok := KindFromName(name)
		require.True(t, ok)
		assert.Equal(t, kind, back)
	}
	_, ok := KindFromName("NoSuchKind")
	assert.False(t, ok)
}
