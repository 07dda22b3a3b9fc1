// Package chat defines the chat wire protocol: the message kinds exchanged
// between client and server, the length-prefixed frame layout, and the two
// interchangeable payload codecs (textual JSON and binary XDR).
package chat

// MsgType identifies a message variant on the wire. The textual codec carries
// it as the "type" field of each object; the binary codec sends it ahead of
// the payload in its own frame.
type MsgType int32

const (
	// Client → server
	KindCSName MsgType = iota + 1
	KindCSRooms
	KindCSCreateRoom
	KindCSJoinRoom
	KindCSLeaveRoom
	KindCSChat
	KindCSShutdown

	// Server → client
	KindSCSystemMessage
	KindSCRoomsResult
	KindSCChat
)

var kindNames = map[MsgType]string{
	KindCSName:          "CSName",
	KindCSRooms:         "CSRooms",
	KindCSCreateRoom:    "CSCreateRoom",
	KindCSJoinRoom:      "CSJoinRoom",
	KindCSLeaveRoom:     "CSLeaveRoom",
	KindCSChat:          "CSChat",
	KindCSShutdown:      "CSShutdown",
	KindSCSystemMessage: "SCSystemMessage",
	KindSCRoomsResult:   "SCRoomsResult",
	KindSCChat:          "SCChat",
}

var kindsByName = func() map[string]MsgType {
	m := make(map[string]MsgType, len(kindNames))
	for k, n := range kindNames {
		m[n] = k
	}
	return m
}()

// String returns the wire name of the kind ("CSName", "SCChat", ...).
func (k MsgType) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "Unknown"
}

// Valid reports whether k names a known message variant.
func (k MsgType) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// KindFromName resolves a wire name to its kind.
func KindFromName(name string) (MsgType, bool) {
	k, ok := kindsByName[name]
	return k, ok
}

// Message is a decoded wire message of any variant.
type Message interface {
	Kind() MsgType
}

// CSName asks the server to change the sender's display name.
type CSName struct {
	Name string `json:"name"`
}

// CSRooms asks for the list of open rooms.
type CSRooms struct{}

// CSCreateRoom creates a room with the given title and joins the creator.
type CSCreateRoom struct {
	Title string `json:"title"`
}

// CSJoinRoom joins an existing room by id.
type CSJoinRoom struct {
	RoomID int32 `json:"roomId"`
}

// CSLeaveRoom leaves the sender's current room.
type CSLeaveRoom struct{}

// CSChat sends a chat line to the sender's current room.
type CSChat struct {
	Text string `json:"text"`
}

// CSShutdown requests server shutdown.
type CSShutdown struct{}

// SCSystemMessage is a server notice delivered to one or more clients.
type SCSystemMessage struct {
	Text string `json:"text"`
}

// RoomInfo describes one room in an SCRoomsResult.
type RoomInfo struct {
	RoomID  int32    `json:"roomId"`
	Title   string   `json:"title"`
	Members []string `json:"members"`
}

// SCRoomsResult lists the open rooms, ascending by room id.
type SCRoomsResult struct {
	Rooms []RoomInfo `json:"rooms"`
}

// SCChat carries a chat line and its sender's display name.
type SCChat struct {
	Member string `json:"member"`
	Text   string `json:"text"`
}

func (*CSName) Kind() MsgType          { return KindCSName }
func (*CSRooms) Kind() MsgType         { return KindCSRooms }
func (*CSCreateRoom) Kind() MsgType    { return KindCSCreateRoom }
func (*CSJoinRoom) Kind() MsgType      { return KindCSJoinRoom }
func (*CSLeaveRoom) Kind() MsgType     { return KindCSLeaveRoom }
func (*CSChat) Kind() MsgType          { return KindCSChat }
func (*CSShutdown) Kind() MsgType      { return KindCSShutdown }
func (*SCSystemMessage) Kind() MsgType { return KindSCSystemMessage }
func (*SCRoomsResult) Kind() MsgType   { return KindSCRoomsResult }
func (*SCChat) Kind() MsgType          { return KindSCChat }

// newMessage allocates the empty variant for a kind, for decoders to fill.
func newMessage(k MsgType) Message {
	switch k {
	case KindCSName:
		return &CSName{}
	case KindCSRooms:
		return &CSRooms{}
	case KindCSCreateRoom:
		return &CSCreateRoom{}
	case KindCSJoinRoom:
		return &CSJoinRoom{}
	case KindCSLeaveRoom:
		return &CSLeaveRoom{}
	case KindCSChat:
		return &CSChat{}
	case KindCSShutdown:
		return &CSShutdown{}
	case KindSCSystemMessage:
		return &SCSystemMessage{}
	case KindSCRoomsResult:
		return &SCRoomsResult{}
	case KindSCChat:
		return &SCChat{}
	default:
		return nil
	}
}
