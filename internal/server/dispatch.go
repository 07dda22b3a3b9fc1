package server

import (
	"fmt"

	"github.com/dongY99/mju-backend-60182195/internal/logger"
	"github.com/dongY99/mju-backend-60182195/internal/protocol/chat"
	"github.com/dongY99/mju-backend-60182195/internal/telemetry"
)

// Reply texts. These are part of the wire contract and must not be reworded.
const (
	msgNoRooms      = "개설된 방이 없습니다."
	msgCannotCreate = "대화 방에 있을 때는 방을 개설 할 수 없습니다."
	msgCannotJoin   = "대화 방에 있을 때는 다른 방에 들어갈 수 없습니다."
	msgNoSuchRoom   = "대화방이 존재하지 않습니다."
	msgNotInRoom    = "현재 대화방에 들어가 있지 않습니다."

	fmtRenamed  = "%s 의 이름이 %s 으로 변경되었습니다"
	fmtEntered  = "방제[%s] 방에 입장했습니다."
	fmtJoined   = "[%s] 님이 입장했습니다."
	fmtDeparted = "[%s] 님이 퇴장했습니다."
	fmtLeftRoom = "방제[%s] 대화 방에서 퇴장했습니다."
)

// handlerFunc processes one decoded request for one client.
type handlerFunc func(s *Server, c *Client, msg chat.Message)

var handlers = map[chat.MsgType]handlerFunc{
	chat.KindCSName:       (*Server).onName,
	chat.KindCSRooms:      (*Server).onRooms,
	chat.KindCSCreateRoom: (*Server).onCreateRoom,
	chat.KindCSJoinRoom:   (*Server).onJoinRoom,
	chat.KindCSLeaveRoom:  (*Server).onLeaveRoom,
	chat.KindCSChat:       (*Server).onChat,
	chat.KindCSShutdown:   (*Server).onShutdown,
}

// dispatch routes one decoded message to its handler. Server→client kinds
// arriving inbound have no handler and count as protocol errors.
func (s *Server) dispatch(c *Client, msg chat.Message) error {
	kind := msg.Kind()
	h, ok := handlers[kind]
	if !ok {
		return fmt.Errorf("%w: %s", chat.ErrUnknownType, kind)
	}

	_, span := telemetry.StartSpan(s.shutdownCtx, "chat."+kind.String())
	defer span.End()

	s.metrics.MessagesTotal.WithLabelValues(kind.String()).Inc()
	h(s, c, msg)
	return nil
}

// onName renames the client. The announcement is composed with the old name,
// the rename applied, then the same text goes to the author and, when the
// client is in a room, to its co-members.
func (s *Server) onName(c *Client, msg chat.Message) {
	req := msg.(*chat.CSName)

	old := c.SetName(req.Name)
	announce := &chat.SCSystemMessage{Text: fmt.Sprintf(fmtRenamed, old, req.Name)}

	s.sendTo(c, announce)
	if c.RoomID() != 0 {
		s.broadcast(c, announce)
	}
}

// onRooms replies with every open room, ascending by id, or a notice when
// none exist.
func (s *Server) onRooms(c *Client, _ chat.Message) {
	rooms := s.registry.Snapshot()
	if len(rooms) == 0 {
		s.sendTo(c, &chat.SCSystemMessage{Text: msgNoRooms})
		return
	}
	s.sendTo(c, &chat.SCRoomsResult{Rooms: rooms})
}

// onCreateRoom creates a room and makes the author its sole member.
func (s *Server) onCreateRoom(c *Client, msg chat.Message) {
	req := msg.(*chat.CSCreateRoom)

	if c.RoomID() != 0 {
		s.sendTo(c, &chat.SCSystemMessage{Text: msgCannotCreate})
		return
	}

	room := s.registry.CreateRoom(req.Title, c)
	s.sendTo(c, &chat.SCSystemMessage{Text: fmt.Sprintf(fmtEntered, room.Title)})
}

// onJoinRoom joins an existing room. Existing members hear about the join
// before the author gets its reply.
func (s *Server) onJoinRoom(c *Client, msg chat.Message) {
	req := msg.(*chat.CSJoinRoom)

	if c.RoomID() != 0 {
		s.sendTo(c, &chat.SCSystemMessage{Text: msgCannotJoin})
		return
	}

	title, ok := s.registry.Join(req.RoomID, c)
	if !ok {
		s.sendTo(c, &chat.SCSystemMessage{Text: msgNoSuchRoom})
		return
	}

	s.broadcast(c, &chat.SCSystemMessage{Text: fmt.Sprintf(fmtJoined, c.Name())})
	s.sendTo(c, &chat.SCSystemMessage{Text: fmt.Sprintf(fmtEntered, title)})
}

// onLeaveRoom announces the departure to co-members, removes the client, and
// deletes the room when it empties. The title in the author reply is read
// before any deletion.
func (s *Server) onLeaveRoom(c *Client, _ chat.Message) {
	if c.RoomID() == 0 {
		s.sendTo(c, &chat.SCSystemMessage{Text: msgNotInRoom})
		return
	}

	s.broadcast(c, &chat.SCSystemMessage{Text: fmt.Sprintf(fmtDeparted, c.Name())})

	title, inRoom := s.registry.Leave(c, "leave")
	if !inRoom {
		s.sendTo(c, &chat.SCSystemMessage{Text: msgNotInRoom})
		return
	}
	s.sendTo(c, &chat.SCSystemMessage{Text: fmt.Sprintf(fmtLeftRoom, title)})
}

// onChat echoes the line to the author and fans it out to co-members.
func (s *Server) onChat(c *Client, msg chat.Message) {
	req := msg.(*chat.CSChat)

	if c.RoomID() == 0 {
		s.sendTo(c, &chat.SCSystemMessage{Text: msgNotInRoom})
		return
	}

	line := &chat.SCChat{Member: c.Name(), Text: req.Text}
	s.sendTo(c, line)
	s.broadcast(c, line)
}

// onShutdown triggers server shutdown. No reply; peers see their sockets
// close.
func (s *Server) onShutdown(c *Client, _ chat.Message) {
	logger.Info("shutdown requested", "client", c.Name(), "address", c.addr)
	s.initiateShutdown()
}

// sendTo encodes each message and writes its frames to the client. Send
// failures are logged; the broken transport surfaces on the reader's next
// read.
func (s *Server) sendTo(c *Client, msgs ...chat.Message) {
	for _, msg := range msgs {
		framed, err := s.encodeFramed(msg)
		if err != nil {
			logger.Error("encode reply failed", "kind", msg.Kind().String(), "error", err)
			return
		}
		if err := c.writeFrames(framed); err != nil {
			logger.Error("send failed", "client", c.addr, "error", err)
			return
		}
	}
}

// broadcast delivers messages to every co-member of the sender's room,
// excluding the sender. Encoding happens once, up front; the fan-out runs
// under the registry lock so membership cannot change mid-broadcast. A sender
// in the lobby broadcasts to nobody.
func (s *Server) broadcast(c *Client, msgs ...chat.Message) {
	blobs := make([][]byte, 0, len(msgs))
	for _, msg := range msgs {
		framed, err := s.encodeFramed(msg)
		if err != nil {
			logger.Error("encode broadcast failed", "kind", msg.Kind().String(), "error", err)
			return
		}
		blobs = append(blobs, framed)
	}

	s.registry.ForEachCoMember(c, func(peer *Client) {
		for _, framed := range blobs {
			if err := peer.writeFrames(framed); err != nil {
				logger.Error("broadcast send failed", "client", peer.addr, "error", err)
				return
			}
		}
		s.metrics.BroadcastDeliveriesTotal.Inc()
	})
}

// encodeFramed serializes one logical message into its length-prefixed wire
// bytes: one frame in the textual encoding, two in the binary encoding.
func (s *Server) encodeFramed(msg chat.Message) ([]byte, error) {
	payloads, err := s.codec.Encode(msg)
	if err != nil {
		return nil, err
	}
	var framed []byte
	for _, payload := range payloads {
		f, err := chat.EncodeFrame(payload)
		if err != nil {
			return nil, err
		}
		framed = append(framed, f...)
	}
	return framed, nil
}
