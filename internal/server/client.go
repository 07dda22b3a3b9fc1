package server

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/dongY99/mju-backend-60182195/internal/protocol/chat"
)

// Client is the per-connection state for one chat session.
//
// Ownership rules: rx and dec are touched only by the worker running this
// client's current pass; the one-in-flight handshake (enqueued/passDone)
// guarantees at most one such worker at a time. The display name has its own
// lock because broadcasts and room listings read it from other workers. Room
// membership itself lives in the registry and is guarded by the registry lock.
type Client struct {
	conn net.Conn
	addr string

	// rx accumulates socket bytes; dec carries codec state (the binary
	// pending discriminator) across frames.
	rx  chat.Reassembler
	dec chat.Decoder

	nameMu sync.Mutex
	name   string

	// room is the current room id, 0 for the lobby.
	room atomic.Int32

	// enqueued is set while a pass for this client sits in the worker queue
	// or runs; the reader will not enqueue another until it clears.
	enqueued atomic.Bool

	// closing marks a transport or protocol fault; the reader tears the
	// session down when it observes it.
	closing atomic.Bool

	// passDone receives one signal per completed worker pass.
	passDone chan struct{}

	// sendMu serializes frame writes; broadcasts may target this socket
	// from a different worker than the one serving it.
	sendMu sync.Mutex

	teardownOnce sync.Once
}

func newClient(conn net.Conn, dec chat.Decoder) *Client {
	c := &Client{
		conn:     conn,
		addr:     conn.RemoteAddr().String(),
		dec:      dec,
		passDone: make(chan struct{}, 1),
	}
	c.name = peerName(conn)
	return c
}

// peerName derives the initial display name "(ip, port)" from the peer address.
func peerName(conn net.Conn) string {
	host, port, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return fmt.Sprintf("(%s)", conn.RemoteAddr())
	}
	return fmt.Sprintf("(%s, %s)", host, port)
}

// Name returns the current display name.
func (c *Client) Name() string {
	c.nameMu.Lock()
	defer c.nameMu.Unlock()
	return c.name
}

// SetName replaces the display name and returns the previous one.
func (c *Client) SetName(name string) (old string) {
	c.nameMu.Lock()
	defer c.nameMu.Unlock()
	old = c.name
	c.name = name
	return old
}

// RoomID returns the current room id, 0 when in the lobby.
func (c *Client) RoomID() int32 { return c.room.Load() }

// writeFrames writes pre-framed bytes to the socket, serialized per client.
func (c *Client) writeFrames(framed []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if _, err := c.conn.Write(framed); err != nil {
		return fmt.Errorf("send to %s: %w", c.addr, err)
	}
	return nil
}

// markClosing flags the session for teardown by its reader.
func (c *Client) markClosing() { c.closing.Store(true) }
