package server

import (
	"sort"
	"sync"

	"github.com/dongY99/mju-backend-60182195/internal/logger"
	"github.com/dongY99/mju-backend-60182195/internal/protocol/chat"
)

// Room is one chat room. Members are tracked as client references; the
// registry lock guards the member set.
type Room struct {
	ID      int32
	Title   string
	members map[*Client]struct{}
}

// Registry holds every open room and allocates room ids. One mutex guards
// room creation and deletion, membership changes, and broadcast fan-out, so a
// room cannot be deleted nor its members mutated mid-broadcast.
type Registry struct {
	mu      sync.Mutex
	rooms   map[int32]*Room
	nextID  int32
	metrics *Metrics
}

// NewRegistry creates an empty registry. Room ids start at 1 and are never
// reused.
func NewRegistry(m *Metrics) *Registry {
	return &Registry{
		rooms:   make(map[int32]*Room),
		nextID:  1,
		metrics: m,
	}
}

// CreateRoom allocates the next room id, creates the room with the given
// title, and adds the creator as its sole member.
func (r *Registry) CreateRoom(title string, creator *Client) *Room {
	r.mu.Lock()
	defer r.mu.Unlock()

	room := &Room{
		ID:      r.nextID,
		Title:   title,
		members: map[*Client]struct{}{creator: {}},
	}
	r.nextID++
	r.rooms[room.ID] = room
	creator.room.Store(room.ID)

	r.metrics.RoomsOpen.Inc()
	logger.Info("room created", "room_id", room.ID, "title", title, "creator", creator.Name())
	return room
}

// Join adds the client to the room with the given id. Returns the room title
// and false when no such room exists.
func (r *Registry) Join(id int32, c *Client) (title string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, exists := r.rooms[id]
	if !exists {
		return "", false
	}
	room.members[c] = struct{}{}
	c.room.Store(id)
	return room.Title, true
}

// Leave removes the client from its current room, deleting the room when it
// becomes empty. The returned title is read before any deletion. reason tags
// the deletion log line ("leave" or "disconnect").
func (r *Registry) Leave(c *Client, reason string) (title string, inRoom bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(c, reason)
}

func (r *Registry) leaveLocked(c *Client, reason string) (title string, inRoom bool) {
	id := c.room.Load()
	if id == 0 {
		return "", false
	}
	room, exists := r.rooms[id]
	c.room.Store(0)
	if !exists {
		return "", false
	}

	title = room.Title
	delete(room.members, c)
	if len(room.members) == 0 {
		delete(r.rooms, id)
		r.metrics.RoomsOpen.Dec()
		logger.Info("room deleted", "room_id", id, "title", title, "reason", reason)
	}
	return title, true
}

// Snapshot lists every room with its members, ascending by room id.
func (r *Registry) Snapshot() []chat.RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]int32, 0, len(r.rooms))
	for id := range r.rooms {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	infos := make([]chat.RoomInfo, 0, len(ids))
	for _, id := range ids {
		room := r.rooms[id]
		members := make([]string, 0, len(room.members))
		for m := range room.members {
			members = append(members, m.Name())
		}
		sort.Strings(members)
		infos = append(infos, chat.RoomInfo{
			RoomID:  room.ID,
			Title:   room.Title,
			Members: members,
		})
	}
	return infos
}

// ForEachCoMember runs fn for every member of the sender's current room
// except the sender, holding the registry lock for the whole fan-out. A
// sender in the lobby fans out to nobody.
func (r *Registry) ForEachCoMember(sender *Client, fn func(peer *Client)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, exists := r.rooms[sender.room.Load()]
	if !exists {
		return
	}
	for member := range room.members {
		if member == sender {
			continue
		}
		fn(member)
	}
}

// Len returns the number of open rooms.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// Clear drops every room. Used on shutdown after all clients are closed.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.rooms {
		delete(r.rooms, id)
		r.metrics.RoomsOpen.Dec()
	}
}
