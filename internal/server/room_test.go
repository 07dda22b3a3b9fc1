package server

import (
	"net"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry() *Registry {
	return NewRegistry(NewMetrics(prometheus.NewRegistry()))
}

func testClientPair(t *testing.T) *Client {
	t.Helper()
	local, remote := net.Pipe()
	t.Cleanup(func() {
		_ = local.Close()
		_ = remote.Close()
	})
	return newClient(local, nil)
}

func TestRegistry_CreateRoom(t *testing.T) {
	reg := testRegistry()
	a := testClientPair(t)

	room := reg.CreateRoom("r1", a)
	assert.Equal(t, int32(1), room.ID)
	assert.Equal(t, "r1", room.Title)
	assert.Equal(t, int32(1), a.RoomID())
	assert.Equal(t, 1, reg.Len())
}

// Room ids are monotonically increasing and never reused, even after the
// room holding the highest id is deleted.
func TestRegistry_IDsNeverReused(t *testing.T) {
	reg := testRegistry()
	a := testClientPair(t)

	reg.CreateRoom("first", a)
	_, inRoom := reg.Leave(a, "leave")
	require.True(t, inRoom)
	require.Equal(t, 0, reg.Len())

	room := reg.CreateRoom("second", a)
	assert.Equal(t, int32(2), room.ID)
}

// Create immediately followed by leave empties the registry.
func TestRegistry_LeaveDeletesEmptyRoom(t *testing.T) {
	reg := testRegistry()
	a := testClientPair(t)

	reg.CreateRoom("r1", a)
	title, inRoom := reg.Leave(a, "leave")
	require.True(t, inRoom)
	assert.Equal(t, "r1", title)
	assert.Equal(t, int32(0), a.RoomID())
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_LeaveKeepsOccupiedRoom(t *testing.T) {
	reg := testRegistry()
	a := testClientPair(t)
	b := testClientPair(t)

	room := reg.CreateRoom("r1", a)
	_, ok := reg.Join(room.ID, b)
	require.True(t, ok)

	_, inRoom := reg.Leave(a, "leave")
	require.True(t, inRoom)
	assert.Equal(t, 1, reg.Len(), "room with a remaining member must survive")
	assert.Equal(t, room.ID, b.RoomID())
}

func TestRegistry_JoinMissingRoom(t *testing.T) {
	reg := testRegistry()
	a := testClientPair(t)

	_, ok := reg.Join(42, a)
	assert.False(t, ok)
	assert.Equal(t, int32(0), a.RoomID())
}

func TestRegistry_LeaveFromLobby(t *testing.T) {
	reg := testRegistry()
	a := testClientPair(t)

	_, inRoom := reg.Leave(a, "leave")
	assert.False(t, inRoom)
}

// Snapshot lists rooms ascending by id with member names.
func TestRegistry_SnapshotOrdering(t *testing.T) {
	reg := testRegistry()
	var members []*Client
	for i := 0; i < 3; i++ {
		c := testClientPair(t)
		c.SetName(string(rune('a' + i)))
		members = append(members, c)
	}

	reg.CreateRoom("one", members[0])
	reg.CreateRoom("two", members[1])
	reg.CreateRoom("three", members[2])

	infos := reg.Snapshot()
	require.Len(t, infos, 3)
	assert.Equal(t, []int32{1, 2, 3}, []int32{infos[0].RoomID, infos[1].RoomID, infos[2].RoomID})
	assert.Equal(t, "one", infos[0].Title)
	assert.Equal(t, []string{"a"}, infos[0].Members)
}

// Fan-out visits every co-member exactly once and never the sender.
func TestRegistry_ForEachCoMember(t *testing.T) {
	reg := testRegistry()
	a := testClientPair(t)
	b := testClientPair(t)
	c := testClientPair(t)

	room := reg.CreateRoom("r1", a)
	_, ok := reg.Join(room.ID, b)
	require.True(t, ok)
	_, ok = reg.Join(room.ID, c)
	require.True(t, ok)

	seen := make(map[*Client]int)
	reg.ForEachCoMember(a, func(peer *Client) { seen[peer]++ })

	assert.Equal(t, map[*Client]int{b: 1, c: 1}, seen)
}

func TestRegistry_ForEachCoMemberInLobby(t *testing.T) {
	reg := testRegistry()
	a := testClientPair(t)

	called := false
	reg.ForEachCoMember(a, func(*Client) { called = true })
	assert.False(t, called)
}

// No client can be a member of two rooms: joining requires the lobby, which
// the dispatch layer enforces; the registry itself moves the room id
// atomically on leave.
func TestRegistry_SingleMembership(t *testing.T) {
	reg := testRegistry()
	a := testClientPair(t)

	first := reg.CreateRoom("first", a)
	require.Equal(t, first.ID, a.RoomID())

	_, inRoom := reg.Leave(a, "leave")
	require.True(t, inRoom)

	second := reg.CreateRoom("second", a)
	assert.Equal(t, second.ID, a.RoomID())

	infos := reg.Snapshot()
	require.Len(t, infos, 1)
	assert.Equal(t, second.ID, infos[0].RoomID)
}
