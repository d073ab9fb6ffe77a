package core

import "sync"

// Registry tracks which clients are members of which conversation rooms.
// Rooms exist only while they have at least one member.
type Registry struct {
	mu          sync.RWMutex
	rooms       map[string]map[*Client]struct{}
	memberships map[*Client]map[string]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms:       make(map[string]map[*Client]struct{}),
		memberships: make(map[*Client]map[string]struct{}),
	}
}

// Join adds c to room. Returns true if c was not already a member.
func (r *Registry) Join(c *Client, room string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		r.rooms[room] = members
	}
	if _, exists := members[c]; exists {
		return false
	}
	members[c] = struct{}{}

	joined, ok := r.memberships[c]
	if !ok {
		joined = make(map[string]struct{})
		r.memberships[c] = joined
	}
	joined[room] = struct{}{}
	return true
}

// Leave removes c from room. Returns true if c was a member.
func (r *Registry) Leave(c *Client, room string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(c, room)
}

func (r *Registry) leaveLocked(c *Client, room string) bool {
	members, ok := r.rooms[room]
	if !ok {
		return false
	}
	if _, exists := members[c]; !exists {
		return false
	}
	delete(members, c)
	if len(members) == 0 {
		delete(r.rooms, room)
	}

	if joined, ok := r.memberships[c]; ok {
		delete(joined, room)
		if len(joined) == 0 {
			delete(r.memberships, c)
		}
	}
	return true
}

// RemoveClient drops c from every room and returns the rooms it left.
func (r *Registry) RemoveClient(c *Client) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	joined := r.memberships[c]
	left := make([]string, 0, len(joined))
	for room := range joined {
		left = append(left, room)
	}
	for _, room := range left {
		r.leaveLocked(c, room)
	}
	return left
}

// MembersOf returns a snapshot of the room's members. Empty if the room is unknown.
func (r *Registry) MembersOf(room string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[room]
	out := make([]*Client, 0, len(members))
	for c := range members {
		out = append(out, c)
	}
	return out
}

// IsMember reports whether c is currently joined to room.
func (r *Registry) IsMember(c *Client, room string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.rooms[room][c]
	return ok
}

// RoomsOf returns the rooms c is joined to.
func (r *Registry) RoomsOf(c *Client) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	joined := r.memberships[c]
	out := make([]string, 0, len(joined))
	for room := range joined {
		out = append(out, room)
	}
	return out
}

// Count returns the number of members in room.
func (r *Registry) Count(room string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[room])
}

// Rooms returns the number of rooms with at least one member.
func (r *Registry) Rooms() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
