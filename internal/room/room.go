package room

import (
	"sync"

	"github.com/sketchroom/backend/internal/canvas"
)

// A participant as the rest of the room sees them.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Colors handed out to joining sessions, round-robin. Repeats once a
// room has had more participants than palette entries.
var Palette = []string{
	"#e6194b", "#3cb44b", "#4363d8", "#f58231",
	"#911eb4", "#46f0f0", "#f032e6", "#bcf60c",
}

// One collaboration namespace: the shared drawing state plus the set
// of connected users. Lives until process exit.
type Room struct {
	Name  string
	State *canvas.State

	mu        sync.RWMutex
	users     map[string]User
	nextColor int
}

func newRoom(name string) *Room {
	return &Room{
		Name:  name,
		State: canvas.NewState(),
		users: make(map[string]User),
	}
}

// Registers a session in the room and assigns it the next palette
// color.
func (r *Room) AddUser(id, name string) User {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := User{
		ID:    id,
		Name:  name,
		Color: Palette[r.nextColor%len(Palette)],
	}
	r.nextColor++
	r.users[id] = u
	return u
}

func (r *Room) RemoveUser(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
}

// Snapshot of the current user list, safe for the caller to keep.
func (r *Room) Users() []User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, u)
	}
	return users
}

func (r *Room) UserCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// Maps room names to their state. The registry is the only owner of
// Room instances; sessions hold references obtained here.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// Returns the room for name, creating it if absent. Atomic under the
// registry lock, so concurrent first joins of the same name get the
// same instance.
func (g *Registry) GetOrCreate(name string) *Room {
	g.mu.Lock()
	defer g.mu.Unlock()
	if r, ok := g.rooms[name]; ok {
		return r
	}
	r := newRoom(name)
	g.rooms[name] = r
	return r
}

// Returns the room for name, or nil if it was never created. Lookups
// (like the replay query) must not create rooms as a side effect.
func (g *Registry) Get(name string) *Room {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.rooms[name]
}

// Snapshot of all live rooms.
func (g *Registry) Rooms() []*Room {
	g.mu.RLock()
	defer g.mu.RUnlock()
	rooms := make([]*Room, 0, len(g.rooms))
	for _, r := range g.rooms {
		rooms = append(rooms, r)
	}
	return rooms
}

func (g *Registry) RoomCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}
