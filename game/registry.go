package game

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/Seednode/rhymebox/rhyme"
)

// Summary is the public listing entry for a room.
type Summary struct {
	ID       string `json:"room_id"`
	Players  int    `json:"players"`
	Capacity int    `json:"capacity"`
}

// Registry holds every active room, keyed by ID, so each room is its
// own isolated session. Idle rooms are reaped in the background.
type Registry struct {
	mu          sync.Mutex
	rooms       map[string]*Room
	engine      *rhyme.Engine
	opts        Options
	idleTimeout time.Duration
}

func NewRegistry(engine *rhyme.Engine, opts Options, idleTimeout time.Duration) *Registry {
	g := &Registry{
		rooms:       make(map[string]*Room),
		engine:      engine,
		opts:        opts.withDefaults(),
		idleTimeout: idleTimeout,
	}
	if idleTimeout > 0 {
		go g.reaperLoop()
	}
	return g
}

// Create makes a room with the requested bot roster and joins the
// creator as its first human player.
func (g *Registry) Create(clientID, name string, capacity, botCount int) (*Room, string, error) {
	if botCount < 0 || botCount > g.opts.MaxBots {
		return nil, "", ErrInvalidBotCount
	}

	room := newRoom(g.newRoomID(), capacity, g.engine, g.opts)
	room.mu.Lock()
	if err := room.setBotCountLocked(botCount); err != nil {
		room.mu.Unlock()
		return nil, "", err
	}
	room.mu.Unlock()

	playerID, err := room.Join(clientID, name)
	if err != nil {
		return nil, "", err
	}

	g.mu.Lock()
	g.rooms[room.id] = room
	g.mu.Unlock()

	return room, playerID, nil
}

// Get resolves a room ID.
func (g *Registry) Get(roomID string) (*Room, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	room, ok := g.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// Join adds the client to a room, or returns the player it already is.
func (g *Registry) Join(roomID, clientID, name string) (*Room, string, error) {
	room, err := g.Get(roomID)
	if err != nil {
		return nil, "", err
	}
	playerID, err := room.Join(clientID, name)
	if err != nil {
		return nil, "", err
	}
	return room, playerID, nil
}

// List summarizes every active room.
func (g *Registry) List() []Summary {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]Summary, 0, len(g.rooms))
	for _, room := range g.rooms {
		out = append(out, Summary{
			ID:       room.id,
			Players:  room.playerCount(),
			Capacity: room.capacity,
		})
	}
	return out
}

// newRoomID generates a crypto-random room ID and ensures it doesn't
// collide with existing rooms.
func (g *Registry) newRoomID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 8)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		g.mu.Lock()
		_, exists := g.rooms[id]
		g.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// reaperLoop periodically removes rooms that have seen no human action
// for longer than idleTimeout.
func (g *Registry) reaperLoop() {
	ticker := time.NewTicker(g.idleTimeout / 2)
	for range ticker.C {
		cutoff := time.Now().Add(-g.idleTimeout)

		g.mu.Lock()
		for id, room := range g.rooms {
			if room.idleSince().Before(cutoff) {
				delete(g.rooms, id)
			}
		}
		g.mu.Unlock()
	}
}
