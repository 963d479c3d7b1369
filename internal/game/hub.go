package game

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"time"

	"github.com/sasha-s/go-deadlock"
)

var (
	ErrRoomFull  = errors.New("room full")
	ErrNotInRoom = errors.New("not in a room")
)

type HubConfig struct {
	GridW      float64
	GridH      float64
	SeedSource func() uint32
}

func DefaultHubConfig() HubConfig {
	return HubConfig{
		GridW:      DefaultGridW,
		GridH:      DefaultGridH,
		SeedSource: TimeSeed,
	}
}

// TimeSeed mixes the wall clock with a random draw.
func TimeSeed() uint32 {
	return uint32(time.Now().UnixNano()) ^ rand.Uint32()
}

// Hub is the process-wide room registry. Rooms are inserted on their first
// occupant and removed synchronously when the last one leaves. Lock order is
// Hub.Mu before Room.Mu.
type Hub struct {
	Rooms map[string]*Room
	Mu    deadlock.Mutex
	cfg   HubConfig
}

func NewHub(cfg HubConfig) *Hub {
	if cfg.SeedSource == nil {
		cfg.SeedSource = TimeSeed
	}
	if cfg.GridW <= 0 {
		cfg.GridW = DefaultGridW
	}
	if cfg.GridH <= 0 {
		cfg.GridH = DefaultGridH
	}
	return &Hub{Rooms: map[string]*Room{}, cfg: cfg}
}

// Join seats p in the room named key, creating it if needed. A player already
// in another room leaves it first; a rejected join leaves p where it was.
func (h *Hub) Join(p *Player, key, id, name string) (*Room, error) {
	h.Mu.Lock()
	defer h.Mu.Unlock()

	if cur := p.room; cur != nil && cur.Key == key {
		cur.Mu.Lock()
		defer cur.Mu.Unlock()
		p.ID = cur.uniqueIDLocked(p, id)
		p.Name = SanitizeName(name)
		cur.broadcastLobbyLocked()
		return cur, nil
	}

	r := h.Rooms[key]
	if r != nil {
		r.Mu.Lock()
		full := len(r.Players) >= RoomMaxPlayers
		r.Mu.Unlock()
		if full {
			return nil, fmt.Errorf("join %s: %w", key, ErrRoomFull)
		}
	}

	if p.room != nil {
		h.leaveLocked(p)
	}
	if r == nil {
		r = newRoom(key, h.cfg)
		h.Rooms[key] = r
		log.Printf("room %s: created", key)
	}

	r.Mu.Lock()
	defer r.Mu.Unlock()
	p.ID = r.uniqueIDLocked(p, id)
	p.Name = SanitizeName(name)
	p.Ready = false
	p.Alive = true
	p.Pos = nil
	p.Dirty = false
	p.room = r
	r.Players = append(r.Players, p)
	r.broadcastLobbyLocked()
	return r, nil
}

// uniqueIDLocked keeps occupant ids distinct so relayed events stay
// attributable. A clashing id falls back to the connection id.
func (r *Room) uniqueIDLocked(p *Player, id string) string {
	for _, q := range r.Players {
		if q != p && q.ID == id {
			return p.ConnID
		}
	}
	return id
}

// Leave removes p from its room, destroying the room when it empties.
func (h *Hub) Leave(p *Player) error {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	if p.room == nil {
		return ErrNotInRoom
	}
	h.leaveLocked(p)
	return nil
}

func (h *Hub) leaveLocked(p *Player) {
	r := p.room
	if r == nil {
		return
	}
	r.Mu.Lock()
	r.removeLocked(p)
	empty := len(r.Players) == 0
	if empty {
		r.closed = true
	}
	r.Mu.Unlock()
	if empty {
		delete(h.Rooms, r.Key)
		log.Printf("room %s: destroyed", r.Key)
	}
}

// ActiveRooms snapshots the registry so callers can lock rooms one at a time
// without holding the hub.
func (h *Hub) ActiveRooms() []*Room {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	rooms := make([]*Room, 0, len(h.Rooms))
	for _, r := range h.Rooms {
		rooms = append(rooms, r)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Key < rooms[j].Key })
	return rooms
}

func (h *Hub) GetRoom(key string) *Room {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	return h.Rooms[key]
}

func (h *Hub) Summaries() []RoomSummary {
	rooms := h.ActiveRooms()
	out := make([]RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Summary())
	}
	return out
}
