package game

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/sasha-s/go-deadlock"
)

// PlayerPos is the last self-reported client position.
type PlayerPos struct {
	X     float64
	Y     float64
	Angle float64
}

// Player is one connection's seat in a room. The room owns it; the
// connection keeps a back-reference through Room().
type Player struct {
	ConnID string
	ID     string
	Name   string
	Ready  bool
	Alive  bool
	Pos    *PlayerPos
	Dirty  bool

	sink Sink
	room *Room
}

func NewPlayer(connID string, sink Sink) *Player {
	return &Player{
		ConnID: connID,
		ID:     connID,
		Name:   DefaultName,
		Alive:  true,
		sink:   sink,
	}
}

// Room returns the room the player currently occupies, or nil.
func (p *Player) Room() *Room { return p.room }

// Send delivers one event to this player only. Delivery is best effort.
func (p *Player) Send(msgType string, payload interface{}) {
	if p == nil || p.sink == nil {
		return
	}
	p.sink.Deliver(OutboundMessage{Type: msgType, Payload: payload})
}

type Room struct {
	Key     string
	Mu      deadlock.Mutex
	Players []*Player
	Started bool
	Seed    uint32
	Grid    *Grid
	Mission *Mission
	Now     float64

	width      float64
	height     float64
	aiAccum    time.Duration
	aiRng      *rand.Rand
	seedSource func() uint32
	closed     bool
}

func newRoom(key string, cfg HubConfig) *Room {
	return &Room{
		Key:        key,
		width:      cfg.GridW,
		height:     cfg.GridH,
		seedSource: cfg.SeedSource,
	}
}

func (r *Room) indexLocked(p *Player) int {
	for i, q := range r.Players {
		if q == p {
			return i
		}
	}
	return -1
}

func (r *Room) memberLocked(p *Player) bool {
	return p != nil && p.room == r && r.indexLocked(p) >= 0
}

// SetReady records the lobby flag and starts the round once both seats are
// ready.
func (r *Room) SetReady(p *Player, ready bool) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if !r.memberLocked(p) {
		return
	}
	p.Ready = ready
	r.broadcastLobbyLocked()
	r.maybeStartLocked()
}

// Rename updates the display name and re-emits the lobby.
func (r *Room) Rename(p *Player, name string) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if !r.memberLocked(p) {
		return
	}
	p.Name = SanitizeName(name)
	r.broadcastLobbyLocked()
}

// ReportState stores a client position and re-checks mission progress.
// alive is optional; nil keeps the current flag.
func (r *Room) ReportState(p *Player, x, y, angle float64, alive *bool) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if !r.memberLocked(p) {
		return
	}
	p.Pos = &PlayerPos{X: x, Y: y, Angle: angle}
	p.Dirty = true
	if alive != nil {
		p.Alive = *alive
	}
	r.checkProgressLocked()
}

// Hit damages an enemy. Unknown or non-enemy ids are ignored silently.
func (r *Room) Hit(p *Player, entityID int) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if !r.memberLocked(p) || !r.Started || r.Mission == nil {
		return
	}
	res := r.Mission.Hit(entityID, DefaultHitDamage)
	if !res.Found {
		return
	}
	if res.Removed {
		r.broadcastLocked(MsgEntityUpdate, EntityUpdateEvent{Op: EntityOpRemove, EntityID: entityID, By: p.ID})
	} else {
		r.broadcastLocked(MsgEntityUpdate, EntityUpdateEvent{Op: EntityOpHP, EntityID: entityID, HP: res.HP, By: p.ID})
	}
	r.checkProgressLocked()
}

// Collect picks up a collectible. Unknown or non-collectible ids are ignored.
func (r *Room) Collect(p *Player, entityID int) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if !r.memberLocked(p) || !r.Started || r.Mission == nil {
		return
	}
	if !r.Mission.Collect(entityID) {
		return
	}
	r.broadcastLocked(MsgEntityUpdate, EntityUpdateEvent{Op: EntityOpRemove, EntityID: entityID, By: p.ID})
	r.checkProgressLocked()
}

// RequestMission re-sends the current mission without changing it. A missing
// grid or mission on a started room is created lazily.
func (r *Room) RequestMission(p *Player) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if !r.memberLocked(p) || !r.Started {
		return
	}
	if r.Grid == nil {
		r.Grid = GenerateTerrain(r.width, r.height, r.Seed)
	}
	p.Send(MsgStart, StartEvent{Seed: r.Seed, Width: r.Grid.Width, Height: r.Grid.Height})
	if r.Mission == nil {
		r.Mission = NewMission(r.Grid, r.Seed)
		r.publishMissionLocked()
		return
	}
	snap := r.Mission.Snapshot()
	snap.Target = r.Grid.NearestOpen(snap.Target)
	r.broadcastLocked(MsgMission, snap)
	if snap.Phase == PhaseRally {
		p.Send(MsgNarrator, NarratorEvent{Text: fmt.Sprintf("Rally point marked at (%.1f, %.1f).", snap.Target.X, snap.Target.Y)})
	}
}

// RelayFx forwards a cosmetic effect to the other occupant while a round runs.
func (r *Room) RelayFx(p *Player, kind string, x, y, angle float64) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if !r.memberLocked(p) || !r.Started {
		return
	}
	ev := FxEvent{From: p.ID, Kind: kind, X: x, Y: y, Angle: angle}
	for _, q := range r.Players {
		if q != p {
			q.Send(MsgFx, ev)
		}
	}
}

// SyncTick is one scheduler step: relay dirty positions every call and run
// the enemy pass each time aiEvery has accumulated.
func (r *Room) SyncTick(dt, aiEvery time.Duration) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.closed || !r.Started {
		return
	}
	r.Now += dt.Seconds()
	r.flushDirtyLocked()
	if aiEvery <= 0 {
		return
	}
	r.aiAccum += dt
	if r.aiAccum >= aiEvery {
		r.aiAccum -= aiEvery
		r.updateAILocked(aiEvery.Seconds())
	}
}

func (r *Room) flushDirtyLocked() {
	for _, p := range r.Players {
		if !p.Dirty || p.Pos == nil {
			continue
		}
		ev := StateUpdateEvent{From: p.ID, X: p.Pos.X, Y: p.Pos.Y, Angle: p.Pos.Angle, Alive: p.Alive}
		for _, q := range r.Players {
			if q != p {
				q.Send(MsgStateUpdate, ev)
			}
		}
		p.Dirty = false
	}
}

func (r *Room) maybeStartLocked() {
	if r.Started || len(r.Players) != RoomMaxPlayers {
		return
	}
	for _, p := range r.Players {
		if !p.Ready {
			return
		}
	}
	r.Started = true
	r.Seed = r.seedSource()
	r.Grid = GenerateTerrain(r.width, r.height, r.Seed)
	r.aiRng = rand.New(rand.NewSource(int64(r.Seed ^ EnemyAISeedSalt)))
	r.Now = 0
	r.aiAccum = 0
	for _, p := range r.Players {
		p.Pos = nil
		p.Dirty = false
		p.Alive = true
	}
	log.Printf("room %s: started with seed %d (%dx%d)", r.Key, r.Seed, r.Grid.Width, r.Grid.Height)
	r.broadcastLocked(MsgStart, StartEvent{Seed: r.Seed, Width: r.Grid.Width, Height: r.Grid.Height})
	r.Mission = NewMission(r.Grid, r.Seed)
	r.publishMissionLocked()
}

// livingPositionsLocked returns positions of living players. It reports
// false when a living player has not reported a position yet.
func (r *Room) livingPositionsLocked() ([]Vec2, bool) {
	out := make([]Vec2, 0, len(r.Players))
	for _, p := range r.Players {
		if !p.Alive {
			continue
		}
		if p.Pos == nil {
			return nil, false
		}
		out = append(out, Vec2{X: p.Pos.X, Y: p.Pos.Y})
	}
	return out, true
}

func (r *Room) checkProgressLocked() {
	if !r.Started || r.Mission == nil {
		return
	}
	positions, ok := r.livingPositionsLocked()
	if !ok {
		positions = nil
	}
	from := r.Mission.Phase
	if r.Mission.CheckProgress(positions) {
		log.Printf("room %s: mission %s -> %s (step %d)", r.Key, from, r.Mission.Phase, r.Mission.Step)
		r.publishMissionLocked()
	}
}

func (r *Room) publishMissionLocked() {
	notices := r.Mission.DrainNotices()
	r.broadcastLocked(MsgMission, r.Mission.Snapshot())
	for _, text := range notices {
		r.broadcastLocked(MsgNarrator, NarratorEvent{Text: text})
	}
}

func (r *Room) lobbyLocked() LobbyEvent {
	ev := LobbyEvent{Room: r.Key, Started: r.Started, Occupants: make([]LobbyOccupant, 0, len(r.Players))}
	for _, p := range r.Players {
		ev.Occupants = append(ev.Occupants, LobbyOccupant{ID: p.ID, Name: p.Name, Ready: p.Ready})
	}
	return ev
}

func (r *Room) broadcastLobbyLocked() {
	r.broadcastLocked(MsgLobby, r.lobbyLocked())
}

// broadcastLocked fans an event out to every occupant. A dropped delivery to
// one occupant does not affect the others.
func (r *Room) broadcastLocked(msgType string, payload interface{}) {
	for _, p := range r.Players {
		p.Send(msgType, payload)
	}
}

// removeLocked detaches p and resets the round; the next pair of ready
// players starts a new mission with a new seed.
func (r *Room) removeLocked(p *Player) {
	idx := r.indexLocked(p)
	if idx < 0 {
		return
	}
	r.Players = append(r.Players[:idx], r.Players[idx+1:]...)
	p.room = nil
	p.Ready = false
	p.Pos = nil
	p.Dirty = false

	if r.Started {
		log.Printf("room %s: round reset after %s left", r.Key, p.ID)
	}
	r.Started = false
	r.Grid = nil
	r.Mission = nil
	r.Seed = 0
	r.aiRng = nil
	r.aiAccum = 0
	for _, q := range r.Players {
		q.Pos = nil
		q.Dirty = false
		q.Send(MsgPeerLeft, PeerLeftEvent{ID: p.ID})
	}
	r.broadcastLobbyLocked()
}

// RoomSummary is a read-only view for diagnostics.
type RoomSummary struct {
	Key       string   `json:"key"`
	Occupants []string `json:"occupants"`
	Started   bool     `json:"started"`
	Phase     Phase    `json:"phase,omitempty"`
	Step      int      `json:"step"`
	Entities  int      `json:"entities"`
}

func (r *Room) Summary() RoomSummary {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	s := RoomSummary{Key: r.Key, Started: r.Started, Occupants: make([]string, 0, len(r.Players))}
	for _, p := range r.Players {
		s.Occupants = append(s.Occupants, p.ID)
	}
	if r.Mission != nil {
		s.Phase = r.Mission.Phase
		s.Step = r.Mission.Step
		s.Entities = len(r.Mission.Entities)
	}
	return s
}

// TerrainRows renders the active grid, or nil while the room is in the lobby.
func (r *Room) TerrainRows() []string {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.Grid.Rows()
}

// SanitizeName trims and caps a display name.
func SanitizeName(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return DefaultName
	}
	return capRunes(trimmed, MaxPlayerNameLen)
}

// SanitizeToken keeps alphanumerics, dash and underscore, capped at max.
func SanitizeToken(raw string, max int) string {
	var b strings.Builder
	for _, c := range raw {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			b.WriteRune(c)
		}
		if b.Len() >= max {
			break
		}
	}
	return b.String()
}

func capRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		return string(runes[:n])
	}
	return s
}
