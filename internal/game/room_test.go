package game

import (
	"errors"
	"testing"
)

type recordSink struct {
	msgs []OutboundMessage
}

func (s *recordSink) Deliver(msg OutboundMessage) bool {
	s.msgs = append(s.msgs, msg)
	return true
}

func (s *recordSink) ofType(msgType string) []OutboundMessage {
	var out []OutboundMessage
	for _, m := range s.msgs {
		if m.Type == msgType {
			out = append(out, m)
		}
	}
	return out
}

func (s *recordSink) indexOf(msgType string) int {
	for i, m := range s.msgs {
		if m.Type == msgType {
			return i
		}
	}
	return -1
}

func (s *recordSink) lastMission(t *testing.T) MissionSnapshot {
	t.Helper()
	missions := s.ofType(MsgMission)
	if len(missions) == 0 {
		t.Fatal("expected a mission broadcast")
	}
	return missions[len(missions)-1].Payload.(MissionSnapshot)
}

func newTestHub(seed uint32) *Hub {
	return NewHub(HubConfig{GridW: 80, GridH: 45, SeedSource: func() uint32 { return seed }})
}

type seat struct {
	p    *Player
	sink *recordSink
}

func joinSeat(t *testing.T, h *Hub, room, id string) seat {
	t.Helper()
	sink := &recordSink{}
	p := NewPlayer("conn-"+id, sink)
	if _, err := h.Join(p, room, id, id); err != nil {
		t.Fatalf("join %s: %v", id, err)
	}
	return seat{p: p, sink: sink}
}

func startedRoom(t *testing.T, seed uint32) (*Hub, *Room, seat, seat) {
	t.Helper()
	h := newTestHub(seed)
	r, a, b := startRoomIn(t, h, "r1", "alice", "bob")
	return h, r, a, b
}

func startRoomIn(t *testing.T, h *Hub, key, idA, idB string) (*Room, seat, seat) {
	t.Helper()
	a := joinSeat(t, h, key, idA)
	b := joinSeat(t, h, key, idB)
	r := a.p.Room()
	r.SetReady(a.p, true)
	r.SetReady(b.p, true)
	if !r.Started {
		t.Fatal("expected room to start once both are ready")
	}
	return r, a, b
}

func TestTwoReadyPlayersStartRally(t *testing.T) {
	_, r, a, b := startedRoom(t, 4242)
	for _, s := range []seat{a, b} {
		starts := s.sink.ofType(MsgStart)
		if len(starts) != 1 {
			t.Fatalf("expected one start event, got %d", len(starts))
		}
		ev := starts[0].Payload.(StartEvent)
		if ev.Seed != 4242 || ev.Width != 80 || ev.Height != 45 {
			t.Fatalf("unexpected start %+v", ev)
		}
		if s.sink.indexOf(MsgStart) > s.sink.indexOf(MsgMission) {
			t.Fatal("expected start before mission")
		}
		snap := s.sink.lastMission(t)
		if snap.Phase != PhaseRally || snap.Step != 0 || len(snap.Entities) != 0 {
			t.Fatalf("unexpected first mission %+v", snap)
		}
		if len(s.sink.ofType(MsgNarrator)) == 0 {
			t.Fatal("expected the rally point to be announced")
		}
	}
	if r.Grid.Width != 80 || r.Grid.Height != 45 {
		t.Fatalf("unexpected grid %dx%d", r.Grid.Width, r.Grid.Height)
	}
}

func TestRallyAdvancesWhenBothArrive(t *testing.T) {
	_, r, a, b := startedRoom(t, 99)
	target := a.sink.lastMission(t).Target

	r.ReportState(a.p, target.X, target.Y, 0, nil)
	if got := a.sink.lastMission(t); got.Phase != PhaseRally {
		t.Fatalf("expected rally to hold with one player, got %s", got.Phase)
	}
	r.ReportState(b.p, target.X+0.5, target.Y, 1.2, nil)

	snap := b.sink.lastMission(t)
	if snap.Step != 1 {
		t.Fatalf("expected step 1, got %d", snap.Step)
	}
	switch snap.Phase {
	case PhaseDestroy:
		if n := len(snap.Entities); n < MinEnemies || n > MaxEnemies {
			t.Fatalf("enemy count %d out of range", n)
		}
	case PhaseRetrieve:
		if n := len(snap.Entities); n < MinCollectibles || n > MaxCollectibles {
			t.Fatalf("collectible count %d out of range", n)
		}
	default:
		t.Fatalf("unexpected phase %s", snap.Phase)
	}
}

func TestDeadPlayerDoesNotBlockRally(t *testing.T) {
	_, r, a, b := startedRoom(t, 7)
	target := a.sink.lastMission(t).Target
	dead := false
	r.ReportState(b.p, 2.5, 2.5, 0, &dead)
	r.ReportState(a.p, target.X, target.Y, 0, nil)
	if got := a.sink.lastMission(t); got.Phase == PhaseRally {
		t.Fatal("expected the living player alone to clear the rally")
	}
	if targets := r.aiTargetsLocked(); len(targets) != 1 || targets[0].ID != "alice" {
		t.Fatalf("expected only alice as an AI target, got %+v", targets)
	}
}

// driveTo reports rally arrivals and collects data nodes until the mission
// reaches the wanted phase.
func driveTo(t *testing.T, r *Room, a, b seat, want Phase) {
	t.Helper()
	for i := 0; i < 40; i++ {
		m := r.Mission
		if m.Phase == want {
			return
		}
		switch m.Phase {
		case PhaseRally:
			r.ReportState(a.p, m.Target.X, m.Target.Y, 0, nil)
			r.ReportState(b.p, m.Target.X, m.Target.Y, 0, nil)
		case PhaseRetrieve:
			for len(m.Entities) > 0 {
				r.Collect(a.p, m.Entities[0].ID)
			}
		case PhaseDestroy:
			for len(m.Entities) > 0 {
				r.Hit(a.p, m.Entities[0].ID)
			}
		}
	}
	t.Fatalf("mission never reached %s", want)
}

func TestKillingLastEnemyReturnsToRally(t *testing.T) {
	_, r, a, b := startedRoom(t, 31337)
	driveTo(t, r, a, b, PhaseDestroy)
	step := r.Mission.Step
	for _, e := range r.Mission.Entities {
		e.HP = 1
	}
	ids := make([]int, 0, len(r.Mission.Entities))
	for _, e := range r.Mission.Entities {
		ids = append(ids, e.ID)
	}
	for _, id := range ids {
		r.Hit(b.p, id)
	}

	updates := a.sink.ofType(MsgEntityUpdate)
	removed := map[int]bool{}
	for _, u := range updates {
		ev := u.Payload.(EntityUpdateEvent)
		if ev.Op == EntityOpRemove {
			removed[ev.EntityID] = true
		}
	}
	for _, id := range ids {
		if !removed[id] {
			t.Fatalf("expected remove update for entity %d", id)
		}
	}
	snap := a.sink.lastMission(t)
	if snap.Phase != PhaseRally || snap.Step != step+1 || len(snap.Entities) != 0 {
		t.Fatalf("expected rally at step %d, got %+v", step+1, snap)
	}
	lastRemove, lastMission := -1, -1
	for i, m := range a.sink.msgs {
		switch m.Type {
		case MsgEntityUpdate:
			lastRemove = i
		case MsgMission:
			lastMission = i
		}
	}
	if lastRemove < 0 || lastMission < lastRemove {
		t.Fatal("expected the rally broadcast to follow the final removal")
	}
}

func TestHitUpdatesHP(t *testing.T) {
	_, r, a, b := startedRoom(t, 555)
	driveTo(t, r, a, b, PhaseDestroy)
	e := r.Mission.Entities[0]
	e.HP = 3
	r.Hit(a.p, e.ID)
	updates := b.sink.ofType(MsgEntityUpdate)
	ev := updates[len(updates)-1].Payload.(EntityUpdateEvent)
	if ev.Op != EntityOpHP || ev.HP != 2 || ev.EntityID != e.ID || ev.By != "alice" {
		t.Fatalf("unexpected hp update %+v", ev)
	}
}

func TestHitUnknownEntityIsSilent(t *testing.T) {
	_, r, a, b := startedRoom(t, 1)
	before := len(a.sink.msgs) + len(b.sink.msgs)
	snap := r.Mission.Snapshot()
	r.Hit(a.p, 424242)
	r.Collect(b.p, 424242)
	if after := len(a.sink.msgs) + len(b.sink.msgs); after != before {
		t.Fatalf("expected no broadcast, got %d new messages", after-before)
	}
	now := r.Mission.Snapshot()
	if now.Phase != snap.Phase || now.Step != snap.Step || now.Target != snap.Target {
		t.Fatal("expected mission to be untouched")
	}
}

func TestMissionRequestIsIdempotent(t *testing.T) {
	_, r, a, _ := startedRoom(t, 808)
	r.RequestMission(a.p)
	first := a.sink.lastMission(t)
	r.RequestMission(a.p)
	second := a.sink.lastMission(t)
	if first.Phase != second.Phase || first.Step != second.Step || first.Target != second.Target {
		t.Fatalf("snapshots differ: %+v vs %+v", first, second)
	}
	if r.Mission.Step != 0 || r.Mission.Phase != PhaseRally {
		t.Fatal("expected request to leave the mission unchanged")
	}
}

func TestMissionRequestRebuildsMissingMission(t *testing.T) {
	_, r, a, _ := startedRoom(t, 64)
	r.Grid = nil
	r.Mission = nil
	r.RequestMission(a.p)
	if r.Grid == nil || r.Mission == nil {
		t.Fatal("expected lazy grid and mission")
	}
	if r.Mission.Phase != PhaseRally {
		t.Fatalf("expected rally, got %s", r.Mission.Phase)
	}
}

func TestThirdJoinIsRejected(t *testing.T) {
	h := newTestHub(1)
	joinSeat(t, h, "r1", "a")
	joinSeat(t, h, "r1", "b")
	p := NewPlayer("conn-c", &recordSink{})
	_, err := h.Join(p, "r1", "c", "c")
	if !errors.Is(err, ErrRoomFull) {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}
	if p.Room() != nil {
		t.Fatal("rejected player must not be attached")
	}
	if n := len(h.GetRoom("r1").Players); n != 2 {
		t.Fatalf("expected 2 occupants, got %d", n)
	}
}

func TestRejoinSameRoomKeepsSeat(t *testing.T) {
	h := newTestHub(1)
	a := joinSeat(t, h, "r1", "a")
	joinSeat(t, h, "r1", "b")
	if _, err := h.Join(a.p, "r1", "a", "Alice"); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	r := h.GetRoom("r1")
	if len(r.Players) != 2 || a.p.Name != "Alice" {
		t.Fatalf("expected rename in place, got %d players name %q", len(r.Players), a.p.Name)
	}
}

func TestLeaveResetsRoundAndDestroysEmptyRoom(t *testing.T) {
	h, r, a, b := startedRoom(t, 3)
	if err := h.Leave(b.p); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if r.Started || r.Mission != nil || r.Grid != nil {
		t.Fatal("expected round reset after leave")
	}
	left := a.sink.ofType(MsgPeerLeft)
	if len(left) != 1 || left[0].Payload.(PeerLeftEvent).ID != "bob" {
		t.Fatalf("expected peerLeft for bob, got %+v", left)
	}
	lobby := a.sink.ofType(MsgLobby)
	last := lobby[len(lobby)-1].Payload.(LobbyEvent)
	if last.Started || len(last.Occupants) != 1 {
		t.Fatalf("unexpected lobby %+v", last)
	}
	if h.GetRoom("r1") == nil {
		t.Fatal("room should survive with one occupant")
	}
	if err := h.Leave(a.p); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if h.GetRoom("r1") != nil {
		t.Fatal("expected empty room to be destroyed")
	}
	if err := h.Leave(a.p); !errors.Is(err, ErrNotInRoom) {
		t.Fatalf("expected ErrNotInRoom, got %v", err)
	}
}

func TestRestartUsesFreshSeed(t *testing.T) {
	seeds := []uint32{10, 20}
	calls := 0
	h := NewHub(HubConfig{GridW: 80, GridH: 45, SeedSource: func() uint32 {
		s := seeds[calls%len(seeds)]
		calls++
		return s
	}})
	a := joinSeat(t, h, "r1", "a")
	b := joinSeat(t, h, "r1", "b")
	r := a.p.Room()
	r.SetReady(a.p, true)
	r.SetReady(b.p, true)
	if r.Seed != 10 {
		t.Fatalf("expected first seed 10, got %d", r.Seed)
	}
	h.Leave(b.p)
	b = joinSeat(t, h, "r1", "b")
	r.SetReady(b.p, true)
	if !r.Started || r.Seed != 20 {
		t.Fatalf("expected restart with seed 20, got started=%v seed=%d", r.Started, r.Seed)
	}
	if r.Mission.Step != 0 || r.Mission.Phase != PhaseRally {
		t.Fatal("expected a fresh mission")
	}
}

func TestDuplicateIDFallsBackToConnID(t *testing.T) {
	h := newTestHub(1)
	first := NewPlayer("conn-1", &recordSink{})
	second := NewPlayer("conn-2", &recordSink{})
	if _, err := h.Join(first, "r1", "pilot", "A"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := h.Join(second, "r1", "pilot", "B"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if first.ID != "pilot" || second.ID != "conn-2" {
		t.Fatalf("expected distinct ids, got %q and %q", first.ID, second.ID)
	}
	if _, err := h.Join(second, "r1", "pilot", "B"); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if second.ID != "conn-2" {
		t.Fatalf("expected rejoin to keep ids distinct, got %q", second.ID)
	}
	if _, err := h.Join(first, "r1", "pilot", "A"); err != nil || first.ID != "pilot" {
		t.Fatalf("expected own id to be kept on rejoin, got %q (%v)", first.ID, err)
	}
}

func TestSwitchingRoomsLeavesPrevious(t *testing.T) {
	h := newTestHub(1)
	a := joinSeat(t, h, "r1", "a")
	if _, err := h.Join(a.p, "r2", "a", "a"); err != nil {
		t.Fatalf("switch: %v", err)
	}
	if h.GetRoom("r1") != nil {
		t.Fatal("expected old room to be destroyed")
	}
	if a.p.Room() == nil || a.p.Room().Key != "r2" {
		t.Fatal("expected player in r2")
	}
}

func TestRelayFxOnlyToOthers(t *testing.T) {
	_, r, a, b := startedRoom(t, 2)
	r.RelayFx(a.p, "shot", 3, 4, 0.5)
	if len(a.sink.ofType(MsgFx)) != 0 {
		t.Fatal("sender must not receive its own fx")
	}
	fx := b.sink.ofType(MsgFx)
	if len(fx) != 1 || fx[0].Payload.(FxEvent).From != "alice" {
		t.Fatalf("expected relayed fx from alice, got %+v", fx)
	}
}

func TestSanitizeToken(t *testing.T) {
	if got := SanitizeToken("r-1_ok!@# x", 32); got != "r-1_okx" {
		t.Fatalf("unexpected token %q", got)
	}
	if got := SanitizeToken("abcdefgh", 4); got != "abcd" {
		t.Fatalf("expected cap at 4, got %q", got)
	}
	if got := SanitizeName("   "); got != DefaultName {
		t.Fatalf("expected default name, got %q", got)
	}
}
