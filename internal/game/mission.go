package game

import (
	"fmt"
	"math"
	"math/rand"
)

type Phase string

const (
	PhaseRally    Phase = "rally"
	PhaseDestroy  Phase = "destroy"
	PhaseRetrieve Phase = "retrieve"
)

type EntityKind string

const (
	EntityEnemy       EntityKind = "enemy"
	EntityCollectible EntityKind = "collectible"
)

// Entity is a spawned mission actor. IDs come from a per-mission counter and
// are never reused within that mission.
type Entity struct {
	ID        int
	Kind      EntityKind
	Pos       Vec2
	HP        int
	MaxHP     int
	Archetype *EnemyArchetype
	Brain     *EnemyBrain
}

// Mission is the rally/destroy/retrieve state machine for one started room.
// Entities is empty exactly while Phase is rally.
type Mission struct {
	Phase    Phase
	Step     int
	Target   Vec2
	Entities []*Entity

	grid         *Grid
	rng          *rand.Rand
	nextEntityID int
	notices      []string
}

// HitResult reports what a hit did to an enemy.
type HitResult struct {
	Found   bool
	Removed bool
	HP      int
}

// NewMission starts a mission in rally. The mission stream is derived from
// the room seed, so the same seed always yields the same targets and spawns.
func NewMission(grid *Grid, seed uint32) *Mission {
	m := &Mission{
		grid: grid,
		rng:  rand.New(rand.NewSource(int64(seed ^ MissionSeedSalt))),
	}
	m.enterRally()
	return m
}

// CheckProgress advances the phase when its exit condition holds for the
// given living player positions. It is safe to call after every update and
// returns true when a transition happened.
func (m *Mission) CheckProgress(positions []Vec2) bool {
	if m == nil {
		return false
	}
	switch m.Phase {
	case PhaseRally:
		if len(positions) == 0 {
			return false
		}
		for _, p := range positions {
			if p.Dist(m.Target) > RallyRadius {
				return false
			}
		}
		m.Step++
		if m.rng.Float64() < DestroyChance {
			m.enterDestroy()
		} else {
			m.enterRetrieve()
		}
		return true
	case PhaseDestroy, PhaseRetrieve:
		if len(m.Entities) > 0 {
			return false
		}
		if m.Phase == PhaseDestroy {
			m.notices = append(m.notices, NarratorSecured)
		} else {
			m.notices = append(m.notices, NarratorRecovered)
		}
		m.Step++
		m.enterRally()
		return true
	}
	return false
}

// Hit applies damage to an enemy. Unknown ids and collectibles are ignored.
func (m *Mission) Hit(id, damage int) HitResult {
	if m == nil || damage <= 0 {
		return HitResult{}
	}
	idx := m.entityIndex(id)
	if idx < 0 || m.Entities[idx].Kind != EntityEnemy {
		return HitResult{}
	}
	e := m.Entities[idx]
	e.HP -= damage
	if e.HP <= 0 {
		m.removeAt(idx)
		return HitResult{Found: true, Removed: true}
	}
	return HitResult{Found: true, HP: e.HP}
}

// Collect removes a collectible. It reports false for unknown ids or enemies.
func (m *Mission) Collect(id int) bool {
	if m == nil {
		return false
	}
	idx := m.entityIndex(id)
	if idx < 0 || m.Entities[idx].Kind != EntityCollectible {
		return false
	}
	m.removeAt(idx)
	return true
}

// DrainNotices returns queued narrator lines and clears the queue.
func (m *Mission) DrainNotices() []string {
	if m == nil || len(m.notices) == 0 {
		return nil
	}
	out := m.notices
	m.notices = nil
	return out
}

func (m *Mission) Snapshot() MissionSnapshot {
	snap := MissionSnapshot{
		Phase:    m.Phase,
		Step:     m.Step,
		Target:   m.Target,
		Entities: make([]EntityView, 0, len(m.Entities)),
	}
	for _, e := range m.Entities {
		view := EntityView{
			ID:    e.ID,
			Kind:  e.Kind,
			X:     e.Pos.X,
			Y:     e.Pos.Y,
			HP:    e.HP,
			MaxHP: e.MaxHP,
		}
		if e.Archetype != nil {
			view.Archetype = e.Archetype.ID
		}
		snap.Entities = append(snap.Entities, view)
	}
	return snap
}

func (m *Mission) entityIndex(id int) int {
	if m == nil {
		return -1
	}
	for i, e := range m.Entities {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (m *Mission) removeAt(idx int) {
	m.Entities = append(m.Entities[:idx], m.Entities[idx+1:]...)
}

func (m *Mission) newEntityID() int {
	m.nextEntityID++
	return m.nextEntityID
}

func (m *Mission) enterRally() {
	m.Phase = PhaseRally
	m.Entities = nil
	m.Target = m.pickTarget()
	m.notices = append(m.notices, fmt.Sprintf("Rally point marked at (%.1f, %.1f). Both of you, get there.", m.Target.X, m.Target.Y))
}

func (m *Mission) enterDestroy() {
	m.Phase = PhaseDestroy
	count := MinEnemies + m.rng.Intn(MaxEnemies-MinEnemies+1)
	for i := 0; i < count; i++ {
		arch, err := PickArchetype(DestroySpawnTable, m.rng)
		if err != nil {
			arch = defaultArchetype()
		}
		pos := m.scatterAround(m.Target)
		m.Entities = append(m.Entities, newEnemy(m.newEntityID(), arch, pos, m.rng))
	}
	m.notices = append(m.notices, NarratorHostiles)
}

func (m *Mission) enterRetrieve() {
	m.Phase = PhaseRetrieve
	count := MinCollectibles + m.rng.Intn(MaxCollectibles-MinCollectibles+1)
	for i := 0; i < count; i++ {
		m.Entities = append(m.Entities, &Entity{
			ID:   m.newEntityID(),
			Kind: EntityCollectible,
			Pos:  m.scatterAround(m.Target),
		})
	}
	m.notices = append(m.notices, NarratorDataNodes)
}

// pickTarget chooses a random interior cell and snaps it to open ground.
func (m *Mission) pickTarget() Vec2 {
	w, h := MinGridW, MinGridH
	if m.grid != nil {
		w, h = m.grid.Width, m.grid.Height
	}
	x := 1 + m.rng.Intn(w-2)
	y := 1 + m.rng.Intn(h-2)
	return m.grid.NearestOpen(cellCenter(x, y))
}

func (m *Mission) scatterAround(center Vec2) Vec2 {
	p := center
	for i := 0; i < SpawnResamples; i++ {
		angle := m.rng.Float64() * 2 * math.Pi
		dist := m.rng.Float64() * SpawnScatter
		p = center.Add(Vec2{X: math.Cos(angle) * dist, Y: math.Sin(angle) * dist})
		if !m.grid.IsBlocked(p.X, p.Y) {
			break
		}
	}
	return m.grid.NearestOpen(p)
}

func newEnemy(id int, arch *EnemyArchetype, pos Vec2, rng *rand.Rand) *Entity {
	sign := 1.0
	if rng.Intn(2) == 0 {
		sign = -1.0
	}
	mode := AIModeCharge
	if arch.Skirmish {
		mode = AIModeSkirmish
	}
	return &Entity{
		ID:        id,
		Kind:      EntityEnemy,
		Pos:       pos,
		HP:        arch.HP,
		MaxHP:     arch.HP,
		Archetype: arch,
		Brain:     &EnemyBrain{Mode: mode, StrafeSign: sign},
	}
}
