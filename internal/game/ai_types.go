package game

import "math"

type AIMode int

const (
	AIModeCharge AIMode = iota
	AIModeSkirmish
)

const (
	AttackMelee = "melee"
	AttackZap   = "zap"
)

// EnemyBrain is the per-enemy steering and combat state. Cooldowns are room
// clock seconds.
type EnemyBrain struct {
	Mode         AIMode
	MeleeReadyAt float64
	ZapReadyAt   float64
	StrafeSign   float64
	Stuck        int
	Fleeing      bool
	Moved        bool
}

// AITarget is a living player an enemy may engage.
type AITarget struct {
	ID  string
	Pos Vec2
}

func (b *EnemyBrain) flipStrafe() {
	if b.StrafeSign >= 0 {
		b.StrafeSign = -1
	} else {
		b.StrafeSign = 1
	}
	b.Stuck = 0
}

// nearestTarget picks the closest target; ties keep the first one found.
func nearestTarget(pos Vec2, targets []AITarget) (AITarget, float64, bool) {
	best := -1
	minDist := math.MaxFloat64
	for i := range targets {
		d := targets[i].Pos.Dist(pos)
		if d < minDist {
			minDist = d
			best = i
		}
	}
	if best < 0 {
		return AITarget{}, 0, false
	}
	return targets[best], minDist, true
}

func defaultArchetype() *EnemyArchetype {
	a := ArchetypeRegistry["grunt"]
	return &a
}
