package game

import (
	"math"
	"math/rand"
)

// StepEnemy runs one AI pass for an enemy: attack first, then steer. It
// returns the attack fired this pass, if any. now and dt are in seconds.
func StepEnemy(e *Entity, grid *Grid, targets []AITarget, now, dt float64, rng *rand.Rand) *AttackEvent {
	if e == nil || e.Kind != EntityEnemy || e.Brain == nil || grid == nil {
		return nil
	}
	target, dist, ok := nearestTarget(e.Pos, targets)
	if !ok {
		return nil
	}
	if e.Archetype == nil {
		e.Archetype = defaultArchetype()
	}
	attack := tryAttack(e, grid, target, dist, now, rng)
	steerEnemy(e, grid, target, dist, dt, rng)
	return attack
}

// tryAttack fires at most one attack; melee has priority over zap.
func tryAttack(e *Entity, grid *Grid, target AITarget, dist, now float64, rng *rand.Rand) *AttackEvent {
	b := e.Brain
	arch := e.Archetype
	if dist <= MeleeRange && now >= b.MeleeReadyAt {
		b.MeleeReadyAt = now + randomBetween(rng, MeleeCooldownMin, MeleeCooldownMax)
		return &AttackEvent{EntityID: e.ID, Kind: AttackMelee, Target: target.ID, Damage: arch.MeleeDamage}
	}
	if dist >= ZapMinRange && dist <= ZapMaxRange && now >= b.ZapReadyAt {
		if arch.ZapNeedsLOS && !grid.LineOfSight(e.Pos, target.Pos) {
			return nil
		}
		b.ZapReadyAt = now + randomBetween(rng, ZapCooldownMin, ZapCooldownMax)
		return &AttackEvent{EntityID: e.ID, Kind: AttackZap, Target: target.ID, Damage: arch.ZapDamage}
	}
	return nil
}

func shouldFlee(e *Entity, dist float64, rng *rand.Rand) bool {
	lowHP := float64(e.HP) <= math.Max(1, float64(e.MaxHP)*FleeHPFraction)
	if lowHP && dist < FleeNearRange {
		return true
	}
	if e.Brain.Mode == AIModeSkirmish && dist >= SkirmishMinRange && dist <= SkirmishMaxRange {
		return rng.Float64() < SkirmishFleeOdds
	}
	return false
}

func steerEnemy(e *Entity, grid *Grid, target AITarget, dist, dt float64, rng *rand.Rand) {
	b := e.Brain
	b.Fleeing = shouldFlee(e, dist, rng)

	dir := unitOrZero(target.Pos.Sub(e.Pos))
	if b.Fleeing {
		dir = dir.Scale(-1)
	} else {
		if dist <= MeleeRange*0.6 {
			return
		}
		if b.Mode == AIModeSkirmish {
			dir = unitOrZero(dir.Add(orthogonal(dir).Scale(b.StrafeSign * StrafeWeight)))
		}
	}
	if dir == (Vec2{}) {
		return
	}

	from := e.Pos
	next := from.Add(dir.Scale(e.Archetype.Speed * dt))
	slid := false
	switch {
	case !grid.IsBlocked(next.X, next.Y):
	case !grid.IsBlocked(next.X, from.Y):
		next = Vec2{X: next.X, Y: from.Y}
		slid = true
	case !grid.IsBlocked(from.X, next.Y):
		next = Vec2{X: from.X, Y: next.Y}
		slid = true
	default:
		b.Stuck++
		if b.Stuck >= StuckFlipAfter {
			b.flipStrafe()
		}
		return
	}
	b.Stuck = 0
	if slid && rng.Float64() < StrafeFlipOdds {
		b.flipStrafe()
	}

	next = grid.clampInterior(next)
	if next != from {
		e.Pos = next
		b.Moved = true
	}
}
