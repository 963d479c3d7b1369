package game

// updateAILocked steps every enemy of the active mission and flushes attacks
// and moved positions to all occupants. Caller holds r.Mu.
func (r *Room) updateAILocked(dt float64) {
	if r.Mission == nil || r.Grid == nil || r.aiRng == nil {
		return
	}
	targets := r.aiTargetsLocked()
	for _, e := range r.Mission.Entities {
		if e.Kind != EntityEnemy {
			continue
		}
		if atk := StepEnemy(e, r.Grid, targets, r.Now, dt, r.aiRng); atk != nil {
			r.broadcastLocked(MsgAttack, *atk)
		}
	}
	for _, e := range r.Mission.Entities {
		if e.Brain == nil || !e.Brain.Moved {
			continue
		}
		e.Brain.Moved = false
		r.broadcastLocked(MsgEntityUpdate, EntityUpdateEvent{
			Op:       EntityOpPos,
			EntityID: e.ID,
			X:        e.Pos.X,
			Y:        e.Pos.Y,
		})
	}
}

func (r *Room) aiTargetsLocked() []AITarget {
	targets := make([]AITarget, 0, len(r.Players))
	for _, p := range r.Players {
		if p == nil || !p.Alive || p.Pos == nil {
			continue
		}
		targets = append(targets, AITarget{ID: p.ID, Pos: Vec2{X: p.Pos.X, Y: p.Pos.Y}})
	}
	return targets
}
