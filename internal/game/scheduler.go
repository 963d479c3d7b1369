package game

import (
	"context"
	"log"
	"time"
)

// Scheduler is the single process-wide sync timer. Each tick relays dirty
// player positions for every started room; the enemy pass runs on a coarser
// accumulated interval so client report rates never drive AI cost.
type Scheduler struct {
	hub        *Hub
	Interval   time.Duration
	AIInterval time.Duration
}

func NewScheduler(h *Hub, interval, aiInterval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = SyncInterval
	}
	if aiInterval < interval {
		aiInterval = interval
	}
	return &Scheduler{hub: h, Interval: interval, AIInterval: aiInterval}
}

func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick runs one step for every room. A failing room is logged and skipped.
func (s *Scheduler) Tick() {
	for _, r := range s.hub.ActiveRooms() {
		s.tickRoom(r)
	}
}

func (s *Scheduler) tickRoom(r *Room) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("scheduler: room %s tick failed: %v", r.Key, rec)
		}
	}()
	r.SyncTick(s.Interval, s.AIInterval)
}
