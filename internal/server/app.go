package server

import (
	"context"
	"log"

	. "DuneRally/internal/game"
)

type AppConfig struct {
	ConfigPath string
	Overrides  TuningOverrides
}

func DefaultAppConfig() AppConfig {
	return AppConfig{
		ConfigPath: "configs/server.json",
	}
}

func resolveTuning(cfg AppConfig) Tuning {
	tuning := DefaultTuning()
	loaded, err := loadTuningFromFile(cfg.ConfigPath, tuning)
	if err != nil {
		log.Printf("server config: %v (using defaults)", err)
	} else {
		tuning = loaded
	}
	return cfg.Overrides.apply(tuning)
}

func StartApp(addr string, cfg AppConfig) {
	tuning := resolveTuning(cfg)
	hub := NewHub(HubConfig{
		GridW:      tuning.GridW,
		GridH:      tuning.GridH,
		SeedSource: TimeSeed,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	scheduler := NewScheduler(hub, tuning.SyncInterval(), tuning.AIInterval())
	go scheduler.Run(ctx)

	log.Printf("starting server on %s (sync %.0fHz, ai %.0fHz, map %.0fx%.0f)",
		addr, tuning.SyncHz, tuning.AIHz, tuning.GridW, tuning.GridH)
	startServer(hub, addr, tuning)
}
