package main

import (
	"flag"
	"math"

	"DuneRally/internal/server"
)

func main() {
	addr := flag.String("addr", ":8080", "address to listen on (e.g., 127.0.0.1:8080)")
	configPath := flag.String("config", "configs/server.json", "path to server tuning JSON")
	syncHz := flag.Float64("sync-hz", math.NaN(), "override position relay rate")
	aiHz := flag.Float64("ai-hz", math.NaN(), "override enemy AI rate (capped at the relay rate)")
	gridW := flag.Float64("grid-w", math.NaN(), "override map width in cells")
	gridH := flag.Float64("grid-h", math.NaN(), "override map height in cells")
	stateRate := flag.Float64("state-rate", math.NaN(), "override per-connection state reports per second")
	stateBurst := flag.Int("state-burst", 0, "override per-connection state report burst (0 keeps config)")
	flag.Parse()

	cfg := server.DefaultAppConfig()
	cfg.ConfigPath = *configPath

	var overrides server.TuningOverrides

	if !math.IsNaN(*syncHz) {
		val := *syncHz
		overrides.SyncHz = &val
	}
	if !math.IsNaN(*aiHz) {
		val := *aiHz
		overrides.AIHz = &val
	}
	if !math.IsNaN(*gridW) {
		val := *gridW
		overrides.GridW = &val
	}
	if !math.IsNaN(*gridH) {
		val := *gridH
		overrides.GridH = &val
	}
	if !math.IsNaN(*stateRate) {
		val := *stateRate
		overrides.StateRate = &val
	}
	if *stateBurst > 0 {
		val := *stateBurst
		overrides.StateBurst = &val
	}

	cfg.Overrides = overrides

	server.StartApp(*addr, cfg)
}
