package server

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	. "DuneRally/internal/game"
)

// Tuning holds the server-wide knobs: tick rates, map size and per-connection
// limits.
type Tuning struct {
	SyncHz     float64
	AIHz       float64
	GridW      float64
	GridH      float64
	StateRate  float64
	StateBurst int
	SendBuffer int
}

const (
	maxTickHz     = 120.0
	maxGridDim    = 512.0
	maxStateRate  = 1000.0
	maxStateBurst = 1000
	minSendBuffer = 16
	maxSendBuffer = 4096
)

func DefaultTuning() Tuning {
	return Tuning{
		SyncHz:     float64(time.Second / SyncInterval),
		AIHz:       float64(time.Second / AIInterval),
		GridW:      DefaultGridW,
		GridH:      DefaultGridH,
		StateRate:  60,
		StateBurst: 30,
		SendBuffer: 256,
	}
}

func (t Tuning) SyncInterval() time.Duration {
	return time.Duration(float64(time.Second) / t.SyncHz)
}

func (t Tuning) AIInterval() time.Duration {
	return time.Duration(float64(time.Second) / t.AIHz)
}

// SanitizeTuning clamps every field into a usable range. The AI rate never
// exceeds the sync rate because the enemy pass rides on sync ticks.
func SanitizeTuning(t Tuning) Tuning {
	def := DefaultTuning()
	t.SyncHz = clampFinite(t.SyncHz, 1, maxTickHz, def.SyncHz)
	t.AIHz = clampFinite(t.AIHz, 1, maxTickHz, def.AIHz)
	if t.AIHz > t.SyncHz {
		t.AIHz = t.SyncHz
	}
	t.GridW = math.Floor(clampFinite(t.GridW, MinGridW, maxGridDim, def.GridW))
	t.GridH = math.Floor(clampFinite(t.GridH, MinGridH, maxGridDim, def.GridH))
	t.StateRate = clampFinite(t.StateRate, 1, maxStateRate, def.StateRate)
	if t.StateBurst < 1 {
		t.StateBurst = 1
	} else if t.StateBurst > maxStateBurst {
		t.StateBurst = maxStateBurst
	}
	if t.SendBuffer < minSendBuffer {
		t.SendBuffer = minSendBuffer
	} else if t.SendBuffer > maxSendBuffer {
		t.SendBuffer = maxSendBuffer
	}
	return t
}

func clampFinite(v, lo, hi, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return Clamp(v, lo, hi)
}

type syncConfig struct {
	SyncHz *float64 `json:"syncHz"`
	AIHz   *float64 `json:"aiHz"`
}

type worldConfig struct {
	Width  *float64 `json:"width"`
	Height *float64 `json:"height"`
}

type limitsConfig struct {
	StateRate  *float64 `json:"stateRate"`
	StateBurst *int     `json:"stateBurst"`
	SendBuffer *int     `json:"sendBuffer"`
}

type serverConfig struct {
	Sync   *syncConfig   `json:"sync"`
	World  *worldConfig  `json:"world"`
	Limits *limitsConfig `json:"limits"`
}

// TuningOverrides represents optional command-line overrides.
type TuningOverrides struct {
	SyncHz     *float64
	AIHz       *float64
	GridW      *float64
	GridH      *float64
	StateRate  *float64
	StateBurst *int
}

func (o TuningOverrides) apply(base Tuning) Tuning {
	if o.SyncHz != nil {
		base.SyncHz = *o.SyncHz
	}
	if o.AIHz != nil {
		base.AIHz = *o.AIHz
	}
	if o.GridW != nil {
		base.GridW = *o.GridW
	}
	if o.GridH != nil {
		base.GridH = *o.GridH
	}
	if o.StateRate != nil {
		base.StateRate = *o.StateRate
	}
	if o.StateBurst != nil {
		base.StateBurst = *o.StateBurst
	}
	return SanitizeTuning(base)
}

func mergeServerConfig(base Tuning, cfg serverConfig) Tuning {
	if s := cfg.Sync; s != nil {
		if s.SyncHz != nil {
			base.SyncHz = *s.SyncHz
		}
		if s.AIHz != nil {
			base.AIHz = *s.AIHz
		}
	}
	if w := cfg.World; w != nil {
		if w.Width != nil {
			base.GridW = *w.Width
		}
		if w.Height != nil {
			base.GridH = *w.Height
		}
	}
	if l := cfg.Limits; l != nil {
		if l.StateRate != nil {
			base.StateRate = *l.StateRate
		}
		if l.StateBurst != nil {
			base.StateBurst = *l.StateBurst
		}
		if l.SendBuffer != nil {
			base.SendBuffer = *l.SendBuffer
		}
	}
	return SanitizeTuning(base)
}

// loadTuningFromFile merges the JSON file over base. A missing file is not an
// error.
func loadTuningFromFile(path string, base Tuning) (Tuning, error) {
	if path == "" {
		return SanitizeTuning(base), nil
	}
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		if os.IsNotExist(err) {
			return SanitizeTuning(base), nil
		}
		return SanitizeTuning(base), fmt.Errorf("read server config %q: %w", cleanPath, err)
	}
	var cfg serverConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return SanitizeTuning(base), fmt.Errorf("parse server config %q: %w", cleanPath, err)
	}
	return mergeServerConfig(base, cfg), nil
}
