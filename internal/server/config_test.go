package server

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultTuningIntervals(t *testing.T) {
	tuning := DefaultTuning()
	if got := tuning.SyncInterval(); got != 50*time.Millisecond {
		t.Fatalf("expected 50ms sync interval, got %v", got)
	}
	if got := tuning.AIInterval(); got != 100*time.Millisecond {
		t.Fatalf("expected 100ms AI interval, got %v", got)
	}
}

func TestLoadTuningMergesPartialFile(t *testing.T) {
	path := writeConfig(t, `{"world":{"width":120},"limits":{"sendBuffer":64}}`)
	tuning, err := loadTuningFromFile(path, DefaultTuning())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tuning.GridW != 120 || tuning.GridH != 45 {
		t.Fatalf("expected 120x45, got %.0fx%.0f", tuning.GridW, tuning.GridH)
	}
	if tuning.SendBuffer != 64 {
		t.Fatalf("expected send buffer 64, got %d", tuning.SendBuffer)
	}
	if tuning.SyncHz != 20 {
		t.Fatalf("expected default sync rate, got %.1f", tuning.SyncHz)
	}
}

func TestLoadTuningMissingFileIsNotAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.json")
	tuning, err := loadTuningFromFile(path, DefaultTuning())
	if err != nil {
		t.Fatalf("expected missing file to be ignored, got %v", err)
	}
	if tuning != DefaultTuning() {
		t.Fatalf("expected defaults, got %+v", tuning)
	}
}

func TestLoadTuningBadJSON(t *testing.T) {
	path := writeConfig(t, `{"sync":`)
	tuning, err := loadTuningFromFile(path, DefaultTuning())
	if err == nil {
		t.Fatal("expected parse error")
	}
	if tuning != DefaultTuning() {
		t.Fatalf("expected defaults on error, got %+v", tuning)
	}
}

func TestResolveTuningAppliesOverridesLast(t *testing.T) {
	path := writeConfig(t, `{"sync":{"syncHz":30,"aiHz":15}}`)
	ai := 5.0
	burst := 7
	tuning := resolveTuning(AppConfig{
		ConfigPath: path,
		Overrides:  TuningOverrides{AIHz: &ai, StateBurst: &burst},
	})
	if tuning.SyncHz != 30 || tuning.AIHz != 5 || tuning.StateBurst != 7 {
		t.Fatalf("unexpected tuning %+v", tuning)
	}
}

func TestSanitizeTuning(t *testing.T) {
	got := SanitizeTuning(Tuning{
		SyncHz:     10,
		AIHz:       40,
		GridW:      5,
		GridH:      33.7,
		StateRate:  math.NaN(),
		StateBurst: -3,
		SendBuffer: 1 << 20,
	})
	if got.AIHz != 10 {
		t.Fatalf("expected AI rate capped at sync rate, got %.1f", got.AIHz)
	}
	if got.GridW != 24 || got.GridH != 33 {
		t.Fatalf("expected 24x33, got %.1fx%.1f", got.GridW, got.GridH)
	}
	if got.StateRate != DefaultTuning().StateRate {
		t.Fatalf("expected NaN state rate to fall back, got %.1f", got.StateRate)
	}
	if got.StateBurst != 1 || got.SendBuffer != maxSendBuffer {
		t.Fatalf("expected clamped limits, got burst %d buffer %d", got.StateBurst, got.SendBuffer)
	}
}
