package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.CautiousThreshold != 0.60 {
		t.Errorf("CautiousThreshold = %v, want 0.60", cfg.CautiousThreshold)
	}
	if cfg.AggressiveThreshold != 0.85 {
		t.Errorf("AggressiveThreshold = %v, want 0.85", cfg.AggressiveThreshold)
	}
	if cfg.FastPathThreshold != 0.90 {
		t.Errorf("FastPathThreshold = %v, want 0.90", cfg.FastPathThreshold)
	}
	if cfg.MaxDuration != 30*time.Minute {
		t.Errorf("MaxDuration = %v, want 30m", cfg.MaxDuration)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("SessionTTL = %v, want 24h", cfg.SessionTTL)
	}

	wantPriority := []string{"turns", "duration", "complete", "suspicious", "stale"}
	if len(cfg.ExitPriority) != len(wantPriority) {
		t.Fatalf("ExitPriority = %v, want %v", cfg.ExitPriority, wantPriority)
	}
	for i, p := range wantPriority {
		if cfg.ExitPriority[i] != p {
			t.Errorf("ExitPriority[%d] = %q, want %q", i, cfg.ExitPriority[i], p)
		}
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CAUTIOUS_THRESHOLD", "0.7")
	t.Setenv("MAX_TURNS", "12")
	t.Setenv("USE_MEMORY_QUEUE", "true")
	t.Setenv("CLASSIFIER_TIMEOUT", "3s")
	t.Setenv("EXIT_PRIORITY", "complete, turns ,duration")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.CautiousThreshold != 0.7 {
		t.Errorf("CautiousThreshold = %v, want 0.7", cfg.CautiousThreshold)
	}
	if cfg.MaxTurns != 12 {
		t.Errorf("MaxTurns = %d, want 12", cfg.MaxTurns)
	}
	if !cfg.UseMemoryQueue {
		t.Error("UseMemoryQueue = false, want true")
	}
	if cfg.ClassifierTimeout != 3*time.Second {
		t.Errorf("ClassifierTimeout = %v, want 3s", cfg.ClassifierTimeout)
	}
	if len(cfg.ExitPriority) != 3 || cfg.ExitPriority[1] != "turns" {
		t.Errorf("ExitPriority = %v, want [complete turns duration]", cfg.ExitPriority)
	}
}

func TestLoadBadValuesFallBack(t *testing.T) {
	t.Setenv("MAX_TURNS", "not-a-number")
	t.Setenv("AGGRESSIVE_THRESHOLD", "high")
	t.Setenv("MAX_DURATION", "forever")

	cfg := Load()

	if cfg.MaxTurns != 20 {
		t.Errorf("MaxTurns = %d, want default 20", cfg.MaxTurns)
	}
	if cfg.AggressiveThreshold != 0.85 {
		t.Errorf("AggressiveThreshold = %v, want default 0.85", cfg.AggressiveThreshold)
	}
	if cfg.MaxDuration != 30*time.Minute {
		t.Errorf("MaxDuration = %v, want default 30m", cfg.MaxDuration)
	}
}
