package config

import "testing"

func TestLoad_PrefersMosapiUrlOverServiceUrlSynonym(t *testing.T) {
	t.Setenv("mosapiUrl", "https://primary.example")
	t.Setenv("mosapiServiceUrl", "https://fallback.example")
	cfg := Load()
	if cfg.MosapiURL != "https://primary.example" {
		t.Fatalf("expected primary synonym to win, got %s", cfg.MosapiURL)
	}
}

func TestLoad_FallsBackToServiceUrlSynonym(t *testing.T) {
	t.Setenv("mosapiUrl", "")
	t.Setenv("mosapiServiceUrl", "https://fallback.example")
	cfg := Load()
	if cfg.MosapiURL != "https://fallback.example" {
		t.Fatalf("expected fallback synonym, got %s", cfg.MosapiURL)
	}
}

func TestLoad_EntityTypeSynonym(t *testing.T) {
	t.Setenv("entityType", "")
	t.Setenv("mosapiEntityType", "registrar")
	cfg := Load()
	if cfg.EntityType != "registrar" {
		t.Fatalf("expected synonym fallback, got %s", cfg.EntityType)
	}
}

func TestLoad_TldThreadCountCapsAtFour(t *testing.T) {
	t.Setenv("mosapiTldThreadCnt", "10")
	cfg := Load()
	if cfg.TldThreadCount != 4 {
		t.Fatalf("expected thread count capped at 4, got %d", cfg.TldThreadCount)
	}
}

func TestLoad_SplitsCSVLists(t *testing.T) {
	t.Setenv("mosapiTlds", "example, test , demo")
	cfg := Load()
	want := []string{"example", "test", "demo"}
	if len(cfg.Tlds) != len(want) {
		t.Fatalf("expected %d tlds, got %v", len(want), cfg.Tlds)
	}
	for i := range want {
		if cfg.Tlds[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, cfg.Tlds)
		}
	}
}
