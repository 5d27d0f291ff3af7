package projects_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/viadorer/orchestrator-sub001/internal/projects"
	"github.com/viadorer/orchestrator-sub001/internal/services"
	"github.com/viadorer/orchestrator-sub001/internal/testsupport"
)

func TestParseOrchestratorConfigDefaults(t *testing.T) {
	cfg, err := projects.ParseOrchestratorConfig([]byte(`{}`), "09:00")
	if err != nil {
		t.Fatalf("ParseOrchestratorConfig: %v", err)
	}
	if cfg.Enabled {
		t.Fatal("projects must default to disabled")
	}
	if cfg.MaxPostsPerDay != 1 || cfg.AutoPublishThreshold != 8.0 {
		t.Fatalf("unexpected numeric defaults: %#v", cfg)
	}
	if len(cfg.PostingTimes) != 1 || cfg.PostingTimes[0] != "09:00" {
		t.Fatalf("expected single default slot, got %v", cfg.PostingTimes)
	}
	if cfg.ContentStrategy != "educational" || cfg.MediaStrategy != "none" || cfg.PrimaryPlatform() != "facebook" {
		t.Fatalf("unexpected string defaults: %#v", cfg)
	}
}

func TestParseOrchestratorConfigOverrides(t *testing.T) {
	cfg, err := projects.ParseOrchestratorConfig([]byte(`{
		"enabled": true,
		"posting_times": ["17:00", "9:00", "17:00"],
		"max_posts_per_day": 0,
		"auto_publish": true,
		"auto_publish_threshold": 7.5,
		"pause_weekends": true,
		"posting_frequency": "Weekdays",
		"platforms": ["LinkedIn", " "]
	}`), "09:00")
	if err != nil {
		t.Fatalf("ParseOrchestratorConfig: %v", err)
	}
	if !cfg.Enabled || !cfg.AutoPublish || !cfg.PauseWeekends {
		t.Fatalf("booleans not applied: %#v", cfg)
	}
	if cfg.MaxPostsPerDay != 0 {
		t.Fatalf("explicit zero quota should be kept, got %d", cfg.MaxPostsPerDay)
	}
	if got := cfg.PostingTimes; len(got) != 2 || got[0] != "09:00" || got[1] != "17:00" {
		t.Fatalf("posting times not normalized: %v", got)
	}
	if cfg.PostingFrequency != projects.FrequencyWeekdays || cfg.PostsOn(time.Saturday) {
		t.Fatalf("unexpected frequency handling: %#v", cfg)
	}
	if cfg.PrimaryPlatform() != "linkedin" || len(cfg.Platforms) != 1 {
		t.Fatalf("platforms not normalized: %v", cfg.Platforms)
	}
}

func TestParseOrchestratorConfigRejects(t *testing.T) {
	cases := map[string]string{
		"unknown key":    `{"enable": true}`,
		"bad time":       `{"posting_times": ["25:00"]}`,
		"coerced bool":   `{"enabled": "true"}`,
		"threshold":      `{"auto_publish_threshold": 11}`,
		"negative quota": `{"max_posts_per_day": -1}`,
		"frequency":      `{"posting_frequency": "hourly"}`,
	}
	for name, raw := range cases {
		if _, err := projects.ParseOrchestratorConfig([]byte(raw), "09:00"); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestStoreLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := projects.NewStore(testsupport.MustOpenDatabase(t, cfg), cfg.Orchestrator.DefaultPostingTime)
	ctx := context.Background()

	created, err := store.Create(ctx, projects.NewProject{Name: "Bakery", Timezone: "America/New_York", Config: []byte(`{"enabled":true}`)})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !created.Active || !created.Config.Enabled {
		t.Fatalf("unexpected created project: %#v", created)
	}
	if loc := created.Location(time.UTC); loc.String() != "America/New_York" {
		t.Fatalf("Location = %s", loc)
	}

	if _, err := store.UpdateConfig(ctx, created.ID, []byte(`{"enabled":false}`)); err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}
	if err := store.UpdateStrategyWeights(ctx, created.ID, map[string]float64{"post": 0.7, "reel": 0.3}); err != nil {
		t.Fatalf("UpdateStrategyWeights: %v", err)
	}
	if err := store.SetActive(ctx, created.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	got, err := store.Get(ctx, created.ID)
	if err != nil || got == nil {
		t.Fatalf("Get: %v %v", got, err)
	}
	if got.Config.Enabled || got.Active || got.StrategyWeights["post"] != 0.7 {
		t.Fatalf("updates not persisted: %#v", got)
	}

	active, err := store.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("inactive project listed: %v", active)
	}

	if err := store.SetActive(ctx, "missing", true); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestProjectLocationFallback(t *testing.T) {
	prague, _ := time.LoadLocation("Europe/Prague")
	p := &projects.Project{Timezone: "Mars/Olympus"}
	if p.Location(prague) != prague {
		t.Fatal("unknown timezone should fall back")
	}
	if (&projects.Project{}).Location(prague) != prague {
		t.Fatal("empty timezone should fall back")
	}
}
