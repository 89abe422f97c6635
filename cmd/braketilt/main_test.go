package main

import (
	"path/filepath"
	"testing"

	"github.com/san-kum/braketilt/internal/config"
	"github.com/san-kum/braketilt/internal/scenario"
	"github.com/spf13/cobra"
)

func profileCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	configFile, preset = "", ""
	cmd := &cobra.Command{Use: "test"}
	addProfileFlags(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return cmd
}

func TestParseRange(t *testing.T) {
	name, values, err := parseRange("strength=0:20:5")
	if err != nil {
		t.Fatal(err)
	}
	if name != "strength" || len(values) != 5 || values[4] != 20 {
		t.Errorf("unexpected range %s %v", name, values)
	}

	for _, bad := range []string{"strength", "strength=1:2", "strength=a:2:3", "strength=1:2:0"} {
		if _, _, err := parseRange(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestLoadProfileDefaults(t *testing.T) {
	cfg, err := loadProfile(profileCmd(t))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BrakeTilt.Strength != config.DefaultStrength || cfg.Dt != config.DefaultDt {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadProfileOverrides(t *testing.T) {
	cfg, err := loadProfile(profileCmd(t, "--preset", "firm", "--hold-angle", "2", "--timeout", "100"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "firm" || cfg.BrakeTilt.Strength != 18 {
		t.Errorf("preset not applied: %+v", cfg.BrakeTilt)
	}
	if cfg.HoldTilt.Angle != 2 || cfg.HoldTilt.Timeout != 100 {
		t.Errorf("flags not applied: %+v", cfg.HoldTilt)
	}
}

func TestLoadProfileFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	base := config.DefaultConfig()
	base.Name = "mine"
	base.BrakeTilt.Lingering = 4
	if err := config.Save(path, base); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadProfile(profileCmd(t, "--config", path, "--strength", "12"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "mine" || cfg.BrakeTilt.Lingering != 4 || cfg.BrakeTilt.Strength != 12 {
		t.Errorf("unexpected profile %+v", cfg)
	}
}

func TestLoadProfileRejectsBadValues(t *testing.T) {
	if _, err := loadProfile(profileCmd(t, "--strength", "25")); err == nil {
		t.Error("expected bounds error")
	}
	if _, err := loadProfile(profileCmd(t, "--preset", "nope")); err == nil {
		t.Error("expected unknown preset error")
	}
}

func TestScenariosWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dip.yaml")
	outPath = path
	defer func() { outPath = "" }()

	if err := listScenarios(nil, []string{"nose-dip"}); err != nil {
		t.Fatal(err)
	}

	got, err := scenario.Load(path)
	if err != nil {
		t.Fatalf("written scenario does not load: %v", err)
	}
	want, _ := scenario.Builtin("nose-dip")
	if got.Name != want.Name || len(got.Segments) != len(want.Segments) {
		t.Errorf("expected %s with %d segments, got %s with %d", want.Name, len(want.Segments), got.Name, len(got.Segments))
	}
	if got.Duration() != want.Duration() {
		t.Errorf("duration changed: %f vs %f", got.Duration(), want.Duration())
	}
}
