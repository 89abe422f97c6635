package viz

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/braketilt/internal/config"
	"github.com/san-kum/braketilt/internal/ride"
	"github.com/san-kum/braketilt/internal/scenario"
)

func newTestModel(t *testing.T) (Model, *config.Config) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Dt = 0.01
	scn, err := scenario.Builtin("level-stop")
	if err != nil {
		t.Fatal(err)
	}
	r, err := ride.NewRide(cfg, scn)
	if err != nil {
		t.Fatal(err)
	}
	return NewModel(r, cfg), cfg
}

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestModelSteps(t *testing.T) {
	m, _ := newTestModel(t)
	if m.ticksPerFrame != 2 {
		t.Fatalf("expected 2 ticks per frame at dt=0.01, got %d", m.ticksPerFrame)
	}

	m = update(m, TickMsg{})
	if m.ride.Time() <= 0 {
		t.Error("ride should advance on a frame tick")
	}
	if len(m.setpoints) != 1 || len(m.targets) != 1 {
		t.Errorf("expected one history point, got %d/%d", len(m.setpoints), len(m.targets))
	}
}

func TestModelPause(t *testing.T) {
	m, _ := newTestModel(t)
	m = update(m, key(" "))
	if m.running {
		t.Fatal("space should pause")
	}
	m = update(m, TickMsg{})
	if m.ride.Time() != 0 {
		t.Error("paused model must not step")
	}
}

func TestModelRunsToEnd(t *testing.T) {
	m, _ := newTestModel(t)
	for i := 0; i < 1000 && !m.finished; i++ {
		m = update(m, TickMsg{})
	}
	if !m.finished {
		t.Fatal("ride should finish")
	}
	if !strings.Contains(m.View(), "FINISHED") {
		t.Error("view should report a finished ride")
	}

	m = update(m, key("r"))
	if m.finished || m.ride.Time() != 0 || len(m.setpoints) != 0 {
		t.Error("reset should restart the ride")
	}
}

func TestModelTuning(t *testing.T) {
	m, cfg := newTestModel(t)
	// params are sorted; find strength
	for m.paramKeys[m.selected] != "strength" {
		m = update(m, key("tab"))
	}
	m = update(m, key("up"))
	if got := cfg.BrakeTilt.Strength; got != config.DefaultStrength*1.05 {
		t.Errorf("expected strength %f, got %f", config.DefaultStrength*1.05, got)
	}
	want := -(0.5 + (20-cfg.BrakeTilt.Strength)/5)
	if f := m.ride.Controller().Factor(); f != want {
		t.Errorf("controller should be reconfigured: factor %f, want %f", f, want)
	}

	// pushing past the bound is rejected and reported
	for i := 0; i < 30; i++ {
		m = update(m, key("up"))
	}
	if cfg.BrakeTilt.Strength > config.MaxStrength {
		t.Errorf("strength exceeded bound: %f", cfg.BrakeTilt.Strength)
	}
	if m.status == "" {
		t.Error("rejected change should set a status")
	}

	m = update(m, key("r"))
	if cfg.BrakeTilt.Strength != config.DefaultStrength {
		t.Errorf("reset should restore strength, got %f", cfg.BrakeTilt.Strength)
	}
}

func TestModelResetReportsRestoreFailure(t *testing.T) {
	m, cfg := newTestModel(t)
	m.initialParams["strength"] = config.MaxStrength + 5
	m.initialParams["lingering"] = 3

	m = update(m, key("r"))
	if !strings.Contains(m.status, "brake_tilt.strength") {
		t.Errorf("expected the rejected strength in the status, got %q", m.status)
	}
	if cfg.BrakeTilt.Strength != config.DefaultStrength {
		t.Errorf("rejected value must not be applied, got %f", cfg.BrakeTilt.Strength)
	}
	if cfg.BrakeTilt.Lingering != 3 {
		t.Errorf("other parameters should still be restored, got %f", cfg.BrakeTilt.Lingering)
	}
	if m.ride.Time() != 0 {
		t.Error("ride should restart anyway")
	}
}

func TestModelViewShowsPhase(t *testing.T) {
	m, _ := newTestModel(t)
	for i := 0; i < 80; i++ {
		m = update(m, TickMsg{})
	}
	view := m.View()
	for _, want := range []string{"LEVEL-STOP", "Phase", "brake-tilt", "setpoint / target", "strength"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModelQuit(t *testing.T) {
	m, _ := newTestModel(t)
	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestThemeCycle(t *testing.T) {
	defer SetTheme("cyberpunk")
	SetTheme("cyberpunk")
	NextTheme()
	if CurrentTheme.Name != "retro" {
		t.Errorf("expected retro, got %s", CurrentTheme.Name)
	}
	if GetTheme("missing").Name != "cyberpunk" {
		t.Error("unknown theme should fall back to default")
	}
	if len(ThemeNames()) != len(Themes) {
		t.Error("theme names mismatch")
	}
}

func TestCanvasBoard(t *testing.T) {
	c := NewCanvas(20, 6)
	c.DrawBoard(3)
	if !strings.ContainsFunc(c.String(), func(r rune) bool { return r > blank && r <= 0x28ff }) {
		t.Error("board should light some dots")
	}
	c.Clear()
	for _, row := range c.Grid {
		for _, r := range row {
			if r != blank {
				t.Fatal("clear should blank the grid")
			}
		}
	}
	c.Set(-1, -1)
	c.Set(1000, 1000)
}
