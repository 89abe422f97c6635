package viz

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/braketilt/internal/config"
	"github.com/san-kum/braketilt/internal/ride"
)

const (
	width           = 60
	height          = 12
	historyCapacity = 600
	frameRate       = 60
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(45)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	paramStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type TickMsg time.Time

// Model steps a ride in real time and renders the controller state.
type Model struct {
	ride          *ride.Ride
	cfg           *config.Config
	canvas        *Canvas
	ticksPerFrame int
	running       bool
	finished      bool
	last          ride.Sample
	setpoints     []float64
	targets       []float64
	paramKeys     []string
	initialParams map[string]float64
	selected      int
	status        string
	err           error
}

// NewModel builds a live view over r. cfg must be the profile r was built
// from; parameter changes made in the view are applied to it.
func NewModel(r *ride.Ride, cfg *config.Config) Model {
	perFrame := int(math.Round(1 / (frameRate * cfg.Dt)))
	if perFrame < 1 {
		perFrame = 1
	}
	return Model{
		ride:          r,
		cfg:           cfg,
		canvas:        NewCanvas(width, height),
		ticksPerFrame: perFrame,
		running:       true,
		setpoints:     make([]float64, 0, historyCapacity),
		targets:       make([]float64, 0, historyCapacity),
		paramKeys:     cfg.ParamNames(),
		initialParams: cfg.GetParams(),
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles input events and steps the ride.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "tab":
			m.cycleParam()
		case "up", "k":
			m.adjustParam(1.05)
		case "down", "j":
			m.adjustParam(0.95)
		case "t":
			NextTheme()
		}
	case TickMsg:
		if m.running && !m.finished && m.err == nil {
			m.step()
		}
		return m, tick()
	}
	return m, nil
}

// step advances the ride by one frame worth of ticks.
func (m *Model) step() {
	for i := 0; i < m.ticksPerFrame; i++ {
		s, err := m.ride.Next()
		if errors.Is(err, ride.ErrFinished) {
			m.finished = true
			return
		}
		if err != nil {
			m.err = err
			return
		}
		m.last = s
	}
	m.setpoints = appendCapped(m.setpoints, m.last.Setpoint)
	m.targets = appendCapped(m.targets, m.last.Target)
}

func appendCapped(xs []float64, v float64) []float64 {
	xs = append(xs, v)
	if len(xs) > historyCapacity {
		xs = xs[1:]
	}
	return xs
}

func (m *Model) cycleParam() {
	if len(m.paramKeys) == 0 {
		return
	}
	m.selected = (m.selected + 1) % len(m.paramKeys)
}

func (m *Model) adjustParam(factor float64) {
	if len(m.paramKeys) == 0 {
		return
	}
	key := m.paramKeys[m.selected]
	val := m.cfg.GetParams()[key]
	next := val * factor
	if val == 0 && factor > 1 {
		next = 0.1
	}
	if err := m.cfg.SetParam(key, next); err != nil {
		m.status = err.Error()
		return
	}
	if err := m.ride.Reconfigure(); err != nil {
		m.status = err.Error()
		return
	}
	m.status = fmt.Sprintf("%s = %.3f", key, next)
}

// reset restarts the scenario with the initial parameters. A parameter
// that cannot be restored is reported and keeps its current value.
func (m *Model) reset() {
	m.status = ""
	for _, k := range m.paramKeys {
		if err := m.cfg.SetParam(k, m.initialParams[k]); err != nil {
			m.status = err.Error()
		}
	}
	m.ride.Reset()
	m.setpoints = m.setpoints[:0]
	m.targets = m.targets[:0]
	m.last = ride.Sample{}
	m.finished = false
	m.err = nil
}

// View renders the TUI interface.
func (m Model) View() string {
	theme := CurrentTheme
	m.canvas.Clear()
	m.canvas.DrawBoard(m.last.Setpoint)
	canvasView := canvasStyle.Render(m.canvas.String())

	header := lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true).MarginBottom(1)
	phaseStyle := lipgloss.NewStyle().Foreground(theme.PhaseColor(m.last.Phase)).Bold(true)
	active := lipgloss.NewStyle().Foreground(theme.Primary).Bold(true)

	var s strings.Builder
	s.WriteString(header.Render(strings.ToUpper(m.ride.Scenario().Name)) + "\n")

	status := "RUNNING"
	switch {
	case m.err != nil:
		status = "ERROR: " + m.err.Error()
	case m.finished:
		status = "FINISHED"
	case !m.running:
		status = "PAUSED"
	}
	s.WriteString(status + "\n")

	if len(m.setpoints) > 1 {
		chart := asciigraph.PlotMany([][]float64{m.setpoints, m.targets},
			asciigraph.Height(6), asciigraph.Width(30),
			asciigraph.SeriesColors(asciigraph.Green, asciigraph.Yellow),
			asciigraph.Caption("setpoint / target"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}

	s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.2fs", m.ride.Time())) + "\n")
	s.WriteString(labelStyle.Render("Segment") + valueStyle.Render(m.last.Segment) + "\n")
	s.WriteString(labelStyle.Render("Phase") + phaseStyle.Render(m.last.Phase.String()) + "\n")
	s.WriteString(labelStyle.Render("ERPM") + valueStyle.Render(fmt.Sprintf("%.0f", m.last.Erpm)) + "\n")
	s.WriteString(labelStyle.Render("Pitch") + valueStyle.Render(fmt.Sprintf("%.2f°", m.last.Pitch)) + "\n")
	s.WriteString(labelStyle.Render("Target") + valueStyle.Render(fmt.Sprintf("%.3f°", m.last.Target)) + "\n")
	s.WriteString(labelStyle.Render("Setpoint") + valueStyle.Render(fmt.Sprintf("%.3f°", m.last.Setpoint)) + "\n")
	s.WriteString(labelStyle.Render("Holds") + valueStyle.Render(fmt.Sprintf("%d", m.ride.HoldActivations())) + "\n")

	s.WriteString("\nPROFILE\n")
	params := m.cfg.GetParams()
	for i, k := range m.paramKeys {
		line := fmt.Sprintf("%-12s %.3f", k, params[k])
		if i == m.selected {
			s.WriteString(active.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + paramStyle.Render(line) + "\n")
		}
	}
	if m.status != "" {
		s.WriteString(lipgloss.NewStyle().Foreground(theme.Accent).Render(m.status) + "\n")
	}
	s.WriteString(helpStyle.Render("SP:Pause R:Restart Q:Quit\nTab:Param ↑↓:Tune T:Theme"))

	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
}
