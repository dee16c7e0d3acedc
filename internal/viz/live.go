// Package viz renders simulations in the terminal: a Bubble Tea live
// view with keyboard-driven actuator commands, plus ASCII charts for
// recorded runs.
package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/hybridsim/internal/sim"
)

const (
	canvasWidth     = 70
	canvasHeight    = 20
	historyCapacity = 400
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2).Width(42)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type TickMsg time.Time

// Model drives one body of a controller through real-time ticks and
// routes key presses into actuator commands.
type Model struct {
	ctrl     *sim.Controller
	bodyName string
	dt       float64

	canvas  *Canvas
	trail   []struct{ x, y int }
	history []float64

	setpoints []float64
	stepSizes []float64
	selected  int

	running bool
	clock   float64
	lastErr error
}

// NewModel wires a live view to an already-registered body. The step
// size for actuator adjustments is a fraction of each channel's range.
func NewModel(ctrl *sim.Controller, bodyName string, dt float64) (*Model, error) {
	b, err := ctrl.Body(bodyName)
	if err != nil {
		return nil, err
	}

	n := b.Actuators()
	setpoints := make([]float64, n)
	stepSizes := make([]float64, n)
	for i := 0; i < n; i++ {
		a, err := b.Actuator(i)
		if err != nil {
			return nil, err
		}
		setpoints[i] = a.Current()
		stepSizes[i] = (a.Max() - a.Min()) / 40
	}

	return &Model{
		ctrl:      ctrl,
		bodyName:  bodyName,
		dt:        dt,
		canvas:    NewCanvas(canvasWidth, canvasHeight),
		trail:     make([]struct{ x, y int }, 0, 100),
		history:   make([]float64, 0, historyCapacity),
		setpoints: setpoints,
		stepSizes: stepSizes,
		running:   true,
	}, nil
}

func (m *Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "tab":
			if len(m.setpoints) > 0 {
				m.selected = (m.selected + 1) % len(m.setpoints)
			}
		case "up", "k":
			m.adjust(1)
		case "down", "j":
			m.adjust(-1)
		case "0":
			for i := range m.setpoints {
				m.setpoints[i] = 0
				m.lastErr = m.ctrl.Receive(m.bodyName, i, 0)
			}
		}
	case TickMsg:
		if m.running {
			m.step()
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) adjust(dir float64) {
	if len(m.setpoints) == 0 {
		return
	}
	i := m.selected
	m.setpoints[i] += dir * m.stepSizes[i]
	m.lastErr = m.ctrl.Receive(m.bodyName, i, m.setpoints[i])
}

func (m *Model) step() {
	if err := m.ctrl.Tick(m.bodyName, m.dt); err != nil {
		m.lastErr = err
		m.running = false
		return
	}
	m.clock += m.dt

	x, err := m.ctrl.Observe(m.bodyName)
	if err != nil {
		m.lastErr = err
		return
	}
	m.history = append(m.history, x[chartIndex(m.bodyName)])
	if len(m.history) > historyCapacity {
		m.history = m.history[1:]
	}
}

// chartIndex picks the state component worth charting: altitude for
// the drone, angle otherwise.
func chartIndex(body string) int {
	if body == "drone" {
		return 1
	}
	return 0
}

func (m *Model) View() string {
	x, err := m.ctrl.Observe(m.bodyName)
	if err != nil {
		return errorStyle.Render(err.Error())
	}

	m.canvas.Clear()
	switch m.bodyName {
	case "pendulum":
		m.drawPendulum(x[0])
	case "drone":
		m.drawDrone(x[0], x[1], x[4])
	}

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.bodyName)) + "\n")
	status := "RUNNING"
	if !m.running {
		status = "PAUSED"
	}
	s.WriteString(status + "\n")

	if len(m.history) > 1 {
		chart := asciigraph.Plot(m.history,
			asciigraph.Height(4), asciigraph.Width(30))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}

	s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.2fs", m.clock)) + "\n")
	for i, v := range x {
		if i >= 6 {
			break
		}
		s.WriteString(labelStyle.Render(fmt.Sprintf("x%d", i)) + valueStyle.Render(fmt.Sprintf("%+.3f", v)) + "\n")
	}

	s.WriteString("\nACTUATORS\n")
	b, err := m.ctrl.Body(m.bodyName)
	if err == nil {
		for i := 0; i < b.Actuators(); i++ {
			a, aerr := b.Actuator(i)
			if aerr != nil {
				continue
			}
			marker := "  "
			if i == m.selected {
				marker = "> "
			}
			s.WriteString(fmt.Sprintf("%s%-8s %+.2f  [%+.1f, %+.1f]\n",
				marker, a.Name(), a.Current(), a.Min(), a.Max()))
		}
	}

	if m.lastErr != nil {
		s.WriteString("\n" + errorStyle.Render(m.lastErr.Error()) + "\n")
	}

	s.WriteString(helpStyle.Render("SP:Pause Tab:Select ↑↓:Command 0:Zero Q:Quit"))

	return lipgloss.JoinHorizontal(lipgloss.Top,
		canvasStyle.Render(m.canvas.String()),
		statsStyle.Render(s.String()))
}

func (m *Model) drawPendulum(theta float64) {
	px, py := canvasWidth/2, 3
	length := 10.0
	bx := px + int(2*length*math.Cos(theta))
	by := py - int(length*math.Sin(theta))

	m.pushTrail(bx, by)
	for _, pt := range m.trail {
		m.canvas.Set(pt.x, pt.y, '.')
	}

	m.canvas.Set(px, py, '+')
	m.canvas.DrawLine(px, py, bx, by, '|')
	m.canvas.Set(bx, by, 'O')
}

func (m *Model) drawDrone(x, y, theta float64) {
	for i := 3; i < canvasWidth-3; i++ {
		m.canvas.Set(i, canvasHeight-2, '_')
	}

	dx := canvasWidth/2 + int(x*3)
	dy := canvasHeight - 3 - int(y*1.5)

	m.pushTrail(dx, dy)
	for _, pt := range m.trail {
		m.canvas.Set(pt.x, pt.y, '.')
	}

	arm := 4.0
	lx := dx - int(arm*math.Cos(theta))
	ly := dy + int(arm*math.Sin(theta))
	rx := dx + int(arm*math.Cos(theta))
	ry := dy - int(arm*math.Sin(theta))

	m.canvas.DrawLine(lx, ly, rx, ry, '-')
	m.canvas.Set(dx, dy, 'X')
	m.canvas.Set(lx, ly, 'o')
	m.canvas.Set(rx, ry, 'o')
}

func (m *Model) pushTrail(x, y int) {
	m.trail = append(m.trail, struct{ x, y int }{x, y})
	if len(m.trail) > 40 {
		m.trail = m.trail[1:]
	}
}
