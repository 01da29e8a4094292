// Package tui renders a live diagnostics dashboard for a running
// trajectory.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/jchen-md/ringmd/internal/config"
	"github.com/jchen-md/ringmd/internal/sim"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

const historyLen = 120

type stepMsg struct {
	step int
	diag [13]float64
}

type doneMsg struct{}

type liveModel struct {
	cfg     *config.Config
	ch      chan stepMsg
	step    int
	latest  [13]float64
	history []float64 // trace of the plotted diagnostic
	plotted int       // which diagnostic the graph shows
	done    bool
	width   int
}

func waitForStep(ch chan stepMsg) tea.Cmd {
	return func() tea.Msg {
		m, ok := <-ch
		if !ok {
			return doneMsg{}
		}
		return m
	}
}

func (m liveModel) Init() tea.Cmd { return waitForStep(m.ch) }

func (m liveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.plotted = (m.plotted + 1) % len(sim.Labels)
			m.history = m.history[:0]
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case stepMsg:
		m.step = msg.step
		m.latest = msg.diag
		m.history = append(m.history, msg.diag[m.plotted])
		if len(m.history) > historyLen {
			m.history = m.history[1:]
		}
		return m, waitForStep(m.ch)
	case doneMsg:
		m.done = true
		return m, nil
	}
	return m, nil
}

func (m liveModel) View() string {
	var b strings.Builder

	b.WriteString(cyan.Render(fmt.Sprintf("ringmd · %s · P=%d · %s/%s",
		m.cfg.Ensemble, m.cfg.NBeads, m.cfg.Integrator, m.cfg.Thermostat)))
	b.WriteString("\n")
	b.WriteString(dim.Render(fmt.Sprintf("step %d / %d", m.step, m.cfg.Steps)))
	b.WriteString("\n\n")

	for i, label := range sim.Labels {
		style := white
		if i == m.plotted {
			style = yellow
		}
		b.WriteString(fmt.Sprintf("  %s %s\n",
			dim.Render(fmt.Sprintf("%-10s", label)),
			style.Render(fmt.Sprintf("%14.6g", m.latest[i]))))
	}
	b.WriteString("\n")

	if len(m.history) > 1 {
		b.WriteString(asciigraph.Plot(m.history,
			asciigraph.Height(8),
			asciigraph.Width(70),
			asciigraph.Caption(sim.Labels[m.plotted]),
		))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(green.Render("run complete"))
		b.WriteString(dim.Render("  ·  q to exit"))
	} else {
		b.WriteString(dim.Render("tab: cycle plotted diagnostic  ·  q: quit"))
	}
	b.WriteString("\n")
	return b.String()
}

type outcome struct {
	res *sim.Result
	err error
}

// RunLive drives a trajectory with the dashboard attached. The run
// executes on its own goroutines; the returned result is nil when the
// user quit before completion.
func RunLive(cfg *config.Config) (*sim.Result, error) {
	ch := make(chan stepMsg, 64)
	out := make(chan outcome, 1)

	go func() {
		res, err := sim.Run(cfg, func(step int, diag [13]float64) {
			ch <- stepMsg{step: step, diag: diag}
		})
		out <- outcome{res: res, err: err}
		close(ch)
	}()

	m := liveModel{cfg: cfg, ch: ch, width: 80}
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return nil, err
	}

	select {
	case o := <-out:
		return o.res, o.err
	default:
		// Quit before the trajectory finished.
		return nil, nil
	}
}
