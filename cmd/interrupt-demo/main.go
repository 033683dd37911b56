// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// interrupt-demo drives an interruptible task from a small terminal UI:
// a progress bar plus start/pause/resume/cancel controls. The workload is
// either a bouncing progress animation or an HTTP download, selected by
// config or flags.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/interruptible/download"
	"github.com/jeranaias/interruptible/internal/config"
	"github.com/jeranaias/interruptible/interrupt"
	"github.com/jeranaias/interruptible/observe"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	brandPrimary = lipgloss.Color("#7C3AED") // Purple
	brandAccent  = lipgloss.Color("#10B981") // Emerald
	brandWarning = lipgloss.Color("#F59E0B") // Amber
	brandError   = lipgloss.Color("#EF4444") // Red
	textMuted    = lipgloss.Color("#6B7280") // Gray

	titleStyle = lipgloss.NewStyle().
			Foreground(brandPrimary).
			Bold(true).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(textMuted)

	errorStyle = lipgloss.NewStyle().
			Foreground(brandError)
)

func stateStyle(s interrupt.State) lipgloss.Style {
	switch s {
	case interrupt.Running:
		return lipgloss.NewStyle().Foreground(brandAccent)
	case interrupt.Paused:
		return lipgloss.NewStyle().Foreground(brandWarning)
	case interrupt.Canceled:
		return lipgloss.NewStyle().Foreground(brandError)
	default:
		return lipgloss.NewStyle().Foreground(textMuted)
	}
}

// =============================================================================
// MODEL
// =============================================================================

// taskEventMsg carries a property-change event into the update loop.
type taskEventMsg observe.Event

// runDoneMsg signals that the owner goroutine returned.
type runDoneMsg struct{ err error }

// runnableTask joins the control surface with the owner entry point.
type runnableTask interface {
	interrupt.Task
	Run() error
}

type model struct {
	task    runnableTask
	bar     progress.Model
	events  chan observe.Event
	percent float64
	running bool
	lastErr error
	width   int
}

func newModel(task runnableTask) *model {
	m := &model{
		task:   task,
		bar:    progress.New(progress.WithDefaultGradient()),
		events: make(chan observe.Event, 64),
	}

	// Listeners run on whichever goroutine mutates the task, with the
	// task's lock held: hand the event straight to the update loop. A full
	// channel just drops the event; the next one refreshes the view.
	task.WatchAll(func(ev observe.Event) {
		select {
		case m.events <- ev:
		default:
		}
	})

	return m
}

// waitForEvent feeds the next property change into the program.
func (m *model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return taskEventMsg(<-m.events)
	}
}

// startRun hands the task its owner goroutine.
func (m *model) startRun() tea.Cmd {
	return func() tea.Msg {
		return runDoneMsg{err: m.task.Run()}
	}
}

func (m *model) Init() tea.Cmd {
	return m.waitForEvent()
}

// =============================================================================
// UPDATE
// =============================================================================

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		barWidth := msg.Width - 20
		if barWidth < 20 {
			barWidth = 20
		}
		if barWidth > 100 {
			barWidth = 100
		}
		m.bar.Width = barWidth
		return m, nil

	case taskEventMsg:
		if msg.Property == interrupt.PropPercentCompleted {
			m.percent = msg.New.(float64)
		}
		return m, m.waitForEvent()

	case runDoneMsg:
		m.running = false
		m.lastErr = msg.err
		if msg.err == nil {
			m.lastErr = m.task.Err()
		}
		return m, nil
	}

	return m, nil
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.task.Cancel()
		m.task.Destroy()
		return m, tea.Quit

	case "s":
		if m.running {
			return m, nil
		}
		if m.task.State() == interrupt.Canceled {
			// A canceled task must be moved back to NotRunning first.
			m.task.Resume()
		}
		m.running = true
		m.lastErr = nil
		return m, m.startRun()

	case "p":
		m.task.Pause()
		return m, nil

	case "r":
		m.task.Resume()
		return m, nil

	case "c":
		m.task.Cancel()
		return m, nil
	}

	return m, nil
}

// =============================================================================
// VIEW
// =============================================================================

func (m *model) View() string {
	s := titleStyle.Render("interruptible demo") + "\n"
	s += fmt.Sprintf("%s - %s\n\n", m.task.Name(), m.task.Description())

	requested := m.task.State()
	observed := m.task.RealState()
	s += fmt.Sprintf("requested: %s   observed: %s\n\n",
		stateStyle(requested).Render(requested.String()),
		stateStyle(observed).Render(observed.String()))

	s += m.bar.ViewAs(m.percent/100) + "\n\n"

	if m.lastErr != nil {
		s += errorStyle.Render(fmt.Sprintf("error: %v", m.lastErr)) + "\n\n"
	}

	s += helpStyle.Render("s start   p pause   r resume   c cancel   q quit") + "\n"
	return s
}

// =============================================================================
// MAIN
// =============================================================================

// animationWork steps the progress value up and down forever, until
// canceled. One checkpoint per frame keeps the task responsive.
func animationWork(interval time.Duration) interrupt.Work {
	return func(task *interrupt.Runner) error {
		value, direction := 0, 1
		for {
			task.SetPercentCompleted(float64(value))
			value += direction
			if value >= 100 {
				direction = -1
			} else if value <= 0 {
				direction = 1
			}
			if err := task.Checkpoint(); err != nil {
				return err
			}
			time.Sleep(interval)
		}
	}
}

func buildTask(cfg *config.Config) runnableTask {
	if cfg.Workload == "download" {
		var opts []download.Option
		if cfg.RateLimitBytes > 0 {
			opts = append(opts, download.WithRateLimit(cfg.RateLimitBytes))
		}
		return download.New(cfg.URL, cfg.Dest, opts...)
	}
	return interrupt.NewRunner("animation", "bounces the progress bar", animationWork(cfg.FrameInterval()))
}

func main() {
	defaultPath, _ := config.DefaultPath()
	configPath := flag.String("config", defaultPath, "config file path")
	workload := flag.String("workload", "", "workload override: animation or download")
	url := flag.String("url", "", "download URL override")
	dest := flag.String("dest", "", "download destination override")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "interrupt-demo: %v\n", err)
		os.Exit(1)
	}
	if *workload != "" {
		cfg.Workload = *workload
	}
	if *url != "" {
		cfg.URL = *url
	}
	if *dest != "" {
		cfg.Dest = *dest
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "interrupt-demo: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(newModel(buildTask(cfg)), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "interrupt-demo: %v\n", err)
		os.Exit(1)
	}
}
