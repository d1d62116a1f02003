package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/BYTE-6D65/webtime/pkg/bench"
	"github.com/BYTE-6D65/webtime/pkg/clock"
	"github.com/BYTE-6D65/webtime/pkg/duration"
	"github.com/BYTE-6D65/webtime/pkg/host"
)

// View states
type viewState int

const (
	viewMainMenu viewState = iota
	viewClock
	viewBenchMenu
	viewRunningBench
	viewResults
)

// Message types
type messageType int

const (
	msgInfo messageType = iota
	msgWarning
	msgError
	msgSuccess
)

type userMessage struct {
	msgType messageType
	text    string
}

var (
	mainMenuChoices = []string{
		"🕐 Live Clock",
		"🧪 Conversion Benchmarks",
		"❌ Exit",
	}

	benchMenuChoices = []string{
		"🎯 Portable (exact, integer only)",
		"⚡ Intrinsic (exact, FMA)",
		"✂️  Truncate fraction",
		"🔄 Round fraction",
		"📐 Float seconds",
		"⬅️  Back to Main Menu",
	}

	benchMenuMethods = []bench.Method{
		bench.MethodPortable,
		bench.MethodIntrinsic,
		bench.MethodTruncate,
		bench.MethodRound,
		bench.MethodSeconds,
	}
)

// model holds the state of the TUI
type model struct {
	state   viewState
	cursor  int
	choices []string
	width   int
	height  int

	// Live clock
	source       *clock.Source
	truer        clock.Truer
	observations int
	started      clock.Instant
	reading      *clockReading

	// Replay, nil when reading the host timer
	replay    host.Replayer
	replaying bool

	// Benchmark execution
	benchScenario bench.Scenario
	benchMethod   bench.Method
	benchRunning  bool
	benchResults  *bench.PerformanceMetrics
	benchError    error
	benchProgress *benchProgressMsg
	cancelBench   context.CancelFunc

	spinnerFrame int
	userMessage  *userMessage
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4")).
			PaddingLeft(2)

	menuItemStyle = lipgloss.NewStyle().
			PaddingLeft(4)

	selectedItemStyle = lipgloss.NewStyle().
				PaddingLeft(2).
				Foreground(lipgloss.Color("#7D56F4")).
				Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			PaddingTop(1).
			PaddingLeft(2)

	resultsStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(1, 2)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Width(14)

	infoMessageStyle    = messageStyle("#00A9E0")
	warningMessageStyle = messageStyle("#FFB800")
	errorMessageStyle   = messageStyle("#FF5555")
	successMessageStyle = messageStyle("#50FA7B")
)

func messageStyle(color string) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(color)).
		Foreground(lipgloss.Color(color)).
		Padding(0, 2).
		MarginTop(1).
		MarginLeft(2)
}

// Messages
type benchCompleteMsg struct {
	results *bench.PerformanceMetrics
	err     error
}

type benchProgressMsg struct {
	done        int
	total       int
	currentRate float64
	elapsedTime time.Duration
}

type clockTickMsg struct{}

type spinnerTickMsg struct{}

// clockReading is one sample of both clocks.
type clockReading struct {
	instant   clock.Instant
	system    clock.SystemTime
	elapsed   duration.Duration
	estimated clock.SystemTime
	slope     float64
}

// Global program reference for sending progress updates
var globalProgram *tea.Program

func initialModel(source *clock.Source, replay host.Replayer) model {
	// Synchronized Instants already measure from the epoch.
	var truer clock.Truer = clock.NewWallTruer(64)
	if source.Synchronized() {
		truer = clock.NewIdentityTruer()
	}

	return model{
		state:         viewMainMenu,
		choices:       mainMenuChoices,
		source:        source,
		truer:         truer,
		replay:        replay,
		benchScenario: bench.ScenarioEpoch,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func clockTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return clockTickMsg{}
	})
}

func spinnerTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return spinnerTickMsg{}
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case clockTickMsg:
		if m.state == viewClock {
			m.sample()
			return m, clockTick()
		}

	case replayStepMsg:
		m.replaying = false
		if m.state == viewClock {
			m.sample()
			cmd := m.nextReplayStep()
			return m, cmd
		}

	case benchCompleteMsg:
		m.benchRunning = false
		m.benchResults = msg.results
		m.benchError = msg.err
		m.cancelBench = nil
		m.state = viewResults

		if msg.err == nil && msg.results != nil {
			m.userMessage = &userMessage{
				msgType: msgSuccess,
				text: fmt.Sprintf("Benchmark completed!\n   %d conversions, %d mismatches",
					msg.results.Conversions,
					msg.results.Mismatches),
			}
			if msg.results.Mismatches > 0 {
				m.userMessage.msgType = msgWarning
			}
		}
		return m, nil

	case benchProgressMsg:
		m.benchProgress = &msg
		return m, nil

	case spinnerTickMsg:
		if m.state == viewRunningBench {
			m.spinnerFrame = (m.spinnerFrame + 1) % 10
			return m, spinnerTick()
		}
	}

	return m, nil
}

// sample reads both clocks and feeds the truer.
func (m *model) sample() {
	inst := m.source.Now()
	sys := m.source.SystemNow()
	m.truer.Observe(inst, sys)
	m.observations++

	slope, _ := m.truer.Snapshot()
	m.reading = &clockReading{
		instant:   inst,
		system:    sys,
		elapsed:   inst.DurationSince(m.started),
		estimated: m.truer.True(inst),
		slope:     slope,
	}
}

func (m model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.state {
	case viewMainMenu:
		return m.handleMainMenuKeys(msg)
	case viewClock:
		return m.handleClockKeys(msg)
	case viewBenchMenu:
		return m.handleBenchMenuKeys(msg)
	case viewRunningBench:
		return m.handleRunningKeys(msg)
	case viewResults:
		return m.handleResultsKeys(msg)
	}
	return m, nil
}

func (m model) moveCursor(key string) model {
	switch key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.choices)-1 {
			m.cursor++
		}
	}
	return m
}

func (m model) handleMainMenuKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "up", "k", "down", "j":
		m = m.moveCursor(key)
		m.userMessage = nil

	case "enter", " ":
		switch m.cursor {
		case 0:
			return m.openClock()
		case 1:
			m.state = viewBenchMenu
			m.cursor = 0
			m.userMessage = nil
			m.choices = benchMenuChoices
		case 2:
			return m, tea.Quit
		}
	}
	return m, nil
}

// openClock switches to the live clock view. A host without a Performance
// object makes Now panic, which is reported instead of crashing the TUI.
func (m model) openClock() (result tea.Model, cmd tea.Cmd) {
	defer func() {
		if r := recover(); r != nil {
			m.state = viewMainMenu
			m.userMessage = &userMessage{msgType: msgError, text: fmt.Sprintf("Clock unavailable: %v", r)}
			result, cmd = m, nil
		}
	}()

	m.started = m.source.Now()
	m.state = viewClock
	m.userMessage = nil
	m.sample()
	if m.replay != nil {
		next := m.nextReplayStep()
		return m, next
	}
	return m, clockTick()
}

// nextReplayStep schedules the next replayed reading. The live clock stops
// once every delta has been replayed.
func (m *model) nextReplayStep() tea.Cmd {
	if m.replaying || !m.replay.HasNext() {
		return nil
	}
	m.replaying = true
	return replayStep(m.replay)
}

func (m model) handleClockKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "r":
		if m.replay == nil {
			return m, nil
		}
		m.replay.Reset()
		m.started = m.source.Now()
		m.sample()
		cmd := m.nextReplayStep()
		return m, cmd

	case "esc", "enter", " ":
		m.state = viewMainMenu
		m.cursor = 0
		m.choices = mainMenuChoices
		m.userMessage = &userMessage{
			msgType: msgInfo,
			text:    fmt.Sprintf("Collected %d clock observations", m.observations),
		}
	}
	return m, nil
}

func (m model) handleBenchMenuKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "up", "k", "down", "j":
		m = m.moveCursor(key)

	case "tab":
		scenarios := bench.Scenarios()
		for i, s := range scenarios {
			if s == m.benchScenario {
				m.benchScenario = scenarios[(i+1)%len(scenarios)]
				break
			}
		}

	case "enter", " ":
		if m.cursor == len(benchMenuMethods) {
			m.state = viewMainMenu
			m.cursor = 0
			m.choices = mainMenuChoices
			return m, nil
		}

		cfg := bench.DefaultConfig()
		cfg.Method = benchMenuMethods[m.cursor]
		cfg.Scenario = m.benchScenario
		cfg.Conversions = 5_000_000

		ctx, cancel := context.WithCancel(context.Background())
		m.benchMethod = cfg.Method
		m.benchRunning = true
		m.benchProgress = nil
		m.cancelBench = cancel
		m.state = viewRunningBench
		return m, tea.Batch(runBench(ctx, cfg), spinnerTick())
	}
	return m, nil
}

func (m model) handleRunningKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		if m.cancelBench != nil {
			m.cancelBench()
		}
	}
	return m, nil
}

func (m model) handleResultsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "enter", " ", "esc":
		m.state = viewBenchMenu
		m.cursor = 0
		m.benchResults = nil
		m.benchError = nil
		m.userMessage = nil
		m.choices = benchMenuChoices
	}
	return m, nil
}

func (m model) View() string {
	switch m.state {
	case viewMainMenu:
		return m.renderMenu("🎮 webtime Demo - Interactive Menu")
	case viewClock:
		return m.renderClock()
	case viewBenchMenu:
		return m.renderMenu(fmt.Sprintf("🧪 Conversion Benchmarks (%s scenario)", m.benchScenario))
	case viewRunningBench:
		return m.renderRunningBench()
	case viewResults:
		return m.renderResults()
	}
	return ""
}

func (m model) renderMenu(title string) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(title) + "\n\n")

	for i, choice := range m.choices {
		if m.cursor == i {
			sb.WriteString(selectedItemStyle.Render("▶ "+choice) + "\n")
		} else {
			sb.WriteString(menuItemStyle.Render("  "+choice) + "\n")
		}
	}

	help := "\nUse ↑/↓ or j/k to navigate • Enter to select • q to quit"
	if m.state == viewBenchMenu {
		help += " • Tab to change scenario"
	}
	sb.WriteString(helpStyle.Render(help))

	if m.userMessage != nil {
		sb.WriteString("\n" + m.renderUserMessage())
	}
	return sb.String()
}

func (m model) renderClock() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("🕐 Live Clock") + "\n\n")

	if r := m.reading; r != nil {
		row := func(label, value string) {
			sb.WriteString("  " + labelStyle.Render(label) + value + "\n")
		}
		row("Source", m.source.ID().String())
		row("Instant", r.instant.String())
		row("Elapsed", r.elapsed.String())
		row("Elapsed (ms)", formatMillis(r.elapsed))
		row("SystemTime", r.system.String())
		row("Estimated", r.estimated.String())
		row("Drift", fmt.Sprintf("%+.1f ppm", (r.slope-1)*1e6))
		row("Observations", fmt.Sprintf("%d", m.observations))
		if m.replay != nil {
			row("Replay", fmt.Sprintf("%d / %d deltas", m.replay.CurrentIndex(), m.replay.TotalDeltas()))
		}
	}

	help := "\nEnter or Esc to go back • q to quit"
	if m.replay != nil {
		help += " • r to restart the replay"
	}
	sb.WriteString(helpStyle.Render(help))
	return sb.String()
}

func (m model) renderRunningBench() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf("⚡ Running %s benchmark (%s)...", m.benchMethod, m.benchScenario)) + "\n\n")
	sb.WriteString("  " + m.spinner() + " Converting timestamps...\n\n")

	if p := m.benchProgress; p != nil {
		percentage := float64(p.done) / float64(p.total) * 100

		barWidth := 40
		filled := int(percentage / 100 * float64(barWidth))
		bar := "[" + strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled) + "]"

		sb.WriteString(fmt.Sprintf("  %s %.1f%%\n\n", bar, percentage))
		sb.WriteString(fmt.Sprintf("  Conversions: %d / %d\n", p.done, p.total))
		sb.WriteString(fmt.Sprintf("  Elapsed:     %v\n", p.elapsedTime.Round(time.Millisecond)))
		sb.WriteString(fmt.Sprintf("  Rate:        %.0f conversions/sec\n", p.currentRate))
	} else {
		sb.WriteString("  Initializing...\n")
	}

	sb.WriteString("\n" + helpStyle.Render("Running... Press Esc to cancel"))
	return sb.String()
}

func (m model) renderResults() string {
	if m.benchError != nil {
		errMsg := errorMessageStyle.Render("❌ Benchmark failed!\n   " + m.benchError.Error())
		return titleStyle.Render("❌ Benchmark Failed") + "\n\n" +
			errMsg + "\n\n" +
			helpStyle.Render("Press Enter to go back")
	}

	if m.benchResults == nil {
		return "No results available"
	}

	header := titleStyle.Render("✅ Benchmark Complete") + "\n"

	var message string
	if m.userMessage != nil {
		message = "\n" + m.renderUserMessage() + "\n"
	}

	metrics := resultsStyle.Render(bench.FormatMetrics(m.benchResults))
	footer := helpStyle.Render("\nPress Enter to run another benchmark • q to quit")

	return header + message + metrics + footer
}

func (m model) spinner() string {
	frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	return frames[m.spinnerFrame]
}

func (m model) renderUserMessage() string {
	if m.userMessage == nil {
		return ""
	}

	var style lipgloss.Style
	var icon string

	switch m.userMessage.msgType {
	case msgInfo:
		style = infoMessageStyle
		icon = "ℹ️ "
	case msgWarning:
		style = warningMessageStyle
		icon = "⚠️  "
	case msgError:
		style = errorMessageStyle
		icon = "❌ "
	case msgSuccess:
		style = successMessageStyle
		icon = "✅ "
	}

	return style.Render(icon + m.userMessage.text)
}

func runBench(ctx context.Context, cfg bench.Config) tea.Cmd {
	return func() tea.Msg {
		results, err := bench.RunScenarioWithProgress(ctx, cfg,
			func(done, total int, rate float64, elapsed time.Duration) {
				if globalProgram != nil {
					globalProgram.Send(benchProgressMsg{
						done:        done,
						total:       total,
						currentRate: rate,
						elapsedTime: elapsed,
					})
				}
			},
		)

		return benchCompleteMsg{
			results: results,
			err:     err,
		}
	}
}

func startTUI(a *app) error {
	p := tea.NewProgram(initialModel(a.source, a.replayer), tea.WithAltScreen(), tea.WithInput(a.in), tea.WithOutput(a.out))

	globalProgram = p

	_, err := p.Run()
	return err
}
