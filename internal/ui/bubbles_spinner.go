package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SpinnerFrames defines the animation frames (◐ ◓ ◑ ◒) for Bubble Tea
// programs, keeping styling consistent between inline spinners and the
// watch dashboard.
var SpinnerFrames = spinner.Spinner{
	Frames: []string{"◐", "◓", "◑", "◒"},
	FPS:    time.Second / 10,
}

// SpinnerComponentState represents the state of a spinner in a Bubble Tea model.
type SpinnerComponentState int

const (
	SpinnerComponentPending SpinnerComponentState = iota
	SpinnerComponentInProgress
	SpinnerComponentSuccess
	SpinnerComponentFailed
	SpinnerComponentSkipped
)

// outcome translates the component state into the shared wait-outcome
// vocabulary so frame-based and tick-based spinners finish identically.
func (st SpinnerComponentState) outcome() SpinnerState {
	switch st {
	case SpinnerComponentSuccess:
		return SpinnerSuccess
	case SpinnerComponentFailed:
		return SpinnerFailed
	case SpinnerComponentSkipped:
		return SpinnerSkipped
	default:
		return SpinnerPending
	}
}

// SpinnerComponent is a spinner for embedding in Bubble Tea models such
// as the watch dashboard. Unlike the standalone Spinner it owns no
// goroutine; animation is driven by the program's message loop.
type SpinnerComponent struct {
	spinner   spinner.Model
	Label     string
	State     SpinnerComponentState
	StartTime time.Time
}

// NewSpinnerComponent creates a new spinner component with the given label.
func NewSpinnerComponent(label string) SpinnerComponent {
	sp := spinner.New(
		spinner.WithSpinner(SpinnerFrames),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(ColorSecondary)),
	)
	return SpinnerComponent{
		spinner: sp,
		Label:   label,
		State:   SpinnerComponentPending,
	}
}

// Init returns the initial command for the spinner (tick).
func (s SpinnerComponent) Init() tea.Cmd {
	return s.spinner.Tick
}

// Update advances the animation. Ticks arriving before Start or after a
// terminal state are dropped so a finished line stops repainting.
func (s SpinnerComponent) Update(msg tea.Msg) (SpinnerComponent, tea.Cmd) {
	if s.State != SpinnerComponentInProgress {
		return s, nil
	}
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd
	default:
		return s, nil
	}
}

// View renders the spinner in its current state.
func (s SpinnerComponent) View() string {
	if s.State == SpinnerComponentInProgress {
		return s.spinner.View() + " " + s.Label + "..."
	}
	return outcomeLine(s.State.outcome(), s.Label, s.Elapsed())
}

// Start transitions the spinner to in-progress state.
func (s *SpinnerComponent) Start() tea.Cmd {
	s.State = SpinnerComponentInProgress
	s.StartTime = time.Now()
	return s.spinner.Tick
}

// Success transitions the spinner to success state.
func (s *SpinnerComponent) Success() { s.State = SpinnerComponentSuccess }

// Fail transitions the spinner to failed state.
func (s *SpinnerComponent) Fail() { s.State = SpinnerComponentFailed }

// Skip transitions the spinner to skipped state.
func (s *SpinnerComponent) Skip() { s.State = SpinnerComponentSkipped }

// Elapsed returns the duration since the spinner started.
func (s SpinnerComponent) Elapsed() time.Duration {
	if s.StartTime.IsZero() {
		return 0
	}
	return time.Since(s.StartTime)
}
