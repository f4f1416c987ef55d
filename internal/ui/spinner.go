package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// SpinnerState represents the current state of a spinner.
type SpinnerState int

const (
	SpinnerPending SpinnerState = iota
	SpinnerInProgress
	SpinnerSuccess
	SpinnerFailed
	SpinnerSkipped
)

// Spinner animation frames, a braille scan pattern.
var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

const spinnerFrameInterval = 60 * time.Millisecond

// spinnerElapsedAfter is how long a wait runs before the live elapsed time
// joins the animation. Clones and rollbacks regularly run for minutes;
// quick operations stay uncluttered.
var spinnerElapsedAfter = 2 * time.Second

// ansiEraseLine clears the current terminal line before redrawing.
const ansiEraseLine = "\r\x1b[2K"

// outcomeGlyph maps a wait state to the symbol and style used for its
// final line. Shared by the inline Spinner and the Bubble Tea component
// so both surfaces report task outcomes identically.
func outcomeGlyph(state SpinnerState) (string, lipgloss.Style) {
	switch state {
	case SpinnerSuccess:
		return SymbolComplete, lipgloss.NewStyle().Foreground(ColorSuccess)
	case SpinnerFailed:
		return SymbolFail, lipgloss.NewStyle().Foreground(ColorError)
	case SpinnerSkipped:
		return SymbolSkipped, lipgloss.NewStyle().Foreground(ColorWarning)
	default:
		return SymbolPending, lipgloss.NewStyle().Foreground(ColorMuted)
	}
}

// outcomeLine renders the terminal line for a finished wait:
// symbol, label, dimmed elapsed time.
func outcomeLine(state SpinnerState, label string, elapsed time.Duration) string {
	symbol, style := outcomeGlyph(state)
	timing := lipgloss.NewStyle().Foreground(ColorMuted).Render(formatDuration(elapsed))
	return style.Render(symbol) + " " + label + " " + timing
}

// Spinner displays an animated status indicator with a label. It is the
// standard wait indicator for cluster tasks (clone, snapshot, rollback).
type Spinner struct {
	mu        sync.Mutex
	label     string
	state     SpinnerState
	frame     int
	startTime time.Time
	stop      chan struct{}
	done      chan struct{}
	output    func(string)
	running   bool
}

// NewSpinner creates a new spinner with the given label.
// Output defaults to fmt.Print; use SetOutput to customize.
func NewSpinner(label string) *Spinner {
	return &Spinner{
		label:  label,
		state:  SpinnerPending,
		output: func(s string) { fmt.Print(s) },
	}
}

// SetOutput sets the output function for the spinner.
// Useful for testing or redirecting output.
func (s *Spinner) SetOutput(fn func(string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.output = fn
}

// Start begins the spinner animation.
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.state = SpinnerInProgress
	s.startTime = time.Now()
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.mu.Unlock()

	s.output(s.frameLine())

	go func() {
		ticker := time.NewTicker(spinnerFrameInterval)
		defer ticker.Stop()
		defer close(s.done)
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.mu.Lock()
				s.frame = (s.frame + 1) % len(spinnerFrames)
				s.mu.Unlock()
				s.output(s.frameLine())
			}
		}
	}()
}

// Stop halts the spinner animation without changing state.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	s.mu.Unlock()

	<-s.done
}

// Success stops the spinner and marks it as successful.
func (s *Spinner) Success() { s.finish(SpinnerSuccess) }

// Fail stops the spinner and marks it as failed.
func (s *Spinner) Fail() { s.finish(SpinnerFailed) }

// Skip stops the spinner and marks it as skipped.
func (s *Spinner) Skip() { s.finish(SpinnerSkipped) }

func (s *Spinner) finish(state SpinnerState) {
	s.Stop()
	s.mu.Lock()
	s.state = state
	line := outcomeLine(state, s.label, time.Since(s.startTime))
	out := s.output
	s.mu.Unlock()
	out(ansiEraseLine + line + "\n")
}

// State returns the current spinner state.
func (s *Spinner) State() SpinnerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Elapsed returns the time since the spinner started.
func (s *Spinner) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startTime.IsZero() {
		return 0
	}
	return time.Since(s.startTime)
}

// Label returns the spinner's label.
func (s *Spinner) Label() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.label
}

// SetLabel updates the spinner's label.
func (s *Spinner) SetLabel(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.label = label
}

// frameLine renders one animation frame. Past spinnerElapsedAfter the
// running time is appended so long clone waits show visible progress.
func (s *Spinner) frameLine() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	style := lipgloss.NewStyle().Foreground(GradientColors[(s.frame/2)%len(GradientColors)])
	line := ansiEraseLine + style.Render(spinnerFrames[s.frame]) + " " + s.label + "..."

	if elapsed := time.Since(s.startTime); elapsed >= spinnerElapsedAfter {
		timing := lipgloss.NewStyle().Foreground(ColorMuted).Render("(" + formatDuration(elapsed) + ")")
		line += " " + timing
	}
	return line
}

// formatDuration formats a duration for display (e.g., "0.3s", "12.4s", "2m05s").
func formatDuration(d time.Duration) string {
	secs := d.Seconds()
	if secs >= 60 {
		mins := int(secs) / 60
		return fmt.Sprintf("%dm%02ds", mins, int(secs)%60)
	}
	if secs < 0.1 {
		return fmt.Sprintf("%.2fs", secs)
	}
	return fmt.Sprintf("%.1fs", secs)
}
