// Package ui provides terminal UI components for pmx's CLI output.
//
// The package includes spinners, tables, usage gauges, and styled text
// output using the Lip Gloss library for consistent terminal styling
// across all commands.
//
// # Components Overview
//
//	Spinner     - Animated status indicator for long-running cluster tasks
//	Tables      - Listing output for VMs, nodes, storages and templates
//	Usage gauge - Visual percentage bars for node CPU and memory
//	Sparkline   - Mini line graphs for the watch dashboard
//	Header      - Branded banner for status output
//
// # Color Scheme
//
// Semantic colors cover the common cases:
//
//	ColorSuccess   (green)  - Successful operations, running VMs
//	ColorError     (red)    - Failures and errors
//	ColorWarning   (yellow) - Warnings and skipped items
//	ColorInfo      (cyan)   - Informational messages
//	ColorMuted     (gray)   - Secondary text, cache age, timing info
//	ColorSecondary (blue)   - In-progress indicators
//
// Use DisableColors() to switch to monochrome output (for --no-color flag).
//
// # Spinner Usage
//
// The Spinner type provides an animated indicator for operations:
//
//	s := ui.NewSpinner("Cloning template")
//	s.Start()
//	// ... wait on the cluster task ...
//	s.Success() // or s.Fail() or s.Skip()
//
// The spinner handles terminal output, clearing lines, and timing display.
//
// # Bubble Tea Components
//
// For interactive TUI applications, use SpinnerComponent which wraps the
// Bubble Tea spinner component for use in full-screen applications like
// the watch dashboard.
package ui
