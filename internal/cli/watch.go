package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pmxdev/pmx/internal/api"
	"github.com/pmxdev/pmx/internal/cache"
	"github.com/pmxdev/pmx/internal/daemon"
	"github.com/pmxdev/pmx/internal/errors"
	"github.com/pmxdev/pmx/internal/ui"
	"github.com/spf13/cobra"
)

// historyDepth bounds how many samples the sparklines keep per node.
const historyDepth = 60

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live dashboard of node CPU and memory",
	Long: `Full-screen dashboard showing per-node CPU and memory usage with
usage history sparklines.

Samples come from the cache, so with the daemon running the dashboard
costs the cluster nothing extra. Without the daemon each tick fetches
live data.

Keyboard shortcuts:
  q / Ctrl+C  Quit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !isTerminal() {
			return errors.New(errors.ErrConfig,
				"pmx watch needs a terminal", "")
		}
		s, err := newSession()
		if err != nil {
			return err
		}

		model := newWatchModel(s)
		_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
		return err
	},
}

type nodesMsg struct {
	nodes []api.NodeRecord
	err   error
}

type watchTickMsg time.Time

type watchModel struct {
	s       *session
	spinner ui.SpinnerComponent
	nodes   []api.NodeRecord
	cpuHist map[string][]float64
	memHist map[string][]float64
	loaded  bool
	err     error
	width   int
}

func newWatchModel(s *session) *watchModel {
	return &watchModel{
		s:       s,
		spinner: ui.NewSpinnerComponent("Loading nodes"),
		cpuHist: make(map[string][]float64),
		memHist: make(map[string][]float64),
	}
}

func (m *watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Start(), m.fetchNodes(), watchTick())
}

// fetchNodes samples the node listing, cache-first.
func (m *watchModel) fetchNodes() tea.Cmd {
	return func() tea.Msg {
		nodes, _, err := m.s.nodes(context.Background(), false)
		return nodesMsg{nodes: nodes, err: err}
	}
}

// watchTick fires on the daemon's refresh cadence so each sample can be a
// fresh cache entry.
func watchTick() tea.Cmd {
	return tea.Tick(daemon.RefreshInterval/6, func(t time.Time) tea.Msg {
		return watchTickMsg(t)
	})
}

func (m *watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case nodesMsg:
		m.loaded = true
		m.err = msg.err
		if msg.err == nil {
			m.nodes = msg.nodes
			m.spinner.Success()
			for _, node := range msg.nodes {
				memPercent := 0.0
				if node.MaxMem > 0 {
					memPercent = float64(node.Mem) / float64(node.MaxMem) * 100
				}
				m.cpuHist[node.Node] = appendSample(m.cpuHist[node.Node], node.CPUPercent())
				m.memHist[node.Node] = appendSample(m.memHist[node.Node], memPercent)
			}
		}

	case watchTickMsg:
		return m, tea.Batch(m.fetchNodes(), watchTick())
	}

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

func (m *watchModel) View() string {
	var sb strings.Builder

	sb.WriteString(ui.RenderHeader(ui.HeaderInfo{
		Version: formatVersion(GetVersion()),
		Tagline: "node watch",
		Context: m.s.name,
	}))

	if !m.loaded {
		sb.WriteString(m.spinner.View() + "\n")
		return sb.String()
	}
	if m.err != nil {
		sb.WriteString(ui.ErrorStyle().Render(ui.SymbolFail) + " " + m.err.Error() + "\n")
		sb.WriteString(ui.MutedStyle().Render("retrying on the next tick; press q to quit") + "\n")
		return sb.String()
	}

	sparkWidth := 30
	if m.width > 0 && m.width < 110 {
		sparkWidth = 15
	}

	for _, node := range m.nodes {
		memPercent := 0.0
		if node.MaxMem > 0 {
			memPercent = float64(node.Mem) / float64(node.MaxMem) * 100
		}

		sb.WriteString(fmt.Sprintf("%s %s\n", ui.StatusDot(node.Status), node.Node))
		sb.WriteString(fmt.Sprintf("  cpu %s %s\n",
			ui.RenderUsageBar(node.CPUPercent(), 14),
			ui.RenderSparkline(m.cpuHist[node.Node], sparkWidth)))
		sb.WriteString(fmt.Sprintf("  mem %s %s %s\n",
			ui.RenderUsageBar(memPercent, 14),
			ui.RenderSparkline(m.memHist[node.Node], sparkWidth),
			ui.MutedStyle().Render(fmt.Sprintf("%.1f/%.1f GB", node.MemoryUsedGB(), node.MemoryTotalGB()))))
		sb.WriteString("\n")
	}

	age := "no cache"
	if _, writtenAt, ok := m.s.store.Nodes(m.s.name); ok {
		age = cache.FormatAge(time.Since(writtenAt), true)
	}
	sb.WriteString(ui.MutedStyle().Render(fmt.Sprintf("cache: %s  |  q to quit", age)) + "\n")
	return sb.String()
}

func appendSample(history []float64, sample float64) []float64 {
	history = append(history, sample)
	if len(history) > historyDepth {
		history = history[len(history)-historyDepth:]
	}
	return history
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
