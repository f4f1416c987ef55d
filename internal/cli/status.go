package cli

import (
	"fmt"
	"time"

	"github.com/pmxdev/pmx/internal/api"
	"github.com/pmxdev/pmx/internal/cache"
	"github.com/pmxdev/pmx/internal/daemon"
	"github.com/pmxdev/pmx/internal/ui"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cluster, daemon, and cache status",
	Long: `Show a health summary: cluster quorum and node count, whether the
refresh daemon is running, and the age of each cached listing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}

		ui.PrintHeader(ui.HeaderInfo{
			Version: formatVersion(GetVersion()),
			Tagline: "Proxmox cluster manager",
			Context: s.name,
		})

		// Cluster
		cluster, err := s.client.ClusterStatus(cmd.Context())
		if err != nil {
			fmt.Printf("%s cluster unreachable: %v\n", ui.ErrorStyle().Render(ui.SymbolFail), err)
		} else {
			quorum := ui.SuccessStyle().Render("quorate")
			if !cluster.Quorate {
				quorum = ui.ErrorStyle().Render("no quorum")
			}
			name := cluster.Name
			if name == "" {
				name = "standalone"
			}
			fmt.Printf("%s cluster %s: %d node(s), %s\n",
				ui.SuccessStyle().Render(ui.SymbolSuccess), name, cluster.Nodes, quorum)
		}

		// Daemon
		lc := daemon.NewLifecycle(s.dir)
		st := lc.Status()
		if st.Running {
			fmt.Printf("%s daemon running (pid %d)\n", ui.SuccessStyle().Render(ui.SymbolSuccess), st.PID)
		} else {
			fmt.Printf("%s daemon not running\n", ui.WarningStyle().Render(ui.SymbolWarning))
			fmt.Println(ui.MutedStyle().Render("  start it with 'pmx daemon start' to keep listings fast"))
		}

		// Cache
		fmt.Println()
		timestamps := s.store.Timestamps(s.name)
		pairs := make([]ui.KeyValue, 0, len(api.Kinds))
		for _, kind := range api.Kinds {
			ts, ok := timestamps[kind]
			label := cache.FormatAge(time.Since(ts), ok)
			if ok && time.Since(ts) > cache.DefaultTTL {
				label += ui.WarningStyle().Render(" (stale)")
			}
			pairs = append(pairs, ui.KeyValue{Key: kind, Value: label})
		}
		fmt.Print(ui.RenderKeyValues(pairs))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
