package cli

import (
	"fmt"
	"strconv"

	"github.com/pmxdev/pmx/internal/config"
	"github.com/pmxdev/pmx/internal/daemon"
	"github.com/pmxdev/pmx/internal/ui"
	"github.com/spf13/cobra"
)

var daemonLogLines int

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Control the cache refresh daemon",
	Long: `Control the background daemon that refreshes the listing cache.

The daemon refreshes every configured context every 30 seconds, so
listing commands always hit a fresh cache. One daemon runs per machine,
tracked by a PID file under the pmx home directory.`,
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := config.Home()
		started, err := daemon.NewLifecycle(dir).Start()
		if err != nil {
			return err
		}
		if !started {
			fmt.Println("Daemon is already running.")
			return nil
		}
		ui.PrintSuccess("Daemon started")
		return nil
	},
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		stopped, err := daemon.NewLifecycle(config.Home()).Stop()
		if err != nil {
			return err
		}
		if !stopped {
			fmt.Println("Daemon is not running.")
			return nil
		}
		ui.PrintSuccess("Daemon stopped")
		return nil
	},
}

var daemonRestartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := daemon.NewLifecycle(config.Home()).Restart(); err != nil {
			return err
		}
		ui.PrintSuccess("Daemon restarted")
		return nil
	},
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	RunE: func(cmd *cobra.Command, args []string) error {
		st := daemon.NewLifecycle(config.Home()).Status()

		state := ui.ErrorStyle().Render("not running")
		pid := "-"
		if st.Running {
			state = ui.SuccessStyle().Render("running")
			pid = strconv.Itoa(st.PID)
		}
		fmt.Print(ui.RenderKeyValues([]ui.KeyValue{
			{Key: "State", Value: state},
			{Key: "PID", Value: pid},
			{Key: "PID file", Value: st.PIDFile},
			{Key: "Log file", Value: st.LogFile},
		}))
		return nil
	},
}

var daemonLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the daemon log",
	RunE: func(cmd *cobra.Command, args []string) error {
		lines, err := daemon.NewLifecycle(config.Home()).TailLogs(daemonLogLines)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			fmt.Println("No log output yet.")
			return nil
		}
		for _, line := range lines {
			fmt.Println(line)
		}
		return nil
	},
}

// daemonRunForegroundCmd is the hidden entry point the detached daemon
// process starts with. Users interact with 'daemon start' instead.
var daemonRunForegroundCmd = &cobra.Command{
	Use:    "run-foreground",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return daemon.Run(config.Home())
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonRestartCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
	daemonCmd.AddCommand(daemonLogsCmd)
	daemonCmd.AddCommand(daemonRunForegroundCmd)
	daemonLogsCmd.Flags().IntVarP(&daemonLogLines, "lines", "n", 50, "number of log lines to show")
}
