package cli

import (
	"fmt"
	"os"

	"github.com/pmxdev/pmx/internal/ui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var noColorFlag bool

// rootCmd is the base command for pmx.
var rootCmd = &cobra.Command{
	Use:   "pmx",
	Short: "Manage Proxmox VMs from the command line",
	Long: `pmx is a fast CLI for Proxmox clusters.

Listings are served from a local cache kept fresh by a background daemon,
so everyday commands respond instantly instead of waiting on the cluster
API. Start the daemon once with 'pmx daemon start'.

Get started:
  pmx init              Configure your first cluster context
  pmx list vms          List virtual machines
  pmx create            Create a VM from a template
  pmx daemon start      Keep the cache fresh in the background`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColorFlag || !isTerminal() {
			ui.DisableColors()
		}
	},
}

// Execute runs the root command. Structured errors already render their
// own failure symbol and suggestion, so they are printed as-is.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// isTerminal reports whether stdout is attached to a terminal.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "disable colored output")
}
