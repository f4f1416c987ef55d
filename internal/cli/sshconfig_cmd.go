package cli

import (
	"fmt"

	"github.com/pmxdev/pmx/internal/config"
	"github.com/pmxdev/pmx/internal/sshconfig"
	"github.com/pmxdev/pmx/internal/ui"
	"github.com/spf13/cobra"
)

var (
	sshconfigApply bool
	sshconfigPath  string
)

var sshconfigCmd = &cobra.Command{
	Use:   "sshconfig",
	Short: "Generate SSH config entries for created VMs",
	Long: `Generate SSH config Host blocks for VMs created through pmx.

By default the entries are printed; with --apply they are merged into
your SSH config, skipping aliases that already exist.

Examples:
  pmx sshconfig
  pmx sshconfig --apply`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := config.Home()
		vms, err := config.LoadCreatedVMs(dir)
		if err != nil {
			return err
		}

		var entries []sshconfig.Entry
		for _, vm := range vms {
			if vm.IP == "" {
				continue
			}
			entries = append(entries, sshconfig.Entry{
				Alias:    vm.Name,
				HostName: vm.IP,
				User:     vm.User,
			})
		}
		if len(entries) == 0 {
			fmt.Println("No created VMs with a known IP; nothing to generate.")
			return nil
		}

		if !sshconfigApply {
			fmt.Print(sshconfig.Render(entries))
			return nil
		}

		path := sshconfigPath
		if path == "" {
			path = sshconfig.DefaultPath()
		}
		added, err := sshconfig.Merge(path, entries)
		if err != nil {
			return err
		}
		if len(added) == 0 {
			fmt.Println("All entries already present.")
			return nil
		}
		for _, alias := range added {
			ui.PrintSuccess("Added " + alias)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sshconfigCmd)
	sshconfigCmd.Flags().BoolVar(&sshconfigApply, "apply", false, "merge entries into the SSH config file")
	sshconfigCmd.Flags().StringVar(&sshconfigPath, "file", "", "SSH config file (default ~/.ssh/config)")
}
