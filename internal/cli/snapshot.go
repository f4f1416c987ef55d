package cli

import (
	"fmt"

	"github.com/pmxdev/pmx/internal/task"
	"github.com/pmxdev/pmx/internal/ui"
	"github.com/spf13/cobra"
)

var (
	snapshotDescription string
	snapshotVMState     bool
)

var snapshotCmd = &cobra.Command{
	Use:     "snapshot",
	Aliases: []string{"snap"},
	Short:   "Create, list, delete, or roll back VM snapshots",
}

var snapshotCreateCmd = &cobra.Command{
	Use:   "create <vm> <name>",
	Short: "Create a snapshot",
	Long: `Create a snapshot of a VM.

With --vmstate the RAM contents are included, so a rollback resumes the
VM exactly where it was.

Examples:
  pmx snapshot create web-1 before-upgrade
  pmx snapshot create 100 nightly --description "pre-deploy" --vmstate`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		vm, err := s.findVM(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		upid, err := s.client.CreateSnapshot(cmd.Context(), vm.Node, vm.VMID, args[1], snapshotDescription, snapshotVMState)
		if err != nil {
			return err
		}
		if err := s.awaitTask(cmd.Context(), fmt.Sprintf("Creating snapshot %s", args[1]), vm.Node, upid, task.SnapshotTimeout); err != nil {
			return err
		}
		ui.PrintSuccess(fmt.Sprintf("Snapshot %s of %s created", args[1], vm.Name))
		return nil
	},
}

var snapshotListCmd = &cobra.Command{
	Use:   "list <vm>",
	Short: "List snapshots of a VM",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		vm, err := s.findVM(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		snapshots, err := s.client.ListSnapshots(cmd.Context(), vm.Node, vm.VMID)
		if err != nil {
			return err
		}
		if len(snapshots) == 0 {
			fmt.Println("No snapshots.")
			return nil
		}

		rows := make([][]string, 0, len(snapshots))
		for _, snap := range snapshots {
			taken := "-"
			if !snap.IsCurrent() {
				taken = snap.Taken().Format("2006-01-02 15:04")
			}
			vmstate := ""
			if snap.VMState {
				vmstate = "with RAM"
			}
			rows = append(rows, []string{snap.Name, taken, snap.Description, vmstate})
		}
		fmt.Println(ui.RenderSimpleTable([]ui.TableColumn{
			{Title: "NAME", Width: 20},
			{Title: "TAKEN", Width: 18},
			{Title: "DESCRIPTION", Width: 30},
			{Title: "", Width: 9},
		}, rows))
		return nil
	},
}

var snapshotDeleteCmd = &cobra.Command{
	Use:     "delete <vm> <name>",
	Aliases: []string{"rm"},
	Short:   "Delete a snapshot",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		vm, err := s.findVM(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		upid, err := s.client.DeleteSnapshot(cmd.Context(), vm.Node, vm.VMID, args[1])
		if err != nil {
			return err
		}
		if err := s.awaitTask(cmd.Context(), fmt.Sprintf("Deleting snapshot %s", args[1]), vm.Node, upid, task.SnapshotTimeout); err != nil {
			return err
		}
		ui.PrintSuccess(fmt.Sprintf("Snapshot %s deleted", args[1]))
		return nil
	},
}

var snapshotRollbackCmd = &cobra.Command{
	Use:   "rollback <vm> <name>",
	Short: "Roll a VM back to a snapshot",
	Long: `Roll a VM back to a snapshot.

The VM's current state is discarded. Rollback can take a while for
snapshots with RAM state.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		vm, err := s.findVM(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		upid, err := s.client.RollbackSnapshot(cmd.Context(), vm.Node, vm.VMID, args[1])
		if err != nil {
			return err
		}
		if err := s.awaitTask(cmd.Context(), fmt.Sprintf("Rolling back to %s", args[1]), vm.Node, upid, task.RollbackTimeout); err != nil {
			return err
		}
		s.invalidateListings()
		ui.PrintSuccess(fmt.Sprintf("%s rolled back to %s", vm.Name, args[1]))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.AddCommand(snapshotCreateCmd)
	snapshotCmd.AddCommand(snapshotListCmd)
	snapshotCmd.AddCommand(snapshotDeleteCmd)
	snapshotCmd.AddCommand(snapshotRollbackCmd)
	snapshotCreateCmd.Flags().StringVar(&snapshotDescription, "description", "", "snapshot description")
	snapshotCreateCmd.Flags().BoolVar(&snapshotVMState, "vmstate", false, "include RAM state in the snapshot")
}
