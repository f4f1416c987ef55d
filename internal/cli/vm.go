package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/pmxdev/pmx/internal/api"
	"github.com/pmxdev/pmx/internal/config"
	"github.com/pmxdev/pmx/internal/errors"
	"github.com/pmxdev/pmx/internal/task"
	"github.com/pmxdev/pmx/internal/ui"
	"github.com/spf13/cobra"
)

var (
	vmDeletePurge bool
	vmDeleteYes   bool
)

var vmCmd = &cobra.Command{
	Use:   "vm",
	Short: "Start, stop, restart, or delete VMs",
	Long: `Control the lifecycle of a VM.

VMs are referenced by VMID or exact name. Stop is a hard stop; restart
waits for the stop to finish before starting again.`,
}

var vmStartCmd = &cobra.Command{
	Use:   "start <vm>",
	Short: "Start a VM",
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
		if vm.Status == "running" {
			fmt.Printf("VM %s is already running.\n", vm.Name)
			return nil
		}
		if err := startVM(cmd.Context(), s, vm); err != nil {
			return err
		}
		s.invalidateListings()
		return nil
	},
}

var vmStopCmd = &cobra.Command{
	Use:   "stop <vm>",
	Short: "Stop a VM (hard stop)",
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
		if vm.Status != "running" {
			fmt.Printf("VM %s is not running.\n", vm.Name)
			return nil
		}
		if err := stopVM(cmd.Context(), s, vm); err != nil {
			return err
		}
		s.invalidateListings()
		return nil
	},
}

var vmRestartCmd = &cobra.Command{
	Use:   "restart <vm>",
	Short: "Restart a VM",
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
		if vm.Status == "running" {
			if err := stopVM(cmd.Context(), s, vm); err != nil {
				return err
			}
		}
		if err := startVM(cmd.Context(), s, vm); err != nil {
			return err
		}
		s.invalidateListings()
		return nil
	},
}

var vmDeleteCmd = &cobra.Command{
	Use:     "delete <vm>",
	Aliases: []string{"rm"},
	Short:   "Delete a VM",
	Long: `Delete a VM permanently.

A running VM is stopped first. With --purge the VM is also removed from
backup jobs and its unreferenced disks are destroyed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		vm, err := s.findVM(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if !vmDeleteYes {
			var confirmed bool
			form := huh.NewForm(
				huh.NewGroup(
					huh.NewConfirm().
						Title(fmt.Sprintf("Delete VM %s (VMID %d)? This cannot be undone.", vm.Name, vm.VMID)).
						Value(&confirmed),
				),
			)
			if err := form.Run(); err != nil {
				return errors.WrapWithCode(err, errors.ErrConfig,
					"Failed to get user input", "Use --yes to skip confirmation")
			}
			if !confirmed {
				fmt.Println("Cancelled.")
				return nil
			}
		}

		if vm.Status == "running" {
			if err := stopVM(cmd.Context(), s, vm); err != nil {
				return err
			}
		}

		upid, err := s.client.DeleteVM(cmd.Context(), vm.Node, vm.VMID, vmDeletePurge)
		if err != nil {
			return err
		}
		if err := s.awaitTask(cmd.Context(), fmt.Sprintf("Deleting %s", vm.Name), vm.Node, upid, task.CloneTimeout); err != nil {
			return err
		}

		warnOnWriteErr("vm registry", config.RemoveCreatedVM(s.dir, vm.VMID))
		s.invalidateListings()
		ui.PrintSuccess(fmt.Sprintf("VM %s deleted", vm.Name))
		return nil
	},
}

func startVM(ctx context.Context, s *session, vm api.VMRecord) error {
	upid, err := s.client.StartVM(ctx, vm.Node, vm.VMID)
	if err != nil {
		return err
	}
	return s.awaitTask(ctx, fmt.Sprintf("Starting %s", vm.Name), vm.Node, upid, task.StopTimeout)
}

func stopVM(ctx context.Context, s *session, vm api.VMRecord) error {
	upid, err := s.client.StopVM(ctx, vm.Node, vm.VMID)
	if err != nil {
		return err
	}
	return s.awaitTask(ctx, fmt.Sprintf("Stopping %s", vm.Name), vm.Node, upid, task.StopTimeout)
}

func init() {
	rootCmd.AddCommand(vmCmd)
	vmCmd.AddCommand(vmStartCmd)
	vmCmd.AddCommand(vmStopCmd)
	vmCmd.AddCommand(vmRestartCmd)
	vmCmd.AddCommand(vmDeleteCmd)
	vmDeleteCmd.Flags().BoolVar(&vmDeletePurge, "purge", false, "also remove from backup jobs and destroy unreferenced disks")
	vmDeleteCmd.Flags().BoolVarP(&vmDeleteYes, "yes", "y", false, "skip the confirmation prompt")
}
