package cli

import (
	"fmt"

	"github.com/pmxdev/pmx/internal/config"
	"github.com/pmxdev/pmx/internal/errors"
	"github.com/pmxdev/pmx/internal/ui"
	"github.com/spf13/cobra"
)

var ctxCmd = &cobra.Command{
	Use:   "ctx",
	Short: "Manage cluster contexts",
	Long: `Manage named cluster contexts.

A context holds the connection details for one Proxmox cluster. All
commands operate on the current context; switch with 'pmx ctx use'.`,
}

var ctxListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := config.Home()
		cfg, err := config.Require(dir)
		if err != nil {
			return err
		}

		for _, name := range config.ContextNames(cfg) {
			ctx := cfg.Contexts[name]
			marker := " "
			if name == cfg.CurrentContext {
				marker = ui.SuccessStyle().Render("*")
			}
			fmt.Printf("%s %-20s %s@%s:%d\n", marker, name, ctx.User, ctx.Host, ctx.Port)
		}
		return nil
	},
}

var ctxCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a context interactively",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if err := config.ValidateContextName(name); err != nil {
			return err
		}
		dir := config.Home()
		if config.ContextExists(dir, name) {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Context %q already exists", name),
				"Remove it first with 'pmx ctx remove "+name+"'")
		}

		ctx, err := promptContext(config.NewContext("", "", "", ""))
		if err != nil {
			return err
		}
		if err := config.AddContext(dir, name, ctx); err != nil {
			return err
		}
		ui.PrintSuccess(fmt.Sprintf("Context %q created", name))
		return nil
	},
}

var ctxUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Switch the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UseContext(config.Home(), args[0]); err != nil {
			return err
		}
		ui.PrintSuccess("Switched to context " + args[0])
		return nil
	},
}

var ctxRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a context",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		dir := config.Home()
		if err := config.RemoveContext(dir, name); err != nil {
			return err
		}
		// Cached listings for a removed context are dead weight.
		warnOnWriteErr("cache", cacheStoreFor(dir).Invalidate(name))
		ui.PrintSuccess("Context " + name + " removed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ctxCmd)
	ctxCmd.AddCommand(ctxListCmd)
	ctxCmd.AddCommand(ctxCreateCmd)
	ctxCmd.AddCommand(ctxUseCmd)
	ctxCmd.AddCommand(ctxRemoveCmd)
}
