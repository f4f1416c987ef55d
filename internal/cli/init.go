package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/pmxdev/pmx/internal/config"
	"github.com/pmxdev/pmx/internal/errors"
	"github.com/pmxdev/pmx/internal/ui"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Configure your first cluster context",
	Long: `Initialize pmx with a cluster context.

Walks through the connection details for a Proxmox cluster: host, API
token, and defaults for node and storage. The context is verified with a
live API call before it is saved.

Create an API token in the Proxmox UI under
Datacenter -> Permissions -> API Tokens.

Examples:
  pmx init
  pmx init --name homelab`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := config.Home()
		name, _ := cmd.Flags().GetString("name")
		if name == "" {
			name = "default"
		}
		if err := config.ValidateContextName(name); err != nil {
			return err
		}

		if config.ContextExists(dir, name) {
			var overwrite bool
			form := huh.NewForm(
				huh.NewGroup(
					huh.NewConfirm().
						Title(fmt.Sprintf("Context %q already exists. Overwrite?", name)).
						Value(&overwrite),
				),
			)
			if err := form.Run(); err != nil {
				return errors.WrapWithCode(err, errors.ErrConfig,
					"Failed to get user input", "")
			}
			if !overwrite {
				fmt.Println("Cancelled.")
				return nil
			}
		}

		ctx, err := promptContext(config.NewContext("", "", "", ""))
		if err != nil {
			return err
		}

		// Verify before saving so a bad token is caught immediately.
		spinner := ui.NewSpinner("Checking cluster connection")
		spinner.Start()
		client := newAPIClient(ctx)
		if _, err := client.ListNodes(context.Background()); err != nil {
			spinner.Fail()
			return errors.WrapWithCode(err, errors.ErrAPI,
				"Cannot reach the cluster with these credentials",
				"Check the host, token name, and token value")
		}
		spinner.Success()

		if err := config.AddContext(dir, name, ctx); err != nil {
			return err
		}

		ui.PrintSuccess(fmt.Sprintf("Context %q saved", name))
		fmt.Println()
		fmt.Println("Next steps:")
		fmt.Println("  pmx daemon start    Keep listings fast with the cache daemon")
		fmt.Println("  pmx list vms        See your virtual machines")
		return nil
	},
}

// promptContext walks through the connection form, starting from the
// given defaults. Shared by 'pmx init' and 'pmx ctx create'.
func promptContext(ctx config.Context) (config.Context, error) {
	port := strconv.Itoa(ctx.Port)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Cluster host").
				Description("Hostname or IP of a cluster node").
				Placeholder("pve.example.com").
				Value(&ctx.Host).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("host is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("API port").
				Value(&port).
				Validate(func(s string) error {
					n, err := strconv.Atoi(s)
					if err != nil || n < 1 || n > 65535 {
						return fmt.Errorf("port must be 1-65535")
					}
					return nil
				}),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("API user").
				Description("Including the realm, e.g. root@pam").
				Placeholder("root@pam").
				Value(&ctx.User).
				Validate(func(s string) error {
					if !strings.Contains(s, "@") {
						return fmt.Errorf("user must include a realm (e.g. root@pam)")
					}
					return nil
				}),
			huh.NewInput().
				Title("Token name").
				Placeholder("pmx").
				Value(&ctx.TokenName).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("token name is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Token value").
				EchoMode(huh.EchoModePassword).
				Value(&ctx.TokenValue).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("token value is required")
					}
					return nil
				}),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Verify TLS certificates?").
				Description("Say no for clusters with self-signed certificates").
				Value(&ctx.VerifySSL),
			huh.NewInput().
				Title("Default node (optional)").
				Value(&ctx.DefaultNode),
			huh.NewInput().
				Title("Default storage").
				Value(&ctx.DefaultStorage),
		),
	)

	if err := form.Run(); err != nil {
		return ctx, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input", "")
	}

	ctx.Port, _ = strconv.Atoi(port)
	if err := config.ValidateContext(ctx); err != nil {
		return ctx, err
	}
	return ctx, nil
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().String("name", "", "context name (default \"default\")")
}
