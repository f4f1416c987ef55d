package cli

import (
	"fmt"
	"time"

	"github.com/pmxdev/pmx/internal/ui"
	"github.com/spf13/cobra"
)

var listRefreshFlag bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List cluster resources",
	Long: `List VMs, templates, nodes, or storages.

Listings come from the local cache when it is fresh (under 60 seconds
old); the cache age is shown below the table. Use --refresh to force a
live fetch. Run 'pmx daemon start' once and the cache stays fresh on
its own.`,
}

var listVMsCmd = &cobra.Command{
	Use:     "vms",
	Aliases: []string{"vm"},
	Short:   "List virtual machines",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}

		vms, age, err := s.vms(cmd.Context(), listRefreshFlag)
		if err != nil {
			return err
		}
		if len(vms) == 0 {
			fmt.Println("No VMs found.")
			return nil
		}

		rows := make([][]string, 0, len(vms))
		for _, vm := range vms {
			rows = append(rows, []string{
				fmt.Sprintf("%d", vm.VMID),
				vm.Name,
				ui.StatusDot(vm.Status) + " " + vm.Status,
				vm.Node,
				fmt.Sprintf("%d", vm.CPUs),
				fmt.Sprintf("%.1f GB", vm.MemoryGB()),
				formatUptime(vm.Uptime),
			})
		}
		fmt.Println(ui.RenderSimpleTable([]ui.TableColumn{
			{Title: "VMID", Width: 6},
			{Title: "NAME", Width: 24},
			{Title: "STATUS", Width: 12},
			{Title: "NODE", Width: 10},
			{Title: "CPUS", Width: 5},
			{Title: "MEM", Width: 9},
			{Title: "UPTIME", Width: 10},
		}, rows))
		printCacheAge(age)
		return nil
	},
}

var listTemplatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List VM templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}

		templates, age, err := s.templates(cmd.Context(), listRefreshFlag)
		if err != nil {
			return err
		}
		if len(templates) == 0 {
			fmt.Println("No templates found.")
			return nil
		}

		rows := make([][]string, 0, len(templates))
		for _, tpl := range templates {
			rows = append(rows, []string{
				fmt.Sprintf("%d", tpl.VMID),
				tpl.Name,
				tpl.Node,
				fmt.Sprintf("%.0f GB", tpl.DiskGB()),
			})
		}
		fmt.Println(ui.RenderSimpleTable([]ui.TableColumn{
			{Title: "VMID", Width: 6},
			{Title: "NAME", Width: 28},
			{Title: "NODE", Width: 10},
			{Title: "DISK", Width: 8},
		}, rows))
		printCacheAge(age)
		return nil
	},
}

var listNodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "List cluster nodes",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}

		nodes, age, err := s.nodes(cmd.Context(), listRefreshFlag)
		if err != nil {
			return err
		}

		rows := make([][]string, 0, len(nodes))
		for _, node := range nodes {
			memPercent := 0.0
			if node.MaxMem > 0 {
				memPercent = float64(node.Mem) / float64(node.MaxMem) * 100
			}
			rows = append(rows, []string{
				node.Node,
				ui.StatusDot(node.Status) + " " + node.Status,
				ui.RenderUsageBar(node.CPUPercent(), 12),
				ui.RenderUsageBar(memPercent, 12),
				fmt.Sprintf("%.1f/%.1f GB", node.MemoryUsedGB(), node.MemoryTotalGB()),
				formatUptime(node.Uptime),
			})
		}
		fmt.Println(ui.RenderSimpleTable([]ui.TableColumn{
			{Title: "NODE", Width: 12},
			{Title: "STATUS", Width: 10},
			{Title: "CPU", Width: 20},
			{Title: "MEMORY", Width: 20},
			{Title: "MEM USED", Width: 14},
			{Title: "UPTIME", Width: 10},
		}, rows))
		printCacheAge(age)
		return nil
	},
}

var listStoragesCmd = &cobra.Command{
	Use:   "storages",
	Short: "List storages that can hold VM disks",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}

		storages, age, err := s.storages(cmd.Context(), listRefreshFlag)
		if err != nil {
			return err
		}
		if len(storages) == 0 {
			fmt.Println("No storages found.")
			return nil
		}

		rows := make([][]string, 0, len(storages))
		for _, st := range storages {
			usedPercent := 0.0
			if st.Total > 0 {
				usedPercent = float64(st.Used) / float64(st.Total) * 100
			}
			shared := ""
			if st.Shared {
				shared = "shared"
			}
			rows = append(rows, []string{
				st.Storage,
				st.Node,
				st.Type,
				ui.RenderUsageBar(usedPercent, 12),
				fmt.Sprintf("%.0f GB free", st.AvailGB()),
				shared,
			})
		}
		fmt.Println(ui.RenderSimpleTable([]ui.TableColumn{
			{Title: "STORAGE", Width: 14},
			{Title: "NODE", Width: 10},
			{Title: "TYPE", Width: 8},
			{Title: "USED", Width: 20},
			{Title: "FREE", Width: 12},
			{Title: "", Width: 7},
		}, rows))
		printCacheAge(age)
		return nil
	},
}

func printCacheAge(age string) {
	fmt.Println(ui.MutedStyle().Render("cache: " + age))
}

// formatUptime renders seconds as 3d04h, 2h05m, or 42s. Stopped guests
// report zero and render as a dash.
func formatUptime(seconds int64) string {
	if seconds <= 0 {
		return "-"
	}
	d := time.Duration(seconds) * time.Second
	switch {
	case d >= 24*time.Hour:
		return fmt.Sprintf("%dd%02dh", int(d.Hours())/24, int(d.Hours())%24)
	case d >= time.Hour:
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	case d >= time.Minute:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.AddCommand(listVMsCmd)
	listCmd.AddCommand(listTemplatesCmd)
	listCmd.AddCommand(listNodesCmd)
	listCmd.AddCommand(listStoragesCmd)
	listCmd.PersistentFlags().BoolVar(&listRefreshFlag, "refresh", false, "bypass the cache and fetch live data")
}
