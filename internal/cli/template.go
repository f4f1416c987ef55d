package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/pmxdev/pmx/internal/api"
	"github.com/pmxdev/pmx/internal/cloudimage"
	"github.com/pmxdev/pmx/internal/config"
	"github.com/pmxdev/pmx/internal/errors"
	"github.com/pmxdev/pmx/internal/ui"
	"github.com/spf13/cobra"
)

var templateForceDownload bool

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Manage cloud-init templates",
	Long: `Manage the cloud-init templates that 'pmx create' clones from.

'template images' shows the cloud images available for download,
'template create' walks through building a new template from one of
them, and 'template list' shows the templates already on the cluster.`,
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List templates on the cluster",
}

var templateImagesCmd = &cobra.Command{
	Use:   "images",
	Short: "List downloadable cloud images",
	RunE: func(cmd *cobra.Command, args []string) error {
		imagesDir := config.ImagesDir(config.Home())

		rows := make([][]string, 0)
		for _, img := range cloudimage.Catalog() {
			cached := "-"
			if size, ok := cloudimage.Size(imagesDir, img); ok {
				cached = fmt.Sprintf("%s %.1f GB", ui.SymbolSuccess, float64(size)/(1024*1024*1024))
			}
			rows = append(rows, []string{img.ID, img.Name, img.Description, cached})
		}
		fmt.Println(ui.RenderSimpleTable([]ui.TableColumn{
			{Title: "ID", Width: 14},
			{Title: "NAME", Width: 20},
			{Title: "DESCRIPTION", Width: 34},
			{Title: "CACHED", Width: 12},
		}, rows))
		return nil
	},
}

// templateAnswers collects everything the template wizard asks for.
type templateAnswers struct {
	node    string
	imageID string
	name    string
	vmid    string
	storage string
	memory  string
	cores   string
	confirm bool
}

var templateCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Build a cloud-init template from a cloud image",
	Long: `Build a cloud-init template interactively.

The wizard picks a cloud image, downloads it into the local image cache,
and prints the qm commands that turn it into a template on the node.
Importing the disk needs shell access on the node itself, which the API
token does not grant, so that last step stays manual.

Examples:
  pmx template create
  pmx template create --force-download`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !isTerminal() {
			return errors.New(errors.ErrConfig,
				"pmx template create is interactive",
				"Run it from a terminal")
		}

		s, err := newSession()
		if err != nil {
			return err
		}

		nodes, _, err := s.nodes(cmd.Context(), false)
		if err != nil {
			return err
		}
		storages, _, err := s.storages(cmd.Context(), false)
		if err != nil {
			return err
		}
		vms, _, err := s.vms(cmd.Context(), false)
		if err != nil {
			return err
		}
		templates, _, err := s.templates(cmd.Context(), false)
		if err != nil {
			return err
		}

		answers, err := runTemplateWizard(s, nodes, storages, vms, templates)
		if err != nil {
			return err
		}
		if !answers.confirm {
			fmt.Println("Template creation cancelled.")
			return nil
		}

		return buildTemplate(cmd, s, answers)
	},
}

// runTemplateWizard drives the huh form and validates the answers.
func runTemplateWizard(s *session, nodes []api.NodeRecord, storages []api.StorageRecord, vms, templates []api.VMRecord) (templateAnswers, error) {
	cfg, _ := config.Load(s.dir)
	imagesDir := config.ImagesDir(s.dir)

	vmidStart := 9000
	if cfg != nil && cfg.TemplateVMIDStart > 0 {
		vmidStart = cfg.TemplateVMIDStart
	}

	answers := templateAnswers{
		node:    s.ctx.DefaultNode,
		vmid:    strconv.Itoa(nextTemplateVMID(vmidStart, vms, templates)),
		storage: s.ctx.DefaultStorage,
		memory:  "2048",
		cores:   "2",
		confirm: true,
	}
	if len(nodes) == 1 {
		answers.node = nodes[0].Node
	}

	imageOpts := make([]huh.Option[string], 0)
	for _, img := range cloudimage.Catalog() {
		label := img.Name
		if cloudimage.IsCached(imagesDir, img) {
			label += " (cached)"
		}
		imageOpts = append(imageOpts, huh.NewOption(label, img.ID))
	}

	nodeOpts := make([]huh.Option[string], 0, len(nodes))
	for _, node := range nodes {
		nodeOpts = append(nodeOpts, huh.NewOption(node.Node, node.Node))
	}

	storageOpts := make([]huh.Option[string], 0, len(storages))
	for _, st := range storages {
		label := fmt.Sprintf("%s (%.0f GB free)", st.Storage, st.AvailGB())
		storageOpts = append(storageOpts, huh.NewOption(label, st.Storage))
	}

	takenIDs := make(map[int]bool)
	takenNames := make(map[string]bool)
	for _, vm := range vms {
		takenIDs[vm.VMID] = true
		takenNames[vm.Name] = true
	}
	for _, tpl := range templates {
		takenIDs[tpl.VMID] = true
		takenNames[tpl.Name] = true
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Target node").
				Options(nodeOpts...).
				Value(&answers.node),
			huh.NewSelect[string]().
				Title("Cloud image").
				Options(imageOpts...).
				Value(&answers.imageID),
			huh.NewSelect[string]().
				Title("Storage").
				Options(storageOpts...).
				Value(&answers.storage),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Template name").
				Placeholder("ubuntu-24.04-cloud").
				Value(&answers.name).
				Validate(func(v string) error {
					v = strings.TrimSpace(v)
					if v == "" {
						return fmt.Errorf("name is required")
					}
					if strings.ContainsAny(v, " \t/") {
						return fmt.Errorf("name cannot contain spaces or slashes")
					}
					if takenNames[v] {
						return fmt.Errorf("a VM or template named %q already exists", v)
					}
					return nil
				}),
			huh.NewInput().
				Title("VMID").
				Value(&answers.vmid).
				Validate(func(v string) error {
					id, err := strconv.Atoi(v)
					if err != nil || id < 100 {
						return fmt.Errorf("VMID must be a number >= 100")
					}
					if takenIDs[id] {
						return fmt.Errorf("VMID %d is already in use", id)
					}
					return nil
				}),
			huh.NewInput().
				Title("Memory (MB)").
				Value(&answers.memory).
				Validate(validateRange(128, 1024*1024)),
			huh.NewInput().
				Title("CPU cores").
				Value(&answers.cores).
				Validate(validateRange(1, 128)),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Create this template?").
				Value(&answers.confirm),
		),
	)

	if err := form.Run(); err != nil {
		return answers, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input", "")
	}
	return answers, nil
}

// buildTemplate downloads the chosen image and prints the node-side
// commands that finish the build.
func buildTemplate(cmd *cobra.Command, s *session, answers templateAnswers) error {
	img, ok := cloudimage.Lookup(answers.imageID)
	if !ok {
		return errors.New(errors.ErrConfig,
			"Unknown cloud image: "+answers.imageID,
			"List images with 'pmx template images'")
	}
	imagesDir := config.ImagesDir(s.dir)

	spinner := ui.NewSpinner("Downloading " + img.Name)
	if !isTerminal() {
		spinner.SetOutput(func(string) {})
	}
	spinner.Start()
	path, err := cloudimage.Download(cmd.Context(), imagesDir, img, templateForceDownload,
		func(done, total int64) {
			if total > 0 {
				spinner.SetLabel(fmt.Sprintf("Downloading %s (%d%%)", img.Name, done*100/total))
			}
		})
	if err != nil {
		spinner.Fail()
		return err
	}
	spinner.Success()
	ui.PrintSuccess("Image cached at " + path)

	fmt.Println()
	ui.PrintWarning("Importing the disk needs shell access on the node.")
	fmt.Println("Run these commands to finish the template:")
	fmt.Println(ui.MutedStyle().Render(templateImportScript(s.ctx.Host, path, img, answers)))
	fmt.Println("Once done, the template shows up in 'pmx list templates'.")
	return nil
}

// templateImportScript renders the qm command block that turns the
// downloaded image into a template on the node.
func templateImportScript(host, imagePath string, img cloudimage.Image, answers templateAnswers) string {
	vmid := answers.vmid
	var b strings.Builder
	fmt.Fprintf(&b, "\n  scp %s root@%s:/tmp/\n\n", imagePath, host)
	fmt.Fprintf(&b, "  qm create %s --name %s --memory %s --cores %s --net0 virtio,bridge=vmbr0 --scsihw virtio-scsi-pci\n",
		vmid, answers.name, answers.memory, answers.cores)
	fmt.Fprintf(&b, "  qm importdisk %s /tmp/%s %s\n", vmid, img.Filename, answers.storage)
	fmt.Fprintf(&b, "  qm set %s --scsi0 %s:vm-%s-disk-0\n", vmid, answers.storage, vmid)
	fmt.Fprintf(&b, "  qm set %s --ide2 %s:cloudinit\n", vmid, answers.storage)
	fmt.Fprintf(&b, "  qm set %s --boot c --bootdisk scsi0\n", vmid)
	fmt.Fprintf(&b, "  qm set %s --serial0 socket --vga serial0\n", vmid)
	fmt.Fprintf(&b, "  qm template %s\n", vmid)
	fmt.Fprintf(&b, "  rm /tmp/%s", img.Filename)
	return b.String()
}

// nextTemplateVMID returns the first free VMID at or above start.
func nextTemplateVMID(start int, vms, templates []api.VMRecord) int {
	taken := make(map[int]bool)
	for _, vm := range vms {
		taken[vm.VMID] = true
	}
	for _, tpl := range templates {
		taken[tpl.VMID] = true
	}
	vmid := start
	for taken[vmid] {
		vmid++
	}
	return vmid
}

func init() {
	rootCmd.AddCommand(templateCmd)
	templateCmd.AddCommand(templateListCmd)
	templateCmd.AddCommand(templateImagesCmd)
	templateCmd.AddCommand(templateCreateCmd)
	templateListCmd.RunE = listTemplatesCmd.RunE
	templateCreateCmd.Flags().BoolVar(&templateForceDownload, "force-download", false,
		"re-download the cloud image even when cached")
}
