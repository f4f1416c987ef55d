package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/pmxdev/pmx/internal/api"
	"github.com/pmxdev/pmx/internal/config"
	"github.com/pmxdev/pmx/internal/errors"
	"github.com/pmxdev/pmx/internal/sshconfig"
	"github.com/pmxdev/pmx/internal/task"
	"github.com/pmxdev/pmx/internal/ui"
	"github.com/spf13/cobra"
)

var createNoStart bool

// createAnswers collects everything the create wizard asks for.
type createAnswers struct {
	templateID int
	name       string
	vmid       string
	node       string
	storage    string
	cores      string
	memoryMB   string
	diskGB     string

	ciUser    string
	ciKeyPath string
	ciIP      string // empty means DHCP
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a VM from a template",
	Long: `Create a VM by cloning a template, interactively.

The wizard walks through template, name, VMID, placement, resources, and
cloud-init settings (user, SSH key, networking). After the clone finishes
the VM is configured, its disk resized, and cloud-init applied. The VM is
started unless --no-start is given, and an SSH config entry is offered
for immediate 'ssh <name>' access.

Examples:
  pmx create
  pmx create --no-start`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !isTerminal() {
			return errors.New(errors.ErrConfig,
				"pmx create is interactive",
				"Run it from a terminal")
		}

		s, err := newSession()
		if err != nil {
			return err
		}

		templates, _, err := s.templates(cmd.Context(), false)
		if err != nil {
			return err
		}
		if len(templates) == 0 {
			return errors.New(errors.ErrAPI,
				"No templates found on the cluster",
				"Build a cloud-init template first, then re-run 'pmx create'")
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

		answers, err := runCreateWizard(s, templates, nodes, storages, vms)
		if err != nil {
			return err
		}

		return createVM(cmd, s, answers)
	},
}

// runCreateWizard drives the huh form and validates the answers.
func runCreateWizard(s *session, templates []api.VMRecord, nodes []api.NodeRecord, storages []api.StorageRecord, vms []api.VMRecord) (createAnswers, error) {
	cfg, _ := config.Load(s.dir)

	answers := createAnswers{
		vmid:      strconv.Itoa(nextFreeVMID(vms, templates)),
		node:      s.ctx.DefaultNode,
		storage:   s.ctx.DefaultStorage,
		cores:     "2",
		memoryMB:  "2048",
		diskGB:    "20",
		ciUser:    "ubuntu",
		ciKeyPath: sshconfig.FindDefaultPublicKey(),
	}
	if cfg != nil && cfg.DefaultUser != "" {
		answers.ciUser = cfg.DefaultUser
	}

	templateOpts := make([]huh.Option[int], 0, len(templates))
	for _, tpl := range templates {
		label := fmt.Sprintf("%s (VMID %d, %s)", tpl.Name, tpl.VMID, tpl.Node)
		templateOpts = append(templateOpts, huh.NewOption(label, tpl.VMID))
	}

	nodeOpts := make([]huh.Option[string], 0, len(nodes))
	for _, node := range nodes {
		nodeOpts = append(nodeOpts, huh.NewOption(node.Node, node.Node))
	}

	storageOpts := make([]huh.Option[string], 0, len(storages))
	seenStorage := map[string]bool{}
	for _, st := range storages {
		if seenStorage[st.Storage] {
			continue
		}
		seenStorage[st.Storage] = true
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
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Template").
				Options(templateOpts...).
				Value(&answers.templateID),
			huh.NewInput().
				Title("VM name").
				Placeholder("dev-web").
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
						return fmt.Errorf("a VM named %q already exists", v)
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
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Target node").
				Options(nodeOpts...).
				Value(&answers.node),
			huh.NewSelect[string]().
				Title("Storage").
				Options(storageOpts...).
				Value(&answers.storage),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("CPU cores").
				Value(&answers.cores).
				Validate(validateRange(1, 128)),
			huh.NewInput().
				Title("Memory (MB)").
				Value(&answers.memoryMB).
				Validate(validateRange(128, 1024*1024)),
			huh.NewInput().
				Title("Disk size (GB)").
				Value(&answers.diskGB).
				Validate(validateRange(1, 64*1024)),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Cloud-init user").
				Value(&answers.ciUser).
				Validate(func(v string) error {
					if strings.TrimSpace(v) == "" {
						return fmt.Errorf("user is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("SSH public key file").
				Description("Installed for the cloud-init user").
				Value(&answers.ciKeyPath),
			huh.NewInput().
				Title("Static IP (blank for DHCP)").
				Placeholder("10.0.0.50/24,gw=10.0.0.1").
				Value(&answers.ciIP),
		),
	)

	if err := form.Run(); err != nil {
		return answers, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input", "")
	}
	return answers, nil
}

// createVM executes the wizard's plan: clone, configure, resize, apply
// cloud-init, then optionally start.
func createVM(cmd *cobra.Command, s *session, answers createAnswers) error {
	ctx := cmd.Context()
	vmid, _ := strconv.Atoi(answers.vmid)
	cores, _ := strconv.Atoi(answers.cores)
	memoryMB, _ := strconv.Atoi(answers.memoryMB)
	diskGB, _ := strconv.Atoi(answers.diskGB)

	var template api.VMRecord
	if templates, _, ok := s.store.Templates(s.name); ok {
		for _, tpl := range templates {
			if tpl.VMID == answers.templateID {
				template = tpl
			}
		}
	}
	if template.VMID == 0 {
		return errors.New(errors.ErrAPI,
			fmt.Sprintf("Template %d disappeared from the cluster", answers.templateID),
			"Run 'pmx list templates --refresh' and try again")
	}

	upid, err := s.client.Clone(ctx, template.Node, template.VMID, api.CloneOptions{
		NewID:      vmid,
		Name:       answers.name,
		TargetNode: answers.node,
		Storage:    answers.storage,
		Full:       true,
	})
	if err != nil {
		return err
	}
	if err := s.awaitTask(ctx, fmt.Sprintf("Cloning %s", template.Name), template.Node, upid, task.CloneTimeout); err != nil {
		return err
	}

	if err := s.client.ConfigureVM(ctx, answers.node, vmid, api.VMConfig{
		Cores:  cores,
		Memory: memoryMB,
	}); err != nil {
		return err
	}

	// Grow the clone's disk up to the requested size.
	if growth := diskGB - int(template.DiskGB()+0.5); growth > 0 {
		if err := s.client.ResizeDisk(ctx, answers.node, vmid, "scsi0", fmt.Sprintf("+%dG", growth)); err != nil {
			return err
		}
	}

	ci := api.CloudInitConfig{User: answers.ciUser, IPConfig: "ip=dhcp"}
	if answers.ciIP != "" {
		ci.IPConfig = "ip=" + answers.ciIP
	}
	if answers.ciKeyPath != "" {
		key, err := sshconfig.ReadPublicKey(answers.ciKeyPath)
		if err != nil {
			return err
		}
		ci.SSHKeys = key
	}
	if err := s.client.SetCloudInit(ctx, answers.node, vmid, ci); err != nil {
		return err
	}

	ip := ""
	if answers.ciIP != "" {
		ip = strings.Split(strings.Split(answers.ciIP, ",")[0], "/")[0]
	}

	if !createNoStart {
		startUPID, err := s.client.StartVM(ctx, answers.node, vmid)
		if err != nil {
			return err
		}
		if err := s.awaitTask(ctx, fmt.Sprintf("Starting %s", answers.name), answers.node, startUPID, task.StopTimeout); err != nil {
			return err
		}
	}

	warnOnWriteErr("vm registry", config.SaveCreatedVM(s.dir, config.CreatedVM{
		VMID:             vmid,
		Name:             answers.name,
		Node:             answers.node,
		User:             answers.ciUser,
		SSHPublicKeyPath: answers.ciKeyPath,
		IP:               ip,
		CreatedAt:        time.Now().Format(time.RFC3339),
	}))
	s.invalidateListings()

	sshAlias := ""
	if ip != "" {
		if added, err := sshconfig.Merge(sshconfig.DefaultPath(), []sshconfig.Entry{{
			Alias:    answers.name,
			HostName: ip,
			User:     answers.ciUser,
		}}); err == nil && len(added) > 0 {
			sshAlias = answers.name
		}
	}

	fmt.Println()
	fmt.Print(ui.RenderVMSummary(ui.VMSummary{
		Name:     answers.name,
		VMID:     vmid,
		Node:     answers.node,
		Storage:  answers.storage,
		IP:       ip,
		SSHAlias: sshAlias,
		Cores:    cores,
		MemoryMB: memoryMB,
		DiskGB:   diskGB,
	}))
	return nil
}

// nextFreeVMID proposes the first VMID after everything in use, starting
// from 100.
func nextFreeVMID(vms, templates []api.VMRecord) int {
	next := 100
	for _, vm := range vms {
		if vm.VMID >= next {
			next = vm.VMID + 1
		}
	}
	for _, tpl := range templates {
		// Template IDs live in their own range; skip past them only when
		// they overlap the proposal.
		if tpl.VMID == next {
			next = tpl.VMID + 1
		}
	}
	return next
}

func validateRange(min, max int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil || n < min || n > max {
			return fmt.Errorf("must be a number between %d and %d", min, max)
		}
		return nil
	}
}

func init() {
	rootCmd.AddCommand(createCmd)
	createCmd.Flags().BoolVar(&createNoStart, "no-start", false, "leave the VM stopped after creation")
}
