package config

import (
	"os"
	"sort"

	"github.com/pmxdev/pmx/internal/errors"
	"gopkg.in/yaml.v3"
)

// vmsFile is the on-disk shape of the created-VMs registry.
type vmsFile struct {
	VMs []CreatedVM `yaml:"vms"`
}

// LoadCreatedVMs reads the registry of VMs created through pmx, sorted by
// VMID. A missing registry is an empty list.
func LoadCreatedVMs(dir string) ([]CreatedVM, error) {
	path := VMsFilePath(dir)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot read VM registry: "+path,
			"Check file permissions")
	}

	var f vmsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"VM registry is not valid YAML: "+path,
			"Fix or remove the file")
	}
	sort.Slice(f.VMs, func(i, j int) bool { return f.VMs[i].VMID < f.VMs[j].VMID })
	return f.VMs, nil
}

// SaveCreatedVM appends or replaces one VM in the registry, keyed by VMID.
func SaveCreatedVM(dir string, vm CreatedVM) error {
	vms, err := LoadCreatedVMs(dir)
	if err != nil {
		return err
	}

	replaced := false
	for i := range vms {
		if vms[i].VMID == vm.VMID {
			vms[i] = vm
			replaced = true
			break
		}
	}
	if !replaced {
		vms = append(vms, vm)
	}
	return writeCreatedVMs(dir, vms)
}

// RemoveCreatedVM drops a VM from the registry. Removing an unknown VMID is
// a no-op.
func RemoveCreatedVM(dir string, vmid int) error {
	vms, err := LoadCreatedVMs(dir)
	if err != nil {
		return err
	}

	kept := vms[:0]
	for _, vm := range vms {
		if vm.VMID != vmid {
			kept = append(kept, vm)
		}
	}
	return writeCreatedVMs(dir, kept)
}

func writeCreatedVMs(dir string, vms []CreatedVM) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to create config directory",
			"Check permissions on "+dir)
	}

	data, err := yaml.Marshal(vmsFile{VMs: vms})
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to serialize VM registry", "")
	}
	if err := os.WriteFile(VMsFilePath(dir), data, 0o644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to write VM registry",
			"Check disk space and permissions on "+dir)
	}
	return nil
}
