package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatedVMs_Missing(t *testing.T) {
	vms, err := LoadCreatedVMs(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, vms)
}

func TestSaveCreatedVM_AppendAndReplace(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, SaveCreatedVM(dir, CreatedVM{VMID: 201, Name: "web-1", Node: "pve1", User: "ubuntu"}))
	require.NoError(t, SaveCreatedVM(dir, CreatedVM{VMID: 105, Name: "db-1", Node: "pve2", User: "ubuntu"}))

	vms, err := LoadCreatedVMs(dir)
	require.NoError(t, err)
	require.Len(t, vms, 2)

	// Sorted by VMID
	assert.Equal(t, 105, vms[0].VMID)
	assert.Equal(t, 201, vms[1].VMID)

	// Same VMID replaces the record
	require.NoError(t, SaveCreatedVM(dir, CreatedVM{VMID: 201, Name: "web-1b", Node: "pve1", User: "debian"}))
	vms, err = LoadCreatedVMs(dir)
	require.NoError(t, err)
	require.Len(t, vms, 2)
	assert.Equal(t, "web-1b", vms[1].Name)
	assert.Equal(t, "debian", vms[1].User)
}

func TestRemoveCreatedVM(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, SaveCreatedVM(dir, CreatedVM{VMID: 101, Name: "a"}))
	require.NoError(t, SaveCreatedVM(dir, CreatedVM{VMID: 102, Name: "b"}))

	require.NoError(t, RemoveCreatedVM(dir, 101))
	vms, err := LoadCreatedVMs(dir)
	require.NoError(t, err)
	require.Len(t, vms, 1)
	assert.Equal(t, 102, vms[0].VMID)

	// Unknown VMID is a no-op
	require.NoError(t, RemoveCreatedVM(dir, 999))
	vms, err = LoadCreatedVMs(dir)
	require.NoError(t, err)
	assert.Len(t, vms, 1)
}

func TestLoadCreatedVMs_Corrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(VMsFilePath(dir), []byte("vms: {broken"), 0o644))

	_, err := LoadCreatedVMs(dir)
	require.Error(t, err)
}
