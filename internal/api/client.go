package api

import "context"

// UPID identifies an asynchronous task submitted to the cluster. The zero
// value means "no task".
type UPID string

// Client is the cluster API facade. All mutating calls return immediately
// with a UPID; completion is driven by polling TaskStatus (see the task
// package).
type Client interface {
	// ListNodes returns the cluster nodes.
	ListNodes(ctx context.Context) ([]NodeRecord, error)

	// ListVMs returns VMs across the cluster, or for one node when node is
	// non-empty. Extended info (guest IPs) is fetched only when requested,
	// since it costs one extra round trip per running VM.
	ListVMs(ctx context.Context, node string, extended bool) ([]VMRecord, error)

	// ListStorages returns the storages on a node that support the given
	// content type (e.g. "images").
	ListStorages(ctx context.Context, node, contentType string) ([]StorageRecord, error)

	// ListSnapshots returns a VM's snapshots, oldest first, "current" last.
	ListSnapshots(ctx context.Context, node string, vmid int) ([]SnapshotRecord, error)

	// Clone clones a template into a new VM.
	Clone(ctx context.Context, node string, templateID int, opts CloneOptions) (UPID, error)

	// ConfigureVM applies CPU/memory settings to a VM.
	ConfigureVM(ctx context.Context, node string, vmid int, cfg VMConfig) error

	// ResizeDisk grows a VM disk by the given increment, e.g. "+10G".
	ResizeDisk(ctx context.Context, node string, vmid int, disk, increment string) error

	// SetCloudInit applies cloud-init settings to a VM.
	SetCloudInit(ctx context.Context, node string, vmid int, cfg CloudInitConfig) error

	// StartVM starts a stopped VM.
	StartVM(ctx context.Context, node string, vmid int) (UPID, error)

	// StopVM hard-stops a running VM.
	StopVM(ctx context.Context, node string, vmid int) (UPID, error)

	// DeleteVM removes a VM. purge also drops it from backup jobs and
	// destroys unreferenced disks.
	DeleteVM(ctx context.Context, node string, vmid int, purge bool) (UPID, error)

	// CreateSnapshot snapshots a VM, optionally including RAM state.
	CreateSnapshot(ctx context.Context, node string, vmid int, name, description string, vmstate bool) (UPID, error)

	// DeleteSnapshot removes a snapshot.
	DeleteSnapshot(ctx context.Context, node string, vmid int, name string) (UPID, error)

	// RollbackSnapshot restores a VM to a snapshot.
	RollbackSnapshot(ctx context.Context, node string, vmid int, name string) (UPID, error)

	// TaskStatus returns the current state of an asynchronous task.
	TaskStatus(ctx context.Context, node string, upid UPID) (TaskStatus, error)

	// ClusterStatus returns a coarse cluster health summary.
	ClusterStatus(ctx context.Context) (ClusterStatus, error)
}
