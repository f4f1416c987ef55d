// Package api provides the cluster API facade: typed records for the
// resources pmx works with and a Client interface with an HTTP token-auth
// implementation. Commands and the refresh daemon both go through this
// package; nothing else in pmx talks to the cluster directly.
package api

import "time"

// Cache kinds, matching the per-context cache file names.
const (
	KindNodes     = "nodes"
	KindVMs       = "vms"
	KindTemplates = "templates"
	KindStorages  = "storages"
)

// Kinds lists the cached data categories in daemon refresh order.
var Kinds = []string{KindNodes, KindVMs, KindTemplates, KindStorages}

// NodeRecord describes one cluster node.
type NodeRecord struct {
	Node   string  `json:"node"`
	Status string  `json:"status"`
	CPU    float64 `json:"cpu"`
	MaxCPU int     `json:"maxcpu"`
	Mem    int64   `json:"mem"`
	MaxMem int64   `json:"maxmem"`
	Uptime int64   `json:"uptime"`
}

// CPUPercent returns node CPU usage as a percentage.
func (n NodeRecord) CPUPercent() float64 {
	return n.CPU * 100
}

// MemoryUsedGB returns used memory in gigabytes.
func (n NodeRecord) MemoryUsedGB() float64 {
	return float64(n.Mem) / (1 << 30)
}

// MemoryTotalGB returns total memory in gigabytes.
func (n NodeRecord) MemoryTotalGB() float64 {
	return float64(n.MaxMem) / (1 << 30)
}

// VMRecord describes one virtual machine or template.
type VMRecord struct {
	VMID     int    `json:"vmid"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	Node     string `json:"node"`
	CPUs     int    `json:"cpus"`
	MaxMem   int64  `json:"maxmem"`
	MaxDisk  int64  `json:"maxdisk"`
	Uptime   int64  `json:"uptime"`
	Template bool   `json:"template"`

	// IPAddress is filled only when extended info was requested and the
	// guest agent (or cloud-init config) reported one.
	IPAddress string `json:"ip_address,omitempty"`
}

// MemoryGB returns the configured memory in gigabytes.
func (v VMRecord) MemoryGB() float64 {
	return float64(v.MaxMem) / (1 << 30)
}

// DiskGB returns the configured disk size in gigabytes.
func (v VMRecord) DiskGB() float64 {
	return float64(v.MaxDisk) / (1 << 30)
}

// StorageRecord describes one storage on one node.
type StorageRecord struct {
	Storage string `json:"storage"`
	Node    string `json:"node"`
	Type    string `json:"type"`
	Avail   int64  `json:"avail"`
	Total   int64  `json:"total"`
	Used    int64  `json:"used"`
	Shared  bool   `json:"shared"`
}

// AvailGB returns the available space in gigabytes.
func (s StorageRecord) AvailGB() float64 {
	return float64(s.Avail) / (1 << 30)
}

// SnapshotRecord describes one point-in-time snapshot of a VM. The cluster
// reports a synthetic "current" entry for the live state.
type SnapshotRecord struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	SnapTime    int64  `json:"snaptime"` // unix seconds, 0 for "current"
	VMState     bool   `json:"vmstate"`
	Parent      string `json:"parent,omitempty"`
}

// IsCurrent reports whether this is the synthetic live-state entry.
func (s SnapshotRecord) IsCurrent() bool {
	return s.Name == "current"
}

// Taken returns the snapshot creation time, or a zero time for "current".
func (s SnapshotRecord) Taken() time.Time {
	if s.SnapTime == 0 {
		return time.Time{}
	}
	return time.Unix(s.SnapTime, 0)
}

// Task states reported by the cluster.
const (
	TaskRunning = "running"
	TaskStopped = "stopped"
)

// TaskSuccess is the exit status the cluster reports for a task that
// finished cleanly. Anything else at "stopped" is a failure.
const TaskSuccess = "OK"

// TaskStatus is one observation of an asynchronous cluster task.
type TaskStatus struct {
	Status     string `json:"status"`
	ExitStatus string `json:"exitstatus,omitempty"`
}

// Finished reports whether the task reached a terminal state.
func (t TaskStatus) Finished() bool {
	return t.Status == TaskStopped
}

// OK reports whether a finished task succeeded.
func (t TaskStatus) OK() bool {
	return t.Finished() && t.ExitStatus == TaskSuccess
}

// CloneOptions configures a template clone.
type CloneOptions struct {
	NewID      int
	Name       string
	TargetNode string
	Storage    string
	Full       bool
}

// VMConfig holds the mutable VM settings pmx manages after a clone.
type VMConfig struct {
	Cores  int
	Memory int // MiB
}

// CloudInitConfig holds the cloud-init settings applied to a created VM.
type CloudInitConfig struct {
	User     string
	Password string
	SSHKeys  string // authorized_keys content, newline separated
	IPConfig string // e.g. "ip=dhcp" or "ip=10.0.0.5/24,gw=10.0.0.1"
}

// ClusterStatus is a coarse health summary used by 'pmx status'.
type ClusterStatus struct {
	Quorate bool   `json:"quorate"`
	Nodes   int    `json:"nodes"`
	Name    string `json:"name"`
}
