package api

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pmxdev/pmx/internal/config"
	"github.com/pmxdev/pmx/internal/errors"
	"github.com/pmxdev/pmx/internal/logger"
)

// restClient implements Client against the cluster's JSON REST API using
// API-token authentication.
type restClient struct {
	baseURL string
	token   string
	http    *http.Client
	log     logger.Logger
}

// NewClient builds a Client for the given context configuration.
func NewClient(ctx config.Context) Client {
	transport := &http.Transport{
		TLSHandshakeTimeout: 10 * time.Second,
		IdleConnTimeout:     90 * time.Second,
	}
	if !ctx.VerifySSL {
		// Clusters commonly run self-signed certificates.
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	return &restClient{
		baseURL: fmt.Sprintf("https://%s:%d/api2/json", ctx.Host, ctx.Port),
		token:   fmt.Sprintf("PVEAPIToken=%s!%s=%s", ctx.User, ctx.TokenName, ctx.TokenValue),
		http: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		log: logger.NewEnvLogger("[api]"),
	}
}

// apiResponse is the envelope every endpoint wraps its payload in.
type apiResponse struct {
	Data json.RawMessage `json:"data"`
}

func (c *restClient) do(ctx context.Context, method, path string, params url.Values, out interface{}) error {
	var body io.Reader
	if params != nil && method != http.MethodGet {
		body = strings.NewReader(params.Encode())
	}

	endpoint := c.baseURL + path
	if params != nil && method == http.MethodGet {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return errors.Wrap(err, "Failed to build API request")
	}
	req.Header.Set("Authorization", c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "Cluster API request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "Failed to read API response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Debug("%s %s -> %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(data)))
		return errors.New(errors.ErrAPI,
			fmt.Sprintf("Cluster API returned %s for %s %s", resp.Status, method, path),
			"Check the context credentials with 'pmx ctx list' and the cluster logs")
	}

	if out == nil {
		return nil
	}

	var envelope apiResponse
	if err := json.Unmarshal(data, &envelope); err != nil {
		return errors.Wrap(err, "Cluster API returned malformed JSON")
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return errors.Wrap(err, "Unexpected payload shape from cluster API")
	}
	return nil
}

// wire types: the API reports booleans as 0/1 and omits fields freely, so
// decoding goes through these intermediates instead of the public records.

type wireNode struct {
	Node   string  `json:"node"`
	Status string  `json:"status"`
	CPU    float64 `json:"cpu"`
	MaxCPU int     `json:"maxcpu"`
	Mem    int64   `json:"mem"`
	MaxMem int64   `json:"maxmem"`
	Uptime int64   `json:"uptime"`
}

type wireVM struct {
	VMID     int    `json:"vmid"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	CPUs     int    `json:"cpus"`
	MaxMem   int64  `json:"maxmem"`
	MaxDisk  int64  `json:"maxdisk"`
	Uptime   int64  `json:"uptime"`
	Template int    `json:"template"`
}

type wireStorage struct {
	Storage string `json:"storage"`
	Type    string `json:"type"`
	Content string `json:"content"`
	Avail   int64  `json:"avail"`
	Total   int64  `json:"total"`
	Used    int64  `json:"used"`
	Shared  int    `json:"shared"`
}

type wireSnapshot struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	SnapTime    int64  `json:"snaptime"`
	VMState     int    `json:"vmstate"`
	Parent      string `json:"parent"`
}

func (c *restClient) ListNodes(ctx context.Context) ([]NodeRecord, error) {
	var raw []wireNode
	if err := c.do(ctx, http.MethodGet, "/nodes", nil, &raw); err != nil {
		return nil, err
	}

	nodes := make([]NodeRecord, 0, len(raw))
	for _, n := range raw {
		status := n.Status
		if status == "" {
			status = "unknown"
		}
		nodes = append(nodes, NodeRecord{
			Node:   n.Node,
			Status: status,
			CPU:    n.CPU,
			MaxCPU: n.MaxCPU,
			Mem:    n.Mem,
			MaxMem: n.MaxMem,
			Uptime: n.Uptime,
		})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Node < nodes[j].Node })
	return nodes, nil
}

func (c *restClient) ListVMs(ctx context.Context, node string, extended bool) ([]VMRecord, error) {
	var nodeNames []string
	if node != "" {
		nodeNames = []string{node}
	} else {
		nodes, err := c.ListNodes(ctx)
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			nodeNames = append(nodeNames, n.Node)
		}
	}

	var vms []VMRecord
	for _, n := range nodeNames {
		var raw []wireVM
		if err := c.do(ctx, http.MethodGet, "/nodes/"+n+"/qemu", nil, &raw); err != nil {
			// One unreachable node must not hide the rest of the cluster.
			c.log.Debug("skipping node %s: %v", n, err)
			continue
		}
		for _, v := range raw {
			rec := VMRecord{
				VMID:     v.VMID,
				Name:     v.Name,
				Status:   v.Status,
				Node:     n,
				CPUs:     v.CPUs,
				MaxMem:   v.MaxMem,
				MaxDisk:  v.MaxDisk,
				Uptime:   v.Uptime,
				Template: v.Template == 1,
			}
			if rec.Name == "" {
				rec.Name = fmt.Sprintf("VM-%d", v.VMID)
			}
			if rec.Status == "" {
				rec.Status = "unknown"
			}
			if extended && rec.Status == "running" && !rec.Template {
				rec.IPAddress = c.guestIP(ctx, n, rec.VMID)
			}
			vms = append(vms, rec)
		}
	}

	sort.Slice(vms, func(i, j int) bool { return vms[i].VMID < vms[j].VMID })
	return vms, nil
}

// guestIP resolves a VM's IPv4 address, trying the guest agent first and the
// cloud-init config second. Best effort: any failure yields an empty string.
func (c *restClient) guestIP(ctx context.Context, node string, vmid int) string {
	type ipAddr struct {
		Type    string `json:"ip-address-type"`
		Address string `json:"ip-address"`
	}
	type iface struct {
		Name string   `json:"name"`
		IPs  []ipAddr `json:"ip-addresses"`
	}
	var agent struct {
		Result []iface `json:"result"`
	}

	path := fmt.Sprintf("/nodes/%s/qemu/%d/agent/network-get-interfaces", node, vmid)
	if err := c.do(ctx, http.MethodGet, path, nil, &agent); err == nil {
		for _, ifc := range agent.Result {
			if ifc.Name == "lo" {
				continue
			}
			for _, ip := range ifc.IPs {
				if ip.Type == "ipv4" && ip.Address != "" && !strings.HasPrefix(ip.Address, "127.") {
					return ip.Address
				}
			}
		}
	}

	var cfg struct {
		IPConfig0 string `json:"ipconfig0"`
	}
	path = fmt.Sprintf("/nodes/%s/qemu/%d/config", node, vmid)
	if err := c.do(ctx, http.MethodGet, path, nil, &cfg); err != nil {
		return ""
	}
	for _, part := range strings.Split(cfg.IPConfig0, ",") {
		if strings.HasPrefix(part, "ip=") {
			ip := strings.SplitN(strings.TrimPrefix(part, "ip="), "/", 2)[0]
			if ip != "" && ip != "dhcp" {
				return ip
			}
		}
	}
	return ""
}

func (c *restClient) ListStorages(ctx context.Context, node, contentType string) ([]StorageRecord, error) {
	var raw []wireStorage
	if err := c.do(ctx, http.MethodGet, "/nodes/"+node+"/storage", nil, &raw); err != nil {
		return nil, err
	}

	storages := make([]StorageRecord, 0, len(raw))
	for _, s := range raw {
		if contentType != "" && !strings.Contains(s.Content, contentType) {
			continue
		}
		typ := s.Type
		if typ == "" {
			typ = "unknown"
		}
		storages = append(storages, StorageRecord{
			Storage: s.Storage,
			Node:    node,
			Type:    typ,
			Avail:   s.Avail,
			Total:   s.Total,
			Used:    s.Used,
			Shared:  s.Shared == 1,
		})
	}
	sort.Slice(storages, func(i, j int) bool { return storages[i].Storage < storages[j].Storage })
	return storages, nil
}

func (c *restClient) ListSnapshots(ctx context.Context, node string, vmid int) ([]SnapshotRecord, error) {
	var raw []wireSnapshot
	path := fmt.Sprintf("/nodes/%s/qemu/%d/snapshot", node, vmid)
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}

	snaps := make([]SnapshotRecord, 0, len(raw))
	for _, s := range raw {
		snaps = append(snaps, SnapshotRecord{
			Name:        s.Name,
			Description: s.Description,
			SnapTime:    s.SnapTime,
			VMState:     s.VMState == 1,
			Parent:      s.Parent,
		})
	}
	// Oldest first; "current" (snaptime 0) sorts last.
	sort.SliceStable(snaps, func(i, j int) bool {
		ti, tj := snaps[i].SnapTime, snaps[j].SnapTime
		if ti == 0 {
			return false
		}
		if tj == 0 {
			return true
		}
		return ti < tj
	})
	return snaps, nil
}

// upidResult decodes endpoints whose data payload is the bare UPID string.
func (c *restClient) submit(ctx context.Context, method, path string, params url.Values) (UPID, error) {
	var upid string
	if err := c.do(ctx, method, path, params, &upid); err != nil {
		return "", err
	}
	if upid == "" {
		return "", errors.New(errors.ErrAPI,
			"Cluster accepted the operation but returned no task id",
			"Check the task list in the cluster UI")
	}
	return UPID(upid), nil
}

func (c *restClient) Clone(ctx context.Context, node string, templateID int, opts CloneOptions) (UPID, error) {
	params := url.Values{}
	params.Set("newid", strconv.Itoa(opts.NewID))
	params.Set("name", opts.Name)
	if opts.TargetNode != "" {
		params.Set("target", opts.TargetNode)
	}
	if opts.Storage != "" {
		params.Set("storage", opts.Storage)
	}
	if opts.Full {
		params.Set("full", "1")
	}
	path := fmt.Sprintf("/nodes/%s/qemu/%d/clone", node, templateID)
	return c.submit(ctx, http.MethodPost, path, params)
}

func (c *restClient) ConfigureVM(ctx context.Context, node string, vmid int, cfg VMConfig) error {
	params := url.Values{}
	params.Set("cores", strconv.Itoa(cfg.Cores))
	params.Set("memory", strconv.Itoa(cfg.Memory))
	path := fmt.Sprintf("/nodes/%s/qemu/%d/config", node, vmid)
	return c.do(ctx, http.MethodPut, path, params, nil)
}

func (c *restClient) ResizeDisk(ctx context.Context, node string, vmid int, disk, increment string) error {
	params := url.Values{}
	params.Set("disk", disk)
	params.Set("size", increment)
	path := fmt.Sprintf("/nodes/%s/qemu/%d/resize", node, vmid)
	return c.do(ctx, http.MethodPut, path, params, nil)
}

func (c *restClient) SetCloudInit(ctx context.Context, node string, vmid int, cfg CloudInitConfig) error {
	params := url.Values{}
	params.Set("ciuser", cfg.User)
	if cfg.Password != "" {
		params.Set("cipassword", cfg.Password)
	}
	if cfg.SSHKeys != "" {
		// The API expects the authorized_keys content URL-encoded inside the
		// form value.
		params.Set("sshkeys", url.QueryEscape(strings.TrimSpace(cfg.SSHKeys)))
	}
	if cfg.IPConfig != "" {
		params.Set("ipconfig0", cfg.IPConfig)
	}
	path := fmt.Sprintf("/nodes/%s/qemu/%d/config", node, vmid)
	return c.do(ctx, http.MethodPut, path, params, nil)
}

func (c *restClient) StartVM(ctx context.Context, node string, vmid int) (UPID, error) {
	path := fmt.Sprintf("/nodes/%s/qemu/%d/status/start", node, vmid)
	return c.submit(ctx, http.MethodPost, path, url.Values{})
}

func (c *restClient) StopVM(ctx context.Context, node string, vmid int) (UPID, error) {
	path := fmt.Sprintf("/nodes/%s/qemu/%d/status/stop", node, vmid)
	return c.submit(ctx, http.MethodPost, path, url.Values{})
}

func (c *restClient) DeleteVM(ctx context.Context, node string, vmid int, purge bool) (UPID, error) {
	params := url.Values{}
	if purge {
		params.Set("purge", "1")
		params.Set("destroy-unreferenced-disks", "1")
	}
	path := fmt.Sprintf("/nodes/%s/qemu/%d", node, vmid)
	return c.submit(ctx, http.MethodDelete, path, params)
}

func (c *restClient) CreateSnapshot(ctx context.Context, node string, vmid int, name, description string, vmstate bool) (UPID, error) {
	params := url.Values{}
	params.Set("snapname", name)
	if description != "" {
		params.Set("description", description)
	}
	if vmstate {
		params.Set("vmstate", "1")
	}
	path := fmt.Sprintf("/nodes/%s/qemu/%d/snapshot", node, vmid)
	return c.submit(ctx, http.MethodPost, path, params)
}

func (c *restClient) DeleteSnapshot(ctx context.Context, node string, vmid int, name string) (UPID, error) {
	path := fmt.Sprintf("/nodes/%s/qemu/%d/snapshot/%s", node, vmid, url.PathEscape(name))
	return c.submit(ctx, http.MethodDelete, path, nil)
}

func (c *restClient) RollbackSnapshot(ctx context.Context, node string, vmid int, name string) (UPID, error) {
	path := fmt.Sprintf("/nodes/%s/qemu/%d/snapshot/%s/rollback", node, vmid, url.PathEscape(name))
	return c.submit(ctx, http.MethodPost, path, url.Values{})
}

func (c *restClient) TaskStatus(ctx context.Context, node string, upid UPID) (TaskStatus, error) {
	var status TaskStatus
	path := fmt.Sprintf("/nodes/%s/tasks/%s/status", node, url.PathEscape(string(upid)))
	if err := c.do(ctx, http.MethodGet, path, nil, &status); err != nil {
		return TaskStatus{}, err
	}
	if status.Status == "" {
		status.Status = "unknown"
	}
	return status, nil
}

func (c *restClient) ClusterStatus(ctx context.Context) (ClusterStatus, error) {
	var raw []struct {
		Type    string `json:"type"`
		Name    string `json:"name"`
		Quorate int    `json:"quorate"`
		Nodes   int    `json:"nodes"`
	}
	if err := c.do(ctx, http.MethodGet, "/cluster/status", nil, &raw); err != nil {
		return ClusterStatus{}, err
	}

	status := ClusterStatus{}
	nodeCount := 0
	clustered := false
	for _, item := range raw {
		switch item.Type {
		case "cluster":
			clustered = true
			status.Name = item.Name
			status.Quorate = item.Quorate == 1
			status.Nodes = item.Nodes
		case "node":
			nodeCount++
		}
	}
	if !clustered {
		// Standalone nodes report no cluster entry.
		status.Nodes = nodeCount
		status.Quorate = true
	}
	return status, nil
}
