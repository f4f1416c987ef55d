package daemon

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pmxdev/pmx/internal/api"
	"github.com/pmxdev/pmx/internal/cache"
	"github.com/pmxdev/pmx/internal/config"
	"github.com/pmxdev/pmx/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient scripts the listing calls the refresher makes.
type fakeClient struct {
	api.Client
	nodes       []api.NodeRecord
	nodesErr    error
	vms         []api.VMRecord
	vmsErr      error
	storages    map[string][]api.StorageRecord
	storagesErr map[string]error
}

func (f *fakeClient) ListNodes(ctx context.Context) ([]api.NodeRecord, error) {
	return f.nodes, f.nodesErr
}

func (f *fakeClient) ListVMs(ctx context.Context, node string, extended bool) ([]api.VMRecord, error) {
	return f.vms, f.vmsErr
}

func (f *fakeClient) ListStorages(ctx context.Context, node, contentType string) ([]api.StorageRecord, error) {
	if err := f.storagesErr[node]; err != nil {
		return nil, err
	}
	return f.storages[node], nil
}

func healthyClient() *fakeClient {
	return &fakeClient{
		nodes: []api.NodeRecord{{Node: "pve1", Status: "online"}, {Node: "pve2", Status: "online"}},
		vms: []api.VMRecord{
			{VMID: 100, Name: "web-1", Node: "pve1"},
			{VMID: 101, Name: "db-1", Node: "pve2"},
			{VMID: 9000, Name: "ubuntu-tmpl", Node: "pve1", Template: true},
		},
		storages: map[string][]api.StorageRecord{
			"pve1": {{Storage: "local-lvm", Node: "pve1"}},
			"pve2": {{Storage: "local-lvm", Node: "pve2"}, {Storage: "ceph", Node: "pve2"}},
		},
		storagesErr: map[string]error{},
	}
}

func setupConfig(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		require.NoError(t, config.AddContext(dir, name, config.Context{
			Host: "10.0.0.10", Port: 8006, User: "root@pam",
			TokenName: "pmx", TokenValue: "x",
		}))
	}
	return dir
}

func TestRefreshAll_PopulatesAllKinds(t *testing.T) {
	dir := setupConfig(t, "lab")
	store := cache.New(config.CacheDir(dir))
	client := healthyClient()
	log := logger.NewBufferLogger()

	r := NewRefresher(dir, store, func(config.Context) api.Client { return client }, log)
	r.RefreshAll(context.Background())

	nodes, _, ok := store.Nodes("lab")
	require.True(t, ok)
	assert.Len(t, nodes, 2)

	vms, _, ok := store.VMs("lab")
	require.True(t, ok)
	assert.Len(t, vms, 3)

	templates, _, ok := store.Templates("lab")
	require.True(t, ok)
	require.Len(t, templates, 1)
	assert.Equal(t, 9000, templates[0].VMID)

	storages, _, ok := store.Storages("lab")
	require.True(t, ok)
	assert.Len(t, storages, 2, "storages aggregate across nodes, one entry per name")

	assert.True(t, log.HasLevel("info"), "cycle should log a per-context summary")
}

func TestRefreshContext_SharedStorageListedOnce(t *testing.T) {
	dir := setupConfig(t, "lab")
	store := cache.New(config.CacheDir(dir))
	client := healthyClient()
	client.storages = map[string][]api.StorageRecord{
		"pve1": {{Storage: "ceph", Node: "pve1"}, {Storage: "local-lvm", Node: "pve1"}},
		"pve2": {{Storage: "ceph", Node: "pve2"}},
	}

	r := NewRefresher(dir, store, func(config.Context) api.Client { return client }, logger.Noop())
	r.RefreshAll(context.Background())

	storages, _, ok := store.Storages("lab")
	require.True(t, ok)
	require.Len(t, storages, 2)
	assert.Equal(t, "ceph", storages[0].Storage)
	assert.Equal(t, "pve1", storages[0].Node, "the first node to report a shared storage wins")
	assert.Equal(t, "local-lvm", storages[1].Storage)
}

func TestRefreshContext_StorageFailureKeepsPreviousEntry(t *testing.T) {
	dir := setupConfig(t, "lab")
	store := cache.New(config.CacheDir(dir))
	client := healthyClient()

	r := NewRefresher(dir, store, func(config.Context) api.Client { return client }, logger.Noop())
	r.RefreshAll(context.Background())

	_, firstTS, ok := store.Storages("lab")
	require.True(t, ok)

	// Second cycle: the storage listing fails on every node.
	client.storagesErr["pve1"] = errors.New("connection refused")
	client.storagesErr["pve2"] = errors.New("connection refused")
	client.vms = append(client.vms, api.VMRecord{VMID: 102, Name: "new-vm", Node: "pve1"})
	time.Sleep(1100 * time.Millisecond) // let timestamps advance past RFC3339 second resolution
	r.RefreshAll(context.Background())

	// The fresh kinds moved forward...
	vms, _, ok := store.VMs("lab")
	require.True(t, ok)
	assert.Len(t, vms, 4)

	// ...while storages retain the previous payload and timestamp.
	storages, ts, ok := store.Storages("lab")
	require.True(t, ok)
	assert.Len(t, storages, 2)
	assert.True(t, ts.Equal(firstTS), "failed refresh must not touch the old entry")
}

func TestRefreshContext_SingleNodeStorageFailureIsSkipped(t *testing.T) {
	dir := setupConfig(t, "lab")
	store := cache.New(config.CacheDir(dir))
	client := healthyClient()
	client.storagesErr["pve1"] = errors.New("timeout")

	r := NewRefresher(dir, store, func(config.Context) api.Client { return client }, logger.Noop())
	r.RefreshAll(context.Background())

	storages, _, ok := store.Storages("lab")
	require.True(t, ok)
	assert.Len(t, storages, 2, "reachable nodes still contribute storages")
}

func TestRefreshAll_ContextFailuresAreIsolated(t *testing.T) {
	dir := setupConfig(t, "bad", "good")
	store := cache.New(config.CacheDir(dir))
	log := logger.NewBufferLogger()

	boom := errors.New("no route to host")
	clients := map[string]*fakeClient{
		"10.0.0.10": healthyClient(),
	}
	factory := func(c config.Context) api.Client {
		if fc, ok := clients[c.Host]; ok && c.DefaultNode != "broken" {
			return fc
		}
		return &fakeClient{nodesErr: boom, vmsErr: boom}
	}

	// Mark the "bad" context so the factory hands out a failing client.
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	bad := cfg.Contexts["bad"]
	bad.DefaultNode = "broken"
	require.NoError(t, config.AddContext(dir, "bad", bad))

	r := NewRefresher(dir, store, factory, log)
	r.RefreshAll(context.Background())

	_, _, ok := store.Nodes("good")
	assert.True(t, ok, "healthy context must refresh despite the broken one")
	_, _, ok = store.Nodes("bad")
	assert.False(t, ok)
	assert.True(t, log.HasLevel("error"))
}

func TestRefreshAll_NoContextsConfigured(t *testing.T) {
	dir := t.TempDir()
	log := logger.NewBufferLogger()

	r := NewRefresher(dir, cache.New(config.CacheDir(dir)), func(config.Context) api.Client { return &fakeClient{} }, log)
	r.RefreshAll(context.Background())

	assert.True(t, log.HasLevel("warn"))
}

func TestRun_ShutdownLatency(t *testing.T) {
	dir := t.TempDir() // no contexts: the cycle itself is instant
	log := logger.NewBufferLogger()

	r := NewRefresher(dir, cache.New(config.CacheDir(dir)), func(config.Context) api.Client { return &fakeClient{} }, log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx) // interval is the full 30s; shutdown must not wait it out
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("daemon did not honor shutdown within the 1s check granularity")
	}

	// Start and stop both leave a trace in the log.
	require.NotEmpty(t, log.Messages)
	assert.Equal(t, "daemon started", log.Messages[0].Message)
	assert.Equal(t, "daemon stopped", log.Messages[len(log.Messages)-1].Message)
}

func TestRefreshInterval_BelowReadTTL(t *testing.T) {
	assert.Less(t, RefreshInterval, cache.DefaultTTL,
		"the daemon must refresh faster than entries expire")
}
