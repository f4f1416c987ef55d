package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pmxdev/pmx/internal/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleVMs() []api.VMRecord {
	return []api.VMRecord{
		{VMID: 100, Name: "web-1", Status: "running", Node: "pve1", CPUs: 2},
		{VMID: 101, Name: "db-1", Status: "stopped", Node: "pve2", CPUs: 4},
		{VMID: 9000, Name: "ubuntu-tmpl", Status: "stopped", Node: "pve1", Template: true},
	}
}

func TestSetGet_RoundTrip(t *testing.T) {
	s := New(t.TempDir())

	vms := sampleVMs()
	require.NoError(t, s.SetVMs("lab", vms))

	got, writtenAt, ok := s.VMs("lab")
	require.True(t, ok)
	assert.Equal(t, vms, got, "payload round-trips order-preserving")
	assert.WithinDuration(t, time.Now(), writtenAt, 2*time.Second)
}

func TestGet_NeverWritten(t *testing.T) {
	s := New(t.TempDir())

	_, _, ok := s.VMs("lab")
	assert.False(t, ok)

	_, ok = s.Age("lab", api.KindVMs)
	assert.False(t, ok)
	assert.False(t, s.IsValid("lab", api.KindVMs, DefaultTTL))
}

func TestGet_CorruptedFileIsMiss(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	require.NoError(t, s.SetNodes("lab", []api.NodeRecord{{Node: "pve1"}}))

	// Corrupt the payload behind the store's back.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lab", "nodes.json"), []byte("{truncated"), 0o644))

	_, _, ok := s.Nodes("lab")
	assert.False(t, ok, "corruption must surface as a miss, not an error")
}

func TestIsValid_TTLBoundary(t *testing.T) {
	s := New(t.TempDir())

	base := time.Now()
	s.now = func() time.Time { return base }
	require.NoError(t, s.SetVMs("lab", sampleVMs()))

	// t=59s: still valid at a 60s TTL
	s.now = func() time.Time { return base.Add(59 * time.Second) }
	assert.True(t, s.IsValid("lab", api.KindVMs, 60*time.Second))

	// t=61s: expired
	s.now = func() time.Time { return base.Add(61 * time.Second) }
	assert.False(t, s.IsValid("lab", api.KindVMs, 60*time.Second))

	// Expired entries are still readable, just not valid.
	got, _, ok := s.VMs("lab")
	assert.True(t, ok)
	assert.Len(t, got, 3)
}

func TestAge(t *testing.T) {
	s := New(t.TempDir())

	base := time.Now()
	s.now = func() time.Time { return base }
	require.NoError(t, s.SetNodes("lab", nil))

	s.now = func() time.Time { return base.Add(42 * time.Second) }
	age, ok := s.Age("lab", api.KindNodes)
	require.True(t, ok)
	assert.Equal(t, 42*time.Second, age)
}

func TestInvalidate_SingleKind(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, s.SetVMs("lab", sampleVMs()))
	require.NoError(t, s.SetNodes("lab", []api.NodeRecord{{Node: "pve1"}}))

	require.NoError(t, s.Invalidate("lab", api.KindVMs))

	_, _, ok := s.VMs("lab")
	assert.False(t, ok)
	_, _, ok = s.Nodes("lab")
	assert.True(t, ok, "other kinds survive a single-kind invalidation")
}

func TestInvalidate_WholeContext(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, s.SetVMs("lab", sampleVMs()))
	require.NoError(t, s.SetNodes("lab", []api.NodeRecord{{Node: "pve1"}}))
	require.NoError(t, s.SetStorages("lab", []api.StorageRecord{{Storage: "local-lvm"}}))
	require.NoError(t, s.SetTemplates("lab", nil))

	require.NoError(t, s.Invalidate("lab"))

	for _, kind := range api.Kinds {
		_, ok := s.Age("lab", kind)
		assert.False(t, ok, "kind %s should be gone", kind)
	}
	assert.Empty(t, s.ListCachedContexts())
}

func TestInvalidate_MissingContext(t *testing.T) {
	s := New(t.TempDir())
	assert.NoError(t, s.Invalidate("ghost"))
	assert.NoError(t, s.Invalidate("ghost", api.KindVMs))
}

func TestListCachedContexts(t *testing.T) {
	s := New(t.TempDir())
	assert.Empty(t, s.ListCachedContexts())

	require.NoError(t, s.SetVMs("prod", nil))
	require.NoError(t, s.SetVMs("lab", nil))

	assert.Equal(t, []string{"lab", "prod"}, s.ListCachedContexts())
}

func TestTimestamps(t *testing.T) {
	s := New(t.TempDir())

	base := time.Now().Truncate(time.Second)
	s.now = func() time.Time { return base }
	require.NoError(t, s.SetVMs("lab", nil))
	require.NoError(t, s.SetNodes("lab", nil))

	ts := s.Timestamps("lab")
	require.Len(t, ts, 2)
	assert.True(t, ts[api.KindVMs].Equal(base))
	assert.True(t, ts[api.KindNodes].Equal(base))
	assert.NotContains(t, ts, api.KindStorages)
}

func TestConcurrentWriters_OnePayloadWins(t *testing.T) {
	s := New(t.TempDir())

	// Two distinct payloads raced by several writers each. After the dust
	// settles the cache must hold exactly one of them, never a mixture.
	p1 := []api.NodeRecord{{Node: "alpha-1"}, {Node: "alpha-2"}}
	p2 := []api.NodeRecord{{Node: "beta-1"}, {Node: "beta-2"}}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		payload := p1
		if i%2 == 1 {
			payload = p2
		}
		wg.Add(1)
		go func(p []api.NodeRecord) {
			defer wg.Done()
			_ = s.SetNodes("lab", p)
		}(payload)
	}
	wg.Wait()

	got, _, ok := s.Nodes("lab")
	require.True(t, ok)
	if got[0].Node == "alpha-1" {
		assert.Equal(t, p1, got)
	} else {
		assert.Equal(t, p2, got)
	}
}

func TestSet_PayloadLandsBeforeTimestamp(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	require.NoError(t, s.SetVMs("lab", sampleVMs()))

	// A recorded timestamp implies a parseable payload on disk.
	_, ok := s.Age("lab", api.KindVMs)
	require.True(t, ok)

	data, err := os.ReadFile(filepath.Join(dir, "lab", "vms.json"))
	require.NoError(t, err)
	var vms []api.VMRecord
	require.NoError(t, json.Unmarshal(data, &vms))
	assert.Len(t, vms, 3)
}

func TestSet_NoTempFilesLeftBehind(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	require.NoError(t, s.SetVMs("lab", sampleVMs()))

	entries, err := os.ReadDir(filepath.Join(dir, "lab"))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-")
	}
}

func TestFormatAge(t *testing.T) {
	tests := []struct {
		name string
		age  time.Duration
		ok   bool
		want string
	}{
		{name: "no cache", age: 0, ok: false, want: "no cache"},
		{name: "seconds", age: 12 * time.Second, ok: true, want: "12s ago"},
		{name: "minutes", age: 3 * time.Minute, ok: true, want: "3m ago"},
		{name: "hours", age: 2 * time.Hour, ok: true, want: "2h ago"},
		{name: "zero", age: 0, ok: true, want: "0s ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAge(tt.age, tt.ok))
		})
	}
}
