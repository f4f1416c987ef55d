package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pmxdev/pmx/internal/api"
	"github.com/pmxdev/pmx/internal/cache"
	"github.com/pmxdev/pmx/internal/config"
	"github.com/pmxdev/pmx/internal/errors"
	"github.com/pmxdev/pmx/internal/task"
	"github.com/pmxdev/pmx/internal/ui"
)

// newAPIClient builds the cluster client. Swapped out in command tests.
var newAPIClient = func(ctx config.Context) api.Client {
	return api.NewClient(ctx)
}

// printWarning reports non-fatal trouble to the user. Swapped out in tests.
var printWarning = ui.PrintWarning

// warnOnWriteErr surfaces a failed cache or registry write. The command
// itself already has its data, so it keeps going, but the user must learn
// that local state is not being persisted.
func warnOnWriteErr(what string, err error) {
	if err != nil {
		printWarning(fmt.Sprintf("%s write failed: %v", what, err))
	}
}

// session bundles the resolved context, its API client, and the cache
// store. Most commands start by building one.
type session struct {
	dir    string
	name   string
	ctx    config.Context
	client api.Client
	store  *cache.Store
}

func newSession() (*session, error) {
	dir := config.Home()
	name, ctxCfg, err := config.CurrentContext(dir)
	if err != nil {
		return nil, err
	}
	return &session{
		dir:    dir,
		name:   name,
		ctx:    ctxCfg,
		client: newAPIClient(ctxCfg),
		store:  cache.New(config.CacheDir(dir)),
	}, nil
}

// nodes returns the node listing, cache-first. The second return is the
// age label shown next to the listing.
func (s *session) nodes(ctx context.Context, refresh bool) ([]api.NodeRecord, string, error) {
	if !refresh && s.store.IsValid(s.name, api.KindNodes, cache.DefaultTTL) {
		if records, writtenAt, ok := s.store.Nodes(s.name); ok {
			return records, cache.FormatAge(time.Since(writtenAt), true), nil
		}
	}

	records, err := s.client.ListNodes(ctx)
	if err != nil {
		return nil, "", err
	}
	warnOnWriteErr("node cache", s.store.SetNodes(s.name, records))
	return records, "just now", nil
}

// vms returns the VM listing (templates excluded), cache-first.
func (s *session) vms(ctx context.Context, refresh bool) ([]api.VMRecord, string, error) {
	if !refresh && s.store.IsValid(s.name, api.KindVMs, cache.DefaultTTL) {
		if records, writtenAt, ok := s.store.VMs(s.name); ok {
			return withoutTemplates(records), cache.FormatAge(time.Since(writtenAt), true), nil
		}
	}

	records, err := s.client.ListVMs(ctx, "", false)
	if err != nil {
		return nil, "", err
	}
	warnOnWriteErr("vm cache", s.store.SetVMs(s.name, records))
	warnOnWriteErr("template cache", s.store.SetTemplates(s.name, onlyTemplates(records)))
	return withoutTemplates(records), "just now", nil
}

// templates returns the template listing, cache-first.
func (s *session) templates(ctx context.Context, refresh bool) ([]api.VMRecord, string, error) {
	if !refresh && s.store.IsValid(s.name, api.KindTemplates, cache.DefaultTTL) {
		if records, writtenAt, ok := s.store.Templates(s.name); ok {
			return records, cache.FormatAge(time.Since(writtenAt), true), nil
		}
	}

	records, err := s.client.ListVMs(ctx, "", false)
	if err != nil {
		return nil, "", err
	}
	warnOnWriteErr("vm cache", s.store.SetVMs(s.name, records))
	templates := onlyTemplates(records)
	warnOnWriteErr("template cache", s.store.SetTemplates(s.name, templates))
	return templates, "just now", nil
}

// storages returns the storage listing aggregated across nodes, cache-first.
func (s *session) storages(ctx context.Context, refresh bool) ([]api.StorageRecord, string, error) {
	if !refresh && s.store.IsValid(s.name, api.KindStorages, cache.DefaultTTL) {
		if records, writtenAt, ok := s.store.Storages(s.name); ok {
			return records, cache.FormatAge(time.Since(writtenAt), true), nil
		}
	}

	nodes, err := s.client.ListNodes(ctx)
	if err != nil {
		return nil, "", err
	}
	var all []api.StorageRecord
	seen := map[string]bool{}
	for _, node := range nodes {
		records, err := s.client.ListStorages(ctx, node.Node, "images")
		if err != nil {
			continue
		}
		for _, st := range records {
			if seen[st.Storage] {
				continue
			}
			seen[st.Storage] = true
			all = append(all, st)
		}
	}
	warnOnWriteErr("storage cache", s.store.SetStorages(s.name, all))
	return all, "just now", nil
}

// findVM resolves a VM by VMID or exact name. It prefers the cache and
// falls back to a live listing when the reference is not found there.
func (s *session) findVM(ctx context.Context, ref string) (api.VMRecord, error) {
	if records, _, ok := s.store.VMs(s.name); ok {
		if vm, found := matchVM(records, ref); found {
			return vm, nil
		}
	}

	records, err := s.client.ListVMs(ctx, "", false)
	if err != nil {
		return api.VMRecord{}, err
	}
	warnOnWriteErr("vm cache", s.store.SetVMs(s.name, records))
	if vm, found := matchVM(records, ref); found {
		return vm, nil
	}
	return api.VMRecord{}, errors.New(errors.ErrAPI,
		"VM not found: "+ref,
		"List VMs with 'pmx list vms'")
}

func matchVM(records []api.VMRecord, ref string) (api.VMRecord, bool) {
	if vmid, err := strconv.Atoi(ref); err == nil {
		for _, vm := range records {
			if vm.VMID == vmid {
				return vm, true
			}
		}
		return api.VMRecord{}, false
	}
	for _, vm := range records {
		if vm.Name == ref && !vm.Template {
			return vm, true
		}
	}
	return api.VMRecord{}, false
}

func withoutTemplates(records []api.VMRecord) []api.VMRecord {
	out := make([]api.VMRecord, 0, len(records))
	for _, vm := range records {
		if !vm.Template {
			out = append(out, vm)
		}
	}
	return out
}

func onlyTemplates(records []api.VMRecord) []api.VMRecord {
	out := make([]api.VMRecord, 0)
	for _, vm := range records {
		if vm.Template {
			out = append(out, vm)
		}
	}
	return out
}

// awaitTask waits on a submitted cluster task behind a spinner and
// converts a non-success outcome into a structured error.
func (s *session) awaitTask(ctx context.Context, label string, node string, upid api.UPID, timeout time.Duration) error {
	spinner := ui.NewSpinner(label)
	if !isTerminal() {
		spinner.SetOutput(func(string) {})
	}
	spinner.Start()

	tracker := task.New(s.client, nil)
	result := tracker.Await(ctx, task.Job{Node: node, UPID: upid}, task.DefaultPollInterval, timeout)

	if result.OK() {
		spinner.Success()
		return nil
	}
	spinner.Fail()

	switch result.Outcome {
	case task.TimedOut:
		return errors.New(errors.ErrTask,
			fmt.Sprintf("%s timed out after %s", label, timeout),
			"The task may still be running; check the cluster task log")
	default:
		return errors.New(errors.ErrTask,
			fmt.Sprintf("%s failed: %s", label, result.Reason),
			"Check the cluster task log for details")
	}
}

// cacheStoreFor opens the cache store under a pmx home directory.
func cacheStoreFor(dir string) *cache.Store {
	return cache.New(config.CacheDir(dir))
}

// invalidateListings drops the cached listings that a mutating command
// makes stale, so the next read repopulates.
func (s *session) invalidateListings() {
	warnOnWriteErr("cache", s.store.Invalidate(s.name, api.KindVMs, api.KindTemplates))
}
