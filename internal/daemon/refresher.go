// Package daemon implements the background cache-refresh process and its
// lifecycle management. Exactly one daemon runs per machine; it keeps the
// listing cache fresh for every configured context so interactive commands
// are served from disk instead of waiting on the cluster API.
package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/pmxdev/pmx/internal/api"
	"github.com/pmxdev/pmx/internal/cache"
	"github.com/pmxdev/pmx/internal/config"
	"github.com/pmxdev/pmx/internal/logger"
)

// RefreshInterval is the pause between refresh cycles. It is deliberately
// below the cache read TTL (60s) so reads always hit a valid entry while
// the daemon runs.
const RefreshInterval = 30 * time.Second

// shutdownGranularity bounds how long a stop request can go unnoticed
// during the inter-cycle sleep.
const shutdownGranularity = time.Second

// ClientFactory builds an API client for a context. Swappable for tests.
type ClientFactory func(ctx config.Context) api.Client

// Refresher repopulates the cache for all configured contexts on a fixed
// interval, sequentially, one context at a time.
type Refresher struct {
	configDir string
	store     *cache.Store
	newClient ClientFactory
	log       logger.Logger
	interval  time.Duration
}

// NewRefresher creates a Refresher. A nil factory defaults to the real API
// client; a nil log discards output.
func NewRefresher(configDir string, store *cache.Store, factory ClientFactory, log logger.Logger) *Refresher {
	if factory == nil {
		factory = func(ctx config.Context) api.Client { return api.NewClient(ctx) }
	}
	if log == nil {
		log = logger.Noop()
	}
	return &Refresher{
		configDir: configDir,
		store:     store,
		newClient: factory,
		log:       log,
		interval:  RefreshInterval,
	}
}

// Run loops until ctx is cancelled: refresh every configured context, then
// sleep one interval. A stop request is honored within a second even
// mid-sleep.
func (r *Refresher) Run(ctx context.Context) {
	r.log.Info("daemon started")
	for {
		r.RefreshAll(ctx)

		if !r.sleep(ctx) {
			break
		}
	}
	r.log.Info("daemon stopped")
}

// RefreshAll performs one refresh cycle over all configured contexts, in
// sorted order. Per-context failures are logged and never abort the cycle.
func (r *Refresher) RefreshAll(ctx context.Context) {
	cfg, err := config.Load(r.configDir)
	if err != nil {
		r.log.Error("cannot load config: %v", err)
		return
	}
	if cfg == nil || len(cfg.Contexts) == 0 {
		r.log.Warn("no contexts configured")
		return
	}

	for _, name := range config.ContextNames(cfg) {
		if ctx.Err() != nil {
			return
		}
		r.refreshContext(ctx, name, cfg.Contexts[name])
	}
}

// refreshContext refreshes all four kinds for one context in fixed order:
// nodes, vms, templates (derived from vms), storages (aggregated across
// nodes). Each (context, kind) failure is isolated: it is logged and the
// remaining kinds still run when their inputs are available.
func (r *Refresher) refreshContext(ctx context.Context, name string, ctxCfg config.Context) {
	client := r.newClient(ctxCfg)

	var summary []string

	nodes, nodesErr := client.ListNodes(ctx)
	if nodesErr != nil {
		r.log.Error("[%s] refresh nodes failed: %v", name, nodesErr)
	} else if err := r.store.SetNodes(name, nodes); err != nil {
		r.log.Error("[%s] cache write for nodes failed: %v", name, err)
	} else {
		summary = append(summary, fmt.Sprintf("%d nodes", len(nodes)))
	}

	vms, vmsErr := client.ListVMs(ctx, "", false)
	if vmsErr != nil {
		r.log.Error("[%s] refresh vms failed: %v", name, vmsErr)
	} else {
		if err := r.store.SetVMs(name, vms); err != nil {
			r.log.Error("[%s] cache write for vms failed: %v", name, err)
		} else {
			summary = append(summary, fmt.Sprintf("%d vms", len(vms)))
		}

		// Templates are the subset of VMs flagged as such; they can only be
		// derived when the VM listing succeeded.
		templates := make([]api.VMRecord, 0)
		for _, vm := range vms {
			if vm.Template {
				templates = append(templates, vm)
			}
		}
		if err := r.store.SetTemplates(name, templates); err != nil {
			r.log.Error("[%s] cache write for templates failed: %v", name, err)
		} else {
			summary = append(summary, fmt.Sprintf("%d templates", len(templates)))
		}
	}

	if nodesErr == nil {
		storages, err := r.fetchStorages(ctx, client, nodes)
		if err != nil {
			r.log.Error("[%s] refresh storages failed: %v", name, err)
		} else if err := r.store.SetStorages(name, storages); err != nil {
			r.log.Error("[%s] cache write for storages failed: %v", name, err)
		} else {
			summary = append(summary, fmt.Sprintf("%d storages", len(storages)))
		}
	}

	if len(summary) > 0 {
		line := summary[0]
		for _, s := range summary[1:] {
			line += ", " + s
		}
		r.log.Info("[%s] cache refreshed: %s", name, line)
	}
}

// fetchStorages aggregates image-capable storages across all nodes,
// keeping one entry per storage name since shared storages show up on
// every node. A node that fails to answer is skipped; the error is
// returned only when every node failed, so a single flaky node does not
// wipe the storages entry.
func (r *Refresher) fetchStorages(ctx context.Context, client api.Client, nodes []api.NodeRecord) ([]api.StorageRecord, error) {
	all := make([]api.StorageRecord, 0)
	seen := make(map[string]bool)
	var lastErr error
	failures := 0
	for _, node := range nodes {
		storages, err := client.ListStorages(ctx, node.Node, "images")
		if err != nil {
			failures++
			lastErr = err
			r.log.Debug("storage listing on %s failed: %v", node.Node, err)
			continue
		}
		for _, st := range storages {
			if seen[st.Storage] {
				continue
			}
			seen[st.Storage] = true
			all = append(all, st)
		}
	}
	if len(nodes) > 0 && failures == len(nodes) {
		return nil, lastErr
	}
	return all, nil
}

// sleep waits one refresh interval, checking for shutdown every second.
// Returns false when ctx was cancelled.
func (r *Refresher) sleep(ctx context.Context) bool {
	remaining := r.interval
	for remaining > 0 {
		step := shutdownGranularity
		if step > remaining {
			step = remaining
		}
		timer := time.NewTimer(step)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
		remaining -= step
	}
	return ctx.Err() == nil
}
