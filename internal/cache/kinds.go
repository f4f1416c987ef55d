package cache

import (
	"time"

	"github.com/pmxdev/pmx/internal/api"
)

// Typed accessors for the four cached kinds. These keep the record schemas
// explicit at the call sites instead of passing raw JSON around.

// SetNodes caches the node listing for a context.
func (s *Store) SetNodes(context string, nodes []api.NodeRecord) error {
	return s.Set(context, api.KindNodes, nodes)
}

// Nodes returns the cached node listing.
func (s *Store) Nodes(context string) ([]api.NodeRecord, time.Time, bool) {
	var nodes []api.NodeRecord
	ts, ok := s.Get(context, api.KindNodes, &nodes)
	return nodes, ts, ok
}

// SetVMs caches the VM listing for a context.
func (s *Store) SetVMs(context string, vms []api.VMRecord) error {
	return s.Set(context, api.KindVMs, vms)
}

// VMs returns the cached VM listing.
func (s *Store) VMs(context string) ([]api.VMRecord, time.Time, bool) {
	var vms []api.VMRecord
	ts, ok := s.Get(context, api.KindVMs, &vms)
	return vms, ts, ok
}

// SetTemplates caches the template listing for a context.
func (s *Store) SetTemplates(context string, templates []api.VMRecord) error {
	return s.Set(context, api.KindTemplates, templates)
}

// Templates returns the cached template listing.
func (s *Store) Templates(context string) ([]api.VMRecord, time.Time, bool) {
	var templates []api.VMRecord
	ts, ok := s.Get(context, api.KindTemplates, &templates)
	return templates, ts, ok
}

// SetStorages caches the storage listing for a context.
func (s *Store) SetStorages(context string, storages []api.StorageRecord) error {
	return s.Set(context, api.KindStorages, storages)
}

// Storages returns the cached storage listing.
func (s *Store) Storages(context string) ([]api.StorageRecord, time.Time, bool) {
	var storages []api.StorageRecord
	ts, ok := s.Get(context, api.KindStorages, &storages)
	return storages, ts, ok
}
