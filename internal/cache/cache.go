// Package cache implements the on-disk listing cache that decouples
// interactive commands from slow cluster API calls.
//
// Layout, one scope per context:
//
//	<root>/<context>/nodes.json
//	<root>/<context>/vms.json
//	<root>/<context>/templates.json
//	<root>/<context>/storages.json
//	<root>/<context>/meta.json      {kind: RFC3339 timestamp}
//
// Every write fully replaces the previous entry. Missing or corrupt files
// are cache misses, never errors: staleness must not break the command that
// consulted the cache, it just forces a live fetch.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/pmxdev/pmx/internal/errors"
)

// DefaultTTL is the read-path freshness bound. The daemon refreshes every
// 30s, so while it runs reads always hit a valid entry.
const DefaultTTL = 60 * time.Second

const metaFileName = "meta.json"

// Store is a per-context, per-kind persistent cache rooted at one directory.
type Store struct {
	root string
	now  func() time.Time
}

// New creates a Store rooted at dir. The directory is created lazily on
// first write.
func New(root string) *Store {
	return &Store{root: root, now: time.Now}
}

func (s *Store) contextDir(context string) string {
	return filepath.Join(s.root, context)
}

func (s *Store) kindFile(context, kind string) string {
	return filepath.Join(s.contextDir(context), kind+".json")
}

func (s *Store) metaFile(context string) string {
	return filepath.Join(s.contextDir(context), metaFileName)
}

// Set serializes payload for (context, kind) and records the write
// timestamp. The payload lands via write-to-temp-then-rename so a
// concurrent reader never observes a half-written file; the timestamp is
// the last write in the sequence.
func (s *Store) Set(context, kind string, payload interface{}) error {
	dir := s.contextDir(context)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WrapWithCode(err, errors.ErrCache,
			"Failed to create cache directory",
			"Check permissions on "+dir)
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrCache,
			"Failed to serialize cache payload for "+kind, "")
	}
	if err := atomicWrite(s.kindFile(context, kind), data); err != nil {
		return errors.WrapWithCode(err, errors.ErrCache,
			"Failed to write cache file for "+kind,
			"Check disk space and permissions on "+dir)
	}

	meta := s.loadMeta(context)
	meta[kind] = s.now().Format(time.RFC3339)
	return s.saveMeta(context, meta)
}

// Get deserializes the cached payload for (context, kind) into out and
// returns its write timestamp. ok is false if the entry was never written,
// was invalidated, or cannot be parsed.
func (s *Store) Get(context, kind string, out interface{}) (writtenAt time.Time, ok bool) {
	data, err := os.ReadFile(s.kindFile(context, kind))
	if err != nil {
		return time.Time{}, false
	}
	if err := json.Unmarshal(data, out); err != nil {
		// Corruption degrades to a miss; the caller falls back to a live fetch.
		return time.Time{}, false
	}

	ts, tsOK := s.timestamp(context, kind)
	if !tsOK {
		return time.Time{}, false
	}
	return ts, true
}

// Age returns how long ago (context, kind) was written. ok is false when no
// write timestamp exists.
func (s *Store) Age(context, kind string) (time.Duration, bool) {
	ts, ok := s.timestamp(context, kind)
	if !ok {
		return 0, false
	}
	return s.now().Sub(ts), true
}

// IsValid reports whether (context, kind) was written within ttl.
func (s *Store) IsValid(context, kind string, ttl time.Duration) bool {
	age, ok := s.Age(context, kind)
	return ok && age <= ttl
}

// Invalidate removes cached kinds for a context. With no kinds given, the
// whole context scope is removed.
func (s *Store) Invalidate(context string, kinds ...string) error {
	if len(kinds) == 0 {
		if err := os.RemoveAll(s.contextDir(context)); err != nil {
			return errors.WrapWithCode(err, errors.ErrCache,
				"Failed to remove cache for context "+context, "")
		}
		return nil
	}

	meta := s.loadMeta(context)
	for _, kind := range kinds {
		if err := os.Remove(s.kindFile(context, kind)); err != nil && !os.IsNotExist(err) {
			return errors.WrapWithCode(err, errors.ErrCache,
				"Failed to remove cache file for "+kind, "")
		}
		delete(meta, kind)
	}
	return s.saveMeta(context, meta)
}

// ListCachedContexts returns the names of contexts that currently hold any
// cached data, sorted.
func (s *Store) ListCachedContexts() []string {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

// Timestamps returns the write timestamp per kind for a context. Kinds
// never written are absent from the map.
func (s *Store) Timestamps(context string) map[string]time.Time {
	meta := s.loadMeta(context)
	out := make(map[string]time.Time, len(meta))
	for kind, raw := range meta {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			out[kind] = ts
		}
	}
	return out
}

func (s *Store) timestamp(context, kind string) (time.Time, bool) {
	raw, ok := s.loadMeta(context)[kind]
	if !ok {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

func (s *Store) loadMeta(context string) map[string]string {
	meta := make(map[string]string)
	data, err := os.ReadFile(s.metaFile(context))
	if err != nil {
		return meta
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return make(map[string]string)
	}
	return meta
}

func (s *Store) saveMeta(context string, meta map[string]string) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrCache,
			"Failed to serialize cache metadata", "")
	}
	if err := atomicWrite(s.metaFile(context), data); err != nil {
		return errors.WrapWithCode(err, errors.ErrCache,
			"Failed to write cache metadata",
			"Check disk space and permissions on "+s.contextDir(context))
	}
	return nil
}

// atomicWrite writes data to a temp file in the target directory and
// renames it into place so readers see either the old or the new content,
// never a mix.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()          //nolint:errcheck
		os.Remove(tmpName)   //nolint:errcheck
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return err
	}
	return nil
}

// FormatAge renders a cache age for display, e.g. "12s ago" or "3m ago".
// ok=false renders as "no cache".
func FormatAge(age time.Duration, ok bool) string {
	if !ok {
		return "no cache"
	}
	switch {
	case age < time.Minute:
		return formatUnit(int(age.Seconds()), "s")
	case age < time.Hour:
		return formatUnit(int(age.Minutes()), "m")
	default:
		return formatUnit(int(age.Hours()), "h")
	}
}

func formatUnit(n int, unit string) string {
	if n < 0 {
		n = 0
	}
	return strconv.Itoa(n) + unit + " ago"
}
