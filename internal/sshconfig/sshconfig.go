// Package sshconfig generates and merges SSH client config entries for
// VMs created through pmx, so a fresh VM is reachable as 'ssh <name>'
// right after creation.
package sshconfig

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kevinburke/ssh_config"
	"github.com/pmxdev/pmx/internal/errors"
)

// Entry is one Host block destined for ~/.ssh/config.
type Entry struct {
	Alias        string
	HostName     string
	User         string
	IdentityFile string
	Port         int
}

// DefaultPath returns the user's SSH client config path.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ssh", "config")
}

// Render formats entries as SSH config Host blocks.
func Render(entries []Entry) string {
	var sb strings.Builder
	for i, e := range entries {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("Host %s\n", e.Alias))
		sb.WriteString(fmt.Sprintf("    HostName %s\n", e.HostName))
		if e.User != "" {
			sb.WriteString(fmt.Sprintf("    User %s\n", e.User))
		}
		if e.Port != 0 && e.Port != 22 {
			sb.WriteString(fmt.Sprintf("    Port %d\n", e.Port))
		}
		if e.IdentityFile != "" {
			sb.WriteString(fmt.Sprintf("    IdentityFile %s\n", e.IdentityFile))
		}
	}
	return sb.String()
}

// ExistingAliases parses an SSH config file and returns the concrete host
// aliases it defines. Wildcard patterns are skipped. A missing file is not
// an error.
func ExistingAliases(path string) (map[string]bool, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]bool{}, nil
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot read SSH config", "Check permissions on "+path)
	}

	cfg, err := ssh_config.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot parse SSH config", "Check the syntax of "+path)
	}

	aliases := make(map[string]bool)
	for _, host := range cfg.Hosts {
		for _, pattern := range host.Patterns {
			alias := pattern.String()
			if strings.ContainsAny(alias, "*?") {
				continue
			}
			aliases[alias] = true
		}
	}
	return aliases, nil
}

// Merge appends Host blocks for entries whose alias is not already present
// in the config file, creating the file when needed. Returns the aliases
// that were added, sorted.
func Merge(path string, entries []Entry) ([]string, error) {
	existing, err := ExistingAliases(path)
	if err != nil {
		return nil, err
	}

	var fresh []Entry
	for _, e := range entries {
		if !existing[e.Alias] {
			fresh = append(fresh, e)
		}
	}
	if len(fresh) == 0 {
		return nil, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot create SSH config directory", "")
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot open SSH config for writing", "Check permissions on "+path)
	}
	defer f.Close()

	block := Render(fresh)
	prefix := "\n"
	if info, err := f.Stat(); err == nil && info.Size() == 0 {
		prefix = ""
	}
	if _, err := f.WriteString(prefix + block); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to update SSH config", "")
	}

	added := make([]string, 0, len(fresh))
	for _, e := range fresh {
		added = append(added, e.Alias)
	}
	sort.Strings(added)
	return added, nil
}
