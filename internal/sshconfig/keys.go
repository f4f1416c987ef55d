package sshconfig

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pmxdev/pmx/internal/errors"
	"golang.org/x/crypto/ssh"
)

// ReadPublicKey reads and validates an SSH public key file, returning the
// authorized_keys line ready to hand to cloud-init.
func ReadPublicKey(path string) (string, error) {
	data, err := os.ReadFile(expandHome(path))
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot read SSH public key: "+path,
			"Generate one with 'ssh-keygen -t ed25519'")
	}

	line := strings.TrimSpace(string(data))
	if _, _, _, _, err := ssh.ParseAuthorizedKey([]byte(line)); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"File does not contain a valid SSH public key: "+path,
			"Expected an authorized_keys format line (e.g. 'ssh-ed25519 AAAA... user@host')")
	}
	return line, nil
}

// FindDefaultPublicKey returns the first default public key found under
// ~/.ssh, preferring newer key types.
func FindDefaultPublicKey() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	candidates := []string{"id_ed25519.pub", "id_ecdsa.pub", "id_rsa.pub"}
	for _, name := range candidates {
		path := filepath.Join(home, ".ssh", name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// expandHome resolves a leading ~/ against the user's home directory.
func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
