package config

import (
	"os"
	"path/filepath"
	"time"
)

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

const (
	// ConfigFileName is the config file name inside the pmx home directory.
	ConfigFileName = "config.yaml"
	// VMsFileName records the VMs created through pmx.
	VMsFileName = "vms.yaml"
	// CacheDirName is the cache directory inside the pmx home directory.
	CacheDirName = "cache"
	// ImagesDirName holds downloaded cloud images for template builds.
	ImagesDirName = "images"
)

// Config represents the complete pmx configuration file.
type Config struct {
	Version        int                `yaml:"version" mapstructure:"version"`
	CurrentContext string             `yaml:"current_context,omitempty" mapstructure:"current_context"`
	Contexts       map[string]Context `yaml:"contexts" mapstructure:"contexts"`

	// SSHPublicKeyPath is the default public key injected into created VMs.
	SSHPublicKeyPath string `yaml:"ssh_public_key_path,omitempty" mapstructure:"ssh_public_key_path"`

	// DefaultUser is the default cloud-init user for created VMs.
	DefaultUser string `yaml:"default_user,omitempty" mapstructure:"default_user"`

	// TemplateVMIDStart is the first VMID considered for template builds.
	TemplateVMIDStart int `yaml:"template_vmid_start,omitempty" mapstructure:"template_vmid_start"`
}

// Context defines one cluster endpoint and its API credentials.
type Context struct {
	// Host is the cluster API address (hostname or IP).
	Host string `yaml:"host" mapstructure:"host"`

	// Port is the cluster API port.
	Port int `yaml:"port" mapstructure:"port"`

	// User is the API user, e.g. root@pam or automation@pve.
	User string `yaml:"user" mapstructure:"user"`

	// TokenName and TokenValue form the API token credential.
	TokenName  string `yaml:"token_name" mapstructure:"token_name"`
	TokenValue string `yaml:"token_value" mapstructure:"token_value"`

	// VerifySSL controls TLS certificate verification for the API endpoint.
	VerifySSL bool `yaml:"verify_ssl" mapstructure:"verify_ssl"`

	// DefaultNode is the node used when a command does not specify one.
	DefaultNode string `yaml:"default_node,omitempty" mapstructure:"default_node"`

	// DefaultStorage is the storage used for new VM disks.
	DefaultStorage string `yaml:"default_storage,omitempty" mapstructure:"default_storage"`

	// CreatedAt records when this context was added.
	CreatedAt string `yaml:"created_at,omitempty" mapstructure:"created_at"`
}

// CreatedVM records a VM created through pmx, used for ssh config generation.
type CreatedVM struct {
	VMID             int    `yaml:"vmid" mapstructure:"vmid"`
	Name             string `yaml:"name" mapstructure:"name"`
	Node             string `yaml:"node" mapstructure:"node"`
	User             string `yaml:"user" mapstructure:"user"`
	SSHPublicKeyPath string `yaml:"ssh_public_key_path,omitempty" mapstructure:"ssh_public_key_path"`
	IP               string `yaml:"ip,omitempty" mapstructure:"ip"`
	CreatedAt        string `yaml:"created_at,omitempty" mapstructure:"created_at"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version:           CurrentConfigVersion,
		Contexts:          make(map[string]Context),
		SSHPublicKeyPath:  "~/.ssh/id_rsa.pub",
		DefaultUser:       "ubuntu",
		TemplateVMIDStart: 9000,
	}
}

// NewContext creates a Context with defaults applied and CreatedAt stamped.
func NewContext(host, user, tokenName, tokenValue string) Context {
	return Context{
		Host:           host,
		Port:           8006,
		User:           user,
		TokenName:      tokenName,
		TokenValue:     tokenValue,
		VerifySSL:      false,
		DefaultStorage: "local-lvm",
		CreatedAt:      time.Now().Format(time.RFC3339),
	}
}

// Home returns the pmx home directory: $PMX_HOME when set, otherwise ~/.pmx.
// The directory is not created by this function.
func Home() string {
	if dir := os.Getenv("PMX_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pmx"
	}
	return filepath.Join(home, ".pmx")
}

// FilePath returns the config file path inside dir.
func FilePath(dir string) string {
	return filepath.Join(dir, ConfigFileName)
}

// VMsFilePath returns the created-VMs registry path inside dir.
func VMsFilePath(dir string) string {
	return filepath.Join(dir, VMsFileName)
}

// CacheDir returns the cache root inside dir.
func CacheDir(dir string) string {
	return filepath.Join(dir, CacheDirName)
}

// ImagesDir returns the cloud image cache inside dir.
func ImagesDir(dir string) string {
	return filepath.Join(dir, ImagesDirName)
}
