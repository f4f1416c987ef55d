package config

import (
	"os"
	"sort"

	"github.com/pmxdev/pmx/internal/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads the config file from dir. A missing file is not an error: it
// returns (nil, nil) so callers can distinguish "not configured" from a
// broken config.
func Load(dir string) (*Config, error) {
	path := FilePath(dir)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot access config file: "+path,
			"Check file permissions")
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file",
			"Check that "+path+" is valid YAML")
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML structure in "+path)
	}
	if cfg.Contexts == nil {
		cfg.Contexts = make(map[string]Context)
	}
	return cfg, nil
}

// Save writes the config file into dir with 0600 permissions, since it
// carries API token secrets. The directory is created if needed.
func Save(dir string, cfg *Config) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to create config directory",
			"Check permissions on "+dir)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to serialize config", "")
	}

	path := FilePath(dir)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to write config file",
			"Check disk space and permissions on "+path)
	}
	return nil
}

// IsConfigured reports whether at least one context exists with a current
// context selected.
func IsConfigured(dir string) bool {
	cfg, err := Load(dir)
	if err != nil || cfg == nil {
		return false
	}
	return cfg.CurrentContext != "" && len(cfg.Contexts) > 0
}

// Require loads the config and fails with a structured error when pmx has
// not been configured yet.
func Require(dir string) (*Config, error) {
	cfg, err := Load(dir)
	if err != nil {
		return nil, err
	}
	if cfg == nil || len(cfg.Contexts) == 0 {
		return nil, errors.NewNotConfigured()
	}
	return cfg, nil
}

// CurrentContext returns the active context and its name, or an error when
// none is selected.
func CurrentContext(dir string) (string, Context, error) {
	cfg, err := Require(dir)
	if err != nil {
		return "", Context{}, err
	}
	name := cfg.CurrentContext
	ctx, ok := cfg.Contexts[name]
	if !ok {
		return "", Context{}, errors.New(errors.ErrConfig,
			"No active context",
			"Select one with 'pmx ctx use <name>'")
	}
	return name, ctx, nil
}

// ContextNames returns the configured context names, sorted.
func ContextNames(cfg *Config) []string {
	names := make([]string, 0, len(cfg.Contexts))
	for name := range cfg.Contexts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddContext adds (or replaces) a named context. The first context added
// becomes the current one.
func AddContext(dir, name string, ctx Context) error {
	cfg, err := Load(dir)
	if err != nil {
		return err
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.Contexts[name] = ctx
	if cfg.CurrentContext == "" {
		cfg.CurrentContext = name
	}
	return Save(dir, cfg)
}

// RemoveContext deletes a named context. When the removed context was
// current, the first remaining context (sorted) becomes current.
func RemoveContext(dir, name string) error {
	cfg, err := Require(dir)
	if err != nil {
		return err
	}
	if _, ok := cfg.Contexts[name]; !ok {
		return errors.New(errors.ErrConfig,
			"Context not found: "+name,
			"List contexts with 'pmx ctx list'")
	}
	delete(cfg.Contexts, name)
	if cfg.CurrentContext == name {
		cfg.CurrentContext = ""
		if names := ContextNames(cfg); len(names) > 0 {
			cfg.CurrentContext = names[0]
		}
	}
	return Save(dir, cfg)
}

// UseContext switches the current context.
func UseContext(dir, name string) error {
	cfg, err := Require(dir)
	if err != nil {
		return err
	}
	if _, ok := cfg.Contexts[name]; !ok {
		return errors.New(errors.ErrConfig,
			"Context not found: "+name,
			"List contexts with 'pmx ctx list'")
	}
	cfg.CurrentContext = name
	return Save(dir, cfg)
}

// ContextExists reports whether a named context is configured.
func ContextExists(dir, name string) bool {
	cfg, err := Load(dir)
	if err != nil || cfg == nil {
		return false
	}
	_, ok := cfg.Contexts[name]
	return ok
}
