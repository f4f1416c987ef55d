package config

import (
	"fmt"
	"strings"

	"github.com/pmxdev/pmx/internal/errors"
)

// ValidateContextName checks that a context name is usable as a cache
// directory name and a CLI argument.
func ValidateContextName(name string) error {
	if name == "" {
		return errors.New(errors.ErrConfig,
			"Context name cannot be empty",
			"Pick a short name like 'prod' or 'lab'")
	}
	if strings.ContainsAny(name, "/\\ \t") {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Invalid context name %q", name),
			"Context names cannot contain slashes or whitespace")
	}
	return nil
}

// ValidateContext checks a context's connection settings.
func ValidateContext(ctx Context) error {
	if ctx.Host == "" {
		return errors.New(errors.ErrConfig,
			"Context host cannot be empty",
			"Set the cluster address, e.g. 192.168.1.100")
	}
	if ctx.Port <= 0 || ctx.Port > 65535 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Invalid API port %d", ctx.Port),
			"The API port must be between 1 and 65535 (default 8006)")
	}
	if !strings.Contains(ctx.User, "@") {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Invalid API user %q", ctx.User),
			"The user must include its realm, e.g. root@pam or automation@pve")
	}
	if ctx.TokenName == "" || ctx.TokenValue == "" {
		return errors.New(errors.ErrConfig,
			"API token is not set",
			"Create an API token in the cluster UI and set token_name/token_value")
	}
	return nil
}
