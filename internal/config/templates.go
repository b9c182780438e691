package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const templateHeader = `# schemactl configuration
#
# store.driver: memory | sqlite | mongo (mongo reads MONGODB_URI when dsn is empty)
# ratelimit.backend: memory | redis; per-route limits are requests per window, 0 disables
# auth.tokens maps bearer tokens to user ids; replace the sample token before deploying
# schemas.patch_validation: typed-only | merged
`

// TemplateConfig is the config written by `schemactl config init`.
func TemplateConfig() Config {
	cfg := DefaultConfig()
	cfg.Auth.Tokens = map[string]string{"change-me": "dev-user"}
	return cfg
}

// Template renders TemplateConfig in the named format ("toml" or "yaml").
func Template(format string) (string, error) {
	cfg := TemplateConfig()
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "toml":
		body, err := toml.Marshal(cfg)
		if err != nil {
			return "", fmt.Errorf("render toml template: %w", err)
		}
		return templateHeader + "\n" + string(body), nil
	case "yaml", "yml":
		body, err := yaml.Marshal(cfg)
		if err != nil {
			return "", fmt.Errorf("render yaml template: %w", err)
		}
		return templateHeader + "\n" + string(body), nil
	default:
		return "", fmt.Errorf("unknown config format: %s", format)
	}
}

func WriteTemplate(path, format string, overwrite bool) error {
	template, err := Template(format)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}
