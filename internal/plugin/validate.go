package plugin

import (
	"github.com/plugkeep/plugkeep/internal/schema"
)

// ValidateConfig checks cfg against the descriptor's declared configuration
// schema. Without a schema, or without a configuration, cfg is returned
// unchanged. A violation is a *ConfigurationError carrying the validator's
// messages; the caller must then treat the plugin's configuration as cleared.
func ValidateConfig(desc *Descriptor, cfg Config) (Config, error) {
	if desc.ConfigSchema == nil || cfg == nil {
		return cfg, nil
	}

	sch, err := schema.Compile("plugkeep://"+desc.Name+"/config.schema.json", desc.ConfigSchema)
	if err != nil {
		return nil, &ConfigurationError{Plugin: desc.Name, Err: err}
	}

	issues, err := schema.Validate(sch, map[string]any(cfg))
	if err != nil {
		return nil, &ConfigurationError{Plugin: desc.Name, Err: err}
	}
	if len(issues) > 0 {
		return nil, &ConfigurationError{Plugin: desc.Name, Issues: schema.Messages(issues)}
	}
	return cfg, nil
}
