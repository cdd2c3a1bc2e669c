package manifest

// FileName is the manifest file the locator looks for.
const FileName = "plugin.yaml"

// Manifest is the on-disk shape of plugin.yaml.
type Manifest struct {
	Name         string         `yaml:"name"`
	Module       string         `yaml:"module"`
	Kind         string         `yaml:"kind,omitempty"`
	Description  string         `yaml:"description,omitempty"`
	Version      string         `yaml:"version,omitempty"`
	Runtime      *Runtime       `yaml:"runtime,omitempty"`
	Core         *Core          `yaml:"core,omitempty"`
	ConfigSchema map[string]any `yaml:"config_schema,omitempty"`
	Templates    string         `yaml:"templates,omitempty"`
}

// Runtime declares which plugin runtime generation the plugin targets.
type Runtime struct {
	Version string `yaml:"version"`
}

// Core declares the host versions the plugin supports.
type Core struct {
	MinVersion string `yaml:"min_version,omitempty"`
	MaxVersion string `yaml:"max_version,omitempty"`
}
