package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/plugkeep/plugkeep/internal/branding"
	"github.com/spf13/viper"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Setting keys. Nested keys map to PLUGKEEP_DEPS_SCOPE and friends through
// the env key replacer installed by Load.
const (
	KeyDataDir            = "data_dir"
	KeyCorePluginDir      = "core_plugin_dir"
	KeyExtraPluginDirs    = "extra_plugin_dirs"
	KeyAutoInstallDeps    = "autoinstall_deps"
	KeyDepsScope          = "deps.scope"
	KeyDepsProbeCommand   = "deps.probe_command"
	KeyDepsInstallCommand = "deps.install_command"
	KeyDepsTimeout        = "deps.timeout"
	KeyInstallTimeout     = "install.timeout"
	KeyHostVersion        = "host.version"
	KeyRuntimeMajor       = "host.runtime_major"
	KeyKnownReposFile     = "known_repos_file"
	KeyLogLevel           = "log.level"
	KeyCommandPrefix      = "command_prefix"
)

// Settings is the typed view of the configuration the manager is built from.
type Settings struct {
	DataDir            string
	CorePluginDir      string
	ExtraPluginDirs    []string
	AutoInstallDeps    bool
	DepsScope          string
	DepsProbeCommand   []string
	DepsInstallCommand []string
	DepsTimeout        time.Duration
	InstallTimeout     time.Duration
	HostVersion        string
	RuntimeMajor       int
	KnownReposFile     string
	LogLevel           string
	CommandPrefix      string
}

// PluginDir is where repositories are cloned or extracted.
func (s Settings) PluginDir() string {
	return filepath.Join(s.DataDir, "plugins")
}

// CoreDir is the directory holding the manifests of compiled-in plugins.
func (s Settings) CoreDir() string {
	if s.CorePluginDir != "" {
		return s.CorePluginDir
	}
	return filepath.Join(s.DataDir, "core")
}

// StorePath is the persistent store document.
func (s Settings) StorePath() string {
	return filepath.Join(s.DataDir, "core.yaml")
}

// Dir returns the path to the config directory: $PLUGKEEP_HOME when set,
// otherwise ~/.plugkeep/.
func Dir() string {
	if dir := os.Getenv(branding.EnvVar("HOME")); dir != "" {
		return expandHome(dir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.plugkeep/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// SetDefaults registers the default value of every setting on v.
func SetDefaults(v *viper.Viper, hostVersion string) {
	v.SetDefault(KeyDataDir, filepath.Join(Dir(), "data"))
	v.SetDefault(KeyCorePluginDir, "")
	v.SetDefault(KeyExtraPluginDirs, []string{})
	v.SetDefault(KeyAutoInstallDeps, false)
	v.SetDefault(KeyDepsScope, "user")
	v.SetDefault(KeyDepsProbeCommand, []string{"luarocks", "show"})
	v.SetDefault(KeyDepsInstallCommand, []string{"luarocks", "install"})
	v.SetDefault(KeyDepsTimeout, 2*time.Minute)
	v.SetDefault(KeyInstallTimeout, 5*time.Minute)
	v.SetDefault(KeyHostVersion, hostVersion)
	v.SetDefault(KeyRuntimeMajor, 3)
	v.SetDefault(KeyKnownReposFile, "")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyCommandPrefix, "!")
}

// Load initializes Viper to read from the config file and environment.
func Load(hostVersion string) {
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()
	SetDefaults(viper.GetViper(), hostVersion)

	// Ignore error if config file doesn't exist yet.
	_ = viper.ReadInConfig()
}

// Current returns the settings held by the global Viper instance.
func Current() Settings {
	return FromViper(viper.GetViper())
}

// FromViper reads Settings out of v. Defaults must already be registered.
func FromViper(v *viper.Viper) Settings {
	return Settings{
		DataDir:            expandHome(v.GetString(KeyDataDir)),
		CorePluginDir:      expandHome(v.GetString(KeyCorePluginDir)),
		ExtraPluginDirs:    expandAll(v.GetStringSlice(KeyExtraPluginDirs)),
		AutoInstallDeps:    v.GetBool(KeyAutoInstallDeps),
		DepsScope:          v.GetString(KeyDepsScope),
		DepsProbeCommand:   v.GetStringSlice(KeyDepsProbeCommand),
		DepsInstallCommand: v.GetStringSlice(KeyDepsInstallCommand),
		DepsTimeout:        v.GetDuration(KeyDepsTimeout),
		InstallTimeout:     v.GetDuration(KeyInstallTimeout),
		HostVersion:        v.GetString(KeyHostVersion),
		RuntimeMajor:       v.GetInt(KeyRuntimeMajor),
		KnownReposFile:     expandHome(v.GetString(KeyKnownReposFile)),
		LogLevel:           v.GetString(KeyLogLevel),
		CommandPrefix:      v.GetString(KeyCommandPrefix),
	}
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// Set writes a config key-value pair and saves the config file.
func Set(key, value string) error {
	if err := EnsureDir(); err != nil {
		return err
	}

	viper.Set(key, value)

	configFile := FilePath()

	// Create the file if it doesn't exist.
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
