// Package config manages user-level settings stored at ~/.plugkeep/config.yaml.
// Every setting can be overridden through a PLUGKEEP_-prefixed environment
// variable; nested keys use underscores (PLUGKEEP_DEPS_SCOPE).
package config
