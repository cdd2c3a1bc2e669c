package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/plugkeep/plugkeep/internal/plugin"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// configJSON renders cfg as indented JSON. A nil configuration is "{}".
func configJSON(cfg plugin.Config) ([]byte, error) {
	if cfg == nil {
		cfg = plugin.Config{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("marshaling configuration: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// queryConfig returns the value at a gjson path, or the whole document for
// an empty path. Strings are printed bare.
func queryConfig(cfg plugin.Config, path string) (string, error) {
	data, err := configJSON(cfg)
	if err != nil {
		return "", err
	}
	if path == "" {
		return string(data), nil
	}
	r := gjson.GetBytes(data, path)
	if !r.Exists() {
		return "", fmt.Errorf("no value at %q", path)
	}
	if r.Type == gjson.String {
		return r.String(), nil
	}
	return r.Raw, nil
}

// parseConfig decodes a whole configuration from JSON. "null" clears it.
func parseConfig(raw string) (plugin.Config, error) {
	if !gjson.Valid(raw) {
		return nil, errors.New("configuration is not valid JSON")
	}
	parsed := gjson.Parse(raw)
	if parsed.Type == gjson.Null {
		return nil, nil
	}
	if !parsed.IsObject() {
		return nil, errors.New("configuration must be a JSON object")
	}
	var cfg plugin.Config
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}
	return cfg, nil
}

// editConfig sets one sjson path of cfg. value is stored as raw JSON when
// it parses as JSON and as a string otherwise.
func editConfig(cfg plugin.Config, path, value string) (plugin.Config, error) {
	if path == "" {
		return nil, errors.New("an empty path cannot be set")
	}
	data, err := configJSON(cfg)
	if err != nil {
		return nil, err
	}
	if gjson.Valid(value) {
		data, err = sjson.SetRawBytes(data, path, []byte(value))
	} else {
		data, err = sjson.SetBytes(data, path, value)
	}
	if err != nil {
		return nil, fmt.Errorf("setting %q: %w", path, err)
	}
	return parseConfig(string(data))
}
