package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Save writes the config to path atomically, creating parent directories.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	data = append(data, '\n')
	return writeFileAtomic(path, data)
}

// ToMap converts the config struct to a nested map keyed by JSON tags.
func ToMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// ListValues returns the config as a flat dot-keyed map, with secrets
// masked when mask is true.
func ListValues(cfg *Config, mask bool) (map[string]any, error) {
	m, err := ToMap(cfg)
	if err != nil {
		return nil, err
	}
	flat := Flatten(m)
	if mask {
		flat = MaskSecrets(flat)
	}
	return flat, nil
}

// GetValue reads a single dot-keyed value from the config file, creating
// the file with defaults first if it does not exist.
func GetValue(path, key string) (any, error) {
	if _, err := Load(path); err != nil {
		return nil, err
	}
	flat, err := readFlat(path)
	if err != nil {
		return nil, err
	}
	v, ok := flat[key]
	if !ok {
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
	return v, nil
}

// SetValue updates a single dot-keyed value in the config file. The value
// is parsed as JSON when possible (numbers, booleans), otherwise stored as
// a string. The file must already exist.
func SetValue(path, key, value string) error {
	flat, err := readFlat(path)
	if err != nil {
		return err
	}

	var parsed any
	if err := json.Unmarshal([]byte(value), &parsed); err != nil {
		parsed = value
	}
	flat[key] = parsed

	return writeFlat(path, flat)
}

// UnsetValue removes a dot-keyed value from the config file so the
// built-in default applies on the next load.
func UnsetValue(path, key string) error {
	flat, err := readFlat(path)
	if err != nil {
		return err
	}
	if _, ok := flat[key]; !ok {
		return fmt.Errorf("unknown config key: %s", key)
	}
	delete(flat, key)
	return writeFlat(path, flat)
}

func readFlat(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return Flatten(m), nil
}

func writeFlat(path string, flat map[string]any) error {
	nested := Unflatten(flat)
	data, err := json.MarshalIndent(nested, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	data = append(data, '\n')
	return writeFileAtomic(path, data)
}

func writeFileAtomic(path string, data []byte) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}
