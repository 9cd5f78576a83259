package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig holds the parsed YAML config file. It provides the default
// layer beneath the environment: every accessor returns the file's value
// when present and the built-in default otherwise.
type fileConfig struct {
	values map[string]any
}

// loadFileConfig reads and parses the YAML file at path. An empty path
// yields an empty layer.
func loadFileConfig(path string) (*fileConfig, error) {
	fc := &fileConfig{values: map[string]any{}}
	if path == "" {
		return fc, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &fc.values); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return fc, nil
}

func (f *fileConfig) lookupStr(key string) (string, bool) {
	v, ok := f.values[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (f *fileConfig) str(key, defaultVal string) string {
	if s, ok := f.lookupStr(key); ok {
		return s
	}
	return defaultVal
}

func (f *fileConfig) integer(key string, defaultVal int) int {
	if v, ok := f.values[key]; ok {
		if n, ok := v.(int); ok {
			return n
		}
	}
	return defaultVal
}

func (f *fileConfig) boolean(key string, defaultVal bool) bool {
	if v, ok := f.values[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return defaultVal
}

func (f *fileConfig) duration(key string, defaultVal time.Duration) time.Duration {
	if s, ok := f.lookupStr(key); ok {
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
	}
	return defaultVal
}
