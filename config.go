package xhermes

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the file/map form of the builder settings.
type Config struct {
	// ReservedNames are extra busline names to reject on top of the API names.
	ReservedNames []string `yaml:"reservedNames"`
	// BaseDir resolves relative paths given to LoadSubscribers.
	BaseDir string `yaml:"baseDir"`
	// ProbePool enables async probe delivery when Workers > 0.
	ProbePool ProbePoolConfig `yaml:"probePool"`
	// LogInvocations adds LoggingMiddleware around every observer.
	LogInvocations bool `yaml:"logInvocations"`
}

// ProbePoolConfig sizes the async probe pool.
type ProbePoolConfig struct {
	Workers    int `yaml:"workers"`
	BufferSize int `yaml:"bufferSize"`
}

// Validate checks Config for obvious mistakes.
func (c Config) Validate() error {
	for _, n := range c.ReservedNames {
		if n == "" {
			return fmt.Errorf("config: reservedNames must not contain empty names")
		}
	}
	if c.ProbePool.Workers < 0 {
		return fmt.Errorf("config: probePool.workers must be >= 0, got %d", c.ProbePool.Workers)
	}
	if c.ProbePool.BufferSize < 0 {
		return fmt.Errorf("config: probePool.bufferSize must be >= 0, got %d", c.ProbePool.BufferSize)
	}
	return nil
}

// DecodeConfig reads a YAML document into Config.
func DecodeConfig(r io.Reader) (Config, error) {
	var c Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()
	return DecodeConfig(f)
}

// ConfigFromMap safely converts a generic map to Config.
func ConfigFromMap(m map[string]any) Config {
	getInt := func(k string) int {
		switch v := m[k].(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		default:
			return 0
		}
	}

	var c Config
	switch v := m["reserved_names"].(type) {
	case []string:
		c.ReservedNames = append(c.ReservedNames, v...)
	case []any:
		for _, n := range v {
			if s, ok := n.(string); ok && s != "" {
				c.ReservedNames = append(c.ReservedNames, s)
			}
		}
	}
	if v, ok := m["base_dir"].(string); ok {
		c.BaseDir = v
	}
	if v, ok := m["log_invocations"].(bool); ok {
		c.LogInvocations = v
	}
	c.ProbePool.Workers = max(0, getInt("probe_workers"))
	c.ProbePool.BufferSize = max(0, getInt("probe_buffer_size"))
	return c
}
