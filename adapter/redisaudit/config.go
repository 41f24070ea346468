package redisaudit

import (
	"fmt"
	"time"
)

// Config for the Redis audit probe.
type Config struct {
	// Connection
	Addr          string
	Username      string
	Password      string
	DB            int
	TLS           bool
	TLSServerName string

	// Stream management
	Stream       string
	MaxLenApprox int64
	Timeout      time.Duration

	// Types restricts recording to these signal types; empty records all.
	Types []string

	// Async delivery through the bus probe pool; Workers 0 writes inline.
	Workers    int
	BufferSize int
}

// Defaults returns a Config with production-safe defaults.
func Defaults() Config {
	return Config{
		Addr:         "127.0.0.1:6379",
		Stream:       "xhermes:audit",
		MaxLenApprox: 100_000,
		Timeout:      2 * time.Second,
		Workers:      2,
		BufferSize:   1024,
	}
}

// Validate checks Config for obvious mistakes.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("config: addr required")
	}
	if c.Stream == "" {
		return fmt.Errorf("config: stream required")
	}
	if c.MaxLenApprox < 0 {
		return fmt.Errorf("config: max_len_approx must be >= 0, got %d", c.MaxLenApprox)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("config: timeout must be > 0, got %v", c.Timeout)
	}
	if c.Workers < 0 {
		return fmt.Errorf("config: workers must be >= 0, got %d", c.Workers)
	}
	return nil
}

// withDefaults fills zero fields from Defaults.
func (c Config) withDefaults() Config {
	d := Defaults()
	if c.Addr == "" {
		c.Addr = d.Addr
	}
	if c.Stream == "" {
		c.Stream = d.Stream
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.BufferSize <= 0 {
		c.BufferSize = d.BufferSize
	}
	return c
}

// toMap converts Config to a generic map (the inverse of ConfigFromMap).
func (c Config) toMap() map[string]any {
	return map[string]any{
		"addr":            c.Addr,
		"username":        c.Username,
		"password":        c.Password,
		"db":              c.DB,
		"tls":             c.TLS,
		"tls_server_name": c.TLSServerName,
		"stream":          c.Stream,
		"max_len_approx":  c.MaxLenApprox,
		"timeout":         c.Timeout,
		"types":           c.Types,
		"workers":         c.Workers,
		"buffer_size":     c.BufferSize,
	}
}

// ConfigFromMap safely converts a generic map to Config with defaults.
func ConfigFromMap(m map[string]any) Config {
	c := Defaults()

	if v, ok := m["addr"].(string); ok && v != "" {
		c.Addr = v
	}
	if v, ok := m["username"].(string); ok {
		c.Username = v
	}
	if v, ok := m["password"].(string); ok {
		c.Password = v
	}
	if v, ok := m["db"].(int); ok {
		c.DB = v
	}
	if v, ok := m["tls"].(bool); ok {
		c.TLS = v
	}
	if v, ok := m["tls_server_name"].(string); ok {
		c.TLSServerName = v
	}
	if v, ok := m["stream"].(string); ok && v != "" {
		c.Stream = v
	}
	switch v := m["max_len_approx"].(type) {
	case int64:
		c.MaxLenApprox = max(0, v)
	case int:
		c.MaxLenApprox = int64(max(0, v))
	}
	switch v := m["timeout"].(type) {
	case time.Duration:
		if v > 0 {
			c.Timeout = v
		}
	case string:
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.Timeout = d
		}
	}
	switch v := m["types"].(type) {
	case []string:
		c.Types = append([]string(nil), v...)
	case []any:
		for _, t := range v {
			if s, ok := t.(string); ok && s != "" {
				c.Types = append(c.Types, s)
			}
		}
	}
	if v, ok := m["workers"].(int); ok && v >= 0 {
		c.Workers = v
	}
	if v, ok := m["buffer_size"].(int); ok && v > 0 {
		c.BufferSize = v
	}

	return c
}
