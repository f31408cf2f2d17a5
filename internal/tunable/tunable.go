// Package tunable manages named, overridable configuration scalars.
//
// Every consumer asks for a tunable by name together with its compiled-in
// default. The Config answers with an override when one was loaded, and
// records the default so a complete defaults file can be written after a
// representative run. A nil *Config answers every lookup with the default
// and ignores every setter.
package tunable

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
)

// Config holds tunable overrides and the defaults collected from lookups.
// It is safe for concurrent use.
type Config struct {
	mu            sync.Mutex
	overrides     map[string]any
	defaults      map[string]any
	forceDefaults bool
	log           logrus.FieldLogger
}

// New returns an empty Config that answers every lookup with its default.
func New() *Config {
	return &Config{
		overrides: make(map[string]any),
		defaults:  make(map[string]any),
		log:       discardLogger(),
	}
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// SetLogger sets the logger lookups are reported to at debug level.
func (c *Config) SetLogger(log logrus.FieldLogger) {
	if c == nil {
		return
	}
	if log == nil {
		log = discardLogger()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log = log
}

// SetOverrides replaces all overrides.
func (c *Config) SetOverrides(values map[string]any) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overrides = maps.Clone(values)
	if c.overrides == nil {
		c.overrides = make(map[string]any)
	}
}

// Set overrides a single tunable.
func (c *Config) Set(name string, value any) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overrides[name] = value
}

// SetForceDefaults makes every lookup ignore the overrides.
func (c *Config) SetForceDefaults(force bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forceDefaults = force
}

// Defaults returns the defaults of every tunable looked up so far.
func (c *Config) Defaults() map[string]any {
	if c == nil {
		return map[string]any{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.defaults)
}

// lookup records def and returns the override for name, if one applies.
func (c *Config) lookup(name string, def any) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.defaults[name] = def
	if c.forceDefaults {
		c.log.WithFields(logrus.Fields{"tunable": name, "value": def}).Debug("Getting tunable, forcing default")
		return nil, false
	}
	v, ok := c.overrides[name]
	if !ok {
		c.log.WithFields(logrus.Fields{"tunable": name, "value": def}).Debug("Getting tunable, using default")
		return nil, false
	}
	c.log.WithFields(logrus.Fields{"tunable": name, "value": v}).Debug("Getting tunable, using override")
	return v, true
}

func (c *Config) warnUnusable(name string, value any, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log.WithFields(logrus.Fields{"tunable": name, "value": value}).WithError(err).Warn("Ignoring unusable tunable override")
}

// Float returns the tunable name as a float64, or def.
func (c *Config) Float(name string, def float64) float64 {
	if c == nil {
		return def
	}
	v, ok := c.lookup(name, def)
	if !ok {
		return def
	}
	f, err := toFloat(v)
	if err != nil {
		c.warnUnusable(name, v, err)
		return def
	}
	return f
}

// Int returns the tunable name as an int, or def. Fractional overrides are
// truncated toward zero.
func (c *Config) Int(name string, def int) int {
	if c == nil {
		return def
	}
	v, ok := c.lookup(name, def)
	if !ok {
		return def
	}
	switch t := v.(type) {
	case string:
		i, err := strconv.Atoi(t)
		if err != nil {
			c.warnUnusable(name, v, err)
			return def
		}
		return i
	default:
		f, err := toFloat(v)
		if err != nil {
			c.warnUnusable(name, v, err)
			return def
		}
		return int(f)
	}
}

// Bool returns the tunable name as a bool, or def. Numeric overrides are
// true when non-zero; strings are parsed with strconv.ParseBool.
func (c *Config) Bool(name string, def bool) bool {
	if c == nil {
		return def
	}
	v, ok := c.lookup(name, def)
	if !ok {
		return def
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(t)
		if err != nil {
			c.warnUnusable(name, v, err)
			return def
		}
		return b
	default:
		f, err := toFloat(v)
		if err != nil {
			c.warnUnusable(name, v, err)
			return def
		}
		return f != 0
	}
}

// String returns the tunable name as a string, or def.
func (c *Config) String(name string, def string) string {
	if c == nil {
		return def
	}
	v, ok := c.lookup(name, def)
	if !ok {
		return def
	}
	if s, isString := v.(string); isString {
		return s
	}
	return fmt.Sprint(v)
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case json.Number:
		return t.Float64()
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case string:
		return strconv.ParseFloat(t, 64)
	default:
		return 0, fmt.Errorf("unsupported tunable value type %T", v)
	}
}

// maxFileSize bounds tunable files read by Load.
const maxFileSize = 1 * 1024 * 1024 // 1MB

// Load reads overrides from a JSON object of scalar values.
// The file must have a .json extension and be at most 1MB.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("tunables file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat tunables file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("tunables file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read tunables file: %w", err)
	}

	var values map[string]any
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse tunables JSON: %w", err)
	}
	for name, v := range values {
		switch v.(type) {
		case float64, bool, string:
		default:
			return nil, fmt.Errorf("tunable %q must be a number, bool or string, got %T", name, v)
		}
	}

	cfg := New()
	cfg.SetOverrides(values)
	return cfg, nil
}

// WriteDefaults writes the collected defaults as an indented JSON object
// with sorted keys.
func (c *Config) WriteDefaults(path string) error {
	data, err := json.MarshalIndent(c.Defaults(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode tunable defaults: %w", err)
	}
	if err := os.WriteFile(filepath.Clean(path), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write tunable defaults: %w", err)
	}
	return nil
}
