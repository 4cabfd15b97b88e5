// Package config loads the middleware's single INI configuration file.
//
// The loader keeps the teacher's viper-based shape (resolve a file, read it
// with viper, validate, fall back to defaults) generalized from the
// teacher's YAML/capture-agent schema down to the spec's one section and
// four options. Unlike the teacher's config, which is read once into a
// long-lived global, Load here returns a plain *Config value that callers
// pass explicitly to the endpoint constructors — there is no package-level
// "current config" to race on, and a Config obtained any way other than a
// successful Load reports itself as not loaded.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"middleware.otus.dev/mw/internal/core"
	"middleware.otus.dev/mw/internal/wire"
)

const (
	sectionName = "middleware_configuration"

	// DefaultMTU matches the teacher's own default network MTU.
	DefaultMTU = 1500
	// DefaultFragmentTimeoutSeconds is how long a partial datagram is kept
	// before AgeOut discards it.
	DefaultFragmentTimeoutSeconds = 10
	// DefaultCongestionAlgorithm names a congestion-control module present
	// on every mainline Linux kernel.
	DefaultCongestionAlgorithm = "cubic"
)

var allowedOptions = map[string]bool{
	"mtu":                  true,
	"fragment_timeout":     true,
	"congestion_algorithm": true,
	"echo_config_path":     true,
}

// Config holds the four options the middleware's INI file may set. A zero
// Config is not usable — obtain one from Load.
type Config struct {
	MTU                 int
	FragmentTimeout     int
	CongestionAlgorithm string
	EchoConfigPath      bool

	loaded bool
	path   string
}

// Loaded reports whether this Config came from a successful Load call.
// Endpoint constructors call this and fail with core.ErrConfigNotLoaded
// rather than silently running with zero values.
func (c *Config) Loaded() bool {
	return c != nil && c.loaded
}

// Load reads and validates the INI file at path. The only section it
// accepts is middleware_configuration, with no options besides mtu,
// fragment_timeout, congestion_algorithm, and echo_config_path; any other
// section, any unknown option, or a value that doesn't coerce to its
// option's type is rejected with core.ErrConfigInvalid. Options the file
// omits take their documented default; a file without the section loads
// with every option at its default.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("ini")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w: %v", path, core.ErrConfigInvalid, err)
	}

	settings := v.AllSettings()
	for name, raw := range settings {
		if !strings.EqualFold(name, sectionName) {
			return nil, fmt.Errorf("config: unknown section %q: %w", name, core.ErrConfigInvalid)
		}
		section, ok := raw.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("config: section %q is not a table: %w", name, core.ErrConfigInvalid)
		}
		for option := range section {
			if !allowedOptions[option] {
				return nil, fmt.Errorf("config: unknown option %q in section %q: %w", option, name, core.ErrConfigInvalid)
			}
		}
	}

	cfg := &Config{
		MTU:                 DefaultMTU,
		FragmentTimeout:     DefaultFragmentTimeoutSeconds,
		CongestionAlgorithm: DefaultCongestionAlgorithm,
	}

	sub := v.Sub(sectionName)
	if sub != nil {
		if sub.IsSet("mtu") {
			n, err := typedInt(sub, "mtu")
			if err != nil {
				return nil, err
			}
			cfg.MTU = n
		}
		if sub.IsSet("fragment_timeout") {
			n, err := typedInt(sub, "fragment_timeout")
			if err != nil {
				return nil, err
			}
			cfg.FragmentTimeout = n
		}
		if sub.IsSet("congestion_algorithm") {
			s, ok := sub.Get("congestion_algorithm").(string)
			if !ok {
				return nil, fmt.Errorf("config: congestion_algorithm must be a string: %w", core.ErrConfigInvalid)
			}
			cfg.CongestionAlgorithm = s
		}
		if sub.IsSet("echo_config_path") {
			b, err := typedBool(sub, "echo_config_path")
			if err != nil {
				return nil, err
			}
			cfg.EchoConfigPath = b
		}
	}

	if cfg.MTU < wire.MTUMin {
		return nil, fmt.Errorf("config: mtu %d below minimum %d: %w", cfg.MTU, wire.MTUMin, core.ErrConfigInvalid)
	}
	if cfg.FragmentTimeout <= 0 {
		return nil, fmt.Errorf("config: fragment_timeout must be positive, got %d: %w", cfg.FragmentTimeout, core.ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.CongestionAlgorithm) == "" {
		return nil, fmt.Errorf("config: congestion_algorithm must not be empty: %w", core.ErrConfigInvalid)
	}

	cfg.loaded = true
	cfg.path = path
	return cfg, nil
}

// typedInt reads key as an int, rejecting values viper would otherwise
// silently coerce to zero (e.g. the string "fast").
func typedInt(v *viper.Viper, key string) (int, error) {
	switch val := v.Get(key).(type) {
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case string:
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err != nil {
			return 0, fmt.Errorf("config: %s=%q is not an integer: %w", key, val, core.ErrConfigInvalid)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("config: %s has non-integer type %T: %w", key, val, core.ErrConfigInvalid)
	}
}

// typedBool reads key as a bool, rejecting anything that isn't one of the
// usual INI boolean spellings.
func typedBool(v *viper.Viper, key string) (bool, error) {
	switch val := v.Get(key).(type) {
	case bool:
		return val, nil
	case string:
		switch strings.ToLower(val) {
		case "true", "yes", "1", "on":
			return true, nil
		case "false", "no", "0", "off":
			return false, nil
		default:
			return false, fmt.Errorf("config: %s=%q is not a boolean: %w", key, val, core.ErrConfigInvalid)
		}
	default:
		return false, fmt.Errorf("config: %s has non-boolean type %T: %w", key, val, core.ErrConfigInvalid)
	}
}
