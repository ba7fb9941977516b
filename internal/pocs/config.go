package pocs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	DefaultConfigName = "pocs"
	DefaultEnvPrefix  = "PANOPTES_CFG_"
)

var ErrConfigNotFound = errors.New("pocs: config file not found")

type LoadOptions struct {
	// Names are loaded in order; each may be followed by <name>_local.yaml.
	Names       []string
	IgnoreLocal bool
	Simulators  []string
	EnvPrefix   string
}

// Config is the POCS configuration. It is never mutated after LoadConfig returns.
type Config struct {
	k *koanf.Koanf
}

func LoadConfig(confDir string, opts LoadOptions) (*Config, error) {
	names := opts.Names
	if len(names) == 0 {
		names = []string{DefaultConfigName}
	}
	prefix := opts.EnvPrefix
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}

	k := koanf.New(".")
	for _, name := range names {
		name = strings.TrimSuffix(strings.TrimSpace(name), ".yaml")
		if name == "" {
			continue
		}

		path := filepath.Join(confDir, name+".yaml")
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("pocs: load %s: %w", path, err)
		}

		if opts.IgnoreLocal {
			continue
		}
		local := filepath.Join(confDir, name+"_local.yaml")
		if _, err := os.Stat(local); err != nil {
			continue
		}
		if err := k.Load(file.Provider(local), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("pocs: load %s: %w", local, err)
		}
	}

	// PANOPTES_CFG_LOCATION__NAME -> location.name
	envProvider := env.Provider(prefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, prefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("pocs: load env: %w", err)
	}

	if len(opts.Simulators) > 0 {
		sims := make([]string, 0, len(opts.Simulators))
		for _, s := range opts.Simulators {
			if s = strings.TrimSpace(s); s != "" {
				sims = append(sims, s)
			}
		}
		if err := k.Load(confmap.Provider(map[string]any{"simulator": sims}, "."), nil); err != nil {
			return nil, fmt.Errorf("pocs: load simulators: %w", err)
		}
	}

	if dirs := resolveDirectories(k); len(dirs) > 0 {
		if err := k.Load(confmap.Provider(map[string]any{"directories": dirs}, "."), nil); err != nil {
			return nil, fmt.Errorf("pocs: resolve directories: %w", err)
		}
	}

	return &Config{k: k}, nil
}

// resolveDirectories joins relative directories.* entries onto directories.base.
func resolveDirectories(k *koanf.Koanf) map[string]any {
	base := strings.TrimSpace(k.String("directories.base"))
	if base == "" {
		return nil
	}
	out := map[string]any{}
	for name, dir := range k.StringMap("directories") {
		if name == "base" || dir == "" || filepath.IsAbs(dir) {
			continue
		}
		out[name] = filepath.Join(base, dir)
	}
	return out
}

func (c *Config) Get(key string) any { return c.k.Get(key) }

func (c *Config) String(key string) string { return c.k.String(key) }

func (c *Config) Int(key string) int { return c.k.Int(key) }

func (c *Config) Bool(key string) bool { return c.k.Bool(key) }

func (c *Config) Strings(key string) []string { return c.k.Strings(key) }

func (c *Config) Exists(key string) bool { return c.k.Exists(key) }

func (c *Config) Keys() []string { return c.k.Keys() }

// All returns a copy of the nested configuration map.
func (c *Config) All() map[string]any { return c.k.Raw() }

// Maps returns the list-of-mappings stored at key, skipping non-map items.
func (c *Config) Maps(key string) []map[string]any {
	items, ok := c.k.Get(key).([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
