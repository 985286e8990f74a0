// Package config resolves the immutable runtime configuration from the TOML
// config store, the process environment and the built-in defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/arah-ai/arah/internal/adapters/driven/config/file"
	"github.com/arah-ai/arah/internal/core/domain"
	"github.com/arah-ai/arah/internal/core/ports/driven"
)

// Getenv looks up an environment variable. os.Getenv in production.
type Getenv func(key string) string

// LoadEnv loads .env files into the process environment. Variables already
// set win over file values; missing files are skipped.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load resolves the configuration. Precedence is environment, then store,
// then defaults. A nil store or getenv is skipped.
func Load(store driven.ConfigStore, getenv Getenv) (domain.Config, error) {
	cfg := domain.DefaultConfig()
	var errs []error
	for _, b := range bindings() {
		if store != nil {
			if v, ok := store.Get(b.key); ok {
				if !b.set(&cfg, v) {
					errs = append(errs, fmt.Errorf("%s: invalid value %v", b.key, v))
				}
			}
		}
		if getenv != nil && b.env != "" {
			if v := strings.TrimSpace(getenv(b.env)); v != "" {
				if !b.set(&cfg, v) {
					errs = append(errs, fmt.Errorf("%s: invalid value %q", b.env, v))
				}
			}
		}
	}
	if err := validate(cfg); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return cfg, fmt.Errorf("%w: %w", domain.ErrConfiguration, errors.Join(errs...))
	}
	return cfg, nil
}

// LoadDefault loads ~/.arah/config.toml (or path) plus .env and the environment.
func LoadDefault(path string) (domain.Config, *file.ConfigStore, error) {
	if err := LoadEnv(); err != nil {
		return domain.Config{}, nil, err
	}
	store, err := openStore(path)
	if err != nil {
		return domain.Config{}, nil, err
	}
	cfg, err := Load(store, os.Getenv)
	return cfg, store, err
}

func validate(cfg domain.Config) error {
	var errs []error
	if !cfg.Synthesis.Provider.IsValid() {
		errs = append(errs, fmt.Errorf("synthesis.provider: unknown provider %q (want one of %v)",
			cfg.Synthesis.Provider, domain.AllLLMProviders()))
	}
	if !slices.Contains([]string{"sqlite", "postgres", "milvus", "memory"}, cfg.Storage.Backend) {
		errs = append(errs, fmt.Errorf("storage.backend: unknown backend %q", cfg.Storage.Backend))
	}
	if !slices.Contains([]string{"memory", "redis"}, cfg.Cache.Backend) {
		errs = append(errs, fmt.Errorf("cache.backend: unknown backend %q", cfg.Cache.Backend))
	}
	if cfg.Retrieval.CanaryPct < 0 || cfg.Retrieval.CanaryPct > 100 {
		errs = append(errs, fmt.Errorf("retrieval.canary_pct: %d is outside 0..100", cfg.Retrieval.CanaryPct))
	}
	if _, err := time.LoadLocation(cfg.Analytics.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("analytics.timezone: %w", err))
	}
	return errors.Join(errs...)
}

// Entry is one resolved setting for display.
type Entry struct {
	Key   string
	Value string
}

// Describe lists every setting in key order with secrets masked.
func Describe(cfg domain.Config) []Entry {
	bs := bindings()
	out := make([]Entry, 0, len(bs))
	for _, b := range bs {
		v := fmt.Sprint(b.get(cfg))
		if b.secret {
			v = Mask(v)
		}
		out = append(out, Entry{Key: b.key, Value: v})
	}
	slices.SortFunc(out, func(a, b Entry) int { return strings.Compare(a.Key, b.Key) })
	return out
}

// Mask hides all but the last four characters of a secret.
func Mask(secret string) string {
	if secret == "" {
		return "(unset)"
	}
	r := []rune(secret)
	if len(r) <= 4 {
		return "****"
	}
	return "****" + string(r[len(r)-4:])
}

// IsKnownKey reports whether key is a recognised setting.
func IsKnownKey(key string) bool {
	_, ok := lookup(key)
	return ok
}

func lookup(key string) (binding, bool) {
	for _, b := range bindings() {
		if b.key == key {
			return b, true
		}
	}
	return binding{}, false
}

// Set checks value against key's type and the config rules, then persists it.
func Set(store driven.ConfigStore, key, value string) error {
	key = strings.TrimSpace(key)
	if !IsKnownKey(key) {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	b, _ := lookup(key)
	cfg := domain.DefaultConfig()
	if !b.set(&cfg, value) {
		return fmt.Errorf("%w: %s: invalid value %q", domain.ErrInvalidInput, key, value)
	}
	if err := validate(cfg); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	return store.Set(key, strings.TrimSpace(value))
}

// SetAt opens the config file at path, or ~/.arah/config.toml when empty,
// and sets key.
func SetAt(path, key, value string) error {
	store, err := openStore(path)
	if err != nil {
		return err
	}
	return Set(store, key, value)
}

func openStore(path string) (*file.ConfigStore, error) {
	if path != "" {
		return file.NewConfigStoreAt(path)
	}
	return file.NewConfigStore("")
}
