// TenantGuard - Tenant-Aware Authentication and Authorization for Go
// Copyright 2026 TenantGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tenantguard/tenantguard

// Package config loads the library's startup configuration: defaults
// first, then an optional YAML file, then environment variables, each
// layer overriding the previous one. The result is validated fail-fast;
// invalid or contradictory settings never reach traffic.
//
// Configuration is read once at startup and passed explicitly into the
// resolver, pipeline stages, and evaluation engine. There is no settings
// singleton and no hot reload.
package config

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"tenantguard.yaml",
	"tenantguard.yml",
	"/etc/tenantguard/config.yaml",
	"/etc/tenantguard/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "TENANTGUARD_CONFIG_PATH"

// envPrefix namespaces the environment layer: TENANTGUARD_RESOLVER_STRATEGY
// maps to resolver.strategy.
const envPrefix = "TENANTGUARD_"

// Config is the complete configuration surface.
type Config struct {
	Resolver ResolverConfig `koanf:"resolver"`
	Authz    AuthzConfig    `koanf:"authz"`
	Audit    AuditConfig    `koanf:"audit"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ResolverConfig selects and parameterizes the resolution strategy.
type ResolverConfig struct {
	// Strategy is one of "domain", "subdomain", "path", "header".
	Strategy string `koanf:"strategy"`

	// BaseDomain is required for the subdomain strategy.
	BaseDomain string `koanf:"base_domain"`

	// PathPattern is the regular expression for the path strategy; it
	// must carry a `tenant_slug` named capture group.
	PathPattern string `koanf:"path_pattern"`

	// HeaderName is the header consulted by the header strategy.
	HeaderName string `koanf:"header_name"`

	// ExemptPatterns are path regular expressions that skip resolution.
	ExemptPatterns []string `koanf:"exempt_patterns"`

	// OnFailure is one of "propagate" (strict, the default) and
	// "substitute_none" (lenient). A custom handler cannot be expressed
	// in configuration; install it through middleware.ResolveOptions.
	OnFailure string `koanf:"on_failure"`
}

// AuthzConfig parameterizes the evaluation engine.
type AuthzConfig struct {
	// SuperuserBypass lets superusers pass every permission check.
	SuperuserBypass bool `koanf:"superuser_bypass"`
}

// AuditConfig parameterizes the audit sink.
type AuditConfig struct {
	Enabled    bool `koanf:"enabled"`
	BufferSize int  `koanf:"buffer_size"`
}

// LoggingConfig parameterizes the zerolog setup.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns the configuration defaults: header strategy off the
// shelf is not assumed; the default mirrors the most common deployment
// (path-based resolution), strict failure policy, bypass and audit on.
func Default() *Config {
	return &Config{
		Resolver: ResolverConfig{
			Strategy:       "path",
			BaseDomain:     "",
			PathPattern:    `^/(?P<tenant_slug>[\w-]+)/`,
			HeaderName:     "X-Tenant-Slug",
			ExemptPatterns: nil,
			OnFailure:      "propagate",
		},
		Authz: AuthzConfig{
			SuperuserBypass: true,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, the first config file
// found (if any), and TENANTGUARD_* environment variables, then
// validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		return path
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps TENANTGUARD_RESOLVER_BASE_DOMAIN to
// resolver.base_domain. The first underscore separates the section; the
// rest of the key keeps its underscores.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	section, rest, found := strings.Cut(key, "_")
	if !found {
		return section
	}
	return section + "." + rest
}

var validStrategies = []string{"domain", "subdomain", "path", "header"}

// Validate checks the configuration for startup errors: unknown
// strategies, missing strategy parameters, uncompilable patterns.
func (c *Config) Validate() error {
	r := &c.Resolver

	if !slices.Contains(validStrategies, r.Strategy) {
		return fmt.Errorf("resolver.strategy must be one of %v, got %q", validStrategies, r.Strategy)
	}

	switch r.Strategy {
	case "subdomain":
		if r.BaseDomain == "" {
			return fmt.Errorf("resolver.base_domain is required for the subdomain strategy")
		}
	case "path":
		if r.PathPattern == "" {
			return fmt.Errorf("resolver.path_pattern is required for the path strategy")
		}
		pattern, err := regexp.Compile(r.PathPattern)
		if err != nil {
			return fmt.Errorf("resolver.path_pattern does not compile: %w", err)
		}
		if !slices.Contains(pattern.SubexpNames(), "tenant_slug") {
			return fmt.Errorf("resolver.path_pattern %q lacks the tenant_slug named group", r.PathPattern)
		}
	case "header":
		if r.HeaderName == "" {
			return fmt.Errorf("resolver.header_name is required for the header strategy")
		}
	}

	for _, p := range r.ExemptPatterns {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("resolver.exempt_patterns entry %q does not compile: %w", p, err)
		}
	}

	if r.OnFailure != "propagate" && r.OnFailure != "substitute_none" {
		return fmt.Errorf("resolver.on_failure must be \"propagate\" or \"substitute_none\", got %q", r.OnFailure)
	}

	if c.Audit.BufferSize < 0 {
		return fmt.Errorf("audit.buffer_size must not be negative")
	}
	return nil
}
