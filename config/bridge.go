// TenantGuard - Tenant-Aware Authentication and Authorization for Go
// Copyright 2026 TenantGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tenantguard/tenantguard

package config

import (
	"github.com/tenantguard/tenantguard/audit"
	"github.com/tenantguard/tenantguard/authz"
	"github.com/tenantguard/tenantguard/logging"
	"github.com/tenantguard/tenantguard/middleware"
	"github.com/tenantguard/tenantguard/resolver"
	"github.com/tenantguard/tenantguard/store"
)

// The methods below turn a validated Config into the runtime pieces, so
// hosts do not hand-map strings into the option structs of each package.

// NewResolver constructs the configured resolution strategy over the
// given tenant store.
func (c *Config) NewResolver(tenants store.TenantStore) (resolver.Resolver, error) {
	return resolver.New(resolver.Strategy(c.Resolver.Strategy), resolver.Options{
		BaseDomain:  c.Resolver.BaseDomain,
		PathPattern: c.Resolver.PathPattern,
		HeaderName:  c.Resolver.HeaderName,
	}, tenants)
}

// ResolveOptions maps the resolver section onto the resolution stage's
// options: exemption patterns and the failure policy. A custom failure
// handler cannot be expressed in configuration; set OnFailure and
// FailureHandler on the returned struct to install one.
func (c *Config) ResolveOptions(res resolver.Resolver, sink audit.Sink) middleware.ResolveOptions {
	action := middleware.FailPropagate
	if c.Resolver.OnFailure == "substitute_none" {
		action = middleware.FailSubstituteNone
	}
	return middleware.ResolveOptions{
		Resolver:       res,
		ExemptPatterns: c.Resolver.ExemptPatterns,
		OnFailure:      action,
		Audit:          sink,
	}
}

// AuthzOptions maps the authz section onto the engine's options.
func (c *Config) AuthzOptions(sink audit.Sink) authz.Options {
	return authz.Options{
		SuperuserBypass: c.Authz.SuperuserBypass,
		Audit:           sink,
	}
}

// AuditConfig maps the audit section onto the sink's configuration.
func (c *Config) AuditConfig() audit.Config {
	return audit.Config{
		Enabled:    c.Audit.Enabled,
		BufferSize: c.Audit.BufferSize,
	}
}

// LoggingConfig maps the logging section onto the logger's configuration.
func (c *Config) LoggingConfig() logging.Config {
	return logging.Config{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
	}
}
