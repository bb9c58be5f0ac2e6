// TenantGuard - Tenant-Aware Authentication and Authorization for Go
// Copyright 2026 TenantGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tenantguard/tenantguard

// Package resolver maps an inbound HTTP request to a validated, active
// tenant under one of four strategies: domain, subdomain, path, or header.
//
// The strategies differ only in how they extract an identifier from the
// request; the lookup and activity check are shared so the security-relevant
// validation cannot drift between strategies. Exactly one strategy is active
// per deployment, selected by configuration and constructed once at startup.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"slices"
	"strings"

	"github.com/tenantguard/tenantguard/models"
	"github.com/tenantguard/tenantguard/store"
)

// Strategy selects how the tenant identifier is extracted from a request.
type Strategy string

const (
	// StrategyDomain matches the request host against Tenant.Domain.
	StrategyDomain Strategy = "domain"

	// StrategySubdomain extracts the leftmost subdomain label under a
	// configured base domain and treats it as the tenant slug.
	StrategySubdomain Strategy = "subdomain"

	// StrategyPath extracts the slug from the URL path with a configured
	// regular expression carrying a `tenant_slug` named group.
	StrategyPath Strategy = "path"

	// StrategyHeader reads the slug from a configured HTTP header.
	StrategyHeader Strategy = "header"
)

// SlugGroup is the named capture group the path pattern must define.
const SlugGroup = "tenant_slug"

// Resolver converts a request into a validated, active tenant.
//
// Resolve returns *TenantNotFoundError when the identifier matches no
// tenant (or no identifier could be extracted), *TenantInactiveError when
// the matched tenant is deactivated, and wraps store errors otherwise.
type Resolver interface {
	Resolve(ctx context.Context, r *http.Request) (*models.Tenant, error)
}

// Options carries the strategy-specific settings. Only the field for the
// selected strategy is consulted.
type Options struct {
	// BaseDomain is required for StrategySubdomain (e.g. "example.com").
	BaseDomain string

	// PathPattern is required for StrategyPath; a regular expression with
	// a `tenant_slug` named capture group.
	PathPattern string

	// HeaderName is required for StrategyHeader (e.g. "X-Tenant-Slug").
	HeaderName string
}

// New constructs the resolver for the given strategy. Patterns are
// compiled here, once, never per request.
func New(strategy Strategy, opts Options, tenants store.TenantStore) (Resolver, error) {
	switch strategy {
	case StrategyDomain:
		return &DomainResolver{tenants: tenants}, nil
	case StrategySubdomain:
		if opts.BaseDomain == "" {
			return nil, errors.New("resolver: base domain is required for subdomain strategy")
		}
		return &SubdomainResolver{
			tenants:    tenants,
			baseDomain: strings.ToLower(opts.BaseDomain),
		}, nil
	case StrategyPath:
		if opts.PathPattern == "" {
			return nil, errors.New("resolver: path pattern is required for path strategy")
		}
		pattern, err := regexp.Compile(opts.PathPattern)
		if err != nil {
			return nil, fmt.Errorf("resolver: compile path pattern: %w", err)
		}
		if !slices.Contains(pattern.SubexpNames(), SlugGroup) {
			return nil, fmt.Errorf("resolver: path pattern %q lacks the %q named group", opts.PathPattern, SlugGroup)
		}
		return &PathResolver{tenants: tenants, pattern: pattern}, nil
	case StrategyHeader:
		if opts.HeaderName == "" {
			return nil, errors.New("resolver: header name is required for header strategy")
		}
		return &HeaderResolver{tenants: tenants, header: opts.HeaderName}, nil
	default:
		return nil, fmt.Errorf("resolver: unknown strategy %q", strategy)
	}
}

// lookupBySlug is the shared post-extraction step for slug-based
// strategies: case-insensitive lookup plus the activity check.
func lookupBySlug(ctx context.Context, tenants store.TenantStore, slug string) (*models.Tenant, error) {
	t, err := tenants.TenantBySlug(ctx, strings.ToLower(slug))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &TenantNotFoundError{Identifier: slug}
		}
		return nil, fmt.Errorf("resolver: lookup slug %q: %w", slug, err)
	}
	if !t.Active {
		return nil, &TenantInactiveError{Tenant: t}
	}
	return t, nil
}

// lookupByDomain is the shared post-extraction step for the domain
// strategy.
func lookupByDomain(ctx context.Context, tenants store.TenantStore, domain string) (*models.Tenant, error) {
	t, err := tenants.TenantByDomain(ctx, strings.ToLower(domain))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &TenantNotFoundError{Identifier: domain}
		}
		return nil, fmt.Errorf("resolver: lookup domain %q: %w", domain, err)
	}
	if !t.Active {
		return nil, &TenantInactiveError{Tenant: t}
	}
	return t, nil
}

// requestHost returns the request host with any port stripped.
func requestHost(r *http.Request) string {
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(host)
}

// DomainResolver matches the request host (port stripped) against
// Tenant.Domain, case-insensitively.
type DomainResolver struct {
	tenants store.TenantStore
}

func (d *DomainResolver) Resolve(ctx context.Context, r *http.Request) (*models.Tenant, error) {
	return lookupByDomain(ctx, d.tenants, requestHost(r))
}

// SubdomainResolver strips a configured base domain from the request host
// and treats the leftmost remaining label as the tenant slug. A host that
// does not end in ".{base_domain}", or whose remaining label is empty,
// fails resolution.
type SubdomainResolver struct {
	tenants    store.TenantStore
	baseDomain string
}

func (s *SubdomainResolver) Resolve(ctx context.Context, r *http.Request) (*models.Tenant, error) {
	host := requestHost(r)

	slug, ok := s.extractSubdomain(host)
	if !ok {
		return nil, &TenantNotFoundError{
			Identifier: host,
			Reason:     "no subdomain in request host",
		}
	}
	return lookupBySlug(ctx, s.tenants, slug)
}

// extractSubdomain returns the leftmost label preceding the base domain.
// Nested subdomains like "a.b.example.com" yield "a".
func (s *SubdomainResolver) extractSubdomain(host string) (string, bool) {
	if !strings.HasSuffix(host, "."+s.baseDomain) {
		return "", false
	}
	sub := strings.TrimSuffix(host, "."+s.baseDomain)
	if sub == "" {
		return "", false
	}
	if i := strings.Index(sub, "."); i >= 0 {
		sub = sub[:i]
	}
	if sub == "" {
		return "", false
	}
	return sub, true
}

// PathResolver extracts the tenant slug from the URL path with a
// precompiled regular expression; the first match of the `tenant_slug`
// group wins.
type PathResolver struct {
	tenants store.TenantStore
	pattern *regexp.Regexp
}

func (p *PathResolver) Resolve(ctx context.Context, r *http.Request) (*models.Tenant, error) {
	path := r.URL.Path

	match := p.pattern.FindStringSubmatch(path)
	if match == nil {
		return nil, &TenantNotFoundError{
			Identifier: path,
			Reason:     "no tenant slug in URL path",
		}
	}

	idx := p.pattern.SubexpIndex(SlugGroup)
	if idx < 0 || idx >= len(match) || match[idx] == "" {
		return nil, &TenantNotFoundError{
			Identifier: path,
			Reason:     "pattern matched but tenant_slug group is empty",
		}
	}
	return lookupBySlug(ctx, p.tenants, match[idx])
}

// HeaderResolver reads the tenant slug from a configured HTTP header.
// A missing or empty header fails resolution.
type HeaderResolver struct {
	tenants store.TenantStore
	header  string
}

func (h *HeaderResolver) Resolve(ctx context.Context, r *http.Request) (*models.Tenant, error) {
	slug := strings.TrimSpace(r.Header.Get(h.header))
	if slug == "" {
		return nil, &TenantNotFoundError{
			Reason: fmt.Sprintf("tenant header %q missing or empty", h.header),
		}
	}
	return lookupBySlug(ctx, h.tenants, slug)
}
