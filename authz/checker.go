// TenantGuard - Tenant-Aware Authentication and Authorization for Go
// Copyright 2026 TenantGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tenantguard/tenantguard

// Package authz implements the permission evaluation engine: the
// authoritative algorithm for every authorization decision TenantGuard
// makes, plus the per-request identity context built on top of it.
//
// The decision order in HasPermission is fixed and security-relevant:
//
//  1. Superuser bypass (when enabled): a superuser passes unconditionally,
//     with no membership or tenant-activity check.
//  2. The tenant must be present and active.
//  3. An active membership must exist for (user, tenant).
//  4. At least one of the membership's ACTIVE roles must grant the
//     codename. A grant held only by an inactive role never counts.
//
// Every check emits an audit event with the codename and outcome. Checks
// are not transactional: the several store reads inside one decision may
// observe a partially updated role graph under concurrent writes.
package authz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tenantguard/tenantguard/audit"
	"github.com/tenantguard/tenantguard/models"
	"github.com/tenantguard/tenantguard/store"
)

// Options configures the Checker.
type Options struct {
	// SuperuserBypass lets users flagged superuser pass every permission
	// check without membership. Enabled by default.
	SuperuserBypass bool

	// Audit receives a decision event per check. Defaults to audit.Nop.
	Audit audit.Sink
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		SuperuserBypass: true,
		Audit:           audit.Nop{},
	}
}

// Checker answers authorization queries against the store.
// Safe for concurrent use; holds no per-request state.
type Checker struct {
	store           store.Store
	sink            audit.Sink
	superuserBypass bool
}

// NewChecker builds a Checker. A nil Audit sink is replaced with audit.Nop.
func NewChecker(st store.Store, opts Options) *Checker {
	sink := opts.Audit
	if sink == nil {
		sink = audit.Nop{}
	}
	return &Checker{
		store:           st,
		sink:            sink,
		superuserBypass: opts.SuperuserBypass,
	}
}

// SuperuserBypass reports whether the bypass rule is enabled.
func (c *Checker) SuperuserBypass() bool { return c.superuserBypass }

// IsMember reports whether an active membership exists for (user, tenant).
//
// Superuser status has no bearing here: this answers "is a real member",
// used for membership-only gating and UI. Callers wanting bypass semantics
// use the permission queries, which incorporate it.
func (c *Checker) IsMember(ctx context.Context, user models.User, tenant *models.Tenant) (bool, error) {
	if user == nil || !user.Authenticated() || tenant == nil {
		return false, nil
	}

	member := false
	_, err := c.store.ActiveMembershipFor(ctx, user.ID(), tenant.ID)
	switch {
	case err == nil:
		member = true
	case errors.Is(err, store.ErrNotFound):
	default:
		return false, fmt.Errorf("authz: membership lookup: %w", err)
	}

	c.sink.Emit((&audit.Event{
		Name:    audit.EventMembershipCheck,
		Success: member,
	}).WithUser(user).WithTenant(tenant))
	return member, nil
}

// HasPermission reports whether the user holds the permission codename in
// the tenant, applying the fixed decision order documented on the package.
func (c *Checker) HasPermission(ctx context.Context, user models.User, tenant *models.Tenant, codename string) (bool, error) {
	start := time.Now()

	allowed, err := c.hasPermission(ctx, user, tenant, codename)
	if err != nil {
		return false, err
	}

	slug := ""
	if tenant != nil {
		slug = tenant.Slug
	}
	recordDecision(slug, codename, allowed, time.Since(start))

	c.sink.Emit((&audit.Event{
		Name:       audit.EventPermissionCheck,
		Success:    allowed,
		Permission: codename,
	}).WithUser(user).WithTenant(tenant))
	return allowed, nil
}

func (c *Checker) hasPermission(ctx context.Context, user models.User, tenant *models.Tenant, codename string) (bool, error) {
	if user == nil || !user.Authenticated() {
		return false, nil
	}

	// Bypass comes first: no membership or tenant-activity check applies.
	if c.superuserBypass && user.Superuser() {
		SuperuserBypassTotal.Inc()
		return true, nil
	}

	if tenant == nil || !tenant.Active {
		return false, nil
	}

	m, err := c.store.ActiveMembershipFor(ctx, user.ID(), tenant.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("authz: membership lookup: %w", err)
	}

	ok, err := c.store.MembershipHasPermission(ctx, m.ID, codename)
	if err != nil {
		return false, fmt.Errorf("authz: permission lookup: %w", err)
	}
	return ok, nil
}

// AllPermissions returns the deduplicated set of permission codenames the
// user holds in the tenant.
//
// Under superuser bypass this is every codename the tenant owns - the
// enumerated set, not a wildcard, so downstream code can display it.
// Otherwise it is the union across the membership's active roles. The
// returned order is unspecified.
func (c *Checker) AllPermissions(ctx context.Context, user models.User, tenant *models.Tenant) ([]string, error) {
	if user == nil || !user.Authenticated() {
		return nil, nil
	}

	if c.superuserBypass && user.Superuser() {
		if tenant == nil {
			return nil, nil
		}
		codenames, err := c.store.TenantPermissionCodenames(ctx, tenant.ID)
		if err != nil {
			return nil, fmt.Errorf("authz: tenant permission enumeration: %w", err)
		}
		return codenames, nil
	}

	if tenant == nil || !tenant.Active {
		return nil, nil
	}

	m, err := c.store.ActiveMembershipFor(ctx, user.ID(), tenant.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("authz: membership lookup: %w", err)
	}

	codenames, err := c.store.MembershipPermissionCodenames(ctx, m.ID)
	if err != nil {
		return nil, fmt.Errorf("authz: permission enumeration: %w", err)
	}
	return codenames, nil
}

// HasAny reports whether the user holds at least one of the codenames.
// Short-circuits on the first grant; each inspected codename still emits
// its own audit event through HasPermission.
func (c *Checker) HasAny(ctx context.Context, user models.User, tenant *models.Tenant, codenames []string) (bool, error) {
	for _, codename := range codenames {
		ok, err := c.HasPermission(ctx, user, tenant, codename)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// HasAll reports whether the user holds every codename. Short-circuits on
// the first denial.
func (c *Checker) HasAll(ctx context.Context, user models.User, tenant *models.Tenant, codenames []string) (bool, error) {
	if len(codenames) == 0 {
		return true, nil
	}
	for _, codename := range codenames {
		ok, err := c.HasPermission(ctx, user, tenant, codename)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
