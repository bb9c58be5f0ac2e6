// TenantGuard - Tenant-Aware Authentication and Authorization for Go
// Copyright 2026 TenantGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tenantguard/tenantguard

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

// TenantUser is the per-request identity context: one (user, tenant) pair
// with instance-local memoization of the membership record, the membership
// flag, the permission codename set, and the active role list.
//
// Memoization is strictly local to the instance. Computing AllPermissions
// twice on the same instance returns the identical result even if the
// store changed in between; a freshly constructed instance always reflects
// current store state. The staleness window is therefore one instance's
// lifetime, which the middleware bounds to one request. Instances must not
// be reused across requests or shared between (user, tenant) pairs, and
// are not safe for concurrent use.
type TenantUser struct {
	checker *Checker
	user    models.User
	tenant  *models.Tenant

	membership        *models.Membership
	membershipFetched bool

	perms        map[string]struct{}
	permsFetched bool

	roles        []*models.Role
	rolesFetched bool

	superPerms        []string
	superPermsFetched bool
}

// NewTenantUser builds an identity context for one request.
func NewTenantUser(checker *Checker, user models.User, tenant *models.Tenant) *TenantUser {
	return &TenantUser{
		checker: checker,
		user:    user,
		tenant:  tenant,
	}
}

// User returns the wrapped user.
func (tu *TenantUser) User() models.User { return tu.user }

// Tenant returns the wrapped tenant.
func (tu *TenantUser) Tenant() *models.Tenant { return tu.tenant }

// activeMembership resolves and memoizes the active membership record.
// A memoized absence is also an answer: the store is asked at most once.
func (tu *TenantUser) activeMembership(ctx context.Context) (*models.Membership, error) {
	if tu.membershipFetched {
		MemoHitsTotal.Inc()
		return tu.membership, nil
	}

	if tu.user == nil || !tu.user.Authenticated() || tu.tenant == nil {
		tu.membershipFetched = true
		return nil, nil
	}

	m, err := tu.checker.store.ActiveMembershipFor(ctx, tu.user.ID(), tu.tenant.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			tu.membershipFetched = true
			return nil, nil
		}
		return nil, fmt.Errorf("authz: membership lookup: %w", err)
	}
	tu.membership = m
	tu.membershipFetched = true
	return m, nil
}

// IsMember reports whether the user holds an active membership in the
// tenant. Superuser status has no bearing; see Checker.IsMember.
func (tu *TenantUser) IsMember(ctx context.Context) (bool, error) {
	m, err := tu.activeMembership(ctx)
	if err != nil {
		return false, err
	}
	return m != nil, nil
}

// permissionSet resolves and memoizes the codename set reachable through
// the membership's active roles. Superuser bypass is handled by the
// callers, not here: the set reflects actual grants.
func (tu *TenantUser) permissionSet(ctx context.Context) (map[string]struct{}, error) {
	if tu.permsFetched {
		MemoHitsTotal.Inc()
		return tu.perms, nil
	}

	set := map[string]struct{}{}
	m, err := tu.activeMembership(ctx)
	if err != nil {
		return nil, err
	}
	if m != nil && tu.tenant.Active {
		codenames, err := tu.checker.store.MembershipPermissionCodenames(ctx, m.ID)
		if err != nil {
			return nil, fmt.Errorf("authz: permission enumeration: %w", err)
		}
		for _, c := range codenames {
			set[c] = struct{}{}
		}
	}
	tu.perms = set
	tu.permsFetched = true
	return set, nil
}

// HasPermission reports whether the identity holds the codename, using
// the memoized permission set. Decision order matches Checker: superuser
// bypass first, then tenant activity, then the set membership test.
func (tu *TenantUser) HasPermission(ctx context.Context, codename string) (bool, error) {
	start := time.Now()

	allowed, err := tu.hasPermission(ctx, codename)
	if err != nil {
		return false, err
	}

	slug := ""
	if tu.tenant != nil {
		slug = tu.tenant.Slug
	}
	recordDecision(slug, codename, allowed, time.Since(start))

	tu.checker.sink.Emit((&audit.Event{
		Name:       audit.EventPermissionCheck,
		Success:    allowed,
		Permission: codename,
	}).WithUser(tu.user).WithTenant(tu.tenant))
	return allowed, nil
}

func (tu *TenantUser) hasPermission(ctx context.Context, codename string) (bool, error) {
	if tu.user == nil || !tu.user.Authenticated() {
		return false, nil
	}
	if tu.checker.superuserBypass && tu.user.Superuser() {
		SuperuserBypassTotal.Inc()
		return true, nil
	}
	if tu.tenant == nil || !tu.tenant.Active {
		return false, nil
	}

	set, err := tu.permissionSet(ctx)
	if err != nil {
		return false, err
	}
	_, ok := set[codename]
	return ok, nil
}

// HasPermissions reports whether the identity holds every codename in the
// list. Short-circuits on the first denial.
func (tu *TenantUser) HasPermissions(ctx context.Context, codenames []string) (bool, error) {
	for _, codename := range codenames {
		ok, err := tu.HasPermission(ctx, codename)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// HasAnyPermission reports whether the identity holds at least one of the
// codenames. Short-circuits on the first grant.
func (tu *TenantUser) HasAnyPermission(ctx context.Context, codenames []string) (bool, error) {
	for _, codename := range codenames {
		ok, err := tu.HasPermission(ctx, codename)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// RequirePermissions returns nil when the identity holds the codenames
// (every one when requireAll, any one otherwise) and a typed error from
// the denial taxonomy when it does not: ErrNoTenantContext when no tenant
// is attached, ErrMembershipRequired when the user holds no active
// membership, and *PermissionDeniedError for a plain permission miss.
// Superuser bypass short-circuits before any of those checks.
func (tu *TenantUser) RequirePermissions(ctx context.Context, codenames []string, requireAll bool) error {
	if tu.user != nil && tu.user.Authenticated() &&
		tu.checker.superuserBypass && tu.user.Superuser() {
		SuperuserBypassTotal.Inc()
		return nil
	}

	if tu.tenant == nil {
		return ErrNoTenantContext
	}

	member, err := tu.IsMember(ctx)
	if err != nil {
		return err
	}
	if !member {
		return ErrMembershipRequired
	}

	var ok bool
	if requireAll {
		ok, err = tu.HasPermissions(ctx, codenames)
	} else {
		ok, err = tu.HasAnyPermission(ctx, codenames)
	}
	if err != nil {
		return err
	}
	if !ok {
		return &PermissionDeniedError{Permissions: codenames, RequireAll: requireAll}
	}
	return nil
}

// AllPermissions returns the memoized codename set as a slice. Under
// superuser bypass this is the tenant's enumerated codename set, memoized
// in its own slot so repeated calls on one instance stay consistent.
// Order is unspecified.
func (tu *TenantUser) AllPermissions(ctx context.Context) ([]string, error) {
	if tu.user != nil && tu.user.Authenticated() &&
		tu.checker.superuserBypass && tu.user.Superuser() {
		if tu.superPermsFetched {
			MemoHitsTotal.Inc()
			return tu.superPerms, nil
		}
		perms, err := tu.checker.AllPermissions(ctx, tu.user, tu.tenant)
		if err != nil {
			return nil, err
		}
		tu.superPerms = perms
		tu.superPermsFetched = true
		return perms, nil
	}

	set, err := tu.permissionSet(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out, nil
}

// Roles returns the membership's active roles, memoized. Inactive
// assigned roles are excluded. Nil when there is no active membership.
func (tu *TenantUser) Roles(ctx context.Context) ([]*models.Role, error) {
	if tu.rolesFetched {
		MemoHitsTotal.Inc()
		return tu.roles, nil
	}

	m, err := tu.activeMembership(ctx)
	if err != nil {
		return nil, err
	}
	if m == nil {
		tu.rolesFetched = true
		return nil, nil
	}

	roles, err := tu.checker.store.ActiveRolesForMembership(ctx, m.ID)
	if err != nil {
		return nil, fmt.Errorf("authz: role enumeration: %w", err)
	}
	tu.roles = roles
	tu.rolesFetched = true
	return roles, nil
}

// HasRole reports whether any of the membership's active roles carries
// the given name. Role names are tenant-defined free text; no format
// validation applies.
func (tu *TenantUser) HasRole(ctx context.Context, name string) (bool, error) {
	if tu.user == nil || !tu.user.Authenticated() {
		return false, nil
	}
	if tu.checker.superuserBypass && tu.user.Superuser() {
		SuperuserBypassTotal.Inc()
		return true, nil
	}

	roles, err := tu.Roles(ctx)
	if err != nil {
		return false, err
	}
	for _, r := range roles {
		if r.Name == name {
			return true, nil
		}
	}
	return false, nil
}
