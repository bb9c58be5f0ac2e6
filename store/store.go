// TenantGuard - Tenant-Aware Authentication and Authorization for Go
// Copyright 2026 TenantGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tenantguard/tenantguard

// Package store defines the persistence contract consumed by the resolver,
// the permission evaluation engine, and the middleware pipeline.
//
// Implementations must report missing rows with ErrNotFound and unique-key
// violations with ErrDuplicate (both matchable via errors.Is), enforce the
// domain invariants from the models package on writes, and be safe for
// concurrent use: TenantGuard performs no cross-request locking of its own.
//
// No method spans a transaction across multiple calls. Permission checks
// issue several independent reads; under concurrent writes a check may
// observe a partially updated role/permission graph, which the library
// accepts by design (authorization is not promised to be linearizable).
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/tenantguard/tenantguard/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when an insert violates a uniqueness
	// constraint (tenant slug/domain, (user, tenant) membership,
	// (tenant, role name), (tenant, permission codename)).
	ErrDuplicate = errors.New("duplicate")
)

// TenantStore persists tenants. Slug and domain lookups are
// case-insensitive; implementations may rely on values being stored
// lowercase (models.Tenant.Normalize).
type TenantStore interface {
	CreateTenant(ctx context.Context, t *models.Tenant) error
	TenantByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	TenantBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	TenantByDomain(ctx context.Context, domain string) (*models.Tenant, error)
	UpdateTenant(ctx context.Context, t *models.Tenant) error

	// DeleteTenant removes the tenant and cascades to its memberships,
	// roles, and permissions.
	DeleteTenant(ctx context.Context, id uuid.UUID) error
}

// MembershipStore persists memberships and their role assignments.
type MembershipStore interface {
	// CreateMembership inserts a membership, rejecting a second record
	// for an existing (user, tenant) pair with ErrDuplicate.
	CreateMembership(ctx context.Context, m *models.Membership) error

	// MembershipFor returns the membership for (user, tenant) regardless
	// of its active flag.
	MembershipFor(ctx context.Context, userID string, tenantID uuid.UUID) (*models.Membership, error)

	// ActiveMembershipFor returns the membership for (user, tenant) only
	// if it is active; ErrNotFound otherwise.
	ActiveMembershipFor(ctx context.Context, userID string, tenantID uuid.UUID) (*models.Membership, error)

	// ActiveMemberships lists all active memberships of a tenant.
	ActiveMemberships(ctx context.Context, tenantID uuid.UUID) ([]*models.Membership, error)

	SetMembershipActive(ctx context.Context, id uuid.UUID, active bool) error

	// AddMembershipRole assigns a role to a membership. The role must be
	// owned by the membership's tenant; cross-tenant assignment fails
	// with *models.CrossTenantError.
	AddMembershipRole(ctx context.Context, membershipID, roleID uuid.UUID) error
	RemoveMembershipRole(ctx context.Context, membershipID, roleID uuid.UUID) error
}

// RoleStore persists roles and their permission grants.
type RoleStore interface {
	// CreateRole inserts a role, rejecting a duplicate (tenant, name)
	// with ErrDuplicate.
	CreateRole(ctx context.Context, r *models.Role) error
	RoleByID(ctx context.Context, id uuid.UUID) (*models.Role, error)
	RoleByName(ctx context.Context, tenantID uuid.UUID, name string) (*models.Role, error)
	SetRoleActive(ctx context.Context, id uuid.UUID, active bool) error

	// ActiveRolesForMembership returns the membership's assigned roles
	// that are active, with permission grants populated, in one pass
	// (implementations batch the role/permission traversal to avoid N+1
	// access).
	ActiveRolesForMembership(ctx context.Context, membershipID uuid.UUID) ([]*models.Role, error)

	// AddRolePermission grants a permission to a role. The permission
	// must be owned by the role's tenant; cross-tenant assignment fails
	// with *models.CrossTenantError.
	AddRolePermission(ctx context.Context, roleID, permissionID uuid.UUID) error
	RemoveRolePermission(ctx context.Context, roleID, permissionID uuid.UUID) error
}

// PermissionStore persists permissions and answers the codename queries
// the evaluation engine is built on.
type PermissionStore interface {
	// CreatePermission inserts a permission, rejecting an invalid
	// codename with *models.InvalidCodenameError and a duplicate
	// (tenant, codename) with ErrDuplicate.
	CreatePermission(ctx context.Context, p *models.Permission) error
	PermissionByCodename(ctx context.Context, tenantID uuid.UUID, codename string) (*models.Permission, error)

	// DeletePermission removes the permission and detaches it from every
	// role holding it.
	DeletePermission(ctx context.Context, id uuid.UUID) error

	// TenantPermissionCodenames enumerates every codename owned by the
	// tenant (the superuser expansion set).
	TenantPermissionCodenames(ctx context.Context, tenantID uuid.UUID) ([]string, error)

	// MembershipPermissionCodenames returns the deduplicated union of
	// codenames reachable through the membership's active roles.
	MembershipPermissionCodenames(ctx context.Context, membershipID uuid.UUID) ([]string, error)

	// MembershipHasPermission reports whether any active role of the
	// membership grants the codename. Grants through inactive roles
	// never count.
	MembershipHasPermission(ctx context.Context, membershipID uuid.UUID, codename string) (bool, error)
}

// Store is the full persistence contract.
type Store interface {
	TenantStore
	MembershipStore
	RoleStore
	PermissionStore
}
