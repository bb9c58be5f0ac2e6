// TenantGuard - Tenant-Aware Authentication and Authorization for Go
// Copyright 2026 TenantGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tenantguard/tenantguard

package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is a named, tenant-scoped bundle of permissions. Role names are
// tenant-defined free text; the same name may exist independently in
// different tenants. Deactivating a role suppresses every permission it
// grants without detaching it from memberships.
type Role struct {
	ID uuid.UUID `json:"id"`

	// TenantID is the owning tenant. A role may only reference
	// permissions owned by the same tenant.
	TenantID uuid.UUID `json:"tenant_id" validate:"required"`

	// Name is unique within the tenant.
	Name string `json:"name" validate:"required,max=100"`

	Description string `json:"description,omitempty"`

	// PermissionIDs are the permissions granted by this role.
	PermissionIDs []uuid.UUID `json:"permission_ids,omitempty"`

	// Active suppresses all granted permissions when false.
	Active bool `json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRole creates an active role with a fresh UUID.
func NewRole(tenantID uuid.UUID, name string) *Role {
	now := time.Now().UTC()
	return &Role{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Name:      name,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddPermission grants a permission to the role. The permission must be
// owned by the role's tenant; cross-tenant assignment fails. Granting a
// permission that is already assigned is a no-op.
func (r *Role) AddPermission(perm *Permission) error {
	if perm.TenantID != r.TenantID {
		return &CrossTenantError{
			Object:       "permission",
			Name:         perm.Codename,
			OwnerTenant:  perm.TenantID.String(),
			TargetTenant: r.TenantID.String(),
		}
	}
	for _, id := range r.PermissionIDs {
		if id == perm.ID {
			return nil
		}
	}
	r.PermissionIDs = append(r.PermissionIDs, perm.ID)
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// RemovePermission revokes a permission from the role. Revoking a
// permission that is not assigned is a no-op.
func (r *Role) RemovePermission(permID uuid.UUID) {
	for i, id := range r.PermissionIDs {
		if id == permID {
			r.PermissionIDs = append(r.PermissionIDs[:i], r.PermissionIDs[i+1:]...)
			r.UpdatedAt = time.Now().UTC()
			return
		}
	}
}
