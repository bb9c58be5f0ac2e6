// TenantGuard - Tenant-Aware Authentication and Authorization for Go
// Copyright 2026 TenantGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tenantguard/tenantguard

package models

import (
	"time"

	"github.com/google/uuid"
)

// Membership links exactly one user to exactly one tenant, carrying the
// user's role assignments within that tenant. The (user, tenant) pair is
// unique: a user has at most one membership per tenant.
type Membership struct {
	ID uuid.UUID `json:"id"`

	// UserID is the stable identifier of the user, as reported by the
	// host application's user object.
	UserID string `json:"user_id" validate:"required"`

	// TenantID is the owning tenant.
	TenantID uuid.UUID `json:"tenant_id" validate:"required"`

	// RoleIDs are the roles assigned to this membership. All referenced
	// roles belong to TenantID.
	RoleIDs []uuid.UUID `json:"role_ids,omitempty"`

	// Active revokes access when false, preserving history.
	Active bool `json:"active"`

	JoinedAt  time.Time `json:"joined_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewMembership creates an active membership with a fresh UUID.
func NewMembership(userID string, tenantID uuid.UUID) *Membership {
	now := time.Now().UTC()
	return &Membership{
		ID:        uuid.New(),
		UserID:    userID,
		TenantID:  tenantID,
		Active:    true,
		JoinedAt:  now,
		UpdatedAt: now,
	}
}

// AddRole assigns a role to the membership. The role must belong to the
// membership's tenant; cross-tenant assignment fails. Adding a role that
// is already assigned is a no-op.
func (m *Membership) AddRole(role *Role) error {
	if role.TenantID != m.TenantID {
		return &CrossTenantError{
			Object:       "role",
			Name:         role.Name,
			OwnerTenant:  role.TenantID.String(),
			TargetTenant: m.TenantID.String(),
		}
	}
	for _, id := range m.RoleIDs {
		if id == role.ID {
			return nil
		}
	}
	m.RoleIDs = append(m.RoleIDs, role.ID)
	m.UpdatedAt = time.Now().UTC()
	return nil
}

// RemoveRole detaches a role from the membership. Removing a role that is
// not assigned is a no-op.
func (m *Membership) RemoveRole(roleID uuid.UUID) {
	for i, id := range m.RoleIDs {
		if id == roleID {
			m.RoleIDs = append(m.RoleIDs[:i], m.RoleIDs[i+1:]...)
			m.UpdatedAt = time.Now().UTC()
			return
		}
	}
}
