// TenantGuard - Tenant-Aware Authentication and Authorization for Go
// Copyright 2026 TenantGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tenantguard/tenantguard

package models

import "fmt"

// InvalidCodenameError reports a permission codename that does not match
// the canonical `scope.action` format.
type InvalidCodenameError struct {
	// Codename is the rejected value.
	Codename string
}

func (e *InvalidCodenameError) Error() string {
	return fmt.Sprintf("invalid permission codename %q: expected format 'scope.action' (lowercase, underscores allowed)", e.Codename)
}

// CrossTenantError reports an attempt to link objects owned by different
// tenants: a role assigned to a membership of another tenant, or a
// permission assigned to a role of another tenant.
type CrossTenantError struct {
	// Object describes the object being assigned ("role" or "permission").
	Object string

	// Name identifies the object (role name or permission codename).
	Name string

	// OwnerTenant is the tenant that owns the object.
	OwnerTenant string

	// TargetTenant is the tenant of the assignment target.
	TargetTenant string
}

func (e *CrossTenantError) Error() string {
	return fmt.Sprintf("%s %q belongs to tenant %q, not %q", e.Object, e.Name, e.OwnerTenant, e.TargetTenant)
}
