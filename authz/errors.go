// TenantGuard - Tenant-Aware Authentication and Authorization for Go
// Copyright 2026 TenantGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tenantguard/tenantguard

package authz

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMembershipRequired indicates an authenticated user with a resolved
	// tenant lacks an active membership in it.
	ErrMembershipRequired = errors.New("active tenant membership required")

	// ErrNoTenantContext indicates an operation that requires a tenant
	// found none attached to the request. Usually a pipeline ordering bug,
	// or a guarded handler reached through an exempt path.
	ErrNoTenantContext = errors.New("no tenant in request context")
)

// PermissionDeniedError indicates a member lacks a required permission
// codename or role.
type PermissionDeniedError struct {
	// Permissions holds the codenames (or role names) that were required.
	Permissions []string

	// RequireAll is true when every listed entry was required, false when
	// any one would have sufficed.
	RequireAll bool
}

func (e *PermissionDeniedError) Error() string {
	mode := "any of"
	if e.RequireAll {
		mode = "all of"
	}
	if len(e.Permissions) == 1 {
		return fmt.Sprintf("permission denied: %s required", e.Permissions[0])
	}
	return fmt.Sprintf("permission denied: %s [%s] required", mode, strings.Join(e.Permissions, ", "))
}
