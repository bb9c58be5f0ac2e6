// TenantGuard - Tenant-Aware Authentication and Authorization for Go
// Copyright 2026 TenantGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tenantguard/tenantguard

package resolver

import (
	"fmt"

	"github.com/tenantguard/tenantguard/models"
)

// TenantNotFoundError reports that no tenant matched the identifier
// extracted from the request. The raw identifier is retained for
// diagnostics and audit output.
type TenantNotFoundError struct {
	// Identifier is the slug, domain, host, or path the resolver
	// attempted to match. May be empty when nothing could be extracted.
	Identifier string

	// Reason describes why extraction or lookup failed.
	Reason string
}

func (e *TenantNotFoundError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("tenant not found: %s (identifier %q)", e.Reason, e.Identifier)
	}
	return fmt.Sprintf("tenant not found: %q", e.Identifier)
}

// TenantInactiveError reports that the identifier matched a tenant, but
// the tenant is deactivated. Distinguished from TenantNotFoundError
// because the record exists; the default pipeline policy treats both the
// same, custom failure handlers can tell them apart with errors.As.
type TenantInactiveError struct {
	// Tenant is the matched, inactive tenant.
	Tenant *models.Tenant
}

func (e *TenantInactiveError) Error() string {
	return fmt.Sprintf("tenant %q is inactive", e.Tenant.Slug)
}
