// TenantGuard - Tenant-Aware Authentication and Authorization for Go
// Copyright 2026 TenantGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tenantguard/tenantguard

// Package models defines the TenantGuard domain model: Tenant, Membership,
// Role, and Permission, plus the User contract the library expects from the
// host application's authentication layer.
//
// Invariants enforced here and re-checked by store implementations:
//
//   - Tenant slugs and domains are globally unique and stored lowercase.
//   - A user holds at most one Membership per tenant.
//   - (tenant, role name) and (tenant, permission codename) are unique.
//   - Roles may only be assigned permissions owned by the same tenant, and
//     memberships may only be assigned roles owned by the same tenant.
//   - Permission codenames match `scope.action` (lowercase letters, digits,
//     underscores; exactly one dot; both segments start with a letter).
package models
