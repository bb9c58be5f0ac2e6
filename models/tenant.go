// TenantGuard - Tenant-Aware Authentication and Authorization for Go
// Copyright 2026 TenantGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tenantguard/tenantguard

package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Tenant represents an isolated organizational unit. Each tenant owns its
// own roles, permissions, and memberships; users can belong to multiple
// tenants with independent role assignments in each.
type Tenant struct {
	// ID is a UUID primary key. Non-sequential by design to prevent
	// tenant enumeration.
	ID uuid.UUID `json:"id"`

	// Name is the human-readable display name.
	Name string `json:"name" validate:"required,max=255"`

	// Slug is the URL-safe unique identifier, stored lowercase.
	Slug string `json:"slug" validate:"required,max=100,tenantslug"`

	// Domain is an optional custom domain, unique when set, stored lowercase.
	Domain string `json:"domain,omitempty" validate:"omitempty,fqdn"`

	// Active suspends access when false. Tenants are deactivated, not
	// deleted, to preserve history.
	Active bool `json:"active"`

	// Metadata carries free-form tenant data.
	Metadata map[string]any `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewTenant creates an active tenant with a fresh UUID and normalized
// slug and domain.
func NewTenant(name, slug string) *Tenant {
	now := time.Now().UTC()
	t := &Tenant{
		ID:        uuid.New(),
		Name:      name,
		Slug:      slug,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	t.Normalize()
	return t
}

// Normalize lowercases the slug and domain. Slug and domain comparisons
// are always case-insensitive, so both are stored lowercase.
func (t *Tenant) Normalize() {
	t.Slug = strings.ToLower(strings.TrimSpace(t.Slug))
	t.Domain = strings.ToLower(strings.TrimSpace(t.Domain))
}

func (t *Tenant) String() string {
	return t.Name
}
