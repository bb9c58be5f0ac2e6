// TenantGuard - Tenant-Aware Authentication and Authorization for Go
// Copyright 2026 TenantGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tenantguard/tenantguard

package models

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

// codenameRegexp is the canonical permission codename format: `scope.action`,
// both segments lowercase, starting with a letter, digits and underscores
// allowed, exactly one separating dot. This format is wire-visible and part
// of the library's validation contract.
var codenameRegexp = regexp.MustCompile(`^[a-z][a-z0-9_]*\.[a-z][a-z0-9_]*$`)

// Permission is an atomic, tenant-scoped authorization grant identified by
// a codename such as "orders.view_order". The (tenant, codename) pair is
// unique. Codenames are compared case-sensitively after validation.
type Permission struct {
	ID uuid.UUID `json:"id"`

	// TenantID is the owning tenant.
	TenantID uuid.UUID `json:"tenant_id" validate:"required"`

	// Codename is the canonical identifier in `scope.action` format.
	Codename string `json:"codename" validate:"required,codename"`

	// Name is the human-readable permission name.
	Name string `json:"name" validate:"required,max=255"`

	Description string `json:"description,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewPermission creates a permission with a fresh UUID. The codename is
// not validated here; call Validate (or let the store do it) before
// persisting.
func NewPermission(tenantID uuid.UUID, codename, name string) *Permission {
	return &Permission{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Codename:  codename,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
}

// ValidCodename reports whether codename matches the canonical format.
func ValidCodename(codename string) bool {
	return codenameRegexp.MatchString(codename)
}

// ValidateCodename returns an InvalidCodenameError if codename does not
// match the canonical format.
func ValidateCodename(codename string) error {
	if !ValidCodename(codename) {
		return &InvalidCodenameError{Codename: codename}
	}
	return nil
}
