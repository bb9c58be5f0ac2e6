// TenantGuard - Tenant-Aware Authentication and Authorization for Go
// Copyright 2026 TenantGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tenantguard/tenantguard

package postgres

import (
	"context"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tenantguard/tenantguard/models"
)

const tenantColumns = "id, name, slug, domain, active, metadata, created_at, updated_at"

func scanTenant(row scannable) (*models.Tenant, error) {
	var (
		t        models.Tenant
		domain   *string
		metadata []byte
	)
	if err := row.Scan(&t.ID, &t.Name, &t.Slug, &domain, &t.Active, &metadata, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if domain != nil {
		t.Domain = *domain
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &t.Metadata); err != nil {
			return nil, fmt.Errorf("decode tenant metadata: %w", err)
		}
	}
	return &t, nil
}

func encodeMetadata(m map[string]any) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode tenant metadata: %w", err)
	}
	return data, nil
}

// nullIfEmpty maps an empty string to SQL NULL, so the partial unique
// constraint on domain ignores tenants without one.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s *Store) CreateTenant(ctx context.Context, t *models.Tenant) error {
	t.Normalize()
	if err := models.ValidateStruct(t); err != nil {
		return err
	}

	metadata, err := encodeMetadata(t.Metadata)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO tenants (id, name, slug, domain, active, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.Name, t.Slug, nullIfEmpty(t.Domain), t.Active, metadata, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return wrapWrite(err, "create tenant %s", t.Slug)
	}
	return nil
}

func (s *Store) TenantByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+tenantColumns+" FROM tenants WHERE id = $1", id)
	t, err := scanTenant(row)
	if err != nil {
		return nil, wrapRead(err, "tenant %s", id)
	}
	return t, nil
}

func (s *Store) TenantBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+tenantColumns+" FROM tenants WHERE slug = $1", strings.ToLower(slug))
	t, err := scanTenant(row)
	if err != nil {
		return nil, wrapRead(err, "tenant slug %q", slug)
	}
	return t, nil
}

func (s *Store) TenantByDomain(ctx context.Context, domain string) (*models.Tenant, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+tenantColumns+" FROM tenants WHERE domain = $1", strings.ToLower(domain))
	t, err := scanTenant(row)
	if err != nil {
		return nil, wrapRead(err, "tenant domain %q", domain)
	}
	return t, nil
}

func (s *Store) UpdateTenant(ctx context.Context, t *models.Tenant) error {
	t.Normalize()
	if err := models.ValidateStruct(t); err != nil {
		return err
	}

	metadata, err := encodeMetadata(t.Metadata)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE tenants
		SET name = $2, slug = $3, domain = $4, active = $5, metadata = $6, updated_at = now()
		WHERE id = $1`,
		t.ID, t.Name, t.Slug, nullIfEmpty(t.Domain), t.Active, metadata)
	if err != nil {
		return wrapWrite(err, "update tenant %s", t.ID)
	}
	return execExpectOne(tag, nil, "update tenant %s", t.ID)
}

// DeleteTenant removes the tenant; memberships, roles, and permissions it
// owns go with it through the foreign-key cascades.
func (s *Store) DeleteTenant(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM tenants WHERE id = $1", id)
	return execExpectOne(tag, err, "delete tenant %s", id)
}
