// TenantGuard - Tenant-Aware Authentication and Authorization for Go
// Copyright 2026 TenantGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tenantguard/tenantguard

package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tenantguard/tenantguard/models"
	"github.com/tenantguard/tenantguard/store"
)

func (s *Store) CreatePermission(ctx context.Context, p *models.Permission) error {
	if err := models.ValidateCodename(p.Codename); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO permissions (id, tenant_id, codename, name, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.TenantID, p.Codename, p.Name, p.Description, p.CreatedAt)
	if err != nil {
		return wrapWrite(err, "create permission %q in tenant %s", p.Codename, p.TenantID)
	}
	return nil
}

func (s *Store) PermissionByCodename(ctx context.Context, tenantID uuid.UUID, codename string) (*models.Permission, error) {
	var p models.Permission
	err := s.pool.QueryRow(ctx, `
		SELECT id, tenant_id, codename, name, description, created_at
		FROM permissions WHERE tenant_id = $1 AND codename = $2`,
		tenantID, codename).Scan(&p.ID, &p.TenantID, &p.Codename, &p.Name, &p.Description, &p.CreatedAt)
	if err != nil {
		return nil, wrapRead(err, "permission %q in tenant %s", codename, tenantID)
	}
	return &p, nil
}

// DeletePermission removes the permission; the role_permissions cascade
// detaches it from every role holding it, revoking the grant immediately
// for any identity context constructed afterwards.
func (s *Store) DeletePermission(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM permissions WHERE id = $1", id)
	return execExpectOne(tag, err, "delete permission %s", id)
}

func (s *Store) TenantPermissionCodenames(ctx context.Context, tenantID uuid.UUID) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT codename FROM permissions WHERE tenant_id = $1 ORDER BY codename", tenantID)
	if err != nil {
		return nil, fmt.Errorf("tenant permission codenames: %w", err)
	}
	defer rows.Close()
	return scanCodenames(rows)
}

func (s *Store) MembershipPermissionCodenames(ctx context.Context, membershipID uuid.UUID) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT p.codename
		FROM membership_roles mr
		JOIN roles r ON r.id = mr.role_id AND r.active
		JOIN role_permissions rp ON rp.role_id = mr.role_id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE mr.membership_id = $1
		ORDER BY p.codename`,
		membershipID)
	if err != nil {
		return nil, fmt.Errorf("membership permission codenames: %w", err)
	}
	defer rows.Close()
	return scanCodenames(rows)
}

func (s *Store) MembershipHasPermission(ctx context.Context, membershipID uuid.UUID, codename string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM membership_roles mr
			JOIN roles r ON r.id = mr.role_id AND r.active
			JOIN role_permissions rp ON rp.role_id = mr.role_id
			JOIN permissions p ON p.id = rp.permission_id
			WHERE mr.membership_id = $1 AND p.codename = $2
		)`,
		membershipID, codename).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("membership permission check: %w", err)
	}
	return exists, nil
}

func scanCodenames(rows pgx.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var codename string
		if err := rows.Scan(&codename); err != nil {
			return nil, fmt.Errorf("scan codename: %w", err)
		}
		out = append(out, codename)
	}
	return out, rows.Err()
}

var _ store.PermissionStore = (*Store)(nil)
