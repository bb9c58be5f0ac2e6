// TenantGuard - Tenant-Aware Authentication and Authorization for Go
// Copyright 2026 TenantGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tenantguard/tenantguard

package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tenantguard/tenantguard/models"
	"github.com/tenantguard/tenantguard/store"
)

const roleColumns = "id, tenant_id, name, description, active, created_at, updated_at"

func scanRole(row scannable) (*models.Role, error) {
	var r models.Role
	if err := row.Scan(&r.ID, &r.TenantID, &r.Name, &r.Description, &r.Active, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) loadRolePermissions(ctx context.Context, r *models.Role) error {
	rows, err := s.pool.Query(ctx,
		"SELECT permission_id FROM role_permissions WHERE role_id = $1", r.ID)
	if err != nil {
		return fmt.Errorf("load role permissions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("scan role permission: %w", err)
		}
		r.PermissionIDs = append(r.PermissionIDs, id)
	}
	return rows.Err()
}

func (s *Store) CreateRole(ctx context.Context, r *models.Role) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO roles (id, tenant_id, name, description, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.TenantID, r.Name, r.Description, r.Active, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return wrapWrite(err, "create role %q in tenant %s", r.Name, r.TenantID)
	}

	for _, permID := range r.PermissionIDs {
		if err := s.AddRolePermission(ctx, r.ID, permID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) RoleByID(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+roleColumns+" FROM roles WHERE id = $1", id)
	r, err := scanRole(row)
	if err != nil {
		return nil, wrapRead(err, "role %s", id)
	}
	if err := s.loadRolePermissions(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) RoleByName(ctx context.Context, tenantID uuid.UUID, name string) (*models.Role, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+roleColumns+" FROM roles WHERE tenant_id = $1 AND name = $2", tenantID, name)
	r, err := scanRole(row)
	if err != nil {
		return nil, wrapRead(err, "role %q in tenant %s", name, tenantID)
	}
	if err := s.loadRolePermissions(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) SetRoleActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE roles SET active = $2, updated_at = now() WHERE id = $1", id, active)
	return execExpectOne(tag, err, "set role %s active=%t", id, active)
}

// ActiveRolesForMembership batches the role and permission traversal in
// one query to avoid N+1 access.
func (s *Store) ActiveRolesForMembership(ctx context.Context, membershipID uuid.UUID) ([]*models.Role, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.id, r.tenant_id, r.name, r.description, r.active, r.created_at, r.updated_at, rp.permission_id
		FROM membership_roles mr
		JOIN roles r ON r.id = mr.role_id AND r.active
		LEFT JOIN role_permissions rp ON rp.role_id = r.id
		WHERE mr.membership_id = $1
		ORDER BY r.id`,
		membershipID)
	if err != nil {
		return nil, fmt.Errorf("active roles for membership %s: %w", membershipID, err)
	}
	defer rows.Close()

	var (
		out     []*models.Role
		current *models.Role
	)
	for rows.Next() {
		var (
			r      models.Role
			permID *uuid.UUID
		)
		if err := rows.Scan(&r.ID, &r.TenantID, &r.Name, &r.Description, &r.Active, &r.CreatedAt, &r.UpdatedAt, &permID); err != nil {
			return nil, fmt.Errorf("scan role row: %w", err)
		}

		if current == nil || current.ID != r.ID {
			role := r
			out = append(out, &role)
			current = out[len(out)-1]
		}
		if permID != nil {
			current.PermissionIDs = append(current.PermissionIDs, *permID)
		}
	}
	return out, rows.Err()
}

// AddRolePermission grants a permission, rejecting cross-tenant grants.
func (s *Store) AddRolePermission(ctx context.Context, roleID, permissionID uuid.UUID) error {
	var (
		roleTenant uuid.UUID
		permTenant uuid.UUID
		codename   string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT r.tenant_id, p.tenant_id, p.codename
		FROM roles r, permissions p
		WHERE r.id = $1 AND p.id = $2`,
		roleID, permissionID).Scan(&roleTenant, &permTenant, &codename)
	if err != nil {
		return wrapRead(err, "add permission %s to role %s", permissionID, roleID)
	}

	if roleTenant != permTenant {
		return &models.CrossTenantError{
			Object:       "permission",
			Name:         codename,
			OwnerTenant:  permTenant.String(),
			TargetTenant: roleTenant.String(),
		}
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO role_permissions (role_id, permission_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		roleID, permissionID)
	if err != nil {
		return fmt.Errorf("add permission %s to role %s: %w", permissionID, roleID, err)
	}
	return nil
}

func (s *Store) RemoveRolePermission(ctx context.Context, roleID, permissionID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		"DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2",
		roleID, permissionID)
	if err != nil {
		return fmt.Errorf("remove permission %s from role %s: %w", permissionID, roleID, err)
	}
	return nil
}

var _ store.RoleStore = (*Store)(nil)
