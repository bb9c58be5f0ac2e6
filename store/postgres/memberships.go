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

const membershipColumns = "id, user_id, tenant_id, active, joined_at, updated_at"

func scanMembership(row scannable) (*models.Membership, error) {
	var m models.Membership
	if err := row.Scan(&m.ID, &m.UserID, &m.TenantID, &m.Active, &m.JoinedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// loadMembershipRoles fills RoleIDs for one membership.
func (s *Store) loadMembershipRoles(ctx context.Context, m *models.Membership) error {
	rows, err := s.pool.Query(ctx,
		"SELECT role_id FROM membership_roles WHERE membership_id = $1", m.ID)
	if err != nil {
		return fmt.Errorf("load membership roles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("scan membership role: %w", err)
		}
		m.RoleIDs = append(m.RoleIDs, id)
	}
	return rows.Err()
}

func (s *Store) CreateMembership(ctx context.Context, m *models.Membership) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO memberships (id, user_id, tenant_id, active, joined_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.UserID, m.TenantID, m.Active, m.JoinedAt, m.UpdatedAt)
	if err != nil {
		return wrapWrite(err, "create membership for user %s in tenant %s", m.UserID, m.TenantID)
	}

	for _, roleID := range m.RoleIDs {
		if err := s.AddMembershipRole(ctx, m.ID, roleID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) MembershipFor(ctx context.Context, userID string, tenantID uuid.UUID) (*models.Membership, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+membershipColumns+" FROM memberships WHERE user_id = $1 AND tenant_id = $2",
		userID, tenantID)
	m, err := scanMembership(row)
	if err != nil {
		return nil, wrapRead(err, "membership for user %s in tenant %s", userID, tenantID)
	}
	if err := s.loadMembershipRoles(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Store) ActiveMembershipFor(ctx context.Context, userID string, tenantID uuid.UUID) (*models.Membership, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+membershipColumns+" FROM memberships WHERE user_id = $1 AND tenant_id = $2 AND active",
		userID, tenantID)
	m, err := scanMembership(row)
	if err != nil {
		return nil, wrapRead(err, "active membership for user %s in tenant %s", userID, tenantID)
	}
	if err := s.loadMembershipRoles(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Store) ActiveMemberships(ctx context.Context, tenantID uuid.UUID) ([]*models.Membership, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+membershipColumns+" FROM memberships WHERE tenant_id = $1 AND active ORDER BY joined_at",
		tenantID)
	if err != nil {
		return nil, fmt.Errorf("list active memberships: %w", err)
	}
	defer rows.Close()

	var out []*models.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, m := range out {
		if err := s.loadMembershipRoles(ctx, m); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) SetMembershipActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE memberships SET active = $2, updated_at = now() WHERE id = $1", id, active)
	return execExpectOne(tag, err, "set membership %s active=%t", id, active)
}

// AddMembershipRole assigns a role, rejecting cross-tenant assignment.
// The ownership check and the insert are not atomic; the foreign keys
// keep the worst case at a dangling-free but racy double write.
func (s *Store) AddMembershipRole(ctx context.Context, membershipID, roleID uuid.UUID) error {
	var (
		membershipTenant uuid.UUID
		roleTenant       uuid.UUID
		roleName         string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT m.tenant_id, r.tenant_id, r.name
		FROM memberships m, roles r
		WHERE m.id = $1 AND r.id = $2`,
		membershipID, roleID).Scan(&membershipTenant, &roleTenant, &roleName)
	if err != nil {
		return wrapRead(err, "add role %s to membership %s", roleID, membershipID)
	}

	if membershipTenant != roleTenant {
		return &models.CrossTenantError{
			Object:       "role",
			Name:         roleName,
			OwnerTenant:  roleTenant.String(),
			TargetTenant: membershipTenant.String(),
		}
	}

	// Re-assignment is a no-op.
	_, err = s.pool.Exec(ctx, `
		INSERT INTO membership_roles (membership_id, role_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		membershipID, roleID)
	if err != nil {
		return fmt.Errorf("add role %s to membership %s: %w", roleID, membershipID, err)
	}
	return nil
}

func (s *Store) RemoveMembershipRole(ctx context.Context, membershipID, roleID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		"DELETE FROM membership_roles WHERE membership_id = $1 AND role_id = $2",
		membershipID, roleID)
	if err != nil {
		return fmt.Errorf("remove role %s from membership %s: %w", roleID, membershipID, err)
	}
	return nil
}

var _ store.MembershipStore = (*Store)(nil)
