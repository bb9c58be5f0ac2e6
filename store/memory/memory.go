// TenantGuard - Tenant-Aware Authentication and Authorization for Go
// Copyright 2026 TenantGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tenantguard/tenantguard

// Package memory provides a mutex-guarded in-memory store.Store
// implementation. It backs the library's tests and suits single-process
// deployments and demos; production deployments should use store/postgres.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tenantguard/tenantguard/models"
	"github.com/tenantguard/tenantguard/store"
)

// Store is an in-memory store.Store. Values returned from lookups are
// copies; mutating them does not affect stored state until written back.
type Store struct {
	mu          sync.RWMutex
	tenants     map[uuid.UUID]*models.Tenant
	memberships map[uuid.UUID]*models.Membership
	roles       map[uuid.UUID]*models.Role
	permissions map[uuid.UUID]*models.Permission
}

// compile-time interface check
var _ store.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		tenants:     make(map[uuid.UUID]*models.Tenant),
		memberships: make(map[uuid.UUID]*models.Membership),
		roles:       make(map[uuid.UUID]*models.Role),
		permissions: make(map[uuid.UUID]*models.Permission),
	}
}

// --- tenants ---

func (s *Store) CreateTenant(_ context.Context, t *models.Tenant) error {
	t.Normalize()
	if err := models.ValidateStruct(t); err != nil {
		return fmt.Errorf("create tenant: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.tenants {
		if existing.Slug == t.Slug {
			return fmt.Errorf("create tenant: slug %q: %w", t.Slug, store.ErrDuplicate)
		}
		if t.Domain != "" && existing.Domain == t.Domain {
			return fmt.Errorf("create tenant: domain %q: %w", t.Domain, store.ErrDuplicate)
		}
	}

	s.tenants[t.ID] = cloneTenant(t)
	return nil
}

func (s *Store) TenantByID(_ context.Context, id uuid.UUID) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tenants[id]
	if !ok {
		return nil, fmt.Errorf("tenant %s: %w", id, store.ErrNotFound)
	}
	return cloneTenant(t), nil
}

func (s *Store) TenantBySlug(_ context.Context, slug string) (*models.Tenant, error) {
	slug = strings.ToLower(slug)

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tenants {
		if t.Slug == slug {
			return cloneTenant(t), nil
		}
	}
	return nil, fmt.Errorf("tenant slug %q: %w", slug, store.ErrNotFound)
}

func (s *Store) TenantByDomain(_ context.Context, domain string) (*models.Tenant, error) {
	domain = strings.ToLower(domain)

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tenants {
		if t.Domain != "" && t.Domain == domain {
			return cloneTenant(t), nil
		}
	}
	return nil, fmt.Errorf("tenant domain %q: %w", domain, store.ErrNotFound)
}

func (s *Store) UpdateTenant(_ context.Context, t *models.Tenant) error {
	t.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tenants[t.ID]; !ok {
		return fmt.Errorf("update tenant %s: %w", t.ID, store.ErrNotFound)
	}
	for id, existing := range s.tenants {
		if id == t.ID {
			continue
		}
		if existing.Slug == t.Slug {
			return fmt.Errorf("update tenant: slug %q: %w", t.Slug, store.ErrDuplicate)
		}
		if t.Domain != "" && existing.Domain == t.Domain {
			return fmt.Errorf("update tenant: domain %q: %w", t.Domain, store.ErrDuplicate)
		}
	}

	updated := cloneTenant(t)
	updated.UpdatedAt = time.Now().UTC()
	s.tenants[t.ID] = updated
	return nil
}

func (s *Store) DeleteTenant(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tenants[id]; !ok {
		return fmt.Errorf("delete tenant %s: %w", id, store.ErrNotFound)
	}
	delete(s.tenants, id)

	// Cascade to owned objects.
	for mid, m := range s.memberships {
		if m.TenantID == id {
			delete(s.memberships, mid)
		}
	}
	for rid, r := range s.roles {
		if r.TenantID == id {
			delete(s.roles, rid)
		}
	}
	for pid, p := range s.permissions {
		if p.TenantID == id {
			delete(s.permissions, pid)
		}
	}
	return nil
}

// --- memberships ---

func (s *Store) CreateMembership(_ context.Context, m *models.Membership) error {
	if err := models.ValidateStruct(m); err != nil {
		return fmt.Errorf("create membership: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tenants[m.TenantID]; !ok {
		return fmt.Errorf("create membership: tenant %s: %w", m.TenantID, store.ErrNotFound)
	}
	for _, existing := range s.memberships {
		if existing.UserID == m.UserID && existing.TenantID == m.TenantID {
			return fmt.Errorf("create membership: user %q already in tenant %s: %w",
				m.UserID, m.TenantID, store.ErrDuplicate)
		}
	}
	for _, roleID := range m.RoleIDs {
		role, ok := s.roles[roleID]
		if !ok {
			return fmt.Errorf("create membership: role %s: %w", roleID, store.ErrNotFound)
		}
		if role.TenantID != m.TenantID {
			return &models.CrossTenantError{
				Object:       "role",
				Name:         role.Name,
				OwnerTenant:  role.TenantID.String(),
				TargetTenant: m.TenantID.String(),
			}
		}
	}

	s.memberships[m.ID] = cloneMembership(m)
	return nil
}

func (s *Store) MembershipFor(_ context.Context, userID string, tenantID uuid.UUID) (*models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.memberships {
		if m.UserID == userID && m.TenantID == tenantID {
			return cloneMembership(m), nil
		}
	}
	return nil, fmt.Errorf("membership (%q, %s): %w", userID, tenantID, store.ErrNotFound)
}

func (s *Store) ActiveMembershipFor(ctx context.Context, userID string, tenantID uuid.UUID) (*models.Membership, error) {
	m, err := s.MembershipFor(ctx, userID, tenantID)
	if err != nil {
		return nil, err
	}
	if !m.Active {
		return nil, fmt.Errorf("membership (%q, %s) inactive: %w", userID, tenantID, store.ErrNotFound)
	}
	return m, nil
}

func (s *Store) ActiveMemberships(_ context.Context, tenantID uuid.UUID) ([]*models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Membership
	for _, m := range s.memberships {
		if m.TenantID == tenantID && m.Active {
			out = append(out, cloneMembership(m))
		}
	}
	return out, nil
}

func (s *Store) SetMembershipActive(_ context.Context, id uuid.UUID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.memberships[id]
	if !ok {
		return fmt.Errorf("membership %s: %w", id, store.ErrNotFound)
	}
	m.Active = active
	m.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) AddMembershipRole(_ context.Context, membershipID, roleID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.memberships[membershipID]
	if !ok {
		return fmt.Errorf("membership %s: %w", membershipID, store.ErrNotFound)
	}
	role, ok := s.roles[roleID]
	if !ok {
		return fmt.Errorf("role %s: %w", roleID, store.ErrNotFound)
	}
	return m.AddRole(role)
}

func (s *Store) RemoveMembershipRole(_ context.Context, membershipID, roleID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.memberships[membershipID]
	if !ok {
		return fmt.Errorf("membership %s: %w", membershipID, store.ErrNotFound)
	}
	m.RemoveRole(roleID)
	return nil
}

// --- roles ---

func (s *Store) CreateRole(_ context.Context, r *models.Role) error {
	if err := models.ValidateStruct(r); err != nil {
		return fmt.Errorf("create role: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tenants[r.TenantID]; !ok {
		return fmt.Errorf("create role: tenant %s: %w", r.TenantID, store.ErrNotFound)
	}
	for _, existing := range s.roles {
		if existing.TenantID == r.TenantID && existing.Name == r.Name {
			return fmt.Errorf("create role: name %q in tenant %s: %w",
				r.Name, r.TenantID, store.ErrDuplicate)
		}
	}
	for _, permID := range r.PermissionIDs {
		perm, ok := s.permissions[permID]
		if !ok {
			return fmt.Errorf("create role: permission %s: %w", permID, store.ErrNotFound)
		}
		if perm.TenantID != r.TenantID {
			return &models.CrossTenantError{
				Object:       "permission",
				Name:         perm.Codename,
				OwnerTenant:  perm.TenantID.String(),
				TargetTenant: r.TenantID.String(),
			}
		}
	}

	s.roles[r.ID] = cloneRole(r)
	return nil
}

func (s *Store) RoleByID(_ context.Context, id uuid.UUID) (*models.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.roles[id]
	if !ok {
		return nil, fmt.Errorf("role %s: %w", id, store.ErrNotFound)
	}
	return cloneRole(r), nil
}

func (s *Store) RoleByName(_ context.Context, tenantID uuid.UUID, name string) (*models.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.roles {
		if r.TenantID == tenantID && r.Name == name {
			return cloneRole(r), nil
		}
	}
	return nil, fmt.Errorf("role %q in tenant %s: %w", name, tenantID, store.ErrNotFound)
}

func (s *Store) SetRoleActive(_ context.Context, id uuid.UUID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.roles[id]
	if !ok {
		return fmt.Errorf("role %s: %w", id, store.ErrNotFound)
	}
	r.Active = active
	r.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) ActiveRolesForMembership(_ context.Context, membershipID uuid.UUID) ([]*models.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.memberships[membershipID]
	if !ok {
		return nil, fmt.Errorf("membership %s: %w", membershipID, store.ErrNotFound)
	}

	var out []*models.Role
	for _, roleID := range m.RoleIDs {
		r, ok := s.roles[roleID]
		if ok && r.Active {
			out = append(out, cloneRole(r))
		}
	}
	return out, nil
}

func (s *Store) AddRolePermission(_ context.Context, roleID, permissionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.roles[roleID]
	if !ok {
		return fmt.Errorf("role %s: %w", roleID, store.ErrNotFound)
	}
	perm, ok := s.permissions[permissionID]
	if !ok {
		return fmt.Errorf("permission %s: %w", permissionID, store.ErrNotFound)
	}
	return r.AddPermission(perm)
}

func (s *Store) RemoveRolePermission(_ context.Context, roleID, permissionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.roles[roleID]
	if !ok {
		return fmt.Errorf("role %s: %w", roleID, store.ErrNotFound)
	}
	r.RemovePermission(permissionID)
	return nil
}

// --- permissions ---

func (s *Store) CreatePermission(_ context.Context, p *models.Permission) error {
	if err := models.ValidateStruct(p); err != nil {
		return fmt.Errorf("create permission: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tenants[p.TenantID]; !ok {
		return fmt.Errorf("create permission: tenant %s: %w", p.TenantID, store.ErrNotFound)
	}
	for _, existing := range s.permissions {
		if existing.TenantID == p.TenantID && existing.Codename == p.Codename {
			return fmt.Errorf("create permission: codename %q in tenant %s: %w",
				p.Codename, p.TenantID, store.ErrDuplicate)
		}
	}

	s.permissions[p.ID] = clonePermission(p)
	return nil
}

func (s *Store) PermissionByCodename(_ context.Context, tenantID uuid.UUID, codename string) (*models.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.permissions {
		if p.TenantID == tenantID && p.Codename == codename {
			return clonePermission(p), nil
		}
	}
	return nil, fmt.Errorf("permission %q in tenant %s: %w", codename, tenantID, store.ErrNotFound)
}

func (s *Store) DeletePermission(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.permissions[id]; !ok {
		return fmt.Errorf("delete permission %s: %w", id, store.ErrNotFound)
	}
	delete(s.permissions, id)

	// Revoke from every role holding it.
	for _, r := range s.roles {
		r.RemovePermission(id)
	}
	return nil
}

func (s *Store) TenantPermissionCodenames(_ context.Context, tenantID uuid.UUID) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for _, p := range s.permissions {
		if p.TenantID == tenantID {
			out = append(out, p.Codename)
		}
	}
	return out, nil
}

func (s *Store) MembershipPermissionCodenames(_ context.Context, membershipID uuid.UUID) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.memberships[membershipID]
	if !ok {
		return nil, fmt.Errorf("membership %s: %w", membershipID, store.ErrNotFound)
	}

	seen := make(map[string]struct{})
	var out []string
	for _, roleID := range m.RoleIDs {
		r, ok := s.roles[roleID]
		if !ok || !r.Active {
			continue
		}
		for _, permID := range r.PermissionIDs {
			p, ok := s.permissions[permID]
			if !ok {
				continue
			}
			if _, dup := seen[p.Codename]; dup {
				continue
			}
			seen[p.Codename] = struct{}{}
			out = append(out, p.Codename)
		}
	}
	return out, nil
}

func (s *Store) MembershipHasPermission(_ context.Context, membershipID uuid.UUID, codename string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.memberships[membershipID]
	if !ok {
		return false, fmt.Errorf("membership %s: %w", membershipID, store.ErrNotFound)
	}

	for _, roleID := range m.RoleIDs {
		r, ok := s.roles[roleID]
		if !ok || !r.Active {
			continue
		}
		for _, permID := range r.PermissionIDs {
			if p, ok := s.permissions[permID]; ok && p.Codename == codename {
				return true, nil
			}
		}
	}
	return false, nil
}

// --- clone helpers ---

func cloneTenant(t *models.Tenant) *models.Tenant {
	c := *t
	if t.Metadata != nil {
		c.Metadata = make(map[string]any, len(t.Metadata))
		for k, v := range t.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

func cloneMembership(m *models.Membership) *models.Membership {
	c := *m
	c.RoleIDs = slices.Clone(m.RoleIDs)
	return &c
}

func cloneRole(r *models.Role) *models.Role {
	c := *r
	c.PermissionIDs = slices.Clone(r.PermissionIDs)
	return &c
}

func clonePermission(p *models.Permission) *models.Permission {
	c := *p
	return &c
}
