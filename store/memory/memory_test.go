// TenantGuard - Tenant-Aware Authentication and Authorization for Go
// Copyright 2026 TenantGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tenantguard/tenantguard

package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/tenantguard/tenantguard/models"
	"github.com/tenantguard/tenantguard/store"
)

func mustCreateTenant(t *testing.T, s *Store, name, slug string) *models.Tenant {
	t.Helper()
	tenant := models.NewTenant(name, slug)
	if err := s.CreateTenant(context.Background(), tenant); err != nil {
		t.Fatalf("create tenant %q: %v", slug, err)
	}
	return tenant
}

func mustCreateMembership(t *testing.T, s *Store, userID string, tenant *models.Tenant) *models.Membership {
	t.Helper()
	m := models.NewMembership(userID, tenant.ID)
	if err := s.CreateMembership(context.Background(), m); err != nil {
		t.Fatalf("create membership for %q: %v", userID, err)
	}
	return m
}

func mustCreateRole(t *testing.T, s *Store, tenant *models.Tenant, name string) *models.Role {
	t.Helper()
	r := models.NewRole(tenant.ID, name)
	if err := s.CreateRole(context.Background(), r); err != nil {
		t.Fatalf("create role %q: %v", name, err)
	}
	return r
}

func mustCreatePermission(t *testing.T, s *Store, tenant *models.Tenant, codename string) *models.Permission {
	t.Helper()
	p := models.NewPermission(tenant.ID, codename, codename)
	if err := s.CreatePermission(context.Background(), p); err != nil {
		t.Fatalf("create permission %q: %v", codename, err)
	}
	return p
}

func TestTenantLookups(t *testing.T) {
	ctx := context.Background()
	s := New()

	tenant := models.NewTenant("Acme Corp", "ACME")
	tenant.Domain = "Acme.Example.COM"
	if err := s.CreateTenant(ctx, tenant); err != nil {
		t.Fatalf("create tenant: %v", err)
	}

	t.Run("by slug is case-insensitive", func(t *testing.T) {
		got, err := s.TenantBySlug(ctx, "AcMe")
		if err != nil {
			t.Fatalf("lookup: %v", err)
		}
		if got.ID != tenant.ID {
			t.Error("wrong tenant returned")
		}
	})

	t.Run("by domain is case-insensitive", func(t *testing.T) {
		got, err := s.TenantByDomain(ctx, "ACME.example.com")
		if err != nil {
			t.Fatalf("lookup: %v", err)
		}
		if got.ID != tenant.ID {
			t.Error("wrong tenant returned")
		}
	})

	t.Run("unknown slug is ErrNotFound", func(t *testing.T) {
		_, err := s.TenantBySlug(ctx, "nope")
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("duplicate slug is ErrDuplicate", func(t *testing.T) {
		dup := models.NewTenant("Other", "acme")
		if err := s.CreateTenant(ctx, dup); !errors.Is(err, store.ErrDuplicate) {
			t.Errorf("expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("duplicate domain is ErrDuplicate", func(t *testing.T) {
		dup := models.NewTenant("Other", "other")
		dup.Domain = "acme.example.com"
		if err := s.CreateTenant(ctx, dup); !errors.Is(err, store.ErrDuplicate) {
			t.Errorf("expected ErrDuplicate, got %v", err)
		}
	})
}

func TestMembershipUniqueness(t *testing.T) {
	ctx := context.Background()
	s := New()
	tenant := mustCreateTenant(t, s, "Acme", "acme")

	mustCreateMembership(t, s, "user-1", tenant)

	second := models.NewMembership("user-1", tenant.ID)
	if err := s.CreateMembership(ctx, second); !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate for second (user, tenant) membership, got %v", err)
	}

	// The same user may join another tenant.
	other := mustCreateTenant(t, s, "Globex", "globex")
	mustCreateMembership(t, s, "user-1", other)
}

func TestActiveMembershipFor(t *testing.T) {
	ctx := context.Background()
	s := New()
	tenant := mustCreateTenant(t, s, "Acme", "acme")
	m := mustCreateMembership(t, s, "user-1", tenant)

	if _, err := s.ActiveMembershipFor(ctx, "user-1", tenant.ID); err != nil {
		t.Fatalf("expected active membership, got %v", err)
	}

	if err := s.SetMembershipActive(ctx, m.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	if _, err := s.ActiveMembershipFor(ctx, "user-1", tenant.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for deactivated membership, got %v", err)
	}
	// The record itself survives deactivation.
	if _, err := s.MembershipFor(ctx, "user-1", tenant.ID); err != nil {
		t.Errorf("expected record to survive deactivation, got %v", err)
	}
}

func TestCrossTenantAssignmentRejected(t *testing.T) {
	ctx := context.Background()
	s := New()
	tenantA := mustCreateTenant(t, s, "Acme", "acme")
	tenantB := mustCreateTenant(t, s, "Globex", "globex")

	roleA := mustCreateRole(t, s, tenantA, "Manager")
	membershipB := mustCreateMembership(t, s, "user-1", tenantB)

	t.Run("role from tenant A to membership in tenant B", func(t *testing.T) {
		err := s.AddMembershipRole(ctx, membershipB.ID, roleA.ID)
		var cross *models.CrossTenantError
		if !errors.As(err, &cross) {
			t.Fatalf("expected *models.CrossTenantError, got %v", err)
		}
	})

	t.Run("permission from tenant A to role in tenant B", func(t *testing.T) {
		roleB := mustCreateRole(t, s, tenantB, "Manager")
		permA := mustCreatePermission(t, s, tenantA, "orders.view_order")

		err := s.AddRolePermission(ctx, roleB.ID, permA.ID)
		var cross *models.CrossTenantError
		if !errors.As(err, &cross) {
			t.Fatalf("expected *models.CrossTenantError, got %v", err)
		}
	})
}

func TestInactiveRoleExclusion(t *testing.T) {
	ctx := context.Background()
	s := New()
	tenant := mustCreateTenant(t, s, "Acme", "acme")
	m := mustCreateMembership(t, s, "user-1", tenant)
	role := mustCreateRole(t, s, tenant, "Manager")
	perm := mustCreatePermission(t, s, tenant, "orders.view_order")

	if err := s.AddRolePermission(ctx, role.ID, perm.ID); err != nil {
		t.Fatalf("grant permission: %v", err)
	}
	if err := s.AddMembershipRole(ctx, m.ID, role.ID); err != nil {
		t.Fatalf("assign role: %v", err)
	}

	ok, err := s.MembershipHasPermission(ctx, m.ID, "orders.view_order")
	if err != nil || !ok {
		t.Fatalf("expected grant through active role, got ok=%t err=%v", ok, err)
	}

	if err := s.SetRoleActive(ctx, role.ID, false); err != nil {
		t.Fatalf("deactivate role: %v", err)
	}

	ok, err = s.MembershipHasPermission(ctx, m.ID, "orders.view_order")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if ok {
		t.Error("permission reachable only through an inactive role must not count")
	}

	roles, err := s.ActiveRolesForMembership(ctx, m.ID)
	if err != nil {
		t.Fatalf("active roles: %v", err)
	}
	if len(roles) != 0 {
		t.Errorf("expected no active roles, got %d", len(roles))
	}
}

func TestMembershipPermissionCodenamesDeduplicated(t *testing.T) {
	ctx := context.Background()
	s := New()
	tenant := mustCreateTenant(t, s, "Acme", "acme")
	m := mustCreateMembership(t, s, "user-1", tenant)

	view := mustCreatePermission(t, s, tenant, "orders.view_order")
	edit := mustCreatePermission(t, s, tenant, "orders.edit_order")

	manager := mustCreateRole(t, s, tenant, "Manager")
	viewer := mustCreateRole(t, s, tenant, "Viewer")

	for _, grant := range []struct {
		role *models.Role
		perm *models.Permission
	}{
		{manager, view}, {manager, edit}, {viewer, view},
	} {
		if err := s.AddRolePermission(ctx, grant.role.ID, grant.perm.ID); err != nil {
			t.Fatalf("grant: %v", err)
		}
	}
	for _, role := range []*models.Role{manager, viewer} {
		if err := s.AddMembershipRole(ctx, m.ID, role.ID); err != nil {
			t.Fatalf("assign: %v", err)
		}
	}

	codenames, err := s.MembershipPermissionCodenames(ctx, m.ID)
	if err != nil {
		t.Fatalf("enumerate: %v", err)
	}
	if len(codenames) != 2 {
		t.Errorf("expected deduplicated set of 2 codenames, got %v", codenames)
	}
}

func TestDeletePermissionDetachesFromRoles(t *testing.T) {
	ctx := context.Background()
	s := New()
	tenant := mustCreateTenant(t, s, "Acme", "acme")
	m := mustCreateMembership(t, s, "user-1", tenant)
	role := mustCreateRole(t, s, tenant, "Manager")
	perm := mustCreatePermission(t, s, tenant, "orders.view_order")

	if err := s.AddRolePermission(ctx, role.ID, perm.ID); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := s.AddMembershipRole(ctx, m.ID, role.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	if err := s.DeletePermission(ctx, perm.ID); err != nil {
		t.Fatalf("delete permission: %v", err)
	}

	ok, err := s.MembershipHasPermission(ctx, m.ID, "orders.view_order")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if ok {
		t.Error("deleted permission must be revoked from every role holding it")
	}

	got, err := s.RoleByID(ctx, role.ID)
	if err != nil {
		t.Fatalf("role: %v", err)
	}
	if len(got.PermissionIDs) != 0 {
		t.Errorf("expected permission detached from role, got %v", got.PermissionIDs)
	}
}

func TestDeleteTenantCascades(t *testing.T) {
	ctx := context.Background()
	s := New()
	tenant := mustCreateTenant(t, s, "Acme", "acme")
	m := mustCreateMembership(t, s, "user-1", tenant)
	role := mustCreateRole(t, s, tenant, "Manager")
	perm := mustCreatePermission(t, s, tenant, "orders.view_order")

	if err := s.DeleteTenant(ctx, tenant.ID); err != nil {
		t.Fatalf("delete tenant: %v", err)
	}

	if _, err := s.MembershipFor(ctx, "user-1", tenant.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected membership cascade, got %v", err)
	}
	if _, err := s.RoleByID(ctx, role.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected role cascade, got %v", err)
	}
	if _, err := s.PermissionByCodename(ctx, tenant.ID, perm.Codename); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected permission cascade, got %v", err)
	}
	_ = m
}

func TestCreatePermissionRejectsInvalidCodename(t *testing.T) {
	ctx := context.Background()
	s := New()
	tenant := mustCreateTenant(t, s, "Acme", "acme")

	p := models.NewPermission(tenant.ID, "Orders.View", "View")
	err := s.CreatePermission(ctx, p)
	var invalid *models.InvalidCodenameError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected *models.InvalidCodenameError, got %v", err)
	}
}

func TestDuplicateRoleNamePerTenant(t *testing.T) {
	ctx := context.Background()
	s := New()
	tenant := mustCreateTenant(t, s, "Acme", "acme")
	other := mustCreateTenant(t, s, "Globex", "globex")

	mustCreateRole(t, s, tenant, "Manager")

	dup := models.NewRole(tenant.ID, "Manager")
	if err := s.CreateRole(ctx, dup); !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate for same (tenant, name), got %v", err)
	}

	// Same name in a different tenant is fine.
	mustCreateRole(t, s, other, "Manager")
}
