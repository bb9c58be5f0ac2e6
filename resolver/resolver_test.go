// TenantGuard - Tenant-Aware Authentication and Authorization for Go
// Copyright 2026 TenantGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tenantguard/tenantguard

package resolver

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/tenantguard/tenantguard/models"
	"github.com/tenantguard/tenantguard/store/memory"
)

func setupStore(t *testing.T) (*memory.Store, *models.Tenant) {
	t.Helper()
	s := memory.New()
	tenant := models.NewTenant("Acme Corp", "acme")
	tenant.Domain = "acme.example.com"
	if err := s.CreateTenant(context.Background(), tenant); err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	return s, tenant
}

func TestNewValidation(t *testing.T) {
	s, _ := setupStore(t)

	tests := []struct {
		name     string
		strategy Strategy
		opts     Options
		wantErr  bool
	}{
		{"domain needs nothing", StrategyDomain, Options{}, false},
		{"subdomain needs base domain", StrategySubdomain, Options{}, true},
		{"subdomain with base domain", StrategySubdomain, Options{BaseDomain: "example.com"}, false},
		{"path needs pattern", StrategyPath, Options{}, true},
		{"path pattern must compile", StrategyPath, Options{PathPattern: `([`}, true},
		{"path pattern needs named group", StrategyPath, Options{PathPattern: `^/t/(\w+)/`}, true},
		{"path with named group", StrategyPath, Options{PathPattern: `^/t/(?P<tenant_slug>[\w-]+)/`}, false},
		{"header needs name", StrategyHeader, Options{}, true},
		{"header with name", StrategyHeader, Options{HeaderName: "X-Tenant-Slug"}, false},
		{"unknown strategy", Strategy("cookie"), Options{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.strategy, tt.opts, s)
			if (err != nil) != tt.wantErr {
				t.Errorf("New(%s) error = %v, wantErr %t", tt.strategy, err, tt.wantErr)
			}
		})
	}
}

func TestDomainResolver(t *testing.T) {
	s, tenant := setupStore(t)
	r, err := New(StrategyDomain, Options{}, s)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	t.Run("matches host case-insensitively with port stripped", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Host = "Acme.Example.COM:8080"

		got, err := r.Resolve(context.Background(), req)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if got.ID != tenant.ID {
			t.Error("wrong tenant resolved")
		}
	})

	t.Run("unknown host fails with identifier recorded", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Host = "other.example.com"

		_, err := r.Resolve(context.Background(), req)
		var notFound *TenantNotFoundError
		if !errors.As(err, &notFound) {
			t.Fatalf("expected *TenantNotFoundError, got %v", err)
		}
		if notFound.Identifier != "other.example.com" {
			t.Errorf("expected attempted identifier in error, got %q", notFound.Identifier)
		}
	})
}

func TestSubdomainResolver(t *testing.T) {
	s, tenant := setupStore(t)
	r, err := New(StrategySubdomain, Options{BaseDomain: "example.com"}, s)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tests := []struct {
		name    string
		host    string
		wantID  bool
		wantErr bool
	}{
		{"plain subdomain", "acme.example.com", true, false},
		{"subdomain with port", "acme.example.com:443", true, false},
		{"nested subdomain takes leftmost label", "acme.eu.example.com", true, false},
		{"bare base domain fails", "example.com", false, true},
		{"unrelated host fails", "acme.other.com", false, true},
		{"unknown slug fails", "globex.example.com", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.Host = tt.host

			got, err := r.Resolve(context.Background(), req)
			if tt.wantErr {
				var notFound *TenantNotFoundError
				if !errors.As(err, &notFound) {
					t.Fatalf("expected *TenantNotFoundError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if tt.wantID && got.ID != tenant.ID {
				t.Error("wrong tenant resolved")
			}
		})
	}
}

func TestPathResolver(t *testing.T) {
	s, _ := setupStore(t)

	// A second tenant with a hyphenated slug, per the pattern's charset.
	corp := models.NewTenant("Acme Corp EU", "acme-corp")
	if err := s.CreateTenant(context.Background(), corp); err != nil {
		t.Fatalf("create tenant: %v", err)
	}

	r, err := New(StrategyPath, Options{PathPattern: `^/t/(?P<tenant_slug>[\w-]+)/`}, s)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	t.Run("extracts slug from path", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/t/acme-corp/dashboard/", nil)

		got, err := r.Resolve(context.Background(), req)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if got.ID != corp.ID {
			t.Error("wrong tenant resolved")
		}
	})

	t.Run("non-matching path fails", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/public/", nil)

		_, err := r.Resolve(context.Background(), req)
		var notFound *TenantNotFoundError
		if !errors.As(err, &notFound) {
			t.Fatalf("expected *TenantNotFoundError, got %v", err)
		}
	})
}

func TestHeaderResolver(t *testing.T) {
	s, tenant := setupStore(t)
	r, err := New(StrategyHeader, Options{HeaderName: "X-Tenant-Slug"}, s)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	t.Run("reads slug from header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-Tenant-Slug", "acme")

		got, err := r.Resolve(context.Background(), req)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if got.ID != tenant.ID {
			t.Error("wrong tenant resolved")
		}
	})

	t.Run("missing header fails", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)

		_, err := r.Resolve(context.Background(), req)
		var notFound *TenantNotFoundError
		if !errors.As(err, &notFound) {
			t.Fatalf("expected *TenantNotFoundError, got %v", err)
		}
	})

	t.Run("empty header fails", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-Tenant-Slug", "   ")

		_, err := r.Resolve(context.Background(), req)
		var notFound *TenantNotFoundError
		if !errors.As(err, &notFound) {
			t.Fatalf("expected *TenantNotFoundError, got %v", err)
		}
	})
}

func TestInactiveTenantDistinctFromNotFound(t *testing.T) {
	s, tenant := setupStore(t)

	tenant.Active = false
	if err := s.UpdateTenant(context.Background(), tenant); err != nil {
		t.Fatalf("deactivate tenant: %v", err)
	}

	r, err := New(StrategyHeader, Options{HeaderName: "X-Tenant-Slug"}, s)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Tenant-Slug", "acme")

	_, err = r.Resolve(context.Background(), req)
	var inactive *TenantInactiveError
	if !errors.As(err, &inactive) {
		t.Fatalf("expected *TenantInactiveError, got %v", err)
	}
	if inactive.Tenant.Slug != "acme" {
		t.Errorf("expected matched tenant in error, got %q", inactive.Tenant.Slug)
	}
}
