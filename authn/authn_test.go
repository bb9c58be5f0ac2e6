// TenantGuard - Tenant-Aware Authentication and Authorization for Go
// Copyright 2026 TenantGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tenantguard/tenantguard

package authn

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/tenantguard/tenantguard/audit"
	"github.com/tenantguard/tenantguard/models"
	"github.com/tenantguard/tenantguard/store"
	"github.com/tenantguard/tenantguard/store/memory"
)

// recordingSink captures emitted events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []*audit.Event
}

func (s *recordingSink) Emit(e *audit.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) lastReason(t *testing.T) string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		t.Fatal("expected an audit event")
	}
	last := s.events[len(s.events)-1]
	reason, _ := last.Extra["reason"].(string)
	return reason
}

type mapCredentials map[string]*Credential

func (m mapCredentials) CredentialByUsername(_ context.Context, username string) (*Credential, error) {
	cred, ok := m[username]
	if !ok {
		return nil, fmt.Errorf("credential %q: %w", username, store.ErrNotFound)
	}
	return cred, nil
}

func newCredential(t *testing.T, username, password string, active bool) *Credential {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return &Credential{
		UserID:       "uid-" + username,
		Username:     username,
		PasswordHash: hash,
		Active:       active,
	}
}

func TestPasswordAuthenticate(t *testing.T) {
	ctx := context.Background()
	creds := mapCredentials{
		"alice":   newCredential(t, "alice", "s3cret", true),
		"dormant": newCredential(t, "dormant", "s3cret", false),
	}

	s := memory.New()
	tenant := models.NewTenant("Acme", "acme")
	if err := s.CreateTenant(ctx, tenant); err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	m := models.NewMembership("uid-alice", tenant.ID)
	if err := s.CreateMembership(ctx, m); err != nil {
		t.Fatalf("create membership: %v", err)
	}

	sink := &recordingSink{}
	auth := NewPasswordAuthenticator(creds, s, sink)

	t.Run("valid credentials without tenant", func(t *testing.T) {
		user, err := auth.Authenticate(ctx, "alice", "s3cret", nil)
		if err != nil {
			t.Fatalf("authenticate: %v", err)
		}
		if user.ID() != "uid-alice" || !user.Authenticated() {
			t.Errorf("unexpected user %+v", user)
		}
	})

	t.Run("valid credentials with membership", func(t *testing.T) {
		if _, err := auth.Authenticate(ctx, "alice", "s3cret", tenant); err != nil {
			t.Fatalf("authenticate: %v", err)
		}
	})

	tests := []struct {
		name       string
		username   string
		password   string
		tenant     *models.Tenant
		wantReason string
	}{
		{"unknown user", "mallory", "whatever", nil, "user_not_found"},
		{"wrong password", "alice", "wrong", nil, "invalid_password"},
		{"inactive user", "dormant", "s3cret", nil, "user_inactive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.Authenticate(ctx, tt.username, tt.password, tt.tenant)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
			if reason := sink.lastReason(t); reason != tt.wantReason {
				t.Errorf("expected audit reason %q, got %q", tt.wantReason, reason)
			}
		})
	}

	t.Run("no membership in tenant", func(t *testing.T) {
		other := models.NewTenant("Globex", "globex")
		if err := s.CreateTenant(ctx, other); err != nil {
			t.Fatalf("create tenant: %v", err)
		}
		_, err := auth.Authenticate(ctx, "alice", "s3cret", other)
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
		if reason := sink.lastReason(t); reason != "no_tenant_membership" {
			t.Errorf("expected reason no_tenant_membership, got %q", reason)
		}
	})

	t.Run("inactive tenant", func(t *testing.T) {
		tenant.Active = false
		if err := s.UpdateTenant(ctx, tenant); err != nil {
			t.Fatalf("deactivate tenant: %v", err)
		}
		_, err := auth.Authenticate(ctx, "alice", "s3cret", tenant)
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
		if reason := sink.lastReason(t); reason != "tenant_inactive" {
			t.Errorf("expected reason tenant_inactive, got %q", reason)
		}
	})
}

func TestTokenManagerRoundTrip(t *testing.T) {
	tm, err := NewTokenManager("0123456789abcdef0123456789abcdef", time.Hour)
	if err != nil {
		t.Fatalf("new token manager: %v", err)
	}

	alice := models.UserInfo{UserID: "uid-alice", Name: "alice", IsAuthed: true, IsSuper: true}
	token, err := tm.GenerateToken(alice)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	user, err := tm.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if user.ID() != "uid-alice" || user.DisplayName() != "alice" {
		t.Errorf("unexpected user %+v", user)
	}
	if !user.Superuser() {
		t.Error("superuser flag must survive the round trip")
	}
}

func TestTokenManagerRejects(t *testing.T) {
	tm, err := NewTokenManager("0123456789abcdef0123456789abcdef", time.Hour)
	if err != nil {
		t.Fatalf("new token manager: %v", err)
	}

	t.Run("short secret", func(t *testing.T) {
		if _, err := NewTokenManager("short", time.Hour); err == nil {
			t.Error("expected error for short secret")
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		if _, err := tm.ValidateToken("not.a.token"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewTokenManager("ffffffffffffffffffffffffffffffff", time.Hour)
		if err != nil {
			t.Fatalf("new token manager: %v", err)
		}
		token, err := other.GenerateToken(models.UserInfo{UserID: "u", IsAuthed: true})
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if _, err := tm.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})
}

func TestUserFromRequest(t *testing.T) {
	tm, err := NewTokenManager("0123456789abcdef0123456789abcdef", time.Hour)
	if err != nil {
		t.Fatalf("new token manager: %v", err)
	}
	token, err := tm.GenerateToken(models.UserInfo{UserID: "uid-alice", Name: "alice", IsAuthed: true})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	t.Run("bearer token accepted", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		user, err := tm.UserFromRequest(req)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if user.ID() != "uid-alice" {
			t.Errorf("unexpected user %+v", user)
		}
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		if _, err := tm.UserFromRequest(req); !errors.Is(err, ErrNoToken) {
			t.Errorf("expected ErrNoToken, got %v", err)
		}
	})

	t.Run("wrong scheme", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Basic abc")
		if _, err := tm.UserFromRequest(req); !errors.Is(err, ErrNoToken) {
			t.Errorf("expected ErrNoToken, got %v", err)
		}
	})
}
