// TenantGuard - Tenant-Aware Authentication and Authorization for Go
// Copyright 2026 TenantGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tenantguard/tenantguard

// Package authn provides optional authentication helpers that produce the
// user contract the rest of the library consumes: a tenant-aware password
// authenticator and a JWT bearer-token parser.
//
// The library never requires this package; host applications with their
// own authentication attach users through middleware.UserFunc instead.
package authn

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/tenantguard/tenantguard/audit"
	"github.com/tenantguard/tenantguard/models"
	"github.com/tenantguard/tenantguard/store"
)

// ErrInvalidCredentials is returned for every authentication failure the
// caller may surface to the client. The specific reason is recorded in
// the audit trail only, never in the response, so failures are
// indistinguishable to an attacker.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Credential is one stored login record.
type Credential struct {
	// UserID is the stable identifier memberships key on.
	UserID string

	// Username is the login name and audit display name.
	Username string

	// PasswordHash is a bcrypt hash of the password.
	PasswordHash []byte

	// Active gates login; inactive users fail authentication.
	Active bool

	// Superuser marks global superuser status, carried into the
	// resulting user object.
	Superuser bool
}

// CredentialStore looks up login records. Implementations report unknown
// usernames with store.ErrNotFound.
type CredentialStore interface {
	CredentialByUsername(ctx context.Context, username string) (*Credential, error)
}

// dummyHash is compared against when the username is unknown, so the
// response time does not reveal whether the account exists.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("tenantguard-timing-level"), bcrypt.DefaultCost)

// PasswordAuthenticator verifies username/password logins, optionally
// scoped to a tenant: when a tenant is supplied, the user must hold an
// active membership in it and the tenant must be active.
type PasswordAuthenticator struct {
	credentials CredentialStore
	memberships store.MembershipStore
	sink        audit.Sink
}

// NewPasswordAuthenticator builds the authenticator. memberships may be
// nil when tenant-scoped login is never used; sink defaults to audit.Nop.
func NewPasswordAuthenticator(credentials CredentialStore, memberships store.MembershipStore, sink audit.Sink) *PasswordAuthenticator {
	if sink == nil {
		sink = audit.Nop{}
	}
	return &PasswordAuthenticator{
		credentials: credentials,
		memberships: memberships,
		sink:        sink,
	}
}

// Authenticate verifies the credentials and, when tenant is non-nil, the
// user's active membership in it. On success it returns the user object;
// every failure returns ErrInvalidCredentials after emitting an
// authentication_failed audit event carrying the specific reason.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, username, password string, tenant *models.Tenant) (models.User, error) {
	cred, err := a.credentials.CredentialByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn a comparison anyway to level response timing.
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			a.fail(username, tenant, "user_not_found")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("authn: credential lookup: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(cred.PasswordHash, []byte(password)); err != nil {
		a.fail(username, tenant, "invalid_password")
		return nil, ErrInvalidCredentials
	}

	if !cred.Active {
		a.fail(username, tenant, "user_inactive")
		return nil, ErrInvalidCredentials
	}

	if tenant != nil {
		if !tenant.Active {
			a.fail(username, tenant, "tenant_inactive")
			return nil, ErrInvalidCredentials
		}
		if _, err := a.memberships.ActiveMembershipFor(ctx, cred.UserID, tenant.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				a.fail(username, tenant, "no_tenant_membership")
				return nil, ErrInvalidCredentials
			}
			return nil, fmt.Errorf("authn: membership lookup: %w", err)
		}
	}

	user := models.UserInfo{
		UserID:   cred.UserID,
		Name:     cred.Username,
		IsAuthed: true,
		IsSuper:  cred.Superuser,
	}
	a.sink.Emit((&audit.Event{
		Name:    audit.EventAuthenticationSuccess,
		Success: true,
	}).WithUser(user).WithTenant(tenant))
	return user, nil
}

func (a *PasswordAuthenticator) fail(username string, tenant *models.Tenant, reason string) {
	a.sink.Emit((&audit.Event{
		Name:     audit.EventAuthenticationFailed,
		Success:  false,
		Username: username,
		Extra:    map[string]any{"reason": reason},
	}).WithTenant(tenant))
}

// HashPassword produces a bcrypt hash suitable for Credential.PasswordHash.
func HashPassword(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("authn: hash password: %w", err)
	}
	return hash, nil
}
