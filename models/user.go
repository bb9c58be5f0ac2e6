// TenantGuard - Tenant-Aware Authentication and Authorization for Go
// Copyright 2026 TenantGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tenantguard/tenantguard

package models

// User is the contract TenantGuard expects from the host application's
// authentication layer. The library never authenticates requests itself
// (except through the optional authn package); it consumes whatever user
// object the surrounding pipeline attaches.
type User interface {
	// ID returns a stable identifier for the user. Membership records
	// key on this value.
	ID() string

	// DisplayName returns a human-readable name for audit output.
	DisplayName() string

	// Authenticated reports whether the user has been authenticated.
	Authenticated() bool

	// Superuser reports whether the user holds global superuser status.
	// With superuser bypass enabled (the default), superusers pass every
	// permission check without membership.
	Superuser() bool
}

// UserInfo is a plain-struct User implementation, used by the authn
// package and convenient for tests and host applications without their
// own user type.
type UserInfo struct {
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	IsAuthed bool   `json:"authenticated"`
	IsSuper  bool   `json:"superuser"`
}

func (u UserInfo) ID() string          { return u.UserID }
func (u UserInfo) DisplayName() string { return u.Name }
func (u UserInfo) Authenticated() bool { return u.IsAuthed }
func (u UserInfo) Superuser() bool     { return u.IsSuper }
