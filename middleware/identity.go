// TenantGuard - Tenant-Aware Authentication and Authorization for Go
// Copyright 2026 TenantGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tenantguard/tenantguard

package middleware

import (
	"net/http"

	"github.com/tenantguard/tenantguard/authz"
	"github.com/tenantguard/tenantguard/models"
)

// UserFunc extracts the authenticated user from a request. It is the
// bridge to the host application's authentication layer: return nil (or a
// user whose Authenticated() is false) for anonymous requests.
type UserFunc func(r *http.Request) models.User

// WithTenantUser builds the identity construction stage. It runs after
// ResolveTenant and after authentication, and attaches a fresh identity
// context only when both an authenticated user and a resolved tenant are
// present. Otherwise the identity slot stays absent for this request; it
// is never carried over from a previous one.
func WithTenantUser(checker *authz.Checker, userFn UserFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenant, ok := TenantFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			user := userFn(r)
			if user == nil || !user.Authenticated() {
				next.ServeHTTP(w, r)
				return
			}

			tu := authz.NewTenantUser(checker, user, tenant)
			next.ServeHTTP(w, r.WithContext(ContextWithTenantUser(r.Context(), tu)))
		})
	}
}
