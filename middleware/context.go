// TenantGuard - Tenant-Aware Authentication and Authorization for Go
// Copyright 2026 TenantGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tenantguard/tenantguard

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/tenantguard/tenantguard/authz"
	"github.com/tenantguard/tenantguard/models"
)

type contextKey int

const (
	tenantContextKey contextKey = iota
	tenantUserContextKey
)

// ContextWithTenant attaches a resolved tenant to the context.
func ContextWithTenant(ctx context.Context, t *models.Tenant) context.Context {
	return context.WithValue(ctx, tenantContextKey, t)
}

// TenantFromContext returns the tenant attached by the resolution stage.
// The second return is false when no tenant was resolved (exempt path,
// lenient failure policy, or stage not installed).
func TenantFromContext(ctx context.Context) (*models.Tenant, bool) {
	t, ok := ctx.Value(tenantContextKey).(*models.Tenant)
	if !ok || t == nil {
		return nil, false
	}
	return t, true
}

// ContextWithTenantUser attaches an identity context.
func ContextWithTenantUser(ctx context.Context, tu *authz.TenantUser) context.Context {
	return context.WithValue(ctx, tenantUserContextKey, tu)
}

// TenantUserFromContext returns the identity context attached by the
// identity stage, or false when the stage left it absent.
func TenantUserFromContext(ctx context.Context) (*authz.TenantUser, bool) {
	tu, ok := ctx.Value(tenantUserContextKey).(*authz.TenantUser)
	if !ok || tu == nil {
		return nil, false
	}
	return tu, true
}

// clientIP extracts the originating client address, honoring
// X-Forwarded-For when present (first hop).
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.Index(xff, ","); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}
	return host
}
