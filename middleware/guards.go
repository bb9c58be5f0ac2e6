// TenantGuard - Tenant-Aware Authentication and Authorization for Go
// Copyright 2026 TenantGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tenantguard/tenantguard

package middleware

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/tenantguard/tenantguard/audit"
	"github.com/tenantguard/tenantguard/authz"
	"github.com/tenantguard/tenantguard/logging"
	"github.com/tenantguard/tenantguard/models"
)

// Guards builds the declarative route guards. Page-flavored guards answer
// failures with redirects (unauthenticated) and plain 403s (denied); the
// API flavors in api.go answer with JSON 401/403.
type Guards struct {
	// Checker evaluates permission queries. Required.
	Checker *authz.Checker

	// User extracts the authenticated user from the request. Required.
	User UserFunc

	// Audit receives an access_denied event per guard denial.
	// Defaults to audit.Nop.
	Audit audit.Sink

	// LoginURL is the redirect target for unauthenticated page requests.
	// Defaults to "/login". The original URL is carried in a "next"
	// query parameter.
	LoginURL string
}

// PermissionRequirement parameterizes RequirePermissions.
type PermissionRequirement struct {
	// Codenames lists the required permission codenames.
	Codenames []string

	// RequireAll demands every codename; false means any one suffices.
	RequireAll bool

	// RedirectURL, when set, turns a denial into a redirect instead of a
	// 403 response.
	RedirectURL string
}

// RoleRequirement parameterizes RequireRoles. Role names are
// tenant-defined free text, not namespaced codenames; no format
// validation applies to them.
type RoleRequirement struct {
	Names       []string
	RequireAll  bool
	RedirectURL string
}

func (g *Guards) sink() audit.Sink {
	if g.Audit == nil {
		return audit.Nop{}
	}
	return g.Audit
}

func (g *Guards) loginURL() string {
	if g.LoginURL == "" {
		return "/login"
	}
	return g.LoginURL
}

// redirectToLogin sends the browser to the login page with the original
// URL in the "next" parameter.
func (g *Guards) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := g.loginURL() + "?next=" + url.QueryEscape(r.URL.RequestURI())
	http.Redirect(w, r, target, http.StatusFound)
}

func (g *Guards) denied(w http.ResponseWriter, r *http.Request, user models.User, reason string, required []string) {
	tenant, _ := TenantFromContext(r.Context())
	extra := map[string]any{"reason": reason}
	if len(required) > 0 {
		extra["required"] = required
	}
	g.sink().Emit((&audit.Event{
		Name:     audit.EventAccessDenied,
		Success:  false,
		Path:     r.URL.Path,
		Method:   r.Method,
		ClientIP: clientIP(r),
		Extra:    extra,
	}).WithUser(user).WithTenant(tenant))

	http.Error(w, "Forbidden", http.StatusForbidden)
}

// identity returns the request's identity context, constructing one on
// the fly when the identity stage is not installed but both user and
// tenant are available.
func (g *Guards) identity(r *http.Request, user models.User) (*authz.TenantUser, bool) {
	if tu, ok := TenantUserFromContext(r.Context()); ok {
		return tu, true
	}
	tenant, ok := TenantFromContext(r.Context())
	if !ok {
		return nil, false
	}
	return authz.NewTenantUser(g.Checker, user, tenant), true
}

// RequireLogin redirects unauthenticated requests to the login page.
func (g *Guards) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := g.User(r)
		if user == nil || !user.Authenticated() {
			g.redirectToLogin(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireMember requires an authenticated user with an active membership
// in the resolved tenant. Superuser bypass short-circuits when the
// checker has it enabled. A missing tenant context is a denial, not a
// redirect: the user is authenticated, the pipeline just has no tenant.
func (g *Guards) RequireMember(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := g.User(r)
		if user == nil || !user.Authenticated() {
			g.redirectToLogin(w, r)
			return
		}

		if g.Checker.SuperuserBypass() && user.Superuser() {
			next.ServeHTTP(w, r)
			return
		}

		tu, ok := g.identity(r, user)
		if !ok {
			g.denied(w, r, user, "no_tenant_context", nil)
			return
		}

		member, err := tu.IsMember(r.Context())
		if err != nil {
			logging.Error().Err(err).Str("path", r.URL.Path).Msg("Membership check failed")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if !member {
			g.denied(w, r, user, "membership_required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePermissions requires the listed permission codenames, in all or
// any mode. Membership is implied: a non-member holds no permissions.
// Denials answer with 403 or, when RedirectURL is set, a redirect.
func (g *Guards) RequirePermissions(req PermissionRequirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := g.User(r)
			if user == nil || !user.Authenticated() {
				g.redirectToLogin(w, r)
				return
			}

			err := g.checkPermissions(r, user, req)
			if err != nil {
				reason, ok := denialReason(err)
				if !ok {
					logging.Error().Err(err).Str("path", r.URL.Path).Msg("Permission check failed")
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
					return
				}
				g.deniedOrRedirect(w, r, user, reason, req.Codenames, req.RedirectURL)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// checkPermissions runs the typed permission requirement against the
// request's identity context, building one on the fly when the identity
// stage is not installed.
func (g *Guards) checkPermissions(r *http.Request, user models.User, req PermissionRequirement) error {
	tu, ok := TenantUserFromContext(r.Context())
	if !ok {
		tenant, _ := TenantFromContext(r.Context())
		tu = authz.NewTenantUser(g.Checker, user, tenant)
	}
	return tu.RequirePermissions(r.Context(), req.Codenames, req.RequireAll)
}

// denialReason maps the denial taxonomy to audit reason strings. The
// second return is false for unexpected (store) errors.
func denialReason(err error) (string, bool) {
	var denied *authz.PermissionDeniedError
	switch {
	case errors.Is(err, authz.ErrNoTenantContext):
		return "no_tenant_context", true
	case errors.Is(err, authz.ErrMembershipRequired):
		return "membership_required", true
	case errors.As(err, &denied):
		return "permission_denied", true
	}
	return "", false
}

func (g *Guards) deniedOrRedirect(w http.ResponseWriter, r *http.Request, user models.User, reason string, required []string, redirectURL string) {
	if redirectURL != "" {
		tenant, _ := TenantFromContext(r.Context())
		extra := map[string]any{"reason": reason}
		if len(required) > 0 {
			extra["required"] = required
		}
		g.sink().Emit((&audit.Event{
			Name:     audit.EventAccessDenied,
			Success:  false,
			Path:     r.URL.Path,
			Method:   r.Method,
			ClientIP: clientIP(r),
			Extra:    extra,
		}).WithUser(user).WithTenant(tenant))
		http.Redirect(w, r, redirectURL, http.StatusFound)
		return
	}
	g.denied(w, r, user, reason, required)
}

// RequireRoles requires the listed role names among the membership's
// active roles, in all or any mode.
func (g *Guards) RequireRoles(req RoleRequirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := g.User(r)
			if user == nil || !user.Authenticated() {
				g.redirectToLogin(w, r)
				return
			}

			tu, ok := g.identity(r, user)
			if !ok {
				g.deniedOrRedirect(w, r, user, "no_tenant_context", req.Names, req.RedirectURL)
				return
			}

			allowed, err := g.checkRoles(r, tu, req)
			if err != nil {
				logging.Error().Err(err).Str("path", r.URL.Path).Msg("Role check failed")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			if !allowed {
				g.deniedOrRedirect(w, r, user, "role_required", req.Names, req.RedirectURL)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (g *Guards) checkRoles(r *http.Request, tu *authz.TenantUser, req RoleRequirement) (bool, error) {
	matched := 0
	for _, name := range req.Names {
		ok, err := tu.HasRole(r.Context(), name)
		if err != nil {
			return false, err
		}
		if ok {
			if !req.RequireAll {
				return true, nil
			}
			matched++
		} else if req.RequireAll {
			return false, nil
		}
	}
	return req.RequireAll && matched == len(req.Names), nil
}
