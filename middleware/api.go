// TenantGuard - Tenant-Aware Authentication and Authorization for Go
// Copyright 2026 TenantGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tenantguard/tenantguard

package middleware

import (
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/tenantguard/tenantguard/audit"
	"github.com/tenantguard/tenantguard/logging"
	"github.com/tenantguard/tenantguard/models"
)

// apiError is the JSON body the API guard flavors answer denials with.
type apiError struct {
	Error    string   `json:"error"`
	Detail   string   `json:"detail,omitempty"`
	Required []string `json:"required,omitempty"`
}

func writeJSONError(w http.ResponseWriter, status int, body apiError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error().Err(err).Msg("Failed to encode error response")
	}
}

func (g *Guards) apiDenied(w http.ResponseWriter, r *http.Request, user models.User, reason string, required []string) {
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

	writeJSONError(w, http.StatusForbidden, apiError{
		Error:    "forbidden",
		Detail:   reason,
		Required: required,
	})
}

// APIRequireLogin answers unauthenticated requests with a JSON 401
// instead of a redirect.
func (g *Guards) APIRequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := g.User(r)
		if user == nil || !user.Authenticated() {
			writeJSONError(w, http.StatusUnauthorized, apiError{
				Error:  "unauthorized",
				Detail: "authentication required",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// APIRequireMember is the JSON flavor of RequireMember: 401 for
// unauthenticated, 403 for non-members.
func (g *Guards) APIRequireMember(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := g.User(r)
		if user == nil || !user.Authenticated() {
			writeJSONError(w, http.StatusUnauthorized, apiError{
				Error:  "unauthorized",
				Detail: "authentication required",
			})
			return
		}

		if g.Checker.SuperuserBypass() && user.Superuser() {
			next.ServeHTTP(w, r)
			return
		}

		tu, ok := g.identity(r, user)
		if !ok {
			g.apiDenied(w, r, user, "no_tenant_context", nil)
			return
		}

		member, err := tu.IsMember(r.Context())
		if err != nil {
			logging.Error().Err(err).Str("path", r.URL.Path).Msg("Membership check failed")
			writeJSONError(w, http.StatusInternalServerError, apiError{Error: "internal_error"})
			return
		}
		if !member {
			g.apiDenied(w, r, user, "membership_required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// APIRequirePermissions is the JSON flavor of RequirePermissions.
// RedirectURL is ignored: API clients always get a status code.
func (g *Guards) APIRequirePermissions(req PermissionRequirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := g.User(r)
			if user == nil || !user.Authenticated() {
				writeJSONError(w, http.StatusUnauthorized, apiError{
					Error:  "unauthorized",
					Detail: "authentication required",
				})
				return
			}

			err := g.checkPermissions(r, user, req)
			if err != nil {
				reason, ok := denialReason(err)
				if !ok {
					logging.Error().Err(err).Str("path", r.URL.Path).Msg("Permission check failed")
					writeJSONError(w, http.StatusInternalServerError, apiError{Error: "internal_error"})
					return
				}
				g.apiDenied(w, r, user, reason, req.Codenames)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
