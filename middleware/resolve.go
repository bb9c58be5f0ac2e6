// TenantGuard - Tenant-Aware Authentication and Authorization for Go
// Copyright 2026 TenantGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tenantguard/tenantguard

// Package middleware provides the ordered request pipeline stages and the
// declarative access-control guards.
//
// Stage order matters: ResolveTenant runs first and attaches (or leaves
// absent) the tenant context slot; WithTenantUser runs after it and after
// the host application's authentication, attaching the identity context
// only when both a user and a tenant are present. Guards run innermost
// and consume the slots.
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"github.com/tenantguard/tenantguard/audit"
	"github.com/tenantguard/tenantguard/logging"
	"github.com/tenantguard/tenantguard/models"
	"github.com/tenantguard/tenantguard/resolver"
)

// FailureAction selects what the resolution stage does when the resolver
// fails (tenant not found or inactive).
type FailureAction int

const (
	// FailPropagate terminates the request with a not-found outcome.
	// The strict default.
	FailPropagate FailureAction = iota

	// FailSubstituteNone lets the request proceed without a tenant;
	// guards reached later raise their own denials.
	FailSubstituteNone

	// FailCustom dispatches to the configured FailureHandler.
	FailCustom
)

// FailureHandler is the custom failure hook. It may write a response and
// return proceed=false to short-circuit, or return a substitute tenant
// (commonly nil) with proceed=true to continue the request degraded.
type FailureHandler func(w http.ResponseWriter, r *http.Request, err error) (substitute *models.Tenant, proceed bool)

// ResolveOptions configures the resolution stage.
type ResolveOptions struct {
	// Resolver is the configured strategy. Required.
	Resolver resolver.Resolver

	// ExemptPatterns are regular expressions matched against the request
	// path, in order; any match skips resolution entirely. Compiled once
	// at construction.
	ExemptPatterns []string

	// OnFailure selects the failure policy. Defaults to FailPropagate.
	OnFailure FailureAction

	// FailureHandler is required when OnFailure is FailCustom.
	FailureHandler FailureHandler

	// Audit receives an event per resolution outcome. Defaults to audit.Nop.
	Audit audit.Sink
}

// ResolveTenant builds the tenant resolution stage. Exemption patterns
// are compiled here, never per request.
func ResolveTenant(opts ResolveOptions) (func(http.Handler) http.Handler, error) {
	if opts.Resolver == nil {
		return nil, errors.New("middleware: resolver is required")
	}
	if opts.OnFailure == FailCustom && opts.FailureHandler == nil {
		return nil, errors.New("middleware: failure handler is required for custom failure action")
	}
	sink := opts.Audit
	if sink == nil {
		sink = audit.Nop{}
	}

	exemptions := make([]*regexp.Regexp, 0, len(opts.ExemptPatterns))
	for _, p := range opts.ExemptPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("middleware: compile exemption pattern %q: %w", p, err)
		}
		exemptions = append(exemptions, re)
	}

	stage := &resolveStage{
		resolver:   opts.Resolver,
		exemptions: exemptions,
		onFailure:  opts.OnFailure,
		handler:    opts.FailureHandler,
		sink:       sink,
	}
	return stage.middleware, nil
}

type resolveStage struct {
	resolver   resolver.Resolver
	exemptions []*regexp.Regexp
	onFailure  FailureAction
	handler    FailureHandler
	sink       audit.Sink
}

func (s *resolveStage) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Exempt paths never invoke the resolver; the tenant slot
		// stays absent.
		for _, re := range s.exemptions {
			if re.MatchString(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
		}

		tenant, err := s.resolver.Resolve(r.Context(), r)
		if err == nil {
			s.sink.Emit((&audit.Event{
				Name:     audit.EventTenantResolved,
				Success:  true,
				Path:     r.URL.Path,
				Method:   r.Method,
				ClientIP: clientIP(r),
			}).WithTenant(tenant))
			next.ServeHTTP(w, r.WithContext(ContextWithTenant(r.Context(), tenant)))
			return
		}

		s.sink.Emit(&audit.Event{
			Name:     audit.EventTenantResolutionFailed,
			Success:  false,
			Path:     r.URL.Path,
			Method:   r.Method,
			ClientIP: clientIP(r),
			Extra:    failureDetails(err),
		})

		switch s.onFailure {
		case FailSubstituteNone:
			next.ServeHTTP(w, r)
		case FailCustom:
			substitute, proceed := s.handler(w, r, err)
			if !proceed {
				return
			}
			if substitute != nil {
				r = r.WithContext(ContextWithTenant(r.Context(), substitute))
			}
			next.ServeHTTP(w, r)
		default:
			logging.Debug().
				Err(err).
				Str("path", r.URL.Path).
				Msg("Tenant resolution failed, propagating")
			http.NotFound(w, r)
		}
	})
}

// failureDetails extracts diagnostics from the resolver's typed errors.
func failureDetails(err error) map[string]any {
	extra := map[string]any{"error": err.Error()}

	var notFound *resolver.TenantNotFoundError
	var inactive *resolver.TenantInactiveError
	switch {
	case errors.As(err, &notFound):
		extra["reason"] = "tenant_not_found"
		if notFound.Identifier != "" {
			extra["identifier"] = notFound.Identifier
		}
	case errors.As(err, &inactive):
		extra["reason"] = "tenant_inactive"
		extra["identifier"] = inactive.Tenant.Slug
	}
	return extra
}
