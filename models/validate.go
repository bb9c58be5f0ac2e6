// TenantGuard - Tenant-Aware Authentication and Authorization for Go
// Copyright 2026 TenantGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tenantguard/tenantguard

package models

import (
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
)

// slugRegexp matches normalized tenant slugs: lowercase letters, digits,
// hyphens, and underscores.
var slugRegexp = regexp.MustCompile(`^[a-z0-9_-]+$`)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator instance with the TenantGuard
// custom tags registered:
//
//   - codename:   canonical permission codename format
//   - tenantslug: normalized URL-safe tenant slug
//
// The instance is safe for concurrent use and caches struct metadata.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Registration only fails for empty tags or nil funcs.
		_ = validate.RegisterValidation("codename", func(fl validator.FieldLevel) bool {
			return ValidCodename(fl.Field().String())
		})
		_ = validate.RegisterValidation("tenantslug", func(fl validator.FieldLevel) bool {
			return slugRegexp.MatchString(fl.Field().String())
		})
	})
	return validate
}

// ValidateStruct validates a domain struct against its `validate` tags.
// For Permission values, a codename violation is reported as an
// *InvalidCodenameError so callers can map it to the write-rejection
// taxonomy with errors.As.
func ValidateStruct(v any) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if ok := AsValidationErrors(err, &fieldErrs); ok {
		for _, fe := range fieldErrs {
			if fe.Tag() == "codename" {
				return &InvalidCodenameError{Codename: fe.Value().(string)}
			}
		}
	}
	return err
}

// AsValidationErrors unwraps a validator.ValidationErrors value.
func AsValidationErrors(err error, target *validator.ValidationErrors) bool {
	if ve, ok := err.(validator.ValidationErrors); ok {
		*target = ve
		return true
	}
	return false
}
