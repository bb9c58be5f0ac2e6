// TenantGuard - Tenant-Aware Authentication and Authorization for Go
// Copyright 2026 TenantGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tenantguard/tenantguard

// Package audit provides structured event emission for every resolution,
// authentication, and authorization decision TenantGuard makes.
//
// The sink never returns an error and never panics: an audit failure must
// not break the authorization path. The default Logger writes zerolog
// events asynchronously through a bounded buffer; events are dropped (with
// a warning) rather than blocking the request when the buffer is full.
// When audit is disabled by configuration, Emit is a hard no-op.
package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tenantguard/tenantguard/logging"
	"github.com/tenantguard/tenantguard/models"
)

// Event names emitted by the library.
const (
	EventTenantResolved         = "tenant_resolved"
	EventTenantResolutionFailed = "tenant_resolution_failed"
	EventPermissionCheck        = "permission_check"
	EventMembershipCheck        = "membership_check"
	EventAccessDenied           = "access_denied"
	EventAuthenticationSuccess  = "authentication_success"
	EventAuthenticationFailed   = "authentication_failed"
)

// Event is one audit record. Zero-valued optional fields are omitted from
// the log output.
type Event struct {
	// ID is a unique identifier, generated if empty.
	ID string

	// Name is the event name (one of the Event* constants).
	Name string

	// Success records the outcome of the decision or operation.
	Success bool

	// Timestamp defaults to the emission time.
	Timestamp time.Time

	// UserID and Username identify the acting user, when known.
	UserID   string
	Username string

	// Superuser records the acting user's superuser flag.
	Superuser bool

	// TenantID and TenantSlug identify the tenant context, when resolved.
	TenantID   string
	TenantSlug string

	// Permission is the codename under check for permission events.
	Permission string

	// Path, Method, and ClientIP carry request metadata when the event
	// originates from the middleware pipeline.
	Path     string
	Method   string
	ClientIP string

	// Extra carries event-specific fields (failure reasons, attempted
	// identifiers, required permission lists).
	Extra map[string]any
}

// WithUser fills the user fields from the library's user contract.
func (e *Event) WithUser(u models.User) *Event {
	if u != nil {
		e.UserID = u.ID()
		e.Username = u.DisplayName()
		e.Superuser = u.Superuser()
	}
	return e
}

// WithTenant fills the tenant fields.
func (e *Event) WithTenant(t *models.Tenant) *Event {
	if t != nil {
		e.TenantID = t.ID.String()
		e.TenantSlug = t.Slug
	}
	return e
}

// Sink receives audit events. Implementations must be safe for concurrent
// use and must not fail: Emit has no error return by contract.
type Sink interface {
	Emit(event *Event)
}

// Nop is a Sink that discards all events.
type Nop struct{}

func (Nop) Emit(*Event) {}

// Config configures the Logger.
type Config struct {
	// Enabled controls whether events are emitted at all.
	// Disabled means Emit is a no-op.
	Enabled bool

	// BufferSize is the size of the async event buffer. Events are
	// dropped, not blocked on, when the buffer is full.
	BufferSize int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		BufferSize: 1000,
	}
}

// Logger is the default Sink: asynchronous, non-blocking, zerolog-backed.
type Logger struct {
	cfg      Config
	events   chan *Event
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewLogger creates an audit logger. When cfg.Enabled is false the
// logger performs no work and Emit returns immediately.
func NewLogger(cfg Config) *Logger {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1000
	}

	l := &Logger{
		cfg:      cfg,
		events:   make(chan *Event, cfg.BufferSize),
		stopChan: make(chan struct{}),
	}

	if cfg.Enabled {
		l.wg.Add(1)
		go l.processEvents()
	}
	return l
}

// Emit queues an event for logging. Non-blocking; never returns an error.
func (l *Logger) Emit(event *Event) {
	if l == nil || !l.cfg.Enabled || event == nil {
		return
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case l.events <- event:
	default:
		logging.Warn().
			Str("event", event.Name).
			Str("user_id", event.UserID).
			Msg("Audit buffer full, event dropped")
	}
}

// Close stops the logger and flushes buffered events.
func (l *Logger) Close() {
	if l == nil {
		return
	}
	l.stopOnce.Do(func() {
		close(l.stopChan)
	})
	l.wg.Wait()
}

func (l *Logger) processEvents() {
	defer l.wg.Done()

	for {
		select {
		case <-l.stopChan:
			l.drainEvents()
			return
		case event := <-l.events:
			writeEvent(event)
		}
	}
}

func (l *Logger) drainEvents() {
	for {
		select {
		case event := <-l.events:
			writeEvent(event)
		default:
			return
		}
	}
}

// writeEvent renders the event to the global logger. Denied/failed events
// log at warn level for visibility.
func writeEvent(event *Event) {
	logEvent := logging.Info()
	if !event.Success {
		logEvent = logging.Warn()
	}

	logEvent = logEvent.
		Str("event_type", "tenant_audit").
		Str("audit_id", event.ID).
		Time("audit_timestamp", event.Timestamp).
		Str("event", event.Name).
		Bool("success", event.Success)

	if event.UserID != "" {
		logEvent = logEvent.Str("user_id", event.UserID)
	}
	if event.Username != "" {
		logEvent = logEvent.Str("username", event.Username)
	}
	if event.Superuser {
		logEvent = logEvent.Bool("superuser", true)
	}
	if event.TenantID != "" {
		logEvent = logEvent.Str("tenant_id", event.TenantID)
	}
	if event.TenantSlug != "" {
		logEvent = logEvent.Str("tenant_slug", event.TenantSlug)
	}
	if event.Permission != "" {
		logEvent = logEvent.Str("permission", event.Permission)
	}
	if event.Path != "" {
		logEvent = logEvent.Str("path", event.Path)
	}
	if event.Method != "" {
		logEvent = logEvent.Str("method", event.Method)
	}
	if event.ClientIP != "" {
		logEvent = logEvent.Str("ip_address", event.ClientIP)
	}
	for k, v := range event.Extra {
		logEvent = logEvent.Interface(k, v)
	}

	logEvent.Msg("Audit: " + event.Name)
}
