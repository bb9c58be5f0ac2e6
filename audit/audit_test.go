// TenantGuard - Tenant-Aware Authentication and Authorization for Go
// Copyright 2026 TenantGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tenantguard/tenantguard

package audit

import (
	"testing"
	"time"

	"github.com/tenantguard/tenantguard/models"
)

func TestNewLogger(t *testing.T) {
	t.Run("zero buffer size uses default", func(t *testing.T) {
		logger := NewLogger(Config{Enabled: true})
		defer logger.Close()

		if cap(logger.events) != 1000 {
			t.Errorf("expected default buffer size 1000, got %d", cap(logger.events))
		}
	})

	t.Run("custom buffer size", func(t *testing.T) {
		logger := NewLogger(Config{Enabled: true, BufferSize: 10})
		defer logger.Close()

		if cap(logger.events) != 10 {
			t.Errorf("expected buffer size 10, got %d", cap(logger.events))
		}
	})
}

func TestEmitFillsDefaults(t *testing.T) {
	logger := NewLogger(Config{Enabled: true, BufferSize: 10})
	defer logger.Close()

	event := &Event{Name: EventPermissionCheck, Success: true}
	logger.Emit(event)

	if event.ID == "" {
		t.Error("expected generated event ID")
	}
	if event.Timestamp.IsZero() {
		t.Error("expected emission timestamp")
	}
}

func TestEmitDisabledIsNoop(t *testing.T) {
	logger := NewLogger(Config{Enabled: false})
	defer logger.Close()

	// Must not block or panic, and must not touch the event.
	event := &Event{Name: EventPermissionCheck}
	for range 10 {
		logger.Emit(event)
	}
	if event.ID != "" {
		t.Error("disabled logger must not mutate events")
	}
}

func TestEmitNeverBlocks(t *testing.T) {
	// A full buffer with no consumer: Emit must drop, not block.
	logger := &Logger{
		cfg:      Config{Enabled: true, BufferSize: 1},
		events:   make(chan *Event, 1),
		stopChan: make(chan struct{}),
	}

	done := make(chan struct{})
	go func() {
		for range 100 {
			logger.Emit(&Event{Name: EventAccessDenied})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked on a full buffer")
	}
}

func TestEmitNilSafe(t *testing.T) {
	var logger *Logger
	logger.Emit(&Event{Name: EventPermissionCheck})
	logger.Close()

	active := NewLogger(Config{Enabled: true, BufferSize: 4})
	defer active.Close()
	active.Emit(nil)
}

func TestCloseFlushesAndIsIdempotent(t *testing.T) {
	logger := NewLogger(Config{Enabled: true, BufferSize: 100})
	for range 50 {
		logger.Emit(&Event{Name: EventTenantResolved, Success: true})
	}

	logger.Close()
	logger.Close()
}

func TestEventBuilders(t *testing.T) {
	user := models.UserInfo{UserID: "u1", Name: "alice", IsAuthed: true, IsSuper: true}
	tenant := models.NewTenant("Acme", "acme")

	event := (&Event{Name: EventPermissionCheck}).WithUser(user).WithTenant(tenant)

	if event.UserID != "u1" || event.Username != "alice" || !event.Superuser {
		t.Errorf("user fields not filled: %+v", event)
	}
	if event.TenantID != tenant.ID.String() || event.TenantSlug != "acme" {
		t.Errorf("tenant fields not filled: %+v", event)
	}

	// Nil collaborators leave the fields empty.
	empty := (&Event{}).WithUser(nil).WithTenant(nil)
	if empty.UserID != "" || empty.TenantID != "" {
		t.Errorf("expected empty fields, got %+v", empty)
	}
}

func TestNopSink(t *testing.T) {
	var s Sink = Nop{}
	s.Emit(&Event{Name: EventAccessDenied})
	s.Emit(nil)
}
