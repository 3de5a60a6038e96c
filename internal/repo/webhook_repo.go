// Package repo implements the data persistence layer for synced records and
// webhook bookkeeping, backed by GORM. This file provides repository helpers
// for the webhook audit log and queued workflow triggers.
//
// The audit log doubles as the delivery deduplication record: providers
// redeliver events, and the (provider, event_id) unique index turns a replay
// into ErrDuplicate instead of a second round of side effects.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/helplane/go-support-backend/internal/domain"
)

// ErrDuplicate indicates that a webhook event with the same
// (provider, event_id) tuple was already recorded.
var ErrDuplicate = errors.New("duplicate")

// CreateWebhookEvent inserts an audit row and returns ErrDuplicate when the
// provider event was already recorded.
func CreateWebhookEvent(ctx context.Context, db *gorm.DB, ev *domain.WebhookEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(ev).Error; err != nil {
		// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed: unique") {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// UpdateWebhookEventStatus sets the terminal status (and optional error text)
// of an audit row after processing finishes.
func UpdateWebhookEventStatus(ctx context.Context, db *gorm.DB, id, status, errText string) error {
	res := db.WithContext(ctx).
		Model(&domain.WebhookEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "error": errText})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListWebhookEvents returns up to limit audit rows for userID, newest first.
func ListWebhookEvents(ctx context.Context, db *gorm.DB, userID string, limit int) ([]domain.WebhookEvent, error) {
	var out []domain.WebhookEvent
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CreateWorkflowTrigger enqueues a trigger row for the workflow runner.
func CreateWorkflowTrigger(ctx context.Context, db *gorm.DB, tr *domain.WorkflowTrigger) error {
	if tr.ID == "" {
		tr.ID = uuid.NewString()
	}
	if tr.CreatedAt.IsZero() {
		tr.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(tr).Error
}

// PendingWorkflowTriggers returns unprocessed trigger rows for userID in
// insertion order, up to limit.
func PendingWorkflowTriggers(ctx context.Context, db *gorm.DB, userID string, limit int) ([]domain.WorkflowTrigger, error) {
	var out []domain.WorkflowTrigger
	err := db.WithContext(ctx).
		Where("user_id = ? AND processed_at IS NULL", userID).
		Order("created_at asc").
		Limit(limit).
		Find(&out).Error
	return out, err
}
