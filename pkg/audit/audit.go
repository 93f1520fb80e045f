// Package audit writes the human-readable activity log.
package audit

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"peminjaman_alat/pkg/models"
)

type Recorder struct {
	db *gorm.DB
}

func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

// Record stores one activity line for actorID. A nil actor marks a system
// action, which is not logged.
func (r *Recorder) Record(ctx context.Context, actorID *uint, aktivitas string) error {
	if actorID == nil {
		return nil
	}
	entry := models.LogAktivitas{UserID: *actorID, Aktivitas: aktivitas}
	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("record activity for user %d: %w", *actorID, err)
	}
	return nil
}

// Recent returns the latest limit entries, newest first.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]models.LogAktivitas, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	var entries []models.LogAktivitas
	err := r.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return entries, nil
}
