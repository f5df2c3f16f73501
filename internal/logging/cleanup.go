package logging

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/naryn-heritage/heritage-backend/internal/models"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// PurgeBefore deletes system logs older than cutoff and returns how many were removed.
func PurgeBefore(db *gorm.DB, cutoff time.Time) (int64, error) {
	result := db.Where("timestamp < ?", cutoff).Delete(&models.SystemLog{})
	return result.RowsAffected, result.Error
}

// ScheduleCleanup registers the retention job on a new cron scheduler and starts it.
// Callers stop it with Stop() on shutdown.
func ScheduleCleanup(db *gorm.DB, spec string, retentionDays int) (*cron.Cron, error) {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		cutoff := time.Now().AddDate(0, 0, -retentionDays)
		deleted, err := PurgeBefore(db, cutoff)
		if err != nil {
			slog.Error("log cleanup failed", "error", err)
		} else if deleted > 0 {
			slog.Info("log cleanup completed", "deleted", deleted)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}
