package database

import (
	"context"
	"strings"
	"time"

	"github.com/glimpse/glimpse/internal/models"

	"github.com/pkg/errors"

	"gorm.io/gorm"
)

// Repository handles all database operations for capture entries
type Repository struct {
	db *DB
}

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// InsertEntry stores one capture entry. App names are lowercased so reports
// group the same application consistently across backends.
func (r *Repository) InsertEntry(ctx context.Context, entry *models.Entry) error {
	entry.AppName = strings.ToLower(entry.AppName)
	result := r.db.WithContext(ctx).Create(entry)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert entry")
	}
	return nil
}

// GetByID retrieves an entry by its ID, or nil when there is none
func (r *Repository) GetByID(id uint) (*models.Entry, error) {
	var entry models.Entry
	result := r.db.First(&entry, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get entry")
	}
	return &entry, nil
}

// GetEntriesSince retrieves all entries captured at or after since, oldest first
func (r *Repository) GetEntriesSince(since time.Time) ([]*models.Entry, error) {
	var entries []*models.Entry
	result := r.db.Where("timestamp >= ?", since.Unix()).Order("timestamp ASC, id ASC").Find(&entries)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query entries")
	}

	return entries, nil
}

// GetAppSummarySince returns capture counts per application since a given time
func (r *Repository) GetAppSummarySince(since time.Time) ([]models.AppSummary, error) {
	var summaries []models.AppSummary

	result := r.db.Model(&models.Entry{}).
		Select("app_name, COUNT(*) as capture_count, COUNT(DISTINCT monitor_index) as monitor_count").
		Where("timestamp >= ?", since.Unix()).
		Group("app_name").
		Order("capture_count DESC, app_name ASC").
		Scan(&summaries)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query app summary")
	}

	return summaries, nil
}

// Count returns the number of stored entries
func (r *Repository) Count() (int64, error) {
	var n int64
	if err := r.db.Model(&models.Entry{}).Count(&n).Error; err != nil {
		return 0, errors.Wrap(err, "failed to count entries")
	}
	return n, nil
}

// DeleteOldEntries deletes entries older than a specified date (soft delete)
func (r *Repository) DeleteOldEntries(before time.Time) (int64, error) {
	result := r.db.Where("timestamp < ?", before.Unix()).Delete(&models.Entry{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete old entries")
	}
	return result.RowsAffected, nil
}

// GetLatest retrieves the most recent entry, or nil when there is none
func (r *Repository) GetLatest() (*models.Entry, error) {
	var entry models.Entry
	result := r.db.Order("timestamp DESC, id DESC").First(&entry)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get latest entry")
	}
	return &entry, nil
}

// CreateErrorLog inserts a new error log into the database
func (r *Repository) CreateErrorLog(ctx context.Context, errorLog *models.ErrorLog) error {
	result := r.db.WithContext(ctx).Create(errorLog)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert error log")
	}
	return nil
}

// RecentErrors returns up to limit error logs, newest first
func (r *Repository) RecentErrors(limit int) ([]models.ErrorLog, error) {
	var logs []models.ErrorLog
	result := r.db.Order("timestamp DESC, id DESC").Limit(limit).Find(&logs)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query error logs")
	}
	return logs, nil
}

// Clear removes all entries and error logs from the database
func (r *Repository) Clear() error {
	if result := r.db.Exec("DELETE FROM entries"); result.Error != nil {
		return errors.Wrap(result.Error, "failed to clear entries")
	}
	if result := r.db.Exec("DELETE FROM error_logs"); result.Error != nil {
		return errors.Wrap(result.Error, "failed to clear error logs")
	}
	return nil
}
