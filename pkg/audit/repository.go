package audit

import (
	"context"
	"time"

	"github.com/healthtwin/platform/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Record is the persistence model for audit events.
type Record struct {
	ID         string            `gorm:"primaryKey;column:id"`
	Type       string            `gorm:"column:type;index"`
	Source     string            `gorm:"column:source"`
	Data       datatypes.JSONMap `gorm:"column:data"`
	OccurredAt time.Time         `gorm:"column:occurred_at"`
	CreatedAt  time.Time         `gorm:"column:created_at"`
}

// TableName overrides gorm naming.
func (Record) TableName() string {
	return "audit_events"
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&Record{})
}

// Save stores event once; redelivered events are ignored.
func (r *Repository) Save(ctx context.Context, event models.Event) error {
	rec := Record{
		ID:         event.ID,
		Type:       event.Type,
		Source:     event.Source,
		Data:       datatypes.JSONMap(event.Data),
		OccurredAt: event.Timestamp,
		CreatedAt:  time.Now().UTC(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rec).Error
}

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 500
)

// RecentLimit maps a requested page size onto (0, 500]. Zero or negative
// means the default of 50.
func RecentLimit(requested int) int {
	switch {
	case requested <= 0:
		return defaultRecentLimit
	case requested > maxRecentLimit:
		return maxRecentLimit
	}
	return requested
}

// Recent returns the latest events, optionally filtered by type.
func (r *Repository) Recent(ctx context.Context, eventType string, limit int) ([]Record, error) {
	limit = RecentLimit(limit)
	tx := r.db.WithContext(ctx)
	if eventType != "" {
		tx = tx.Where("type = ?", eventType)
	}
	var records []Record
	err := tx.Order("occurred_at DESC").Limit(limit).Find(&records).Error
	return records, err
}
