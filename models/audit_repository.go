package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Audit actions.
const (
	AuditCreate = "create"
	AuditDelete = "delete"
)

// AuditEntry records that a mutation was forwarded to Airtable.
// It never holds material data used to answer reads.
type AuditEntry struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Action       string    `gorm:"not null;index" json:"action"`
	MaterialID   string    `gorm:"not null;index" json:"materialId"`
	MaterialName string    `json:"materialName,omitempty"`
	RequestID    string    `json:"requestId,omitempty"`
	CreatedAt    time.Time `gorm:"not null;index" json:"createdAt"`
}

func (e *AuditEntry) TableName() string {
	return "material_audit"
}

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{
		db: db,
	}
}

// Migrate creates or updates the audit table.
func (r *AuditRepository) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&AuditEntry{})
}

func (r *AuditRepository) Record(ctx context.Context, entry *AuditEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

// Recent returns the newest entries first.
func (r *AuditRepository) Recent(ctx context.Context, limit int) ([]AuditEntry, error) {
	var entries []AuditEntry
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
