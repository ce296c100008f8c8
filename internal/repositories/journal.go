package repositories

import (
	"context"
	"fmt"

	"gatepay/internal/models"

	"gorm.io/gorm"
)

// JournalFilter narrows a journal listing. Zero fields are ignored.
type JournalFilter struct {
	Gateway      string
	OperationID  string
	InstrumentID string
	Limit        int
	Offset       int
}

type JournalRepository interface {
	Record(ctx context.Context, rec *models.OperationRecord) error
	List(ctx context.Context, f JournalFilter) ([]models.OperationRecord, int64, error)
}

type journalRepository struct {
	db *gorm.DB
}

func NewJournalRepository(db *gorm.DB) JournalRepository {
	return &journalRepository{db: db}
}

func (r *journalRepository) Record(ctx context.Context, rec *models.OperationRecord) error {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("%w: record operation: %v", ErrDatabaseOperation, err)
	}
	return nil
}

// List returns one page of records, newest first, and the total match count.
func (r *journalRepository) List(ctx context.Context, f JournalFilter) ([]models.OperationRecord, int64, error) {
	q := filterJournal(r.db.WithContext(ctx).Model(&models.OperationRecord{}), f)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: count operations: %v", ErrDatabaseOperation, err)
	}

	var recs []models.OperationRecord
	if err := pageJournal(q, f).Find(&recs).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: list operations: %v", ErrDatabaseOperation, err)
	}
	return recs, total, nil
}

func filterJournal(q *gorm.DB, f JournalFilter) *gorm.DB {
	if f.Gateway != "" {
		q = q.Where("gateway = ?", f.Gateway)
	}
	if f.OperationID != "" {
		q = q.Where("operation_id = ?", f.OperationID)
	}
	if f.InstrumentID != "" {
		q = q.Where("instrument_id = ?", f.InstrumentID)
	}
	return q
}

func pageJournal(q *gorm.DB, f JournalFilter) *gorm.DB {
	q = q.Order("created_at DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	return q
}

// NoopJournal discards records. It is used when no database is configured.
type NoopJournal struct{}

func (NoopJournal) Record(context.Context, *models.OperationRecord) error { return nil }

func (NoopJournal) List(context.Context, JournalFilter) ([]models.OperationRecord, int64, error) {
	return nil, 0, nil
}
