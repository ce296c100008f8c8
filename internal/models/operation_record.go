package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OperationRecord journals one provider action and its normalized outcome.
type OperationRecord struct {
	ID           uuid.UUID           `gorm:"type:uuid;primarykey" json:"id"`
	Gateway      string              `gorm:"not null;index" json:"gateway"`
	Action       string              `gorm:"not null" json:"action"`
	OperationID  string              `gorm:"index" json:"operation_id,omitempty"`
	InstrumentID string              `gorm:"index" json:"instrument_id,omitempty"`
	Type         string              `json:"type,omitempty"`
	Status       string              `json:"status,omitempty"`
	Amount       decimal.NullDecimal `gorm:"type:numeric(19,4)" json:"amount"`
	Successful   bool                `gorm:"not null" json:"successful"`
	ErrorKinds   pq.StringArray      `gorm:"type:text[]" json:"error_kinds,omitempty"`
	Metadata     JSON                `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}

func (r *OperationRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// NewOperationRecord summarizes result for the journal. result may be nil
// when the action failed before reaching the gateway.
func NewOperationRecord(gateway, action string, result *Result) *OperationRecord {
	rec := &OperationRecord{Gateway: gateway, Action: action}
	if result == nil {
		return rec
	}
	rec.Successful = result.Successful()
	if op := result.Operation(); op != nil {
		rec.OperationID = op.ID()
		rec.Type = string(op.Type())
		rec.Status = string(op.Status())
		rec.Amount = op.Amount()
		if in := op.Instrument(); in != nil {
			rec.InstrumentID = in.ID()
		}
	}
	if in := result.Instrument(); in != nil {
		rec.InstrumentID = in.ID()
	}
	for _, e := range result.Errors() {
		rec.ErrorKinds = append(rec.ErrorKinds, e.String())
	}
	return rec
}
