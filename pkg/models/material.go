package models

import (
	"time"

	"github.com/ecotrace/collect-api/pkg/database"
	"github.com/google/uuid"
)

// MaterialItem states
const (
	MaterialStateCollected  = "COLLECTED"
	MaterialStateSorting    = "TRI"
	MaterialStateRecyclable = "RECYCLABLE"
	MaterialStateToDestroy  = "TO_DESTROY"
	MaterialStateRecycled   = "RECYCLED"
	MaterialStateDestroyed  = "DESTROYED"
)

// AuditNote is one structured entry in a material item's processing history.
type AuditNote struct {
	At          time.Time `json:"at"`
	ProcessorID uuid.UUID `json:"processor_id"`
	Action      string    `json:"action"`
	Detail      string    `json:"detail"`
}

// MaterialItem is a unit of collected material tracked through sorting to its
// final disposition. Quantity is the quantity of record in kilograms;
// CollectedQuantity is frozen at materialization time.
type MaterialItem struct {
	ID                int64                       `db:"id" json:"id"`
	PickupEventID     int64                       `db:"pickup_event_id" json:"pickup_event_id"`
	MaterialType      string                      `db:"material_type" json:"material_type"`
	Category          string                      `db:"category" json:"category"`
	Description       *string                     `db:"description" json:"description,omitempty"`
	Quantity          float64                     `db:"quantity" json:"quantity"`
	CollectedQuantity float64                     `db:"collected_quantity" json:"collected_quantity"`
	State             string                      `db:"state" json:"state"`
	ProcessorID       *uuid.UUID                  `db:"processor_id" json:"processor_id,omitempty"`
	Method            *string                     `db:"method" json:"method,omitempty"`
	YieldPct          *float64                    `db:"yield_pct" json:"yield_pct,omitempty"`
	BeforePhoto       *string                     `db:"before_photo" json:"before_photo,omitempty"`
	AfterPhoto        *string                     `db:"after_photo" json:"after_photo,omitempty"`
	AuditNotes        database.JSONB[[]AuditNote] `db:"audit_notes" json:"audit_notes"`
	ProcessedAt       *time.Time                  `db:"processed_at" json:"processed_at,omitempty"`
	CreatedAt         time.Time                   `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time                   `db:"updated_at" json:"updated_at"`
}

// TableName returns the database table name
func (MaterialItem) TableName() string {
	return "material_items"
}

// IsTerminal reports whether the item has reached a final disposition state.
func (m *MaterialItem) IsTerminal() bool {
	return m.State == MaterialStateRecycled || m.State == MaterialStateDestroyed
}
