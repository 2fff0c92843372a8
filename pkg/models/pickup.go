package models

import (
	"time"

	"github.com/google/uuid"
)

// PickupEvent statuses
const (
	PickupStatusPlanned    = "PLANNED"
	PickupStatusInProgress = "IN_PROGRESS"
	PickupStatusCompleted  = "COMPLETED"
	PickupStatusCancelled  = "CANCELLED"
)

// PickupEvent is a scheduled or executed physical collection, possibly derived
// from a Request via the origin relationship.
type PickupEvent struct {
	ID              int64      `db:"id" json:"id"`
	Reference       string     `db:"reference" json:"reference"`
	RequesterID     uuid.UUID  `db:"requester_id" json:"requester_id"`
	OriginRequestID *int64     `db:"origin_request_id" json:"origin_request_id,omitempty"`
	ScheduledDate   time.Time  `db:"scheduled_date" json:"scheduled_date"`
	TimeWindow      string     `db:"time_window" json:"time_window"`
	Mode            string     `db:"mode" json:"mode"`
	Address         *string    `db:"address" json:"address,omitempty"`
	Phone           string     `db:"phone" json:"phone"`
	HaulerID        *uuid.UUID `db:"hauler_id" json:"hauler_id,omitempty"`
	Status          string     `db:"status" json:"status"`
	CompletedAt     *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// TableName returns the database table name
func (PickupEvent) TableName() string {
	return "pickup_events"
}

// IsTerminal reports whether the pickup can no longer change state.
func (p *PickupEvent) IsTerminal() bool {
	return p.Status == PickupStatusCompleted || p.Status == PickupStatusCancelled
}
