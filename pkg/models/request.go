package models

import (
	"time"

	"github.com/ecotrace/collect-api/pkg/database"
	"github.com/google/uuid"
)

// Request statuses
const (
	RequestStatusSubmitted  = "SUBMITTED"
	RequestStatusApproved   = "APPROVED"
	RequestStatusRejected   = "REJECTED"
	RequestStatusInProgress = "IN_PROGRESS"
	RequestStatusCompleted  = "COMPLETED"
)

// Pickup modes
const (
	PickupModeHome    = "home"
	PickupModeDropoff = "dropoff"
)

// Material categories
const (
	CategoryComputer   = "computer"
	CategorySmartphone = "smartphone"
	CategoryAppliance  = "appliance"
	CategoryScreen     = "screen"
	CategoryComponents = "components"
	CategoryOther      = "other"
)

// Estimated quantity bands
const (
	QuantityBand1To5   = "1-5kg"
	QuantityBand5To10  = "5-10kg"
	QuantityBand10To20 = "10-20kg"
	QuantityBand20Plus = "20kg+"
)

// Time windows
const (
	TimeWindowMorning   = "morning"
	TimeWindowAfternoon = "afternoon"
	TimeWindowFlexible  = "flexible"
)

// Request is a submitted collection request. Requests are never deleted;
// terminal ones are retained for audit.
type Request struct {
	ID              int64                    `db:"id" json:"id"`
	Reference       string                   `db:"reference" json:"reference"`
	RequesterID     uuid.UUID                `db:"requester_id" json:"requester_id"`
	Category        string                   `db:"category" json:"category"`
	Description     string                   `db:"description" json:"description"`
	QuantityBand    string                   `db:"quantity_band" json:"quantity_band"`
	Mode            string                   `db:"mode" json:"mode"`
	DesiredDate     time.Time                `db:"desired_date" json:"desired_date"`
	TimeWindow      string                   `db:"time_window" json:"time_window"`
	Address         *string                  `db:"address" json:"address,omitempty"`
	Phone           string                   `db:"phone" json:"phone"`
	Instructions    *string                  `db:"instructions" json:"instructions,omitempty"`
	Photos          database.JSONB[[]string] `db:"photos" json:"photos"`
	Status          string                   `db:"status" json:"status"`
	RejectionReason *string                  `db:"rejection_reason" json:"rejection_reason,omitempty"`
	DropoffDetails  *string                  `db:"dropoff_details" json:"dropoff_details,omitempty"`
	ProcessedBy     *uuid.UUID               `db:"processed_by" json:"processed_by,omitempty"`
	ProcessedAt     *time.Time               `db:"processed_at" json:"processed_at,omitempty"`
	CreatedAt       time.Time                `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time                `db:"updated_at" json:"updated_at"`
}

// TableName returns the database table name
func (Request) TableName() string {
	return "collection_requests"
}

// IsValidCategory reports whether the category is a known catalogue value.
func IsValidCategory(category string) bool {
	switch category {
	case CategoryComputer, CategorySmartphone, CategoryAppliance, CategoryScreen, CategoryComponents, CategoryOther:
		return true
	}
	return false
}

// IsValidQuantityBand reports whether the band is a known bucket.
func IsValidQuantityBand(band string) bool {
	switch band {
	case QuantityBand1To5, QuantityBand5To10, QuantityBand10To20, QuantityBand20Plus:
		return true
	}
	return false
}

// IsValidTimeWindow reports whether the window is a known value.
func IsValidTimeWindow(window string) bool {
	switch window {
	case TimeWindowMorning, TimeWindowAfternoon, TimeWindowFlexible:
		return true
	}
	return false
}
