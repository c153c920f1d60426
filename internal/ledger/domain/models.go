package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// LedgerType classifies the monetary obligation.
type LedgerType string

const (
	LedgerTypeEntryFee      LedgerType = "entry_fee"
	LedgerTypeExtraPurchase LedgerType = "extra_purchase"
)

// LedgerStatus is the settlement state of one obligation. Transitions
// only move forward, never backward.
type LedgerStatus string

const (
	LedgerStatusExpected  LedgerStatus = "expected"
	LedgerStatusClaimed   LedgerStatus = "claimed"
	LedgerStatusConfirmed LedgerStatus = "confirmed"
)

// statusTransitions is the full set of legal forward moves. Anything
// not listed is rejected regardless of what the caller supplies.
var statusTransitions = map[LedgerStatus][]LedgerStatus{
	LedgerStatusExpected: {LedgerStatusClaimed, LedgerStatusConfirmed},
	LedgerStatusClaimed:  {LedgerStatusConfirmed},
}

// CanTransition reports whether from→to is a legal forward move.
func CanTransition(from, to LedgerStatus) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// LedgerEntry is one auditable monetary obligation tied to a room,
// club and player. Entries are deleted only by room-level cascade.
type LedgerEntry struct {
	ID                  snowflake.ID  `gorm:"primaryKey" json:"id"`
	RoomID              snowflake.ID  `gorm:"not null;index" json:"room_id"`
	ClubID              snowflake.ID  `gorm:"not null;index" json:"club_id"`
	PlayerID            string        `gorm:"type:text;not null;index" json:"player_id"`
	LedgerType          LedgerType    `gorm:"type:text;not null" json:"ledger_type"`
	Amount              int64         `gorm:"not null" json:"amount"`
	Currency            string        `gorm:"type:text;not null" json:"currency"`
	Status              LedgerStatus  `gorm:"type:text;not null;default:'expected'" json:"status"`
	PaymentMethod       string        `gorm:"type:text;not null;default:''" json:"payment_method"`
	ClubPaymentMethodID *snowflake.ID `json:"club_payment_method_id,omitempty"`
	TicketID            string        `gorm:"type:text;not null;default:''" json:"ticket_id,omitempty"`
	ExtraID             string        `gorm:"type:text;not null;default:''" json:"extra_id,omitempty"`
	IsLate              bool          `gorm:"not null;default:false" json:"is_late"`
	PaymentReference    string        `gorm:"type:text;not null;default:''" json:"payment_reference,omitempty"`
	ClaimedAt           *time.Time    `json:"claimed_at,omitempty"`
	ConfirmedAt         *time.Time    `json:"confirmed_at,omitempty"`
	ConfirmedBy         *string       `json:"confirmed_by,omitempty"`
	CreatedAt           time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt           time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (LedgerEntry) TableName() string { return "ledger_entries" }
