package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Summary is the per-room financial closeout row. Once approvedAt is
// set the summary and its adjustments never change again.
type Summary struct {
	ID                snowflake.ID `gorm:"primaryKey" json:"id"`
	RoomID            snowflake.ID `gorm:"not null;uniqueIndex" json:"room_id"`
	StartingEntryFees int64        `gorm:"not null;default:0" json:"starting_entry_fees"`
	StartingExtras    int64        `gorm:"not null;default:0" json:"starting_extras"`
	StartingTotal     int64        `gorm:"not null;default:0" json:"starting_total"`
	AdjustmentsNet    int64        `gorm:"not null;default:0" json:"adjustments_net"`
	FinalTotal        int64        `gorm:"not null" json:"final_total"`
	ApprovedBy        *string      `json:"approved_by,omitempty"`
	ApprovedAt        *time.Time   `json:"approved_at,omitempty"`
	ArchiveSha256     *string      `json:"archive_sha256,omitempty"`
	CreatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Summary) TableName() string { return "reconciliation_summaries" }

func (s Summary) Approved() bool { return s.ApprovedAt != nil }

// Adjustment is one manual correction line. Adjustments are replaced
// wholesale on each save, never edited individually.
type Adjustment struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	SummaryID      snowflake.ID `gorm:"not null;index" json:"summary_id"`
	Position       int          `gorm:"not null" json:"position"`
	AdjustmentType string       `gorm:"type:text;not null" json:"adjustment_type"`
	Amount         int64        `gorm:"not null" json:"amount"`
	ReasonCode     string       `gorm:"type:text;not null" json:"reason_code"`
	Notes          string       `gorm:"type:text;not null;default:''" json:"notes,omitempty"`
	CreatedBy      string       `gorm:"type:text;not null" json:"created_by"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Adjustment) TableName() string { return "reconciliation_adjustments" }

// MethodBreakdown is one payment-method bucket with unique-player
// counts. A player with several confirmed entries counts once.
type MethodBreakdown struct {
	PaymentMethod string `json:"payment_method"`
	UniquePlayers int    `json:"unique_players"`
	Total         int64  `json:"total"`
}

// InstantMethodBreakdown is one configured instant payment method with
// its on-the-night and late buckets.
type InstantMethodBreakdown struct {
	ClubPaymentMethodID snowflake.ID    `json:"club_payment_method_id"`
	Code                string          `json:"code"`
	Label               string          `json:"label"`
	OnTheNight          MethodBreakdown `json:"on_the_night"`
	Late                MethodBreakdown `json:"late"`
}

// FinancialReport is the pure aggregation over confirmed ledger
// entries and confirmed tickets for one room.
type FinancialReport struct {
	RoomID            snowflake.ID             `json:"room_id"`
	StartingEntryFees int64                    `json:"starting_entry_fees"`
	StartingExtras    int64                    `json:"starting_extras"`
	StartingTotal     int64                    `json:"starting_total"`
	ConfirmedTickets  int                      `json:"confirmed_tickets"`
	RedeemedTickets   int                      `json:"redeemed_tickets"`
	OnsiteOnTheNight  []MethodBreakdown        `json:"onsite_on_the_night"`
	OnsiteLate        []MethodBreakdown        `json:"onsite_late"`
	InstantMethods    []InstantMethodBreakdown `json:"instant_methods"`
	GeneratedAt       time.Time                `json:"generated_at"`
}

var (
	ErrSummaryNotFound    = errors.New("reconciliation_not_found")
	ErrAlreadyApproved    = errors.New("reconciliation_already_approved")
	ErrFinalTotalRequired = errors.New("final_total_required")
	ErrInvalidAdjustment  = errors.New("invalid_adjustment")
	ErrInvalidApprover    = errors.New("invalid_approver")
)
