package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// MethodRow is one (payment method, lateness) aggregation bucket as it
// comes back from the store.
type MethodRow struct {
	PaymentMethod string `gorm:"column:payment_method"`
	IsLate        bool   `gorm:"column:is_late"`
	UniquePlayers int    `gorm:"column:unique_players"`
	Total         int64  `gorm:"column:total"`
}

// InstantRow is one (club payment method, lateness) bucket.
type InstantRow struct {
	ClubPaymentMethodID snowflake.ID `gorm:"column:club_payment_method_id"`
	Code                string       `gorm:"column:code"`
	Label               string       `gorm:"column:label"`
	IsLate              bool         `gorm:"column:is_late"`
	UniquePlayers       int          `gorm:"column:unique_players"`
	Total               int64        `gorm:"column:total"`
}

type Repository interface {
	StartingTotals(ctx context.Context, db *gorm.DB, roomID snowflake.ID) (entryFees, extras int64, err error)
	OnsiteBreakdown(ctx context.Context, db *gorm.DB, roomID snowflake.ID) ([]MethodRow, error)
	InstantBreakdown(ctx context.Context, db *gorm.DB, roomID snowflake.ID) ([]InstantRow, error)
	TicketCounts(ctx context.Context, db *gorm.DB, roomID snowflake.ID) (confirmed, redeemed int, err error)

	FindSummaryByRoom(ctx context.Context, db *gorm.DB, roomID snowflake.ID) (*Summary, error)
	InsertSummary(ctx context.Context, db *gorm.DB, summary *Summary) error
	// UpdateSummary rewrites the totals of an unapproved summary. Zero
	// rows means the summary was approved in the meantime.
	UpdateSummary(ctx context.Context, db *gorm.DB, summary *Summary) (int64, error)
	// ReplaceAdjustments deletes the summary's adjustment set and
	// inserts the new one. Callers run it inside a transaction.
	ReplaceAdjustments(ctx context.Context, db *gorm.DB, summaryID snowflake.ID, adjustments []Adjustment) error
	ListAdjustments(ctx context.Context, db *gorm.DB, summaryID snowflake.ID) ([]Adjustment, error)
	// Approve stamps approval on an unapproved summary. Zero rows means
	// it was already approved.
	Approve(ctx context.Context, db *gorm.DB, roomID snowflake.ID, approvedBy string, at time.Time) (int64, error)
	// SetArchiveHash records the export fingerprint once. Zero rows
	// means a fingerprint already exists.
	SetArchiveHash(ctx context.Context, db *gorm.DB, summaryID snowflake.ID, hash string) (int64, error)
}
