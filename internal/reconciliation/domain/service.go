package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/clubnite/doorman/internal/ledger/domain"
)

// SaveTotals carries the caller-supplied figures for one save. The
// final total is required, the rest defaults to zero.
type SaveTotals struct {
	StartingEntryFees int64  `json:"starting_entry_fees"`
	StartingExtras    int64  `json:"starting_extras"`
	StartingTotal     int64  `json:"starting_total"`
	FinalTotal        *int64 `json:"final_total"`
}

// AdjustmentInput is one adjustment line as submitted. Position is
// assigned from list order on save.
type AdjustmentInput struct {
	AdjustmentType string `json:"adjustment_type"`
	Amount         int64  `json:"amount"`
	ReasonCode     string `json:"reason_code"`
	Notes          string `json:"notes"`
	CreatedBy      string `json:"created_by"`
}

type SaveRequest struct {
	RoomID      snowflake.ID
	Totals      SaveTotals
	Adjustments []AdjustmentInput
}

// ExportBundle is the full reconciliation archive for one room.
type ExportBundle struct {
	Summary       Summary                    `json:"summary"`
	Adjustments   []Adjustment               `json:"adjustments"`
	LedgerEntries []ledgerdomain.LedgerEntry `json:"ledger_entries"`
	ArchiveSha256 string                     `json:"archive_sha256"`
}

type Service interface {
	// Report aggregates confirmed ledger and ticket state. Pure read.
	Report(ctx context.Context, roomID snowflake.ID) (FinancialReport, error)
	// Save upserts the summary and replaces the whole adjustment set
	// atomically. Rejected once the summary is approved.
	Save(ctx context.Context, req SaveRequest) (snowflake.ID, error)
	// Approve closes the summary for good. A second call is rejected.
	Approve(ctx context.Context, roomID snowflake.ID, approvedBy string) (*Summary, error)
	Export(ctx context.Context, roomID snowflake.ID) (ExportBundle, error)
}
