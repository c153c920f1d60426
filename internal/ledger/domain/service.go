package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/clubnite/doorman/pkg/db/pagination"
	"gorm.io/gorm"
)

// CreateEntryRequest creates one expected or claimed obligation. When
// TicketID is set the (TicketID, LedgerType, ExtraID) triple is an
// idempotency key: re-creation returns the original entry id.
type CreateEntryRequest struct {
	RoomID              snowflake.ID
	ClubID              snowflake.ID
	PlayerID            string
	LedgerType          LedgerType
	Amount              int64
	Currency            string
	PaymentMethod       string
	ClubPaymentMethodID *snowflake.ID
	TicketID            string
	ExtraID             string
	PaymentReference    string
	ClaimedAt           *time.Time
}

type ClaimRequest struct {
	RoomID           snowflake.ID
	PlayerID         string
	PaymentReference string
	PaymentMethod    string
}

type ConfirmRequest struct {
	RoomID              snowflake.ID
	PlayerID            string
	ConfirmedBy         string
	PaymentMethod       *string
	ClubPaymentMethodID *snowflake.ID
}

// ConfirmUpdate is the repository-level shape of a confirmation.
type ConfirmUpdate struct {
	RoomID              snowflake.ID
	PlayerID            string
	ConfirmedBy         string
	ConfirmedAt         time.Time
	IsLate              bool
	PaymentMethod       *string
	ClubPaymentMethodID *snowflake.ID
}

type ListEntriesRequest struct {
	RoomID snowflake.ID
	pagination.Pagination
}

type ListEntriesResponse struct {
	pagination.PageInfo
	Entries []LedgerEntry `json:"entries"`
}

type Service interface {
	// CreateExpectedOrClaimed writes one obligation using the service's
	// own transaction.
	CreateExpectedOrClaimed(ctx context.Context, req CreateEntryRequest) (snowflake.ID, error)
	// CreateExpectedOrClaimedTx writes one obligation inside the
	// caller's transaction so ticket creation stays all-or-nothing.
	CreateExpectedOrClaimedTx(ctx context.Context, tx *gorm.DB, req CreateEntryRequest) (snowflake.ID, error)
	Claim(ctx context.Context, req ClaimRequest) (int64, error)
	// Confirm returns the number of entries moved to confirmed. Zero
	// affected rows is a valid outcome, not an error.
	Confirm(ctx context.Context, req ConfirmRequest) (int64, error)
	ConfirmTx(ctx context.Context, tx *gorm.DB, req ConfirmRequest) (int64, error)
	// ReassignPlayerTx relabels a room's entries from one player id to
	// another inside the caller's transaction. Used for the synthetic
	// to real identity promotion at redemption.
	ReassignPlayerTx(ctx context.Context, tx *gorm.DB, roomID snowflake.ID, fromPlayerID, toPlayerID string) (int64, error)
	List(ctx context.Context, req ListEntriesRequest) (ListEntriesResponse, error)
}

var (
	ErrInvalidRoom     = errors.New("invalid_room")
	ErrInvalidPlayer   = errors.New("invalid_player")
	ErrInvalidType     = errors.New("invalid_ledger_type")
	ErrInvalidAmount   = errors.New("invalid_amount")
	ErrInvalidCurrency = errors.New("invalid_currency")
)
