package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateTicketRequest struct {
	RoomID           snowflake.ID
	PurchaserName    string
	PurchaserEmail   string
	ExtraIDs         []string
	PaymentMethod    string
	PaymentReference string
}

// CreateTicketResult carries the persisted ticket plus the id of its
// entry fee ledger obligation. The ledger id is a back-reference, the
// entry stays owned by the ledger.
type CreateTicketResult struct {
	Ticket           Ticket       `json:"ticket"`
	EntryFeeLedgerID snowflake.ID `json:"entry_fee_ledger_id"`
}

type ConfirmTicketRequest struct {
	TicketID        string
	ConfirmedBy     string
	ConfirmedByName string
	ConfirmedByRole string
	Notes           string
}

type RedeemTicketRequest struct {
	JoinToken string
	PlayerID  string
}

type RedemptionResult struct {
	Ticket            Ticket `json:"ticket"`
	ReassignedEntries int64  `json:"reassigned_entries"`
}

type Service interface {
	// Create persists the ticket and its ledger obligations in one
	// transaction, re-checking capacity under a room row lock.
	Create(ctx context.Context, req CreateTicketRequest) (CreateTicketResult, error)
	Confirm(ctx context.Context, req ConfirmTicketRequest) (*Ticket, error)
	Redeem(ctx context.Context, req RedeemTicketRequest) (RedemptionResult, error)
	Get(ctx context.Context, ticketID string) (*Ticket, error)
}

var (
	ErrInvalidPurchaser = errors.New("invalid_purchaser")
	ErrInvalidPlayerID  = errors.New("invalid_player_id")
)
