package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/clubnite/doorman/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	// FindTicketObligation returns the entry identified by the
	// (ticketID, ledgerType, extraID) idempotency key, or nil.
	FindTicketObligation(ctx context.Context, db *gorm.DB, ticketID string, ledgerType LedgerType, extraID string) (*LedgerEntry, error)
	Insert(ctx context.Context, db *gorm.DB, entry *LedgerEntry) error
	// Claim moves expected entries for room+player to claimed.
	Claim(ctx context.Context, db *gorm.DB, roomID snowflake.ID, playerID, reference, method string) (int64, error)
	// Confirm moves expected and claimed entries for room+player to
	// confirmed, merging optional method fields COALESCE-style.
	Confirm(ctx context.Context, db *gorm.DB, upd ConfirmUpdate) (int64, error)
	// ReassignPlayer relabels entries from one player id to another.
	ReassignPlayer(ctx context.Context, db *gorm.DB, roomID snowflake.ID, fromPlayerID, toPlayerID string) (int64, error)
	ListByRoom(ctx context.Context, db *gorm.DB, roomID snowflake.ID, page pagination.Pagination) ([]*LedgerEntry, error)
}
