package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// ConfirmStamp carries the confirmer metadata written on confirmation.
type ConfirmStamp struct {
	ConfirmedBy     string
	ConfirmedByName string
	ConfirmedByRole string
	Notes           string
	ConfirmedAt     time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, ticket *Ticket) error
	FindByTicketID(ctx context.Context, db *gorm.DB, ticketID string) (*Ticket, error)
	FindByJoinToken(ctx context.Context, db *gorm.DB, joinToken string) (*Ticket, error)
	// MarkConfirmed flips payment_claimed to payment_confirmed and
	// blocked to ready in one guarded update. Zero rows means a
	// concurrent caller won.
	MarkConfirmed(ctx context.Context, db *gorm.DB, ticketID string, stamp ConfirmStamp) (int64, error)
	// MarkRedeemed flips ready to redeemed. Zero rows means the ticket
	// was already redeemed or not yet ready.
	MarkRedeemed(ctx context.Context, db *gorm.DB, ticketID, playerID string, at time.Time) (int64, error)
}
