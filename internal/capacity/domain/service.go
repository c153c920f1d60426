package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	roomdomain "github.com/clubnite/doorman/internal/room/domain"
	"gorm.io/gorm"
)

type Service interface {
	// Status derives the capacity picture for a room. liveHeadcount
	// comes from an external session tracker and includes redeemed
	// ticket holders.
	Status(ctx context.Context, roomID snowflake.ID, liveHeadcount int) (Status, error)
	// StatusTx is Status evaluated on the caller's connection, used to
	// re-check capacity inside the ticket creation transaction.
	StatusTx(ctx context.Context, tx *gorm.DB, room *roomdomain.Room, liveHeadcount int) (Status, error)
	CanPurchase(ctx context.Context, roomID snowflake.ID, quantity int) (Decision, error)
	CanWalkIn(ctx context.Context, roomID snowflake.ID, liveHeadcount int) (Decision, error)
	// CanRedeem always allows at the capacity layer. A confirmed ticket
	// reserved its slot at purchase time.
	CanRedeem(ctx context.Context, roomID snowflake.ID, ticketID string, liveHeadcount int) (Decision, error)
}

var (
	ErrInvalidQuantity  = errors.New("invalid_quantity")
	ErrInvalidHeadcount = errors.New("invalid_headcount")
)
