package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// CountReserved counts tickets holding a slot, claimed and
	// confirmed alike. Runs against the caller's connection so the
	// ticket creation transaction can recount under its row lock.
	CountReserved(ctx context.Context, db *gorm.DB, roomID snowflake.ID) (int, error)
	CountRedeemed(ctx context.Context, db *gorm.DB, roomID snowflake.ID) (int, error)
}
