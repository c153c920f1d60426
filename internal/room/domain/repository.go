package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository reads the room registry. Rooms settled on an out-of-scope
// rail are reported as absent.
type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Room, error)
	ListExtras(ctx context.Context, db *gorm.DB, roomID snowflake.ID) ([]RoomExtra, error)
	// LockForUpdate takes a row lock on the room so concurrent ticket
	// creation serializes per room. No-op on dialects without FOR UPDATE.
	LockForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) error
}
