package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/clubnite/doorman/internal/room/domain"
	"github.com/clubnite/doorman/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Room, error) {
	var room domain.Room
	err := conn.WithContext(ctx).Raw(
		`SELECT id, club_id, name, status, max_capacity, entry_fee, currency,
		        scheduled_at, settlement_rail, created_at, updated_at
		 FROM rooms WHERE id = ?`,
		id,
	).Scan(&room).Error
	if err != nil {
		return nil, err
	}
	if room.ID == 0 {
		return nil, nil
	}
	if room.SettlementRail == domain.SettlementRailOnchain {
		return nil, nil
	}
	return &room, nil
}

func (r *repo) ListExtras(ctx context.Context, conn *gorm.DB, roomID snowflake.ID) ([]domain.RoomExtra, error) {
	var extras []domain.RoomExtra
	err := conn.WithContext(ctx).Raw(
		`SELECT id, room_id, extra_id, label, price, created_at
		 FROM room_extras WHERE room_id = ?
		 ORDER BY extra_id ASC`,
		roomID,
	).Scan(&extras).Error
	if err != nil {
		return nil, err
	}
	return extras, nil
}

func (r *repo) LockForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) error {
	if !db.SupportsRowLocks(tx) {
		return nil
	}
	var locked snowflake.ID
	return tx.WithContext(ctx).Raw(
		`SELECT id FROM rooms WHERE id = ? FOR UPDATE`,
		id,
	).Scan(&locked).Error
}
