package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/clubnite/doorman/internal/capacity/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) CountReserved(ctx context.Context, conn *gorm.DB, roomID snowflake.ID) (int, error) {
	var count int
	err := conn.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM tickets
		 WHERE room_id = ? AND payment_status IN (?, ?)`,
		roomID, "payment_claimed", "payment_confirmed",
	).Scan(&count).Error
	return count, err
}

func (r *repo) CountRedeemed(ctx context.Context, conn *gorm.DB, roomID snowflake.ID) (int, error) {
	var count int
	err := conn.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM tickets
		 WHERE room_id = ? AND redemption_status = ?`,
		roomID, "redeemed",
	).Scan(&count).Error
	return count, err
}
