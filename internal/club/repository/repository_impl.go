package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/clubnite/doorman/internal/club/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) ListPaymentMethods(ctx context.Context, db *gorm.DB, clubID snowflake.ID) ([]domain.ClubPaymentMethod, error) {
	var methods []domain.ClubPaymentMethod
	err := db.WithContext(ctx).Raw(
		`SELECT id, club_id, code, label, kind, enabled, created_at, updated_at
		 FROM club_payment_methods
		 WHERE club_id = ? AND enabled = ?
		 ORDER BY code ASC`,
		clubID,
		true,
	).Scan(&methods).Error
	if err != nil {
		return nil, err
	}
	return methods, nil
}
