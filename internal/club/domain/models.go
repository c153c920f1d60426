package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// PaymentMethodKind distinguishes instant (app-mediated) methods from
// on-site ones settled at the door.
type PaymentMethodKind string

const (
	PaymentMethodKindInstant PaymentMethodKind = "instant"
	PaymentMethodKindOnsite  PaymentMethodKind = "onsite"
)

// ClubPaymentMethod is one payment method a club accepts.
type ClubPaymentMethod struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	ClubID    snowflake.ID      `gorm:"not null;index" json:"club_id"`
	Code      string            `gorm:"type:text;not null" json:"code"`
	Label     string            `gorm:"not null" json:"label"`
	Kind      PaymentMethodKind `gorm:"type:text;not null" json:"kind"`
	Enabled   bool              `gorm:"not null;default:true" json:"enabled"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (ClubPaymentMethod) TableName() string { return "club_payment_methods" }

type Repository interface {
	ListPaymentMethods(ctx context.Context, db *gorm.DB, clubID snowflake.ID) ([]ClubPaymentMethod, error)
}
