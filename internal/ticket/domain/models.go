package domain

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"gorm.io/datatypes"
)

// PaymentStatus tracks the money side of a ticket. There is no pending
// state, a ticket is never written before its payment is claimed.
type PaymentStatus string

const (
	PaymentStatusClaimed   PaymentStatus = "payment_claimed"
	PaymentStatusConfirmed PaymentStatus = "payment_confirmed"
)

// RedemptionStatus tracks the admission side. redeemed is terminal.
type RedemptionStatus string

const (
	RedemptionStatusBlocked  RedemptionStatus = "blocked"
	RedemptionStatusReady    RedemptionStatus = "ready"
	RedemptionStatusRedeemed RedemptionStatus = "redeemed"
)

var redemptionTransitions = map[RedemptionStatus][]RedemptionStatus{
	RedemptionStatusBlocked: {RedemptionStatusReady},
	RedemptionStatusReady:   {RedemptionStatusRedeemed},
}

// CanTransitionRedemption reports whether from→to is a legal forward move.
func CanTransitionRedemption(from, to RedemptionStatus) bool {
	for _, next := range redemptionTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TicketExtra is one priced add-on captured at purchase time. The
// snapshot is authoritative even if the room's catalog changes later.
type TicketExtra struct {
	ExtraID string `json:"extra_id"`
	Label   string `json:"label"`
	Price   int64  `json:"price"`
}

// Ticket is one purchased admission. The row is created directly in
// payment_claimed/blocked, confirmed by a host, and redeemed once.
type Ticket struct {
	ID                 snowflake.ID     `gorm:"primaryKey" json:"id"`
	TicketID           string           `gorm:"type:text;not null;uniqueIndex" json:"ticket_id"`
	RoomID             snowflake.ID     `gorm:"not null;index" json:"room_id"`
	ClubID             snowflake.ID     `gorm:"not null" json:"club_id"`
	PurchaserName      string           `gorm:"type:text;not null" json:"purchaser_name"`
	PurchaserEmail     string           `gorm:"type:text;not null;default:''" json:"purchaser_email,omitempty"`
	EntryFee           int64            `gorm:"not null;default:0" json:"entry_fee"`
	Extras             datatypes.JSON   `gorm:"not null;default:'[]'" json:"extras"`
	ExtrasTotal        int64            `gorm:"not null;default:0" json:"extras_total"`
	TotalAmount        int64            `gorm:"not null;default:0" json:"total_amount"`
	Currency           string           `gorm:"type:text;not null" json:"currency"`
	PaymentStatus      PaymentStatus    `gorm:"type:text;not null" json:"payment_status"`
	RedemptionStatus   RedemptionStatus `gorm:"type:text;not null" json:"redemption_status"`
	JoinToken          string           `gorm:"type:text;not null;uniqueIndex" json:"join_token"`
	PaymentMethod      string           `gorm:"type:text;not null;default:''" json:"payment_method"`
	PaymentReference   string           `gorm:"type:text;not null;default:''" json:"payment_reference,omitempty"`
	ConfirmedBy        *string          `json:"confirmed_by,omitempty"`
	ConfirmedByName    *string          `json:"confirmed_by_name,omitempty"`
	ConfirmedByRole    *string          `json:"confirmed_by_role,omitempty"`
	ConfirmNotes       *string          `json:"confirm_notes,omitempty"`
	ConfirmedAt        *time.Time       `json:"confirmed_at,omitempty"`
	RedeemedAt         *time.Time       `json:"redeemed_at,omitempty"`
	RedeemedByPlayerID *string          `json:"redeemed_by_player_id,omitempty"`
	CreatedAt          time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Ticket) TableName() string { return "tickets" }

// SyntheticPlayerID is the placeholder ledger identity a ticket holds
// until redemption re-links its entries to the real player.
func SyntheticPlayerID(ticketID string) string {
	return "ticket_" + ticketID
}

// NewTicketID mints the public ticket identifier.
func NewTicketID(at time.Time) string {
	return fmt.Sprintf("tkt_%s", ulid.MustNew(ulid.Timestamp(at), rand.Reader).String())
}

// NewJoinToken mints the self-service redemption capability token.
func NewJoinToken() string {
	return uuid.NewString()
}

var (
	ErrTicketNotFound      = errors.New("ticket_not_found")
	ErrAlreadyConfirmed    = errors.New("ticket_already_confirmed")
	ErrInvalidToken        = errors.New("invalid_join_token")
	ErrAlreadyRedeemed     = errors.New("ticket_already_redeemed")
	ErrPaymentNotConfirmed = errors.New("ticket_payment_not_confirmed")
	ErrNotReady            = errors.New("ticket_not_ready")
	ErrCapacityExceeded    = errors.New("capacity_exceeded")
)
