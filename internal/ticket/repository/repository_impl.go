package repository

import (
	"context"
	"time"

	"github.com/clubnite/doorman/internal/ticket/domain"
	"gorm.io/gorm"
)

const ticketColumns = `id, ticket_id, room_id, club_id, purchaser_name, purchaser_email,
	entry_fee, extras, extras_total, total_amount, currency,
	payment_status, redemption_status, join_token, payment_method, payment_reference,
	confirmed_by, confirmed_by_name, confirmed_by_role, confirm_notes, confirmed_at,
	redeemed_at, redeemed_by_player_id, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, ticket *domain.Ticket) error {
	now := time.Now().UTC()
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = now
	}
	ticket.UpdatedAt = now
	return conn.WithContext(ctx).Exec(
		`INSERT INTO tickets
		   (id, ticket_id, room_id, club_id, purchaser_name, purchaser_email,
		    entry_fee, extras, extras_total, total_amount, currency,
		    payment_status, redemption_status, join_token, payment_method, payment_reference,
		    created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ticket.ID, ticket.TicketID, ticket.RoomID, ticket.ClubID,
		ticket.PurchaserName, ticket.PurchaserEmail,
		ticket.EntryFee, ticket.Extras, ticket.ExtrasTotal, ticket.TotalAmount, ticket.Currency,
		ticket.PaymentStatus, ticket.RedemptionStatus, ticket.JoinToken,
		ticket.PaymentMethod, ticket.PaymentReference,
		ticket.CreatedAt, ticket.UpdatedAt,
	).Error
}

func (r *repo) FindByTicketID(ctx context.Context, conn *gorm.DB, ticketID string) (*domain.Ticket, error) {
	var ticket domain.Ticket
	err := conn.WithContext(ctx).Raw(
		`SELECT `+ticketColumns+` FROM tickets WHERE ticket_id = ?`,
		ticketID,
	).Scan(&ticket).Error
	if err != nil {
		return nil, err
	}
	if ticket.ID == 0 {
		return nil, nil
	}
	return &ticket, nil
}

func (r *repo) FindByJoinToken(ctx context.Context, conn *gorm.DB, joinToken string) (*domain.Ticket, error) {
	var ticket domain.Ticket
	err := conn.WithContext(ctx).Raw(
		`SELECT `+ticketColumns+` FROM tickets WHERE join_token = ?`,
		joinToken,
	).Scan(&ticket).Error
	if err != nil {
		return nil, err
	}
	if ticket.ID == 0 {
		return nil, nil
	}
	return &ticket, nil
}

func (r *repo) MarkConfirmed(ctx context.Context, conn *gorm.DB, ticketID string, stamp domain.ConfirmStamp) (int64, error) {
	res := conn.WithContext(ctx).Exec(
		`UPDATE tickets
		 SET payment_status = ?,
		     redemption_status = ?,
		     confirmed_by = ?,
		     confirmed_by_name = ?,
		     confirmed_by_role = ?,
		     confirm_notes = ?,
		     confirmed_at = ?,
		     updated_at = ?
		 WHERE ticket_id = ? AND payment_status = ?`,
		domain.PaymentStatusConfirmed, domain.RedemptionStatusReady,
		stamp.ConfirmedBy, stamp.ConfirmedByName, stamp.ConfirmedByRole,
		stamp.Notes, stamp.ConfirmedAt, stamp.ConfirmedAt,
		ticketID, domain.PaymentStatusClaimed,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repo) MarkRedeemed(ctx context.Context, conn *gorm.DB, ticketID, playerID string, at time.Time) (int64, error) {
	res := conn.WithContext(ctx).Exec(
		`UPDATE tickets
		 SET redemption_status = ?,
		     redeemed_at = ?,
		     redeemed_by_player_id = ?,
		     updated_at = ?
		 WHERE ticket_id = ? AND redemption_status = ?`,
		domain.RedemptionStatusRedeemed, at, playerID, at,
		ticketID, domain.RedemptionStatusReady,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
