package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/clubnite/doorman/internal/ledger/domain"
	"github.com/clubnite/doorman/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindTicketObligation(ctx context.Context, conn *gorm.DB, ticketID string, ledgerType domain.LedgerType, extraID string) (*domain.LedgerEntry, error) {
	var entry domain.LedgerEntry
	err := conn.WithContext(ctx).Raw(
		`SELECT id, room_id, club_id, player_id, ledger_type, amount, currency, status,
		        payment_method, club_payment_method_id, ticket_id, extra_id, is_late,
		        payment_reference, claimed_at, confirmed_at, confirmed_by, created_at, updated_at
		 FROM ledger_entries
		 WHERE ticket_id = ? AND ledger_type = ? AND extra_id = ?`,
		ticketID, ledgerType, extraID,
	).Scan(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.ID == 0 {
		return nil, nil
	}
	return &entry, nil
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, entry *domain.LedgerEntry) error {
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now
	return conn.WithContext(ctx).Exec(
		`INSERT INTO ledger_entries
		   (id, room_id, club_id, player_id, ledger_type, amount, currency, status,
		    payment_method, club_payment_method_id, ticket_id, extra_id, is_late,
		    payment_reference, claimed_at, confirmed_at, confirmed_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.RoomID, entry.ClubID, entry.PlayerID, entry.LedgerType,
		entry.Amount, entry.Currency, entry.Status, entry.PaymentMethod,
		entry.ClubPaymentMethodID, entry.TicketID, entry.ExtraID, entry.IsLate,
		entry.PaymentReference, entry.ClaimedAt, entry.ConfirmedAt, entry.ConfirmedBy,
		entry.CreatedAt, entry.UpdatedAt,
	).Error
}

func (r *repo) Claim(ctx context.Context, conn *gorm.DB, roomID snowflake.ID, playerID, reference, method string) (int64, error) {
	// Status guard in the WHERE clause keeps the move monotonic even
	// under concurrent claims.
	res := conn.WithContext(ctx).Exec(
		`UPDATE ledger_entries
		 SET status = ?,
		     payment_reference = CASE WHEN ? <> '' THEN ? ELSE payment_reference END,
		     payment_method = CASE WHEN ? <> '' THEN ? ELSE payment_method END,
		     claimed_at = ?,
		     updated_at = ?
		 WHERE room_id = ? AND player_id = ? AND status = ?`,
		domain.LedgerStatusClaimed,
		reference, reference,
		method, method,
		time.Now().UTC(), time.Now().UTC(),
		roomID, playerID, domain.LedgerStatusExpected,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repo) Confirm(ctx context.Context, conn *gorm.DB, upd domain.ConfirmUpdate) (int64, error) {
	res := conn.WithContext(ctx).Exec(
		`UPDATE ledger_entries
		 SET status = ?,
		     confirmed_at = ?,
		     confirmed_by = ?,
		     is_late = ?,
		     payment_method = COALESCE(?, payment_method),
		     club_payment_method_id = COALESCE(?, club_payment_method_id),
		     updated_at = ?
		 WHERE room_id = ? AND player_id = ? AND status IN (?, ?)`,
		domain.LedgerStatusConfirmed,
		upd.ConfirmedAt, upd.ConfirmedBy, upd.IsLate,
		upd.PaymentMethod, upd.ClubPaymentMethodID,
		upd.ConfirmedAt,
		upd.RoomID, upd.PlayerID,
		domain.LedgerStatusExpected, domain.LedgerStatusClaimed,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repo) ReassignPlayer(ctx context.Context, conn *gorm.DB, roomID snowflake.ID, fromPlayerID, toPlayerID string) (int64, error) {
	res := conn.WithContext(ctx).Exec(
		`UPDATE ledger_entries
		 SET player_id = ?, updated_at = ?
		 WHERE room_id = ? AND player_id = ?`,
		toPlayerID, time.Now().UTC(), roomID, fromPlayerID,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repo) ListByRoom(ctx context.Context, conn *gorm.DB, roomID snowflake.ID, page pagination.Pagination) ([]*domain.LedgerEntry, error) {
	limit := page.PageSize
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, room_id, club_id, player_id, ledger_type, amount, currency, status,
	                 payment_method, club_payment_method_id, ticket_id, extra_id, is_late,
	                 payment_reference, claimed_at, confirmed_at, confirmed_by, created_at, updated_at
	          FROM ledger_entries
	          WHERE room_id = ?`
	args := []any{roomID}

	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, fmt.Errorf("invalid page token: %w", err)
		}
		lastID, err := strconv.ParseInt(cursor.ID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid page token: %w", err)
		}
		query += ` AND id > ?`
		args = append(args, lastID)
	}

	query += ` ORDER BY id ASC LIMIT ?`
	args = append(args, limit+1)

	var entries []*domain.LedgerEntry
	if err := conn.WithContext(ctx).Raw(query, args...).Scan(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
