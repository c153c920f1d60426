package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/clubnite/doorman/internal/reconciliation/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) StartingTotals(ctx context.Context, conn *gorm.DB, roomID snowflake.ID) (int64, int64, error) {
	var rows []struct {
		LedgerType string `gorm:"column:ledger_type"`
		Total      int64  `gorm:"column:total"`
	}
	err := conn.WithContext(ctx).Raw(
		`SELECT ledger_type, SUM(amount) AS total
		 FROM ledger_entries
		 WHERE room_id = ? AND status = 'confirmed'
		 GROUP BY ledger_type`,
		roomID,
	).Scan(&rows).Error
	if err != nil {
		return 0, 0, err
	}

	var entryFees, extras int64
	for _, row := range rows {
		switch row.LedgerType {
		case "entry_fee":
			entryFees = row.Total
		case "extra_purchase":
			extras = row.Total
		}
	}
	return entryFees, extras, nil
}

func (r *repo) OnsiteBreakdown(ctx context.Context, conn *gorm.DB, roomID snowflake.ID) ([]domain.MethodRow, error) {
	var rows []domain.MethodRow
	err := conn.WithContext(ctx).Raw(
		`SELECT payment_method, is_late,
		        COUNT(DISTINCT player_id) AS unique_players,
		        SUM(amount) AS total
		 FROM ledger_entries
		 WHERE room_id = ? AND status = 'confirmed' AND club_payment_method_id IS NULL
		 GROUP BY payment_method, is_late
		 ORDER BY payment_method ASC, is_late ASC`,
		roomID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) InstantBreakdown(ctx context.Context, conn *gorm.DB, roomID snowflake.ID) ([]domain.InstantRow, error) {
	var rows []domain.InstantRow
	err := conn.WithContext(ctx).Raw(
		`SELECT cpm.id AS club_payment_method_id, cpm.code, cpm.label, le.is_late,
		        COUNT(DISTINCT le.player_id) AS unique_players,
		        SUM(le.amount) AS total
		 FROM ledger_entries le
		 JOIN club_payment_methods cpm ON cpm.id = le.club_payment_method_id
		 WHERE le.room_id = ? AND le.status = 'confirmed' AND cpm.kind = 'instant'
		 GROUP BY cpm.id, cpm.code, cpm.label, le.is_late
		 ORDER BY cpm.code ASC, le.is_late ASC`,
		roomID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) TicketCounts(ctx context.Context, conn *gorm.DB, roomID snowflake.ID) (int, int, error) {
	var row struct {
		Confirmed int `gorm:"column:confirmed"`
		Redeemed  int `gorm:"column:redeemed"`
	}
	err := conn.WithContext(ctx).Raw(
		`SELECT
		   COUNT(CASE WHEN payment_status = 'payment_confirmed' THEN 1 END) AS confirmed,
		   COUNT(CASE WHEN redemption_status = 'redeemed' THEN 1 END) AS redeemed
		 FROM tickets WHERE room_id = ?`,
		roomID,
	).Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	return row.Confirmed, row.Redeemed, nil
}

func (r *repo) FindSummaryByRoom(ctx context.Context, conn *gorm.DB, roomID snowflake.ID) (*domain.Summary, error) {
	var summary domain.Summary
	err := conn.WithContext(ctx).Raw(
		`SELECT id, room_id, starting_entry_fees, starting_extras, starting_total,
		        adjustments_net, final_total, approved_by, approved_at, archive_sha256,
		        created_at, updated_at
		 FROM reconciliation_summaries WHERE room_id = ?`,
		roomID,
	).Scan(&summary).Error
	if err != nil {
		return nil, err
	}
	if summary.ID == 0 {
		return nil, nil
	}
	return &summary, nil
}

func (r *repo) InsertSummary(ctx context.Context, conn *gorm.DB, summary *domain.Summary) error {
	now := time.Now().UTC()
	if summary.CreatedAt.IsZero() {
		summary.CreatedAt = now
	}
	summary.UpdatedAt = now
	return conn.WithContext(ctx).Exec(
		`INSERT INTO reconciliation_summaries
		   (id, room_id, starting_entry_fees, starting_extras, starting_total,
		    adjustments_net, final_total, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.ID, summary.RoomID,
		summary.StartingEntryFees, summary.StartingExtras, summary.StartingTotal,
		summary.AdjustmentsNet, summary.FinalTotal,
		summary.CreatedAt, summary.UpdatedAt,
	).Error
}

func (r *repo) UpdateSummary(ctx context.Context, conn *gorm.DB, summary *domain.Summary) (int64, error) {
	// approved_at IS NULL keeps the one-way approval gate honest even
	// against a racing approver.
	res := conn.WithContext(ctx).Exec(
		`UPDATE reconciliation_summaries
		 SET starting_entry_fees = ?,
		     starting_extras = ?,
		     starting_total = ?,
		     adjustments_net = ?,
		     final_total = ?,
		     updated_at = ?
		 WHERE id = ? AND approved_at IS NULL`,
		summary.StartingEntryFees, summary.StartingExtras, summary.StartingTotal,
		summary.AdjustmentsNet, summary.FinalTotal,
		time.Now().UTC(), summary.ID,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repo) ReplaceAdjustments(ctx context.Context, conn *gorm.DB, summaryID snowflake.ID, adjustments []domain.Adjustment) error {
	if err := conn.WithContext(ctx).Exec(
		`DELETE FROM reconciliation_adjustments WHERE summary_id = ?`,
		summaryID,
	).Error; err != nil {
		return err
	}

	for _, adj := range adjustments {
		if err := conn.WithContext(ctx).Exec(
			`INSERT INTO reconciliation_adjustments
			   (id, summary_id, position, adjustment_type, amount, reason_code, notes, created_by, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			adj.ID, summaryID, adj.Position, adj.AdjustmentType,
			adj.Amount, adj.ReasonCode, adj.Notes, adj.CreatedBy, adj.CreatedAt,
		).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) ListAdjustments(ctx context.Context, conn *gorm.DB, summaryID snowflake.ID) ([]domain.Adjustment, error) {
	var adjustments []domain.Adjustment
	err := conn.WithContext(ctx).Raw(
		`SELECT id, summary_id, position, adjustment_type, amount, reason_code, notes, created_by, created_at
		 FROM reconciliation_adjustments
		 WHERE summary_id = ?
		 ORDER BY position ASC`,
		summaryID,
	).Scan(&adjustments).Error
	if err != nil {
		return nil, err
	}
	return adjustments, nil
}

func (r *repo) Approve(ctx context.Context, conn *gorm.DB, roomID snowflake.ID, approvedBy string, at time.Time) (int64, error) {
	res := conn.WithContext(ctx).Exec(
		`UPDATE reconciliation_summaries
		 SET approved_by = ?, approved_at = ?, updated_at = ?
		 WHERE room_id = ? AND approved_at IS NULL`,
		approvedBy, at, at, roomID,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repo) SetArchiveHash(ctx context.Context, conn *gorm.DB, summaryID snowflake.ID, hash string) (int64, error) {
	res := conn.WithContext(ctx).Exec(
		`UPDATE reconciliation_summaries
		 SET archive_sha256 = ?, updated_at = ?
		 WHERE id = ? AND archive_sha256 IS NULL`,
		hash, time.Now().UTC(), summaryID,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
