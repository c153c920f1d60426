package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/clubnite/doorman/internal/audit/domain"
	"github.com/clubnite/doorman/internal/clock"
	ledgerdomain "github.com/clubnite/doorman/internal/ledger/domain"
	"github.com/clubnite/doorman/internal/observability/metrics"
	"github.com/clubnite/doorman/internal/reconciliation/domain"
	roomdomain "github.com/clubnite/doorman/internal/room/domain"
	"github.com/clubnite/doorman/pkg/db"
	"github.com/clubnite/doorman/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	RoomRepo roomdomain.Repository
	Ledger   ledgerdomain.Service
	Audit    auditdomain.Service
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	roomRepo roomdomain.Repository
	ledger   ledgerdomain.Service
	audit    auditdomain.Service
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("reconciliation.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		roomRepo: p.RoomRepo,
		ledger:   p.Ledger,
		audit:    p.Audit,
		metrics:  p.Metrics,
	}
}

func (s *Service) Report(ctx context.Context, roomID snowflake.ID) (domain.FinancialReport, error) {
	if _, err := s.loadRoom(ctx, roomID); err != nil {
		return domain.FinancialReport{}, err
	}

	entryFees, extras, err := s.repo.StartingTotals(ctx, s.db, roomID)
	if err != nil {
		return domain.FinancialReport{}, db.WrapStorage(err)
	}
	onsite, err := s.repo.OnsiteBreakdown(ctx, s.db, roomID)
	if err != nil {
		return domain.FinancialReport{}, db.WrapStorage(err)
	}
	instant, err := s.repo.InstantBreakdown(ctx, s.db, roomID)
	if err != nil {
		return domain.FinancialReport{}, db.WrapStorage(err)
	}
	confirmed, redeemed, err := s.repo.TicketCounts(ctx, s.db, roomID)
	if err != nil {
		return domain.FinancialReport{}, db.WrapStorage(err)
	}

	report := domain.FinancialReport{
		RoomID:            roomID,
		StartingEntryFees: entryFees,
		StartingExtras:    extras,
		StartingTotal:     entryFees + extras,
		ConfirmedTickets:  confirmed,
		RedeemedTickets:   redeemed,
		OnsiteOnTheNight:  []domain.MethodBreakdown{},
		OnsiteLate:        []domain.MethodBreakdown{},
		InstantMethods:    buildInstantBreakdown(instant),
		GeneratedAt:       s.clock.Now(),
	}
	for _, row := range onsite {
		bucket := domain.MethodBreakdown{
			PaymentMethod: row.PaymentMethod,
			UniquePlayers: row.UniquePlayers,
			Total:         row.Total,
		}
		if row.IsLate {
			report.OnsiteLate = append(report.OnsiteLate, bucket)
		} else {
			report.OnsiteOnTheNight = append(report.OnsiteOnTheNight, bucket)
		}
	}
	return report, nil
}

func (s *Service) Save(ctx context.Context, req domain.SaveRequest) (snowflake.ID, error) {
	if req.Totals.FinalTotal == nil {
		return 0, domain.ErrFinalTotalRequired
	}
	for _, adj := range req.Adjustments {
		if strings.TrimSpace(adj.AdjustmentType) == "" || strings.TrimSpace(adj.ReasonCode) == "" {
			return 0, domain.ErrInvalidAdjustment
		}
	}

	room, err := s.loadRoom(ctx, req.RoomID)
	if err != nil {
		return 0, err
	}

	var adjustmentsNet int64
	for _, adj := range req.Adjustments {
		adjustmentsNet += adj.Amount
	}

	now := s.clock.Now()
	var summaryID snowflake.ID
	err = s.db.Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindSummaryByRoom(ctx, tx, req.RoomID)
		if err != nil {
			return db.WrapStorage(err)
		}
		if existing != nil && existing.Approved() {
			return domain.ErrAlreadyApproved
		}

		summary := domain.Summary{
			RoomID:            req.RoomID,
			StartingEntryFees: req.Totals.StartingEntryFees,
			StartingExtras:    req.Totals.StartingExtras,
			StartingTotal:     req.Totals.StartingTotal,
			AdjustmentsNet:    adjustmentsNet,
			FinalTotal:        *req.Totals.FinalTotal,
		}
		if existing == nil {
			summary.ID = s.genID.Generate()
			if err := s.repo.InsertSummary(ctx, tx, &summary); err != nil {
				return db.WrapStorage(err)
			}
		} else {
			summary.ID = existing.ID
			affected, err := s.repo.UpdateSummary(ctx, tx, &summary)
			if err != nil {
				return db.WrapStorage(err)
			}
			if affected == 0 {
				return domain.ErrAlreadyApproved
			}
		}
		summaryID = summary.ID

		adjustments := make([]domain.Adjustment, 0, len(req.Adjustments))
		for i, adj := range req.Adjustments {
			adjustments = append(adjustments, domain.Adjustment{
				ID:             s.genID.Generate(),
				SummaryID:      summary.ID,
				Position:       i,
				AdjustmentType: adj.AdjustmentType,
				Amount:         adj.Amount,
				ReasonCode:     adj.ReasonCode,
				Notes:          adj.Notes,
				CreatedBy:      adj.CreatedBy,
				CreatedAt:      now,
			})
		}
		if err := s.repo.ReplaceAdjustments(ctx, tx, summary.ID, adjustments); err != nil {
			return db.WrapStorage(err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("reconciliation saved",
		zap.String("room_id", req.RoomID.String()),
		zap.Int("adjustments", len(req.Adjustments)),
		zap.Int64("final_total", *req.Totals.FinalTotal),
	)
	s.auditLog(ctx, room.ClubID, "reconciliation.saved", summaryID.String(), map[string]any{
		"room_id":         req.RoomID.String(),
		"adjustments":     len(req.Adjustments),
		"adjustments_net": adjustmentsNet,
		"final_total":     *req.Totals.FinalTotal,
	})
	return summaryID, nil
}

func (s *Service) Approve(ctx context.Context, roomID snowflake.ID, approvedBy string) (*domain.Summary, error) {
	if strings.TrimSpace(approvedBy) == "" {
		return nil, domain.ErrInvalidApprover
	}

	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	summary, err := s.repo.FindSummaryByRoom(ctx, s.db, roomID)
	if err != nil {
		return nil, db.WrapStorage(err)
	}
	if summary == nil {
		return nil, domain.ErrSummaryNotFound
	}

	affected, err := s.repo.Approve(ctx, s.db, roomID, approvedBy, s.clock.Now())
	if err != nil {
		return nil, db.WrapStorage(err)
	}
	if affected == 0 {
		return nil, domain.ErrAlreadyApproved
	}

	s.metrics.RecordReconciliationApproval(ctx)
	s.log.Info("reconciliation approved",
		zap.String("room_id", roomID.String()),
		zap.String("approved_by", approvedBy),
	)
	s.auditLog(ctx, room.ClubID, "reconciliation.approved", summary.ID.String(), map[string]any{
		"room_id":     roomID.String(),
		"approved_by": approvedBy,
	})

	return s.repo.FindSummaryByRoom(ctx, s.db, roomID)
}

func (s *Service) Export(ctx context.Context, roomID snowflake.ID) (domain.ExportBundle, error) {
	if _, err := s.loadRoom(ctx, roomID); err != nil {
		return domain.ExportBundle{}, err
	}

	summary, err := s.repo.FindSummaryByRoom(ctx, s.db, roomID)
	if err != nil {
		return domain.ExportBundle{}, db.WrapStorage(err)
	}
	if summary == nil {
		return domain.ExportBundle{}, domain.ErrSummaryNotFound
	}

	adjustments, err := s.repo.ListAdjustments(ctx, s.db, summary.ID)
	if err != nil {
		return domain.ExportBundle{}, db.WrapStorage(err)
	}

	entries, err := s.collectLedgerEntries(ctx, roomID)
	if err != nil {
		return domain.ExportBundle{}, err
	}

	bundle := domain.ExportBundle{
		Summary:       *summary,
		Adjustments:   adjustments,
		LedgerEntries: entries,
	}
	hash, err := fingerprint(bundle)
	if err != nil {
		return domain.ExportBundle{}, err
	}
	bundle.ArchiveSha256 = hash

	// First export wins, later exports keep the original fingerprint.
	if summary.ArchiveSha256 == nil {
		if _, err := s.repo.SetArchiveHash(ctx, s.db, summary.ID, hash); err != nil {
			return domain.ExportBundle{}, db.WrapStorage(err)
		}
		bundle.Summary.ArchiveSha256 = &hash
	} else {
		bundle.ArchiveSha256 = *summary.ArchiveSha256
	}

	s.log.Info("reconciliation exported",
		zap.String("room_id", roomID.String()),
		zap.Int("ledger_entries", len(entries)),
	)
	return bundle, nil
}

func (s *Service) collectLedgerEntries(ctx context.Context, roomID snowflake.ID) ([]ledgerdomain.LedgerEntry, error) {
	var (
		entries   []ledgerdomain.LedgerEntry
		pageToken string
	)
	for {
		resp, err := s.ledger.List(ctx, ledgerdomain.ListEntriesRequest{
			RoomID: roomID,
			Pagination: pagination.Pagination{
				PageToken: pageToken,
				PageSize:  250,
			},
		})
		if err != nil {
			return nil, err
		}
		entries = append(entries, resp.Entries...)
		if !resp.HasMore {
			return entries, nil
		}
		pageToken = resp.NextPageToken
	}
}

func (s *Service) loadRoom(ctx context.Context, roomID snowflake.ID) (*roomdomain.Room, error) {
	room, err := s.roomRepo.FindByID(ctx, s.db, roomID)
	if err != nil {
		return nil, db.WrapStorage(err)
	}
	if room == nil {
		return nil, roomdomain.ErrNotFound
	}
	return room, nil
}

func (s *Service) auditLog(ctx context.Context, clubID snowflake.ID, action, targetID string, metadata map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.AuditLog(ctx, &clubID, action, "reconciliation", &targetID, metadata); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

// fingerprint hashes the canonical JSON form of the bundle, excluding
// the fingerprint field itself.
func fingerprint(bundle domain.ExportBundle) (string, error) {
	bundle.ArchiveSha256 = ""
	bundle.Summary.ArchiveSha256 = nil
	raw, err := json.Marshal(bundle)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

func buildInstantBreakdown(rows []domain.InstantRow) []domain.InstantMethodBreakdown {
	byMethod := make(map[snowflake.ID]*domain.InstantMethodBreakdown)
	var order []snowflake.ID
	for _, row := range rows {
		entry, ok := byMethod[row.ClubPaymentMethodID]
		if !ok {
			entry = &domain.InstantMethodBreakdown{
				ClubPaymentMethodID: row.ClubPaymentMethodID,
				Code:                row.Code,
				Label:               row.Label,
				OnTheNight:          domain.MethodBreakdown{PaymentMethod: row.Code},
				Late:                domain.MethodBreakdown{PaymentMethod: row.Code},
			}
			byMethod[row.ClubPaymentMethodID] = entry
			order = append(order, row.ClubPaymentMethodID)
		}
		if row.IsLate {
			entry.Late.UniquePlayers = row.UniquePlayers
			entry.Late.Total = row.Total
		} else {
			entry.OnTheNight.UniquePlayers = row.UniquePlayers
			entry.OnTheNight.Total = row.Total
		}
	}

	out := make([]domain.InstantMethodBreakdown, 0, len(order))
	for _, id := range order {
		out = append(out, *byMethod[id])
	}
	return out
}
