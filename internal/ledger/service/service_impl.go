package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/clubnite/doorman/internal/clock"
	ledgerdomain "github.com/clubnite/doorman/internal/ledger/domain"
	"github.com/clubnite/doorman/internal/observability/metrics"
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
	Repo     ledgerdomain.Repository
	RoomRepo roomdomain.Repository
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     ledgerdomain.Repository
	roomRepo roomdomain.Repository
	metrics  *metrics.Metrics
}

func New(p Params) ledgerdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("ledger.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		roomRepo: p.RoomRepo,
		metrics:  p.Metrics,
	}
}

func (s *Service) CreateExpectedOrClaimed(ctx context.Context, req ledgerdomain.CreateEntryRequest) (snowflake.ID, error) {
	var id snowflake.ID
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		id, txErr = s.CreateExpectedOrClaimedTx(ctx, tx, req)
		return txErr
	})
	return id, err
}

func (s *Service) CreateExpectedOrClaimedTx(ctx context.Context, tx *gorm.DB, req ledgerdomain.CreateEntryRequest) (snowflake.ID, error) {
	if err := validateCreate(req); err != nil {
		return 0, err
	}

	// Ticket-backed obligations carry an idempotency key. The lookup
	// runs inside the caller's transaction so a racing duplicate still
	// trips the unique index and falls through to the re-read below.
	if req.TicketID != "" {
		existing, err := s.repo.FindTicketObligation(ctx, tx, req.TicketID, req.LedgerType, req.ExtraID)
		if err != nil {
			return 0, db.WrapStorage(err)
		}
		if existing != nil {
			return existing.ID, nil
		}
	}

	entry := ledgerdomain.LedgerEntry{
		ID:                  s.genID.Generate(),
		RoomID:              req.RoomID,
		ClubID:              req.ClubID,
		PlayerID:            req.PlayerID,
		LedgerType:          req.LedgerType,
		Amount:              req.Amount,
		Currency:            strings.ToUpper(req.Currency),
		Status:              ledgerdomain.LedgerStatusExpected,
		PaymentMethod:       req.PaymentMethod,
		ClubPaymentMethodID: req.ClubPaymentMethodID,
		TicketID:            req.TicketID,
		ExtraID:             req.ExtraID,
		PaymentReference:    req.PaymentReference,
		CreatedAt:           s.clock.Now(),
	}
	if req.ClaimedAt != nil {
		entry.Status = ledgerdomain.LedgerStatusClaimed
		entry.ClaimedAt = req.ClaimedAt
	}

	if err := s.repo.Insert(ctx, tx, &entry); err != nil {
		if req.TicketID != "" && db.IsDuplicateKeyErr(err) {
			existing, findErr := s.repo.FindTicketObligation(ctx, tx, req.TicketID, req.LedgerType, req.ExtraID)
			if findErr == nil && existing != nil {
				return existing.ID, nil
			}
		}
		return 0, db.WrapStorage(err)
	}

	s.metrics.RecordLedgerEntry(ctx, string(entry.LedgerType))
	s.log.Info("ledger entry created",
		zap.String("room_id", req.RoomID.String()),
		zap.String("player_id", req.PlayerID),
		zap.String("ledger_type", string(req.LedgerType)),
		zap.String("status", string(entry.Status)),
	)
	return entry.ID, nil
}

func (s *Service) Claim(ctx context.Context, req ledgerdomain.ClaimRequest) (int64, error) {
	if req.RoomID == 0 {
		return 0, ledgerdomain.ErrInvalidRoom
	}
	if strings.TrimSpace(req.PlayerID) == "" {
		return 0, ledgerdomain.ErrInvalidPlayer
	}

	affected, err := s.repo.Claim(ctx, s.db, req.RoomID, req.PlayerID, req.PaymentReference, req.PaymentMethod)
	if err != nil {
		return 0, db.WrapStorage(err)
	}
	s.log.Info("ledger entries claimed",
		zap.String("room_id", req.RoomID.String()),
		zap.String("player_id", req.PlayerID),
		zap.Int64("affected", affected),
	)
	return affected, nil
}

func (s *Service) Confirm(ctx context.Context, req ledgerdomain.ConfirmRequest) (int64, error) {
	return s.ConfirmTx(ctx, s.db, req)
}

func (s *Service) ConfirmTx(ctx context.Context, tx *gorm.DB, req ledgerdomain.ConfirmRequest) (int64, error) {
	if req.RoomID == 0 {
		return 0, ledgerdomain.ErrInvalidRoom
	}
	if strings.TrimSpace(req.PlayerID) == "" {
		return 0, ledgerdomain.ErrInvalidPlayer
	}

	room, err := s.roomRepo.FindByID(ctx, tx, req.RoomID)
	if err != nil {
		return 0, db.WrapStorage(err)
	}
	if room == nil {
		return 0, roomdomain.ErrNotFound
	}

	now := s.clock.Now()
	isLate := room.ScheduledAt != nil && now.After(*room.ScheduledAt)

	affected, err := s.repo.Confirm(ctx, tx, ledgerdomain.ConfirmUpdate{
		RoomID:              req.RoomID,
		PlayerID:            req.PlayerID,
		ConfirmedBy:         req.ConfirmedBy,
		ConfirmedAt:         now,
		IsLate:              isLate,
		PaymentMethod:       req.PaymentMethod,
		ClubPaymentMethodID: req.ClubPaymentMethodID,
	})
	if err != nil {
		return 0, db.WrapStorage(err)
	}
	s.log.Info("ledger entries confirmed",
		zap.String("room_id", req.RoomID.String()),
		zap.String("player_id", req.PlayerID),
		zap.Bool("is_late", isLate),
		zap.Int64("affected", affected),
	)
	return affected, nil
}

func (s *Service) ReassignPlayerTx(ctx context.Context, tx *gorm.DB, roomID snowflake.ID, fromPlayerID, toPlayerID string) (int64, error) {
	if roomID == 0 {
		return 0, ledgerdomain.ErrInvalidRoom
	}
	if strings.TrimSpace(fromPlayerID) == "" || strings.TrimSpace(toPlayerID) == "" {
		return 0, ledgerdomain.ErrInvalidPlayer
	}

	affected, err := s.repo.ReassignPlayer(ctx, tx, roomID, fromPlayerID, toPlayerID)
	if err != nil {
		return 0, db.WrapStorage(err)
	}
	s.log.Info("ledger entries reassigned",
		zap.String("room_id", roomID.String()),
		zap.String("from_player_id", fromPlayerID),
		zap.String("to_player_id", toPlayerID),
		zap.Int64("affected", affected),
	)
	return affected, nil
}

func (s *Service) List(ctx context.Context, req ledgerdomain.ListEntriesRequest) (ledgerdomain.ListEntriesResponse, error) {
	if req.RoomID == 0 {
		return ledgerdomain.ListEntriesResponse{}, ledgerdomain.ErrInvalidRoom
	}

	limit := req.PageSize
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.repo.ListByRoom(ctx, s.db, req.RoomID, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  limit,
	})
	if err != nil {
		return ledgerdomain.ListEntriesResponse{}, db.WrapStorage(err)
	}

	pageInfo := pagination.BuildCursorPageInfo(rows, limit, func(e *ledgerdomain.LedgerEntry) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: strconv.FormatInt(int64(e.ID), 10)})
		return token
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}

	entries := make([]ledgerdomain.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, *row)
	}

	return ledgerdomain.ListEntriesResponse{
		PageInfo: *pageInfo,
		Entries:  entries,
	}, nil
}

func validateCreate(req ledgerdomain.CreateEntryRequest) error {
	if req.RoomID == 0 {
		return ledgerdomain.ErrInvalidRoom
	}
	if strings.TrimSpace(req.PlayerID) == "" {
		return ledgerdomain.ErrInvalidPlayer
	}
	if req.LedgerType != ledgerdomain.LedgerTypeEntryFee && req.LedgerType != ledgerdomain.LedgerTypeExtraPurchase {
		return ledgerdomain.ErrInvalidType
	}
	if req.Amount < 0 {
		return ledgerdomain.ErrInvalidAmount
	}
	if strings.TrimSpace(req.Currency) == "" {
		return ledgerdomain.ErrInvalidCurrency
	}
	return nil
}
