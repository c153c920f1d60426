package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/clubnite/doorman/internal/audit/domain"
	capacitydomain "github.com/clubnite/doorman/internal/capacity/domain"
	"github.com/clubnite/doorman/internal/clock"
	ledgerdomain "github.com/clubnite/doorman/internal/ledger/domain"
	"github.com/clubnite/doorman/internal/observability/metrics"
	roomdomain "github.com/clubnite/doorman/internal/room/domain"
	"github.com/clubnite/doorman/internal/ticket/domain"
	"github.com/clubnite/doorman/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
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
	Capacity capacitydomain.Service
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
	capacity capacitydomain.Service
	ledger   ledgerdomain.Service
	audit    auditdomain.Service
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("ticket.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		roomRepo: p.RoomRepo,
		capacity: p.Capacity,
		ledger:   p.Ledger,
		audit:    p.Audit,
		metrics:  p.Metrics,
	}
}

// Create persists the ticket and its ledger obligations atomically.
// The capacity check runs inside the same transaction under a room
// row lock, so two concurrent purchases of the last slot cannot both
// succeed.
func (s *Service) Create(ctx context.Context, req domain.CreateTicketRequest) (domain.CreateTicketResult, error) {
	if strings.TrimSpace(req.PurchaserName) == "" {
		return domain.CreateTicketResult{}, domain.ErrInvalidPurchaser
	}

	room, err := s.roomRepo.FindByID(ctx, s.db, req.RoomID)
	if err != nil {
		return domain.CreateTicketResult{}, db.WrapStorage(err)
	}
	if room == nil {
		return domain.CreateTicketResult{}, roomdomain.ErrNotFound
	}

	extras, extrasTotal, err := s.resolveExtras(ctx, room.ID, req.ExtraIDs)
	if err != nil {
		return domain.CreateTicketResult{}, err
	}

	extrasJSON, err := json.Marshal(extras)
	if err != nil {
		return domain.CreateTicketResult{}, err
	}

	now := s.clock.Now()
	ticket := domain.Ticket{
		ID:               s.genID.Generate(),
		TicketID:         domain.NewTicketID(now),
		RoomID:           room.ID,
		ClubID:           room.ClubID,
		PurchaserName:    strings.TrimSpace(req.PurchaserName),
		PurchaserEmail:   strings.TrimSpace(req.PurchaserEmail),
		EntryFee:         room.EntryFee,
		Extras:           datatypes.JSON(extrasJSON),
		ExtrasTotal:      extrasTotal,
		TotalAmount:      room.EntryFee + extrasTotal,
		Currency:         room.Currency,
		PaymentStatus:    domain.PaymentStatusClaimed,
		RedemptionStatus: domain.RedemptionStatusBlocked,
		JoinToken:        domain.NewJoinToken(),
		PaymentMethod:    req.PaymentMethod,
		PaymentReference: req.PaymentReference,
		CreatedAt:        now,
	}
	playerID := domain.SyntheticPlayerID(ticket.TicketID)

	var entryFeeLedgerID snowflake.ID
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.roomRepo.LockForUpdate(ctx, tx, room.ID); err != nil {
			return db.WrapStorage(err)
		}

		status, err := s.capacity.StatusTx(ctx, tx, room, 0)
		if err != nil {
			return err
		}
		if !status.TicketSalesOpen {
			return fmt.Errorf("%w: %s", domain.ErrCapacityExceeded, status.CloseReason)
		}
		if status.AvailableForTickets < 1 {
			return fmt.Errorf("%w: only %d ticket slots remaining", domain.ErrCapacityExceeded, status.AvailableForTickets)
		}

		if err := s.repo.Insert(ctx, tx, &ticket); err != nil {
			return db.WrapStorage(err)
		}

		entryFeeLedgerID, err = s.ledger.CreateExpectedOrClaimedTx(ctx, tx, ledgerdomain.CreateEntryRequest{
			RoomID:           room.ID,
			ClubID:           room.ClubID,
			PlayerID:         playerID,
			LedgerType:       ledgerdomain.LedgerTypeEntryFee,
			Amount:           room.EntryFee,
			Currency:         room.Currency,
			PaymentMethod:    req.PaymentMethod,
			TicketID:         ticket.TicketID,
			PaymentReference: req.PaymentReference,
			ClaimedAt:        &now,
		})
		if err != nil {
			return err
		}

		for _, extra := range extras {
			_, err := s.ledger.CreateExpectedOrClaimedTx(ctx, tx, ledgerdomain.CreateEntryRequest{
				RoomID:           room.ID,
				ClubID:           room.ClubID,
				PlayerID:         playerID,
				LedgerType:       ledgerdomain.LedgerTypeExtraPurchase,
				Amount:           extra.Price,
				Currency:         room.Currency,
				PaymentMethod:    req.PaymentMethod,
				TicketID:         ticket.TicketID,
				ExtraID:          extra.ExtraID,
				PaymentReference: req.PaymentReference,
				ClaimedAt:        &now,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.CreateTicketResult{}, err
	}

	s.metrics.RecordTicketIssued(ctx, ticket.Currency)
	s.log.Info("ticket created",
		zap.String("ticket_id", ticket.TicketID),
		zap.String("room_id", room.ID.String()),
		zap.Int64("total_amount", ticket.TotalAmount),
	)
	s.auditLog(ctx, room.ClubID, "ticket.created", ticket.TicketID, map[string]any{
		"room_id":      room.ID.String(),
		"total_amount": ticket.TotalAmount,
		"extras":       len(extras),
	})

	return domain.CreateTicketResult{Ticket: ticket, EntryFeeLedgerID: entryFeeLedgerID}, nil
}

func (s *Service) Confirm(ctx context.Context, req domain.ConfirmTicketRequest) (*domain.Ticket, error) {
	ticket, err := s.repo.FindByTicketID(ctx, s.db, req.TicketID)
	if err != nil {
		return nil, db.WrapStorage(err)
	}
	if ticket == nil {
		return nil, domain.ErrTicketNotFound
	}
	if ticket.PaymentStatus == domain.PaymentStatusConfirmed {
		return nil, domain.ErrAlreadyConfirmed
	}

	now := s.clock.Now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		affected, err := s.repo.MarkConfirmed(ctx, tx, ticket.TicketID, domain.ConfirmStamp{
			ConfirmedBy:     req.ConfirmedBy,
			ConfirmedByName: req.ConfirmedByName,
			ConfirmedByRole: req.ConfirmedByRole,
			Notes:           req.Notes,
			ConfirmedAt:     now,
		})
		if err != nil {
			return db.WrapStorage(err)
		}
		// The guarded update lost to a concurrent confirmation.
		if affected == 0 {
			return domain.ErrAlreadyConfirmed
		}

		_, err = s.ledger.ConfirmTx(ctx, tx, ledgerdomain.ConfirmRequest{
			RoomID:      ticket.RoomID,
			PlayerID:    domain.SyntheticPlayerID(ticket.TicketID),
			ConfirmedBy: req.ConfirmedBy,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("ticket confirmed",
		zap.String("ticket_id", ticket.TicketID),
		zap.String("confirmed_by", req.ConfirmedBy),
	)
	s.auditLog(ctx, ticket.ClubID, "ticket.confirmed", ticket.TicketID, map[string]any{
		"confirmed_by": req.ConfirmedBy,
	})

	updated, err := s.repo.FindByTicketID(ctx, s.db, ticket.TicketID)
	if err != nil || updated == nil {
		ticket.PaymentStatus = domain.PaymentStatusConfirmed
		ticket.RedemptionStatus = domain.RedemptionStatusReady
		ticket.ConfirmedAt = &now
		return ticket, nil
	}
	return updated, nil
}

func (s *Service) Redeem(ctx context.Context, req domain.RedeemTicketRequest) (domain.RedemptionResult, error) {
	if strings.TrimSpace(req.PlayerID) == "" {
		return domain.RedemptionResult{}, domain.ErrInvalidPlayerID
	}

	ticket, err := s.repo.FindByJoinToken(ctx, s.db, req.JoinToken)
	if err != nil {
		return domain.RedemptionResult{}, db.WrapStorage(err)
	}
	if ticket == nil {
		return domain.RedemptionResult{}, domain.ErrInvalidToken
	}

	switch ticket.RedemptionStatus {
	case domain.RedemptionStatusRedeemed:
		return domain.RedemptionResult{}, domain.ErrAlreadyRedeemed
	case domain.RedemptionStatusBlocked:
		return domain.RedemptionResult{}, domain.ErrPaymentNotConfirmed
	case domain.RedemptionStatusReady:
	default:
		return domain.RedemptionResult{}, domain.ErrNotReady
	}

	now := s.clock.Now()
	var reassigned int64
	err = s.db.Transaction(func(tx *gorm.DB) error {
		affected, err := s.repo.MarkRedeemed(ctx, tx, ticket.TicketID, req.PlayerID, now)
		if err != nil {
			return db.WrapStorage(err)
		}
		if affected == 0 {
			return domain.ErrAlreadyRedeemed
		}

		// Identity promotion: ledger rows follow the real player across
		// the redemption boundary so reconciliation attributes spend
		// correctly.
		reassigned, err = s.ledger.ReassignPlayerTx(ctx, tx,
			ticket.RoomID, domain.SyntheticPlayerID(ticket.TicketID), req.PlayerID)
		return err
	})
	if err != nil {
		return domain.RedemptionResult{}, err
	}

	s.metrics.RecordTicketRedeemed(ctx)
	s.log.Info("ticket redeemed",
		zap.String("ticket_id", ticket.TicketID),
		zap.String("player_id", req.PlayerID),
		zap.Int64("reassigned_entries", reassigned),
	)
	s.auditLog(ctx, ticket.ClubID, "ticket.redeemed", ticket.TicketID, map[string]any{
		"player_id":          req.PlayerID,
		"reassigned_entries": reassigned,
	})

	updated, err := s.repo.FindByTicketID(ctx, s.db, ticket.TicketID)
	if err != nil || updated == nil {
		return domain.RedemptionResult{Ticket: *ticket, ReassignedEntries: reassigned}, nil
	}
	return domain.RedemptionResult{Ticket: *updated, ReassignedEntries: reassigned}, nil
}

func (s *Service) Get(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.repo.FindByTicketID(ctx, s.db, ticketID)
	if err != nil {
		return nil, db.WrapStorage(err)
	}
	if ticket == nil {
		return nil, domain.ErrTicketNotFound
	}
	return ticket, nil
}

// resolveExtras prices the requested extras against the room catalog.
// Unknown or zero-priced extras are dropped, not priced at zero.
func (s *Service) resolveExtras(ctx context.Context, roomID snowflake.ID, extraIDs []string) ([]domain.TicketExtra, int64, error) {
	if len(extraIDs) == 0 {
		return []domain.TicketExtra{}, 0, nil
	}

	catalog, err := s.roomRepo.ListExtras(ctx, s.db, roomID)
	if err != nil {
		return nil, 0, db.WrapStorage(err)
	}

	byID := make(map[string]roomdomain.RoomExtra, len(catalog))
	for _, extra := range catalog {
		byID[extra.ExtraID] = extra
	}

	var (
		selected []domain.TicketExtra
		total    int64
	)
	for _, id := range extraIDs {
		extra, ok := byID[id]
		if !ok || extra.Price <= 0 {
			continue
		}
		selected = append(selected, domain.TicketExtra{
			ExtraID: extra.ExtraID,
			Label:   extra.Label,
			Price:   extra.Price,
		})
		total += extra.Price
	}
	if selected == nil {
		selected = []domain.TicketExtra{}
	}
	return selected, total, nil
}

func (s *Service) auditLog(ctx context.Context, clubID snowflake.ID, action, ticketID string, metadata map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.AuditLog(ctx, &clubID, action, "ticket", &ticketID, metadata); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}
