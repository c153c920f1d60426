package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/clubnite/doorman/internal/capacity/domain"
	"github.com/clubnite/doorman/internal/clock"
	"github.com/clubnite/doorman/internal/config"
	"github.com/clubnite/doorman/internal/observability/metrics"
	roomdomain "github.com/clubnite/doorman/internal/room/domain"
	"github.com/clubnite/doorman/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Policy   *config.AdmissionPolicyHolder
	Repo     domain.Repository
	RoomRepo roomdomain.Repository
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	policy   *config.AdmissionPolicyHolder
	repo     domain.Repository
	roomRepo roomdomain.Repository
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("capacity.service"),
		clock:    p.Clock,
		policy:   p.Policy,
		repo:     p.Repo,
		roomRepo: p.RoomRepo,
		metrics:  p.Metrics,
	}
}

func (s *Service) Status(ctx context.Context, roomID snowflake.ID, liveHeadcount int) (domain.Status, error) {
	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return domain.Status{}, err
	}
	return s.StatusTx(ctx, s.db, room, liveHeadcount)
}

func (s *Service) StatusTx(ctx context.Context, tx *gorm.DB, room *roomdomain.Room, liveHeadcount int) (domain.Status, error) {
	if liveHeadcount < 0 {
		return domain.Status{}, domain.ErrInvalidHeadcount
	}

	reserved, err := s.repo.CountReserved(ctx, tx, room.ID)
	if err != nil {
		return domain.Status{}, db.WrapStorage(err)
	}
	redeemed, err := s.repo.CountRedeemed(ctx, tx, room.ID)
	if err != nil {
		return domain.Status{}, db.WrapStorage(err)
	}

	// Redeemed ticket holders are already part of the live headcount,
	// subtracting them keeps walk-ins from being counted twice.
	walkIns := liveHeadcount - redeemed
	if walkIns < 0 {
		walkIns = 0
	}

	status := domain.Status{
		RoomID:            room.ID,
		MaxCapacity:       room.MaxCapacity,
		ReservedByTickets: reserved,
		RedeemedTickets:   redeemed,
		WalkInPlayers:     walkIns,
		TotalUsed:         reserved + walkIns,
	}
	status.AvailableTotal = clampZero(room.MaxCapacity - status.TotalUsed)
	status.AvailableForTickets = clampZero(room.MaxCapacity - reserved)
	status.AvailableForWalkIns = clampZero(room.MaxCapacity - reserved - walkIns)
	status.IsFull = status.TotalUsed >= room.MaxCapacity
	status.TicketSalesOpen, status.CloseReason = s.salesWindow(room, reserved)

	return status, nil
}

func (s *Service) CanPurchase(ctx context.Context, roomID snowflake.ID, quantity int) (domain.Decision, error) {
	if quantity < 1 {
		return domain.Decision{}, domain.ErrInvalidQuantity
	}

	status, err := s.Status(ctx, roomID, 0)
	if err != nil {
		return domain.Decision{}, err
	}
	return s.evaluatePurchase(ctx, status, quantity), nil
}

// EvaluatePurchase applies the purchase rules to an already derived
// status. The ticket creation transaction calls this after its own
// in-transaction recount.
func (s *Service) evaluatePurchase(ctx context.Context, status domain.Status, quantity int) domain.Decision {
	if !status.TicketSalesOpen {
		s.metrics.RecordCapacityDenial(ctx, domain.DenialSalesClosed)
		return domain.Decision{Reason: status.CloseReason, Status: status}
	}
	if status.AvailableForTickets < quantity {
		s.metrics.RecordCapacityDenial(ctx, domain.DenialInsufficientSlots)
		return domain.Decision{
			Reason: fmt.Sprintf("only %d ticket slots remaining", status.AvailableForTickets),
			Status: status,
		}
	}
	return domain.Decision{Allowed: true, Status: status}
}

func (s *Service) CanWalkIn(ctx context.Context, roomID snowflake.ID, liveHeadcount int) (domain.Decision, error) {
	status, err := s.Status(ctx, roomID, liveHeadcount)
	if err != nil {
		return domain.Decision{}, err
	}

	if !s.policy.Current().WalkInsEnabled {
		s.metrics.RecordCapacityDenial(ctx, domain.DenialWalkInsDisabled)
		return domain.Decision{Reason: "walk-ins are not enabled", Status: status}, nil
	}
	if status.IsFull {
		s.metrics.RecordCapacityDenial(ctx, domain.DenialRoomFull)
		return domain.Decision{Reason: "room is full", Status: status}, nil
	}
	if status.AvailableForWalkIns < 1 {
		s.metrics.RecordCapacityDenial(ctx, domain.DenialReservedForTickets)
		return domain.Decision{
			Reason: "remaining slots are reserved for ticket holders",
			Status: status,
		}, nil
	}
	return domain.Decision{Allowed: true, Status: status}, nil
}

func (s *Service) CanRedeem(ctx context.Context, roomID snowflake.ID, ticketID string, liveHeadcount int) (domain.Decision, error) {
	status, err := s.Status(ctx, roomID, liveHeadcount)
	if err != nil {
		return domain.Decision{}, err
	}
	// A confirmed ticket already holds its slot, capacity never blocks
	// redemption. Ticket validity is checked elsewhere.
	return domain.Decision{Allowed: true, Status: status}, nil
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

func (s *Service) salesWindow(room *roomdomain.Room, reserved int) (bool, string) {
	if room.Closed() {
		return false, fmt.Sprintf("room is %s", room.Status)
	}
	// Capacity overrides the time policy.
	if reserved >= room.MaxCapacity {
		return false, fmt.Sprintf("all %d slots are reserved by tickets", room.MaxCapacity)
	}
	// No scheduled start means no way to honor the cutoff, fail safe.
	if room.ScheduledAt == nil {
		return false, "room has no scheduled start time"
	}

	cutoff := time.Duration(s.policy.Current().SalesCutoffMinutes) * time.Minute
	opensUntil := room.ScheduledAt.Add(-cutoff)
	if !s.clock.Now().Before(opensUntil) {
		return false, fmt.Sprintf("ticket sales close %d minutes before the scheduled start", int(cutoff.Minutes()))
	}
	return true, ""
}

func clampZero(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
