package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	capacitydomain "github.com/clubnite/doorman/internal/capacity/domain"
	capacityrepo "github.com/clubnite/doorman/internal/capacity/repository"
	"github.com/clubnite/doorman/internal/clock"
	"github.com/clubnite/doorman/internal/config"
	roomdomain "github.com/clubnite/doorman/internal/room/domain"
	roomrepo "github.com/clubnite/doorman/internal/room/repository"
	ticketdomain "github.com/clubnite/doorman/internal/ticket/domain"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type capacityFixture struct {
	conn  *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
	svc   capacitydomain.Service
}

func newCapacityFixture(t *testing.T) *capacityFixture {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	// A pooled :memory: connection would open a second, empty database.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, conn.AutoMigrate(&roomdomain.Room{}, &ticketdomain.Ticket{}))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2026, 3, 6, 18, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:       conn,
		Log:      zap.NewNop(),
		Clock:    fake,
		Policy:   config.NewStaticAdmissionPolicyHolder(config.DefaultAdmissionPolicy()),
		Repo:     capacityrepo.Provide(),
		RoomRepo: roomrepo.Provide(),
	})

	return &capacityFixture{conn: conn, node: node, clock: fake, svc: svc}
}

func (f *capacityFixture) createRoom(t *testing.T, capacity int, scheduledAt *time.Time) roomdomain.Room {
	t.Helper()
	room := roomdomain.Room{
		ID:             f.node.Generate(),
		ClubID:         f.node.Generate(),
		Name:           "Friday Night Bingo",
		Status:         roomdomain.RoomStatusAwaiting,
		MaxCapacity:    capacity,
		EntryFee:       1500,
		Currency:       "EUR",
		ScheduledAt:    scheduledAt,
		SettlementRail: roomdomain.SettlementRailFiat,
	}
	require.NoError(t, f.conn.Create(&room).Error)
	return room
}

func (f *capacityFixture) createTicket(t *testing.T, roomID snowflake.ID, payment ticketdomain.PaymentStatus, redemption ticketdomain.RedemptionStatus) {
	t.Helper()
	id := f.node.Generate()
	ticket := ticketdomain.Ticket{
		ID:               id,
		TicketID:         "tkt_" + id.String(),
		RoomID:           roomID,
		ClubID:           f.node.Generate(),
		PurchaserName:    "Ada",
		Currency:         "EUR",
		Extras:           datatypes.JSON("[]"),
		PaymentStatus:    payment,
		RedemptionStatus: redemption,
		JoinToken:        "jt_" + id.String(),
	}
	require.NoError(t, f.conn.Create(&ticket).Error)
}

func hoursFromNow(f *capacityFixture, d time.Duration) *time.Time {
	at := f.clock.Now().Add(d)
	return &at
}

func TestStatusDerivesCountsAndAvailability(t *testing.T) {
	f := newCapacityFixture(t)
	room := f.createRoom(t, 10, hoursFromNow(f, 5*time.Hour))

	f.createTicket(t, room.ID, ticketdomain.PaymentStatusClaimed, ticketdomain.RedemptionStatusBlocked)
	f.createTicket(t, room.ID, ticketdomain.PaymentStatusConfirmed, ticketdomain.RedemptionStatusReady)
	f.createTicket(t, room.ID, ticketdomain.PaymentStatusConfirmed, ticketdomain.RedemptionStatusRedeemed)

	// Headcount of 4 includes the one redeemed ticket holder.
	status, err := f.svc.Status(context.Background(), room.ID, 4)
	require.NoError(t, err)

	assert.Equal(t, 3, status.ReservedByTickets)
	assert.Equal(t, 1, status.RedeemedTickets)
	assert.Equal(t, 3, status.WalkInPlayers)
	assert.Equal(t, 6, status.TotalUsed)
	assert.Equal(t, 4, status.AvailableTotal)
	assert.Equal(t, 7, status.AvailableForTickets)
	assert.Equal(t, 4, status.AvailableForWalkIns)
	assert.False(t, status.IsFull)
	assert.True(t, status.TicketSalesOpen)
}

func TestSalesClosedInsideCutoffWindow(t *testing.T) {
	f := newCapacityFixture(t)
	room := f.createRoom(t, 10, hoursFromNow(f, 90*time.Minute))

	status, err := f.svc.Status(context.Background(), room.ID, 0)
	require.NoError(t, err)
	assert.False(t, status.TicketSalesOpen)
	assert.Contains(t, status.CloseReason, "120 minutes")

	decision, err := f.svc.CanPurchase(context.Background(), room.ID, 1)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, status.CloseReason, decision.Reason)
}

func TestSalesCutoffBoundaryIsInclusive(t *testing.T) {
	f := newCapacityFixture(t)
	room := f.createRoom(t, 10, hoursFromNow(f, 120*time.Minute))

	status, err := f.svc.Status(context.Background(), room.ID, 0)
	require.NoError(t, err)
	assert.False(t, status.TicketSalesOpen)

	later := f.createRoom(t, 10, hoursFromNow(f, 121*time.Minute))
	status, err = f.svc.Status(context.Background(), later.ID, 0)
	require.NoError(t, err)
	assert.True(t, status.TicketSalesOpen)
}

func TestMissingScheduledStartFailsSafe(t *testing.T) {
	f := newCapacityFixture(t)
	room := f.createRoom(t, 10, nil)

	status, err := f.svc.Status(context.Background(), room.ID, 0)
	require.NoError(t, err)
	assert.False(t, status.TicketSalesOpen)
	assert.Contains(t, status.CloseReason, "no scheduled start")
}

func TestSalesClosedWhenRoomCompleted(t *testing.T) {
	f := newCapacityFixture(t)
	room := f.createRoom(t, 10, hoursFromNow(f, 5*time.Hour))
	require.NoError(t, f.conn.Exec(
		`UPDATE rooms SET status = ? WHERE id = ?`, roomdomain.RoomStatusCompleted, room.ID,
	).Error)

	status, err := f.svc.Status(context.Background(), room.ID, 0)
	require.NoError(t, err)
	assert.False(t, status.TicketSalesOpen)
	assert.Contains(t, status.CloseReason, "completed")
}

func TestCapacityOverridesTimePolicy(t *testing.T) {
	f := newCapacityFixture(t)
	room := f.createRoom(t, 2, hoursFromNow(f, 5*time.Hour))
	f.createTicket(t, room.ID, ticketdomain.PaymentStatusClaimed, ticketdomain.RedemptionStatusBlocked)
	f.createTicket(t, room.ID, ticketdomain.PaymentStatusConfirmed, ticketdomain.RedemptionStatusReady)

	status, err := f.svc.Status(context.Background(), room.ID, 0)
	require.NoError(t, err)
	assert.False(t, status.TicketSalesOpen)
	assert.Contains(t, status.CloseReason, "reserved by tickets")
}

func TestCanPurchaseReportsRemainingSlots(t *testing.T) {
	f := newCapacityFixture(t)
	room := f.createRoom(t, 3, hoursFromNow(f, 5*time.Hour))
	f.createTicket(t, room.ID, ticketdomain.PaymentStatusClaimed, ticketdomain.RedemptionStatusBlocked)

	decision, err := f.svc.CanPurchase(context.Background(), room.ID, 3)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Contains(t, decision.Reason, "only 2 ticket slots remaining")

	decision, err = f.svc.CanPurchase(context.Background(), room.ID, 2)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestWalkInBoundaryScenario(t *testing.T) {
	f := newCapacityFixture(t)
	room := f.createRoom(t, 2, hoursFromNow(f, 5*time.Hour))

	// One confirmed and redeemed ticket, one walk-in already inside.
	f.createTicket(t, room.ID, ticketdomain.PaymentStatusConfirmed, ticketdomain.RedemptionStatusRedeemed)

	decision, err := f.svc.CanWalkIn(context.Background(), room.ID, 1)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	// With the second walk-in inside, the room is at capacity.
	decision, err = f.svc.CanWalkIn(context.Background(), room.ID, 2)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, "room is full", decision.Reason)
}

func TestWalkInDeniedWhenSlotsReservedForTickets(t *testing.T) {
	f := newCapacityFixture(t)
	room := f.createRoom(t, 2, hoursFromNow(f, 5*time.Hour))

	// Both slots reserved, nobody inside yet. The room is not full but
	// the remaining space belongs to ticket holders.
	f.createTicket(t, room.ID, ticketdomain.PaymentStatusClaimed, ticketdomain.RedemptionStatusBlocked)
	f.createTicket(t, room.ID, ticketdomain.PaymentStatusConfirmed, ticketdomain.RedemptionStatusReady)

	decision, err := f.svc.CanWalkIn(context.Background(), room.ID, 0)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, "remaining slots are reserved for ticket holders", decision.Reason)
}

func TestWalkInsCanBeDisabledByPolicy(t *testing.T) {
	f := newCapacityFixture(t)
	room := f.createRoom(t, 10, hoursFromNow(f, 5*time.Hour))

	svc := New(Params{
		DB:  f.conn,
		Log: zap.NewNop(),
		Policy: config.NewStaticAdmissionPolicyHolder(config.AdmissionPolicy{
			SalesCutoffMinutes: 120,
			WalkInsEnabled:     false,
		}),
		Clock:    f.clock,
		Repo:     capacityrepo.Provide(),
		RoomRepo: roomrepo.Provide(),
	})

	decision, err := svc.CanWalkIn(context.Background(), room.ID, 0)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Contains(t, decision.Reason, "not enabled")
}

func TestCanRedeemNeverBlocksOnCapacity(t *testing.T) {
	f := newCapacityFixture(t)
	room := f.createRoom(t, 1, hoursFromNow(f, 30*time.Minute))
	f.createTicket(t, room.ID, ticketdomain.PaymentStatusConfirmed, ticketdomain.RedemptionStatusReady)

	// Sales closed and the room fully reserved, redemption still passes.
	decision, err := f.svc.CanRedeem(context.Background(), room.ID, "tkt_any", 1)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestStatusUnknownRoom(t *testing.T) {
	f := newCapacityFixture(t)

	_, err := f.svc.Status(context.Background(), f.node.Generate(), 0)
	assert.ErrorIs(t, err, roomdomain.ErrNotFound)
}
