package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	capacityrepo "github.com/clubnite/doorman/internal/capacity/repository"
	capacityservice "github.com/clubnite/doorman/internal/capacity/service"
	"github.com/clubnite/doorman/internal/clock"
	"github.com/clubnite/doorman/internal/config"
	ledgerdomain "github.com/clubnite/doorman/internal/ledger/domain"
	ledgerrepo "github.com/clubnite/doorman/internal/ledger/repository"
	ledgerservice "github.com/clubnite/doorman/internal/ledger/service"
	roomdomain "github.com/clubnite/doorman/internal/room/domain"
	roomrepo "github.com/clubnite/doorman/internal/room/repository"
	"github.com/clubnite/doorman/internal/ticket/domain"
	ticketrepo "github.com/clubnite/doorman/internal/ticket/repository"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ticketFixture struct {
	conn  *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
	svc   domain.Service
}

func newTicketFixture(t *testing.T) *ticketFixture {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	// A pooled :memory: connection would open a second, empty database.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, conn.AutoMigrate(
		&roomdomain.Room{}, &roomdomain.RoomExtra{},
		&domain.Ticket{}, &ledgerdomain.LedgerEntry{},
	))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2026, 3, 6, 18, 0, 0, 0, time.UTC))
	rooms := roomrepo.Provide()

	ledgerSvc := ledgerservice.New(ledgerservice.Params{
		DB:       conn,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    fake,
		Repo:     ledgerrepo.Provide(),
		RoomRepo: rooms,
	})
	capacitySvc := capacityservice.New(capacityservice.Params{
		DB:       conn,
		Log:      zap.NewNop(),
		Clock:    fake,
		Policy:   config.NewStaticAdmissionPolicyHolder(config.DefaultAdmissionPolicy()),
		Repo:     capacityrepo.Provide(),
		RoomRepo: rooms,
	})
	svc := New(Params{
		DB:       conn,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    fake,
		Repo:     ticketrepo.Provide(),
		RoomRepo: rooms,
		Capacity: capacitySvc,
		Ledger:   ledgerSvc,
	})

	return &ticketFixture{conn: conn, node: node, clock: fake, svc: svc}
}

func (f *ticketFixture) createRoom(t *testing.T, capacity int, hoursAhead time.Duration) roomdomain.Room {
	t.Helper()
	at := f.clock.Now().Add(hoursAhead)
	room := roomdomain.Room{
		ID:             f.node.Generate(),
		ClubID:         f.node.Generate(),
		Name:           "Friday Night Bingo",
		Status:         roomdomain.RoomStatusAwaiting,
		MaxCapacity:    capacity,
		EntryFee:       1500,
		Currency:       "EUR",
		ScheduledAt:    &at,
		SettlementRail: roomdomain.SettlementRailFiat,
	}
	require.NoError(t, f.conn.Create(&room).Error)
	return room
}

func (f *ticketFixture) createExtra(t *testing.T, roomID snowflake.ID, extraID string, price int64) {
	t.Helper()
	require.NoError(t, f.conn.Create(&roomdomain.RoomExtra{
		ID:      f.node.Generate(),
		RoomID:  roomID,
		ExtraID: extraID,
		Label:   strings.ReplaceAll(extraID, "_", " "),
		Price:   price,
	}).Error)
}

func (f *ticketFixture) ledgerEntries(t *testing.T, ticketID string) []ledgerdomain.LedgerEntry {
	t.Helper()
	var entries []ledgerdomain.LedgerEntry
	require.NoError(t, f.conn.Raw(
		`SELECT * FROM ledger_entries WHERE ticket_id = ? ORDER BY id ASC`, ticketID,
	).Scan(&entries).Error)
	return entries
}

func TestCreateTicketWritesTicketAndLedger(t *testing.T) {
	f := newTicketFixture(t)
	room := f.createRoom(t, 10, 5*time.Hour)
	f.createExtra(t, room.ID, "extra_book", 500)
	f.createExtra(t, room.ID, "free_flyer", 0)

	result, err := f.svc.Create(context.Background(), domain.CreateTicketRequest{
		RoomID:        room.ID,
		PurchaserName: "Ada Lovelace",
		// Zero-priced and unknown extras are dropped, not priced at 0.
		ExtraIDs:      []string{"extra_book", "free_flyer", "no_such_extra"},
		PaymentMethod: "cash",
	})
	require.NoError(t, err)

	ticket := result.Ticket
	assert.True(t, strings.HasPrefix(ticket.TicketID, "tkt_"))
	assert.NotEmpty(t, ticket.JoinToken)
	assert.Equal(t, domain.PaymentStatusClaimed, ticket.PaymentStatus)
	assert.Equal(t, domain.RedemptionStatusBlocked, ticket.RedemptionStatus)
	assert.EqualValues(t, 1500, ticket.EntryFee)
	assert.EqualValues(t, 500, ticket.ExtrasTotal)
	assert.EqualValues(t, 2000, ticket.TotalAmount)
	assert.NotZero(t, result.EntryFeeLedgerID)

	entries := f.ledgerEntries(t, ticket.TicketID)
	require.Len(t, entries, 2)
	for _, entry := range entries {
		assert.Equal(t, ledgerdomain.LedgerStatusClaimed, entry.Status)
		assert.Equal(t, domain.SyntheticPlayerID(ticket.TicketID), entry.PlayerID)
	}
}

func TestCreateTicketUnknownRoom(t *testing.T) {
	f := newTicketFixture(t)

	_, err := f.svc.Create(context.Background(), domain.CreateTicketRequest{
		RoomID:        f.node.Generate(),
		PurchaserName: "Ada",
		PaymentMethod: "cash",
	})
	assert.ErrorIs(t, err, roomdomain.ErrNotFound)
}

func TestCreateTicketDeniedWhenSalesClosed(t *testing.T) {
	f := newTicketFixture(t)
	room := f.createRoom(t, 10, 90*time.Minute)

	_, err := f.svc.Create(context.Background(), domain.CreateTicketRequest{
		RoomID:        room.ID,
		PurchaserName: "Ada",
		PaymentMethod: "cash",
	})
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
}

func TestCreateTicketLastSlotSequential(t *testing.T) {
	f := newTicketFixture(t)
	room := f.createRoom(t, 1, 5*time.Hour)

	_, err := f.svc.Create(context.Background(), domain.CreateTicketRequest{
		RoomID:        room.ID,
		PurchaserName: "First",
		PaymentMethod: "cash",
	})
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), domain.CreateTicketRequest{
		RoomID:        room.ID,
		PurchaserName: "Second",
		PaymentMethod: "cash",
	})
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
}

func TestCreateTicketLastSlotConcurrent(t *testing.T) {
	f := newTicketFixture(t)
	room := f.createRoom(t, 1, 5*time.Hour)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Create(context.Background(), domain.CreateTicketRequest{
				RoomID:        room.ID,
				PurchaserName: "Racer",
				PaymentMethod: "cash",
			})
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
		}
	}
	assert.Equal(t, 1, successes)

	var stored int64
	require.NoError(t, f.conn.Raw(
		`SELECT COUNT(*) FROM tickets WHERE room_id = ?`, room.ID,
	).Scan(&stored).Error)
	assert.EqualValues(t, 1, stored)
}

func TestConfirmTicketPromotesStatusAndLedger(t *testing.T) {
	f := newTicketFixture(t)
	room := f.createRoom(t, 10, 5*time.Hour)

	created, err := f.svc.Create(context.Background(), domain.CreateTicketRequest{
		RoomID:        room.ID,
		PurchaserName: "Ada",
		PaymentMethod: "cash",
	})
	require.NoError(t, err)

	confirmed, err := f.svc.Confirm(context.Background(), domain.ConfirmTicketRequest{
		TicketID:        created.Ticket.TicketID,
		ConfirmedBy:     "host-1",
		ConfirmedByName: "Grace",
		ConfirmedByRole: "host",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusConfirmed, confirmed.PaymentStatus)
	assert.Equal(t, domain.RedemptionStatusReady, confirmed.RedemptionStatus)
	require.NotNil(t, confirmed.ConfirmedBy)
	assert.Equal(t, "host-1", *confirmed.ConfirmedBy)

	entries := f.ledgerEntries(t, created.Ticket.TicketID)
	require.Len(t, entries, 1)
	assert.Equal(t, ledgerdomain.LedgerStatusConfirmed, entries[0].Status)

	// Second confirmation is rejected and must not duplicate anything.
	_, err = f.svc.Confirm(context.Background(), domain.ConfirmTicketRequest{
		TicketID:    created.Ticket.TicketID,
		ConfirmedBy: "host-2",
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyConfirmed)

	entries = f.ledgerEntries(t, created.Ticket.TicketID)
	require.Len(t, entries, 1)
	assert.Equal(t, ledgerdomain.LedgerStatusConfirmed, entries[0].Status)
	require.NotNil(t, entries[0].ConfirmedBy)
	assert.Equal(t, "host-1", *entries[0].ConfirmedBy)
}

func TestConfirmUnknownTicket(t *testing.T) {
	f := newTicketFixture(t)

	_, err := f.svc.Confirm(context.Background(), domain.ConfirmTicketRequest{
		TicketID:    "tkt_missing",
		ConfirmedBy: "host-1",
	})
	assert.ErrorIs(t, err, domain.ErrTicketNotFound)
}

func TestRedeemTicketPromotesIdentity(t *testing.T) {
	f := newTicketFixture(t)
	room := f.createRoom(t, 10, 5*time.Hour)
	f.createExtra(t, room.ID, "extra_book", 500)

	created, err := f.svc.Create(context.Background(), domain.CreateTicketRequest{
		RoomID:        room.ID,
		PurchaserName: "Ada",
		ExtraIDs:      []string{"extra_book"},
		PaymentMethod: "cash",
	})
	require.NoError(t, err)

	_, err = f.svc.Confirm(context.Background(), domain.ConfirmTicketRequest{
		TicketID:    created.Ticket.TicketID,
		ConfirmedBy: "host-1",
	})
	require.NoError(t, err)

	result, err := f.svc.Redeem(context.Background(), domain.RedeemTicketRequest{
		JoinToken: created.Ticket.JoinToken,
		PlayerID:  "player-42",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RedemptionStatusRedeemed, result.Ticket.RedemptionStatus)
	require.NotNil(t, result.Ticket.RedeemedByPlayerID)
	assert.Equal(t, "player-42", *result.Ticket.RedeemedByPlayerID)
	assert.EqualValues(t, 2, result.ReassignedEntries)

	for _, entry := range f.ledgerEntries(t, created.Ticket.TicketID) {
		assert.Equal(t, "player-42", entry.PlayerID)
	}

	// The join token is spent.
	_, err = f.svc.Redeem(context.Background(), domain.RedeemTicketRequest{
		JoinToken: created.Ticket.JoinToken,
		PlayerID:  "player-43",
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyRedeemed)
}

func TestRedeemBlockedTicket(t *testing.T) {
	f := newTicketFixture(t)
	room := f.createRoom(t, 10, 5*time.Hour)

	created, err := f.svc.Create(context.Background(), domain.CreateTicketRequest{
		RoomID:        room.ID,
		PurchaserName: "Ada",
		PaymentMethod: "cash",
	})
	require.NoError(t, err)

	_, err = f.svc.Redeem(context.Background(), domain.RedeemTicketRequest{
		JoinToken: created.Ticket.JoinToken,
		PlayerID:  "player-42",
	})
	assert.ErrorIs(t, err, domain.ErrPaymentNotConfirmed)
}

func TestRedeemUnknownToken(t *testing.T) {
	f := newTicketFixture(t)

	_, err := f.svc.Redeem(context.Background(), domain.RedeemTicketRequest{
		JoinToken: "nope",
		PlayerID:  "player-42",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestRedemptionTransitionTable(t *testing.T) {
	assert.True(t, domain.CanTransitionRedemption(domain.RedemptionStatusBlocked, domain.RedemptionStatusReady))
	assert.True(t, domain.CanTransitionRedemption(domain.RedemptionStatusReady, domain.RedemptionStatusRedeemed))

	assert.False(t, domain.CanTransitionRedemption(domain.RedemptionStatusBlocked, domain.RedemptionStatusRedeemed))
	assert.False(t, domain.CanTransitionRedemption(domain.RedemptionStatusRedeemed, domain.RedemptionStatusReady))
	assert.False(t, domain.CanTransitionRedemption(domain.RedemptionStatusReady, domain.RedemptionStatusBlocked))
}
