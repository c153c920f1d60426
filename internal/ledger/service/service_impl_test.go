package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/clubnite/doorman/internal/clock"
	ledgerdomain "github.com/clubnite/doorman/internal/ledger/domain"
	ledgerrepo "github.com/clubnite/doorman/internal/ledger/repository"
	roomdomain "github.com/clubnite/doorman/internal/room/domain"
	roomrepo "github.com/clubnite/doorman/internal/room/repository"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ledgerFixture struct {
	conn  *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
	svc   ledgerdomain.Service
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	// A pooled :memory: connection would open a second, empty database.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, conn.AutoMigrate(&roomdomain.Room{}, &roomdomain.RoomExtra{}, &ledgerdomain.LedgerEntry{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2026, 3, 6, 18, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:       conn,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    fake,
		Repo:     ledgerrepo.Provide(),
		RoomRepo: roomrepo.Provide(),
	})

	return &ledgerFixture{conn: conn, node: node, clock: fake, svc: svc}
}

func (f *ledgerFixture) createRoom(t *testing.T, scheduledAt *time.Time) roomdomain.Room {
	t.Helper()
	room := roomdomain.Room{
		ID:             f.node.Generate(),
		ClubID:         f.node.Generate(),
		Name:           "Friday Night Bingo",
		Status:         roomdomain.RoomStatusAwaiting,
		MaxCapacity:    50,
		EntryFee:       1500,
		Currency:       "EUR",
		ScheduledAt:    scheduledAt,
		SettlementRail: roomdomain.SettlementRailFiat,
	}
	require.NoError(t, f.conn.Create(&room).Error)
	return room
}

func scheduledIn(f *ledgerFixture, d time.Duration) *time.Time {
	at := f.clock.Now().Add(d)
	return &at
}

func TestCreateEntryIdempotentPerTicketObligation(t *testing.T) {
	f := newLedgerFixture(t)
	room := f.createRoom(t, scheduledIn(f, 4*time.Hour))
	ctx := context.Background()

	req := ledgerdomain.CreateEntryRequest{
		RoomID:        room.ID,
		ClubID:        room.ClubID,
		PlayerID:      "ticket_tkt_abc",
		LedgerType:    ledgerdomain.LedgerTypeEntryFee,
		Amount:        1500,
		Currency:      "EUR",
		PaymentMethod: "cash",
		TicketID:      "tkt_abc",
	}

	first, err := f.svc.CreateExpectedOrClaimed(ctx, req)
	require.NoError(t, err)

	second, err := f.svc.CreateExpectedOrClaimed(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var count int64
	require.NoError(t, f.conn.Raw(
		`SELECT COUNT(*) FROM ledger_entries WHERE ticket_id = ?`, "tkt_abc",
	).Scan(&count).Error)
	assert.EqualValues(t, 1, count)

	// A different extra under the same ticket is a separate obligation.
	extraReq := req
	extraReq.LedgerType = ledgerdomain.LedgerTypeExtraPurchase
	extraReq.ExtraID = "extra_book"
	extraReq.Amount = 500
	third, err := f.svc.CreateExpectedOrClaimed(ctx, extraReq)
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
}

func TestCreateEntryStatusFollowsClaimTimestamp(t *testing.T) {
	f := newLedgerFixture(t)
	room := f.createRoom(t, scheduledIn(f, 4*time.Hour))
	ctx := context.Background()

	now := f.clock.Now()
	claimedID, err := f.svc.CreateExpectedOrClaimed(ctx, ledgerdomain.CreateEntryRequest{
		RoomID:     room.ID,
		ClubID:     room.ClubID,
		PlayerID:   "player-1",
		LedgerType: ledgerdomain.LedgerTypeEntryFee,
		Amount:     1500,
		Currency:   "EUR",
		ClaimedAt:  &now,
	})
	require.NoError(t, err)

	expectedID, err := f.svc.CreateExpectedOrClaimed(ctx, ledgerdomain.CreateEntryRequest{
		RoomID:     room.ID,
		ClubID:     room.ClubID,
		PlayerID:   "player-2",
		LedgerType: ledgerdomain.LedgerTypeEntryFee,
		Amount:     1500,
		Currency:   "EUR",
	})
	require.NoError(t, err)

	var status string
	require.NoError(t, f.conn.Raw(
		`SELECT status FROM ledger_entries WHERE id = ?`, claimedID,
	).Scan(&status).Error)
	assert.Equal(t, "claimed", status)

	require.NoError(t, f.conn.Raw(
		`SELECT status FROM ledger_entries WHERE id = ?`, expectedID,
	).Scan(&status).Error)
	assert.Equal(t, "expected", status)
}

func TestClaimOnlyMovesExpectedEntries(t *testing.T) {
	f := newLedgerFixture(t)
	room := f.createRoom(t, scheduledIn(f, 4*time.Hour))
	ctx := context.Background()

	_, err := f.svc.CreateExpectedOrClaimed(ctx, ledgerdomain.CreateEntryRequest{
		RoomID:     room.ID,
		ClubID:     room.ClubID,
		PlayerID:   "player-1",
		LedgerType: ledgerdomain.LedgerTypeEntryFee,
		Amount:     1500,
		Currency:   "EUR",
	})
	require.NoError(t, err)

	affected, err := f.svc.Claim(ctx, ledgerdomain.ClaimRequest{
		RoomID:           room.ID,
		PlayerID:         "player-1",
		PaymentReference: "ref-1",
		PaymentMethod:    "cash",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)

	// Claiming again finds nothing in expected.
	affected, err = f.svc.Claim(ctx, ledgerdomain.ClaimRequest{
		RoomID:   room.ID,
		PlayerID: "player-1",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 0, affected)
}

func TestConfirmMergesMethodFieldsAndReportsAffected(t *testing.T) {
	f := newLedgerFixture(t)
	room := f.createRoom(t, scheduledIn(f, 4*time.Hour))
	ctx := context.Background()

	_, err := f.svc.CreateExpectedOrClaimed(ctx, ledgerdomain.CreateEntryRequest{
		RoomID:        room.ID,
		ClubID:        room.ClubID,
		PlayerID:      "player-1",
		LedgerType:    ledgerdomain.LedgerTypeEntryFee,
		Amount:        1500,
		Currency:      "EUR",
		PaymentMethod: "cash",
	})
	require.NoError(t, err)

	// No method override, the original one survives.
	affected, err := f.svc.Confirm(ctx, ledgerdomain.ConfirmRequest{
		RoomID:      room.ID,
		PlayerID:    "player-1",
		ConfirmedBy: "host-1",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)

	var entry ledgerdomain.LedgerEntry
	require.NoError(t, f.conn.Raw(
		`SELECT * FROM ledger_entries WHERE room_id = ? AND player_id = ?`,
		room.ID, "player-1",
	).Scan(&entry).Error)
	assert.Equal(t, ledgerdomain.LedgerStatusConfirmed, entry.Status)
	assert.Equal(t, "cash", entry.PaymentMethod)
	assert.False(t, entry.IsLate)
	require.NotNil(t, entry.ConfirmedBy)
	assert.Equal(t, "host-1", *entry.ConfirmedBy)

	// Nothing left to confirm: zero rows, not an error.
	affected, err = f.svc.Confirm(ctx, ledgerdomain.ConfirmRequest{
		RoomID:      room.ID,
		PlayerID:    "player-1",
		ConfirmedBy: "host-1",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 0, affected)
}

func TestConfirmAfterScheduledStartIsLate(t *testing.T) {
	f := newLedgerFixture(t)
	room := f.createRoom(t, scheduledIn(f, time.Hour))
	ctx := context.Background()

	_, err := f.svc.CreateExpectedOrClaimed(ctx, ledgerdomain.CreateEntryRequest{
		RoomID:     room.ID,
		ClubID:     room.ClubID,
		PlayerID:   "player-1",
		LedgerType: ledgerdomain.LedgerTypeEntryFee,
		Amount:     1500,
		Currency:   "EUR",
	})
	require.NoError(t, err)

	f.clock.Advance(90 * time.Minute)

	affected, err := f.svc.Confirm(ctx, ledgerdomain.ConfirmRequest{
		RoomID:      room.ID,
		PlayerID:    "player-1",
		ConfirmedBy: "host-1",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)

	var isLate bool
	require.NoError(t, f.conn.Raw(
		`SELECT is_late FROM ledger_entries WHERE room_id = ? AND player_id = ?`,
		room.ID, "player-1",
	).Scan(&isLate).Error)
	assert.True(t, isLate)
}

func TestReassignPlayerRelabelsRoomEntries(t *testing.T) {
	f := newLedgerFixture(t)
	room := f.createRoom(t, scheduledIn(f, 4*time.Hour))
	ctx := context.Background()

	for _, lt := range []ledgerdomain.LedgerType{ledgerdomain.LedgerTypeEntryFee, ledgerdomain.LedgerTypeExtraPurchase} {
		_, err := f.svc.CreateExpectedOrClaimed(ctx, ledgerdomain.CreateEntryRequest{
			RoomID:     room.ID,
			ClubID:     room.ClubID,
			PlayerID:   "ticket_tkt_xyz",
			LedgerType: lt,
			Amount:     500,
			Currency:   "EUR",
		})
		require.NoError(t, err)
	}

	affected, err := f.svc.ReassignPlayerTx(ctx, f.conn, room.ID, "ticket_tkt_xyz", "player-9")
	require.NoError(t, err)
	assert.EqualValues(t, 2, affected)

	var count int64
	require.NoError(t, f.conn.Raw(
		`SELECT COUNT(*) FROM ledger_entries WHERE room_id = ? AND player_id = ?`,
		room.ID, "player-9",
	).Scan(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestListPaginatesByCursor(t *testing.T) {
	f := newLedgerFixture(t)
	room := f.createRoom(t, scheduledIn(f, 4*time.Hour))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := f.svc.CreateExpectedOrClaimed(ctx, ledgerdomain.CreateEntryRequest{
			RoomID:     room.ID,
			ClubID:     room.ClubID,
			PlayerID:   "player-1",
			LedgerType: ledgerdomain.LedgerTypeExtraPurchase,
			Amount:     100,
			Currency:   "EUR",
			TicketID:   "tkt_page",
			ExtraID:    string(rune('a' + i)),
		})
		require.NoError(t, err)
	}

	resp, err := f.svc.List(ctx, ledgerdomain.ListEntriesRequest{RoomID: room.ID})
	require.NoError(t, err)
	require.Len(t, resp.Entries, 5)
	assert.False(t, resp.HasMore)
	first := resp.Entries

	page := ledgerdomain.ListEntriesRequest{RoomID: room.ID}
	page.PageSize = 2
	resp, err = f.svc.List(ctx, page)
	require.NoError(t, err)
	assert.Len(t, resp.Entries, 2)
	assert.True(t, resp.HasMore)
	assert.Equal(t, first[0].ID, resp.Entries[0].ID)

	page.PageToken = resp.NextPageToken
	resp, err = f.svc.List(ctx, page)
	require.NoError(t, err)
	assert.Len(t, resp.Entries, 2)
	assert.Equal(t, first[2].ID, resp.Entries[0].ID)
}

func TestLedgerStatusTransitionTable(t *testing.T) {
	assert.True(t, ledgerdomain.CanTransition(ledgerdomain.LedgerStatusExpected, ledgerdomain.LedgerStatusClaimed))
	assert.True(t, ledgerdomain.CanTransition(ledgerdomain.LedgerStatusExpected, ledgerdomain.LedgerStatusConfirmed))
	assert.True(t, ledgerdomain.CanTransition(ledgerdomain.LedgerStatusClaimed, ledgerdomain.LedgerStatusConfirmed))

	assert.False(t, ledgerdomain.CanTransition(ledgerdomain.LedgerStatusClaimed, ledgerdomain.LedgerStatusExpected))
	assert.False(t, ledgerdomain.CanTransition(ledgerdomain.LedgerStatusConfirmed, ledgerdomain.LedgerStatusClaimed))
	assert.False(t, ledgerdomain.CanTransition(ledgerdomain.LedgerStatusConfirmed, ledgerdomain.LedgerStatusExpected))
}
