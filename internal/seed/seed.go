package seed

import (
	"time"

	"gorm.io/gorm"
)

// Deterministic identifiers keep the demo fixture idempotent across
// restarts.
const (
	demoClubID       = 1000001
	demoRoomID       = 1000101
	demoCashMethodID = 1000201
	demoCardMethodID = 1000202
	demoExtraBookID  = 1000301
	demoExtraDrinkID = 1000302
)

// EnsureDemoClub seeds a demo club with payment methods and one
// upcoming room so a fresh install has something to admit people to.
func EnsureDemoClub(conn *gorm.DB) error {
	var count int64
	if err := conn.Raw(`SELECT COUNT(*) FROM clubs WHERE id = ?`, demoClubID).Scan(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()
	scheduledAt := now.Add(7 * 24 * time.Hour)

	return conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			`INSERT INTO clubs (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			demoClubID, "Demo Social Club", now, now,
		).Error; err != nil {
			return err
		}

		methods := []struct {
			id    int64
			code  string
			label string
			kind  string
		}{
			{demoCashMethodID, "cash", "Cash at the door", "onsite"},
			{demoCardMethodID, "card_instant", "Card (instant)", "instant"},
		}
		for _, m := range methods {
			if err := tx.Exec(
				`INSERT INTO club_payment_methods (id, club_id, code, label, kind, enabled, created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				m.id, demoClubID, m.code, m.label, m.kind, true, now, now,
			).Error; err != nil {
				return err
			}
		}

		if err := tx.Exec(
			`INSERT INTO rooms (id, club_id, name, status, max_capacity, entry_fee, currency, scheduled_at, settlement_rail, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			demoRoomID, demoClubID, "Friday Night Bingo", "awaiting", 80, 1500, "EUR", scheduledAt, "fiat", now, now,
		).Error; err != nil {
			return err
		}

		extras := []struct {
			id      int64
			extraID string
			label   string
			price   int64
		}{
			{demoExtraBookID, "extra_book", "Extra bingo book", 500},
			{demoExtraDrinkID, "drink_token", "Drink token", 300},
		}
		for _, e := range extras {
			if err := tx.Exec(
				`INSERT INTO room_extras (id, room_id, extra_id, label, price, created_at)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				e.id, demoRoomID, e.extraID, e.label, e.price, now,
			).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
