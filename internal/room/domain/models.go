package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// RoomStatus is the lifecycle state of a scheduled event room.
type RoomStatus string

const (
	RoomStatusAwaiting  RoomStatus = "awaiting"
	RoomStatusLive      RoomStatus = "live"
	RoomStatusCompleted RoomStatus = "completed"
	RoomStatusCancelled RoomStatus = "cancelled"
)

// SettlementRail labels how a room settles money. Rooms on the onchain
// rail are handled by a different system and are invisible here.
type SettlementRail string

const (
	SettlementRailFiat    SettlementRail = "fiat"
	SettlementRailOnchain SettlementRail = "onchain"
)

// Room is per-event configuration owned by the registry. The admission
// core never writes it.
type Room struct {
	ID             snowflake.ID   `gorm:"primaryKey" json:"id"`
	ClubID         snowflake.ID   `gorm:"not null;index" json:"club_id"`
	Name           string         `gorm:"not null" json:"name"`
	Status         RoomStatus     `gorm:"type:text;not null;default:'awaiting'" json:"status"`
	MaxCapacity    int            `gorm:"not null" json:"max_capacity"`
	EntryFee       int64          `gorm:"not null;default:0" json:"entry_fee"`
	Currency       string         `gorm:"type:text;not null" json:"currency"`
	ScheduledAt    *time.Time     `json:"scheduled_at,omitempty"`
	SettlementRail SettlementRail `gorm:"type:text;not null;default:'fiat'" json:"settlement_rail"`
	CreatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Room) TableName() string { return "rooms" }

// RoomExtra is one purchasable add-on in a room's catalog.
type RoomExtra struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	RoomID    snowflake.ID `gorm:"not null;index" json:"room_id"`
	ExtraID   string       `gorm:"type:text;not null" json:"extra_id"`
	Label     string       `gorm:"not null" json:"label"`
	Price     int64        `gorm:"not null;default:0" json:"price"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (RoomExtra) TableName() string { return "room_extras" }

func (r Room) Closed() bool {
	return r.Status == RoomStatusCompleted || r.Status == RoomStatusCancelled
}

var (
	ErrNotFound  = errors.New("room_not_found")
	ErrInvalidID = errors.New("invalid_room_id")
)
