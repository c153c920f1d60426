package domain

import "github.com/bwmarrin/snowflake"

// Status is a point-in-time derivation over the room configuration,
// ticket reservations and the live headcount. It is never cached;
// every check re-derives it from the store.
type Status struct {
	RoomID              snowflake.ID `json:"room_id"`
	MaxCapacity         int          `json:"max_capacity"`
	ReservedByTickets   int          `json:"reserved_by_tickets"`
	RedeemedTickets     int          `json:"redeemed_tickets"`
	WalkInPlayers       int          `json:"walk_in_players"`
	TotalUsed           int          `json:"total_used"`
	AvailableTotal      int          `json:"available_total"`
	AvailableForTickets int          `json:"available_for_tickets"`
	AvailableForWalkIns int          `json:"available_for_walk_ins"`
	IsFull              bool         `json:"is_full"`
	TicketSalesOpen     bool         `json:"ticket_sales_open"`
	CloseReason         string       `json:"close_reason,omitempty"`
}

// Decision is an admission verdict with the status it was derived from.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Status  Status `json:"status"`
}

// Denial reason codes kept low-cardinality for metrics labels.
const (
	DenialSalesClosed        = "sales_closed"
	DenialInsufficientSlots  = "insufficient_ticket_slots"
	DenialRoomFull           = "room_full"
	DenialReservedForTickets = "reserved_for_ticket_holders"
	DenialWalkInsDisabled    = "walk_ins_disabled"
)
