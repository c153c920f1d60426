package server

import (
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/clubnite/doorman/internal/ledger/domain"
	"github.com/clubnite/doorman/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

type createLedgerEntryRequest struct {
	ClubID              string  `json:"club_id" binding:"required"`
	PlayerID            string  `json:"player_id" binding:"required"`
	LedgerType          string  `json:"ledger_type" binding:"required,oneof=entry_fee extra_purchase"`
	Amount              int64   `json:"amount" binding:"gte=0"`
	Currency            string  `json:"currency" binding:"required"`
	PaymentMethod       string  `json:"payment_method"`
	ClubPaymentMethodID *string `json:"club_payment_method_id"`
	ExtraID             string  `json:"extra_id"`
	PaymentReference    string  `json:"payment_reference"`
	Claimed             bool    `json:"claimed"`
}

type claimPaymentRequest struct {
	PlayerID         string `json:"player_id" binding:"required"`
	PaymentReference string `json:"payment_reference"`
	PaymentMethod    string `json:"payment_method"`
}

type confirmPaymentRequest struct {
	PlayerID            string  `json:"player_id" binding:"required"`
	ConfirmedBy         string  `json:"confirmed_by" binding:"required"`
	PaymentMethod       *string `json:"payment_method"`
	ClubPaymentMethodID *string `json:"club_payment_method_id"`
}

func (s *Server) listLedgerEntries(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		abortWithBindingError(c, err)
		return
	}

	resp, err := s.ledger.List(c.Request.Context(), ledgerdomain.ListEntriesRequest{
		RoomID:     roomID,
		Pagination: page,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// createLedgerEntry records a walk-in obligation. Ticket-backed
// obligations are written by ticket creation, not through here.
func (s *Server) createLedgerEntry(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	var req createLedgerEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBindingError(c, err)
		return
	}

	clubID, err := snowflake.ParseString(req.ClubID)
	if err != nil {
		abortWithError(c, ledgerdomain.ErrInvalidRoom)
		return
	}
	methodID, err := parseOptionalID(req.ClubPaymentMethodID)
	if err != nil {
		abortWithError(c, ledgerdomain.ErrInvalidRoom)
		return
	}

	create := ledgerdomain.CreateEntryRequest{
		RoomID:              roomID,
		ClubID:              clubID,
		PlayerID:            req.PlayerID,
		LedgerType:          ledgerdomain.LedgerType(req.LedgerType),
		Amount:              req.Amount,
		Currency:            req.Currency,
		PaymentMethod:       req.PaymentMethod,
		ClubPaymentMethodID: methodID,
		ExtraID:             req.ExtraID,
		PaymentReference:    req.PaymentReference,
	}
	if req.Claimed {
		now := time.Now().UTC()
		create.ClaimedAt = &now
	}

	id, err := s.ledger.CreateExpectedOrClaimed(c.Request.Context(), create)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ledger_id": id.String()})
}

func (s *Server) claimPayment(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	var req claimPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBindingError(c, err)
		return
	}

	affected, err := s.ledger.Claim(c.Request.Context(), ledgerdomain.ClaimRequest{
		RoomID:           roomID,
		PlayerID:         req.PlayerID,
		PaymentReference: req.PaymentReference,
		PaymentMethod:    req.PaymentMethod,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"affected": affected})
}

func (s *Server) confirmPayment(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	var req confirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBindingError(c, err)
		return
	}

	methodID, err := parseOptionalID(req.ClubPaymentMethodID)
	if err != nil {
		abortWithError(c, ledgerdomain.ErrInvalidRoom)
		return
	}

	affected, err := s.ledger.Confirm(c.Request.Context(), ledgerdomain.ConfirmRequest{
		RoomID:              roomID,
		PlayerID:            req.PlayerID,
		ConfirmedBy:         req.ConfirmedBy,
		PaymentMethod:       req.PaymentMethod,
		ClubPaymentMethodID: methodID,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	// Zero affected rows is a valid outcome the caller must inspect.
	c.JSON(http.StatusOK, gin.H{"affected": affected})
}

func parseOptionalID(raw *string) (*snowflake.ID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := snowflake.ParseString(*raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
