package server

import (
	"net/http"

	ticketdomain "github.com/clubnite/doorman/internal/ticket/domain"
	"github.com/gin-gonic/gin"
)

type createTicketRequest struct {
	PurchaserName    string   `json:"purchaser_name" binding:"required"`
	PurchaserEmail   string   `json:"purchaser_email" binding:"omitempty,email"`
	ExtraIDs         []string `json:"extra_ids"`
	PaymentMethod    string   `json:"payment_method" binding:"required"`
	PaymentReference string   `json:"payment_reference"`
}

type confirmTicketRequest struct {
	ConfirmedBy     string `json:"confirmed_by" binding:"required"`
	ConfirmedByName string `json:"confirmed_by_name"`
	ConfirmedByRole string `json:"confirmed_by_role"`
	Notes           string `json:"notes"`
}

type redeemTicketRequest struct {
	JoinToken string `json:"join_token" binding:"required"`
	PlayerID  string `json:"player_id" binding:"required"`
}

func (s *Server) createTicket(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	var req createTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBindingError(c, err)
		return
	}

	result, err := s.tickets.Create(c.Request.Context(), ticketdomain.CreateTicketRequest{
		RoomID:           roomID,
		PurchaserName:    req.PurchaserName,
		PurchaserEmail:   req.PurchaserEmail,
		ExtraIDs:         req.ExtraIDs,
		PaymentMethod:    req.PaymentMethod,
		PaymentReference: req.PaymentReference,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (s *Server) getTicket(c *gin.Context) {
	ticket, err := s.tickets.Get(c.Request.Context(), c.Param("ticketId"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func (s *Server) confirmTicket(c *gin.Context) {
	var req confirmTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBindingError(c, err)
		return
	}

	ticket, err := s.tickets.Confirm(c.Request.Context(), ticketdomain.ConfirmTicketRequest{
		TicketID:        c.Param("ticketId"),
		ConfirmedBy:     req.ConfirmedBy,
		ConfirmedByName: req.ConfirmedByName,
		ConfirmedByRole: req.ConfirmedByRole,
		Notes:           req.Notes,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func (s *Server) redeemTicket(c *gin.Context) {
	var req redeemTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBindingError(c, err)
		return
	}

	result, err := s.tickets.Redeem(c.Request.Context(), ticketdomain.RedeemTicketRequest{
		JoinToken: req.JoinToken,
		PlayerID:  req.PlayerID,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
