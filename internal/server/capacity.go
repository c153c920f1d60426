package server

import (
	"net/http"
	"strconv"

	capacitydomain "github.com/clubnite/doorman/internal/capacity/domain"
	"github.com/gin-gonic/gin"
)

type canPurchaseRequest struct {
	Quantity int `json:"quantity" binding:"required,gte=1"`
}

type walkInRequest struct {
	LiveHeadcount int `json:"live_headcount" binding:"gte=0"`
}

func (s *Server) getCapacityStatus(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	headcount, err := strconv.Atoi(c.DefaultQuery("live_headcount", "0"))
	if err != nil || headcount < 0 {
		abortWithError(c, capacitydomain.ErrInvalidHeadcount)
		return
	}

	status, err := s.capacity.Status(c.Request.Context(), roomID, headcount)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) canPurchaseTickets(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	var req canPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBindingError(c, err)
		return
	}

	decision, err := s.capacity.CanPurchase(c.Request.Context(), roomID, req.Quantity)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, decision)
}

func (s *Server) canJoinAsWalkIn(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	var req walkInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBindingError(c, err)
		return
	}

	decision, err := s.capacity.CanWalkIn(c.Request.Context(), roomID, req.LiveHeadcount)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, decision)
}
