package server

import (
	"net/http"

	recondomain "github.com/clubnite/doorman/internal/reconciliation/domain"
	"github.com/gin-gonic/gin"
)

type saveReconciliationRequest struct {
	Totals      recondomain.SaveTotals        `json:"totals" binding:"required"`
	Adjustments []recondomain.AdjustmentInput `json:"adjustments"`
}

type approveReconciliationRequest struct {
	ApprovedBy string `json:"approved_by" binding:"required"`
}

func (s *Server) getFinancialReport(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	report, err := s.reconciliation.Report(c.Request.Context(), roomID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) saveReconciliation(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	var req saveReconciliationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBindingError(c, err)
		return
	}

	id, err := s.reconciliation.Save(c.Request.Context(), recondomain.SaveRequest{
		RoomID:      roomID,
		Totals:      req.Totals,
		Adjustments: req.Adjustments,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reconciliation_id": id.String()})
}

func (s *Server) approveReconciliation(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	var req approveReconciliationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBindingError(c, err)
		return
	}

	summary, err := s.reconciliation.Approve(c.Request.Context(), roomID, req.ApprovedBy)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) exportReconciliation(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	bundle, err := s.reconciliation.Export(c.Request.Context(), roomID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, bundle)
}
