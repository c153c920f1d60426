package server

import (
	"net/http"

	roomdomain "github.com/clubnite/doorman/internal/room/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/clubnite/doorman/pkg/db"
	"github.com/gin-gonic/gin"
)

func (s *Server) listClubPaymentMethods(c *gin.Context) {
	clubID, err := snowflake.ParseString(c.Param("clubId"))
	if err != nil {
		abortWithError(c, roomdomain.ErrInvalidID)
		return
	}

	methods, err := s.clubRepo.ListPaymentMethods(c.Request.Context(), s.db, clubID)
	if err != nil {
		abortWithError(c, db.WrapStorage(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment_methods": methods})
}
