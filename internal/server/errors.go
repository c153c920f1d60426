package server

import (
	"errors"
	"net/http"

	capacitydomain "github.com/clubnite/doorman/internal/capacity/domain"
	ledgerdomain "github.com/clubnite/doorman/internal/ledger/domain"
	recondomain "github.com/clubnite/doorman/internal/reconciliation/domain"
	roomdomain "github.com/clubnite/doorman/internal/room/domain"
	ticketdomain "github.com/clubnite/doorman/internal/ticket/domain"
	"github.com/clubnite/doorman/pkg/db"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Error taxonomy surfaced at the request boundary. Every failure is
// scoped to one operation, nothing here is fatal to the process.
const (
	ErrTypeNotFound         = "not_found"
	ErrTypeInvalidState     = "invalid_state"
	ErrTypeCapacityExceeded = "capacity_exceeded"
	ErrTypeValidation       = "validation_error"
	ErrTypeStorage          = "storage_error"
	ErrTypeInternal         = "internal_error"
)

type errorBody struct {
	Type       string   `json:"type"`
	Code       string   `json:"code"`
	Message    string   `json:"message"`
	Violations []string `json:"violations,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

var notFoundErrs = []error{
	roomdomain.ErrNotFound,
	ticketdomain.ErrTicketNotFound,
	ticketdomain.ErrInvalidToken,
	recondomain.ErrSummaryNotFound,
}

var invalidStateErrs = []error{
	ticketdomain.ErrAlreadyConfirmed,
	ticketdomain.ErrAlreadyRedeemed,
	ticketdomain.ErrPaymentNotConfirmed,
	ticketdomain.ErrNotReady,
	recondomain.ErrAlreadyApproved,
}

var validationErrs = []error{
	roomdomain.ErrInvalidID,
	ticketdomain.ErrInvalidPurchaser,
	ticketdomain.ErrInvalidPlayerID,
	capacitydomain.ErrInvalidQuantity,
	capacitydomain.ErrInvalidHeadcount,
	ledgerdomain.ErrInvalidRoom,
	ledgerdomain.ErrInvalidPlayer,
	ledgerdomain.ErrInvalidType,
	ledgerdomain.ErrInvalidAmount,
	ledgerdomain.ErrInvalidCurrency,
	recondomain.ErrFinalTotalRequired,
	recondomain.ErrInvalidAdjustment,
	recondomain.ErrInvalidApprover,
}

// Classify maps a domain error to its taxonomy type and HTTP status.
func Classify(err error) (string, int) {
	switch {
	case matchesAny(err, notFoundErrs):
		return ErrTypeNotFound, http.StatusNotFound
	case matchesAny(err, invalidStateErrs):
		return ErrTypeInvalidState, http.StatusConflict
	case errors.Is(err, ticketdomain.ErrCapacityExceeded):
		return ErrTypeCapacityExceeded, http.StatusConflict
	case matchesAny(err, validationErrs):
		return ErrTypeValidation, http.StatusBadRequest
	case errors.Is(err, db.ErrStorage):
		// The only retry-eligible category.
		return ErrTypeStorage, http.StatusServiceUnavailable
	default:
		return ErrTypeInternal, http.StatusInternalServerError
	}
}

// classifyForLog feeds the request logger's error_type/error_code fields.
func classifyForLog(err error) (string, string) {
	errType, _ := Classify(err)
	return errType, rootCode(err)
}

func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	errType, status := Classify(err)
	c.AbortWithStatusJSON(status, errorResponse{Error: errorBody{
		Type:    errType,
		Code:    rootCode(err),
		Message: err.Error(),
	}})
}

// abortWithBindingError surfaces the full violation list, not just the
// first failed field.
func abortWithBindingError(c *gin.Context, err error) {
	_ = c.Error(err)

	var violations []string
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			violations = append(violations, fe.Field()+" failed "+fe.Tag())
		}
	}

	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: errorBody{
		Type:       ErrTypeValidation,
		Code:       "malformed_payload",
		Message:    "request payload failed validation",
		Violations: violations,
	}})
}

func matchesAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// rootCode unwraps to the sentinel's snake_case message for the code
// field, leaving the outer message intact for humans.
func rootCode(err error) string {
	for {
		unwrapped := errors.Unwrap(err)
		if unwrapped == nil {
			return err.Error()
		}
		err = unwrapped
	}
}
