package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	commissiondomain "github.com/uplinelabs/upline/internal/commission/domain"
	ledgerdomain "github.com/uplinelabs/upline/internal/ledger/domain"
	memberdomain "github.com/uplinelabs/upline/internal/member/domain"
	profitsharedomain "github.com/uplinelabs/upline/internal/profitshare/domain"
	rateconfigdomain "github.com/uplinelabs/upline/internal/rateconfig/domain"
)

type apiError struct {
	status  int
	code    string
	message string
}

func (e *apiError) Error() string { return e.message }

func invalidRequestError() error {
	return &apiError{
		status:  http.StatusBadRequest,
		code:    "invalid_request",
		message: "request body or query is malformed",
	}
}

func invalidIDError(param string) error {
	return &apiError{
		status:  http.StatusBadRequest,
		code:    "invalid_id",
		message: param + " is not a valid id",
	}
}

// AbortWithError maps domain errors onto HTTP statuses. Anything unmapped is
// a 500 with a generic body so internals never leak to clients.
func AbortWithError(c *gin.Context, err error) {
	var ae *apiError
	if errors.As(err, &ae) {
		c.AbortWithStatusJSON(ae.status, gin.H{"error": gin.H{"code": ae.code, "message": ae.message}})
		return
	}

	status := http.StatusInternalServerError
	message := "internal server error"

	switch {
	case errors.Is(err, memberdomain.ErrMemberNotFound),
		errors.Is(err, memberdomain.ErrSponsorNotFound),
		errors.Is(err, commissiondomain.ErrRecordNotFound),
		errors.Is(err, ledgerdomain.ErrTransactionNotFound),
		errors.Is(err, ledgerdomain.ErrTopUpNotFound),
		errors.Is(err, ledgerdomain.ErrWithdrawalNotFound),
		errors.Is(err, profitsharedomain.ErrRunNotFound),
		errors.Is(err, rateconfigdomain.ErrNotConfigured):
		status = http.StatusNotFound
		message = err.Error()

	case errors.Is(err, memberdomain.ErrEmailTaken),
		errors.Is(err, commissiondomain.ErrAlreadyDecided),
		errors.Is(err, commissiondomain.ErrAlreadyPending),
		errors.Is(err, commissiondomain.ErrNotPaid),
		errors.Is(err, ledgerdomain.ErrAlreadyProcessed),
		errors.Is(err, ledgerdomain.ErrInvalidTransition),
		errors.Is(err, ledgerdomain.ErrInsufficientBalance),
		errors.Is(err, profitsharedomain.ErrInvalidRunState):
		status = http.StatusConflict
		message = err.Error()

	case errors.Is(err, memberdomain.ErrInvalidMemberName),
		errors.Is(err, memberdomain.ErrInvalidStatus),
		errors.Is(err, commissiondomain.ErrInvalidLevel),
		errors.Is(err, commissiondomain.ErrInvalidAction),
		errors.Is(err, commissiondomain.ErrInvalidAmount),
		errors.Is(err, commissiondomain.ErrReasonRequired),
		errors.Is(err, ledgerdomain.ErrInvalidType),
		errors.Is(err, ledgerdomain.ErrInvalidAmount),
		errors.Is(err, rateconfigdomain.ErrInvalidSchedule),
		errors.Is(err, profitsharedomain.ErrInvalidMethod),
		errors.Is(err, profitsharedomain.ErrInvalidProfit),
		errors.Is(err, profitsharedomain.ErrInvalidPeriod),
		errors.Is(err, profitsharedomain.ErrNoActiveMembers):
		status = http.StatusBadRequest
		message = err.Error()
	}

	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{"code": codeForStatus(status), "message": message}})
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusBadRequest:
		return "invalid_request"
	default:
		return "internal_error"
	}
}
