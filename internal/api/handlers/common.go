package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nmkrspvl/interviewprep/internal/providers/llm"
	"github.com/nmkrspvl/interviewprep/internal/utils"
)

type APIError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
	Details any        `json:"details,omitempty"`
}

// writeError maps a service error onto an HTTP response. A rate-limited
// upstream is relayed as 429 with its Retry-After hint echoed; upstream
// secrets and raw bodies never leave through this path.
func writeError(c *gin.Context, err error) {
	status := utils.HTTPStatus(err)
	code := utils.CodeInternal
	msg := http.StatusText(status)
	var details any

	var ae *utils.AppError
	if errors.As(err, &ae) {
		code = ae.Code
		msg = ae.Message
		details = ae.Details
	}

	var ue *llm.UpstreamError
	if errors.As(err, &ue) && ue.RateLimited() {
		status = http.StatusTooManyRequests
		code = utils.CodeRateLimited
		if ue.RetryAfter > 0 {
			c.Header("Retry-After", strconv.Itoa(ue.RetryAfter))
		}
	}

	c.JSON(status, APIError{Code: code, Message: msg, Details: details})
}
