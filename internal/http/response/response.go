package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/exampaper-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondErr uses the status and code of an *apierr.Error in err's chain and
// falls back to 500 with fallbackCode.
func RespondErr(c *gin.Context, fallbackCode string, err error) {
	if ae := apierr.From(err); ae != nil {
		status := ae.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		RespondError(c, status, ae.Code, ae)
		return
	}
	RespondError(c, http.StatusInternalServerError, fallbackCode, err)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
