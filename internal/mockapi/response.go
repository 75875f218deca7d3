package mockapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-admin/internal/model"
	apperrors "github.com/jwalitptl/clinic-admin/pkg/errors"
)

func NewErrorResponse(message string) model.ErrorBody {
	return model.ErrorBody{Status: "error", Message: message}
}

// respondError writes err with the status it carries. Unknown errors are 500.
func respondError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Status == 0 {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, NewErrorResponse("internal server error"))
		return
	}
	c.AbortWithStatusJSON(appErr.Status, NewErrorResponse(appErr.Message))
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, NewErrorResponse(msg))
}

func created(c *gin.Context, body interface{}) {
	c.JSON(http.StatusCreated, body)
}
