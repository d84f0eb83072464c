package handler

import (
	"vendorhub/pkg/apperror"
	"vendorhub/pkg/response"

	"github.com/gin-gonic/gin"
)

// respondError maps a service error to its HTTP status and writes the
// standard error envelope with the machine-checkable kind.
func respondError(c *gin.Context, err error) {
	status := apperror.HTTPStatus(err)
	c.JSON(status, response.ErrorWithKind(status, string(apperror.KindOf(err)), err.Error()))
}
