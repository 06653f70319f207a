package middleware

import (
	"medishare/internal/services"
	"medishare/internal/transport/httpdto"
	medishare_errors "medishare/pkg/errors"
	"medishare/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandler renders the last error attached with c.Error. Internal errors
// are logged in full and answered with a generic message.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		kind := medishare_errors.KindOf(err)
		if l != nil {
			if kind == medishare_errors.KindInternal || kind == medishare_errors.KindExternalService {
				l.Error(c.Request.Context(), "request failed", zap.String("kind", string(kind)), zap.Error(err))
			} else {
				l.Info(c.Request.Context(), "request rejected", zap.String("kind", string(kind)), zap.String("reason", err.Error()))
			}
		}
		if c.Writer.Written() {
			return
		}
		c.JSON(services.HTTPStatus(err), httpdto.FromError(err))
	}
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(services.HTTPStatus(err), httpdto.FromError(err))
}
