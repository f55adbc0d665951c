package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/order-intake/internal/interface/http/response"
	"github.com/ignatzorin/order-intake/internal/logger"
	"github.com/ignatzorin/order-intake/internal/pkg/apperror"
)

// ErrorTranslator приводит доменную ошибку к AppError.
type ErrorTranslator func(error) *apperror.AppError

// ErrorHandler обрабатывает ошибки, добавленные через c.Error, централизованно.
// Внутренние ошибки маскируются, ошибки по полям возвращаются в error.fields.
func ErrorHandler(translate ErrorTranslator) gin.HandlerFunc {
	log := logger.WithComponent("http")

	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		appErr := translate(err)

		entry := log.WithFields(logrus.Fields{
			"error":  err.Error(),
			"code":   appErr.Code,
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
		if appErr.HTTPStatus >= 500 {
			entry.Error("request failed")
		} else {
			entry.Debug("request rejected")
		}

		response.Error(c, appErr)
	}
}
