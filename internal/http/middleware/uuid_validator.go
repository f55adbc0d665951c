package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/order-intake/internal/interface/http/response"
)

// ContextSessionIDKey хранит разобранный UUID сессии.
const ContextSessionIDKey = "sessionID"

// UUIDValidator проверяет, что параметр с указанным именем является валидным UUID,
// и кладёт разобранное значение в контекст под ContextSessionIDKey.
// Использование: wizard.GET("/:id", UUIDValidator("id"), handler.Get)
func UUIDValidator(paramName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		idStr := c.Param(paramName)
		if idStr == "" {
			response.BadRequest(c, "parameter "+paramName+" is required")
			return
		}

		id, err := uuid.Parse(idStr)
		if err != nil {
			response.BadRequest(c, "parameter "+paramName+" must be a valid UUID")
			return
		}

		c.Set(ContextSessionIDKey, id)
		c.Next()
	}
}

// SessionID возвращает UUID, разобранный UUIDValidator.
func SessionID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(ContextSessionIDKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}
