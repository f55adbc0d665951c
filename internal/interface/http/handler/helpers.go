package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/order-intake/internal/http/middleware"
	"github.com/ignatzorin/order-intake/internal/pkg/apperror"
)

func getUserID(c *gin.Context) (uuid.UUID, error) {
	userID, ok := middleware.UserID(c)
	if !ok {
		return uuid.Nil, apperror.ErrUnauthorized
	}
	return userID, nil
}

// getSessionID читает :id, если UUIDValidator не стоит в цепочке.
func getSessionID(c *gin.Context) (uuid.UUID, error) {
	if id := middleware.SessionID(c); id != uuid.Nil {
		return id, nil
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperror.New(apperror.ErrCodeBadRequest, "parameter id must be a valid UUID")
	}
	return id, nil
}
