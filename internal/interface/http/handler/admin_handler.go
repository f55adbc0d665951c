package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/order-intake/internal/interface/http/response"
	"github.com/ignatzorin/order-intake/internal/metrics"
	"github.com/ignatzorin/order-intake/internal/vocabulary"
)

// AdminHandler обслуживает служебные операции со словарём.
type AdminHandler struct {
	cache   *vocabulary.OptionCache
	metrics *metrics.Metrics
}

func NewAdminHandler(cache *vocabulary.OptionCache, m *metrics.Metrics) *AdminHandler {
	return &AdminHandler{cache: cache, metrics: m}
}

// InvalidateVocabulary обрабатывает POST /api/admin/vocabulary/invalidate.
func (h *AdminHandler) InvalidateVocabulary(c *gin.Context) {
	h.cache.Invalidate()
	h.metrics.IncVocabularyInvalidations()
	response.Success(c, h.cache.Table(c.Request.Context()).Options())
}
