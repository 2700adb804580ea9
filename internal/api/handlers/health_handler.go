package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nmkrspvl/interviewprep/internal/providers/llm"
)

// HealthHandler exposes provider diagnostics. It reports outages as data,
// never as a 5xx.
type HealthHandler struct {
	provider llm.Provider
}

func NewHealthHandler(provider llm.Provider) *HealthHandler {
	return &HealthHandler{provider: provider}
}

func (h *HealthHandler) LLMStatus(c *gin.Context) {
	ctx := c.Request.Context()
	healthy := h.provider.CheckHealth(ctx)

	var models []llm.ModelInfo
	if healthy {
		models = h.provider.ListModels(ctx)
	}
	if models == nil {
		models = []llm.ModelInfo{}
	}

	c.JSON(http.StatusOK, gin.H{
		"provider": h.provider.Name(),
		"healthy":  healthy,
		"models":   models,
	})
}
