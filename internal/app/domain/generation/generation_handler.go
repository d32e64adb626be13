package generation

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-wanderplan/internal/app/common"
	"github.com/FACorreiaa/go-wanderplan/internal/app/domain/auth"
	"github.com/FACorreiaa/go-wanderplan/internal/app/models"
)

type GenerationHandlers struct {
	service GenerationService
	logger  *zap.Logger
}

func NewGenerationHandlers(service GenerationService, logger *zap.Logger) *GenerationHandlers {
	return &GenerationHandlers{
		service: service,
		logger:  logger,
	}
}

// GeneratePlan handles POST /api/plan/generate.
func (h *GenerationHandlers) GeneratePlan(c *gin.Context) {
	logger := h.logger.With(zap.String("method", "GeneratePlan"))

	var req models.GenerationRequest
	if !common.BindJSON(c, logger, &req) {
		return
	}

	result, err := h.service.GeneratePlan(c.Request.Context(), auth.UserID(c), req)
	if err != nil {
		common.RespondError(c, logger, err)
		return
	}
	if result.FailedBatches == nil {
		result.FailedBatches = []string{}
	}
	c.JSON(http.StatusCreated, result)
}
