package images

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-wanderplan/internal/app/common"
)

type ImageHandlers struct {
	service ImageService
	logger  *zap.Logger
}

func NewImageHandlers(service ImageService, logger *zap.Logger) *ImageHandlers {
	return &ImageHandlers{service: service, logger: logger}
}

// SearchImage handles GET /api/images/search?place=.
func (h *ImageHandlers) SearchImage(c *gin.Context) {
	logger := h.logger.With(zap.String("method", "SearchImage"))

	img, err := h.service.SearchImage(c.Request.Context(), c.Query("place"))
	if err != nil {
		common.RespondError(c, logger, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.JSON(http.StatusOK, img)
}
