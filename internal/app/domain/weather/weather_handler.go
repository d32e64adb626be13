package weather

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-wanderplan/internal/app/common"
	"github.com/FACorreiaa/go-wanderplan/internal/app/models"
)

type WeatherHandlers struct {
	service WeatherService
	logger  *zap.Logger
}

func NewWeatherHandlers(service WeatherService, logger *zap.Logger) *WeatherHandlers {
	return &WeatherHandlers{service: service, logger: logger}
}

// CurrentWeather handles GET /api/weather?lat=&lng=.
func (h *WeatherHandlers) CurrentWeather(c *gin.Context) {
	logger := h.logger.With(zap.String("method", "CurrentWeather"))

	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		common.RespondError(c, logger, fmt.Errorf("%w: lat and lng must be numbers", models.ErrBadRequest))
		return
	}

	w, err := h.service.CurrentWeather(c.Request.Context(), lat, lng)
	if err != nil {
		common.RespondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, w)
}
