package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-wanderplan/internal/app/common"
	"github.com/FACorreiaa/go-wanderplan/internal/app/models"
)

type AuthHandlers struct {
	authService AuthService
	logger      *zap.Logger
}

func NewAuthHandlers(authService AuthService, logger *zap.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		logger:      logger,
	}
}

// SaveUser handles POST /api/auth/save-user.
func (h *AuthHandlers) SaveUser(c *gin.Context) {
	logger := h.logger.With(zap.String("method", "SaveUser"))

	var req models.SaveUserRequest
	if !common.BindJSON(c, logger, &req) {
		return
	}

	user, err := h.authService.SaveUser(c.Request.Context(), UserID(c), req.Profile())
	if err != nil {
		common.RespondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateUser handles PUT /api/auth/user/update.
func (h *AuthHandlers) UpdateUser(c *gin.Context) {
	logger := h.logger.With(zap.String("method", "UpdateUser"))

	var req models.UpdateUserRequest
	if !common.BindJSON(c, logger, &req) {
		return
	}

	user, err := h.authService.UpdateUser(c.Request.Context(), UserID(c), req)
	if err != nil {
		common.RespondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// GetUser handles GET /api/auth/user.
func (h *AuthHandlers) GetUser(c *gin.Context) {
	logger := h.logger.With(zap.String("method", "GetUser"))

	user, err := h.authService.GetUser(c.Request.Context(), UserID(c))
	if err != nil {
		common.RespondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":         user,
		"totalCredits": user.TotalCredits(),
	})
}
