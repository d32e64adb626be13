package plans

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-wanderplan/internal/app/common"
	"github.com/FACorreiaa/go-wanderplan/internal/app/domain/auth"
	"github.com/FACorreiaa/go-wanderplan/internal/app/models"
)

type PlanHandlers struct {
	planService PlanService
	logger      *zap.Logger
}

func NewPlanHandlers(planService PlanService, logger *zap.Logger) *PlanHandlers {
	return &PlanHandlers{
		planService: planService,
		logger:      logger,
	}
}

// AddPlan handles POST /api/plan/addPlan.
func (h *PlanHandlers) AddPlan(c *gin.Context) {
	logger := h.logger.With(zap.String("method", "AddPlan"))

	var plan models.Plan
	if !common.BindJSON(c, logger, &plan) {
		return
	}

	stored, err := h.planService.AddPlan(c.Request.Context(), auth.UserID(c), &plan)
	if err != nil {
		common.RespondError(c, logger, err)
		return
	}
	c.JSON(http.StatusCreated, stored)
}

// GetPlan handles GET /api/plan/:planId. Authentication is optional.
func (h *PlanHandlers) GetPlan(c *gin.Context) {
	logger := h.logger.With(zap.String("method", "GetPlan"))

	plan, err := h.planService.GetPlan(c.Request.Context(), auth.UserID(c), c.Param("planId"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Plan not found"})
			return
		}
		common.RespondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// ListPlans handles GET /api/plan.
func (h *PlanHandlers) ListPlans(c *gin.Context) {
	logger := h.logger.With(zap.String("method", "ListPlans"))

	plans, err := h.planService.ListUserPlans(c.Request.Context(), auth.UserID(c))
	if err != nil {
		common.RespondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, plans)
}

// ListCommunityPlans handles GET /api/plan/community.
func (h *PlanHandlers) ListCommunityPlans(c *gin.Context) {
	logger := h.logger.With(zap.String("method", "ListCommunityPlans"))

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	plans, err := h.planService.ListCommunityPlans(c.Request.Context(), limit, offset)
	if err != nil {
		common.RespondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, plans)
}

// UpdateSection handles PUT /api/plan/:planId/:section.
func (h *PlanHandlers) UpdateSection(c *gin.Context) {
	logger := h.logger.With(zap.String("method", "UpdateSection"), zap.String("section", c.Param("section")))

	var update models.SectionUpdate
	if !common.BindJSON(c, logger, &update) {
		return
	}

	plan, err := h.planService.UpdateSection(c.Request.Context(), auth.UserID(c), c.Param("planId"), c.Param("section"), update)
	if err != nil {
		common.RespondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// UpdateCurrency handles PUT /api/plan/:planId/currency.
func (h *PlanHandlers) UpdateCurrency(c *gin.Context) {
	logger := h.logger.With(zap.String("method", "UpdateCurrency"))

	var req models.CurrencyRequest
	if !common.BindJSON(c, logger, &req) {
		return
	}

	code, err := h.planService.UpdateCurrency(c.Request.Context(), auth.UserID(c), c.Param("planId"), req.Currency)
	if err != nil {
		common.RespondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"preferredCurrency": code})
}

// SetVisibility handles PUT /api/plan/:planId/visibility.
func (h *PlanHandlers) SetVisibility(c *gin.Context) {
	logger := h.logger.With(zap.String("method", "SetVisibility"))

	var req models.VisibilityRequest
	if !common.BindJSON(c, logger, &req) {
		return
	}

	if err := h.planService.SetVisibility(c.Request.Context(), auth.UserID(c), c.Param("planId"), *req.IsPublic); err != nil {
		common.RespondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"isPublic": *req.IsPublic})
}

// InviteCollaborator handles POST /api/plan/:planId/collaborators.
func (h *PlanHandlers) InviteCollaborator(c *gin.Context) {
	logger := h.logger.With(zap.String("method", "InviteCollaborator"))

	var req models.InviteRequest
	if !common.BindJSON(c, logger, &req) {
		return
	}

	collaborator, err := h.planService.InviteCollaborator(c.Request.Context(), auth.UserID(c), c.Param("planId"), req.Email)
	if err != nil {
		common.RespondError(c, logger, err)
		return
	}
	c.JSON(http.StatusCreated, collaborator)
}

// RemoveCollaborator handles DELETE /api/plan/:planId/collaborators/:email.
func (h *PlanHandlers) RemoveCollaborator(c *gin.Context) {
	logger := h.logger.With(zap.String("method", "RemoveCollaborator"))

	if err := h.planService.RemoveCollaborator(c.Request.Context(), auth.UserID(c), c.Param("planId"), c.Param("email")); err != nil {
		common.RespondError(c, logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeletePlan handles DELETE /api/plan/:planId.
func (h *PlanHandlers) DeletePlan(c *gin.Context) {
	logger := h.logger.With(zap.String("method", "DeletePlan"))

	if err := h.planService.DeletePlan(c.Request.Context(), auth.UserID(c), c.Param("planId")); err != nil {
		common.RespondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Plan deleted"})
}

// GenerationLog handles GET /api/plan/:planId/generation-log.
func (h *PlanHandlers) GenerationLog(c *gin.Context) {
	logger := h.logger.With(zap.String("method", "GenerationLog"))

	interactions, err := h.planService.GenerationLog(c.Request.Context(), auth.UserID(c), c.Param("planId"))
	if err != nil {
		common.RespondError(c, logger, err)
		return
	}
	if interactions == nil {
		interactions = []models.LLMInteraction{}
	}
	c.JSON(http.StatusOK, interactions)
}
