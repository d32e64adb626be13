package expenses

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-wanderplan/internal/app/common"
	"github.com/FACorreiaa/go-wanderplan/internal/app/domain/auth"
	"github.com/FACorreiaa/go-wanderplan/internal/app/models"
)

const IdempotencyKeyHeader = "Idempotency-Key"

type ExpenseHandlers struct {
	expenseService ExpenseService
	logger         *zap.Logger
}

func NewExpenseHandlers(expenseService ExpenseService, logger *zap.Logger) *ExpenseHandlers {
	return &ExpenseHandlers{
		expenseService: expenseService,
		logger:         logger,
	}
}

// AddExpense handles POST /api/expense/add.
func (h *ExpenseHandlers) AddExpense(c *gin.Context) {
	logger := h.logger.With(zap.String("method", "AddExpense"))

	var req models.AddExpenseRequest
	if !common.BindJSON(c, logger, &req) {
		return
	}

	doc, err := h.expenseService.AddExpense(c.Request.Context(), auth.UserID(c), req)
	if err != nil {
		common.RespondError(c, logger, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

// GetExpenses handles POST /api/expense/:id/get where :id is the plan id.
func (h *ExpenseHandlers) GetExpenses(c *gin.Context) {
	logger := h.logger.With(zap.String("method", "GetExpenses"))

	var filter models.ExpenseFilter
	if c.Request.ContentLength != 0 {
		if !common.BindJSON(c, logger, &filter) {
			return
		}
	}

	doc, err := h.expenseService.GetExpenses(c.Request.Context(), auth.UserID(c), c.Param("id"), filter)
	if err != nil {
		common.RespondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// UpdateExpense handles PUT /api/expense/:id where :id is the expense document id.
func (h *ExpenseHandlers) UpdateExpense(c *gin.Context) {
	logger := h.logger.With(zap.String("method", "UpdateExpense"))

	var req models.UpdateExpenseRequest
	if !common.BindJSON(c, logger, &req) {
		return
	}

	doc, err := h.expenseService.UpdateExpense(c.Request.Context(), auth.UserID(c), c.Param("id"), req)
	if err != nil {
		common.RespondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// DeleteMultiple handles POST /api/expense/:id/delete-multiple where :id is the plan id.
func (h *ExpenseHandlers) DeleteMultiple(c *gin.Context) {
	logger := h.logger.With(zap.String("method", "DeleteMultiple"))

	var req models.DeleteMultipleRequest
	if !common.BindJSON(c, logger, &req) {
		return
	}

	result, err := h.expenseService.DeleteMultiple(c.Request.Context(), auth.UserID(c), c.Param("id"), req.IDs,
		c.GetHeader(IdempotencyKeyHeader))
	if err != nil {
		common.RespondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListPlanExpenses handles GET /api/expense/plan/:planId.
func (h *ExpenseHandlers) ListPlanExpenses(c *gin.Context) {
	logger := h.logger.With(zap.String("method", "ListPlanExpenses"))

	docs, err := h.expenseService.ListPlanExpenses(c.Request.Context(), auth.UserID(c), c.Param("planId"))
	if err != nil {
		common.RespondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

// Summary handles GET /api/expense/summary/plan/:planId.
func (h *ExpenseHandlers) Summary(c *gin.Context) {
	logger := h.logger.With(zap.String("method", "Summary"))

	summary, err := h.expenseService.Summary(c.Request.Context(), auth.UserID(c), c.Param("planId"))
	if err != nil {
		common.RespondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
