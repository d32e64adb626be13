package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-wanderplan/internal/app/domain/auth"
	"github.com/FACorreiaa/go-wanderplan/internal/app/domain/billing"
	"github.com/FACorreiaa/go-wanderplan/internal/app/domain/expenses"
	"github.com/FACorreiaa/go-wanderplan/internal/app/domain/generation"
	"github.com/FACorreiaa/go-wanderplan/internal/app/domain/images"
	"github.com/FACorreiaa/go-wanderplan/internal/app/domain/llmlog"
	"github.com/FACorreiaa/go-wanderplan/internal/app/domain/plans"
	"github.com/FACorreiaa/go-wanderplan/internal/app/domain/weather"
	"github.com/FACorreiaa/go-wanderplan/internal/app/middleware"
	"github.com/FACorreiaa/go-wanderplan/internal/pkg/config"
)

// Dependencies are the external resources the handlers are built from.
// PgPool may be nil, in which case the LLM interaction log is disabled.
type Dependencies struct {
	MongoDB   *mongo.Database
	PgPool    *pgxpool.Pool
	Completer generation.Completer
	Inviter   plans.Inviter
}

type AppHandlers struct {
	Auth       *auth.AuthHandlers
	Plans      *plans.PlanHandlers
	Expenses   *expenses.ExpenseHandlers
	Generation *generation.GenerationHandlers
	Images     *images.ImageHandlers
	Weather    *weather.WeatherHandlers
	Billing    *billing.BillingHandlers
}

func Setup(r *gin.Engine, deps Dependencies, cfg *config.Config, log *zap.Logger) {
	handlers := setupDependencies(deps, cfg, log)
	setupRouter(r, handlers, cfg, log)
}

func setupDependencies(deps Dependencies, cfg *config.Config, log *zap.Logger) *AppHandlers {
	var interactionRepo llmlog.Repository = llmlog.NoopRepository{}
	if deps.PgPool != nil {
		interactionRepo = llmlog.NewPostgresRepository(deps.PgPool, log)
	}
	interactionLog := llmlog.NewLLMLogger(log, interactionRepo)

	// Repositories
	authRepo := auth.NewMongoAuthRepo(deps.MongoDB, log)
	planRepo := plans.NewMongoPlanRepo(deps.MongoDB, log)
	expenseRepo := expenses.NewMongoExpenseRepo(deps.MongoDB, log)

	// Services
	authService := auth.NewAuthService(authRepo, log)
	planService := plans.NewPlanService(planRepo, authService, expenseRepo, deps.Inviter, interactionLog, log)
	expenseService := expenses.NewExpenseService(expenseRepo, planService, log)
	generationService := generation.NewGenerationService(deps.Completer, planRepo, authService, interactionLog, cfg.AI.Timeout, log)
	imageService := images.NewImageService(cfg.Images, nil, log)
	weatherService := weather.NewWeatherService(cfg.Weather, nil, log)
	billingService := billing.NewBillingService(cfg.Stripe, authService, billing.NewMongoEventLedger(deps.MongoDB, log), log)

	return &AppHandlers{
		Auth:       auth.NewAuthHandlers(authService, log),
		Plans:      plans.NewPlanHandlers(planService, log),
		Expenses:   expenses.NewExpenseHandlers(expenseService, log),
		Generation: generation.NewGenerationHandlers(generationService, log),
		Images:     images.NewImageHandlers(imageService, log),
		Weather:    weather.NewWeatherHandlers(weatherService, log),
		Billing:    billing.NewBillingHandlers(billingService, log),
	}
}

func setupRouter(r *gin.Engine, h *AppHandlers, cfg *config.Config, log *zap.Logger) {
	required := auth.JWTAuthMiddleware(auth.JWTConfig{
		SecretKey: cfg.Auth.JWTSecret,
		Issuer:    cfg.Auth.Issuer,
		Logger:    log,
	})
	optional := auth.JWTAuthMiddleware(auth.JWTConfig{
		SecretKey: cfg.Auth.JWTSecret,
		Issuer:    cfg.Auth.Issuer,
		Logger:    log,
		Optional:  true,
	})
	generateLimiter := middleware.NewRateLimiter(cfg.RateLimit.GeneratePerMinute, cfg.RateLimit.GenerateBurst, log)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Stripe calls this without a user token; the payload signature is the credential.
	r.POST("/webhook/stripe", h.Billing.Webhook)

	api := r.Group("/api")

	// Public
	api.GET("/plan/community", h.Plans.ListCommunityPlans)
	api.GET("/plan/:planId", optional, h.Plans.GetPlan)
	api.GET("/weather", h.Weather.CurrentWeather)

	authed := api.Group("", required)
	{
		authed.POST("/auth/save-user", h.Auth.SaveUser)
		authed.PUT("/auth/user/update", h.Auth.UpdateUser)
		authed.GET("/auth/user", h.Auth.GetUser)
	}
	{
		authed.GET("/plan", h.Plans.ListPlans)
		authed.POST("/plan/addPlan", h.Plans.AddPlan)
		authed.POST("/plan/generate", generateLimiter.Handler(), h.Generation.GeneratePlan)
		authed.PUT("/plan/:planId/currency", h.Plans.UpdateCurrency)
		authed.PUT("/plan/:planId/visibility", h.Plans.SetVisibility)
		authed.PUT("/plan/:planId/:section", h.Plans.UpdateSection)
		authed.POST("/plan/:planId/collaborators", h.Plans.InviteCollaborator)
		authed.DELETE("/plan/:planId/collaborators/:email", h.Plans.RemoveCollaborator)
		authed.GET("/plan/:planId/generation-log", h.Plans.GenerationLog)
		authed.DELETE("/plan/:planId", h.Plans.DeletePlan)
	}
	{
		authed.POST("/expense/add", h.Expenses.AddExpense)
		authed.POST("/expense/:id/get", h.Expenses.GetExpenses)
		authed.PUT("/expense/:id", h.Expenses.UpdateExpense)
		authed.POST("/expense/:id/delete-multiple", h.Expenses.DeleteMultiple)
		authed.GET("/expense/plan/:planId", h.Expenses.ListPlanExpenses)
		authed.GET("/expense/summary/plan/:planId", h.Expenses.Summary)
	}
	{
		authed.GET("/images/search", h.Images.SearchImage)
		authed.POST("/billing/checkout", h.Billing.CreateCheckout)
	}

	SetupSPA(r, cfg.Server.StaticDir, log)
}
