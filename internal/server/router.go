package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-wanderplan/internal/app/middleware"
	"github.com/FACorreiaa/go-wanderplan/internal/pkg/config"
	"github.com/FACorreiaa/go-wanderplan/internal/routes"
)

// SetupRouter configures and returns the Gin router with all middleware and routes
func SetupRouter(deps routes.Dependencies, cfg *config.Config, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.OTELGinMiddleware(cfg.Observability.ServiceName))
	r.Use(middleware.AccessLog(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORSMiddleware(cfg.Server.CORSOrigin))
	r.Use(middleware.SecurityMiddleware())

	routes.Setup(r, deps, cfg, logger)

	return r
}
