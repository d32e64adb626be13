package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	database "github.com/FACorreiaa/go-wanderplan/internal/db"
	"github.com/FACorreiaa/go-wanderplan/internal/pkg/config"
)

// Server holds the dependencies for the HTTP server
type Server struct {
	cfg         *config.Config
	logger      *zap.Logger
	mongoClient *mongo.Client
	mongoDB     *mongo.Database
	pgPool      *pgxpool.Pool
	router      http.Handler
}

// New connects the document store and, when configured, the interaction log database.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logger,
	}

	if err := s.setupMongo(ctx); err != nil {
		return nil, fmt.Errorf("failed to setup mongo: %w", err)
	}

	if cfg.Repositories.Postgres.URL != "" {
		pool, err := s.setupPostgres(ctx)
		if err != nil {
			s.Close(ctx)
			return nil, fmt.Errorf("failed to setup postgres: %w", err)
		}
		s.pgPool = pool
	} else {
		logger.Info("POSTGRES_URL not set, LLM interaction log disabled")
	}

	return s, nil
}

func (s *Server) setupMongo(ctx context.Context) error {
	client, db, err := database.ConnectMongo(ctx, s.cfg.Repositories.Mongo, s.logger)
	if err != nil {
		return err
	}
	if !database.WaitForMongo(ctx, client, s.logger) {
		_ = client.Disconnect(ctx)
		return fmt.Errorf("mongo did not become ready")
	}
	if err := database.EnsureIndexes(ctx, db, s.logger); err != nil {
		_ = client.Disconnect(ctx)
		return err
	}
	s.mongoClient, s.mongoDB = client, db
	s.logger.Info("Connected to MongoDB", zap.String("database", db.Name()))
	return nil
}

// setupPostgres initializes the pool and runs migrations
func (s *Server) setupPostgres(ctx context.Context) (*pgxpool.Pool, error) {
	pgCfg := s.cfg.Repositories.Postgres

	pool, err := database.InitPostgres(ctx, pgCfg, s.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database pool: %w", err)
	}
	if !database.WaitForPostgres(ctx, pool, s.logger) {
		pool.Close()
		return nil, fmt.Errorf("postgres did not become ready")
	}
	if err = database.RunMigrations(pgCfg.URL, s.logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	s.logger.Info("Postgres setup completed successfully")
	return pool, nil
}

// HTTPServer creates and configures the HTTP server. Generation calls run for up to
// AI_TIMEOUT, so the write timeout leaves room for them.
func (s *Server) HTTPServer() *http.Server {
	writeTimeout := 30 * time.Second
	if t := s.cfg.AI.Timeout + 15*time.Second; t > writeTimeout {
		writeTimeout = t
	}
	return &http.Server{
		Addr:              ":" + s.cfg.Server.Port,
		Handler:           s.router,
		IdleTimeout:       time.Minute,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      writeTimeout,
	}
}

func (s *Server) SetRouter(router http.Handler) {
	s.router = router
}

func (s *Server) MongoDB() *mongo.Database {
	return s.mongoDB
}

// PgPool returns nil when Postgres is not configured.
func (s *Server) PgPool() *pgxpool.Pool {
	return s.pgPool
}

// Close closes all server resources
func (s *Server) Close(ctx context.Context) {
	if s.pgPool != nil {
		s.pgPool.Close()
	}
	if s.mongoClient != nil {
		if err := s.mongoClient.Disconnect(ctx); err != nil {
			s.logger.Error("Failed to disconnect from MongoDB", zap.Error(err))
		}
	}
}
