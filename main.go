package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-wanderplan/internal/app/domain/expenses"
	"github.com/FACorreiaa/go-wanderplan/internal/app/domain/generation"
	"github.com/FACorreiaa/go-wanderplan/internal/app/domain/plans"
	"github.com/FACorreiaa/go-wanderplan/internal/app/jobs"
	"github.com/FACorreiaa/go-wanderplan/internal/pkg/config"
	"github.com/FACorreiaa/go-wanderplan/internal/pkg/mailer"
	"github.com/FACorreiaa/go-wanderplan/internal/routes"
	"github.com/FACorreiaa/go-wanderplan/internal/server"
	"github.com/FACorreiaa/go-wanderplan/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := logger.Init(logger.ParseLevel(cfg.Server.LogLevel), zap.String("service", cfg.Observability.ServiceName)); err != nil {
		return err
	}
	l := logger.Log
	defer func() { _ = l.Sync() }()

	otelShutdown, err := server.InitObservability(cfg.Observability, l)
	if err != nil {
		return err
	}
	defer func() {
		if err := otelShutdown(context.Background()); err != nil {
			l.Error("Failed to shutdown OpenTelemetry", zap.Error(err))
		}
	}()

	startupCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	srv, err := server.New(startupCtx, cfg, l)
	if err != nil {
		return err
	}

	completer, err := generation.NewCompleter(startupCtx, cfg.AI)
	if err != nil {
		srv.Close(context.Background())
		return err
	}

	var inviter plans.Inviter = mailer.NewNoopMailer(l)
	if cfg.SMTP.Host != "" {
		smtpMailer, err := mailer.NewSMTPMailer(cfg.SMTP, l)
		if err != nil {
			srv.Close(context.Background())
			return err
		}
		inviter = smtpMailer
	}

	router := server.SetupRouter(routes.Dependencies{
		MongoDB:   srv.MongoDB(),
		PgPool:    srv.PgPool(),
		Completer: completer,
		Inviter:   inviter,
	}, cfg, l)
	srv.SetRouter(router)

	scheduler := jobs.NewScheduler(
		expenses.NewMongoExpenseRepo(srv.MongoDB(), l),
		plans.NewMongoPlanRepo(srv.MongoDB(), l),
		l,
	)
	if err := scheduler.Start(cfg.Jobs.OrphanSweepSchedule); err != nil {
		srv.Close(context.Background())
		return err
	}

	pprofServer := server.StartPprofServer(cfg.Observability.PprofAddr, l)

	httpServer := srv.HTTPServer()

	done := make(chan bool, 1)
	go server.GracefulShutdown(httpServer, l, done,
		scheduler.Stop,
		func(ctx context.Context) {
			if pprofServer != nil {
				_ = pprofServer.Shutdown(ctx)
			}
		},
		srv.Close,
	)

	l.Info("Server starting", zap.String("port", cfg.Server.Port), zap.String("aiProvider", completer.Provider()))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("Server error", zap.Error(err))
		return err
	}

	<-done
	l.Info("Graceful shutdown complete")

	return nil
}
