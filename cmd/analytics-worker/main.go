package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/taskflow/taskflow-backend/internal/analytics/consumers"
	analyticshandler "github.com/taskflow/taskflow-backend/internal/analytics/handler"
	analyticsrepo "github.com/taskflow/taskflow-backend/internal/analytics/repository"
	"github.com/taskflow/taskflow-backend/internal/analytics/scheduler"
	"github.com/taskflow/taskflow-backend/internal/analytics/service"
	"github.com/taskflow/taskflow-backend/internal/notify"
	taskrepo "github.com/taskflow/taskflow-backend/internal/task/repository"
	"github.com/taskflow/taskflow-backend/pkg/clock"
	"github.com/taskflow/taskflow-backend/pkg/config"
	"github.com/taskflow/taskflow-backend/pkg/database"
	"github.com/taskflow/taskflow-backend/pkg/httputil"
	"github.com/taskflow/taskflow-backend/pkg/logger"
	"github.com/taskflow/taskflow-backend/pkg/messaging"
)

func main() {
	// Load configuration
	cfg, err := config.LoadWithValidation("analytics-worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("analytics-worker", cfg.Server.Environment)
	log.Info().Msg("starting Analytics Worker")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	// The worker itself enqueues follow-up jobs (delay notifications,
	// scheduler fan-out)
	jobPublisher, err := messaging.NewPublisher(rmq, messaging.ExchangeJobs, "analytics-worker", log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create job publisher")
	}

	// Dead letters from exhausted retries end up on the worker's DLQ
	if err := rmq.DeclareDeadLetterQueue("analytics-worker"); err != nil {
		log.Fatal().Err(err).Msg("failed to declare dead letter queue")
	}

	clk := clock.New(cfg.Scheduler.Timezone)

	// Notification delivery: SMTP when configured, log-only otherwise
	var sender notify.Sender
	if cfg.SMTP.Host != "" {
		mailer, err := notify.NewMailer(&cfg.SMTP, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create mailer")
		}
		sender = mailer
	} else {
		log.Warn().Msg("no SMTP host configured, notifications are log-only")
		sender = notify.NewLogSender(log)
	}

	// Initialize repositories
	metricsRepo := analyticsrepo.NewMetricsRepository(db)
	productivityRepo := analyticsrepo.NewProductivityRepository(db)
	departmentRepo := analyticsrepo.NewDepartmentRepository(db)
	projectAnalyticsRepo := analyticsrepo.NewProjectAnalyticsRepository(db)
	delayRepo := analyticsrepo.NewDelayRepository(db)
	reportRepo := analyticsrepo.NewReportRepository(db)
	skillRepo := analyticsrepo.NewSkillRatingRepository(db)
	employeeRepo := taskrepo.NewEmployeeRepository(db)
	projectRepo := taskrepo.NewProjectRepository(db)
	taskRepository := taskrepo.NewTaskRepository(db)

	// Initialize service
	analyticsService := service.NewAnalyticsService(
		metricsRepo, productivityRepo, departmentRepo, projectAnalyticsRepo,
		delayRepo, reportRepo, skillRepo, employeeRepo, projectRepo, taskRepository,
		jobPublisher, clk, log,
	)

	// Start job consumer
	jobConsumer, err := consumers.NewJobConsumer(rmq, analyticsService, employeeRepo, sender, clk, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create job consumer")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := jobConsumer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start job consumer")
	}

	// Start the daily schedule
	sched, err := scheduler.New(&cfg.Scheduler, db, jobPublisher, clk, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create scheduler")
	}
	if err := sched.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}

	// The worker also serves the analytics read path
	analyticsHandler := analyticshandler.NewAnalyticsHandler(analyticsService, jobPublisher, clk, log)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(httputil.Auth(&cfg.JWT)) // /health exempt

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "analytics-worker",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/analytics", func(r chi.Router) {
			r.Use(httputil.RequireCapability("analytics.read"))
			r.Get("/productivity/{userId}", analyticsHandler.ProductivityByUser)
			r.Get("/workload/{userId}", analyticsHandler.WorkloadByUser)
			r.Get("/departments", analyticsHandler.Departments)
			r.Get("/projects/{id}", analyticsHandler.ProjectAnalytics)
			r.Get("/delays", analyticsHandler.DelayAnalyses)
			r.Post("/recompute/productivity", analyticsHandler.TriggerProductivityRecompute)
			r.Post("/recompute/delays", analyticsHandler.TriggerDelaySweep)
		})

		r.Route("/skills", func(r chi.Router) {
			r.With(httputil.RequireCapability("skills.rate")).Post("/", analyticsHandler.RateSkill)
			r.With(httputil.RequireCapability("skills.read")).Get("/", analyticsHandler.ListSkillRatings)
		})

		r.Route("/reports", func(r chi.Router) {
			r.With(httputil.RequireCapability("reports.create")).Post("/", analyticsHandler.GenerateReport)
			r.With(httputil.RequireCapability("reports.read")).Get("/", analyticsHandler.ListReports)
			r.With(httputil.RequireCapability("reports.read")).Get("/{id}", analyticsHandler.GetReport)
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")

	// Stop the schedule, then the consumer
	sched.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}

	log.Info().Msg("worker stopped")
}
