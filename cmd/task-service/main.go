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
	"github.com/go-chi/cors"

	"github.com/taskflow/taskflow-backend/internal/task/consumers"
	"github.com/taskflow/taskflow-backend/internal/task/events"
	"github.com/taskflow/taskflow-backend/internal/task/handler"
	"github.com/taskflow/taskflow-backend/internal/task/repository"
	"github.com/taskflow/taskflow-backend/internal/task/service"
	"github.com/taskflow/taskflow-backend/pkg/clock"
	"github.com/taskflow/taskflow-backend/pkg/config"
	"github.com/taskflow/taskflow-backend/pkg/database"
	"github.com/taskflow/taskflow-backend/pkg/httputil"
	"github.com/taskflow/taskflow-backend/pkg/logger"
	"github.com/taskflow/taskflow-backend/pkg/messaging"
)

func main() {
	// Load configuration
	cfg, err := config.LoadWithValidation("task-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("task-service", cfg.Server.Environment)
	log.Info().Msg("starting Task Service")

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

	// Publishers: lifecycle events and background jobs go to separate exchanges
	eventPublisher, err := messaging.NewPublisher(rmq, messaging.ExchangeTaskEvents, "task-service", log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}
	jobPublisher, err := messaging.NewPublisher(rmq, messaging.ExchangeJobs, "task-service", log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create job publisher")
	}

	clk := clock.New(cfg.Scheduler.Timezone)

	// Initialize repositories
	taskRepo := repository.NewTaskRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	timeLogRepo := repository.NewTimeLogRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	employeeRepo := repository.NewEmployeeRepository(db)

	// The mutation event router fans task lifecycle changes out to history,
	// notifications, and analytics recomputes
	router := events.NewRouter(historyRepo, employeeRepo, jobPublisher, eventPublisher, log)

	// Initialize services
	taskService := service.NewTaskService(taskRepo, historyRepo, router, clk, log)
	projectService := service.NewProjectService(projectRepo, jobPublisher, log)
	timeLogService := service.NewTimeLogService(timeLogRepo, taskRepo, router, clk, log)
	commentService := service.NewCommentService(commentRepo, taskRepo, log)

	// Initialize handlers
	taskHandler := handler.NewTaskHandler(taskService, log)
	projectHandler := handler.NewProjectHandler(projectService, log)
	timeLogHandler := handler.NewTimeLogHandler(timeLogService, log)
	commentHandler := handler.NewCommentHandler(commentService, log)

	// Start user event consumer to keep the employee directory current
	userConsumer, err := consumers.NewUserEventConsumer(rmq, employeeRepo, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create user event consumer")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := userConsumer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start user event consumer")
	}

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(httputil.Auth(&cfg.JWT)) // /health exempt

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "task-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/tasks", func(r chi.Router) {
			r.With(httputil.RequireCapability("tasks.read")).Get("/", taskHandler.List)
			r.With(httputil.RequireCapability("tasks.create")).Post("/", taskHandler.Create)
			r.With(httputil.RequireCapability("tasks.read")).Get("/{id}", taskHandler.Get)
			r.With(httputil.RequireCapability("tasks.update")).Patch("/{id}", taskHandler.Update)
			r.With(httputil.RequireCapability("tasks.delete")).Delete("/{id}", taskHandler.Delete)
			r.With(httputil.RequireCapability("tasks.read")).Get("/{id}/history", taskHandler.History)

			r.With(httputil.RequireCapability("comments.read")).Get("/{id}/comments", commentHandler.ListByTask)
			r.With(httputil.RequireCapability("comments.create")).Post("/{id}/comments", commentHandler.Create)

			r.With(httputil.RequireCapability("timelogs.read")).Get("/{id}/time-logs", timeLogHandler.ListByTask)
			r.With(httputil.RequireCapability("timelogs.create")).Post("/{id}/time-logs", timeLogHandler.Create)
		})

		r.With(httputil.RequireCapability("comments.read")).Delete("/comments/{id}", commentHandler.Delete)
		r.With(httputil.RequireCapability("timelogs.read")).Get("/time-logs", timeLogHandler.ListMine)

		r.Route("/projects", func(r chi.Router) {
			r.With(httputil.RequireCapability("projects.read")).Get("/", projectHandler.List)
			r.With(httputil.RequireCapability("projects.create")).Post("/", projectHandler.Create)
			r.With(httputil.RequireCapability("projects.read")).Get("/{id}", projectHandler.Get)
			r.With(httputil.RequireCapability("projects.update")).Patch("/{id}", projectHandler.Update)
			r.With(httputil.RequireCapability("projects.delete")).Delete("/{id}", projectHandler.Delete)
			r.With(httputil.RequireCapability("analytics.read")).Post("/{id}/recompute", projectHandler.Recompute)
		})
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
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

	log.Info().Msg("shutting down server")

	// Stop the consumer
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}

	log.Info().Msg("server stopped")
}
