package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"supplement-program-api/config"
	"supplement-program-api/controllers"
	"supplement-program-api/events"
	"supplement-program-api/middleware"
	"supplement-program-api/models"
	"supplement-program-api/routes"
	"supplement-program-api/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, logFile := config.InitLogging(cfg.Log)
	if logFile != nil {
		defer logFile.Close()
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server exited with error", zap.Error(err))
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) error {
	db, err := config.InitDB(cfg.Database, cfg.Log.Environment)
	if err != nil {
		return err
	}
	if cfg.Database.AutoMigrate {
		if err := models.AutoMigrate(db); err != nil {
			return err
		}
	}

	opts, err := services.ProgramOptionsFromConfig(cfg.Program, logger)
	if err != nil {
		return err
	}
	notifier, err := services.NewNotifier(ctx, cfg, logger)
	if err != nil {
		return err
	}

	program := services.NewProgram(db, opts, notifier, cfg.Notify.PublicBaseURL, cfg.Program.RunJobsOnStart)
	services.RegisterProgramJobs(program.Scheduler, program, cfg.Program)

	bus := events.NewBus()
	program.Milestones.Subscribe(bus)
	controllers.Setup(program, bus)

	// Set Gin mode
	if cfg.Server.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.AccessLog())
	router.Use(middleware.MetricsMiddleware())

	// Add security headers middleware
	router.Use(func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	})

	routes.SetupRoutes(router, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("gin_mode", cfg.Server.GinMode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.Program.SchedulerEnabled {
		g.Go(func() error {
			return program.Scheduler.Start(gctx)
		})
	} else {
		logger.Info("scheduler disabled (SCHEDULER_ENABLED=false)")
	}

	if len(cfg.Kafka.Brokers) > 0 {
		reader := events.NewKafkaReader(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID)
		consumer := events.NewKafkaConsumer(reader, bus, logger)
		g.Go(func() error {
			logger.Info("screening event consumer starting",
				zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
			return consumer.Run(gctx)
		})
	} else {
		logger.Info("kafka consumer disabled (KAFKA_BROKERS empty)")
	}

	return g.Wait()
}
