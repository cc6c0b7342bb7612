// internal/app/server.go
package app

import (
	"context"
	"fmt"

	"customer-service/internal/config"
	"customer-service/internal/db"
	"customer-service/internal/events"
	customerHandler "customer-service/internal/handlers/customer"
	"customer-service/internal/middleware"
	"customer-service/internal/pkg/ratelimit"
	"customer-service/internal/repository/postgres"
	customersvc "customer-service/internal/service/customer"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	cfg       config.AppConfig
	engine    *gin.Engine
	logger    *zap.Logger
	publisher events.Publisher
}

func NewServer() *Server {
	cfg := config.Load()
	engine := gin.New()
	return &Server{cfg: cfg, engine: engine}
}

func (s *Server) Start() error {
	ctx := context.Background()

	// ----- Logger -----
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()
	s.logger = logger

	// ----- PostgreSQL -----
	pool, err := postgres.Connect(ctx, s.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	// ----- Redis (optional reset throttle) -----
	var resetLimiter *ratelimit.Limiter
	if s.cfg.RedisAddr != "" {
		redisClient, err := db.NewRedisClient(db.RedisConfig{
			Addr:     s.cfg.RedisAddr,
			Password: s.cfg.RedisPass,
			PoolSize: 10,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		resetLimiter = ratelimit.NewLimiter(redisClient)
	} else {
		logger.Warn("REDIS_ADDR not set, password reset throttling disabled")
	}

	// ----- Events (optional Kafka) -----
	var publisher events.Publisher
	if len(s.cfg.KafkaBrokers) > 0 {
		kafkaPublisher, err := events.NewKafkaPublisher(s.cfg.KafkaBrokers, logger)
		if err != nil {
			return fmt.Errorf("failed to create kafka publisher: %w", err)
		}
		publisher = kafkaPublisher
	} else {
		logger.Warn("KAFKA_BROKERS not set, events will be dropped")
		publisher = events.NewNoopPublisher()
	}
	s.publisher = publisher

	// ----- Repositories -----
	customerRepo := postgres.NewCustomerRepository(pool)

	// ----- Services -----
	customerService := customersvc.NewCustomerService(customerRepo, publisher, resetLimiter, logger)

	// ----- Handlers -----
	customerHandlerInst := customerHandler.NewCustomerHandler(customerService)

	// ----- Middlewares -----
	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
	)

	// ----- Router -----
	handlers := &Handlers{
		CustomerHandler: customerHandlerInst,
	}
	SetupRouter(s.engine, handlers)

	logger.Info("server starting", zap.String("addr", s.cfg.HTTPAddr))
	return s.engine.Run(s.cfg.HTTPAddr)
}

// Shutdown releases external resources; the HTTP listener stops with the
// process.
func (s *Server) Shutdown() {
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil && s.logger != nil {
			s.logger.Error("failed to close event publisher", zap.Error(err))
		}
	}
}
