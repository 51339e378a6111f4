// main.go
package main

import (
	"log"

	"barber-booking/cmd"
	"barber-booking/internal/data/repository"
	"barber-booking/internal/wire"
	"barber-booking/pkg/database"
	"barber-booking/pkg/metrics"
	"barber-booking/pkg/mq"
	"barber-booking/pkg/payment"
	"barber-booking/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.String("store", config.App.Store),
		zap.String("payment_provider", config.Payment.Provider),
		zap.Bool("debug", config.App.Debug),
	)

	var closers []func()

	// Storage
	var repos *repository.Repository
	switch config.App.Store {
	case "memory":
		store := repository.NewMemoryStore()
		seedDemo(store, logger)
		repos = repository.NewMemoryRepository(store)
		logger.Warn("Using in-memory store, data is lost on restart")
	default:
		db, err := database.InitDB(config.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		closers = append(closers, db.Close)
		logger.Info("Database connected successfully")
		repos = repository.NewRepository(db, logger)
	}

	// Session cache and shared rate limiting
	rdb := database.InitRedis(config.Redis, logger)
	if rdb != nil {
		closers = append(closers, func() { _ = rdb.Close() })
	}

	// Domain events
	var publisher mq.EventPublisher = mq.NopPublisher{}
	if config.RabbitMQ.URL != "" {
		p, err := mq.NewPublisher(config.RabbitMQ.URL, config.RabbitMQ.Exchange)
		if err != nil {
			logger.Warn("RabbitMQ unavailable, events will be dropped", zap.Error(err))
		} else {
			publisher = p
		}
	}
	closers = append(closers, func() { _ = publisher.Close() })

	gateway, err := payment.NewGateway(config.Payment)
	if err != nil {
		logger.Fatal("Failed to configure payment provider", zap.Error(err))
	}

	metrics.Register()

	// Wire all dependencies
	app := wire.Wiring(repos, config, gateway, publisher, rdb, logger)

	cmd.APIServer(app.Router, config.App.Port, logger, closers...)
}
