package main

import (
	"context"
	"fmt"

	"github.com/kendall-kelly/erp-orders-api/config"
	"github.com/kendall-kelly/erp-orders-api/controllers"
	"github.com/kendall-kelly/erp-orders-api/services"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// application owns the wired services and the connections they hold open
type application struct {
	users    *services.UserService
	handlers controllers.Handlers
	closers  []func() error
	log      *zap.Logger
}

// newApplication wires services from cfg. Kafka, Redis and S3 are optional:
// without brokers lifecycle events are logged, without Redis reports are not
// cached, and without a bucket image uploads are disabled.
func newApplication(ctx context.Context, cfg *config.Config, log *zap.Logger, db *gorm.DB) (*application, error) {
	app := &application{log: log}
	policy := services.NewPolicy(services.DefaultPolicyTable())

	var dispatcher services.Dispatcher
	if cfg.KafkaEnabled() {
		kafka := services.NewKafkaDispatcher(cfg.KafkaBrokers, cfg.KafkaOrderTopic, cfg.ServiceName)
		app.closers = append(app.closers, kafka.Close)
		dispatcher = kafka
		log.Info("Publishing order events to Kafka", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaOrderTopic))
	} else {
		dispatcher = services.NewLogDispatcher(log)
		log.Info("KAFKA_BROKERS not set, order events will be logged")
	}

	var cache services.ReportCache
	if cfg.RedisEnabled() {
		client, err := services.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			log.Warn("Redis unavailable, reports will not be cached", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		} else {
			app.closers = append(app.closers, client.Close)
			cache = services.NewRedisReportCache(client, cfg.ReportCacheTTL)
		}
	}

	var images *services.ImageService
	if cfg.AWSS3Bucket != "" {
		store, err := services.NewS3Service(ctx, cfg)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("initialize S3: %w", err)
		}
		images = services.NewImageService(store)
	} else {
		log.Warn("AWS_S3_BUCKET not set, product image upload is disabled")
	}

	app.users = services.NewUserService(db, policy, services.NewAuth0Service(cfg), log)
	app.handlers = controllers.Handlers{
		Users:      controllers.NewUserController(app.users, log),
		Customers:  controllers.NewCustomerController(services.NewCustomerService(db, policy, log), log),
		Products:   controllers.NewProductController(services.NewProductService(db, policy, images, log), log),
		Orders:     controllers.NewOrderController(services.NewOrderService(db, policy, dispatcher, log), log),
		Attendance: controllers.NewAttendanceController(services.NewAttendanceService(db, policy, log), log),
		Leaves:     controllers.NewLeaveController(services.NewLeaveService(db, policy, log), log),
		Reports:    controllers.NewReportController(services.NewReportService(db, policy, cache, log), log),
	}
	return app, nil
}

// Close flushes the event writer and closes cache connections
func (a *application) Close() {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.log.Warn("Failed to close resource", zap.Error(err))
		}
	}
}
