package bootstrap

import (
	"context"
	"fmt"
	"time"

	"placarcerto-be/internal/config"
	"placarcerto-be/internal/controller"
	"placarcerto-be/internal/handler"
	"placarcerto-be/internal/metrics"
	"placarcerto-be/internal/notification"
	"placarcerto-be/internal/pkg/logger"
	"placarcerto-be/internal/pkg/mailer"
	"placarcerto-be/internal/repository/cache"
	"placarcerto-be/internal/repository/unitofwork"
	"placarcerto-be/internal/service"
	"placarcerto-be/internal/websocket"
	"placarcerto-be/pkg/lock"
	pktNats "placarcerto-be/pkg/nats"
	"placarcerto-be/pkg/paysuite"
	"placarcerto-be/pkg/plans"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const redisPingTimeout = 3 * time.Second

type Container struct {
	// Controllers
	PaymentController controller.IPaymentController
	PlanController    controller.PlanController

	// WebSockets & Notification
	NotificationHandler *handler.NotificationHandler
	WebSocketHub        *websocket.Hub

	// Used by the sweep command
	PaymentService service.IPaymentService
	SweepService   service.ISweepService

	JwtSecret       string
	MetricsRegistry *prometheus.Registry
	Logger          logger.ILogger

	cancel  context.CancelFunc
	closers []func() error
}

type options struct {
	blockingNotifications bool
}

type Option func(*options)

// WithBlockingNotifications makes each notification wait for the worker, so a
// short-lived command does not exit with mail still queued.
func WithBlockingNotifications() Option {
	return func(o *options) { o.blockingNotifications = true }
}

// NewContainer wires every component. Redis and NATS are optional: without Redis the
// lock, cache and hub stay in-process; without NATS domain events are skipped.
func NewContainer(db *gorm.DB, cfg *config.Config, sysLogger logger.ILogger, opts ...Option) (*Container, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Container{
		JwtSecret: cfg.Auth.JWTSecret,
		Logger:    sysLogger,
		cancel:    cancel,
	}

	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)

	catalog, err := plans.Load(cfg.Billing.PlanCatalogPath)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("load plan catalog: %w", err)
	}

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		fmt.Sprintf("%s <%s>", cfg.SMTP.SenderName, cfg.SMTP.Email),
		cfg.App.ClientURL,
		sysLogger,
	)

	// 2. Infrastructure
	rdb := connectRedis(ctx, cfg.App.RedisURL, sysLogger)
	var (
		locker       lock.Locker
		entitlements cache.EntitlementCache
	)
	if rdb != nil {
		locker = lock.NewRedisLocker(rdb)
		entitlements = cache.NewRedisEntitlementCache(rdb)
		c.closers = append(c.closers, rdb.Close)
	} else {
		locker = lock.NewMemoryLocker()
		entitlements = cache.NewMemoryEntitlementCache()
	}

	// a nil *Publisher must not reach the interface
	var eventPublisher notification.EventPublisher
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		sysLogger.Warn("BOOTSTRAP", "Failed to connect to NATS Publisher, domain events disabled", map[string]interface{}{"error": err.Error()})
	} else {
		eventPublisher = natsPub
		c.closers = append(c.closers, func() error { natsPub.Close(); return nil })
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	paymentMetrics := metrics.NewPaymentMetrics(registry)
	c.MetricsRegistry = registry

	// 3. Notification System Infrastructure
	notifLogger := logger.NewIsolatedLogger(cfg.App.NotificationLog)
	wsHub := websocket.NewHub(rdb, notifLogger)
	go wsHub.Run(ctx)

	pubSub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            256,
			BlockPublishUntilSubscriberAck: o.blockingNotifications,
		},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, pubSub.Close)

	worker := notification.NewWorker(pubSub, emailService, wsHub, notifLogger)
	if err := worker.Start(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("start notification worker: %w", err)
	}
	dispatcher := notification.NewDispatcher(pubSub, eventPublisher, sysLogger)

	// 4. Services
	gateway := paysuite.NewClient(paysuite.Config{
		BaseURL:       cfg.PaySuite.BaseURL,
		APIKey:        cfg.PaySuite.APIKey,
		PrivateKey:    cfg.PaySuite.PrivateKey,
		WebhookSecret: cfg.PaySuite.WebhookSecret,
		CallbackURL:   cfg.PaySuite.WebhookURL,
		ReturnURL:     cfg.PaySuite.ReturnURL,
		Environment:   cfg.PaySuite.Environment,
		Mode:          cfg.PaySuite.Mode,
		Timeout:       cfg.PaySuite.Timeout,
	}, nil)

	paymentService := service.NewPaymentService(uowFactory, catalog, gateway, locker, entitlements, dispatcher, paymentMetrics, sysLogger)
	subscriptionService := service.NewSubscriptionService(uowFactory, catalog, locker, entitlements, sysLogger)
	planService := service.NewPlanService(catalog)
	sweepService := service.NewSweepService(uowFactory, catalog, paymentService, locker, entitlements, dispatcher, paymentMetrics, sysLogger)

	// 5. Controllers
	c.PaymentController = controller.NewPaymentController(paymentService, sysLogger)
	c.PlanController = controller.NewPlanController(planService, subscriptionService, sysLogger)
	c.NotificationHandler = handler.NewNotificationHandler(wsHub, cfg.Auth.JWTSecret, notifLogger)
	c.WebSocketHub = wsHub
	c.PaymentService = paymentService
	c.SweepService = sweepService

	sysLogger.Info("BOOTSTRAP", "Container ready", map[string]interface{}{
		"plans":         len(catalog.Active()),
		"redis":         rdb != nil,
		"nats":          eventPublisher != nil,
		"paysuite_mode": cfg.PaySuite.Mode,
		"paysuite_env":  cfg.PaySuite.Environment,
	})
	return c, nil
}

// Close stops background work and releases connections in reverse order.
func (c *Container) Close() {
	c.cancel()
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			c.Logger.Warn("BOOTSTRAP", "Close failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

func connectRedis(ctx context.Context, url string, log logger.ILogger) *redis.Client {
	if url == "" {
		return nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Warn("BOOTSTRAP", "Failed to parse Redis URL, using it as address", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn("BOOTSTRAP", "Failed to connect to Redis, falling back to in-process lock and cache", map[string]interface{}{"error": err.Error()})
		_ = rdb.Close()
		return nil
	}
	return rdb
}
