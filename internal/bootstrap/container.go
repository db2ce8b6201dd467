package bootstrap

import (
	"context"
	"log"

	"lexchat-be/internal/config"
	"lexchat-be/internal/controller"
	"lexchat-be/internal/mapper"
	"lexchat-be/internal/pkg/logger"
	"lexchat-be/internal/repository/contract"
	"lexchat-be/internal/repository/implementation"
	"lexchat-be/internal/repository/memory"
	"lexchat-be/internal/service"
	"lexchat-be/internal/websocket"
	"lexchat-be/pkg/backend"

	pktNats "lexchat-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	ChatController    controller.IChatController
	SessionController controller.ISessionController
	UserController    controller.IUserController
	PaymentController controller.IPaymentController

	// Background services (exposed for main.go to run)
	SessionService     service.ISessionService
	EntitlementService service.IEntitlementService

	// WebSockets
	WebSocketHub *websocket.Hub
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	chatMapper := mapper.NewChatMapper()

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 2.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	redisUp := true
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
		redisUp = false
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/reveal.log")
	var hubRedis *redis.Client
	if redisUp {
		hubRedis = rdb
	}
	wsHub := websocket.NewHub(hubRedis, wsLogger)
	go wsHub.Run()

	// 3. Stores
	// Usage counters survive restarts on Redis; everything else is
	// process-local working state.
	var usageRepo contract.UsageRepository
	if redisUp {
		usageRepo = implementation.NewRedisUsageRepository(rdb)
	} else {
		usageRepo = memory.NewUsageRepository()
	}
	conversationStore := memory.NewConversationStore()
	handoffStore := memory.NewHandoffStore()
	orderStore := memory.NewOrderStore()

	// 4. Remote backend
	backendClient := backend.NewHTTPClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)

	// 5. Services
	publisherService := service.NewPublisherService(pubSub)
	limiterService := service.NewLimiterService(usageRepo, cfg.Limits.DailyQuestions, sysLogger)
	entitlementService := service.NewEntitlementService(backendClient, pubSub, sysLogger)
	sessionService := service.NewSessionService(backendClient, chatMapper, pubSub, sysLogger)
	userService := service.NewUserService(backendClient, entitlementService, sysLogger)
	paymentService := service.NewPaymentService(backendClient, orderStore, publisherService, natsPub, cfg, sysLogger)

	conversationService := service.NewConversationService(
		backendClient,
		conversationStore,
		handoffStore,
		limiterService,
		publisherService,
		natsPub,
		chatMapper,
		wsHub,
		cfg.Limits.RetrievalLimit,
		sysLogger,
	)

	return &Container{
		ChatController:    controller.NewChatController(conversationService, wsHub),
		SessionController: controller.NewSessionController(sessionService),
		UserController:    controller.NewUserController(userService),
		PaymentController: controller.NewPaymentController(paymentService),

		SessionService:     sessionService,
		EntitlementService: entitlementService,

		WebSocketHub: wsHub,
	}
}
