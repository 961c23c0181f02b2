package bootstrap

import (
	"context"
	"log"
	"time"

	"codepilot-be/internal/config"
	"codepilot-be/internal/controller"
	"codepilot-be/internal/pkg/logger"
	"codepilot-be/internal/pkg/mailer"
	"codepilot-be/internal/pkg/serverutils"
	"codepilot-be/internal/repository/unitofwork"
	"codepilot-be/internal/service"
	"codepilot-be/internal/websocket"
	"codepilot-be/pkg/apperror"
	"codepilot-be/pkg/chatstore"
	"codepilot-be/pkg/events"
	"codepilot-be/pkg/imagegen"
	"codepilot-be/pkg/kvstore"
	"codepilot-be/pkg/llm/factory"

	pktNats "codepilot-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
	"github.com/hashicorp/go-multierror"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AuthController       controller.IAuthController
	UserController       controller.IUserController
	ChatController       controller.IChatController
	GenerationController controller.IGenerationController
	ConfigController     controller.IConfigController

	// Middleware
	JwtMiddleware       fiber.Handler
	RequireTextProvider fiber.Handler

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	ActivityService service.IActivityService
	WebSocketHub    *websocket.Hub

	Logger logger.ILogger

	closers []func() error
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	c := &Container{Logger: sysLogger}

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.SenderName,
		cfg.App.ClientURL,
		sysLogger,
	)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)
	c.closers = append(c.closers, pubSub.Close)

	// 3. Infrastructure
	rdb := connectRedis(cfg.App.RedisURL, cfg.Storage.KVBackend == kvstore.BackendRedis)
	if rdb != nil {
		c.closers = append(c.closers, rdb.Close)
	}

	var eventPublisher events.Publisher
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	} else {
		eventPublisher = natsPub
		c.closers = append(c.closers, natsPub.Close)
	}

	auditLogger := logger.NewIsolatedLogger("logs/activity.log")
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	} else {
		c.ActivityService = service.NewActivityService(natsSub, auditLogger)
		c.closers = append(c.closers, natsSub.Close)
	}

	kv := newKVStore(cfg.Storage.KVBackend, db, rdb)
	sessions := chatstore.NewRegistry(kv, sysLogger)

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/websocket.log")
	c.WebSocketHub = websocket.NewHub(rdb, wsLogger)

	// 4. Providers, resolved once
	llmProvider, llmStatus := factory.NewLLMProvider(cfg.Ai, cfg.Keys)
	if llmStatus.IsConfigured {
		log.Printf("[INFO] Using LLM Provider: %s (%s)", llmProvider.Name(), cfg.Ai.LLMModel)
	} else {
		log.Printf("[WARN] LLM Provider %s is not configured: %s", llmProvider.Name(), llmStatus.Error)
	}
	imageProvider := imagegen.NewProvider(cfg.Ai, cfg.Keys)
	log.Printf("[INFO] Using Image Provider: %s", imageProvider.Name())

	// 5. Services
	tokenTTL, err := time.ParseDuration(cfg.Auth.TokenTTL)
	if err != nil {
		log.Printf("[WARN] Invalid JWT_TTL %q, using 1h", cfg.Auth.TokenTTL)
		tokenTTL = time.Hour
	}

	publisherService := service.NewPublisherService(cfg.Keys.MailTopic, pubSub)
	c.ConsumerService = service.NewConsumerService(pubSub, cfg.Keys.MailTopic, emailService, sysLogger)

	authService := service.NewAuthService(uowFactory, sessions, eventPublisher, publisherService, service.AuthOptions{
		JWTSecret: cfg.Auth.JWTSecret,
		TokenTTL:  tokenTTL,
	}, sysLogger)
	userService := service.NewUserService(uowFactory, kv, sessions, eventPublisher, publisherService, sysLogger)
	preferenceService := service.NewPreferenceService(kv)
	chatService := service.NewChatService(sessions, llmProvider, llmStatus, c.WebSocketHub, eventPublisher, sysLogger)
	generationService := service.NewGenerationService(llmProvider, imageProvider, sysLogger)
	configService := service.NewConfigService(llmProvider, llmStatus, imageProvider)

	// 6. Controllers
	c.AuthController = controller.NewAuthController(authService)
	c.UserController = controller.NewUserController(userService, preferenceService)
	c.ChatController = controller.NewChatController(chatService, c.WebSocketHub, sysLogger)
	c.GenerationController = controller.NewGenerationController(generationService)
	c.ConfigController = controller.NewConfigController(configService)

	c.JwtMiddleware = serverutils.NewJwtMiddleware(cfg.Auth.JWTSecret)
	c.RequireTextProvider = serverutils.RequireConfigured(func() error {
		if llmStatus.IsConfigured {
			return nil
		}
		return apperror.Configuration("%s", llmStatus.Error)
	})

	return c
}

// Start launches the background workers; they stop when ctx is cancelled.
func (c *Container) Start(ctx context.Context) {
	go c.WebSocketHub.Run(ctx)

	go func() {
		log.Println("Background: Starting Consumer Service...")
		if err := c.ConsumerService.Consume(ctx); err != nil {
			log.Printf("Background Consumer Error: %v", err)
		}
	}()

	if c.ActivityService != nil {
		if err := c.ActivityService.Start(ctx); err != nil {
			log.Printf("Background Activity Error: %v", err)
		}
	}
}

// Close releases every connection the container opened.
func (c *Container) Close() error {
	var result error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	_ = c.Logger.Sync()
	return result
}

// connectRedis returns nil when redis is unreachable, unless it backs the
// KV store, in which case startup cannot continue.
func connectRedis(url string, required bool) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: url,
		}
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		if required {
			log.Fatalf("[FATAL] Redis is required for KV_BACKEND=redis: %v", err)
		}
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
		_ = rdb.Close()
		return nil
	}
	return rdb
}

func newKVStore(backend string, db *gorm.DB, rdb *redis.Client) kvstore.Store {
	switch backend {
	case kvstore.BackendPostgres:
		log.Printf("[INFO] Using KV backend: postgres")
		return kvstore.NewGormStore(db)
	case kvstore.BackendMemory:
		log.Printf("[INFO] Using KV backend: memory (data is lost on restart)")
		return kvstore.NewMemoryStore()
	default:
		log.Printf("[INFO] Using KV backend: redis")
		return kvstore.NewRedisStore(rdb, "codepilot:")
	}
}
