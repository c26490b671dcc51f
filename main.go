package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flyerxpress/internal/analytics"
	analytics_api "flyerxpress/internal/analytics/api"
	"flyerxpress/internal/auth"
	"flyerxpress/internal/checkout"
	"flyerxpress/internal/checkout/checkout_api"
	checkout_redis "flyerxpress/internal/checkout/redis"
	"flyerxpress/internal/config"
	"flyerxpress/internal/database/migrations"
	"flyerxpress/internal/flyer"
	"flyerxpress/internal/flyer/flyer_api"
	"flyerxpress/internal/kafka"
	"flyerxpress/internal/listings"
	listing_db "flyerxpress/internal/listings/db"
	"flyerxpress/internal/listings/listing_api"
	"flyerxpress/internal/logger"
	"flyerxpress/internal/sse"
	"flyerxpress/internal/tickets"
	ticket_db "flyerxpress/internal/tickets/db"
	qr "flyerxpress/internal/tickets/qr_generator"
	"flyerxpress/internal/tickets/template"
	"flyerxpress/internal/tickets/ticket_api"
	"flyerxpress/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

func connectPostgres(cfg config.DatabaseConfig, log *logger.Logger) *bun.DB {
	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.DSN)
		if err != nil {
			log.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		sqldb.Close()
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)
	log.Info("DATABASE", "✅ PostgreSQL connection successful")

	if cfg.AutoMigrate {
		runner := migrations.NewRunner(sqldb, migrations.Options{MigrationsDir: cfg.MigrationsDir}, log)
		if err := runner.Up(); err != nil {
			log.Fatal("MIGRATE", fmt.Sprintf("Auto-migration failed: %v", err))
		}
		// The runner shares sqldb and is left open.
	}

	return bun.NewDB(sqldb, pgdialect.New())
}

// buildProcessor routes card payments to Stripe when it is configured and
// everything else to the simulated gateway.
func buildProcessor(cfg *config.Config, log *logger.Logger) checkout.Processor {
	simulated := &checkout.SimulatedProcessor{Delay: cfg.Checkout.ProcessingDelay}
	router := checkout.NewMethodRouter(simulated)

	if cfg.Stripe.Enabled {
		stripeProcessor, err := checkout.NewStripeProcessor(cfg.Stripe.SecretKey, log)
		if err != nil {
			log.Warn("STRIPE", fmt.Sprintf("Card payments fall back to the simulated gateway: %v", err))
		} else {
			router.Route(checkout.MethodCard, stripeProcessor)
		}
	}

	return &checkout.RetryingProcessor{
		Next:        router,
		MaxAttempts: cfg.Checkout.MaxProcessorAttempts,
		BaseDelay:   cfg.Checkout.RetryBaseDelay,
		Logger:      log,
	}
}

func health(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccess(w, http.StatusOK, "ok", map[string]string{"status": "up"})
}

func main() {
	log := logger.NewLogger("flyerxpress")
	defer log.Close()

	log.Info("APP", "Starting FlyerXpress initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}
	cfg := config.Load()

	ctx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	bunDB := connectPostgres(cfg.Database, log)
	defer bunDB.Close()

	redisClient, err := auth.ConnectRedis(cfg.Redis.Addr, cfg.Redis.DB, log)
	if err != nil {
		log.Fatal("REDIS", fmt.Sprintf("Redis connection error: %v", err))
	}
	defer redisClient.Close()

	emitter := sse.NewSalesEmitter()

	var publisher kafka.Publisher = kafka.NoopPublisher{}
	var notifier checkout.SaleNotifier = emitter
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, log)
		defer producer.Close()
		publisher = producer

		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, cfg.Kafka.Topics.All(), log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}

		// Each replica reads every completed payment so its own SSE clients hear about it.
		hostname, _ := os.Hostname()
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.PaymentCompleted, "flyerxpress-sales-"+hostname, log)
		go func() {
			if err := consumer.ConsumePayments(ctx, emitter.EmitPayment); err != nil {
				log.Error("KAFKA", fmt.Sprintf("Payment consumer stopped: %v", err))
			}
		}()
		notifier = nil
		log.Info("KAFKA", "Kafka producer and payment consumer initialized")
	} else {
		log.Warn("KAFKA", "Kafka disabled, events are delivered in-process only")
	}

	verifier, err := auth.NewOIDCVerifier(ctx, cfg.Auth.OIDCIssuer)
	if err != nil {
		log.Fatal("AUTH", fmt.Sprintf("Failed to initialise OIDC verifier: %v", err))
	}
	revocations := auth.NewRevocationList(redisClient)

	listingStore := listing_db.New(bunDB)
	listingService := listings.NewService(listingStore, publisher, cfg.Kafka.Topics.ListingCreated, log)
	analyticsService := analytics.NewService(listingStore, analytics.NewDB(bunDB), analytics.NewRuleBasedProvider(), log)

	ticketService := tickets.NewTicketService(
		ticket_db.New(bunDB),
		qr.NewQRGenerator(cfg.Tickets.QRSecret),
		template.NewTicketPDFGenerator(cfg.Tickets.PDFFooter),
		log,
	)

	sessionStore := checkout_redis.NewStore(redisClient, cfg.Checkout.SessionTTL, cfg.Checkout.LockTTL)
	checkoutService := checkout.NewService(checkout.Deps{
		Listings:  listingStore,
		Store:     sessionStore,
		Processor: buildProcessor(cfg, log),
		Tickets:   ticketService,
		Publisher: publisher,
		Notifier:  notifier,
		Logger:    log,
	}, cfg.Checkout, cfg.Kafka.Topics)

	expiry := &checkout_redis.ExpiryWatcher{Client: redisClient, Logger: log}
	expiry.EnableNotifications(ctx)
	go expiry.Run(ctx)

	renderer, err := flyer.NewRenderer(cfg.Flyer.Footer)
	if err != nil {
		log.Fatal("FLYER", fmt.Sprintf("Failed to load flyer fonts: %v", err))
	}

	authHandler := auth.NewHandler(revocations, log)
	listingHandler := listing_api.NewHandler(listingService, analyticsService, emitter, log)
	analyticsHandler := analytics_api.NewHandler(analyticsService, log)
	checkoutHandler := checkout_api.NewHandler(checkoutService, log)
	ticketHandler := ticket_api.NewHandler(ticketService, log)
	flyerHandler := flyer_api.NewHandler(renderer, log)

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logger.Middleware(log))

	r.Get("/health", health)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(verifier, revocations, cfg.Auth.RoleHeader, log))

		r.Route("/api", func(r chi.Router) {
			authHandler.RegisterRoutes(r)
			listingHandler.RegisterRoutes(r)
			analyticsHandler.RegisterRoutes(r)
			checkoutHandler.RegisterRoutes(r)
			ticketHandler.RegisterRoutes(r)
			flyerHandler.RegisterRoutes(r)
		})
		log.Info("ROUTER", "API routes registered under /api")
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 FlyerXpress running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	stopBackground()

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "✅ FlyerXpress shutdown complete")
	}
}
