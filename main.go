package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"darkQuestsAPI/handlers"
	"darkQuestsAPI/internal/cache"
	"darkQuestsAPI/internal/config"
	"darkQuestsAPI/internal/database"
	"darkQuestsAPI/internal/notification"
	"darkQuestsAPI/middleware"
	"darkQuestsAPI/services"

	_ "net/http/pprof"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	clerk.SetKey(cfg.Auth.ClerkSecretKey)
	log.Println("Clerk initialized successfully")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	dbPool, err := database.NewPool(startupCtx, cfg.Database)
	if err != nil {
		cancel()
		log.Fatal(err)
	}
	defer func() {
		log.Println("Closing database connection pool...")
		dbPool.Close()
	}()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(startupCtx, dbPool); err != nil {
			cancel()
			log.Fatal(err)
		}
		log.Println("Schema is up to date")
	}
	cancel()

	leaderboardCache := newCache(ctx, cfg.Cache)
	defer leaderboardCache.Close()

	notificationService := services.NewNotificationService(dbPool, cfg.Notifications.Workers, cfg.Notifications.QueueSize)
	defer notificationService.Stop()

	fcmService, err := notification.NewFCMService(ctx, cfg.Notifications.CredentialsFile)
	if err != nil {
		log.Printf("Warning: Could not initialize FCM: %v", err)
	} else {
		notificationService.SetPushProvider(fcmService)
		log.Println("FCM Push Provider initialized successfully")
	}

	playerService := services.NewPlayerService(dbPool)
	questService := services.NewQuestService(dbPool, notificationService)
	storeService := services.NewStoreService(dbPool)
	leaderboardService := services.NewLeaderboardService(dbPool, leaderboardCache, cfg.Cache.TTL, cfg.Leaderboard.Size)

	hub := services.NewLeaderboardHub(leaderboardService)
	go hub.Run(ctx)
	go services.NewStatsListener(dbPool, leaderboardService, hub).Run(ctx)

	services.RegisterMetrics()
	middleware.InitPrometheus()

	rateLimiter, err := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.TrustedProxies)
	if err != nil {
		log.Fatalf("Invalid rate limiter config: %v", err)
	}
	go rateLimiter.CleanupVisitors(ctx)

	router := newRouter(cfg, dbPool, routerDeps{
		player:       handlers.NewPlayerHandler(playerService),
		quest:        handlers.NewQuestHandler(questService, playerService),
		store:        handlers.NewStoreHandler(storeService),
		admin:        handlers.NewAdminHandler(storeService, leaderboardService),
		leaderboard:  handlers.NewLeaderboardHandler(leaderboardService, hub),
		notification: handlers.NewNotificationHandler(notificationService, playerService),
		webhook:      handlers.NewWebhookHandler(playerService, cfg.Auth.ClerkWebhookSecret),
		roles:        playerService,
		rateLimiter:  rateLimiter,
	})

	// CORS configuration
	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins(cfg.Server.AllowedOrigins),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	server := http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      corsHandler(router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Printf("Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}

// newCache prefers Redis when configured and falls back to memory when it is unreachable.
func newCache(ctx context.Context, cfg config.CacheConfig) cache.Cache {
	if cfg.Type == "redis" {
		redisCache, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:      cfg.RedisAddress(),
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.KeyPrefix,
		})
		if err == nil {
			return redisCache
		}
		log.Printf("Warning: %v, falling back to in-memory cache", err)
	}
	return cache.NewMemoryCache(time.Minute)
}

type routerDeps struct {
	player       *handlers.PlayerHandler
	quest        *handlers.QuestHandler
	store        *handlers.StoreHandler
	admin        *handlers.AdminHandler
	leaderboard  *handlers.LeaderboardHandler
	notification *handlers.NotificationHandler
	webhook      *handlers.WebhookHandler
	roles        middleware.RoleChecker
	rateLimiter  *middleware.RateLimiter
}

func newRouter(cfg *config.Config, dbPool *pgxpool.Pool, d routerDeps) *mux.Router {
	r := mux.NewRouter()
	r.Use(d.rateLimiter.Middleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(cfg.Metrics.User, cfg.Metrics.Pass)(promhttp.Handler()))
	r.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(cfg.Metrics.PprofSecret)(http.DefaultServeMux))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := dbPool.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	}).Methods("GET")

	r.HandleFunc("/webhooks/clerk", d.webhook.HandleClerkWebhook).Methods("POST")

	protected := r.PathPrefix("/api/v1").Subrouter()
	protected.Use(middleware.ClerkAuthMiddleware)

	protected.HandleFunc("/player", d.player.GetProfile).Methods("GET")
	protected.HandleFunc("/player/display-name", d.player.UpdateDisplayName).Methods("PUT")

	protected.HandleFunc("/quests", d.quest.ListQuests).Methods("GET")
	protected.HandleFunc("/quests", d.quest.AddQuest).Methods("POST")
	protected.HandleFunc("/quests/{id}/complete", d.quest.CompleteQuest).Methods("POST")
	protected.HandleFunc("/quests/{id}", d.quest.DeleteQuest).Methods("DELETE")

	protected.HandleFunc("/store", d.store.GetStore).Methods("GET")
	protected.HandleFunc("/store/inventory", d.store.GetInventory).Methods("GET")
	protected.HandleFunc("/store/purchase", d.store.PurchaseStoreItem).Methods("POST")
	protected.HandleFunc("/store/inventory/{id}/equip", d.store.EquipItem).Methods("POST")

	protected.HandleFunc("/leaderboard", d.leaderboard.GetLeaderboard).Methods("GET")
	protected.HandleFunc("/leaderboard/ws", d.leaderboard.Stream).Methods("GET")

	protected.HandleFunc("/notifications/devices", d.notification.RegisterDevice).Methods("POST")

	admin := protected.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireRole(d.roles, "admin"))

	admin.HandleFunc("/store/items", d.admin.CreateItem).Methods("POST")
	admin.HandleFunc("/store/items/{id}", d.admin.UpdateItem).Methods("PUT")
	admin.HandleFunc("/store/items/{id}", d.admin.DeleteItem).Methods("DELETE")

	return r
}
