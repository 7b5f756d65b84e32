package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/miyabiren/tabletop-companion/api/rest"
	"github.com/miyabiren/tabletop-companion/api/sse"
	"github.com/miyabiren/tabletop-companion/audit"
	"github.com/miyabiren/tabletop-companion/cache"
	"github.com/miyabiren/tabletop-companion/config"
	dbadapter "github.com/miyabiren/tabletop-companion/db"
	"github.com/miyabiren/tabletop-companion/game/display"
	"github.com/miyabiren/tabletop-companion/game/economy"
	"github.com/miyabiren/tabletop-companion/game/roster"
	"github.com/miyabiren/tabletop-companion/game/stats"
	mw "github.com/miyabiren/tabletop-companion/middleware"
	"github.com/miyabiren/tabletop-companion/model"
	"github.com/miyabiren/tabletop-companion/scheduler"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	if cfg.Security.JWTSecret == "" {
		logger.Warn("security.jwt_secret is not set; tokens are signed with an empty key")
	}

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized")

	// ---- Audit ----
	auditSvc := audit.New(db, logger)
	defer auditSvc.Stop(nil)

	// ---- Cache / PubSub ----
	cacheConfig := cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, err := cache.NewCache(cacheConfig)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	logger.Info("Cache initialized")

	// ---- Core services ----
	refresher := display.NewPubSub(pubsub, logger)
	rosterIx := roster.New(db, c, logger)
	statsSvc := stats.NewService(db, auditSvc, refresher, cfg.Game.StatSessionTTL, logger)
	ledger := economy.NewLedger(db, auditSvc, refresher, logger)

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()
	sched.AddTicker("stat-session-sweep", cfg.Game.SessionSweepEvery, func() {
		statsSvc.ExpireIdle(time.Now())
	})

	// ---- HTTP ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(mw.TraceID())
	r.Use(mw.Logger(logger))
	r.Use(mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	authH := apirest.NewAuthHandler(db, c, cfg.Security)
	charH := apirest.NewCharacterHandler(db, rosterIx, cfg.Game)
	statsH := apirest.NewStatsHandler(statsSvc)
	walletH := apirest.NewWalletHandler(db)
	shopH := apirest.NewShopHandler(db)
	transferH := apirest.NewTransferHandler(ledger)
	adminH := apirest.NewAdminHandler(db, ledger, rosterIx, logger)
	sseH := sse.NewHandler(pubsub, c, cfg.Security, logger)

	r.POST("/api/auth/login", authH.Login)
	r.GET("/sse", sseH.ServeSSE)

	api := r.Group("/api", mw.Auth(cfg.Security, c))
	{
		api.POST("/auth/logout", authH.Logout)

		api.GET("/characters", charH.List)
		api.POST("/characters", charH.Create)
		api.GET("/characters/resolve", charH.Resolve)
		api.GET("/characters/:id", charH.Get)
		api.POST("/characters/:id/rename", charH.Rename)
		api.POST("/characters/:id/retire", charH.Retire)

		api.POST("/characters/:id/stats/:track", statsH.Open)
		api.POST("/characters/:id/stats/:track/adjust", statsH.Adjust)
		api.POST("/characters/:id/stats/:track/apply", statsH.Apply)
		api.DELETE("/characters/:id/stats/:track", statsH.Cancel)

		api.POST("/wallets", walletH.Create)
		api.GET("/wallets/:id", walletH.Get)
		api.POST("/wallets/:id/owners", walletH.AddOwner)

		api.POST("/shops", shopH.Create)
		api.GET("/shops/:id", shopH.Get)

		api.POST("/transfers", transferH.Create)
		api.GET("/transfers", transferH.List)
		api.GET("/holders/:kind/:id/balance", transferH.Balance)

		admin := api.Group("/admin", mw.GMOnly())
		{
			admin.POST("/characters/:id/stats/reset", adminH.ResetStats)
			admin.POST("/grant", adminH.Grant)
			admin.GET("/audit", adminH.AuditLogs)
			admin.GET("/roster/:guild_id", adminH.GuildRoster)
			admin.POST("/roster/:guild_id/rebuild", adminH.RebuildRoster)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("server starting", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
