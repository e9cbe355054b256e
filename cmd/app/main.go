package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"qai-backend/docs"
	"qai-backend/internal/common/auth"
	"qai-backend/internal/common/cache"
	"qai-backend/internal/common/config"
	"qai-backend/internal/common/logger"
	"qai-backend/internal/common/metrics"
	"qai-backend/internal/common/middleware"
	homeHTTP "qai-backend/internal/features/home/delivery/http"
	homeRepo "qai-backend/internal/features/home/repository/postgres"
	homeService "qai-backend/internal/features/home/service"
	stakingHTTP "qai-backend/internal/features/staking/delivery/http"
	stakingRepo "qai-backend/internal/features/staking/repository/postgres"
	stakingService "qai-backend/internal/features/staking/service"
	treeHTTP "qai-backend/internal/features/tree/delivery/http"
	treeModels "qai-backend/internal/features/tree/models"
	treeRepo "qai-backend/internal/features/tree/repository/postgres"
	treeService "qai-backend/internal/features/tree/service"
	userHTTP "qai-backend/internal/features/user/delivery/http"
	userRepo "qai-backend/internal/features/user/repository/postgres"
	userService "qai-backend/internal/features/user/service"
	walletHTTP "qai-backend/internal/features/wallet/delivery/http"
	walletRepo "qai-backend/internal/features/wallet/repository/postgres"
	walletService "qai-backend/internal/features/wallet/service"
	"qai-backend/internal/platform/evm"
	"qai-backend/internal/platform/postgres"
	"qai-backend/internal/platform/redis"
)

// @title           QAI Staking API
// @version         1.0
// @description     Signup with referral and sponsor placement, wallet, staking packages and dashboard.

// @BasePath  /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description "Bearer " followed by the token returned from /auth/login

// @tag.name auth
// @tag.description Signup, login and referrer lookup

// @tag.name home
// @tag.description Dashboard

// @tag.name tree
// @tag.description Referral and sponsor org charts

// @tag.name wallet
// @tag.description Deposit, withdraw and wallet history

// @tag.name staking
// @tag.description Package catalog, purchase and history

// @tag.name admin
// @tag.description Package management

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.ServiceName, cfg.Debug)
	logger.Info().Str("version", "1.0.0").Msg("Starting QAI backend")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	postgresClient, err := postgres.NewClient(cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer postgresClient.Close()
	db := postgresClient.GetDB()

	if cfg.Postgres.AutoMigrate {
		if err := postgres.Migrate(db); err != nil {
			logger.Fatal().Err(err).Msg("Failed to apply migrations")
		}
	}

	redisClient, err := redis.Open(ctx, cfg.RedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	cacheService := cache.NewCacheService(redisClient)
	m := metrics.New()
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	sealer, err := evm.NewKeySealer(cfg.Wallet.DepositKeySecret, cfg.Wallet.DepositKeyVersion)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid deposit key secret")
	}

	// Repositories
	trees := treeRepo.NewRepository(db)
	users := userRepo.NewPostgresRepository(db)
	signups := userRepo.NewSignupStore(db)
	homes := homeRepo.NewPostgresRepository(db)
	wallets := walletRepo.NewPostgresRepository(db)
	packages := stakingRepo.NewPostgresRepository(db)

	// Services
	userSvc := userService.NewUserService(users, signups, trees, tokens, m, userService.Options{
		ReferralGroups:     cfg.Signup.ReferralGroups,
		ReferralCodeLength: cfg.Signup.ReferralCodeLength,
		MaxAttempts:        cfg.Signup.MaxAttempts,
		BcryptCost:         cfg.Auth.BcryptCost,
	})
	treeSvc := treeService.NewTreeService(trees, cacheService,
		treeModels.ReferralKind(cfg.Signup.ReferralGroups), treeModels.SponsorKind())
	homeSvc := homeService.NewHomeService(homes)
	walletSvc := walletService.NewWalletService(wallets, sealer, walletService.TOTPVerifier{}, cacheService, m,
		walletService.Options{
			DepositTimeout: cfg.Wallet.DepositTimeout,
			OTPReplayTTL:   cfg.Wallet.OTPReplayTTL,
		})
	stakingSvc := stakingService.NewStakingService(packages, cacheService, m)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router, err := newRouter(cfg, m)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to configure router")
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	limiter.StartCleanup(ctx, time.Minute)

	requireAuth := middleware.RequireAuth(tokens)
	requireAdmin := middleware.RequireAdmin()

	api := router.Group("/api")
	userHTTP.NewUserHandler(userSvc).RegisterRoutes(api, limiter.Handler())
	homeHTTP.NewHomeHandler(homeSvc).RegisterRoutes(api, requireAuth)
	treeHTTP.NewTreeHandler(treeSvc).RegisterRoutes(api, requireAuth)
	walletHTTP.NewWalletHandler(walletSvc).RegisterRoutes(api, requireAuth)
	stakingHandler := stakingHTTP.NewStakingHandler(stakingSvc, stakingSvc)
	stakingHandler.RegisterRoutes(api, requireAuth)
	stakingHandler.RegisterAdminRoutes(api, requireAuth, requireAdmin)

	setupOpsRoutes(router, cfg, m, map[string]healthChecker{
		"postgres": postgresClient,
		"redis":    redisClient,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited")
}

// newRouter builds the engine with the global middleware chain. Forwarded
// headers are honoured only from cfg.Server.TrustedProxies.
func newRouter(cfg *config.Config, m *metrics.Metrics) (*gin.Engine, error) {
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	router.Use(middleware.RequestID())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics(m))
	router.Use(middleware.Errors())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.Origin}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization", "Accept", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"Location", "X-Request-ID"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	return router, nil
}

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// pingAll returns the name and error of the first failing dependency.
func pingAll(ctx context.Context, deps map[string]healthChecker) (string, error) {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := deps[name].HealthCheck(ctx); err != nil {
			return name, err
		}
	}
	return "", nil
}

func setupOpsRoutes(router *gin.Engine, cfg *config.Config, m *metrics.Metrics, deps map[string]healthChecker) {
	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if name, err := pingAll(ctx, deps); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"error":   name + " unavailable",
				"details": err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   cfg.ServiceName,
		})
	})

	router.GET("/live", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if name, err := pingAll(ctx, deps); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unready",
				"error":   name + " unavailable",
				"details": err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "ready",
			"timestamp": time.Now().UTC(),
			"service":   cfg.ServiceName,
		})
	})

	router.GET("/metrics", gin.WrapH(m.Handler()))

	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
