package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"pixelproof/internal/config"
	"pixelproof/internal/database"
	"pixelproof/internal/domain/like"
	"pixelproof/internal/domain/notification"
	"pixelproof/internal/domain/post"
	"pixelproof/internal/domain/registry"
	"pixelproof/internal/domain/user"
	"pixelproof/internal/ledger"
	jwtsvc "pixelproof/internal/pkg/jwt"
	"pixelproof/internal/reconciler"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("database migration failed", zap.Error(err))
	}

	userRepo := user.NewRepository(db)
	postRepo := post.NewRepository(db)
	registryRepo := registry.NewRepository(db)
	notificationRepo := notification.NewRepository(db)

	ledgerCfg := ledger.Config{
		Host:        cfg.FireFlyURL,
		Namespace:   cfg.FireFlyNamespace,
		ImageAPI:    cfg.ImageAPI,
		LikeAPI:     cfg.LikeAPI,
		IPFSGateway: cfg.IPFSGateway,
		Timeout:     cfg.LedgerTimeout,
	}
	gateway := ledger.NewClient(ledgerCfg, log)
	subscriber := ledger.NewSubscriber(ledgerCfg, "pixelproof-events", log)

	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)
	keys := user.NewNodeKeyProvider(cfg.NodeRPCURL, cfg.AccountPassword)

	hub := notification.NewHub()
	notificationService := notification.NewService(notificationRepo, hub, log)
	notificationHandler := notification.NewHandler(notificationService, hub, j, log)

	userService := user.NewService(userRepo, keys, j)
	userHandler := user.NewHandler(userService)

	postService := post.NewService(postRepo, gateway, notificationService,
		cfg.SimilarityThreshold, cfg.OrgName, log)
	postHandler := post.NewHandler(postService, log)

	likeService := like.NewService(userRepo, postRepo, gateway, log)
	likeHandler := like.NewHandler(likeService, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec := reconciler.New(postRepo, registryRepo, notificationService, log)
	go subscriber.Run(ctx)
	go rec.Run(ctx, subscriber.Events())

	if cfg.AppEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	r.GET("/ws/notifications", notificationHandler.ServeWS)

	v1 := r.Group("/api/v1")
	{
		// public
		user.RegisterRoutes(v1, userHandler)

		protected := v1.Group("/")
		protected.Use(authMiddleware(j))
		{
			user.RegisterProtectedRoutes(protected, userHandler)
			post.RegisterProtectedRoutes(protected, postHandler)
			like.RegisterProtectedRoutes(protected, likeHandler)
			notification.RegisterRoutes(protected, notificationHandler)
		}
	}

	log.Info("server starting", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	var zcfg zap.Config
	if cfg.AppEnv == "dev" {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

func authMiddleware(jwt *jwtsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Missing or invalid Authorization header",
				},
			})
			return
		}

		tokenStr := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		claims, err := jwt.ValidateToken(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Invalid token",
				},
			})
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("username", claims.Username)
		c.Set("signing_key", claims.SigningKey)

		c.Next()
	}
}
