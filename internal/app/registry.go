package app

import (
	"go-hris-leave/internal/bootstrap"
	"go-hris-leave/internal/config"
	"go-hris-leave/internal/leave"
	"go-hris-leave/internal/messaging/kafka"
	"go-hris-leave/internal/middleware"
	"go-hris-leave/internal/rbac"
	"go-hris-leave/internal/rbac/infra"
	"go-hris-leave/internal/shared/txmanager"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

func registerModules(
	router *gin.Engine,
	cfg config.Config,
	gormDB *gorm.DB,
	rdb *redis.Client,
	auditLogger bootstrap.AuditLogger,
	logger *zap.Logger,
) error {
	floor, err := cfg.Leave.Floor()
	if err != nil {
		return err
	}

	// --- Repositories ---
	rbacRepo := rbac.NewRepository(gormDB)
	leaveRepo := leave.NewRepository(gormDB)
	outboxRepo := kafka.NewOutboxRepository(gormDB)

	// --- RBAC Core ---
	enforcer, err := infra.NewEnforcer(cfg.RBACModelPath)
	if err != nil {
		return err
	}
	rbacService := rbac.NewService(rbacRepo, enforcer, logger)

	// --- Services ---
	tx := txmanager.New(gormDB,
		txmanager.WithLockTimeout(cfg.Leave.TxLockTimeout),
		txmanager.WithLogger(logger),
	)
	balanceCache := leave.NewRedisBalanceCache(rdb, cfg.Leave.BalanceCacheTTL, logger)
	leaveService := leave.NewService(tx, leaveRepo, outboxRepo,
		leave.WithLogger(logger),
		leave.WithBalanceFloor(floor),
		leave.WithBalanceCache(balanceCache),
		leave.WithAuditLogger(auditLogger),
	)

	// --- Handlers ---
	leaveHandler := leave.NewHandler(leaveService, rbacService, logger)

	// --- Routes Registration ---
	api := router.Group("/api/v1")
	{
		leave.RegisterRoutes(api, leaveHandler, rbacService,
			middleware.AuthMiddleware(cfg.JWTSecret),
			middleware.ContextLogger(logger),
			middleware.RateLimitByUser(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
		)
	}

	return nil
}
