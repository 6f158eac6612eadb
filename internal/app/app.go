package app

import (
	"fmt"
	"net/http"

	"go-hris-leave/internal/bootstrap"
	"go-hris-leave/internal/config"
	"go-hris-leave/internal/middleware"
	"go-hris-leave/internal/shared/connection"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// BuildApp connects postgres and redis, installs the global middleware and
// mounts the leave API on router. The returned func releases the
// connections and must be called after the server stops.
func BuildApp(router *gin.Engine, cfg config.Config, auditLogger bootstrap.AuditLogger, logger *zap.Logger) (func(), error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	gormDB, rdb, err := connectStores(cfg)
	if err != nil {
		return nil, err
	}
	cleanup := func() { closeStores(gormDB, rdb, logger) }

	router.Use(
		middleware.RequestID(),
		middleware.Metrics(),
		middleware.RateLimitByIP(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
	)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	if err := registerModules(router, cfg, gormDB, rdb, auditLogger, logger); err != nil {
		cleanup()
		return nil, err
	}

	return cleanup, nil
}

func connectStores(cfg config.Config) (*gorm.DB, *redis.Client, error) {
	gormDB, err := connection.ConnectGORMWithRetry(cfg.DB, cfg.ConnectRetries)
	if err != nil {
		return nil, nil, err
	}

	rdb, err := connection.ConnectRedisWithRetry(cfg.RedisAddr, cfg.ConnectRetries)
	if err != nil {
		if sqlDB, dbErr := gormDB.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return nil, nil, err
	}

	return gormDB, rdb, nil
}

func closeStores(gormDB *gorm.DB, rdb *redis.Client, logger *zap.Logger) {
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Warn("close redis failed", zap.Error(err))
		}
	}
	if gormDB != nil {
		if sqlDB, err := gormDB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				logger.Warn("close database failed", zap.Error(err))
			}
		}
	}
}
