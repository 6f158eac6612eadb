package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go-hris-leave/internal/config"
	"go-hris-leave/internal/events"
	"go-hris-leave/internal/leave"
	"go-hris-leave/internal/messaging/kafka/consumer"
	"go-hris-leave/internal/shared/txmanager"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// RunConsumer provisions leave balances for employees published on the
// employee lifecycle topic until SIGINT or SIGTERM.
func RunConsumer(cfg config.Config) error {
	logger := zap.L().Named("app.consumer")

	if cfg.KafkaBroker == "" {
		return fmt.Errorf("KAFKA_BROKER is required")
	}

	gormDB, rdb, err := connectStores(cfg)
	if err != nil {
		return err
	}
	defer closeStores(gormDB, rdb, logger)

	tx := txmanager.New(gormDB,
		txmanager.WithLockTimeout(cfg.Leave.TxLockTimeout),
		txmanager.WithLogger(logger),
	)
	provisioner := leave.NewProvisioner(
		tx,
		leave.NewRepository(gormDB),
		leave.NewRedisBalanceCache(rdb, cfg.Leave.BalanceCacheTTL, logger),
		logger,
	)

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        []string{cfg.KafkaBroker},
		Topic:          events.EmployeeCreatedTopic,
		GroupID:        cfg.KafkaConsumerGroup,
		CommitInterval: 0,
		StartOffset:    kafkago.FirstOffset,
	})
	defer reader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go consumer.ConsumeEmployeeLifecycle(ctx, reader, provisioner, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("consumer shutting down")
	cancel()

	return nil
}
