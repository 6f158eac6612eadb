package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go-hris-leave/internal/events"
	"go-hris-leave/internal/leave"
	leaveerrors "go-hris-leave/internal/leave/errors"
	"go-hris-leave/internal/shared/apperror"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageReader is satisfied by *kafkago.Reader.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// ConsumeEmployeeLifecycle opens leave balances for employees announced on
// the employee lifecycle topic. Offsets are committed once the balances
// exist or the message can never succeed; infrastructure failures leave the
// offset uncommitted so the group redelivers after a restart.
func ConsumeEmployeeLifecycle(
	ctx context.Context,
	reader MessageReader,
	provisioner leave.Provisioner,
	logger *zap.Logger,
) {
	log := logger.Named("kafka.consumer.employee_lifecycle")
	log.Info("employee lifecycle consumer started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("employee lifecycle consumer stopped")
				return
			}
			log.Error("fetch employee lifecycle message failed", zap.Error(err))
			continue
		}

		if handleMessage(ctx, msg, provisioner, log) {
			if err := reader.CommitMessages(ctx, msg); err != nil {
				log.Error("commit employee lifecycle message failed", zap.Error(err))
			}
		}
	}
}

// handleMessage reports whether the offset of msg may be committed.
func handleMessage(ctx context.Context, msg kafkago.Message, provisioner leave.Provisioner, log *zap.Logger) bool {
	var event events.EmployeeCreatedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.Error("decode employee lifecycle event failed",
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
		return true
	}

	if event.EventType != events.EventTypeEmployeeCreated {
		log.Debug("skip employee lifecycle event", zap.String("event_type", event.EventType))
		return true
	}

	year := provisionYear(event)
	result, err := provisioner.ProvisionYear(ctx, event.OrganizationID, event.EmployeeID, year)
	if err != nil {
		fields := []zap.Field{
			zap.String("employee_id", event.EmployeeID),
			zap.String("organization_id", event.OrganizationID),
			zap.Int("year", year),
			zap.Error(err),
		}
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.HTTPStatus < http.StatusInternalServerError &&
			!errors.Is(err, leaveerrors.ErrConcurrentUpdate) {
			log.Warn("employee_created event rejected, skipping", fields...)
			return true
		}
		log.Error("provision leave balances from employee_created event failed", fields...)
		return false
	}

	log.Info("leave balances provisioned from employee_created event",
		zap.String("employee_id", event.EmployeeID),
		zap.String("organization_id", event.OrganizationID),
		zap.Int("year", year),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
	)
	return true
}

// provisionYear picks the hire year, falling back to the year the event
// occurred.
func provisionYear(event events.EmployeeCreatedEvent) int {
	if hired, err := time.Parse("2006-01-02", event.HireDate); err == nil {
		return hired.Year()
	}
	if !event.OccurredAt.IsZero() {
		return event.OccurredAt.UTC().Year()
	}
	return time.Now().UTC().Year()
}
