package producer

import (
	"context"
	"errors"
	"testing"

	"go-hris-leave/internal/messaging/kafka"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeOutboxRepo struct {
	pending []kafka.OutboxEvent
	listErr error
	sent    []string
	failed  map[string]string
}

func (f *fakeOutboxRepo) WithTx(tx *gorm.DB) kafka.OutboxRepository { return f }
func (f *fakeOutboxRepo) Create(ctx context.Context, event kafka.OutboxEvent) error {
	f.pending = append(f.pending, event)
	return nil
}
func (f *fakeOutboxRepo) ListPending(ctx context.Context, limit int) ([]kafka.OutboxEvent, error) {
	return f.pending, f.listErr
}
func (f *fakeOutboxRepo) MarkSent(ctx context.Context, id string) error {
	f.sent = append(f.sent, id)
	return nil
}
func (f *fakeOutboxRepo) MarkFailed(ctx context.Context, id string, reason string) error {
	if f.failed == nil {
		f.failed = map[string]string{}
	}
	f.failed[id] = reason
	return nil
}

type fakeWriter struct {
	messages []kafkago.Message
	failOn   string
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafkago.Message) error {
	for _, m := range msgs {
		if string(m.Key) == w.failOn {
			return errors.New("broker unavailable")
		}
		w.messages = append(w.messages, m)
	}
	return nil
}

func TestProcessPendingEvents(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes and marks each event", func(t *testing.T) {
		repo := &fakeOutboxRepo{pending: []kafka.OutboxEvent{
			{ID: "evt-1", AggregateID: "leave-1", EventType: "leave.request.created", Topic: "hr.leave.lifecycle.v1", Payload: []byte(`{}`)},
			{ID: "evt-2", AggregateID: "leave-2", EventType: "leave.request.approved", Topic: "hr.leave.lifecycle.v1", Payload: []byte(`{}`)},
		}}
		writer := &fakeWriter{failOn: "leave-2"}

		err := processPendingEvents(ctx, repo, writer, zap.NewNop())

		assert.NoError(t, err)
		assert.Equal(t, []string{"evt-1"}, repo.sent)
		assert.Contains(t, repo.failed["evt-2"], "broker unavailable")
		assert.Len(t, writer.messages, 1)
		assert.Equal(t, "hr.leave.lifecycle.v1", writer.messages[0].Topic)
		assert.Equal(t, []byte("leave-1"), writer.messages[0].Key)
	})

	t.Run("list error is returned", func(t *testing.T) {
		repo := &fakeOutboxRepo{listErr: errors.New("db down")}

		err := processPendingEvents(ctx, repo, &fakeWriter{}, zap.NewNop())

		assert.EqualError(t, err, "db down")
	})
}

func TestProcessOutboxEvents_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		ProcessOutboxEvents(ctx, &fakeOutboxRepo{}, &fakeWriter{}, zap.NewNop(), 0)
		close(done)
	}()
	<-done
}
