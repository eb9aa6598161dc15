package worker

import (
	"context"
	"encoding/json"

	"github.com/Abdelhakim-Baalla/El-Marketa/internal/broker"
	"github.com/Abdelhakim-Baalla/El-Marketa/internal/models"
	"github.com/Abdelhakim-Baalla/El-Marketa/internal/notifier"
	"github.com/Abdelhakim-Baalla/El-Marketa/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// NotificationWorker consumes the notification topic and fans messages out
// to the sessions connected to this instance. Every instance runs one, so
// a user's sessions receive notifications no matter which instance
// produced them.
type NotificationWorker struct {
	consumer   *broker.Consumer
	dispatcher *notifier.Dispatcher
	logger     *zap.Logger
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(consumer *broker.Consumer, dispatcher *notifier.Dispatcher) *NotificationWorker {
	return &NotificationWorker{
		consumer:   consumer,
		dispatcher: dispatcher,
		logger:     util.GetLogger(),
	}
}

// Start consumes until the context is cancelled.
func (w *NotificationWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting notification worker")

	return w.consumer.StartConsuming(ctx, func(ctx context.Context, msg kafka.Message) error {
		var n models.Notification
		if err := json.Unmarshal(msg.Value, &n); err != nil {
			// Poison messages are logged and committed, not retried.
			w.logger.Error("Failed to unmarshal notification",
				zap.ByteString("value", msg.Value),
				zap.Error(err))
			return nil
		}

		w.dispatcher.Deliver(n)
		return nil
	})
}

// Stop closes the underlying consumer.
func (w *NotificationWorker) Stop() error {
	w.logger.Info("Stopping notification worker")
	return w.consumer.Close()
}
