package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-dispatch/internal/models"
	"github.com/noah-isme/sma-dispatch/pkg/jobs"
)

// Notifier is told about committed automation results. Implementations must
// not block the calling stage on delivery.
type Notifier interface {
	NotifyAssignment(ctx context.Context, assignment *models.Assignment) error
	NotifyQuoteGenerated(ctx context.Context, quote *models.Quote) error
	NotifyPaymentProcessed(ctx context.Context, payment *models.Payment) error
}

// NotificationKind names the event being announced.
type NotificationKind string

const (
	NotificationAssignmentProposed NotificationKind = "ASSIGNMENT_PROPOSED"
	NotificationQuoteGenerated     NotificationKind = "QUOTE_GENERATED"
	NotificationPaymentProcessed   NotificationKind = "PAYMENT_PROCESSED"
)

// Notification is the payload handed to a delivery sink.
type Notification struct {
	Kind        NotificationKind `json:"kind"`
	JobID       string           `json:"job_id"`
	ReferenceID string           `json:"reference_id"`
	WorkerID    string           `json:"worker_id,omitempty"`
	Amount      decimal.Decimal  `json:"amount"`
	OccurredAt  time.Time        `json:"occurred_at"`
}

// NotificationSink delivers notifications through a concrete channel.
type NotificationSink interface {
	Deliver(ctx context.Context, n Notification) error
}

// LogSink records notifications in the service log. It stands in for a real
// delivery channel.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink constructs a log sink.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Deliver implements NotificationSink.
func (s *LogSink) Deliver(ctx context.Context, n Notification) error {
	s.logger.Info("notification",
		zap.String("kind", string(n.Kind)),
		zap.String("job_id", n.JobID),
		zap.String("reference_id", n.ReferenceID),
		zap.String("worker_id", n.WorkerID),
		zap.String("amount", n.Amount.String()),
	)
	return nil
}

// QueuedNotifier hands notifications to a background queue so a slow sink
// never delays the stage that produced them.
type QueuedNotifier struct {
	queue *jobs.Queue
	now   func() time.Time
}

// NewQueuedNotifier registers the delivery handler on queue. Call it before
// the queue is started.
func NewQueuedNotifier(queue *jobs.Queue, sink NotificationSink) *QueuedNotifier {
	deliver := func(ctx context.Context, job jobs.Job) error {
		n, ok := job.Payload.(Notification)
		if !ok {
			return jobs.Permanent(fmt.Errorf("unexpected notification payload %T", job.Payload))
		}
		return sink.Deliver(ctx, n)
	}
	for _, kind := range []NotificationKind{NotificationAssignmentProposed, NotificationQuoteGenerated, NotificationPaymentProcessed} {
		queue.Handle(string(kind), deliver)
	}
	return &QueuedNotifier{queue: queue, now: time.Now}
}

// NotifyAssignment implements Notifier.
func (n *QueuedNotifier) NotifyAssignment(ctx context.Context, assignment *models.Assignment) error {
	return n.enqueue(Notification{
		Kind:        NotificationAssignmentProposed,
		JobID:       assignment.JobID,
		ReferenceID: assignment.ID,
		WorkerID:    assignment.WorkerID,
		Amount:      assignment.TransportFee,
	})
}

// NotifyQuoteGenerated implements Notifier.
func (n *QueuedNotifier) NotifyQuoteGenerated(ctx context.Context, quote *models.Quote) error {
	return n.enqueue(Notification{
		Kind:        NotificationQuoteGenerated,
		JobID:       quote.JobID,
		ReferenceID: quote.ID,
		Amount:      quote.FinalTotal,
	})
}

// NotifyPaymentProcessed implements Notifier.
func (n *QueuedNotifier) NotifyPaymentProcessed(ctx context.Context, payment *models.Payment) error {
	return n.enqueue(Notification{
		Kind:        NotificationPaymentProcessed,
		JobID:       payment.JobID,
		ReferenceID: payment.ID,
		WorkerID:    payment.WorkerID,
		Amount:      payment.NetAmount,
	})
}

func (n *QueuedNotifier) enqueue(notification Notification) error {
	notification.OccurredAt = n.now().UTC()
	return n.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    string(notification.Kind),
		Payload: notification,
	})
}

type noopNotifier struct{}

func (noopNotifier) NotifyAssignment(context.Context, *models.Assignment) error    { return nil }
func (noopNotifier) NotifyQuoteGenerated(context.Context, *models.Quote) error     { return nil }
func (noopNotifier) NotifyPaymentProcessed(context.Context, *models.Payment) error { return nil }

// notifyAfterCommit reports a notifier failure without failing the committed stage.
func notifyAfterCommit(logger *zap.Logger, what, id string, err error) {
	if err != nil {
		logger.Warn("notification not sent", zap.String("event", what), zap.String("id", id), zap.Error(err))
	}
}
