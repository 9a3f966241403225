package publisher

import (
	"context"
	"log"
	"time"

	"github.com/Eymeric05/E-Perfume-sub000/internal/domain"
	"github.com/Eymeric05/E-Perfume-sub000/internal/order"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const TopicOrderPaid = "order-paid"

// kafkaWriter is the subset of kafka.Writer the poller needs; tests
// substitute an in-memory recorder.
type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// outboxRepository is the slice of the order repository the poller
// touches.
type outboxRepository interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*order.OutboxEvent, error)
	MarkEventProcessed(ctx context.Context, id int64) error
	GetStuckSessions(ctx context.Context) ([]*domain.PaymentSession, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID, receipt domain.PaymentReceipt) (bool, error)
	UpdateSessionState(ctx context.Context, sessionID uuid.UUID, state domain.PaymentState) error
}

// OutboxPoller drains the transactional outbox into Kafka and runs the
// recovery pass for sessions whose capture succeeded but whose mark-paid
// call never landed.
type OutboxPoller struct {
	eventTick    time.Duration
	recoveryTick time.Duration
	repo         outboxRepository
	writer       kafkaWriter
}

func NewOutboxPoller(repo outboxRepository, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  TopicOrderPaid,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &OutboxPoller{
		eventTick:    time.Second,
		recoveryTick: 30 * time.Second,
		repo:         repo,
		writer:       w,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	recoveryTicker := time.NewTicker(p.recoveryTick)
	defer eventTicker.Stop()
	defer recoveryTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-recoveryTicker.C:
			p.recoverStuckSessions(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, 100)
	if err != nil {
		log.Printf("failed to fetch outbox events: %v", err)
		return
	}

	for _, event := range events {
		if errPublish := p.publishToKafka(ctx, event); errPublish != nil {
			log.Printf("failed to publish event id = %v with error %v", event.ID, errPublish)
			continue
		}

		if errMark := p.repo.MarkEventProcessed(ctx, event.ID); errMark != nil {
			log.Printf("failed to mark event as processed id = %v with error %v", event.ID, errMark)
			continue
		}
	}
}

// recoverStuckSessions finishes orders whose provider capture receipt
// is on file but whose mark-paid call was lost. MarkPaid is idempotent,
// so racing with a late client retry is harmless.
func (p *OutboxPoller) recoverStuckSessions(ctx context.Context) {
	sessions, err := p.repo.GetStuckSessions(ctx)
	if err != nil {
		log.Printf("failed to get stuck sessions: %v", err)
		return
	}
	for _, session := range sessions {
		log.Printf("recovering stuck payment session: %v", session.ID)

		if session.Receipt == nil {
			continue
		}

		changed, err := p.repo.MarkPaid(ctx, session.OrderID, *session.Receipt)
		if err != nil {
			log.Printf("failed to mark order paid in recovery: %v", err)
			continue
		}

		if errState := p.repo.UpdateSessionState(ctx, session.ID, domain.PaymentStatePaid); errState != nil {
			log.Printf("failed to finalize recovered session %v: %v", session.ID, errState)
		}

		if changed {
			log.Printf("order recovered as paid: %v", session.OrderID)
		}
	}
}

func (p *OutboxPoller) publishToKafka(ctx context.Context, event *order.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // order id, keeps per-order ordering
		Value: event.Payload,             // already JSON from the outbox row
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}

	return p.writer.WriteMessages(ctx, msg)
}
