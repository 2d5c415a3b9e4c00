package webhooks

import (
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"

	"liveroute/internal/metrics"
)

type Publisher struct {
	Queue *Queue
}

func NewPublisher(q *Queue) *Publisher {
	return &Publisher{Queue: q}
}

// Emit enqueues an event for delivery. An empty id gets a fresh one.
func (p *Publisher) Emit(id, eventType string, data any) {
	if id == "" {
		id = uuid.NewString()
	}
	payload := map[string]any{
		"id":   id,
		"type": eventType,
		"ts":   time.Now().UTC().Format(time.RFC3339),
		"data": data,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("webhooks: encode event=%s err=%v", id, err)
		return
	}
	if !p.Queue.Enqueue(Delivery{ID: id, EventType: eventType, Payload: body}) {
		metrics.WebhookDeliveries.WithLabelValues("dropped").Inc()
		log.Printf("webhooks: queue full, dropped event=%s type=%s", id, eventType)
	}
}
