package webhooks

import (
	"bytes"
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"liveroute/internal/metrics"
)

type Worker struct {
	Queue       *Queue
	URL         string
	Secret      string
	HTTP        *http.Client
	Stop        chan struct{}
	MaxAttempts int
}

func NewWorker(q *Queue, url, secret string, maxAttempts int) *Worker {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Worker{
		Queue:       q,
		URL:         url,
		Secret:      secret,
		HTTP:        &http.Client{Timeout: 5 * time.Second},
		Stop:        make(chan struct{}),
		MaxAttempts: maxAttempts,
	}
}

func (w *Worker) Start() {
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-w.Stop:
				return
			case <-ticker.C:
				w.processOnce()
			}
		}
	}()
}

func (w *Worker) processOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, it := range w.Queue.Due(time.Now(), 50) {
		code, err := w.deliver(ctx, it)
		success := err == nil && code >= 200 && code < 300
		switch {
		case success:
			w.Queue.Done(it.ID)
		case it.Attempts+1 >= w.MaxAttempts:
			w.Queue.Done(it.ID)
			metrics.WebhookDeliveries.WithLabelValues("dead").Inc()
			log.Printf("webhooks: giving up event=%s attempts=%d code=%d err=%v", it.ID, it.Attempts+1, code, err)
		default:
			w.Queue.Retry(it.ID, time.Now().Add(nextBackoff(it.Attempts)))
		}
	}
}

func (w *Worker) deliver(ctx context.Context, it Delivery) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(it.Payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", it.EventType)
	req.Header.Set("X-Event-Id", it.ID)
	if w.Secret != "" {
		req.Header.Set("X-Signature", SignHMAC(w.Secret, it.Payload))
	}
	start := time.Now()
	resp, err := w.HTTP.Do(req)
	latency := float64(time.Since(start).Milliseconds())
	if err != nil {
		metrics.WebhookDeliveries.WithLabelValues("error").Inc()
		metrics.WebhookLatency.WithLabelValues("error").Observe(latency)
		return 0, err
	}
	_ = resp.Body.Close()
	status := strconv.Itoa(resp.StatusCode)
	metrics.WebhookDeliveries.WithLabelValues(status).Inc()
	metrics.WebhookLatency.WithLabelValues(status).Observe(latency)
	return resp.StatusCode, nil
}

func nextBackoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > 10 {
		attempts = 10
	}
	base := time.Second * time.Duration(1<<attempts)
	if base > time.Hour {
		base = time.Hour
	}
	return base
}
