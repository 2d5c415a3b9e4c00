package api

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisBroker implements EventBroker over Redis Pub/Sub so that every
// instance behind a load balancer streams the same route updates.
type RedisBroker struct {
	rdb *redis.Client

	mu  sync.Mutex
	pss map[chan Event]*redis.PubSub
}

func NewRedisBroker(rdb *redis.Client) *RedisBroker {
	return &RedisBroker{rdb: rdb, pss: map[chan Event]*redis.PubSub{}}
}

func (b *RedisBroker) Subscribe(topic string) chan Event {
	ch := make(chan Event, 16)
	ctx := context.Background()
	ps := b.rdb.Subscribe(ctx, b.chanName(topic))
	// wait for the subscription confirmation so no publish is missed
	if _, err := ps.Receive(ctx); err != nil {
		log.Printf("broker: redis subscribe topic=%s err=%v", topic, err)
	}
	b.mu.Lock()
	b.pss[ch] = ps
	b.mu.Unlock()
	go func() {
		defer close(ch)
		for msg := range ps.Channel() {
			var evt Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				continue
			}
			select {
			case ch <- evt:
			default:
			}
		}
	}()
	return ch
}

// Unsubscribe closes the Redis subscription; the forwarding goroutine then
// closes ch.
func (b *RedisBroker) Unsubscribe(_ string, ch chan Event) {
	b.mu.Lock()
	ps := b.pss[ch]
	delete(b.pss, ch)
	b.mu.Unlock()
	if ps != nil {
		_ = ps.Close()
	}
}

func (b *RedisBroker) Publish(topic string, evt Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	data, err := json.Marshal(evt)
	if err != nil {
		log.Printf("broker: encode event type=%s err=%v", evt.Type, err)
		return
	}
	if err := b.rdb.Publish(ctx, b.chanName(topic), data).Err(); err != nil {
		log.Printf("broker: redis publish topic=%s err=%v", topic, err)
	}
}

func (b *RedisBroker) chanName(topic string) string { return "liveroute:" + topic }
