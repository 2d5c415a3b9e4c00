package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerProcessOnce_SuccessAndSignature(t *testing.T) {
	var gotSig, gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Signature")
		gotType = r.Header.Get("X-Event-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(200)
	}))
	defer srv.Close()

	q := NewQueue(10)
	NewPublisher(q).Emit("evt1", "route.changed", map[string]any{"version": 1})
	w := NewWorker(q, srv.URL, "secret", 3)
	w.HTTP = srv.Client()

	w.processOnce()

	assert.Equal(t, "route.changed", gotType)
	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write(gotBody)
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), gotSig)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	assert.Equal(t, "evt1", payload["id"])
	assert.Equal(t, "route.changed", payload["type"])
	assert.Zero(t, q.Len(), "delivered item should leave the queue")
}

func TestWorkerProcessOnce_NoSignatureWithoutSecret(t *testing.T) {
	var gotSig atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig.Store(r.Header.Get("X-Signature"))
		w.WriteHeader(204)
	}))
	defer srv.Close()

	q := NewQueue(10)
	NewPublisher(q).Emit("", "route.changed", nil)
	w := NewWorker(q, srv.URL, "", 3)
	w.HTTP = srv.Client()
	w.processOnce()

	assert.Equal(t, "", gotSig.Load())
	assert.Zero(t, q.Len())
}

func TestWorkerProcessOnce_RetryThenGiveUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(500)
	}))
	defer srv.Close()

	q := NewQueue(10)
	NewPublisher(q).Emit("", "route.changed", nil)
	w := NewWorker(q, srv.URL, "", 2)
	w.HTTP = srv.Client()

	w.processOnce()
	require.Equal(t, 1, q.Len(), "failed delivery should be retried")
	// not due yet
	w.processOnce()
	require.EqualValues(t, 1, calls.Load(), "retry ran before backoff")

	for _, d := range q.Due(time.Now().Add(time.Hour), 10) {
		q.items[d.ID].NextAttemptAt = time.Time{}
	}
	w.processOnce()
	assert.Zero(t, q.Len(), "expected give up after max attempts")
	assert.EqualValues(t, 2, calls.Load())
}

func TestWorkerDeliversInEnqueueOrder(t *testing.T) {
	var mu sync.Mutex
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		got = append(got, r.Header.Get("X-Event-Id"))
		mu.Unlock()
		w.WriteHeader(200)
	}))
	defer srv.Close()

	q := NewQueue(100)
	p := NewPublisher(q)
	want := []string{"v1", "v2", "v3", "v4", "v5", "v6", "v7", "v8"}
	for _, id := range want {
		p.Emit(id, "route.changed", nil)
	}
	w := NewWorker(q, srv.URL, "", 3)
	w.HTTP = srv.Client()
	w.processOnce()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, want, got)
}

func TestQueueDueOrderAndLimit(t *testing.T) {
	q := NewQueue(10)
	now := time.Now()
	for _, id := range []string{"c", "a", "d", "b"} {
		require.True(t, q.Enqueue(Delivery{ID: id}))
	}
	q.Retry("d", now.Add(time.Minute))

	ids := func(ds []Delivery) []string {
		out := []string{}
		for _, d := range ds {
			out = append(out, d.ID)
		}
		return out
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids(q.Due(now, 10)))
	assert.Equal(t, []string{"c", "a"}, ids(q.Due(now, 2)))
	assert.Equal(t, []string{"c", "a", "d", "b"}, ids(q.Due(now.Add(time.Hour), 10)))
}

func TestQueueLimit(t *testing.T) {
	q := NewQueue(1)
	assert.True(t, q.Enqueue(Delivery{ID: "a"}), "first enqueue should fit")
	assert.False(t, q.Enqueue(Delivery{ID: "b"}), "second enqueue should be rejected")
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, time.Second, nextBackoff(0))
	assert.Equal(t, 8*time.Second, nextBackoff(3))
	assert.Equal(t, 1024*time.Second, nextBackoff(50), "backoff should cap at 2^10 seconds")
}
