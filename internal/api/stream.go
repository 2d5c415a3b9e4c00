package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const heartbeatEvery = 15 * time.Second

// RouteStreamHandler handles GET /v1/route/stream as server-sent events. The
// current route is sent first, then every change.
func (s *Server) RouteStreamHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.Broker.Subscribe(TopicRoute)
	defer s.Broker.Unsubscribe(TopicRoute, ch)

	writeSSE(w, EventRouteChange, s.Routes.Latest())
	flusher.Flush()

	ticker := time.NewTicker(heartbeatEvery)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			writeSSE(w, evt.Type, evt.Data)
			flusher.Flush()
		case t := <-ticker.C:
			writeSSE(w, "heartbeat", map[string]string{"ts": t.UTC().Format(time.RFC3339)})
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, typ string, data any) {
	b, _ := json.Marshal(data)
	fmt.Fprintf(w, "event: %s\n", typ)
	fmt.Fprintf(w, "data: %s\n\n", b)
}

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

type wsMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// RouteWSHandler handles /v1/route/ws. The server pushes {"type":"route"}
// messages and answers {"type":"ping"} with {"type":"pong"}.
func (s *Server) RouteWSHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	ch := s.Broker.Subscribe(TopicRoute)
	defer s.Broker.Unsubscribe(TopicRoute, ch)

	// gorilla connections allow one concurrent writer
	out := make(chan wsMessage, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		// unblocks the read loop when the peer stops accepting writes
		defer func() { _ = conn.Close() }()
		ticker := time.NewTicker(heartbeatEvery)
		defer ticker.Stop()
		for {
			var msg wsMessage
			select {
			case m, ok := <-out:
				if !ok {
					return
				}
				msg = m
			case evt, ok := <-ch:
				if !ok {
					return
				}
				msg = wsMessage{Type: "route", Payload: evt.Data}
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					return
				}
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}()
	out <- wsMessage{Type: "route", Payload: s.Routes.Latest()}

	conn.SetReadLimit(1 << 16)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(60 * time.Second)) })
	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		if msg.Type == "ping" {
			select {
			case out <- wsMessage{Type: "pong"}:
			case <-done:
			}
		}
	}
	close(out)
	<-done
}
