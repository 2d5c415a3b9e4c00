// Package main runs a demo WebSocket client that adds a few locations and
// prints the route updates the server pushes back.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type routeUpdate struct {
	Version int64 `json:"version"`
	Route   struct {
		Routes []struct {
			Visits []json.RawMessage `json:"visits"`
		} `json:"routes"`
		Distance string `json:"distance"`
	} `json:"route"`
}

var stops = []map[string]any{
	{"lat": 50.8503, "lng": 4.3517, "description": "Brussels"},
	{"lat": 51.2194, "lng": 4.4025, "description": "Antwerp"},
	{"lat": 51.0543, "lng": 3.7174, "description": "Ghent"},
	{"lat": 50.6326, "lng": 5.5797, "description": "Liège"},
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/route/ws"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsMessage
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			if m.Type != "route" {
				log.Printf("WS <- %s", m.Type)
				continue
			}
			var upd routeUpdate
			if err := json.Unmarshal(m.Payload, &upd); err != nil {
				log.Printf("decode: %v", err)
				continue
			}
			visits := 0
			for _, r := range upd.Route.Routes {
				visits += len(r.Visits)
			}
			log.Printf("WS <- route v%d vehicles=%d visits=%d distance=%s", upd.Version, len(upd.Route.Routes), visits, upd.Route.Distance)
		}
	}()

	for _, s := range stops {
		body, _ := json.Marshal(s)
		resp, err := http.Post(base+"/v1/locations", "application/json", bytes.NewReader(body))
		if err != nil {
			log.Fatal(err)
		}
		_ = resp.Body.Close()
		log.Printf("POST /v1/locations %s -> %d", s["description"], resp.StatusCode)
		time.Sleep(300 * time.Millisecond)
	}

	// Wait briefly to receive a few improvements
	select {
	case <-time.After(3 * time.Second):
	case <-done:
	}
}
