package events

import (
	"encoding/json"
	"net/http"

	"github.com/r3labs/sse/v2"
)

const (
	StreamHistory  = "history"
	StreamLiveness = "liveness"
)

// Broadcaster fans stored media changes and liveness results out to any
// connected SSE clients
type Broadcaster struct {
	Server *sse.Server
}

func New() *Broadcaster {
	server := sse.New()
	server.AutoReplay = false
	server.CreateStream(StreamHistory)
	server.CreateStream(StreamLiveness)
	return &Broadcaster{Server: server}
}

func (b *Broadcaster) Publish(stream string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	b.Server.Publish(stream, &sse.Event{Data: data})
	return nil
}

func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.Server.ServeHTTP(w, r)
}

func (b *Broadcaster) Close() {
	b.Server.Close()
}

type Liveness struct {
	Live      bool   `json:"live"`
	User      string `json:"user"`
	CheckedAt int64  `json:"checked_at"`
	Error     string `json:"error,omitempty"`
}
