package live

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

func TestHubBroadcast(t *testing.T) {
	log := zerolog.Nop()
	hub := NewHub(&log)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, r.URL.Query().Get("event"))
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?event=ev1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello Message
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatal(err)
	}
	if hello.Type != "connected" {
		t.Fatalf("first message %q", hello.Type)
	}

	hub.Broadcast("other", Message{Type: "checkin", Data: "x"})
	hub.Broadcast("ev1", Message{Type: "checkin", Data: "reg-1"})

	var got Message
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatal(err)
	}
	if got.Type != "checkin" || got.Data != "reg-1" {
		t.Fatalf("unexpected message %+v", got)
	}

	_ = conn.Close()
	deadline := time.Now().Add(5 * time.Second)
	for hub.Subscribers("ev1") != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber not removed after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
