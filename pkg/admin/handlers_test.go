package admin

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestHandleEventsStreamsFlushNotification(t *testing.T) {
	a, eng := newTestAdmin(t)

	server := httptest.NewServer(a.router)
	defer server.Close()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/events"

	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	// Engine isn't wired to this Admin's broadcaster (newTestAdmin builds
	// them independently), so publish directly to exercise the wire format.
	a.broadcaster.OnFlush("1000", 7)
	_ = eng

	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, payload, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Type != "flush" || ev.RunID != "1000" || ev.Entries != 7 {
		t.Fatalf("got %+v, want flush run_id=1000 entries=7", ev)
	}
}
