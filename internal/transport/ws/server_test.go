package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestServer_SnapshotAndBroadcast(t *testing.T) {
	var okFlag atomic.Bool
	okFlag.Store(true)

	state := func() StateMsg {
		return StateMsg{
			Type:       "DEFS_STATE",
			At:         time.Now().UTC().Format(time.RFC3339),
			Catalogs:   map[string]CatalogInfo{"actions": {Digest: "deadbeef", Count: 8}},
			Validation: ValidationInfo{OK: okFlag.Load()},
		}
	}
	srv := NewServer(nil, state)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	read := func() StateMsg {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var msg StateMsg
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return msg
	}

	snap := read()
	if snap.Type != "DEFS_STATE" || !snap.Validation.OK {
		t.Fatalf("snapshot=%+v", snap)
	}
	if snap.Catalogs["actions"].Count != 8 {
		t.Fatalf("catalogs=%+v", snap.Catalogs)
	}

	okFlag.Store(false)
	srv.Broadcast()

	update := read()
	if update.Validation.OK {
		t.Fatalf("expected pushed update with validation failure, got %+v", update)
	}
}
