package monitor_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"voicepi/internal/monitor"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func wsTestServer(t *testing.T, hub *monitor.Hub) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := monitor.UpgradeConnection(w, r)
		if err != nil {
			return
		}
		hub.Serve(r.Context(), conn)
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func waitClients(t *testing.T, hub *monitor.Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d clients, have %d", want, hub.ClientCount())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestHubStreamsEventsToClient(t *testing.T) {
	hub := monitor.NewHub(discardLogger())
	server := wsTestServer(t, hub)
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server), nil)
	if err != nil {
		t.Fatalf("dialing: %v", err)
	}
	defer conn.Close()
	waitClients(t, hub, 1)

	hub.Publish(monitor.Event{Kind: "wake", State: "record", Score: 0.9, At: 1234})

	var got monitor.Event
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("reading event: %v", err)
	}
	if got.Kind != "wake" || got.Score != 0.9 || got.At != 1234 {
		t.Errorf("event: got %+v", got)
	}
}

func TestHubRemovesDisconnectedClient(t *testing.T) {
	hub := monitor.NewHub(discardLogger())
	server := wsTestServer(t, hub)
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server), nil)
	if err != nil {
		t.Fatalf("dialing: %v", err)
	}
	waitClients(t, hub, 1)

	conn.Close()
	waitClients(t, hub, 0)

	// Publishing without clients must not panic or block.
	hub.Publish(monitor.Event{Kind: "state", State: "listen"})
}

func TestUpgradeRejectsForeignOrigin(t *testing.T) {
	hub := monitor.NewHub(discardLogger())
	server := wsTestServer(t, hub)
	defer server.Close()

	header := http.Header{"Origin": []string{"http://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(server), header)
	if err == nil {
		t.Fatal("dial with foreign origin: got nil error, want rejection")
	}
	if resp != nil && resp.StatusCode != http.StatusForbidden {
		t.Errorf("status: got %d, want 403", resp.StatusCode)
	}
}

func TestUpgradeAllowsLocalhostOrigin(t *testing.T) {
	hub := monitor.NewHub(discardLogger())
	server := wsTestServer(t, hub)
	defer server.Close()

	header := http.Header{"Origin": []string{"http://localhost:3000"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server), header)
	if err != nil {
		t.Fatalf("dial with localhost origin: %v", err)
	}
	conn.Close()
}
