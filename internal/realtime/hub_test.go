package realtime

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luckynumbers/api/internal/models"
)

func testHub() *Hub {
	return NewHub(slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func wsHandler(hub *Hub) http.Handler {
	return http.HandlerFunc(hub.ServeWS)
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d connected clients, have %d", want, hub.ClientCount())
}

func TestHub_BroadcastReachesClient(t *testing.T) {
	hub := testHub()
	server := httptest.NewServer(wsHandler(hub))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	waitForClients(t, hub, 1)

	fr := 7
	hub.BroadcastResult(&models.Result{Date: "2026-09-01", FRResult: &fr, Status: models.StatusPartial})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev struct {
		Type string         `json:"type"`
		Data *models.Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(msg, &ev))
	assert.Equal(t, "resultUpdate", ev.Type)
	require.NotNil(t, ev.Data)
	assert.Equal(t, "2026-09-01", ev.Data.Date)
	require.NotNil(t, ev.Data.FRResult)
	assert.Equal(t, 7, *ev.Data.FRResult)
}

func TestHub_ClientCountTracksConnections(t *testing.T) {
	hub := testHub()
	server := httptest.NewServer(wsHandler(hub))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")

	first, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	second, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer first.Close()
	defer second.Close()

	waitForClients(t, hub, 2)

	require.NoError(t, first.Close())
	waitForClients(t, hub, 1)

	require.NoError(t, second.Close())
	waitForClients(t, hub, 0)
}

func TestHub_BroadcastWithNoClients(t *testing.T) {
	hub := testHub()
	// Must not panic or block.
	hub.BroadcastResult(&models.Result{Date: "2026-09-01"})
	assert.Equal(t, 0, hub.ClientCount())
}
