package live

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesSubscribers(t *testing.T) {
	hub := NewHub()
	id := uuid.New()
	other := uuid.New()

	sub := hub.Subscribe(id)
	otherSub := hub.Subscribe(other)
	defer hub.Unsubscribe(otherSub)

	require.NoError(t, hub.Publish(id, map[string]int{"totalResponses": 3}))

	select {
	case msg := <-sub.Updates():
		assert.JSONEq(t, `{"totalResponses":3}`, string(msg))
	case <-time.After(time.Second):
		t.Fatal("expected an update")
	}

	select {
	case <-otherSub.Updates():
		t.Fatal("update leaked to another survey")
	default:
	}

	hub.Unsubscribe(sub)
	hub.Unsubscribe(sub)
	assert.Equal(t, 0, hub.Subscribers(id))

	_, ok := <-sub.Updates()
	assert.False(t, ok)
}

func TestPublishDropsForFullBuffer(t *testing.T) {
	hub := NewHub()
	id := uuid.New()
	sub := hub.Subscribe(id)
	defer hub.Unsubscribe(sub)

	for i := 0; i < subscriberBuffer+5; i++ {
		require.NoError(t, hub.Publish(id, i))
	}
	assert.Len(t, sub.updates, subscriberBuffer)
}

func TestServeWS(t *testing.T) {
	hub := NewHub()
	id := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.ServeWS(w, r, id, map[string]string{"type": "snapshot"})
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first map[string]string
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "snapshot", first["type"])

	require.Eventually(t, func() bool { return hub.Subscribers(id) == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish(id, map[string]string{"type": "update"}))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var update map[string]string
	require.NoError(t, json.Unmarshal(data, &update))
	assert.Equal(t, "update", update["type"])

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Subscribers(id) == 0 }, 2*time.Second, 10*time.Millisecond)
}
