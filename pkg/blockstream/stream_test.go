package blockstream

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func newBlockFeedServer(t *testing.T, heights []uint64) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		for _, h := range heights {
			if err := conn.WriteJSON(blockMessage{Height: h}); err != nil {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
		time.Sleep(50 * time.Millisecond)
	}))
}

func TestStreamTracksLatestHeight(t *testing.T) {
	srv := newBlockFeedServer(t, []uint64{10, 11, 12})
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	s := New(wsURL, nil)
	defer s.Close()

	require.Eventually(t, func() bool {
		height, ok := s.CurrentBlock()
		return ok && height == 12
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStreamNoHeightBeforeConnect(t *testing.T) {
	s := &Stream{stopCh: make(chan struct{})}
	_, ok := s.CurrentBlock()
	require.False(t, ok)
}
