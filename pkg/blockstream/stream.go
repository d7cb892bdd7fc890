// Package blockstream adapts a WebSocket block-height feed to
// auction.BlockStream, reconnecting with exponential backoff on any
// disconnect.
package blockstream

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/enielson/solvable-orders-cache/internal/logging"
	"github.com/gorilla/websocket"
)

// blockMessage is the wire shape this package expects from the feed: one
// JSON object per message, carrying the latest known block height.
type blockMessage struct {
	Height uint64 `json:"height"`
}

// Stream maintains a WebSocket connection to a block-height feed and caches
// the most recently observed height. It implements auction.BlockStream.
type Stream struct {
	url    string
	logger logging.Logger

	mu          sync.RWMutex
	height      uint64
	haveHeight  bool
	conn        *websocket.Conn
	isConnected bool

	stopCh chan struct{}
}

// New creates a Stream and starts connecting in the background. url must be
// a ws:// or wss:// endpoint.
func New(url string, logger logging.Logger) *Stream {
	if logger == nil {
		logger = logging.Noop{}
	}
	s := &Stream{url: url, logger: logger, stopCh: make(chan struct{})}
	go s.connectWithBackoff()
	return s
}

// CurrentBlock implements auction.BlockStream.
func (s *Stream) CurrentBlock() (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.height, s.haveHeight
}

// IsConnected reports the current connection status.
func (s *Stream) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isConnected
}

// Close stops the stream and closes any open connection.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.stopCh:
		return nil
	default:
		close(s.stopCh)
	}

	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		s.isConnected = false
		return err
	}
	return nil
}

func (s *Stream) connectWithBackoff() {
	if _, err := url.Parse(s.url); err != nil {
		s.logger.Errorf("block stream: invalid url %q: %v", s.url, err)
		return
	}

	retry := NewRetry(uint64(time.Second.Milliseconds()), 25)
	for retry.WaitAndDoRetry() {
		select {
		case <-s.stopCh:
			return
		default:
		}

		s.logger.Infof("block stream: connecting to %s", s.url)
		conn, _, err := websocket.DefaultDialer.Dial(s.url, nil)
		if err != nil {
			s.logger.Errorf("block stream: connection failed: %v", err)
			continue
		}

		s.mu.Lock()
		s.conn = conn
		s.isConnected = true
		s.mu.Unlock()

		s.logger.Infof("block stream: connected to %s", s.url)
		go s.listen()
		return
	}
	s.logger.Errorf("block stream: failed to connect to %s after maximum retries", s.url)
}

func (s *Stream) listen() {
	defer func() {
		s.mu.Lock()
		if s.conn != nil {
			s.conn.Close()
			s.conn = nil
		}
		s.isConnected = false
		s.mu.Unlock()

		select {
		case <-s.stopCh:
			return
		default:
			s.logger.Infof("block stream: connection lost, reconnecting")
			go s.connectWithBackoff()
		}
	}()

	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		s.mu.RLock()
		conn := s.conn
		s.mu.RUnlock()
		if conn == nil {
			return
		}

		_, payload, err := conn.ReadMessage()
		if err != nil {
			s.logger.Errorf("block stream: read failed: %v", err)
			return
		}

		var msg blockMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.logger.Errorf("block stream: %v", fmt.Errorf("decoding message: %w", err))
			continue
		}

		s.mu.Lock()
		s.height = msg.Height
		s.haveHeight = true
		s.mu.Unlock()
	}
}
