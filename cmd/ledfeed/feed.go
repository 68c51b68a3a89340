package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"dev.acmcsuf.com/ledview"
	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"
	"github.com/gorilla/websocket"
	"gopkg.in/typ.v4/sync2"
)

const writeTimeout = 5 * time.Second

type feedClient struct {
	binary bool
	// send holds the latest frame not yet written. Older frames are
	// replaced, so a slow client skips frames instead of lagging.
	send chan []byte
}

// feedServer broadcasts LED frames to websocket clients, as packed text on
// /ws and as RGB bytes on /wsbin.
type feedServer struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader
	clients  sync2.Map[string, *feedClient]
}

func newFeedServer(logger *slog.Logger) *feedServer {
	return &feedServer{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 65535,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (s *feedServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Get(ledview.TextFeedPath, s.handleFeed(false))
	r.Get(ledview.BinaryFeedPath, s.handleFeed(true))
	return r
}

// run renders the pattern at frameRate until ctx is canceled.
func (s *feedServer) run(ctx context.Context, pattern *hueSweep, frameRate int) error {
	ticker := time.NewTicker(time.Second / time.Duration(frameRate))
	defer ticker.Stop()

	start := time.Now()
	frame := make(ledview.Frame, 0, pattern.Len())

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			frame = pattern.Frame(now.Sub(start), frame)
			s.broadcast(frame)
		}
	}
}

// broadcast queues the frame for every connected client.
func (s *feedServer) broadcast(frame ledview.Frame) {
	var text, binary []byte

	s.clients.Range(func(token string, client *feedClient) bool {
		var b []byte
		if client.binary {
			if binary == nil {
				binary = ledview.EncodeBinary(frame)
			}
			b = binary
		} else {
			if text == nil {
				text = ledview.EncodeText(frame)
			}
			b = text
		}

		for {
			select {
			case client.send <- b:
				return true
			default:
			}
			// Drop the stale frame and retry.
			select {
			case <-client.send:
			default:
			}
		}
	})
}

func (s *feedServer) addClient(c *feedClient) string {
	for {
		uuid, err := uuid.NewV7()
		if err != nil {
			panic(err)
		}

		token := uuid.String()
		if _, collided := s.clients.LoadOrStore(token, c); !collided {
			return token
		}
	}
}

func (s *feedServer) handleFeed(binary bool) http.HandlerFunc {
	msgType := websocket.TextMessage
	if binary {
		msgType = websocket.BinaryMessage
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already replied to the client.
			s.logger.Debug(
				"failed to upgrade HTTP",
				"error", err)
			return
		}
		defer conn.Close()

		client := &feedClient{
			binary: binary,
			send:   make(chan []byte, 1),
		}

		token := s.addClient(client)
		defer s.clients.Delete(token)

		logger := s.logger.With(
			"token", token,
			"addr", conn.RemoteAddr(),
			"binary", binary)

		logger.Info("viewer connected")
		defer logger.Info("viewer disconnected")

		// Viewers never send data; reading only processes control frames
		// and notices the connection going away.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-closed:
				return
			case <-r.Context().Done():
				return
			case b := <-client.send:
				conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(msgType, b); err != nil {
					logger.Warn(
						"failed to write frame",
						"error", err)
					return
				}
			}
		}
	}
}
