package ledview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"golang.org/x/sync/errgroup"
)

// closeTimeout bounds how long we wait for the close frame to be written.
const closeTimeout = time.Second

type closeFrame struct {
	Code   ws.StatusCode
	Reason string
}

func (f closeFrame) encode() []byte {
	return ws.NewCloseFrameBody(f.Code, f.Reason)
}

// feedMessage is a single data message received from the feed.
type feedMessage struct {
	Op   ws.OpCode
	Data []byte
}

type websocketClient struct {
	// Messages is a channel of messages received from the feed. It is closed
	// once the connection stops being read.
	Messages chan feedMessage

	wsconn  io.ReadWriteCloser
	writeMu sync.Mutex
	logger  *slog.Logger

	// feedClosed is set once the feed's close frame has been read. The
	// control frame handler has already echoed it by then.
	feedClosed atomic.Bool
}

func newWebsocketClient(wsconn io.ReadWriteCloser, logger *slog.Logger) *websocketClient {
	return &websocketClient{
		Messages: make(chan feedMessage),
		wsconn:   wsconn,
		logger:   logger,
	}
}

// Write implements io.Writer. Writes are serialized so that control frame
// replies never interleave with the close frame.
func (c *websocketClient) Write(b []byte) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return c.wsconn.Write(b)
}

// Read implements io.Reader.
func (c *websocketClient) Read(b []byte) (int, error) {
	return c.wsconn.Read(b)
}

func (c *websocketClient) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errg, ctx := errgroup.WithContext(ctx)

	errg.Go(func() error {
		<-ctx.Done()

		c.logger.DebugContext(ctx,
			"closing websocket",
			"error", ctx.Err().Error())

		if !c.feedClosed.Load() {
			c.sendClose(ctx, closeFrame{
				Code:   ws.StatusNormalClosure,
				Reason: "viewer closing",
			})
		}

		if closeErr := c.wsconn.Close(); closeErr != nil {
			c.logger.WarnContext(ctx,
				"failed to close websocket",
				"error", closeErr.Error())

			return fmt.Errorf("failed to close websocket: %w", closeErr)
		}

		return nil
	})

	errg.Go(func() error {
		defer cancel()
		defer close(c.Messages)

		var buf bytes.Buffer
		buf.Grow(16 * 1024)

		for {
			op, err := wsReadData(&buf, c, ws.StateClientSide, ws.OpText|ws.OpBinary)
			if err != nil {
				var closedErr wsutil.ClosedError
				if errors.As(err, &closedErr) {
					c.feedClosed.Store(true)
					c.logger.DebugContext(ctx,
						"received close frame from feed",
						"code", closedErr.Code,
						"reason", closedErr.Reason)

					return nil
				}

				if ctx.Err() != nil {
					return ctx.Err()
				}

				c.logger.DebugContext(ctx,
					"failed to read from websocket",
					"error", err.Error())

				return fmt.Errorf("failed to read from websocket: %w", err)
			}

			msg := feedMessage{
				Op:   op,
				Data: bytes.Clone(buf.Bytes()),
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case c.Messages <- msg:
			}
		}
	})

	return errg.Wait()
}

type writeDeadliner interface {
	SetWriteDeadline(time.Time) error
}

// sendClose writes a close frame if the connection can bound the write.
// Failing to deliver it is not an error: the connection is closed right
// after anyway.
func (c *websocketClient) sendClose(ctx context.Context, f closeFrame) {
	wd, ok := c.wsconn.(writeDeadliner)
	if !ok {
		return
	}

	if err := wd.SetWriteDeadline(time.Now().Add(closeTimeout)); err != nil {
		return
	}

	if err := wsutil.WriteClientMessage(c, ws.OpClose, f.encode()); err != nil {
		c.logger.DebugContext(ctx,
			"failed to write close frame",
			"error", err.Error())
	}
}

func wsReadData(dst *bytes.Buffer, src io.ReadWriter, s ws.State, want ws.OpCode) (ws.OpCode, error) {
	controlHandler := wsutil.ControlFrameHandler(src, s)
	rd := wsutil.Reader{
		Source:          src,
		State:           s,
		SkipHeaderCheck: false,
		OnIntermediate:  controlHandler,
	}
	for {
		hdr, err := rd.NextFrame()
		if err != nil {
			return 0, err
		}
		if hdr.OpCode.IsControl() {
			if err := controlHandler(hdr, &rd); err != nil {
				return 0, err
			}
			continue
		}
		if hdr.OpCode&want == 0 {
			if err := rd.Discard(); err != nil {
				return 0, err
			}
			continue
		}

		dst.Reset()
		_, err = io.Copy(dst, &rd)
		return hdr.OpCode, err
	}
}
