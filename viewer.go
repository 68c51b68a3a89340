package ledview

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/gobwas/ws"
	"golang.org/x/sync/errgroup"
)

// Feed paths served by the LED controller.
const (
	TextFeedPath   = "/ws"
	BinaryFeedPath = "/wsbin"
)

// FeedURL derives the websocket URL of the feed from the origin of the page
// or server hosting it: http becomes ws and https becomes wss. ws and wss
// origins are kept as is. The path of the origin is replaced with path, or
// with TextFeedPath if path is empty.
func FeedURL(origin, path string) (string, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return "", fmt.Errorf("invalid origin: %w", err)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported origin scheme %q", u.Scheme)
	}

	if u.Host == "" {
		return "", fmt.Errorf("origin %q has no host", origin)
	}

	if path == "" {
		path = TextFeedPath
	}

	u.Path = path
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""

	return u.String(), nil
}

// FrameSink is informed of everything a session does to its renderer. All
// methods are called from the session goroutine, so the renderer may be read
// but must not be retained.
type FrameSink interface {
	// FrameRendered is called after a frame has been rendered.
	FrameRendered(ctx context.Context, r *Renderer)
	// FrameDropped is called when a frame was rejected. The renderer keeps
	// its previous state.
	FrameDropped(ctx context.Context, err error)
	// RendererReset is called after the renderer has been reset.
	RendererReset(ctx context.Context, r *Renderer)
}

// ViewerOpts are options for a viewer.
type ViewerOpts struct {
	// URL is the websocket URL of the feed. See FeedURL.
	URL string
	// Renderer is the renderer frames are drawn with.
	Renderer *Renderer
	// Sink is optionally informed of rendered and dropped frames.
	Sink FrameSink
	// Logger is the logger to use for the viewer. If nil, slog.Default() is
	// used.
	Logger *slog.Logger
	// Dialer is the websocket dialer.
	Dialer ws.Dialer
	// RetryDelay is the delay before reconnecting to the feed. If zero, the
	// viewer stops when the connection ends.
	RetryDelay time.Duration
}

// Stats are counters of a viewer.
type Stats struct {
	Sessions       int64  `json:"sessions"`
	Connected      bool   `json:"connected"`
	FramesRendered int64  `json:"frames_rendered"`
	FramesDropped  int64  `json:"frames_dropped"`
	State          string `json:"state"`
	LEDs           int64  `json:"leds"`
}

type counters struct {
	sessions  atomic.Int64
	connected atomic.Bool
	rendered  atomic.Int64
	dropped   atomic.Int64
	state     atomic.Int32
	leds      atomic.Int64
}

func (c *counters) observe(r *Renderer) {
	c.state.Store(int32(r.State()))
	c.leds.Store(int64(r.Count()))
}

func (c *counters) snapshot() Stats {
	return Stats{
		Sessions:       c.sessions.Load(),
		Connected:      c.connected.Load(),
		FramesRendered: c.rendered.Load(),
		FramesDropped:  c.dropped.Load(),
		State:          RendererState(c.state.Load()).String(),
		LEDs:           c.leds.Load(),
	}
}

// Viewer keeps a renderer in sync with a feed, reconnecting when the feed
// goes away.
type Viewer struct {
	opts    ViewerOpts
	session atomic.Pointer[Session]
	stats   counters
}

// NewViewer creates a new viewer.
func NewViewer(opts ViewerOpts) *Viewer {
	return &Viewer{
		opts: opts.withDefaults(),
	}
}

func (o ViewerOpts) withDefaults() ViewerOpts {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Stats returns the current counters of the viewer.
func (v *Viewer) Stats() Stats {
	return v.stats.snapshot()
}

// Reset asks the current session to reset its renderer. It returns false if
// the viewer is not connected.
func (v *Viewer) Reset() bool {
	session := v.session.Load()
	if session == nil {
		return false
	}
	session.Reset()
	return true
}

// Run connects to the feed and renders frames until ctx is canceled. If
// RetryDelay is zero, Run returns once the first connection ends.
func (v *Viewer) Run(ctx context.Context) error {
	for {
		err := v.runSession(ctx)
		if ctx.Err() != nil {
			return nil
		}

		if v.opts.RetryDelay <= 0 {
			return err
		}

		if err != nil {
			v.opts.Logger.WarnContext(ctx,
				"feed connection lost",
				"url", v.opts.URL,
				"retry_in", v.opts.RetryDelay,
				"error", err.Error())
		} else {
			v.opts.Logger.InfoContext(ctx,
				"feed closed the connection",
				"url", v.opts.URL,
				"retry_in", v.opts.RetryDelay)
		}

		timer := time.NewTimer(v.opts.RetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (v *Viewer) runSession(ctx context.Context) error {
	session, err := dial(ctx, v.opts, &v.stats)
	if err != nil {
		return err
	}

	v.session.Store(session)
	v.stats.sessions.Add(1)
	v.stats.connected.Store(true)

	defer func() {
		v.stats.connected.Store(false)
		v.session.CompareAndSwap(session, nil)
	}()

	v.opts.Logger.InfoContext(ctx,
		"connected to feed",
		"url", v.opts.URL)

	if err := session.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return &ConnectionError{URL: v.opts.URL, Err: err}
	}
	return nil
}

// Session is a single connection to the feed. Frames are handled one at a
// time, in the order they arrive.
type Session struct {
	ws       *websocketClient
	logger   *slog.Logger
	renderer *Renderer
	sink     FrameSink
	stats    *counters
	reset    chan struct{}
}

// Dial connects to the feed at opts.URL. Failures are returned as a
// *ConnectionError.
func Dial(ctx context.Context, opts ViewerOpts) (*Session, error) {
	return dial(ctx, opts, nil)
}

func dial(ctx context.Context, opts ViewerOpts, stats *counters) (*Session, error) {
	opts = opts.withDefaults()

	conn, br, _, err := opts.Dialer.Dial(ctx, opts.URL)
	if err != nil {
		return nil, &ConnectionError{URL: opts.URL, Err: err}
	}

	var wsconn io.ReadWriteCloser = conn
	if br != nil {
		// The handshake read ahead into a buffer that still holds frames.
		wsconn = bufferedConn{Conn: conn, r: br}
	}

	logger := opts.Logger.With("addr", conn.RemoteAddr())
	return newSession(wsconn, opts, logger, stats), nil
}

func newSession(wsconn io.ReadWriteCloser, opts ViewerOpts, logger *slog.Logger, stats *counters) *Session {
	if stats == nil {
		stats = new(counters)
	}
	return &Session{
		ws:       newWebsocketClient(wsconn, logger),
		logger:   logger,
		renderer: opts.Renderer,
		sink:     opts.Sink,
		stats:    stats,
		reset:    make(chan struct{}, 1),
	}
}

type bufferedConn struct {
	net.Conn
	r *bufio.Reader
}

func (c bufferedConn) Read(b []byte) (int, error) {
	return c.r.Read(b)
}

// Reset queues a reset of the renderer. It is applied between frames.
func (s *Session) Reset() {
	select {
	case s.reset <- struct{}{}:
	default:
	}
}

// Start runs the session until the feed closes the connection or ctx is
// canceled. The renderer is reset first: the LED count belongs to the
// connection.
func (s *Session) Start(ctx context.Context) error {
	errg, ctx := errgroup.WithContext(ctx)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errg.Go(func() error {
		return s.ws.Start(ctx)
	})

	errg.Go(func() error {
		defer cancel()
		s.mainLoop(ctx)
		return nil
	})

	return errg.Wait()
}

func (s *Session) mainLoop(ctx context.Context) {
	s.resetRenderer(ctx)

	var buf Frame

	for {
		select {
		case <-ctx.Done():
			return

		case <-s.reset:
			s.resetRenderer(ctx)

		case msg, ok := <-s.ws.Messages:
			if !ok {
				return
			}

			frame, err := decodeMessage(msg, buf)
			if err != nil {
				s.dropFrame(ctx, err)
				continue
			}
			buf = frame

			wasInitialized := s.renderer.State() == Initialized
			if err := s.renderer.Render(frame); err != nil {
				s.dropFrame(ctx, err)
				continue
			}

			if !wasInitialized {
				s.logger.InfoContext(ctx,
					"renderer initialized",
					"leds", s.renderer.Count())
			}

			s.stats.rendered.Add(1)
			s.stats.observe(s.renderer)

			if s.sink != nil {
				s.sink.FrameRendered(ctx, s.renderer)
			}
		}
	}
}

func decodeMessage(msg feedMessage, buf Frame) (Frame, error) {
	switch msg.Op {
	case ws.OpText:
		return DecodeText(msg.Data, buf)
	case ws.OpBinary:
		return DecodeBinary(msg.Data, buf)
	default:
		return nil, &DecodeError{Index: -1, Err: fmt.Errorf("unexpected opcode %v", msg.Op)}
	}
}

func (s *Session) dropFrame(ctx context.Context, err error) {
	s.stats.dropped.Add(1)

	s.logger.WarnContext(ctx,
		"dropping frame",
		"error", err.Error())

	if s.sink != nil {
		s.sink.FrameDropped(ctx, err)
	}
}

func (s *Session) resetRenderer(ctx context.Context) {
	s.renderer.Reset()
	s.stats.observe(s.renderer)

	s.logger.DebugContext(ctx, "renderer reset")

	if s.sink != nil {
		s.sink.RendererReset(ctx, s.renderer)
	}
}
