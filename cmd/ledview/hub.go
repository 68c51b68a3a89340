package main

import (
	"context"
	"encoding/csv"
	"image"
	"image/png"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"dev.acmcsuf.com/christmas/lib/csvutil"
	"dev.acmcsuf.com/ledview"
	"github.com/gofrs/uuid/v5"
	"gopkg.in/typ.v4/sync2"
)

// subscriberBuffer is the number of events a slow browser may fall behind
// before events are dropped for it.
const subscriberBuffer = 4

// frameHub mirrors the renderer to browsers. It is the viewer's frame sink:
// the renderer is only read from the session goroutine, browsers only see
// copies.
type frameHub struct {
	logger *slog.Logger

	snapshot atomic.Pointer[image.RGBA]

	stateMu sync.Mutex
	init    ViewerInit
	frame   *ViewerFrame

	subscribers sync2.Map[string, chan ViewerEvent]
}

var _ ledview.FrameSink = (*frameHub)(nil)

func newFrameHub(canvas *ledview.Canvas, logger *slog.Logger) *frameHub {
	bounds := canvas.Bounds()

	h := &frameHub{
		logger: logger,
		init: ViewerInit{
			Width:  bounds.Dx(),
			Height: bounds.Dy(),
		},
	}
	h.snapshot.Store(canvas.Snapshot())
	return h
}

func (h *frameHub) FrameRendered(ctx context.Context, r *ledview.Renderer) {
	h.snapshot.Store(r.Snapshot())

	frame := &ViewerFrame{LEDColors: r.Colors().RGB()}

	h.stateMu.Lock()
	layoutChanged := len(h.init.LEDCenters) != r.Count()
	if layoutChanged {
		elements := r.Elements()
		h.init.LEDCenters = make([]image.Point, len(elements))
		for i, el := range elements {
			h.init.LEDCenters[i] = el.Center
		}
	}
	init := h.init
	h.frame = frame
	h.stateMu.Unlock()

	if layoutChanged {
		h.broadcast(init)
	}
	h.broadcast(*frame)
}

func (h *frameHub) FrameDropped(ctx context.Context, err error) {
	h.broadcast(ViewerDrop{Message: err.Error()})
}

func (h *frameHub) RendererReset(ctx context.Context, r *ledview.Renderer) {
	h.snapshot.Store(r.Snapshot())

	h.stateMu.Lock()
	h.init.LEDCenters = nil
	h.frame = nil
	init := h.init
	h.stateMu.Unlock()

	h.broadcast(init)
}

// current returns the events a new subscriber needs to catch up.
func (h *frameHub) current() []ViewerEvent {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()

	events := []ViewerEvent{h.init}
	if h.frame != nil {
		events = append(events, *h.frame)
	}
	return events
}

func (h *frameHub) broadcast(ev ViewerEvent) {
	h.subscribers.Range(func(token string, ch chan ViewerEvent) bool {
		select {
		case ch <- ev:
		default:
			h.logger.Debug(
				"subscriber is too slow, dropping event",
				"token", token,
				"event", ev.Type())
		}
		return true
	})
}

func (h *frameHub) subscribe() (string, chan ViewerEvent) {
	ch := make(chan ViewerEvent, subscriberBuffer)
	for {
		uuid, err := uuid.NewV7()
		if err != nil {
			panic(err)
		}

		token := uuid.String()
		if _, collided := h.subscribers.LoadOrStore(token, ch); !collided {
			return token, ch
		}
	}
}

func (h *frameHub) unsubscribe(token string) {
	h.subscribers.Delete(token)
}

func (h *frameHub) handleEvents(w http.ResponseWriter, r *http.Request) {
	wflush, ok := w.(writeFlusher)
	if !ok {
		http.Error(w, "server does not support flushing", http.StatusInternalServerError)
		return
	}

	// Subscribe before catching up so no event falls in between.
	token, events := h.subscribe()
	defer h.unsubscribe(token)

	h.logger.Info(
		"browser subscribed",
		"token", token)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for _, ev := range h.current() {
		if err := writeSSE(wflush, viewerEventToSSE(ev)); err != nil {
			return
		}
	}

eventLoop:
	for {
		select {
		case <-r.Context().Done():
			break eventLoop
		case ev := <-events:
			if err := writeSSE(wflush, viewerEventToSSE(ev)); err != nil {
				break eventLoop
			}
		}
	}

	h.logger.Info(
		"browser unsubscribed",
		"token", token)
}

func (h *frameHub) handleFramePNG(w http.ResponseWriter, r *http.Request) {
	img := h.snapshot.Load()

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")

	if err := png.Encode(w, img); err != nil {
		h.logger.Warn(
			"failed to encode frame",
			"error", err)
	}
}

func (h *frameHub) handleLEDPixels(w http.ResponseWriter, r *http.Request) {
	h.stateMu.Lock()
	centers := h.init.LEDCenters
	h.stateMu.Unlock()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=led-pixels.csv")

	csvw := csv.NewWriter(w)
	csvutil.Marshal(csvw, centers)
	csvw.Flush()
}
