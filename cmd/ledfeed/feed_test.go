package main

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"dev.acmcsuf.com/ledview"
	"github.com/google/go-cmp/cmp"
	"github.com/neilotoole/slogt"
)

func TestHueSweep(t *testing.T) {
	p := newHueSweep(ledview.DefaultGrid)
	assertEq(t, 2000, p.Len())

	a := p.Frame(time.Second, nil)
	b := p.Frame(time.Second, nil)
	assertEq(t, a, b)
	assertEq(t, 2000, len(a))

	// Fully saturated at full brightness: one channel is always at max.
	for i, c := range a {
		if c.R != 255 && c.G != 255 && c.B != 255 {
			t.Fatalf("LED %d is not at full brightness: %v", i, c)
		}
	}

	if cmp.Equal(a, p.Frame(2*time.Second, nil)) {
		t.Error("pattern does not move")
	}
}

type renderedSink chan ledview.Frame

func (s renderedSink) FrameRendered(ctx context.Context, r *ledview.Renderer) {
	select {
	case s <- r.Colors():
	default:
	}
}

func (s renderedSink) FrameDropped(ctx context.Context, err error) {}

func (s renderedSink) RendererReset(ctx context.Context, r *ledview.Renderer) {}

func TestFeedToViewer(t *testing.T) {
	for _, binary := range []bool{false, true} {
		name := "text"
		path := ledview.TextFeedPath
		if binary {
			name = "binary"
			path = ledview.BinaryFeedPath
		}

		t.Run(name, func(t *testing.T) {
			logger := slogt.New(t)

			feed := newFeedServer(logger)
			srv := httptest.NewServer(feed.routes())
			t.Cleanup(srv.Close)

			url, err := ledview.FeedURL(srv.URL, path)
			if err != nil {
				t.Fatal(err)
			}

			frame := newHueSweep(ledview.DefaultGrid).Frame(0, nil)
			sink := make(renderedSink, 1)

			viewer := ledview.NewViewer(ledview.ViewerOpts{
				URL:      url,
				Renderer: ledview.NewRenderer(ledview.DefaultGrid, ledview.NewCanvas(ledview.DefaultCanvasOpts)),
				Sink:     sink,
				Logger:   logger,
			})

			ctx, cancel := context.WithCancel(context.Background())
			errCh := make(chan error, 1)
			go func() {
				errCh <- viewer.Run(ctx)
			}()

			t.Cleanup(func() {
				cancel()
				if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
					t.Error("viewer error:", err)
				}
			})

			// The viewer may not be subscribed yet, so keep sending.
			ticker := time.NewTicker(10 * time.Millisecond)
			defer ticker.Stop()

			timeout := time.After(5 * time.Second)

			for {
				select {
				case got := <-sink:
					assertEq(t, frame, got)

					stats := viewer.Stats()
					assertEq(t, "initialized", stats.State)
					assertEq(t, int64(2000), stats.LEDs)
					return
				case <-ticker.C:
					feed.broadcast(frame)
				case <-timeout:
					t.Fatal("viewer did not render a frame")
				}
			}
		})
	}
}

func assertEq[T any](t *testing.T, expected, actual T, opts ...cmp.Option) {
	t.Helper()

	if diff := cmp.Diff(expected, actual, opts...); diff != "" {
		t.Errorf("unexpected diff (-want +got):\n%s", diff)
	}
}
