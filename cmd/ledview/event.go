package main

import (
	"encoding/json"
	"fmt"
	"image"
	"io"
	"net/http"

	"dev.acmcsuf.com/christmas/lib/xcolor"
)

// ViewerEvent describes an SSE event sent to the browser.
type ViewerEvent interface {
	Type() ViewerEventType
}

// ViewerEventType is a type of event sent to the browser.
type ViewerEventType string

const (
	ViewerEventTypeInit  ViewerEventType = "init"
	ViewerEventTypeFrame ViewerEventType = "frame"
	ViewerEventTypeDrop  ViewerEventType = "drop"
)

// ViewerInit is sent when a browser connects and whenever the LED layout
// changes. An empty LEDCenters means the renderer is waiting for its first
// frame.
type ViewerInit struct {
	Width      int           `json:"width"`
	Height     int           `json:"height"`
	LEDCenters []image.Point `json:"led_centers"`
}

func (ViewerInit) Type() ViewerEventType {
	return ViewerEventTypeInit
}

// ViewerFrame is sent after every rendered frame. It contains the color of
// every LED, ordered by LED index.
type ViewerFrame struct {
	LEDColors []xcolor.RGB `json:"led_colors"`
}

func (ViewerFrame) Type() ViewerEventType {
	return ViewerEventTypeFrame
}

// ViewerDrop is sent when a frame from the feed was rejected.
type ViewerDrop struct {
	Message string `json:"message"`
}

func (ViewerDrop) Type() ViewerEventType {
	return ViewerEventTypeDrop
}

type sseEvent struct {
	Type string
	Data []byte
}

type writeFlusher interface {
	io.Writer
	http.Flusher
}

func writeSSE(w writeFlusher, ev sseEvent) error {
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, ev.Data); err != nil {
		return err
	}
	w.Flush()
	return nil
}

func viewerEventToSSE(event ViewerEvent) sseEvent {
	b, err := json.Marshal(event)
	if err != nil {
		panic(err)
	}
	return sseEvent{
		Type: string(event.Type()),
		Data: b,
	}
}
