package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"dev.acmcsuf.com/ledview"
	"github.com/neilotoole/slogt"
)

func TestAdminHandler(t *testing.T) {
	canvas := ledview.NewCanvas(ledview.CanvasOpts{})
	viewer := ledview.NewViewer(ledview.ViewerOpts{
		URL:      "ws://127.0.0.1:1/ws",
		Renderer: ledview.NewRenderer(ledview.DefaultGrid, canvas),
		Logger:   slogt.New(t),
	})

	srv := httptest.NewServer(newAdminHandler(viewer))
	t.Cleanup(srv.Close)

	t.Run("reset without a feed", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/reset", "application/json", nil)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()

		assertEq(t, http.StatusOK, resp.StatusCode)

		var body resetResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatal("cannot decode reset response:", err)
		}
		assertEq(t, resetResponse{Reset: false}, body)
	})

	t.Run("stats", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/stats")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()

		assertEq(t, http.StatusOK, resp.StatusCode)

		var body map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatal("cannot decode stats response:", err)
		}
		assertEq(t, map[string]any{
			"sessions":        float64(0),
			"connected":       false,
			"frames_rendered": float64(0),
			"frames_dropped":  float64(0),
			"state":           "uninitialized",
			"leds":            float64(0),
		}, body)
	})

	t.Run("wrong method", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/reset")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()

		assertEq(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}
