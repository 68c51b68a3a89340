package main

import (
	"context"

	"dev.acmcsuf.com/ledview"
	"github.com/go-chi/chi/v5"
	"libdb.so/hrt"
)

type adminHandler struct {
	*chi.Mux
	viewer *ledview.Viewer
}

func newAdminHandler(viewer *ledview.Viewer) *adminHandler {
	h := &adminHandler{
		Mux:    chi.NewRouter(),
		viewer: viewer,
	}

	h.Use(hrt.Use(hrt.Opts{
		Encoder: hrt.CombinedEncoder{
			Encoder: hrt.JSONEncoder,
			Decoder: hrt.URLDecoder,
		},
		ErrorWriter: hrt.TextErrorWriter,
	}))

	h.Post("/reset", hrt.Wrap(h.reset))
	h.Get("/stats", hrt.Wrap(h.stats))

	return h
}

type resetRequest struct{}

type resetResponse struct {
	// Reset is false if the viewer is not connected to the feed.
	Reset bool `json:"reset"`
}

func (h *adminHandler) reset(ctx context.Context, req resetRequest) (resetResponse, error) {
	return resetResponse{Reset: h.viewer.Reset()}, nil
}

type statsRequest struct{}

func (h *adminHandler) stats(ctx context.Context, req statsRequest) (ledview.Stats, error) {
	return h.viewer.Stats(), nil
}
