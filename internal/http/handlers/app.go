package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"studioops/internal/domain"
	"studioops/internal/infra"
	"studioops/internal/media"
	"studioops/internal/videogen"
)

// GalleryReader loads gallery and tenant metadata for request handling.
type GalleryReader interface {
	Gallery(ctx context.Context, galleryID, tenantID string) (*domain.Gallery, error)
	TenantSettings(ctx context.Context, tenantID string) (domain.TenantSettings, error)
}

// MediaTransformer produces display bytes for a resolved asset.
type MediaTransformer interface {
	FetchTransformed(ctx context.Context, tenantID string, ref media.AssetRef, spec media.TransformSpec) (*media.Result, error)
}

// VideoOrchestrator drives the start/poll pair for AI video generation.
type VideoOrchestrator interface {
	Start(ctx context.Context, req videogen.StartRequest) (*videogen.StartResult, error)
	Poll(ctx context.Context, viewer domain.Viewer, galleryID, predictionID string) (*videogen.PollResult, error)
}

// VideoRelayer persists a finished video into tenant storage.
type VideoRelayer interface {
	Relay(ctx context.Context, tenantID string, gallery *domain.Gallery, videoURL string) (string, error)
}

// App is the handler container; dependencies are injected as interfaces so
// tests can stand in for each collaborator.
type App struct {
	Logger    infra.Logger
	Galleries GalleryReader
	Media     MediaTransformer
	Videos    VideoOrchestrator
	Relay     VideoRelayer
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]string{"code": code, "message": message})
}
