package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"studioops/internal/domain"
	"studioops/internal/middleware"
	"studioops/internal/videogen"
)

type videoStartRequest struct {
	AssetPaths      []string `json:"asset_paths"`
	DurationSeconds int      `json:"duration_seconds"`
}

type videoStartResponse struct {
	PredictionID   string `json:"prediction_id"`
	RemainingQuota int    `json:"remaining_quota"`
}

type videoPollResponse struct {
	Status   string `json:"status"`
	VideoURL string `json:"video_url,omitempty"`
	Warning  string `json:"warning,omitempty"`
}

// StartVideoGeneration accepts an ordered shot list and submits a generation.
// Precondition failures map to tagged codes; validation failures carry the
// user-facing message in a success/error envelope.
func (a *App) StartVideoGeneration(w http.ResponseWriter, r *http.Request) {
	viewer := middleware.ViewerFromContext(r.Context())
	if viewer.TenantID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing tenant context")
		return
	}
	galleryID := chi.URLParam(r, "gallery_id")
	var req videoStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	result, err := a.Videos.Start(r.Context(), videogen.StartRequest{
		Viewer:          viewer,
		GalleryID:       galleryID,
		AssetPaths:      req.AssetPaths,
		DurationSeconds: req.DurationSeconds,
	})
	if err != nil {
		a.startError(w, err)
		return
	}
	a.json(w, http.StatusAccepted, videoStartResponse{
		PredictionID:   result.PredictionID,
		RemainingQuota: result.RemainingQuota,
	})
}

func (a *App) startError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrImageCount), errors.Is(err, domain.ErrInvalidDuration):
		a.json(w, http.StatusBadRequest, map[string]any{"success": false, "error": err.Error()})
	case errors.Is(err, domain.ErrGalleryNotFound):
		a.error(w, http.StatusNotFound, "not_found", "gallery not found")
	case errors.Is(err, domain.ErrSuiteLocked):
		a.error(w, http.StatusForbidden, "AI_SUITE_LOCKED", "the AI suite is not unlocked for this gallery")
	case errors.Is(err, domain.ErrVideoLimit):
		a.error(w, http.StatusForbidden, "AI_SUITE_VIDEO_LIMIT", "no AI video generations remaining")
	case errors.Is(err, domain.ErrAIDisabled):
		a.error(w, http.StatusForbidden, "AI_DISABLED", "AI videos are disabled for this account")
	case errors.Is(err, domain.ErrSchemaRejected):
		a.error(w, http.StatusBadGateway, "upstream_unavailable", err.Error())
	default:
		a.Logger.Error().Err(err).Msg("video generation start failed")
		a.error(w, http.StatusBadGateway, "upstream_unavailable", "failed to start generation")
	}
}

// PollVideoGeneration reads the generation state. On success the finished
// video is relayed into tenant storage; if the relay fails, the raw
// provider-hosted URL is surfaced with a warning instead of failing the poll.
func (a *App) PollVideoGeneration(w http.ResponseWriter, r *http.Request) {
	viewer := middleware.ViewerFromContext(r.Context())
	if viewer.TenantID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing tenant context")
		return
	}
	galleryID := chi.URLParam(r, "gallery_id")
	predictionID := chi.URLParam(r, "prediction_id")
	if predictionID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "prediction_id required")
		return
	}

	result, err := a.Videos.Poll(r.Context(), viewer, galleryID, predictionID)
	if err != nil {
		if errors.Is(err, domain.ErrGalleryNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "gallery not found")
			return
		}
		a.Logger.Error().Err(err).Str("prediction_id", predictionID).Msg("video generation poll failed")
		a.error(w, http.StatusBadGateway, "upstream_unavailable", "failed to poll generation")
		return
	}
	resp := videoPollResponse{Status: result.Status}
	if result.Status == "succeeded" {
		gallery, err := a.Galleries.Gallery(r.Context(), galleryID, viewer.TenantID)
		if err != nil {
			a.error(w, http.StatusNotFound, "not_found", "gallery not found")
			return
		}
		shareURL, err := a.Relay.Relay(r.Context(), viewer.TenantID, gallery, result.VideoURL)
		if err != nil {
			a.Logger.Warn().Err(err).Str("gallery_id", galleryID).Msg("video relay failed, surfacing provider url")
			resp.VideoURL = result.VideoURL
			resp.Warning = "The video could not be saved to your storage; this link is temporary."
		} else {
			resp.VideoURL = shareURL
		}
	}
	a.json(w, http.StatusOK, resp)
}
