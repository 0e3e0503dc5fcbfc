package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"studioops/internal/domain"
	"studioops/internal/media"
	"studioops/internal/middleware"
)

// MediaProxy serves transformed gallery assets. Size is clamped to a
// supported bucket, never rejected; path and access guards run before any
// provider call.
func (a *App) MediaProxy(w http.ResponseWriter, r *http.Request) {
	viewer := middleware.ViewerFromContext(r.Context())
	galleryID := chi.URLParam(r, "gallery_id")
	assetPath := chi.URLParam(r, "*")
	if unescaped, err := url.PathUnescape(assetPath); err == nil {
		assetPath = unescaped
	}

	// Traversal is rejected before touching the gallery record, regardless
	// of session state.
	if media.HasTraversal(assetPath) {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid asset path")
		return
	}

	gallery, err := a.Galleries.Gallery(r.Context(), galleryID, viewer.TenantID)
	if err != nil {
		if errors.Is(err, domain.ErrGalleryNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "gallery not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to load gallery")
		return
	}
	ref, err := media.Resolve(media.ResolveRequest{
		Gallery:    gallery,
		Viewer:     viewer,
		Path:       assetPath,
		SharedLink: r.URL.Query().Get("shared_link"),
		Shared:     r.URL.Query().Get("shared") == "1",
	})
	if err != nil {
		a.resolveError(w, err)
		return
	}

	spec := media.TransformSpec{
		Size:      r.URL.Query().Get("size"),
		Watermark: r.URL.Query().Get("watermark") == "1",
	}
	if spec.Watermark {
		if settings, err := a.Galleries.TenantSettings(r.Context(), viewer.TenantID); err == nil {
			spec.LogoURL = settings.LogoURL
		}
	}

	result, err := a.Media.FetchTransformed(r.Context(), viewer.TenantID, ref, spec)
	if err != nil {
		a.Logger.Error().Err(err).Str("path", ref.Path).Msg("media proxy fetch failed")
		a.error(w, http.StatusBadGateway, "upstream_unavailable", "failed to fetch asset")
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	if result.Immutable {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

func (a *App) resolveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrPathRejected):
		a.error(w, http.StatusBadRequest, "bad_request", "invalid asset path")
	case errors.Is(err, domain.ErrUnauthorizedPath):
		a.error(w, http.StatusForbidden, "forbidden", "path not allowed for this gallery")
	case errors.Is(err, domain.ErrGalleryNotPublished):
		a.error(w, http.StatusForbidden, "forbidden", "gallery is not published")
	case errors.Is(err, domain.ErrGalleryLocked):
		a.error(w, http.StatusForbidden, "forbidden", "gallery is locked")
	default:
		a.error(w, http.StatusInternalServerError, "internal", "failed to resolve asset")
	}
}
