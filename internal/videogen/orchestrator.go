package videogen

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"studioops/internal/domain"
	"studioops/internal/infra"
	"studioops/internal/media"
	"studioops/internal/providers/replicate"
)

// storyboardInstruction is the fixed prompt submitted with every storyboard.
// The numbered grid is an instruction sheet, not a shot to reproduce: the
// provider must cut between tiles in order and never show the grid itself.
const storyboardInstruction = "Create a vertical cinematic video that moves through the numbered " +
	"photos in ascending order, treating each numbered tile as one shot. Give every shot gentle " +
	"camera motion and natural pacing, with smooth cinematic transitions between shots. Do not " +
	"scroll, pan, or zoom across the grid layout, do not show more than one tile at a time, and " +
	"do not render any visible text, numbers, or captions."

// GalleryStore is the slice of persistence the generation flow needs.
type GalleryStore interface {
	Gallery(ctx context.Context, galleryID, tenantID string) (*domain.Gallery, error)
	ConsumeVideoQuota(ctx context.Context, galleryID, tenantID string) (int, error)
	AppendVideoLink(ctx context.Context, galleryID, tenantID, url string) error
	SetBaseFolder(ctx context.Context, galleryID, tenantID, path string) error
	TenantSettings(ctx context.Context, tenantID string) (domain.TenantSettings, error)
}

// PredictionClient submits and reads generation jobs.
type PredictionClient interface {
	CreatePrediction(ctx context.Context, req replicate.PredictionRequest) (*replicate.Prediction, error)
	GetPrediction(ctx context.Context, id string) (*replicate.Prediction, error)
}

// AssetSource fetches full asset bytes from the storage provider.
type AssetSource interface {
	Download(ctx context.Context, tenantID, path string) ([]byte, string, error)
}

// Orchestrator drives the start/poll pair for AI video generation. It holds
// no job state of its own; durability lives in the provider and in gallery
// metadata written at start and at successful completion.
type Orchestrator struct {
	store      GalleryStore
	videos     PredictionClient
	storage    AssetSource
	httpClient *http.Client
	logger     *infra.Logger
}

func NewOrchestrator(store GalleryStore, videos PredictionClient, storage AssetSource, httpClient *http.Client, logger *infra.Logger) *Orchestrator {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Orchestrator{store: store, videos: videos, storage: storage, httpClient: httpClient, logger: logger}
}

// StartRequest carries a validated caller's inputs for a generation.
type StartRequest struct {
	Viewer          domain.Viewer
	GalleryID       string
	AssetPaths      []string
	DurationSeconds int
}

// StartResult reports the accepted submission.
type StartResult struct {
	PredictionID   string
	RemainingQuota int
}

// Start validates preconditions in order, pays the quota, and submits the
// storyboard. The quota is intentionally not refunded when a later step
// fails; see Poll for the read side.
func (o *Orchestrator) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	if len(req.AssetPaths) < media.MinStoryboardImages || len(req.AssetPaths) > media.MaxStoryboardImages {
		return nil, domain.ErrImageCount
	}
	// Same rule as the media proxy: traversal segments are rejected for any
	// caller, before the gallery is even looked at.
	for _, p := range req.AssetPaths {
		if media.HasTraversal(p) {
			return nil, domain.ErrPathRejected
		}
	}
	duration := req.DurationSeconds
	if duration == 0 {
		duration = 5
	}
	if duration != 5 && duration != 10 {
		return nil, domain.ErrInvalidDuration
	}

	gallery, err := o.store.Gallery(ctx, req.GalleryID, req.Viewer.TenantID)
	if err != nil {
		return nil, err
	}
	if !gallery.AIUnlocked {
		return nil, domain.ErrSuiteLocked
	}
	if gallery.VideoQuota <= 0 {
		return nil, domain.ErrVideoLimit
	}
	if gallery.AIUnlockType != domain.UnlockTypeTrial {
		settings, err := o.store.TenantSettings(ctx, req.Viewer.TenantID)
		if err != nil {
			return nil, err
		}
		if !settings.VideosEnabled {
			return nil, domain.ErrAIDisabled
		}
	}

	// All preconditions passed: pay the quota and stamp the started marker
	// before any expensive work. A conditional decrement catches a racing
	// start that drained the counter between the check and here.
	remaining, err := o.store.ConsumeVideoQuota(ctx, req.GalleryID, req.Viewer.TenantID)
	if err != nil {
		return nil, err
	}

	images, err := o.resolveImages(ctx, req.Viewer.TenantID, req.AssetPaths)
	if err != nil {
		return nil, err
	}
	storyboard, err := media.ComposeStoryboard(images)
	if err != nil {
		return nil, err
	}
	dataURI := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(storyboard)

	pred, err := o.videos.CreatePrediction(ctx, replicate.PredictionRequest{
		Prompt:          storyboardInstruction,
		ImageDataURI:    dataURI,
		DurationSeconds: duration,
	})
	if err != nil {
		return nil, err
	}
	o.logger.Info().
		Str("gallery_id", req.GalleryID).
		Str("prediction_id", pred.ID).
		Int("remaining_quota", remaining).
		Msg("videogen: generation submitted")
	return &StartResult{PredictionID: pred.ID, RemainingQuota: remaining}, nil
}

// resolveImages turns each ordered path into decoded image data. Storage
// paths go through the provider; an already-public URL is fetched directly as
// a fallback.
func (o *Orchestrator) resolveImages(ctx context.Context, tenantID string, paths []string) ([]image.Image, error) {
	images := make([]image.Image, 0, len(paths))
	for _, p := range paths {
		var (
			data []byte
			err  error
		)
		if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
			data, err = o.fetchPublic(ctx, p)
		} else {
			data, _, err = o.storage.Download(ctx, tenantID, p)
		}
		if err != nil {
			return nil, fmt.Errorf("videogen: resolve %s: %w", p, err)
		}
		img, err := media.DecodeImage(data)
		if err != nil {
			return nil, fmt.Errorf("videogen: resolve %s: %w", p, err)
		}
		images = append(images, img)
	}
	return images, nil
}

func (o *Orchestrator) fetchPublic(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// PollResult is the observed state of a generation job.
type PollResult struct {
	Status   string
	VideoURL string
}

// Poll is a pure read against the provider; re-invoking it is always safe.
func (o *Orchestrator) Poll(ctx context.Context, viewer domain.Viewer, galleryID, predictionID string) (*PollResult, error) {
	if _, err := o.store.Gallery(ctx, galleryID, viewer.TenantID); err != nil {
		return nil, err
	}
	pred, err := o.videos.GetPrediction(ctx, predictionID)
	if err != nil {
		return nil, err
	}
	status := pred.Status
	if status == "starting" {
		status = "submitted"
	}
	result := &PollResult{Status: status}
	if status == "succeeded" {
		url := replicate.FirstOutputURL(pred.Output)
		if url == "" {
			return nil, fmt.Errorf("videogen: succeeded prediction %s carries no output url", predictionID)
		}
		result.VideoURL = url
	}
	if status == "failed" && pred.Error != "" {
		o.logger.Warn().Str("prediction_id", predictionID).Str("error", pred.Error).Msg("videogen: generation failed")
	}
	return result, nil
}
