package videogen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/color"
	"strings"
	"testing"

	"github.com/disintegration/imaging"

	"studioops/internal/domain"
	"studioops/internal/providers/replicate"
)

type fakeGalleryStore struct {
	gallery     *domain.Gallery
	galleryErr  error
	settings    domain.TenantSettings
	settingsErr error

	remaining  int
	consumeErr error

	consumeCalls int
	appendCalls  int
	appendedURL  string
	appendErr    error
	baseFolder   string
}

func (f *fakeGalleryStore) Gallery(context.Context, string, string) (*domain.Gallery, error) {
	if f.galleryErr != nil {
		return nil, f.galleryErr
	}
	return f.gallery, nil
}

func (f *fakeGalleryStore) ConsumeVideoQuota(context.Context, string, string) (int, error) {
	f.consumeCalls++
	if f.consumeErr != nil {
		return 0, f.consumeErr
	}
	return f.remaining, nil
}

func (f *fakeGalleryStore) AppendVideoLink(_ context.Context, _, _, url string) error {
	f.appendCalls++
	f.appendedURL = url
	return f.appendErr
}

func (f *fakeGalleryStore) SetBaseFolder(_ context.Context, _, _, path string) error {
	f.baseFolder = path
	return nil
}

func (f *fakeGalleryStore) TenantSettings(context.Context, string) (domain.TenantSettings, error) {
	return f.settings, f.settingsErr
}

type fakePredictions struct {
	created    []replicate.PredictionRequest
	createPred *replicate.Prediction
	createErr  error

	getPred *replicate.Prediction
	getErr  error
}

func (f *fakePredictions) CreatePrediction(_ context.Context, req replicate.PredictionRequest) (*replicate.Prediction, error) {
	f.created = append(f.created, req)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createPred, nil
}

func (f *fakePredictions) GetPrediction(context.Context, string) (*replicate.Prediction, error) {
	return f.getPred, f.getErr
}

type fakeAssets struct {
	data  []byte
	err   error
	calls int
}

func (f *fakeAssets) Download(context.Context, string, string) ([]byte, string, error) {
	f.calls++
	return f.data, "image/jpeg", f.err
}

func jpegBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := imaging.New(64, 48, color.NRGBA{R: 200, G: 80, B: 40, A: 255})
	if err := imaging.Encode(&buf, img, imaging.JPEG); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func unlockedGallery() *domain.Gallery {
	return &domain.Gallery{
		ID:           "gal-1",
		TenantID:     "tenant-1",
		Title:        "Summer Wedding",
		Status:       domain.GalleryPublished,
		AIUnlocked:   true,
		AIUnlockType: domain.UnlockTypePaid,
		VideoQuota:   3,
	}
}

func viewer() domain.Viewer {
	return domain.Viewer{TenantID: "tenant-1", Owner: true}
}

func TestStartRejectsBadImageCount(t *testing.T) {
	store := &fakeGalleryStore{gallery: unlockedGallery()}
	assets := &fakeAssets{}
	o := NewOrchestrator(store, &fakePredictions{}, assets, nil, nil)

	for _, n := range []int{0, 1, 2, 6} {
		paths := make([]string, n)
		for i := range paths {
			paths[i] = "/Gallery/a.jpg"
		}
		_, err := o.Start(context.Background(), StartRequest{Viewer: viewer(), GalleryID: "gal-1", AssetPaths: paths})
		if !errors.Is(err, domain.ErrImageCount) {
			t.Fatalf("n=%d: err = %v, want ErrImageCount", n, err)
		}
	}
	if store.consumeCalls != 0 || assets.calls != 0 {
		t.Fatalf("count validation must run before quota and fetch")
	}
}

func TestStartRejectsTraversalPaths(t *testing.T) {
	store := &fakeGalleryStore{gallery: unlockedGallery(), settings: domain.TenantSettings{VideosEnabled: true}}
	assets := &fakeAssets{data: jpegBytes(t)}
	o := NewOrchestrator(store, &fakePredictions{}, assets, nil, nil)

	paths := [][]string{
		{"/Gallery/../../other-tenant/secret.jpg", "/Gallery/a.jpg", "/Gallery/b.jpg"},
		{"/Gallery/a.jpg", "./b.jpg", "/Gallery/c.jpg"},
		{"/Gallery/a.jpg", "/Gallery/b.jpg", "..\\c.jpg"},
	}
	for _, p := range paths {
		_, err := o.Start(context.Background(), StartRequest{Viewer: viewer(), GalleryID: "gal-1", AssetPaths: p})
		if !errors.Is(err, domain.ErrPathRejected) {
			t.Fatalf("Start(%v) err = %v, want ErrPathRejected", p, err)
		}
	}
	if assets.calls != 0 {
		t.Fatalf("asset downloads = %d, want 0 for rejected paths", assets.calls)
	}
	if store.consumeCalls != 0 {
		t.Fatalf("quota must not be touched for rejected paths")
	}
}

func TestStartRejectsBadDuration(t *testing.T) {
	o := NewOrchestrator(&fakeGalleryStore{gallery: unlockedGallery()}, &fakePredictions{}, &fakeAssets{}, nil, nil)
	_, err := o.Start(context.Background(), StartRequest{
		Viewer:          viewer(),
		GalleryID:       "gal-1",
		AssetPaths:      []string{"/a.jpg", "/b.jpg", "/c.jpg"},
		DurationSeconds: 7,
	})
	if !errors.Is(err, domain.ErrInvalidDuration) {
		t.Fatalf("err = %v, want ErrInvalidDuration", err)
	}
}

func TestStartLockedSuite(t *testing.T) {
	g := unlockedGallery()
	g.AIUnlocked = false
	store := &fakeGalleryStore{gallery: g}
	o := NewOrchestrator(store, &fakePredictions{}, &fakeAssets{}, nil, nil)

	_, err := o.Start(context.Background(), StartRequest{Viewer: viewer(), GalleryID: "gal-1", AssetPaths: []string{"/a.jpg", "/b.jpg", "/c.jpg"}})
	if !errors.Is(err, domain.ErrSuiteLocked) {
		t.Fatalf("err = %v, want ErrSuiteLocked", err)
	}
	if store.consumeCalls != 0 {
		t.Fatalf("quota must not be touched for a locked suite")
	}
}

func TestStartQuotaExhausted(t *testing.T) {
	g := unlockedGallery()
	g.VideoQuota = 0
	store := &fakeGalleryStore{gallery: g}
	videos := &fakePredictions{}
	o := NewOrchestrator(store, videos, &fakeAssets{}, nil, nil)

	_, err := o.Start(context.Background(), StartRequest{Viewer: viewer(), GalleryID: "gal-1", AssetPaths: []string{"/a.jpg", "/b.jpg", "/c.jpg"}})
	if !errors.Is(err, domain.ErrVideoLimit) {
		t.Fatalf("err = %v, want ErrVideoLimit", err)
	}
	if len(videos.created) != 0 {
		t.Fatalf("no submission should happen with zero quota")
	}
}

func TestStartRacingQuotaDrain(t *testing.T) {
	// The read says 1 remaining but the conditional decrement finds none.
	store := &fakeGalleryStore{gallery: unlockedGallery(), settings: domain.TenantSettings{VideosEnabled: true}, consumeErr: domain.ErrVideoLimit}
	videos := &fakePredictions{}
	o := NewOrchestrator(store, videos, &fakeAssets{}, nil, nil)

	_, err := o.Start(context.Background(), StartRequest{Viewer: viewer(), GalleryID: "gal-1", AssetPaths: []string{"/a.jpg", "/b.jpg", "/c.jpg"}})
	if !errors.Is(err, domain.ErrVideoLimit) {
		t.Fatalf("err = %v, want ErrVideoLimit", err)
	}
	if len(videos.created) != 0 {
		t.Fatalf("no submission should happen when the decrement loses the race")
	}
}

func TestStartPaidTenantWithVideosDisabled(t *testing.T) {
	store := &fakeGalleryStore{gallery: unlockedGallery(), settings: domain.TenantSettings{VideosEnabled: false}}
	o := NewOrchestrator(store, &fakePredictions{}, &fakeAssets{}, nil, nil)

	_, err := o.Start(context.Background(), StartRequest{Viewer: viewer(), GalleryID: "gal-1", AssetPaths: []string{"/a.jpg", "/b.jpg", "/c.jpg"}})
	if !errors.Is(err, domain.ErrAIDisabled) {
		t.Fatalf("err = %v, want ErrAIDisabled", err)
	}
}

func TestStartTrialBypassesTenantToggle(t *testing.T) {
	g := unlockedGallery()
	g.AIUnlockType = domain.UnlockTypeTrial
	store := &fakeGalleryStore{gallery: g, settings: domain.TenantSettings{VideosEnabled: false}, remaining: 2}
	videos := &fakePredictions{createPred: &replicate.Prediction{ID: "pred-1", Status: "starting"}}
	assets := &fakeAssets{data: jpegBytes(t)}
	o := NewOrchestrator(store, videos, assets, nil, nil)

	result, err := o.Start(context.Background(), StartRequest{Viewer: viewer(), GalleryID: "gal-1", AssetPaths: []string{"/a.jpg", "/b.jpg", "/c.jpg"}})
	if err != nil {
		t.Fatalf("trial unlock must ignore the tenant toggle: %v", err)
	}
	if result.PredictionID != "pred-1" {
		t.Fatalf("result = %+v", result)
	}
}

func TestStartHappyPath(t *testing.T) {
	store := &fakeGalleryStore{gallery: unlockedGallery(), settings: domain.TenantSettings{VideosEnabled: true}, remaining: 2}
	videos := &fakePredictions{createPred: &replicate.Prediction{ID: "pred-1", Status: "starting"}}
	assets := &fakeAssets{data: jpegBytes(t)}
	o := NewOrchestrator(store, videos, assets, nil, nil)

	result, err := o.Start(context.Background(), StartRequest{
		Viewer:          viewer(),
		GalleryID:       "gal-1",
		AssetPaths:      []string{"/Gallery/a.jpg", "/Gallery/b.jpg", "/Gallery/c.jpg"},
		DurationSeconds: 10,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if result.PredictionID != "pred-1" || result.RemainingQuota != 2 {
		t.Fatalf("result = %+v", result)
	}
	if store.consumeCalls != 1 {
		t.Fatalf("quota consumed %d times, want exactly once", store.consumeCalls)
	}
	if assets.calls != 3 {
		t.Fatalf("asset downloads = %d, want 3", assets.calls)
	}
	if len(videos.created) != 1 {
		t.Fatalf("submissions = %d, want 1", len(videos.created))
	}
	req := videos.created[0]
	if req.DurationSeconds != 10 {
		t.Fatalf("duration = %d, want 10", req.DurationSeconds)
	}
	if !strings.HasPrefix(req.ImageDataURI, "data:image/jpeg;base64,") {
		t.Fatalf("storyboard not submitted as a jpeg data uri")
	}
	if req.Prompt == "" {
		t.Fatalf("prompt must carry the storyboard instructions")
	}
}

func TestStartDefaultsDurationToFive(t *testing.T) {
	store := &fakeGalleryStore{gallery: unlockedGallery(), settings: domain.TenantSettings{VideosEnabled: true}, remaining: 1}
	videos := &fakePredictions{createPred: &replicate.Prediction{ID: "pred-1"}}
	o := NewOrchestrator(store, videos, &fakeAssets{data: jpegBytes(t)}, nil, nil)

	if _, err := o.Start(context.Background(), StartRequest{Viewer: viewer(), GalleryID: "gal-1", AssetPaths: []string{"/a.jpg", "/b.jpg", "/c.jpg"}}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if videos.created[0].DurationSeconds != 5 {
		t.Fatalf("duration = %d, want default 5", videos.created[0].DurationSeconds)
	}
}

func TestStartSubmissionFailureKeepsQuotaSpent(t *testing.T) {
	// The quota is paid before the submission; a provider failure afterwards
	// does not refund it.
	store := &fakeGalleryStore{gallery: unlockedGallery(), settings: domain.TenantSettings{VideosEnabled: true}, remaining: 2}
	videos := &fakePredictions{createErr: errors.New("provider down")}
	o := NewOrchestrator(store, videos, &fakeAssets{data: jpegBytes(t)}, nil, nil)

	if _, err := o.Start(context.Background(), StartRequest{Viewer: viewer(), GalleryID: "gal-1", AssetPaths: []string{"/a.jpg", "/b.jpg", "/c.jpg"}}); err == nil {
		t.Fatalf("expected the provider failure to surface")
	}
	if store.consumeCalls != 1 {
		t.Fatalf("quota consume calls = %d, want 1 and no refund", store.consumeCalls)
	}
}

func TestPollNormalizesStarting(t *testing.T) {
	store := &fakeGalleryStore{gallery: unlockedGallery()}
	videos := &fakePredictions{getPred: &replicate.Prediction{ID: "pred-1", Status: "starting"}}
	o := NewOrchestrator(store, videos, &fakeAssets{}, nil, nil)

	result, err := o.Poll(context.Background(), viewer(), "gal-1", "pred-1")
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if result.Status != "submitted" {
		t.Fatalf("status = %q, want submitted", result.Status)
	}
}

func TestPollSucceededExtractsURL(t *testing.T) {
	store := &fakeGalleryStore{gallery: unlockedGallery()}
	videos := &fakePredictions{getPred: &replicate.Prediction{
		ID:     "pred-1",
		Status: "succeeded",
		Output: json.RawMessage(`["https://cdn.example.com/v.mp4"]`),
	}}
	o := NewOrchestrator(store, videos, &fakeAssets{}, nil, nil)

	result, err := o.Poll(context.Background(), viewer(), "gal-1", "pred-1")
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if result.VideoURL != "https://cdn.example.com/v.mp4" {
		t.Fatalf("video url = %q", result.VideoURL)
	}
}

func TestPollSucceededWithoutOutputErrors(t *testing.T) {
	store := &fakeGalleryStore{gallery: unlockedGallery()}
	videos := &fakePredictions{getPred: &replicate.Prediction{ID: "pred-1", Status: "succeeded", Output: json.RawMessage(`null`)}}
	o := NewOrchestrator(store, videos, &fakeAssets{}, nil, nil)

	if _, err := o.Poll(context.Background(), viewer(), "gal-1", "pred-1"); err == nil {
		t.Fatalf("succeeded prediction without output must error")
	}
}

func TestPollRequiresGalleryOwnership(t *testing.T) {
	store := &fakeGalleryStore{galleryErr: domain.ErrGalleryNotFound}
	videos := &fakePredictions{getPred: &replicate.Prediction{ID: "pred-1", Status: "processing"}}
	o := NewOrchestrator(store, videos, &fakeAssets{}, nil, nil)

	if _, err := o.Poll(context.Background(), viewer(), "gal-1", "pred-1"); !errors.Is(err, domain.ErrGalleryNotFound) {
		t.Fatalf("err = %v, want ErrGalleryNotFound", err)
	}
}
