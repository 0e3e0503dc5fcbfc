package videogen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"studioops/internal/domain"
	"studioops/internal/infra"
	"studioops/internal/media"
	"studioops/internal/providers/dropbox"
)

// StorageRelay is the slice of the storage provider the relay needs.
type StorageRelay interface {
	media.LinkMetadataResolver
	CreateFolder(ctx context.Context, tenantID, path string) error
	SaveURL(ctx context.Context, tenantID, path, fetchURL string) (dropbox.SaveURLResult, error)
	CheckSaveURLJob(ctx context.Context, tenantID, jobID string) (dropbox.SaveURLResult, error)
	CreateSharedLink(ctx context.Context, tenantID, path string) (string, error)
	ListSharedLinks(ctx context.Context, tenantID, path string) ([]string, error)
}

// Relay hands a finished video to the storage provider's server-side fetch
// job and turns the final path into a durable share link. It exists only for
// the duration of a single poll request.
type Relay struct {
	storage  StorageRelay
	store    GalleryStore
	interval time.Duration
	ceiling  time.Duration
	logger   *infra.Logger
}

func NewRelay(storage StorageRelay, store GalleryStore, interval, ceiling time.Duration, logger *infra.Logger) *Relay {
	if interval <= 0 {
		interval = 1500 * time.Millisecond
	}
	if ceiling <= 0 {
		ceiling = 2 * time.Minute
	}
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Relay{storage: storage, store: store, interval: interval, ceiling: ceiling, logger: logger}
}

// Relay moves the provider-hosted video into the tenant's own storage and
// returns the durable share URL. The caller degrades to the raw video URL
// when this fails; generation success is never hidden by a relay failure.
func (r *Relay) Relay(ctx context.Context, tenantID string, gallery *domain.Gallery, videoURL string) (string, error) {
	base := media.BaseFolder(ctx, r.storage, tenantID, gallery)
	if base != "" && gallery.FirstAssetPath == "" && gallery.BaseFolderPath == "" {
		// The base came from a provider metadata lookup; remember it so the
		// next relay skips that round trip.
		if err := r.store.SetBaseFolder(ctx, gallery.ID, tenantID, base); err != nil {
			r.logger.Warn().Err(err).Str("gallery_id", gallery.ID).Msg("relay: persisting base folder failed")
		}
	}
	folder := path.Join(base, "AI Videos")
	if !strings.HasPrefix(folder, "/") {
		folder = "/" + folder
	}
	filename := fmt.Sprintf("%s-%s.mp4", sanitizeName(gallery.Title), time.Now().UTC().Format("20060102-150405"))
	dest := path.Join(folder, filename)

	// Best-effort: the folder usually exists after the first relay, and the
	// provider reports that as a tolerated conflict.
	if err := r.storage.CreateFolder(ctx, tenantID, folder); err != nil {
		r.logger.Warn().Err(err).Str("folder", folder).Msg("relay: folder create failed")
	}

	result, err := r.storage.SaveURL(ctx, tenantID, dest, videoURL)
	if err != nil {
		return "", err
	}
	finalPath := dest
	switch result.Tag {
	case dropbox.SaveURLComplete:
		if result.Path != "" {
			finalPath = result.Path
		}
	case dropbox.SaveURLAsyncJob:
		finalPath, err = r.awaitSaveJob(ctx, tenantID, result.AsyncJobID, dest)
		if err != nil {
			return "", err
		}
	case dropbox.SaveURLFailed:
		return "", fmt.Errorf("relay: save_url failed: %s", result.Reason)
	default:
		return "", fmt.Errorf("relay: unexpected save_url tag %q", result.Tag)
	}

	shareURL, err := r.shareLink(ctx, tenantID, finalPath)
	if err != nil {
		return "", err
	}
	if err := r.store.AppendVideoLink(ctx, gallery.ID, tenantID, shareURL); err != nil {
		r.logger.Warn().Err(err).Str("gallery_id", gallery.ID).Msg("relay: recording video link failed")
	}
	return shareURL, nil
}

// awaitSaveJob polls the save job on a fixed interval up to the wall-clock
// ceiling. Exceeding the ceiling is a structured timeout, never a hang.
func (r *Relay) awaitSaveJob(ctx context.Context, tenantID, jobID, fallbackPath string) (string, error) {
	deadline := time.Now().Add(r.ceiling)
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(r.interval):
		}
		if time.Now().After(deadline) {
			return "", domain.ErrRelayTimeout
		}
		result, err := r.storage.CheckSaveURLJob(ctx, tenantID, jobID)
		if err != nil {
			return "", err
		}
		switch result.Tag {
		case dropbox.SaveURLComplete:
			if result.Path != "" {
				return result.Path, nil
			}
			return fallbackPath, nil
		case dropbox.SaveURLFailed:
			return "", fmt.Errorf("relay: save job failed: %s", result.Reason)
		default:
			// in progress
		}
	}
}

// shareLink creates a shared link for the final path, reusing an existing
// link when the provider reports the "already shared" conflict. Calling this
// twice for the same path yields the same URL.
func (r *Relay) shareLink(ctx context.Context, tenantID, finalPath string) (string, error) {
	url, err := r.storage.CreateSharedLink(ctx, tenantID, finalPath)
	if err == nil {
		return url, nil
	}
	if !errors.Is(err, dropbox.ErrSharedLinkExists) {
		return "", err
	}
	existing, err := r.storage.ListSharedLinks(ctx, tenantID, finalPath)
	if err != nil {
		return "", err
	}
	if len(existing) == 0 {
		return "", fmt.Errorf("relay: shared link reported existing but none listed for %s", finalPath)
	}
	return existing[0], nil
}

var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// sanitizeName folds a gallery title into a provider-safe file name stem.
func sanitizeName(title string) string {
	stripped, _, err := transform.String(diacriticStripper, title)
	if err != nil {
		stripped = title
	}
	var b strings.Builder
	lastDash := true
	for _, r := range stripped {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteRune('-')
				lastDash = true
			}
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "gallery"
	}
	return out
}
