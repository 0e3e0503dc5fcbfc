package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"studioops/internal/infra"
	"studioops/internal/providers/dropbox"
)

// TransformSpec describes the requested rendition. The size is clamped to a
// supported bucket before any provider call; unsupported inputs are coerced,
// never rejected.
type TransformSpec struct {
	Size      string
	Watermark bool
	LogoURL   string
}

// Result is the transformed asset. Immutable is false only on the degraded
// fallback path, where the original content type is preserved and long-lived
// caching would be wrong.
type Result struct {
	Data        []byte
	ContentType string
	Immutable   bool
}

// StorageFetcher is the slice of the storage provider the pipeline needs.
type StorageFetcher interface {
	Thumbnail(ctx context.Context, tenantID, path, size string) ([]byte, error)
	SharedLinkFile(ctx context.Context, tenantID, sharedLink, path string) ([]byte, string, error)
	Download(ctx context.Context, tenantID, path string) ([]byte, string, error)
}

// Transformer fetches, resizes, watermarks, and recompresses gallery assets.
type Transformer struct {
	storage    StorageFetcher
	logos      ByteCache
	httpClient *http.Client
	logger     *infra.Logger
}

func NewTransformer(storage StorageFetcher, logos ByteCache, httpClient *http.Client, logger *infra.Logger) *Transformer {
	if logos == nil {
		logos = NewTTLCache(15 * time.Minute)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Transformer{storage: storage, logos: logos, httpClient: httpClient, logger: logger}
}

// FetchTransformed resolves the reference into display bytes. The provider's
// native thumbnail endpoint is the primary path; when it rejects the resource
// (common for shared-link assets) the full file is fetched and resized
// locally instead.
func (t *Transformer) FetchTransformed(ctx context.Context, tenantID string, ref AssetRef, spec TransformSpec) (*Result, error) {
	size := ClampSize(spec.Size)

	data, err := t.storage.Thumbnail(ctx, tenantID, ref.Path, size)
	if err == nil {
		if spec.Watermark && spec.LogoURL != "" {
			data = t.watermarked(ctx, data, imaging.JPEG, spec.LogoURL)
		}
		return &Result{Data: data, ContentType: "image/jpeg", Immutable: true}, nil
	}
	var apiErr *dropbox.APIError
	if !errors.As(err, &apiErr) {
		return nil, err
	}
	t.logger.Debug().Err(err).Str("path", ref.Path).Msg("media: thumbnail rejected, falling back to full fetch")
	return t.fetchFallback(ctx, tenantID, ref, size, spec)
}

func (t *Transformer) fetchFallback(ctx context.Context, tenantID string, ref AssetRef, size string, spec TransformSpec) (*Result, error) {
	var (
		raw []byte
		ct  string
		err error
	)
	if ref.SharedLink != "" {
		raw, ct, err = t.storage.SharedLinkFile(ctx, tenantID, ref.SharedLink, ref.Path)
	} else {
		raw, ct, err = t.storage.Download(ctx, tenantID, ref.Path)
	}
	if err != nil {
		return nil, err
	}

	format, ok := formatForContentType(ct)
	if !ok {
		return &Result{Data: raw, ContentType: ct}, nil
	}
	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return &Result{Data: raw, ContentType: ct}, nil
	}
	w, h := bucketDims(size)
	resized := imaging.Fit(img, w, h, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format, imaging.JPEGQuality(85)); err != nil {
		return &Result{Data: raw, ContentType: ct}, nil
	}
	data := buf.Bytes()
	if spec.Watermark && spec.LogoURL != "" {
		data = t.watermarked(ctx, data, format, spec.LogoURL)
	}
	return &Result{Data: data, ContentType: ct}, nil
}

// watermarked overlays the tenant's logo at reduced opacity. Any failure
// degrades to the unwatermarked input; a missing watermark must never fail
// the request.
func (t *Transformer) watermarked(ctx context.Context, base []byte, format imaging.Format, logoURL string) []byte {
	logoBytes, err := t.fetchLogo(ctx, logoURL)
	if err != nil {
		t.logger.Warn().Err(err).Str("logo_url", logoURL).Msg("media: logo fetch failed")
		return base
	}
	baseImg, err := imaging.Decode(bytes.NewReader(base))
	if err != nil {
		return base
	}
	logo, err := imaging.Decode(bytes.NewReader(logoBytes))
	if err != nil {
		t.logger.Warn().Err(err).Str("logo_url", logoURL).Msg("media: logo decode failed")
		return base
	}
	bounds := baseImg.Bounds()
	fitted := imaging.Fit(logo, bounds.Dx()/3, bounds.Dy()/3, imaging.Lanczos)
	composed := imaging.OverlayCenter(baseImg, fitted, 0.35)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, composed, format, imaging.JPEGQuality(85)); err != nil {
		return base
	}
	return buf.Bytes()
}

func (t *Transformer) fetchLogo(ctx context.Context, logoURL string) ([]byte, error) {
	if data, ok := t.logos.Get(logoURL); ok {
		return data, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, logoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("media: build logo request: %w", err)
	}
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("media: fetch logo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("media: logo status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("media: read logo: %w", err)
	}
	t.logos.Set(logoURL, data)
	return data, nil
}

func formatForContentType(ct string) (imaging.Format, bool) {
	switch strings.ToLower(strings.TrimSpace(strings.Split(ct, ";")[0])) {
	case "image/jpeg", "image/jpg":
		return imaging.JPEG, true
	case "image/png":
		return imaging.PNG, true
	case "image/gif":
		return imaging.GIF, true
	case "image/bmp":
		return imaging.BMP, true
	case "image/tiff":
		return imaging.TIFF, true
	default:
		return imaging.JPEG, false
	}
}
