package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"studioops/internal/domain"
	"studioops/internal/infra"
	"studioops/internal/sqlinline"
)

// Galleries reads and mutates the gallery metadata fields owned by the media
// and video-generation subsystem.
type Galleries struct {
	sql infra.SQLExecutor
}

func NewGalleries(sql infra.SQLExecutor) *Galleries {
	return &Galleries{sql: sql}
}

func (s *Galleries) Gallery(ctx context.Context, galleryID, tenantID string) (*domain.Gallery, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectGallery, galleryID, tenantID)
	var (
		g           domain.Gallery
		status      string
		foldersJSON []byte
		linksJSON   []byte
		startedAt   *time.Time
	)
	if err := row.Scan(
		&g.ID,
		&g.TenantID,
		&g.Title,
		&status,
		&g.Locked,
		&foldersJSON,
		&g.SharedLinkURL,
		&g.FirstAssetPath,
		&g.BaseFolderPath,
		&g.AIUnlocked,
		&g.AIUnlockType,
		&g.VideoQuota,
		&startedAt,
		&linksJSON,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrGalleryNotFound
		}
		return nil, err
	}
	g.Status = domain.GalleryStatus(status)
	g.GenerationStartedAt = startedAt
	if err := json.Unmarshal(foldersJSON, &g.AllowedFolders); err != nil {
		g.AllowedFolders = nil
	}
	if err := json.Unmarshal(linksJSON, &g.VideoLinks); err != nil {
		g.VideoLinks = nil
	}
	return &g, nil
}

// ConsumeVideoQuota decrements the gallery's remaining-generations counter and
// stamps the started marker. Returns the remaining count after the decrement,
// or domain.ErrVideoLimit when the counter was already at zero.
func (s *Galleries) ConsumeVideoQuota(ctx context.Context, galleryID, tenantID string) (int, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QConsumeVideoQuota, galleryID, tenantID)
	var remaining int
	if err := row.Scan(&remaining); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrVideoLimit
		}
		return 0, err
	}
	return remaining, nil
}

func (s *Galleries) AppendVideoLink(ctx context.Context, galleryID, tenantID, url string) error {
	_, err := s.sql.Exec(ctx, sqlinline.QAppendVideoLink, galleryID, tenantID, url)
	return err
}

func (s *Galleries) SetBaseFolder(ctx context.Context, galleryID, tenantID, path string) error {
	_, err := s.sql.Exec(ctx, sqlinline.QUpdateBaseFolder, galleryID, tenantID, path)
	return err
}

func (s *Galleries) TenantSettings(ctx context.Context, tenantID string) (domain.TenantSettings, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectTenantSettings, tenantID)
	var settings domain.TenantSettings
	if err := row.Scan(&settings.VideosEnabled, &settings.LogoURL); err != nil {
		return domain.TenantSettings{}, err
	}
	return settings, nil
}
