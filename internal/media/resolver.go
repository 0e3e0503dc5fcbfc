package media

import (
	"context"
	"path"
	"strings"

	"studioops/internal/domain"
)

// AssetRef is a resolved, fetchable asset reference. Immutable per request.
type AssetRef struct {
	GalleryID  string
	Path       string
	SharedLink string
	Provider   string
}

// ResolveRequest carries everything the guards need.
type ResolveRequest struct {
	Gallery    *domain.Gallery
	Viewer     domain.Viewer
	Path       string
	SharedLink string
	// Shared marks curated/shared-link requests, which bypass the publish,
	// lock, and folder-allow-list guards.
	Shared bool
}

// Resolve applies the access guards in order and returns a fetchable
// reference. Traversal is rejected before anything else, regardless of who is
// asking.
func Resolve(req ResolveRequest) (AssetRef, error) {
	p := strings.TrimSpace(req.Path)
	if HasTraversal(p) {
		return AssetRef{}, domain.ErrPathRejected
	}
	g := req.Gallery
	bypass := req.Viewer.Privileged() || req.Shared || req.SharedLink != ""
	if g.Status != domain.GalleryPublished && !bypass {
		return AssetRef{}, domain.ErrGalleryNotPublished
	}
	if g.Locked && !bypass {
		return AssetRef{}, domain.ErrGalleryLocked
	}
	if req.SharedLink == "" && !pathAllowed(p, g.AllowedFolders) {
		return AssetRef{}, domain.ErrUnauthorizedPath
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return AssetRef{
		GalleryID:  g.ID,
		Path:       p,
		SharedLink: req.SharedLink,
		Provider:   "dropbox",
	}, nil
}

// HasTraversal reports whether the path carries a parent-traversal or
// current-directory segment. Such paths are always rejected, for any caller.
func HasTraversal(p string) bool {
	normalized := strings.ReplaceAll(p, "\\", "/")
	for _, seg := range strings.Split(normalized, "/") {
		if seg == ".." || seg == "." {
			return true
		}
	}
	return false
}

// pathAllowed requires a case-insensitive prefix match against one of the
// gallery's allow-listed folders.
func pathAllowed(p string, folders []string) bool {
	lower := strings.ToLower(strings.TrimPrefix(p, "/"))
	for _, folder := range folders {
		prefix := strings.ToLower(strings.Trim(folder, "/"))
		if prefix == "" {
			continue
		}
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// LinkMetadataResolver looks up the provider path behind a shared link.
type LinkMetadataResolver interface {
	SharedLinkMetadata(ctx context.Context, tenantID, url string) (string, error)
}

// BaseFolder infers the gallery's base directory for the persistence relay.
// Priority: directory of the first asset, then the previously mapped folder,
// then a provider metadata lookup on the shared link, then root.
func BaseFolder(ctx context.Context, meta LinkMetadataResolver, tenantID string, g *domain.Gallery) string {
	if g.FirstAssetPath != "" {
		return path.Dir(g.FirstAssetPath)
	}
	if g.BaseFolderPath != "" {
		return g.BaseFolderPath
	}
	if g.SharedLinkURL != "" && meta != nil {
		if resolved, err := meta.SharedLinkMetadata(ctx, tenantID, g.SharedLinkURL); err == nil && resolved != "" {
			return resolved
		}
	}
	return ""
}
