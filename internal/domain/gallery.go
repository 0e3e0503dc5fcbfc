package domain

import "time"

type GalleryStatus string

const (
	GalleryDraft     GalleryStatus = "draft"
	GalleryPublished GalleryStatus = "published"
)

// Unlock types for the AI video suite. Trial unlocks bypass the tenant-level
// feature toggle; paid unlocks do not.
const (
	UnlockTypeTrial = "trial"
	UnlockTypePaid  = "paid"
)

// Gallery carries the slice of gallery metadata this subsystem reads and
// writes. The full gallery record (client, booking, expiry, cover, ...) is
// owned by the CRUD layer and never travels through here.
type Gallery struct {
	ID             string
	TenantID       string
	Title          string
	Status         GalleryStatus
	Locked         bool
	AllowedFolders []string
	SharedLinkURL  string
	FirstAssetPath string
	BaseFolderPath string

	AIUnlocked          bool
	AIUnlockType        string
	VideoQuota          int
	GenerationStartedAt *time.Time
	VideoLinks          []string
}

// TenantSettings is the tenant-level slice relevant to media delivery:
// whether AI videos are switched on and which logo to watermark with.
type TenantSettings struct {
	VideosEnabled bool
	LogoURL       string
}
