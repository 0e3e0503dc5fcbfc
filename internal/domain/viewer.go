package domain

// Viewer describes the already-authenticated caller. Session and permission
// resolution happen upstream; handlers receive the result via middleware.
type Viewer struct {
	TenantID string
	Staff    bool
	Owner    bool
}

// Privileged reports whether the viewer may see unpublished or locked
// galleries without a shared-link flag.
func (v Viewer) Privileged() bool {
	return v.Staff || v.Owner
}
