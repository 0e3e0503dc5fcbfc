package domain

// StorageCredential holds a tenant's OAuth tokens for the storage provider.
// The access token is rewritten in place after a successful refresh exchange;
// the refresh token never changes here.
type StorageCredential struct {
	TenantID     string
	Provider     string
	AccessToken  string
	RefreshToken string
}
