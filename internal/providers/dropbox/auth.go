package dropbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"studioops/internal/domain"
)

// CredentialStore supplies and rewrites a tenant's storage-provider tokens.
type CredentialStore interface {
	Credential(ctx context.Context, tenantID, provider string) (*domain.StorageCredential, error)
	UpdateAccessToken(ctx context.Context, tenantID, provider, token string) error
}

// response is a fully drained provider reply. Bodies are read eagerly so the
// refresh-and-retry path never has to re-read a consumed stream.
type response struct {
	status int
	header http.Header
	body   []byte
}

func (r *response) ok() bool {
	return r.status >= 200 && r.status < 300
}

func (r *response) apiError() *APIError {
	var detail errorResponse
	if err := json.Unmarshal(r.body, &detail); err == nil && detail.ErrorSummary != "" {
		return &APIError{Status: r.status, Summary: detail.ErrorSummary}
	}
	return &APIError{Status: r.status, Summary: strings.TrimSpace(string(r.body))}
}

type buildFunc func(token string) (*http.Request, error)

// call performs an authorized provider call for the tenant. On an auth
// rejection with a refresh token present it runs exactly one token-refresh
// exchange, persists the new access token, and retries the original call
// exactly once. A second rejection is returned as-is; a failed refresh
// exchange is swallowed and the original rejection is returned.
func (c *Client) call(ctx context.Context, tenantID string, build buildFunc) (*response, error) {
	cred, err := c.creds.Credential(ctx, tenantID, ProviderTag)
	if err != nil {
		return nil, err
	}
	resp, err := c.roundTrip(ctx, build, cred.AccessToken)
	if err != nil {
		return nil, err
	}
	if !isAuthRejected(resp) || cred.RefreshToken == "" {
		return resp, nil
	}
	token, err := c.refreshAccessToken(ctx, cred.RefreshToken)
	if err != nil {
		c.logger.Warn().Err(err).Str("tenant_id", tenantID).Msg("dropbox: token refresh failed")
		return resp, nil
	}
	if err := c.creds.UpdateAccessToken(ctx, tenantID, ProviderTag, token); err != nil {
		c.logger.Warn().Err(err).Str("tenant_id", tenantID).Msg("dropbox: persisting refreshed token failed")
	}
	return c.roundTrip(ctx, build, token)
}

func (c *Client) roundTrip(ctx context.Context, build buildFunc, token string) (*response, error) {
	req, err := build(token)
	if err != nil {
		return nil, fmt.Errorf("dropbox: build request: %w", err)
	}
	resp, err := c.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("dropbox: http request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("dropbox: read response: %w", err)
	}
	return &response{status: resp.StatusCode, header: resp.Header, body: body}, nil
}

func isAuthRejected(r *response) bool {
	if r.status == http.StatusUnauthorized {
		return true
	}
	if r.status == http.StatusBadRequest {
		body := string(r.body)
		return strings.Contains(body, "invalid_access_token") || strings.Contains(body, "expired_access_token")
	}
	return false
}

func (c *Client) refreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", c.appKey)
	form.Set("client_secret", c.appSecret)

	endpoint := c.apiBase + "/oauth2/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("dropbox: build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("dropbox: refresh exchange: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("dropbox: read refresh response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("dropbox: refresh status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var decoded struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("dropbox: decode refresh response: %w", err)
	}
	token := strings.TrimSpace(decoded.AccessToken)
	if token == "" {
		return "", fmt.Errorf("dropbox: refresh returned empty access token")
	}
	return token, nil
}
