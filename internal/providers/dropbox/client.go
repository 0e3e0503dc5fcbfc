package dropbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"studioops/internal/infra"
)

// Options configures the storage-provider client.
type Options struct {
	AppKey         string
	AppSecret      string
	APIBaseURL     string
	ContentBaseURL string
	Credentials    CredentialStore
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls against the Dropbox v2 API on behalf of a
// tenant. Every call goes through the refresh-and-retry wrapper in auth.go.
type Client struct {
	appKey      string
	appSecret   string
	apiBase     string
	contentBase string
	creds       CredentialStore
	httpClient  *http.Client
	logger      *infra.Logger
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	if opts.Credentials == nil {
		return nil, fmt.Errorf("dropbox: credential store is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	apiBase := strings.TrimRight(opts.APIBaseURL, "/")
	if apiBase == "" {
		apiBase = "https://api.dropboxapi.com"
	}
	contentBase := strings.TrimRight(opts.ContentBaseURL, "/")
	if contentBase == "" {
		contentBase = "https://content.dropboxapi.com"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		appKey:      strings.TrimSpace(opts.AppKey),
		appSecret:   strings.TrimSpace(opts.AppSecret),
		apiBase:     apiBase,
		contentBase: contentBase,
		creds:       opts.Credentials,
		httpClient:  httpClient,
		logger:      logger,
	}, nil
}

// Thumbnail fetches the provider-rendered thumbnail for a path. The size is
// the provider's own size tag (e.g. "w640h480").
func (c *Client) Thumbnail(ctx context.Context, tenantID, path, size string) ([]byte, error) {
	arg := map[string]any{
		"resource": map[string]any{".tag": "path", "path": path},
		"format":   map[string]any{".tag": "jpeg"},
		"size":     map[string]any{".tag": size},
		"mode":     map[string]any{".tag": "strict"},
	}
	resp, err := c.call(ctx, tenantID, c.contentRequest("/2/files/get_thumbnail_v2", arg))
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, resp.apiError()
	}
	return resp.body, nil
}

// SharedLinkFile downloads a file addressed by a shared link plus a path
// relative to the link. Returns the raw bytes and the reported content type.
func (c *Client) SharedLinkFile(ctx context.Context, tenantID, sharedLink, path string) ([]byte, string, error) {
	arg := map[string]any{"url": sharedLink}
	if path != "" {
		arg["path"] = path
	}
	resp, err := c.call(ctx, tenantID, c.contentRequest("/2/sharing/get_shared_link_file", arg))
	if err != nil {
		return nil, "", err
	}
	if !resp.ok() {
		return nil, "", resp.apiError()
	}
	return resp.body, contentType(resp), nil
}

// Download fetches a full file by path.
func (c *Client) Download(ctx context.Context, tenantID, path string) ([]byte, string, error) {
	arg := map[string]any{"path": path}
	resp, err := c.call(ctx, tenantID, c.contentRequest("/2/files/download", arg))
	if err != nil {
		return nil, "", err
	}
	if !resp.ok() {
		return nil, "", resp.apiError()
	}
	return resp.body, contentType(resp), nil
}

// CreateFolder creates a folder, treating the provider's "already exists"
// conflict as success.
func (c *Client) CreateFolder(ctx context.Context, tenantID, path string) error {
	resp, err := c.call(ctx, tenantID, c.apiRequest("/2/files/create_folder_v2", map[string]any{
		"path":       path,
		"autorename": false,
	}))
	if err != nil {
		return err
	}
	if resp.ok() {
		return nil
	}
	if resp.status == http.StatusConflict || strings.Contains(string(resp.body), "conflict") {
		return nil
	}
	return resp.apiError()
}

// SaveURL asks the provider to fetch a URL server-side into the given path.
func (c *Client) SaveURL(ctx context.Context, tenantID, path, fetchURL string) (SaveURLResult, error) {
	resp, err := c.call(ctx, tenantID, c.apiRequest("/2/files/save_url", map[string]any{
		"path": path,
		"url":  fetchURL,
	}))
	if err != nil {
		return SaveURLResult{}, err
	}
	if !resp.ok() {
		return SaveURLResult{}, resp.apiError()
	}
	return decodeSaveURL(resp.body)
}

// CheckSaveURLJob polls the status of an asynchronous save-by-URL job.
func (c *Client) CheckSaveURLJob(ctx context.Context, tenantID, jobID string) (SaveURLResult, error) {
	resp, err := c.call(ctx, tenantID, c.apiRequest("/2/files/save_url/check_job_status", map[string]any{
		"async_job_id": jobID,
	}))
	if err != nil {
		return SaveURLResult{}, err
	}
	if !resp.ok() {
		return SaveURLResult{}, resp.apiError()
	}
	return decodeSaveURL(resp.body)
}

// CreateSharedLink creates a shared link for a path. Returns
// ErrSharedLinkExists when the provider reports the link already exists.
func (c *Client) CreateSharedLink(ctx context.Context, tenantID, path string) (string, error) {
	resp, err := c.call(ctx, tenantID, c.apiRequest("/2/sharing/create_shared_link_with_settings", map[string]any{
		"path": path,
	}))
	if err != nil {
		return "", err
	}
	if !resp.ok() {
		if strings.Contains(string(resp.body), "shared_link_already_exists") {
			return "", ErrSharedLinkExists
		}
		return "", resp.apiError()
	}
	var decoded struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(resp.body, &decoded); err != nil {
		return "", fmt.Errorf("dropbox: decode shared link: %w", err)
	}
	return decoded.URL, nil
}

// ListSharedLinks returns the existing shared-link URLs for a path.
func (c *Client) ListSharedLinks(ctx context.Context, tenantID, path string) ([]string, error) {
	resp, err := c.call(ctx, tenantID, c.apiRequest("/2/sharing/list_shared_links", map[string]any{
		"path":        path,
		"direct_only": true,
	}))
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, resp.apiError()
	}
	var decoded struct {
		Links []struct {
			URL string `json:"url"`
		} `json:"links"`
	}
	if err := json.Unmarshal(resp.body, &decoded); err != nil {
		return nil, fmt.Errorf("dropbox: decode shared links: %w", err)
	}
	urls := make([]string, 0, len(decoded.Links))
	for _, l := range decoded.Links {
		if l.URL != "" {
			urls = append(urls, l.URL)
		}
	}
	return urls, nil
}

// SharedLinkMetadata resolves the provider path behind a shared link. Used by
// the base-directory inference chain.
func (c *Client) SharedLinkMetadata(ctx context.Context, tenantID, sharedLink string) (string, error) {
	resp, err := c.call(ctx, tenantID, c.apiRequest("/2/sharing/get_shared_link_metadata", map[string]any{
		"url": sharedLink,
	}))
	if err != nil {
		return "", err
	}
	if !resp.ok() {
		return "", resp.apiError()
	}
	var decoded struct {
		PathLower string `json:"path_lower"`
	}
	if err := json.Unmarshal(resp.body, &decoded); err != nil {
		return "", fmt.Errorf("dropbox: decode link metadata: %w", err)
	}
	return decoded.PathLower, nil
}

func (c *Client) apiRequest(endpoint string, payload any) buildFunc {
	return func(token string) (*http.Request, error) {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequest(http.MethodPost, c.apiBase+endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		return req, nil
	}
}

// contentRequest targets the content host; the argument travels in the
// Dropbox-API-Arg header and the body stays empty.
func (c *Client) contentRequest(endpoint string, arg any) buildFunc {
	return func(token string) (*http.Request, error) {
		encoded, err := json.Marshal(arg)
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequest(http.MethodPost, c.contentBase+endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Dropbox-API-Arg", string(encoded))
		req.Header.Set("Authorization", "Bearer "+token)
		return req, nil
	}
}

func decodeSaveURL(raw []byte) (SaveURLResult, error) {
	var decoded saveURLResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return SaveURLResult{}, fmt.Errorf("dropbox: decode save_url response: %w", err)
	}
	return decoded.toResult(), nil
}

func contentType(r *response) string {
	ct := r.header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}
	return ct
}
