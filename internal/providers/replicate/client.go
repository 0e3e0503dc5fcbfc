package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"studioops/internal/domain"
	"studioops/internal/infra"
)

// ErrMissingAPIToken indicates that the client was configured without credentials.
var ErrMissingAPIToken = errors.New("replicate: api token is required")

// Options configures the generation-provider client.
type Options struct {
	APIToken       string
	BaseURL        string
	ModelVersion   string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the prediction API.
type Client struct {
	apiToken     string
	baseURL      string
	modelVersion string
	httpClient   *http.Client
	logger       *infra.Logger
}

// PredictionRequest captures the inputs for a video generation.
type PredictionRequest struct {
	Prompt          string
	ImageDataURI    string
	DurationSeconds int
}

// Prediction is the provider's job record. Output stays raw because its shape
// varies by model (string, array of strings, or object with a url).
type Prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.replicate.com"
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
		apiToken:     strings.TrimSpace(opts.APIToken),
		baseURL:      baseURL,
		modelVersion: strings.TrimSpace(opts.ModelVersion),
		httpClient:   httpClient,
		logger:       logger,
	}, nil
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiToken != ""
}

// inputSchemas lists the input-field-name variants tried in order. Some model
// versions name the conditioning image "start_image", others plain "image";
// the first shape the provider accepts wins.
var inputSchemas = []struct {
	imageField string
}{
	{imageField: "start_image"},
	{imageField: "image"},
}

// CreatePrediction submits a generation job, attempting each input schema in
// sequence. When every schema is rejected the last provider message is
// wrapped in domain.ErrSchemaRejected.
func (c *Client) CreatePrediction(ctx context.Context, req PredictionRequest) (*Prediction, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIToken
	}
	var lastErr error
	for _, schema := range inputSchemas {
		input := map[string]any{
			"prompt":          req.Prompt,
			"duration":        req.DurationSeconds,
			"aspect_ratio":    "9:16",
			"negative_prompt": "text, captions, watermarks, panning across a grid",
		}
		input[schema.imageField] = req.ImageDataURI
		payload := map[string]any{
			"version": c.modelVersion,
			"input":   input,
		}
		pred, err := c.submit(ctx, payload)
		if err == nil {
			return pred, nil
		}
		if !isSchemaRejection(err) {
			return nil, err
		}
		c.logger.Debug().Err(err).Str("image_field", schema.imageField).Msg("replicate: payload schema rejected")
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrSchemaRejected, lastErr)
}

// GetPrediction fetches a prediction by id; a pure read, safe to repeat.
func (c *Client) GetPrediction(ctx context.Context, id string) (*Prediction, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIToken
	}
	endpoint := c.baseURL + "/v1/predictions/" + id
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("replicate: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiToken)
	return c.decodePrediction(httpReq)
}

func (c *Client) submit(ctx context.Context, payload map[string]any) (*Prediction, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("replicate: encode request: %w", err)
	}
	endpoint := c.baseURL + "/v1/predictions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("replicate: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiToken)
	return c.decodePrediction(httpReq)
}

func (c *Client) decodePrediction(req *http.Request) (*Prediction, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("replicate: http request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("replicate: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var detail struct {
			Detail string `json:"detail"`
		}
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Detail != "" {
			return nil, &submissionError{status: resp.StatusCode, detail: detail.Detail}
		}
		return nil, &submissionError{status: resp.StatusCode, detail: strings.TrimSpace(string(raw))}
	}
	var pred Prediction
	if err := json.Unmarshal(raw, &pred); err != nil {
		return nil, fmt.Errorf("replicate: decode response: %w", err)
	}
	return &pred, nil
}

type submissionError struct {
	status int
	detail string
}

func (e *submissionError) Error() string {
	return fmt.Sprintf("replicate: status %d: %s", e.status, e.detail)
}

// isSchemaRejection treats 4xx validation failures as "try the next payload
// shape"; everything else (auth, 5xx, transport) fails immediately.
func isSchemaRejection(err error) bool {
	var sub *submissionError
	if !errors.As(err, &sub) {
		return false
	}
	return sub.status == http.StatusUnprocessableEntity || sub.status == http.StatusBadRequest
}

// FirstOutputURL extracts the first usable URL from a prediction output that
// may be a string, an array of strings, or an object carrying a url field.
func FirstOutputURL(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return strings.TrimSpace(asString)
	}
	var asList []json.RawMessage
	if err := json.Unmarshal(raw, &asList); err == nil {
		for _, item := range asList {
			if url := FirstOutputURL(item); url != "" {
				return url
			}
		}
		return ""
	}
	var asObject map[string]json.RawMessage
	if err := json.Unmarshal(raw, &asObject); err == nil {
		for _, key := range []string{"url", "video", "output"} {
			if inner, ok := asObject[key]; ok {
				if url := FirstOutputURL(inner); url != "" {
					return url
				}
			}
		}
	}
	return ""
}
