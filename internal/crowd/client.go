// Package crowd is a client for the crowdsourcing platform used to collect
// relevance judgments. Jobs are created by copying a template job (which
// carries the task design and gold questions), task rows are uploaded as
// JSON lines, and finished judgments are downloaded as a zipped JSON-lines
// report.
package crowd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/araddon/dateparse"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/opencatalog/arcs/internal/core/domain"
	apperrors "github.com/opencatalog/arcs/internal/core/errors"
)

const (
	// PlatformName identifies this platform in persisted jobs.
	PlatformName = "crowdflower"

	defaultBaseURL = "https://api.crowdflower.com/v1"
	defaultTimeout = 60 * time.Second
	defaultRPM     = 30

	secondsPerMinute = 60
)

// Config holds crowdsourcing client configuration.
type Config struct {
	APIKey  string
	BaseURL string

	// TemplateJobID is the job whose design and gold questions new jobs
	// are copied from.
	TemplateJobID int64

	Timeout        time.Duration
	RequestsPerMin int
}

// Client talks to the crowdsourcing platform's REST API.
type Client struct {
	apiKey        string
	baseURL       string
	templateJobID int64
	httpClient    *http.Client
	rateLimiter   *rate.Limiter
	log           zerolog.Logger
}

// NewClient creates a crowdsourcing client.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	rpm := cfg.RequestsPerMin
	if rpm <= 0 {
		rpm = defaultRPM
	}

	return &Client{
		apiKey:        cfg.APIKey,
		baseURL:       baseURL,
		templateJobID: cfg.TemplateJobID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		rateLimiter: rate.NewLimiter(rate.Limit(float64(rpm)/secondsPerMinute), 1),
		log:         log.With().Str("component", "crowd").Logger(),
	}
}

// TaskRow is one unit of work shown to raters: a query and one search result
// to judge. ResultID rides along so downloaded judgments never need to parse
// it back out of the link.
type TaskRow struct {
	Domain      string `json:"domain"`
	Query       string `json:"query"`
	Position    int    `json:"result_position"`
	ResultID    string `json:"result_fxf"`
	Name        string `json:"name"`
	Link        string `json:"link"`
	Description string `json:"description"`
}

func (c *Client) do(ctx context.Context, method, rawURL string, body io.Reader, contentType string) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("crowd rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("create crowd request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("crowd request: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read crowd response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("crowd status %d: %w", resp.StatusCode, apperrors.ErrUnexpectedStatus)
	}

	return payload, nil
}

func (c *Client) endpoint(path string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}

	params.Set("key", c.apiKey)

	return c.baseURL + path + "?" + params.Encode()
}

// CreateJobFromCopy creates a new job by copying the template job, carrying
// over its gold questions.
func (c *Client) CreateJobFromCopy(ctx context.Context) (domain.Job, error) {
	params := url.Values{}
	params.Set("gold", "true")

	path := fmt.Sprintf("/jobs/%d/copy.json", c.templateJobID)

	payload, err := c.do(ctx, http.MethodGet, c.endpoint(path, params), nil, "")
	if err != nil {
		return domain.Job{}, fmt.Errorf("copy job %d: %w", c.templateJobID, err)
	}

	job, err := jobFromJSON(payload)
	if err != nil {
		return domain.Job{}, err
	}

	c.log.Info().Str("external_id", job.ExternalID).Msg("created job from template")

	return job, nil
}

// Upload adds task rows to a job as JSON lines.
func (c *Client) Upload(ctx context.Context, externalJobID string, rows []TaskRow) error {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("encode task row: %w", err)
		}
	}

	params := url.Values{}
	params.Set("force", "true")

	path := fmt.Sprintf("/jobs/%s/upload.json", url.PathEscape(externalJobID))

	if _, err := c.do(ctx, http.MethodPut, c.endpoint(path, params), &buf, "application/json"); err != nil {
		return fmt.Errorf("upload %d rows to job %s: %w", len(rows), externalJobID, err)
	}

	c.log.Info().Str("external_id", externalJobID).Int("rows", len(rows)).Msg("uploaded task rows")

	return nil
}

// Job fetches the platform's current view of a job.
func (c *Client) Job(ctx context.Context, externalJobID string) (domain.Job, error) {
	path := fmt.Sprintf("/jobs/%s.json", url.PathEscape(externalJobID))

	payload, err := c.do(ctx, http.MethodGet, c.endpoint(path, nil), nil, "")
	if err != nil {
		return domain.Job{}, fmt.Errorf("get job %s: %w", externalJobID, err)
	}

	return jobFromJSON(payload)
}

// jobFromJSON converts the platform's job payload into a Job, keeping the
// full payload as metadata.
func jobFromJSON(payload []byte) (domain.Job, error) {
	var metadata map[string]any
	if err := json.Unmarshal(payload, &metadata); err != nil {
		return domain.Job{}, fmt.Errorf("parse job json: %w", err)
	}

	job := domain.Job{
		Platform: PlatformName,
		Metadata: metadata,
	}

	switch id := metadata["id"].(type) {
	case float64:
		job.ExternalID = strconv.FormatInt(int64(id), 10)
	case string:
		job.ExternalID = id
	}

	if created, ok := metadata["created_at"].(string); ok {
		if ts, err := dateparse.ParseAny(created); err == nil {
			job.CreatedAt = ts
		}
	}

	if completed, ok := metadata["completed_at"].(string); ok && completed != "" {
		if ts, err := dateparse.ParseAny(completed); err == nil {
			job.CompletedAt = ts
		}
	}

	return job, nil
}
