package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

const (
	defaultTimeout = 60 * time.Second
	maxBodySize    = 1 << 20
)

// ErrBaseURLRequired is returned when no analysis service is configured
var ErrBaseURLRequired = errors.New("analyzer base URL is not configured")

// Client talks to the image-understanding service that reads reader replies
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// ClientOption is a function that configures the Client
type ClientOption func(*Client)

// WithBaseURL sets the service base URL
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithAPIKey sets a bearer token sent with every request
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New creates a new analyzer client
func New(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is a non-2xx response from the analysis service
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("analyzer error (status %d): %s", e.Status, e.Body)
}

// ImageInput is one image to analyze
type ImageInput struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Analysis is the service's reading of an image
type Analysis struct {
	Content   string `json:"content"`
	Sentiment string `json:"sentiment"`
}

// AnalyzeImage uploads an image as the multipart field "image"
// POST /analyze-image
func (c *Client) AnalyzeImage(ctx context.Context, in ImageInput) (*Analysis, error) {
	if len(in.Content) == 0 {
		return nil, fmt.Errorf("image %q is empty", in.Filename)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, in.Filename))
	contentType := in.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("creating image part: %w", err)
	}
	if _, err := part.Write(in.Content); err != nil {
		return nil, fmt.Errorf("writing image part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	var out Analysis
	if err := c.post(ctx, "/analyze-image", w.FormDataContentType(), &buf, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// EmailData is the set of headline rates sent along with a summary request
type EmailData struct {
	OpenRate        float64 `json:"openRate"`
	ClickRate       float64 `json:"clickRate"`
	UnsubscribeRate float64 `json:"unsubscribeRate"`
}

// SummaryInput represents input for a summary request
type SummaryInput struct {
	PostTitle string
	EmailData EmailData
	Analyses  []string
}

// GenerateSummary asks for an overall summary of the image analyses of a post.
// emailData and analyses are sent as JSON-encoded form fields.
// POST /generate-summary
func (c *Client) GenerateSummary(ctx context.Context, in SummaryInput) (string, error) {
	emailData, err := json.Marshal(in.EmailData)
	if err != nil {
		return "", fmt.Errorf("encoding email data: %w", err)
	}
	analyses := in.Analyses
	if analyses == nil {
		analyses = []string{}
	}
	analysesJSON, err := json.Marshal(analyses)
	if err != nil {
		return "", fmt.Errorf("encoding analyses: %w", err)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"postTitle", in.PostTitle},
		{"emailData", string(emailData)},
		{"analyses", string(analysesJSON)},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return "", fmt.Errorf("writing field %s: %w", f[0], err)
		}
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("closing multipart body: %w", err)
	}

	var out struct {
		Summary string `json:"summary"`
	}
	if err := c.post(ctx, "/generate-summary", w.FormDataContentType(), &buf, &out); err != nil {
		return "", err
	}

	return out.Summary, nil
}

func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader, out interface{}) error {
	if c.baseURL == "" {
		return ErrBaseURLRequired
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}
