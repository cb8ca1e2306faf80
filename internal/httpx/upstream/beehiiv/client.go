package beehiiv

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vadim/beehiiv-metric/internal/domain/post/entity"
)

const (
	defaultBaseURL = "https://api.beehiiv.com/v2"
	defaultTimeout = 30 * time.Second
	maxBodySize    = 20 << 20
)

// Credentials identify the caller to the Beehiiv API.
// They are passed explicitly to every call; the client holds none.
type Credentials struct {
	APIKey        string `json:"api_key" validate:"required"`
	PublicationID string `json:"publication_id" validate:"required"`
}

// Client is a Beehiiv REST API client
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption is a function that configures the Client
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the HTTP client timeout
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// New creates a new Beehiiv API client
func New(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is a non-2xx response from the Beehiiv API
type APIError struct {
	Status int
	Body   []byte
	// Path is the API path that was requested
	Path string
}

// SinglePost reports whether the failed request addressed one post rather than a listing
func (e *APIError) SinglePost() bool {
	return !strings.HasSuffix(e.Path, "/posts")
}

func (e *APIError) Error() string {
	return fmt.Sprintf("beehiiv API error (status %d): %s", e.Status, strings.TrimSpace(string(e.Body)))
}

// Response is a raw upstream response
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// PostsPath returns the API path of a publication's posts, or of one post when postID is set
func PostsPath(publicationID, postID string) string {
	p := "/publications/" + url.PathEscape(publicationID) + "/posts"
	if postID != "" {
		p += "/" + url.PathEscape(postID)
	}
	return p
}

// Forward performs a GET against the API and returns the upstream response as is.
// Only transport failures are returned as errors; non-2xx statuses are not.
func (c *Client) Forward(ctx context.Context, creds Credentials, path string, query url.Values) (*Response, error) {
	if creds.APIKey == "" {
		return nil, entity.ErrAPIKeyRequired
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+creds.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return &Response{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// ListPostsInput represents input for listing posts
type ListPostsInput struct {
	Credentials Credentials
	Expand      []string
	Limit       int
	Page        int
}

// ListPosts lists the posts of the publication in the credentials
// GET /publications/{publicationId}/posts
func (c *Client) ListPosts(ctx context.Context, in ListPostsInput) (*entity.PostList, error) {
	if in.Credentials.PublicationID == "" {
		return nil, entity.ErrPublicationIDRequired
	}

	params := url.Values{}
	for _, e := range in.Expand {
		params.Add("expand[]", e)
	}
	if in.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", in.Limit))
	}
	if in.Page > 0 {
		params.Set("page", fmt.Sprintf("%d", in.Page))
	}

	var out entity.PostList
	if err := c.get(ctx, in.Credentials, PostsPath(in.Credentials.PublicationID, ""), params, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		out.Data = []entity.Post{}
	}

	return &out, nil
}

// GetPostInput represents input for getting a single post
type GetPostInput struct {
	Credentials Credentials
	PostID      string
	Expand      []string
}

// GetPost retrieves one post, typically with Expand: []string{"stats"}
// GET /publications/{publicationId}/posts/{postId}
func (c *Client) GetPost(ctx context.Context, in GetPostInput) (*entity.Post, error) {
	if in.Credentials.PublicationID == "" {
		return nil, entity.ErrPublicationIDRequired
	}
	if in.PostID == "" {
		return nil, entity.ErrPostIDRequired
	}

	params := url.Values{}
	for _, e := range in.Expand {
		params.Add("expand", e)
	}

	var out struct {
		Data entity.Post `json:"data"`
	}
	if err := c.get(ctx, in.Credentials, PostsPath(in.Credentials.PublicationID, in.PostID), params, &out); err != nil {
		return nil, err
	}

	return &out.Data, nil
}

// get executes a GET request and decodes a 2xx response into out
func (c *Client) get(ctx context.Context, creds Credentials, path string, query url.Values, out interface{}) error {
	resp, err := c.Forward(ctx, creds, path, query)
	if err != nil {
		return err
	}

	if resp.Status == http.StatusNotFound {
		return fmt.Errorf("%w: %w", entity.ErrPostNotFound, &APIError{Status: resp.Status, Body: resp.Body, Path: path})
	}
	if resp.Status >= 300 {
		return &APIError{Status: resp.Status, Body: resp.Body, Path: path}
	}

	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}
