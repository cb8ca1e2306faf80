package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadim/beehiiv-metric/internal/httpx/upstream/beehiiv"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeForwarder struct {
	resp  *beehiiv.Response
	err   error
	creds beehiiv.Credentials
	path  string
	query url.Values
}

func (f *fakeForwarder) Forward(_ context.Context, creds beehiiv.Credentials, path string, query url.Values) (*beehiiv.Response, error) {
	f.creds, f.path, f.query = creds, path, query
	return f.resp, f.err
}

func proxyRouter(f *fakeForwarder, defaults beehiiv.Credentials) http.Handler {
	r := chi.NewRouter()
	h := NewProxyHandler(f, NewCredentialResolver(nil, defaults, discard), discard)
	r.Route("/api", h.RegisterRoutes)
	return r
}

func TestProxyWithoutAPIKey(t *testing.T) {
	f := &fakeForwarder{}
	rec := httptest.NewRecorder()
	proxyRouter(f, beehiiv.Credentials{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/publications/pub_1/posts", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Beehiiv API key not set in environment variables"}`, rec.Body.String())
	assert.Empty(t, f.path)
}

func TestProxyPassesSuccessThrough(t *testing.T) {
	f := &fakeForwarder{resp: &beehiiv.Response{
		Status:      http.StatusOK,
		ContentType: "application/json; charset=utf-8",
		Body:        []byte(`{"data":{"id":"post_1"}}`),
	}}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/publications/pub_1/posts/post_1?expand=stats&foo=bar", nil)
	proxyRouter(f, beehiiv.Credentials{APIKey: "server-key"}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"data":{"id":"post_1"}}`, rec.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	assert.Equal(t, "server-key", f.creds.APIKey)
	assert.Equal(t, "/publications/pub_1/posts/post_1", f.path)
	assert.Equal(t, url.Values{"expand": {"stats"}}, f.query)
}

func TestProxyHeaderKeyWins(t *testing.T) {
	f := &fakeForwarder{resp: &beehiiv.Response{Status: http.StatusOK, Body: []byte(`{}`)}}
	req := httptest.NewRequest(http.MethodGet, "/api/publications/pub_1/posts", nil)
	req.Header.Set(HeaderAPIKey, "client-key")
	proxyRouter(f, beehiiv.Credentials{APIKey: "server-key"}).ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "client-key", f.creds.APIKey)
}

func TestProxyUpstreamErrors(t *testing.T) {
	tests := []struct {
		name     string
		resp     *beehiiv.Response
		err      error
		path     string
		wantCode int
		wantBody string
	}{
		{
			name:     "json error body is embedded",
			resp:     &beehiiv.Response{Status: http.StatusUnauthorized, Body: []byte(`{"errors":[{"message":"Unauthorized"}]}`)},
			path:     "/api/publications/pub_1/posts",
			wantCode: http.StatusUnauthorized,
			wantBody: `{"error":{"errors":[{"message":"Unauthorized"}]}}`,
		},
		{
			name:     "text error body is kept as text",
			resp:     &beehiiv.Response{Status: http.StatusBadGateway, Body: []byte("upstream down\n")},
			path:     "/api/publications/pub_1/posts/p",
			wantCode: http.StatusBadGateway,
			wantBody: `{"error":"upstream down"}`,
		},
		{
			name:     "empty error body falls back",
			resp:     &beehiiv.Response{Status: http.StatusNotFound},
			path:     "/api/publications/pub_1/posts/p",
			wantCode: http.StatusNotFound,
			wantBody: `{"error":"Failed to fetch post from Beehiiv API"}`,
		},
		{
			name:     "transport failure on list",
			err:      errors.New("dial tcp: connection refused"),
			path:     "/api/publications/pub_1/posts",
			wantCode: http.StatusInternalServerError,
			wantBody: `{"error":"Failed to fetch posts from Beehiiv API"}`,
		},
		{
			name:     "transport failure on single post",
			err:      errors.New("timeout"),
			path:     "/api/publications/pub_1/posts/p",
			wantCode: http.StatusInternalServerError,
			wantBody: `{"error":"Failed to fetch post from Beehiiv API"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeForwarder{resp: tt.resp, err: tt.err}
			rec := httptest.NewRecorder()
			proxyRouter(f, beehiiv.Credentials{APIKey: "k"}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			require.NotEmpty(t, rec.Body.String())
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}
