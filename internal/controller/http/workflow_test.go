package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadim/beehiiv-metric/internal/domain/metrics"
	postentity "github.com/vadim/beehiiv-metric/internal/domain/post/entity"
	"github.com/vadim/beehiiv-metric/internal/domain/report/entity"
	"github.com/vadim/beehiiv-metric/internal/domain/report/policy"
	"github.com/vadim/beehiiv-metric/internal/domain/report/service"
	"github.com/vadim/beehiiv-metric/internal/export"
	"github.com/vadim/beehiiv-metric/internal/httpx/upstream/beehiiv"
	"github.com/vadim/beehiiv-metric/internal/session"
)

type fakePosts struct {
	mu    sync.Mutex
	posts map[string]postentity.Post
	creds []beehiiv.Credentials
}

func (f *fakePosts) ListPosts(_ context.Context, in beehiiv.ListPostsInput) (*postentity.PostList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creds = append(f.creds, in.Credentials)
	out := &postentity.PostList{}
	for _, id := range []string{"post_1", "post_2"} {
		if p, ok := f.posts[id]; ok {
			out.Data = append(out.Data, p)
		}
	}
	return out, nil
}

func (f *fakePosts) GetPost(_ context.Context, in beehiiv.GetPostInput) (*postentity.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creds = append(f.creds, in.Credentials)
	p, ok := f.posts[in.PostID]
	if !ok {
		return nil, fmt.Errorf("%w: %w", postentity.ErrPostNotFound, &beehiiv.APIError{Status: 404})
	}
	return &p, nil
}

type fakeImageAnalyzer struct{ fail bool }

func (f fakeImageAnalyzer) AnalyzeImage(_ context.Context, img entity.UploadedImage) (*entity.Analysis, error) {
	if f.fail {
		return nil, errors.New("service down")
	}
	return &entity.Analysis{Content: "Reader says thanks", Sentiment: "positive"}, nil
}

type fakeSummaries struct{ calls int }

func (f *fakeSummaries) GenerateSummary(_ context.Context, in policy.SummaryInput) (string, error) {
	f.calls++
	return fmt.Sprintf("%d replies summarised", len(in.Analyses)), nil
}

type fakeExporter struct {
	report *entity.ReportData
}

func (f *fakeExporter) Dashboard(_ context.Context, s metrics.Summary) (*export.Document, error) {
	return &export.Document{Filename: "beehiiv-posts-analytics.pdf", ContentType: "application/pdf", Body: []byte("%PDF-dash")}, nil
}

func (f *fakeExporter) Report(_ context.Context, r entity.ReportData) (*export.Document, error) {
	f.report = &r
	return &export.Document{Filename: "newsletter-report.pdf", ContentType: "application/pdf", Body: []byte("%PDF-report")}, nil
}

type testEnv struct {
	router    http.Handler
	posts     *fakePosts
	summaries *fakeSummaries
	exporter  *fakeExporter
	cookie    *http.Cookie
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	posts := &fakePosts{posts: map[string]postentity.Post{
		"post_1": {ID: "post_1", Title: "Launch week", PublishDate: 1744329600, Stats: &postentity.Stats{
			Email: &postentity.EmailStats{Recipients: 120, Delivered: 100, Opens: 60, UniqueOpens: 50, Clicks: 12, UniqueClicks: 10, Unsubscribes: 5, OpenRate: 50, ClickRate: 10},
			Web:   &postentity.WebStats{Views: 30, Clicks: 3},
		}},
		"post_2": {ID: "post_2", Title: "Follow up", Stats: &postentity.Stats{
			Email: &postentity.EmailStats{Recipients: 80, Delivered: 0},
		}},
	}}
	summaries := &fakeSummaries{}
	exporter := &fakeExporter{}

	store := session.NewMemoryStore()
	workspaces := service.NewWorkspaces()
	creds := NewCredentialResolver(store, beehiiv.Credentials{}, discard)
	pol := policy.New(service.NewAnalysis(fakeImageAnalyzer{}, 2, discard), summaries, discard)
	manager := session.NewManager(session.CookieOptions{Secret: "0123456789abcdef0123456789abcdef", MaxAge: 3600}, discard)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(manager.Middleware)
		NewSessionHandler(store, time.Hour, workspaces, discard).RegisterRoutes(r)
		NewPostsHandler(posts, creds, store, time.Hour, workspaces, discard).RegisterRoutes(r)
		NewDashboardHandler(posts, creds, exporter, discard).RegisterRoutes(r)
		NewReportHandler(ReportHandlerConfig{
			Policy:     pol,
			Store:      store,
			TTL:        time.Hour,
			Workspaces: workspaces,
			Exporter:   exporter,
			Logger:     discard,
		}).RegisterRoutes(r)
	})

	return &testEnv{router: r, posts: posts, summaries: summaries, exporter: exporter}
}

// do sends a request within the env's browser session
func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	if e.cookie != nil {
		req.AddCookie(e.cookie)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		e.cookie = c
	}
	return rec
}

func (e *testEnv) setCredentials(t *testing.T) {
	t.Helper()
	rec := e.do(t, httptest.NewRequest(http.MethodPut, "/api/v1/session/credentials",
		strings.NewReader(`{"api_key":"key_1","publication_id":"pub_1"}`)))
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func pngUpload(t *testing.T, name string) *http.Request {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var raw bytes.Buffer
	require.NoError(t, png.Encode(&raw, img))

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("image", name)
	require.NoError(t, err)
	_, err = part.Write(raw.Bytes())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/report/images", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestCredentialsValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodPut, "/api/v1/session/credentials", strings.NewReader(`{"api_key":""}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"api_key is required; publication_id is required"}`, rec.Body.String())

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/posts", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "api_key is required")
}

func TestPostsUseSessionCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.setCredentials(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/posts", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var list postentity.PostList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Data, 2)
	assert.Equal(t, beehiiv.Credentials{APIKey: "key_1", PublicationID: "pub_1"}, env.posts.creds[0])

	req := httptest.NewRequest(http.MethodGet, "/api/v1/posts", nil)
	req.Header.Set(HeaderAPIKey, "override")
	env.do(t, req)
	assert.Equal(t, beehiiv.Credentials{APIKey: "override", PublicationID: "pub_1"}, env.posts.creds[1])
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t)
	env.setCredentials(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard?post_id=post_1&post_id=post_2&mode=combined", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var summary metrics.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 2, summary.PostCount)
	assert.Equal(t, int64(200), summary.Totals.Email.Recipients)
	assert.Equal(t, int64(30), summary.Totals.Web.Views)
	require.Len(t, summary.Rows, 2)
	assert.Equal(t, "post_1", summary.Rows[0].PostID)
	assert.Equal(t, "50.00%", summary.Rows[0].OpenRate)
	assert.Equal(t, "N/A", summary.Rows[1].OpenRate)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard?mode=weekly", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard?post_id=missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/export.pdf", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="beehiiv-posts-analytics.pdf"`, rec.Header().Get("Content-Disposition"))
}

func TestReportWorkflow(t *testing.T) {
	env := newTestEnv(t)
	env.setCredentials(t)

	rec := env.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/report", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"no post selected"}`, rec.Body.String())

	rec = env.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/posts/post_1/select", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	// two uploads, one removed again
	var first, second entity.UploadedImage
	rec = env.do(t, pngUpload(t, "reply-1.png"))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.Equal(t, "reply-1.jpg", first.Filename)
	assert.Equal(t, "image/jpeg", first.ContentType)

	rec = env.do(t, pngUpload(t, "reply-2.png"))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))

	rec = env.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/report/images/"+second.ID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/report/images/"+second.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/report", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var report entity.ReportData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "post_1", report.PostID)
	assert.Equal(t, "Launch week", report.Title)
	assert.Equal(t, "Apr 11, 2025", report.Date)
	assert.Equal(t, 5.0, report.Stats.UnsubscribeRate)
	assert.Equal(t, "1 replies summarised", report.SummaryAnalysis)
	require.Len(t, report.Images, 1)
	assert.Equal(t, entity.SentimentPositive, report.Images[0].Analysis.Sentiment)
	assert.Equal(t, 1, env.summaries.calls)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/report", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/report/export.pdf", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-report", rec.Body.String())
	require.NotNil(t, env.exporter.report)
	require.Len(t, env.exporter.report.Images, 1)
	assert.NotEmpty(t, env.exporter.report.Images[0].Content)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/session", nil))
	assert.JSONEq(t, `{"has_credentials":true,"publication_id":"pub_1","selected_post_id":"post_1","images":1,"has_report":true}`, rec.Body.String())

	// selecting another post starts over
	env.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/posts/post_2/select", nil))
	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/report/images", nil))
	assert.JSONEq(t, `{"images":[]}`, rec.Body.String())
	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/report", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/session", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/session", nil))
	assert.JSONEq(t, `{"has_credentials":false,"images":0,"has_report":false}`, rec.Body.String())
}

func TestAnalyzeSingleImage(t *testing.T) {
	env := newTestEnv(t)

	var img entity.UploadedImage
	rec := env.do(t, pngUpload(t, "reply.png"))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &img))

	rec = env.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/report/images/"+img.ID+"/analyze", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &img))
	require.NotNil(t, img.Analysis)
	assert.Equal(t, "Reader says thanks", img.Analysis.Content)
	assert.False(t, img.Loading)

	rec = env.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/report/images/nope/analyze", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/report/images", strings.NewReader("x")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
