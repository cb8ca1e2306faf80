package metrics

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadim/beehiiv-metric/internal/domain/post/entity"
)

func emailPost(id string, delivered, opens, uniqueOpens, uniqueClicks int64) entity.Post {
	return entity.Post{
		ID:    id,
		Title: "Post " + id,
		Stats: &entity.Stats{
			Email: &entity.EmailStats{
				Recipients:   entity.Count(delivered + 5),
				Delivered:    entity.Count(delivered),
				Opens:        entity.Count(opens),
				UniqueOpens:  entity.Count(uniqueOpens),
				Clicks:       entity.Count(uniqueClicks * 2),
				UniqueClicks: entity.Count(uniqueClicks),
				Unsubscribes: 1,
				SpamReports:  1,
			},
			Web: &entity.WebStats{Views: 40, Clicks: 4},
		},
	}
}

func TestEngagementRateWithoutStats(t *testing.T) {
	p := entity.Post{ID: "bare"}
	for _, mode := range []Mode{ModeEmail, ModeWeb, ModeCombined} {
		assert.Zero(t, EngagementRate(&p, mode), mode)
	}

	empty := entity.Post{ID: "empty", Stats: &entity.Stats{}}
	for _, mode := range []Mode{ModeEmail, ModeWeb, ModeCombined} {
		assert.Zero(t, EngagementRate(&empty, mode), mode)
	}
}

func TestEngagementRateCombinedPrefersEmail(t *testing.T) {
	p := entity.Post{Stats: &entity.Stats{
		Email: &entity.EmailStats{Delivered: 50, Opens: 10},
		Web:   &entity.WebStats{Views: 1000, Clicks: 500},
	}}

	assert.Equal(t, 20.0, EngagementRate(&p, ModeCombined))
	assert.Equal(t, 20.0, EngagementRate(&p, ModeEmail))
	assert.Equal(t, 50.0, EngagementRate(&p, ModeWeb))
}

func TestEngagementRateCombinedFallsBackToWeb(t *testing.T) {
	p := entity.Post{Stats: &entity.Stats{
		Email: &entity.EmailStats{Delivered: 0, Opens: 10},
		Web:   &entity.WebStats{Views: 200, Clicks: 50},
	}}

	assert.Equal(t, 25.0, EngagementRate(&p, ModeCombined))
	assert.Zero(t, EngagementRate(&p, ModeEmail))
}

func TestPerPostRatesZeroDelivered(t *testing.T) {
	posts := []entity.Post{
		emailPost("a", 0, 10, 10, 10),
		{ID: "b"},
	}

	rates := PerPostRates(posts)
	require.Len(t, rates, 2)
	for _, r := range rates {
		assert.Zero(t, r.OpenRate)
		assert.Zero(t, r.ClickRate)
	}
	assert.Equal(t, "Untitled", rates[1].Title)
}

func TestPerPostRatesRounding(t *testing.T) {
	rates := PerPostRates([]entity.Post{emailPost("a", 3, 2, 1, 2)})
	require.Len(t, rates, 1)
	assert.Equal(t, 33.33, rates[0].OpenRate)
	assert.Equal(t, 66.67, rates[0].ClickRate)
}

func TestTotalsEmpty(t *testing.T) {
	assert.Equal(t, TotalStats{}, Totals(nil))
	assert.Equal(t, TotalStats{}, Totals([]entity.Post{}))
}

func TestTotalsSkipsMissingStats(t *testing.T) {
	posts := []entity.Post{
		emailPost("a", 100, 40, 30, 10),
		{ID: "no-stats"},
		{ID: "web-only", Stats: &entity.Stats{Web: &entity.WebStats{Views: 7, Clicks: 1}}},
	}

	got := Totals(posts)
	assert.Equal(t, int64(105), got.Email.Recipients)
	assert.Equal(t, int64(100), got.Email.Delivered)
	assert.Equal(t, int64(40), got.Email.Opens)
	assert.Equal(t, int64(20), got.Email.Clicks)
	assert.Equal(t, int64(1), got.Email.Unsubscribes)
	assert.Equal(t, int64(47), got.Web.Views)
	assert.Equal(t, int64(5), got.Web.Clicks)
}

func TestTotalsAssociativeUnderConcatenation(t *testing.T) {
	a := []entity.Post{emailPost("a1", 100, 40, 30, 10), {ID: "a2"}}
	b := []entity.Post{emailPost("b1", 7, 3, 2, 1), emailPost("b2", 0, 0, 0, 0)}

	joined := append(append([]entity.Post{}, a...), b...)
	assert.Equal(t, Totals(a).Add(Totals(b)), Totals(joined))
}

func TestAggregateIsIdempotent(t *testing.T) {
	posts := []entity.Post{emailPost("a", 100, 40, 30, 10), {ID: "b", PublishDate: 1744383600}}

	first := Aggregate(posts, ModeCombined)
	second := Aggregate(posts, ModeCombined)
	assert.Equal(t, first, second)

	assert.Equal(t, 2, first.PostCount)
	require.Len(t, first.Rows, 2)
	assert.Equal(t, "30.00%", first.Rows[0].OpenRate)
	assert.Equal(t, "10.00%", first.Rows[0].ClickRate)
	assert.Equal(t, "N/A", first.Rows[1].OpenRate)
	assert.Equal(t, "Apr 11, 2025", first.Rows[1].Date)
	assert.Equal(t, 40.0, first.Engagements[0].Rate)
}

func TestAggregateFromMalformedJSON(t *testing.T) {
	raw := `[{"id":"x","title":"X","stats":{"email":{"delivered":"abc","unique_opens":5}}}]`
	var posts []entity.Post
	require.NoError(t, json.Unmarshal([]byte(raw), &posts))

	s := Aggregate(posts, ModeEmail)
	assert.Zero(t, s.Rates[0].OpenRate)
	assert.Zero(t, s.Engagements[0].Rate)
	assert.Equal(t, int64(5), s.Totals.Email.UniqueOpens)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeCombined, m)

	m, err = ParseMode("web")
	require.NoError(t, err)
	assert.Equal(t, ModeWeb, m)

	_, err = ParseMode("print")
	assert.ErrorIs(t, err, ErrInvalidMode)
}
