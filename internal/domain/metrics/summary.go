package metrics

import (
	"github.com/vadim/beehiiv-metric/internal/domain/post/entity"
	"github.com/vadim/beehiiv-metric/internal/format"
)

// Summary bundles everything the dashboard and its PDF export display
type Summary struct {
	PostCount   int          `json:"post_count"`
	Mode        Mode         `json:"mode"`
	Totals      TotalStats   `json:"totals"`
	Rates       []PostRate   `json:"rates"`
	Engagements []Engagement `json:"engagements"`
	Rows        []Row        `json:"rows"`
}

// Engagement is the engagement rate of a single post for the selected mode
type Engagement struct {
	PostID string  `json:"post_id"`
	Title  string  `json:"title"`
	Rate   float64 `json:"rate"`
}

// Row is one line of the posts details table
type Row struct {
	PostID     string        `json:"post_id"`
	Title      string        `json:"title"`
	Date       string        `json:"date"`
	Status     entity.Status `json:"status"`
	Recipients int64         `json:"recipients"`
	Opens      int64         `json:"opens"`
	OpenRate   string        `json:"open_rate"`
	Clicks     int64         `json:"clicks"`
	ClickRate  string        `json:"click_rate"`
	WebViews   int64         `json:"web_views"`
}

// Aggregate computes the full dashboard summary for the given posts
func Aggregate(posts []entity.Post, mode Mode) Summary {
	s := Summary{
		PostCount:   len(posts),
		Mode:        mode,
		Totals:      Totals(posts),
		Rates:       PerPostRates(posts),
		Engagements: make([]Engagement, 0, len(posts)),
		Rows:        make([]Row, 0, len(posts)),
	}

	for i := range posts {
		p := &posts[i]
		s.Engagements = append(s.Engagements, Engagement{
			PostID: p.ID,
			Title:  p.DisplayTitle(),
			Rate:   EngagementRate(p, mode),
		})
		s.Rows = append(s.Rows, rowOf(p))
	}

	return s
}

func rowOf(p *entity.Post) Row {
	st := statsOf(p)
	row := Row{
		PostID:     p.ID,
		Title:      p.DisplayTitle(),
		Date:       format.Date(p.Timestamp()),
		Status:     p.Status,
		Recipients: st.Email.Recipients,
		Opens:      st.Email.Opens,
		OpenRate:   format.NotAvailable,
		Clicks:     st.Email.Clicks,
		ClickRate:  format.NotAvailable,
		WebViews:   st.Web.Views,
	}
	if st.Email.Delivered > 0 {
		row.OpenRate = format.Percent(roundedRate(st.Email.UniqueOpens, st.Email.Delivered), 2)
		row.ClickRate = format.Percent(roundedRate(st.Email.UniqueClicks, st.Email.Delivered), 2)
	}
	return row
}
