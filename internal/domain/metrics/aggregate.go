// Package metrics turns fetched Beehiiv posts into the totals and rates shown
// on the dashboard. Everything here is pure: no I/O and no state between calls.
// Missing stats count as zero and every ratio is zero when its denominator is.
package metrics

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/vadim/beehiiv-metric/internal/domain/post/entity"
)

// Mode selects which channel the engagement rate is computed from
type Mode string

const (
	ModeEmail    Mode = "email"
	ModeWeb      Mode = "web"
	ModeCombined Mode = "combined"
)

// ErrInvalidMode is returned by ParseMode for unknown modes
var ErrInvalidMode = errors.New("view mode must be one of email, web, combined")

// ParseMode parses a view mode; empty input selects ModeCombined
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeCombined, nil
	case ModeEmail, ModeWeb, ModeCombined:
		return Mode(s), nil
	default:
		return "", ErrInvalidMode
	}
}

// EmailTotals are summed email counters
type EmailTotals struct {
	Recipients   int64 `json:"recipients"`
	Delivered    int64 `json:"delivered"`
	Opens        int64 `json:"opens"`
	UniqueOpens  int64 `json:"unique_opens"`
	Clicks       int64 `json:"clicks"`
	UniqueClicks int64 `json:"unique_clicks"`
	Unsubscribes int64 `json:"unsubscribes"`
	SpamReports  int64 `json:"spam_reports"`
}

// WebTotals are summed web counters
type WebTotals struct {
	Views  int64 `json:"views"`
	Clicks int64 `json:"clicks"`
}

// TotalStats is the element-wise sum of stats across a set of posts
type TotalStats struct {
	Email EmailTotals `json:"email"`
	Web   WebTotals   `json:"web"`
}

// Add returns the element-wise sum of t and o
func (t TotalStats) Add(o TotalStats) TotalStats {
	return TotalStats{
		Email: EmailTotals{
			Recipients:   t.Email.Recipients + o.Email.Recipients,
			Delivered:    t.Email.Delivered + o.Email.Delivered,
			Opens:        t.Email.Opens + o.Email.Opens,
			UniqueOpens:  t.Email.UniqueOpens + o.Email.UniqueOpens,
			Clicks:       t.Email.Clicks + o.Email.Clicks,
			UniqueClicks: t.Email.UniqueClicks + o.Email.UniqueClicks,
			Unsubscribes: t.Email.Unsubscribes + o.Email.Unsubscribes,
			SpamReports:  t.Email.SpamReports + o.Email.SpamReports,
		},
		Web: WebTotals{
			Views:  t.Web.Views + o.Web.Views,
			Clicks: t.Web.Clicks + o.Web.Clicks,
		},
	}
}

// statsOf converts a single post's stats into a TotalStats value
func statsOf(p *entity.Post) TotalStats {
	var t TotalStats
	if e := p.Email(); e != nil {
		t.Email = EmailTotals{
			Recipients:   e.Recipients.Int64(),
			Delivered:    e.Delivered.Int64(),
			Opens:        e.Opens.Int64(),
			UniqueOpens:  e.UniqueOpens.Int64(),
			Clicks:       e.Clicks.Int64(),
			UniqueClicks: e.UniqueClicks.Int64(),
			Unsubscribes: e.Unsubscribes.Int64(),
			SpamReports:  e.SpamReports.Int64(),
		}
	}
	if w := p.Web(); w != nil {
		t.Web = WebTotals{
			Views:  w.Views.Int64(),
			Clicks: w.Clicks.Int64(),
		}
	}
	return t
}

// Totals folds the stats of all posts into a fresh TotalStats
func Totals(posts []entity.Post) TotalStats {
	var acc TotalStats
	for i := range posts {
		acc = acc.Add(statsOf(&posts[i]))
	}
	return acc
}

// PostRate is the per-post open and click rate, in percent, rounded to 2 decimals
type PostRate struct {
	PostID    string  `json:"post_id"`
	Title     string  `json:"title"`
	OpenRate  float64 `json:"open_rate"`
	ClickRate float64 `json:"click_rate"`
}

// PerPostRates computes unique open and unique click rates against delivered
func PerPostRates(posts []entity.Post) []PostRate {
	out := make([]PostRate, 0, len(posts))
	for i := range posts {
		p := &posts[i]
		r := PostRate{PostID: p.ID, Title: p.DisplayTitle()}
		if e := p.Email(); e != nil {
			r.OpenRate = roundedRate(e.UniqueOpens.Int64(), e.Delivered.Int64())
			r.ClickRate = roundedRate(e.UniqueClicks.Int64(), e.Delivered.Int64())
		}
		out = append(out, r)
	}
	return out
}

// EngagementRate is the dashboard's headline figure for one post.
// Combined mode prefers email whenever anything was delivered, even if the
// web numbers are larger.
func EngagementRate(p *entity.Post, mode Mode) float64 {
	email, web := p.Email(), p.Web()

	emailRate := func() (float64, bool) {
		if email == nil || email.Delivered <= 0 {
			return 0, false
		}
		return rate(email.Opens.Int64(), email.Delivered.Int64()), true
	}
	webRate := func() (float64, bool) {
		if web == nil || web.Views <= 0 {
			return 0, false
		}
		return rate(web.Clicks.Int64(), web.Views.Int64()), true
	}

	switch mode {
	case ModeEmail:
		v, _ := emailRate()
		return v
	case ModeWeb:
		v, _ := webRate()
		return v
	default:
		if v, ok := emailRate(); ok {
			return v
		}
		v, _ := webRate()
		return v
	}
}

// rate returns num/den as a percentage, 0 when den is not positive
func rate(num, den int64) float64 {
	if den <= 0 {
		return 0
	}
	return float64(num) * 100 / float64(den)
}

// roundedRate is rate computed in decimal arithmetic and rounded half away from zero to 2 places
func roundedRate(num, den int64) float64 {
	if den <= 0 {
		return 0
	}
	return decimal.NewFromInt(num).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(den), 2).
		InexactFloat64()
}
