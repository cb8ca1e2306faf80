package service

import (
	"strings"

	postentity "github.com/vadim/beehiiv-metric/internal/domain/post/entity"
	"github.com/vadim/beehiiv-metric/internal/domain/report/entity"
	"github.com/vadim/beehiiv-metric/internal/format"
)

// Assemble builds the report for one post from its stats, the uploaded
// images and a summary text. It performs no I/O.
//
// Open and click-through rates are Beehiiv's own precomputed figures.
// The unsubscribe rate divides by delivered, or by 1 when nothing was
// delivered, so a post with 0 delivered and 3 unsubscribes reports 300.
func Assemble(post *postentity.Post, images []entity.UploadedImage, summary string) entity.ReportData {
	r := entity.ReportData{
		PostID:          post.ID,
		Title:           post.Title,
		Subtitle:        post.Subtitle,
		Date:            format.Date(post.PublishDate.Int64()),
		Stats:           StatsOf(post),
		SummaryAnalysis: summary,
		Links:           LinksOf(post),
		Images:          make([]entity.UploadedImage, len(images)),
	}
	if r.Title == "" {
		r.Title = entity.DefaultTitle
	}
	if strings.TrimSpace(r.SummaryAnalysis) == "" {
		r.SummaryAnalysis = entity.NoSummary
	}
	copy(r.Images, images)

	return r
}

// LinksOf returns the link performance rows of a post in upstream order
func LinksOf(post *postentity.Post) []entity.LinkRow {
	if post.Stats == nil {
		return []entity.LinkRow{}
	}
	rows := make([]entity.LinkRow, 0, len(post.Stats.Clicks))
	for _, c := range post.Stats.Clicks {
		rows = append(rows, entity.LinkRow{
			URL:              c.URL,
			Host:             format.Hostname(c.URL),
			Clicks:           c.TotalClicks.Int64(),
			UniqueClicks:     c.TotalUniqueClicks.Int64(),
			ClickThroughRate: c.TotalClickThroughRate.Float(),
		})
	}
	return rows
}

// StatsOf returns the report stats of a post
func StatsOf(post *postentity.Post) entity.Stats {
	email := post.Email()
	if email == nil {
		return entity.Stats{}
	}

	delivered := email.Delivered.Float()
	if delivered == 0 {
		delivered = 1
	}

	return entity.Stats{
		OpenRate:         email.OpenRate.Float(),
		ClickThroughRate: email.ClickRate.Float(),
		UnsubscribeRate:  email.Unsubscribes.Float() * 100 / delivered,
	}
}
