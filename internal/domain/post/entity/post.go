package entity

import (
	"bytes"
	"encoding/json"
)

// Status represents the publishing status of a Beehiiv post
type Status string

const (
	StatusDraft     Status = "draft"
	StatusConfirmed Status = "confirmed"
	StatusArchived  Status = "archived"
)

// IsKnown reports whether the status is one the dashboard styles explicitly
func (s Status) IsKnown() bool {
	return s == StatusDraft || s == StatusConfirmed
}

// Audience represents who a post was sent to
type Audience string

const (
	AudienceFree    Audience = "free"
	AudiencePremium Audience = "premium"
	AudienceUnknown Audience = "unknown"
)

// UnmarshalJSON maps anything other than free/premium to unknown
func (a *Audience) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*a = AudienceUnknown
		return nil
	}
	switch Audience(s) {
	case AudienceFree, AudiencePremium:
		*a = Audience(s)
	default:
		*a = AudienceUnknown
	}
	return nil
}

// Post is a Beehiiv post as returned by the posts API.
// Posts are never mutated after decoding; a re-fetch replaces the value.
type Post struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Subtitle     string   `json:"subtitle,omitempty"`
	Slug         string   `json:"slug,omitempty"`
	Status       Status   `json:"status"`
	Audience     Audience `json:"audience,omitempty"`
	Created      Count    `json:"created,omitempty"`
	PublishDate  Count    `json:"publish_date,omitempty"`
	ThumbnailURL string   `json:"thumbnail_url,omitempty"`
	WebURL       string   `json:"web_url,omitempty"`
	Stats        *Stats   `json:"stats,omitempty"`
}

// DisplayTitle returns the title or a placeholder for untitled posts
func (p *Post) DisplayTitle() string {
	if p.Title == "" {
		return "Untitled"
	}
	return p.Title
}

// Timestamp returns the publish date, falling back to the creation date
func (p *Post) Timestamp() int64 {
	if p.PublishDate > 0 {
		return p.PublishDate.Int64()
	}
	return p.Created.Int64()
}

// Email returns the email stats or nil when the post carries none
func (p *Post) Email() *EmailStats {
	if p.Stats == nil {
		return nil
	}
	return p.Stats.Email
}

// Web returns the web stats or nil when the post carries none
func (p *Post) Web() *WebStats {
	if p.Stats == nil {
		return nil
	}
	return p.Stats.Web
}

// Stats holds the engagement statistics attached to a single post
type Stats struct {
	Email  *EmailStats `json:"email,omitempty"`
	Web    *WebStats   `json:"web,omitempty"`
	Clicks []LinkClick `json:"clicks,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler. A sub-record with an unexpected
// shape is dropped instead of failing the post, and so is a malformed link.
func (s *Stats) UnmarshalJSON(data []byte) error {
	*s = Stats{}

	var fields struct {
		Email  json.RawMessage `json:"email"`
		Web    json.RawMessage `json:"web"`
		Clicks json.RawMessage `json:"clicks"`
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}

	if present(fields.Email) {
		var e EmailStats
		if json.Unmarshal(fields.Email, &e) == nil {
			s.Email = &e
		}
	}
	if present(fields.Web) {
		var w WebStats
		if json.Unmarshal(fields.Web, &w) == nil {
			s.Web = &w
		}
	}
	if present(fields.Clicks) {
		var links []json.RawMessage
		if json.Unmarshal(fields.Clicks, &links) == nil {
			for _, raw := range links {
				var c LinkClick
				if json.Unmarshal(raw, &c) == nil {
					s.Clicks = append(s.Clicks, c)
				}
			}
		}
	}
	return nil
}

func present(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

// EmailStats holds email delivery and engagement counters.
// OpenRate and ClickRate are supplied by Beehiiv and are not required
// to match ratios derived from the counters.
type EmailStats struct {
	Recipients   Count   `json:"recipients"`
	Delivered    Count   `json:"delivered"`
	Opens        Count   `json:"opens"`
	UniqueOpens  Count   `json:"unique_opens"`
	OpenRate     Percent `json:"open_rate"`
	Clicks       Count   `json:"clicks"`
	UniqueClicks Count   `json:"unique_clicks"`
	ClickRate    Percent `json:"click_rate"`
	Unsubscribes Count   `json:"unsubscribes"`
	SpamReports  Count   `json:"spam_reports"`
}

// WebStats holds web view counters
type WebStats struct {
	Views  Count `json:"views"`
	Clicks Count `json:"clicks"`
}

// LinkClick describes the performance of a single link in a post
type LinkClick struct {
	URL                   string       `json:"url"`
	TotalClicks           Count        `json:"total_clicks"`
	TotalUniqueClicks     Count        `json:"total_unique_clicks"`
	TotalClickThroughRate Percent      `json:"total_click_through_rate"`
	Email                 ChannelClick `json:"email"`
	Web                   ChannelClick `json:"web"`
}

// ChannelClick is the per-channel breakdown of a LinkClick
type ChannelClick struct {
	Clicks           Count   `json:"clicks"`
	UniqueClicks     Count   `json:"unique_clicks"`
	ClickThroughRate Percent `json:"click_through_rate"`
}

// Pagination mirrors the meta block of list responses
type Pagination struct {
	Page         int `json:"page"`
	Limit        int `json:"limit"`
	TotalResults int `json:"total_results"`
	TotalPages   int `json:"total_pages"`
}

// PostList is the decoded body of the posts listing endpoint
type PostList struct {
	Data  []Post     `json:"data"`
	Limit int        `json:"limit,omitempty"`
	Page  int        `json:"page,omitempty"`
	Meta  Pagination `json:"meta"`
}
