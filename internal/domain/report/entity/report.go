package entity

import "time"

// Sentiment is the coarse classification attached to an analyzed image
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// ParseSentiment normalises an upstream sentiment label; unknown labels become neutral
func ParseSentiment(s string) Sentiment {
	switch Sentiment(s) {
	case SentimentPositive, SentimentNegative:
		return Sentiment(s)
	default:
		return SentimentNeutral
	}
}

const (
	// FailedAnalysisContent replaces the analysis of an image whose analysis call failed
	FailedAnalysisContent = "Failed to analyze image. Please try again."
	// NoSummary is shown when no summary has been generated
	NoSummary = "No analysis generated yet."
	// DefaultTitle is used for posts without a title
	DefaultTitle = "Newsletter Report"
)

// Analysis is the result of analyzing one uploaded image
type Analysis struct {
	Content   string    `json:"content"`
	Sentiment Sentiment `json:"sentiment"`
}

// FailedAnalysis returns the fixed analysis substituted on failure
func FailedAnalysis() *Analysis {
	return &Analysis{Content: FailedAnalysisContent, Sentiment: SentimentNeutral}
}

// UploadedImage is an image (typically a screenshot of a reader reply) uploaded for analysis
type UploadedImage struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Content     []byte    `json:"-"`
	Size        int       `json:"size"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Analysis    *Analysis `json:"analysis,omitempty"`
	Loading     bool      `json:"loading"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Stats are the headline figures of a post report, in percent
type Stats struct {
	OpenRate         float64 `json:"open_rate"`
	ClickThroughRate float64 `json:"click_through_rate"`
	UnsubscribeRate  float64 `json:"unsubscribe_rate"`
}

// LinkRow is the performance of one link in the post
type LinkRow struct {
	URL              string  `json:"url"`
	Host             string  `json:"host"`
	Clicks           int64   `json:"clicks"`
	UniqueClicks     int64   `json:"unique_clicks"`
	ClickThroughRate float64 `json:"click_through_rate"`
}

// ReportData is a report assembled for a single post.
// It is rebuilt on every generation and never persisted.
type ReportData struct {
	PostID          string          `json:"post_id"`
	Title           string          `json:"title"`
	Subtitle        string          `json:"subtitle"`
	Date            string          `json:"date"`
	Stats           Stats           `json:"stats"`
	SummaryAnalysis string          `json:"summary_analysis"`
	Links           []LinkRow       `json:"links"`
	Images          []UploadedImage `json:"images"`
	GeneratedAt     time.Time       `json:"generated_at"`
}

// Industry averages used to label report figures
const (
	AverageOpenRate         = 25.0
	AverageClickThroughRate = 2.5
	AverageUnsubscribeRate  = 0.5
)

// OpenRateAboveAverage reports whether the open rate beats the industry average
func (s Stats) OpenRateAboveAverage() bool { return s.OpenRate > AverageOpenRate }

// ClickThroughAboveAverage reports whether the CTR beats the industry average
func (s Stats) ClickThroughAboveAverage() bool { return s.ClickThroughRate > AverageClickThroughRate }

// UnsubscribeBelowAverage reports whether unsubscribes are under the industry average
func (s Stats) UnsubscribeBelowAverage() bool { return s.UnsubscribeRate < AverageUnsubscribeRate }
