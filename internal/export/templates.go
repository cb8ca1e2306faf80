package export

import (
	"bytes"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"time"

	"github.com/vadim/beehiiv-metric/internal/domain/metrics"
	"github.com/vadim/beehiiv-metric/internal/domain/report/entity"
	"github.com/vadim/beehiiv-metric/internal/format"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"count":    countOf,
	"percent":  format.Percent,
	"truncate": format.Truncate,
	"datetime": format.DateTime,
	"datauri":  dataURI,
}).ParseFS(templateFS, "templates/*.html"))

// DashboardDocument is the data behind the dashboard export
type DashboardDocument struct {
	Summary     metrics.Summary
	GeneratedAt time.Time
}

// ReportDocument is the data behind the post report export
type ReportDocument struct {
	Report      entity.ReportData
	GeneratedAt time.Time
}

// RenderDashboardHTML renders the dashboard export as a standalone HTML page
func RenderDashboardHTML(doc DashboardDocument) (string, error) {
	return execute("dashboard.html", doc)
}

// RenderReportHTML renders a post report as a standalone HTML page
func RenderReportHTML(doc ReportDocument) (string, error) {
	return execute("report.html", doc)
}

func execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("executing %s: %w", name, err)
	}
	return buf.String(), nil
}

func countOf(v any) string {
	switch n := v.(type) {
	case int:
		return format.Count(int64(n))
	case int64:
		return format.Count(n)
	default:
		return fmt.Sprint(v)
	}
}

// dataURI inlines an uploaded image so the page renders without network access
func dataURI(img entity.UploadedImage) template.URL {
	if len(img.Content) == 0 || img.ContentType == "" {
		return ""
	}
	return template.URL("data:" + img.ContentType + ";base64," + base64.StdEncoding.EncodeToString(img.Content))
}
