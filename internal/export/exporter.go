package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vadim/beehiiv-metric/internal/domain/metrics"
	"github.com/vadim/beehiiv-metric/internal/domain/report/entity"
	"github.com/vadim/beehiiv-metric/internal/storage"
)

const pdfContentType = "application/pdf"

// Archiver keeps a copy of every exported document
type Archiver interface {
	Archive(ctx context.Context, in storage.ArchiveInput) (*storage.ArchiveOutput, error)
}

// Document is a rendered export
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
	// ArchiveKey is set when the document was archived
	ArchiveKey string
}

// Exporter renders dashboards and reports to PDF and optionally archives them
type Exporter struct {
	renderer Renderer
	archive  Archiver
	logger   *slog.Logger
	now      func() time.Time
}

// NewExporter creates an exporter; archive may be nil
func NewExporter(renderer Renderer, archive Archiver, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		renderer: renderer,
		archive:  archive,
		logger:   logger,
		now:      time.Now,
	}
}

// Dashboard exports the aggregated metrics of the selected posts
func (e *Exporter) Dashboard(ctx context.Context, summary metrics.Summary) (*Document, error) {
	html, err := RenderDashboardHTML(DashboardDocument{Summary: summary, GeneratedAt: e.now()})
	if err != nil {
		return nil, err
	}
	return e.render(ctx, html, "beehiiv-posts-analytics.pdf", "dashboards", map[string]string{
		"posts": fmt.Sprint(summary.PostCount),
	})
}

// Report exports a generated post report
func (e *Exporter) Report(ctx context.Context, report entity.ReportData) (*Document, error) {
	html, err := RenderReportHTML(ReportDocument{Report: report, GeneratedAt: e.now()})
	if err != nil {
		return nil, err
	}
	return e.render(ctx, html, reportFilename(report), "reports", map[string]string{
		"post-id": report.PostID,
	})
}

func (e *Exporter) render(ctx context.Context, html, filename, prefix string, meta map[string]string) (*Document, error) {
	pdf, err := e.renderer.RenderPDF(ctx, html)
	if err != nil {
		return nil, err
	}

	doc := &Document{Filename: filename, ContentType: pdfContentType, Body: pdf}
	if e.archive == nil {
		return doc, nil
	}

	// the download does not depend on the archive
	out, err := e.archive.Archive(ctx, storage.ArchiveInput{
		Prefix:      prefix,
		Body:        pdf,
		ContentType: pdfContentType,
		Metadata:    meta,
	})
	if err != nil {
		e.logger.Error("failed to archive export", "file", filename, "error", err)
		return doc, nil
	}
	doc.ArchiveKey = out.Key
	e.logger.Info("export archived", "file", filename, "key", out.Key, "bytes", out.Size)

	return doc, nil
}

func reportFilename(r entity.ReportData) string {
	if r.PostID == "" {
		return "newsletter-report.pdf"
	}
	return "newsletter-report-" + r.PostID + ".pdf"
}
