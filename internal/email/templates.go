package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"venue_enrichment_backend/internal/enrichment/service"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
}

type batchReportEmailData struct {
	baseEmailData
	BatchID   string
	Progress  service.Progress
	Cancelled bool
	Duration  string
	Failures  []service.Outcome
	Successes []service.Outcome
}

func newBatchReportData(r service.Report) batchReportEmailData {
	data := batchReportEmailData{
		baseEmailData: baseEmailData{
			Title:      "Enrichment batch report",
			Heading:    "Enrichment batch finished",
			Subheading: fmt.Sprintf("%d of %d listings processed", r.Progress.Current, r.Progress.Total),
		},
		BatchID:   r.BatchID,
		Progress:  r.Progress,
		Cancelled: r.Cancelled,
	}
	if r.Cancelled {
		data.Heading = "Enrichment batch cancelled"
	}
	if r.FinishedAt != nil && !r.StartedAt.IsZero() {
		data.Duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
	}
	for _, o := range r.Outcomes {
		if o.Success {
			data.Successes = append(data.Successes, o)
		} else {
			data.Failures = append(data.Failures, o)
		}
	}
	return data
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}
