package email

const (
	subjectBatchReportFmt    = "Enrichment batch %s: %d succeeded, %d failed"
	subjectBatchCancelledFmt = "Enrichment batch %s cancelled after %d of %d"
)
