package dto

// IngestDocumentMessage is published on the in-process ingest topic, one per
// discovered file.
type IngestDocumentMessage struct {
	Root       string `json:"root"`
	SourcePath string `json:"source_path"`
}

type IngestFailure struct {
	SourcePath string `json:"source_path"`
	Error      string `json:"error"`
}

type IngestReportResponse struct {
	Root       string          `json:"root"`
	Documents  int             `json:"documents"`
	Passages   int             `json:"passages"`
	Skipped    []string        `json:"skipped"`
	Failures   []IngestFailure `json:"failures"`
	DurationMs int64           `json:"duration_ms"`
}
