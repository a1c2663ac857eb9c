package historyexport

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"scandesk/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// columns defines the header row shared by the CSV and XLSX exports.
var columns = []string{
	"Job ID",
	"Filename",
	"Status",
	"Score",
	"Quality",
	"Approval State",
	"Created At",
}

// Writer wraps csv.Writer for exporting intake history as CSV.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes CSV to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes the header row.
func (w *Writer) WriteHeader() error {
	return w.csv.Write(columns)
}

// WriteItems converts a batch of history items to CSV rows and writes them.
func (w *Writer) WriteItems(items []domain.HistoryItem) error {
	for i := range items {
		if err := w.csv.Write(itemToRow(&items[i])); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

// itemToRow converts a single history item to a row matching columns.
func itemToRow(item *domain.HistoryItem) []string {
	return []string{
		item.ID,
		item.Filename,
		string(item.Status),
		strconv.Itoa(item.ScoreInt),
		string(scoreBand(item.ScoreInt)),
		string(item.ApprovalState),
		formatCreatedAt(item.CreatedAt),
	}
}

func scoreBand(score int) domain.QualityBand {
	return domain.QualityResult{Score: float64(score)}.Band()
}

// formatCreatedAt normalizes the service timestamp to RFC3339. Unparseable
// values are exported as received.
func formatCreatedAt(s string) string {
	t, err := domain.ParseTimestamp(s)
	if err != nil {
		return s
	}
	return t.UTC().Format(time.RFC3339)
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a user-supplied name for use in file names and
// object keys. Replaces non-alphanumeric chars (except - _) with _,
// collapses consecutive underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns a sanitized filename for Content-Disposition header.
// Format: {sanitized_base}_{YYYY-MM-DD}.{format}
func BuildFilename(base string, format domain.ExportFormat) string {
	sanitized := SanitizeFilename(base)
	if sanitized == "" {
		sanitized = "intake_history"
	}
	date := time.Now().Format("2006-01-02")
	return fmt.Sprintf("%s_%s.%s", sanitized, date, format)
}
