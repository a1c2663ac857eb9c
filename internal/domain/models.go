package domain

import (
	"fmt"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// Point is a pixel coordinate in native image space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Quadrilateral holds document corners ordered TL, TR, BR, BL.
type Quadrilateral [4]Point

// Corner indexes into a Quadrilateral.
const (
	CornerTopLeft = iota
	CornerTopRight
	CornerBottomRight
	CornerBottomLeft
)

// QuadFromPoints converts external corner data. Anything but exactly four
// points is rejected.
func QuadFromPoints(pts []Point) (Quadrilateral, bool) {
	var q Quadrilateral
	if len(pts) != len(q) {
		return q, false
	}
	copy(q[:], pts)
	return q, true
}

// Points returns the corners as a slice, e.g. for JSON encoding.
func (q Quadrilateral) Points() []Point {
	out := make([]Point, len(q))
	copy(out, q[:])
	return out
}

// DisplayScale is the ratio of rendered size to native size.
type DisplayScale struct {
	ScaleX float64 `json:"scale_x"`
	ScaleY float64 `json:"scale_y"`
}

// IdentityScale is used when no image is loaded.
var IdentityScale = DisplayScale{ScaleX: 1, ScaleY: 1}

// ImageFile is a user-selected document image.
type ImageFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// NewImageFile builds an ImageFile, sniffing the content type from the
// bytes when none is supplied.
func NewImageFile(name, contentType string, data []byte) ImageFile {
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(data).String()
	}
	return ImageFile{Name: name, ContentType: contentType, Data: data}
}

// Info returns the presentation summary of the file.
func (f *ImageFile) Info() *FileInfo {
	if f == nil {
		return nil
	}
	return &FileInfo{Name: f.Name, ContentType: f.ContentType, Size: len(f.Data)}
}

// FileInfo describes the selected file without its bytes.
type FileInfo struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

// Job is a server-tracked unit of asynchronous analysis work. The client
// only ever reads it.
type Job struct {
	ID               string          `json:"id"`
	Status           JobStatus       `json:"status"`
	Result           *AnalysisResult `json:"result,omitempty"`
	Error            *string         `json:"error,omitempty"`
	Progress         int             `json:"progress,omitempty"`
	OriginalFilename string          `json:"original_filename,omitempty"`
	CreatedAt        string          `json:"created_at"`
	UpdatedAt        string          `json:"updated_at,omitempty"`
}

// ErrorMessage returns the job's failure reason or the default message.
func (j *Job) ErrorMessage() string {
	if j.Error == nil || *j.Error == "" {
		return DefaultJobFailureMessage
	}
	return *j.Error
}

// JobTicket is returned when a job is created.
type JobTicket struct {
	JobID  string    `json:"job_id"`
	Status JobStatus `json:"status"`
}

// HistoryItem summarizes a past intake job.
type HistoryItem struct {
	ID            string        `json:"id"`
	Filename      string        `json:"filename"`
	Status        JobStatus     `json:"status"`
	ScoreInt      int           `json:"score_int"`
	ApprovalState ApprovalState `json:"approval_state"`
	CreatedAt     string        `json:"created_at"`
}

// SavedExample reports where a saved example landed.
type SavedExample struct {
	FolderPath  string   `json:"folder_path"`
	SavedFiles  []string `json:"saved_files"`
	ArchiveKeys []string `json:"archive_keys,omitempty"`
	ArchiveURL  string   `json:"archive_url,omitempty"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999-07:00",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses the timestamp strings emitted by the analysis
// service. Naive timestamps are treated as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
