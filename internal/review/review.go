// ABOUTME: Review workflow types
// ABOUTME: Files under review, reviewer decisions and validation errors
package review

import (
	"errors"
	"mime"
	"strings"
	"time"

	"github.com/mixroom/mixcheck/pkg/analysis"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrFeedbackRequired = errors.New("feedback is required")
	ErrInvalidStatus    = errors.New("invalid review status")
	ErrInvalidFile      = errors.New("file needs a name and a URL")
	ErrUnsupportedType  = errors.New("unsupported audio type")
	ErrFileReplaced     = errors.New("file was replaced during analysis")
)

// AllowedTypes is the upload allowlist for submitted audio
var AllowedTypes = []string{
	"audio/wav",
	"audio/x-wav",
	"audio/aiff",
	"audio/x-aiff",
	"audio/mpeg",
	"audio/mp3",
}

// Allowed reports whether a media type is on the upload allowlist
func Allowed(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	for _, t := range AllowedTypes {
		if mediaType == t {
			return true
		}
	}
	return false
}

// Status is a reviewer decision
type Status string

const (
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is a known decision
func (s Status) Valid() bool {
	return s == StatusApproved || s == StatusRejected
}

// Label returns the action name shown to reviewers
func (s Status) Label() string {
	switch s {
	case StatusApproved:
		return "Approve"
	case StatusRejected:
		return "Request Re-recording"
	default:
		return string(s)
	}
}

// FileSpec describes a file to register
type FileSpec struct {
	ProjectID   string `json:"projectId"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"contentType,omitempty"` // checked against AllowedTypes when set
}

// File is an uploaded take awaiting review
type File struct {
	ID         string           `json:"id"`
	ProjectID  string           `json:"projectId"`
	Name       string           `json:"name"`
	URL        string           `json:"url"`
	Report     *analysis.Report `json:"report,omitempty"`
	AnalyzedAt *time.Time       `json:"analyzedAt,omitempty"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

// Review is one reviewer decision, stored with the metrics it was based on
type Review struct {
	ID         string            `json:"id"`
	FileID     string            `json:"fileId"`
	Status     Status            `json:"status"`
	Feedback   string            `json:"feedback"`
	Metrics    *analysis.Metrics `json:"metrics,omitempty"`
	Flags      []Flag            `json:"flags,omitempty"`
	ReviewedAt time.Time         `json:"reviewedAt"`
}
