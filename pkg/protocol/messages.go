// ABOUTME: mixcheck event message type definitions
// ABOUTME: Defines the envelope and payload structs for review events
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mixroom/mixcheck/pkg/analysis"
)

// Version is the event protocol version
const Version = 1

// Message types
const (
	TypeClientHello = "client/hello"
	TypeServerHello = "server/hello"

	TypeFileRegistered = "file/registered"
	TypeFileReplaced   = "file/replaced"

	TypeAnalysisStarted   = "analysis/started"
	TypeAnalysisSucceeded = "analysis/succeeded"
	TypeAnalysisFailed    = "analysis/failed"
	TypeAnalysisCancelled = "analysis/cancelled"

	TypeReviewSubmitted = "review/submitted"
)

// Message is the top-level wrapper for all protocol messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// DecodePayload unmarshals the payload of a received message into v
func (m Message) DecodePayload(v interface{}) error {
	data, err := json.Marshal(m.Payload)
	if err != nil {
		return fmt.Errorf("failed to re-encode %s payload: %w", m.Type, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s payload: %w", m.Type, err)
	}
	return nil
}

// ClientHello is sent by watchers when they connect
type ClientHello struct {
	ClientID   string      `json:"client_id"`
	Name       string      `json:"name"`
	Version    int         `json:"version"`
	DeviceInfo *DeviceInfo `json:"device_info,omitempty"`
}

// DeviceInfo contains device identification
type DeviceInfo struct {
	ProductName     string `json:"product_name"`
	Manufacturer    string `json:"manufacturer"`
	SoftwareVersion string `json:"software_version"`
}

// ServerHello is the server's response to client/hello
type ServerHello struct {
	ServerID string `json:"server_id"`
	Name     string `json:"name"`
	Version  int    `json:"version"`
}

// FileEvent announces a registered or replaced file
type FileEvent struct {
	FileID    string `json:"file_id"`
	ProjectID string `json:"project_id,omitempty"`
	Name      string `json:"name"`
	URL       string `json:"url"`
}

// Flag is one policy verdict on a metric
type Flag struct {
	Metric   string `json:"metric"`
	Severity string `json:"severity"` // "ok", "warn" or "fail"
	Message  string `json:"message"`
}

// AnalysisEvent reports a step of an analysis run
type AnalysisEvent struct {
	FileID  string            `json:"file_id"`
	Name    string            `json:"name"`
	URL     string            `json:"url"`
	Metrics *analysis.Metrics `json:"metrics,omitempty"`
	Flags   []Flag            `json:"flags,omitempty"`
	Cached  bool              `json:"cached,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// ReviewEvent reports a submitted review decision
type ReviewEvent struct {
	ReviewID   string            `json:"review_id"`
	FileID     string            `json:"file_id"`
	Status     string            `json:"status"`
	Feedback   string            `json:"feedback"`
	Metrics    *analysis.Metrics `json:"metrics,omitempty"`
	ReviewedAt time.Time         `json:"reviewed_at"`
}
