// Package models holds the capture session types shared by the service,
// its stores and the HTTP layer.
package models

import (
	"time"

	scanmodels "qidscan/internal/scan/models"
)

// Status is the lifecycle state of a capture session.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Session hands a scan off from a desktop to a phone. The desktop creates it
// and polls; the phone opens MobileURL and submits exactly one frame.
type Session struct {
	ID              string             `json:"session_id"`
	Status          Status             `json:"status"`
	MobileURL       string             `json:"mobile_url"`
	CreatorDevice   string             `json:"creator_device,omitempty"`
	SubmitterDevice string             `json:"submitter_device,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	ExpiresAt       time.Time          `json:"expires_at"`
	CompletedAt     *time.Time         `json:"completed_at,omitempty"`
	Result          *scanmodels.Result `json:"result,omitempty"`
	Error           string             `json:"error,omitempty"`
}

// IsExpired reports whether the session can no longer accept a frame.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// IsTerminal reports whether the session has a final outcome.
func (s *Session) IsTerminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusFailed
}

// Frame is one captured image, encoded as a data URL.
type Frame struct {
	ImageData string
	MIME      string
	Source    string
}
