// Package models holds the request and result types shared by the local scan
// service, the remote client and the HTTP layer.
package models

import (
	"time"

	"qidscan/internal/extraction"
	"qidscan/pkg/qid"
)

// Scan failure codes carried in Result.Error.Code.
const (
	CodeNoTextExtracted  = "NO_TEXT_EXTRACTED"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeProcessingFailed = "PROCESSING_FAILED"
)

// ProcessRequest is one card photo to scan.
type ProcessRequest struct {
	ImageData string           `json:"image_data"`
	Metadata  *RequestMetadata `json:"metadata,omitempty"`
}

// RequestMetadata is optional caller context echoed into the result.
type RequestMetadata struct {
	SessionID  string `json:"session_id,omitempty"`
	DeviceType string `json:"device_type,omitempty"`
}

// Result is the outcome of a scan. Success=false results are still returned
// as values; Error explains why.
type Result struct {
	Success            bool                `json:"success"`
	Data               *CardData           `json:"data,omitempty"`
	Validation         *Validation         `json:"validation,omitempty"`
	ConfidenceTiers    map[string]qid.Tier `json:"confidence_tiers,omitempty"`
	ProcessingMetadata ProcessingMetadata  `json:"processing_metadata"`
	Error              *ScanError          `json:"error,omitempty"`
}

// CardData is what was read off the card. Optional fields are nil when not found.
type CardData struct {
	QIDNumber          string             `json:"qid_number"`
	FormattedQIDNumber string             `json:"formatted_qid_number"`
	FullName           extraction.Names   `json:"full_name"`
	DateOfBirth        *string            `json:"date_of_birth,omitempty"`
	Nationality        string             `json:"nationality"`
	ExpiryDate         *string            `json:"expiry_date,omitempty"`
	DocumentType       string             `json:"document_type"`
	ConfidenceScores   map[string]float64 `json:"confidence_scores"`
	QIDDetails         *qid.Details       `json:"qid_details,omitempty"`
}

type Validation = extraction.Validation

// ProcessingMetadata describes how the scan ran.
type ProcessingMetadata struct {
	ProcessingID   string    `json:"processing_id"`
	ProcessingTime float64   `json:"processing_time"`
	Timestamp      time.Time `json:"timestamp"`
	OCREnginesUsed []string  `json:"ocr_engines_used"`
	DeviceType     *string   `json:"device_type,omitempty"`
	SessionID      *string   `json:"session_id,omitempty"`
	Remote         bool      `json:"remote,omitempty"`
}

// ScanError is the structured failure of a scan. Details is a string or a
// list of validation errors.
type ScanError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Info describes the service (GET /api/v1/qid/info).
type Info struct {
	Service          string    `json:"service"`
	Version          string    `json:"version"`
	Description      string    `json:"description"`
	Capabilities     []string  `json:"capabilities"`
	SupportedFormats []string  `json:"supported_formats"`
	OCREngine        string    `json:"ocr_engine"`
	Timestamp        time.Time `json:"timestamp"`
}

// NumberValidation is the result of checking a typed-in QID
// (POST /api/v1/qid/validate). Details is set only for valid numbers.
type NumberValidation struct {
	Valid     bool                 `json:"valid"`
	QIDNumber string               `json:"qid_number,omitempty"`
	Formatted string               `json:"formatted,omitempty"`
	Error     *qid.ValidationError `json:"error,omitempty"`
	Details   *qid.Details         `json:"details,omitempty"`
}
