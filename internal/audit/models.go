package audit

import (
	"encoding/hex"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Action names what happened. Values are stored verbatim.
type Action string

const (
	ActionScanProcessed  Action = "scan_processed"
	ActionScanFailed     Action = "scan_failed"
	ActionQIDValidated   Action = "qid_validated"
	ActionSessionCreated Action = "capture_session_created"
	ActionFrameSubmitted Action = "capture_frame_submitted"
)

// Event is emitted from domain logic to capture key actions. It never holds
// the QID itself, only a keyed digest of it.
type Event struct {
	Action       Action        `json:"action"`
	ProcessingID string        `json:"processing_id,omitempty"`
	SubjectHash  string        `json:"subject_hash,omitempty"`
	Success      bool          `json:"success"`
	ErrorCode    string        `json:"error_code,omitempty"`
	Duration     time.Duration `json:"duration_ns"`
	DeviceClass  string        `json:"device_class,omitempty"`
	RequestID    string        `json:"request_id,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
}

// Hasher derives stable, keyed subject digests so events about the same card
// can be correlated without storing the number.
type Hasher struct {
	key []byte
}

// NewHasher returns a Hasher keyed with key. BLAKE2b accepts at most 64 key
// bytes; longer keys are truncated.
func NewHasher(key string) *Hasher {
	k := []byte(key)
	if len(k) > blake2b.Size {
		k = k[:blake2b.Size]
	}
	return &Hasher{key: k}
}

// Hash returns the hex BLAKE2b-256 digest of subject, or "" for an empty subject.
func (h *Hasher) Hash(subject string) string {
	if subject == "" {
		return ""
	}
	mac, err := blake2b.New256(h.key)
	if err != nil {
		// only reachable with a key over 64 bytes, which NewHasher prevents
		panic(err)
	}
	mac.Write([]byte(subject))
	return hex.EncodeToString(mac.Sum(nil))
}
