// Package qid validates, formats and inspects Qatari national ID numbers.
//
// Every function in this package is pure and safe for concurrent use. Callers
// pass raw user or OCR input; normalization strips everything that is not an
// ASCII decimal digit before any check runs.
//
//	res := qid.Validate("284-2500-1234")
//	if res.Valid {
//		fmt.Println(qid.Format(res.Number)) // 284-2500-1234
//	}
package qid

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRawInput is returned when decoding a RawInput that is neither a
// JSON string nor a JSON number.
var ErrInvalidRawInput = errors.New("qid must be a string or number")

// Length is the number of digits in a normalized QID.
const Length = 11

// ErrorKind names a structural reason a QID was rejected.
type ErrorKind string

const (
	KindInvalidLength       ErrorKind = "invalid_length"
	KindInvalidCenturyDigit ErrorKind = "invalid_century_digit"
	KindFutureBirthYear     ErrorKind = "future_birth_year"
)

// ValidationError describes why a QID failed validation. Digits carries the
// normalized digit count for KindInvalidLength; CenturyDigit carries the
// offending first digit for KindInvalidCenturyDigit.
type ValidationError struct {
	Kind         ErrorKind `json:"kind"`
	Digits       int       `json:"digits,omitempty"`
	CenturyDigit string    `json:"century_digit,omitempty"`
	BirthYear    int       `json:"birth_year,omitempty"`
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case KindInvalidLength:
		return fmt.Sprintf("QID must be %d digits, got %d", Length, e.Digits)
	case KindInvalidCenturyDigit:
		return fmt.Sprintf("Invalid century digit: %s. Must be 2 or 3", e.CenturyDigit)
	case KindFutureBirthYear:
		return fmt.Sprintf("Invalid birth year: %d. Cannot be in the future", e.BirthYear)
	default:
		return "invalid QID"
	}
}

// MarshalJSON adds the human readable message next to the structured fields.
func (e *ValidationError) MarshalJSON() ([]byte, error) {
	type alias ValidationError
	return json.Marshal(struct {
		*alias
		Message string `json:"message"`
	}{alias: (*alias)(e), Message: e.Error()})
}

// ValidationResult is the outcome of Validate. Exactly one of Number or Err is
// populated.
type ValidationResult struct {
	Valid  bool             `json:"valid"`
	Number string           `json:"qid_number,omitempty"`
	Err    *ValidationError `json:"error,omitempty"`
}

// Normalize returns the decimal digits of raw in their original order.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		if c := raw[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Validate checks the digit count and the century digit of raw. It never
// panics and reports failures in the result instead of returning an error.
// No checksum is computed.
func Validate(raw string) ValidationResult {
	digits := Normalize(raw)
	if len(digits) != Length {
		return ValidationResult{Err: &ValidationError{Kind: KindInvalidLength, Digits: len(digits)}}
	}
	if c := digits[0]; c != '2' && c != '3' {
		return ValidationResult{Err: &ValidationError{Kind: KindInvalidCenturyDigit, CenturyDigit: string(c)}}
	}
	return ValidationResult{Valid: true, Number: digits}
}

// Format groups an 11-digit QID as DDD-DDDD-DDDD. Anything that does not
// normalize to exactly 11 digits is returned unchanged.
func Format(raw string) string {
	digits := Normalize(raw)
	if len(digits) != Length {
		return raw
	}
	return digits[:3] + "-" + digits[3:7] + "-" + digits[7:]
}

// RawInput is a QID as it arrives over JSON: either a string or a number.
type RawInput string

// UnmarshalJSON accepts `"28425001234"` as well as `28425001234`.
func (r *RawInput) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = RawInput(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRawInput, err)
	}
	*r = RawInput(n.String())
	return nil
}

func (r RawInput) String() string {
	return string(r)
}
