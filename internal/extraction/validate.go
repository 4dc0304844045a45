package extraction

import (
	"fmt"
	"math"
	"time"

	"qidscan/pkg/qid"
)

// Validation separates blocking problems (Errors) from advisory ones
// (Warnings). Valid is true exactly when Errors is empty.
type Validation struct {
	Valid    bool               `json:"valid"`
	Errors   []string           `json:"errors"`
	Warnings []string           `json:"warnings"`
	Scores   map[string]float64 `json:"confidence_scores"`
}

// Validate cross-checks extracted data at now.
func Validate(d Data, now time.Time) Validation {
	v := Validation{
		Errors:   []string{},
		Warnings: []string{},
		Scores:   map[string]float64{},
	}
	year := now.Year()

	if d.QIDNumber == "" {
		v.Errors = append(v.Errors, "No QID number found")
		v.Scores[ScoreQIDNumber] = 0
	} else if details, err := qid.Inspect(d.QIDNumber, now); err != nil {
		v.Errors = append(v.Errors, fmt.Sprintf("Invalid QID number: %s", err))
		v.Scores[ScoreQIDNumber] = 0
	} else {
		v.Scores[ScoreQIDNumber] = 0.98
		if d.DateOfBirth != "" {
			extracted := dateYear(d.DateOfBirth)
			if abs(extracted-details.BirthYear) > 1 {
				v.Warnings = append(v.Warnings, fmt.Sprintf(
					"Birth year mismatch: QID indicates %d, extracted date indicates %d", details.BirthYear, extracted))
				v.Scores[ScoreDateConsistency] = 0.3
			} else {
				v.Scores[ScoreDateConsistency] = 0.95
			}
		}
	}

	if d.Names.Empty() {
		v.Warnings = append(v.Warnings, "No name information extracted")
		v.Scores[ScoreName] = 0
	} else {
		if d.Names.English != "" {
			v.Scores[ScoreNameEnglish] = englishNameScore(d.Names.English)
		}
		if d.Names.Arabic != "" {
			v.Scores[ScoreNameArabic] = arabicNameScore(d.Names.Arabic)
		}
		v.Scores[ScoreName] = math.Max(v.Scores[ScoreNameEnglish], v.Scores[ScoreNameArabic])
	}

	if d.DateOfBirth == "" {
		v.Warnings = append(v.Warnings, "No date of birth extracted")
		v.Scores[ScoreDateOfBirth] = 0
	} else if by := dateYear(d.DateOfBirth); by == 0 {
		v.Errors = append(v.Errors, "Invalid date of birth format")
		v.Scores[ScoreDateOfBirth] = 0
	} else if by > year || by < minDateYear {
		v.Errors = append(v.Errors, fmt.Sprintf("Invalid birth year: %d", by))
		v.Scores[ScoreDateOfBirth] = 0
	} else {
		v.Scores[ScoreDateOfBirth] = 0.9
	}

	if d.ExpiryDate == "" {
		v.Warnings = append(v.Warnings, "No expiry date extracted")
		v.Scores[ScoreExpiryDate] = 0
	} else if ey := dateYear(d.ExpiryDate); ey == 0 {
		v.Warnings = append(v.Warnings, "Invalid expiry date format")
		v.Scores[ScoreExpiryDate] = 0.5
	} else {
		if ey < year {
			v.Warnings = append(v.Warnings, fmt.Sprintf("QID appears to be expired: %s", d.ExpiryDate))
		}
		v.Scores[ScoreExpiryDate] = 0.9
	}

	v.Valid = len(v.Errors) == 0
	return v
}
