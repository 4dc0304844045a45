package extraction

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"qidscan/pkg/qid"
)

// DocumentType is the only document this package understands.
const DocumentType = "Qatar ID"

// Score keys shared by extraction and validation.
const (
	ScoreQIDNumber       = "qid_number"
	ScoreNameEnglish     = "name_english"
	ScoreNameArabic      = "name_arabic"
	ScoreName            = "name"
	ScoreDateOfBirth     = "date_of_birth"
	ScoreExpiryDate      = "expiry_date"
	ScoreNationality     = "nationality"
	ScoreOCRQuality      = "ocr_quality"
	ScoreOverall         = "overall"
	ScoreDateConsistency = "date_consistency"
)

// Data is what Extract recovers from one card. When Found is false no valid
// QID was located and every other field is zero.
type Data struct {
	Found       bool
	QIDNumber   string
	Details     qid.Details
	Names       Names
	DateOfBirth string
	ExpiryDate  string
	Nationality string
	Scores      map[string]float64
}

// Extract combines the OCR passes into card fields. combined is the
// newline-joined non-empty pass output; passes is every pass, empty or not,
// and only feeds the OCR quality score.
func Extract(combined string, passes []string, now time.Time) Data {
	numbers := QIDNumbers(combined, now)
	if len(numbers) == 0 {
		return Data{}
	}

	details, err := qid.Inspect(numbers[0], now)
	if err != nil {
		// QIDNumbers only returns numbers Inspect accepted
		return Data{}
	}

	names := ExtractNames(combined)
	dates := Dates(combined)

	var dob, expiry string
	for _, d := range dates {
		if abs(dateYear(d)-details.BirthYear) <= 1 {
			dob = d
			break
		}
	}
	switch {
	case len(dates) > 1:
		expiry = dates[len(dates)-1]
	case len(dates) == 1 && dob == "":
		expiry = dates[0]
	}

	return Data{
		Found:       true,
		QIDNumber:   details.Number,
		Details:     details,
		Names:       names,
		DateOfBirth: dob,
		ExpiryDate:  expiry,
		Nationality: details.Nationality,
		Scores:      scores(combined, passes, names, len(dates)),
	}
}

func scores(text string, passes []string, names Names, dateCount int) map[string]float64 {
	s := map[string]float64{
		ScoreQIDNumber:   0.98,
		ScoreNameEnglish: englishNameScore(names.English),
		ScoreNameArabic:  arabicNameScore(names.Arabic),
		ScoreNationality: 0.92,
	}
	s[ScoreName] = math.Max(s[ScoreNameEnglish], s[ScoreNameArabic])

	switch {
	case dateCount >= 2:
		s[ScoreDateOfBirth], s[ScoreExpiryDate] = 0.9, 0.9
	case dateCount == 1:
		s[ScoreDateOfBirth], s[ScoreExpiryDate] = 0.9, 0.5
	default:
		s[ScoreDateOfBirth], s[ScoreExpiryDate] = 0, 0
	}

	nonEmpty := 0
	for _, p := range passes {
		if strings.TrimSpace(p) != "" {
			nonEmpty++
		}
	}
	textLen := float64(utf8.RuneCountInString(strings.TrimSpace(text)))
	s[ScoreOCRQuality] = math.Min(0.95, textLen/100*0.3+float64(nonEmpty)*0.2)

	s[ScoreOverall] = (s[ScoreQIDNumber] + s[ScoreName] + s[ScoreDateOfBirth] + s[ScoreNationality]) / 4
	return s
}

func englishNameScore(name string) float64 {
	if name == "" {
		return 0
	}
	return math.Min(0.95, float64(len(strings.Fields(name)))*0.25+0.5)
}

func arabicNameScore(name string) float64 {
	if name == "" {
		return 0
	}
	return math.Min(0.95, float64(utf8.RuneCountInString(name))*0.03+0.4)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
