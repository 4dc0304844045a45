package extraction

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, time.October, 17, 0, 0, 0, 0, time.UTC)

const cardText = `State of Qatar
ID No: 28463401234
Name: Ahmed Ali Hassan
محمد أحمد علي
Date of Birth: 15/03/1984
Expiry: 2027-05-20
Nationality: QATAR`

func TestQIDNumbers(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"single", "ID 28463401234", []string{"28463401234"}},
		{"order of appearance", "30163401234 then 28463401234", []string{"30163401234", "28463401234"}},
		{"future birth year dropped", "35063412345", nil},
		{"bad century digit not matched", "18463401234", nil},
		{"embedded in longer run", "284634012345", nil},
		{"no digits", "nothing here", nil},
		{"arabic-indic digits", "الرقم ٢٨٤٦٣٤٠١٢٣٤", []string{"28463401234"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QIDNumbers(tt.text, now))
		})
	}
}

func TestExtractNames(t *testing.T) {
	t.Run("english and arabic", func(t *testing.T) {
		names := ExtractNames(cardText)
		assert.Equal(t, "Ahmed Ali Hassan", names.English)
		assert.Equal(t, "محمد أحمد علي", names.Arabic)
	})

	t.Run("longest english wins", func(t *testing.T) {
		names := ExtractNames("Sara Khan\nMohammed Abdul Rahman Thani")
		assert.Equal(t, "Mohammed Abdul Rahman Thani", names.English)
	})

	t.Run("single words and short arabic ignored", func(t *testing.T) {
		names := ExtractNames("Name QATAR علي")
		assert.True(t, names.Empty())
	})
}

func TestDates(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"day first", "15/03/1984", []string{"1984-03-15"}},
		{"year first", "2027.5.20", []string{"2027-05-20"}},
		{"short year 19xx", "01.02.99", []string{"1999-02-01"}},
		{"short year 20xx", "5-6-49", []string{"2049-06-05"}},
		{"deduplicated and sorted", "2027-05-20 15/03/1984 1984-03-15", []string{"1984-03-15", "2027-05-20"}},
		{"year below range", "31/12/1899", []string{}},
		{"year above range", "2060/01/01", []string{}},
		{"month out of range", "13/13/2000", []string{}},
		{"day zero", "00/12/2000", []string{}},
		{"arabic-indic digits", "تاريخ الميلاد ٠١/٠٥/١٩٨٤", []string{"1984-05-01"}},
		{"extended arabic-indic digits", "۲۰۲۷/۰۵/۲۰", []string{"2027-05-20"}},
		{"mixed scripts deduplicated", "01/05/1984 ٠١/٠٥/١٩٨٤", []string{"1984-05-01"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Dates(tt.text))
		})
	}
}

func TestExtract(t *testing.T) {
	passes := []string{cardText, "28463401234", "Ahmed Ali Hassan"}
	d := Extract(cardText, passes, now)

	require.True(t, d.Found)
	assert.Equal(t, "28463401234", d.QIDNumber)
	assert.Equal(t, 1984, d.Details.BirthYear)
	assert.Equal(t, "Qatari", d.Nationality)
	assert.Equal(t, "1984-03-15", d.DateOfBirth)
	assert.Equal(t, "2027-05-20", d.ExpiryDate)

	assert.InDelta(t, 0.98, d.Scores[ScoreQIDNumber], 1e-9)
	assert.InDelta(t, 0.95, d.Scores[ScoreNameEnglish], 1e-9)
	assert.InDelta(t, 13*0.03+0.4, d.Scores[ScoreNameArabic], 1e-9)
	assert.InDelta(t, 0.95, d.Scores[ScoreName], 1e-9)
	assert.InDelta(t, 0.9, d.Scores[ScoreDateOfBirth], 1e-9)
	assert.InDelta(t, 0.9, d.Scores[ScoreExpiryDate], 1e-9)
	assert.InDelta(t, 0.92, d.Scores[ScoreNationality], 1e-9)
	assert.InDelta(t, 0.95, d.Scores[ScoreOCRQuality], 1e-9)
	assert.InDelta(t, (0.98+0.95+0.9+0.92)/4, d.Scores[ScoreOverall], 1e-9)
}

func TestExtract_DateAssignment(t *testing.T) {
	t.Run("single date matching birth year is dob only", func(t *testing.T) {
		d := Extract("28463401234 15/03/1984", nil, now)
		assert.Equal(t, "1984-03-15", d.DateOfBirth)
		assert.Empty(t, d.ExpiryDate)
		assert.InDelta(t, 0.5, d.Scores[ScoreExpiryDate], 1e-9)
	})

	t.Run("single unrelated date is expiry", func(t *testing.T) {
		d := Extract("28463401234 20/05/2027", nil, now)
		assert.Empty(t, d.DateOfBirth)
		assert.Equal(t, "2027-05-20", d.ExpiryDate)
	})

	t.Run("birth year tolerance of one year", func(t *testing.T) {
		d := Extract("28463401234 02/01/1985 20/05/2027", nil, now)
		assert.Equal(t, "1985-01-02", d.DateOfBirth)
		assert.Equal(t, "2027-05-20", d.ExpiryDate)
	})

	t.Run("no dates", func(t *testing.T) {
		d := Extract("28463401234", []string{"28463401234", "", ""}, now)
		assert.Empty(t, d.DateOfBirth)
		assert.Empty(t, d.ExpiryDate)
		assert.Zero(t, d.Scores[ScoreDateOfBirth])
		assert.InDelta(t, 11.0/100*0.3+0.2, d.Scores[ScoreOCRQuality], 1e-9)
	})
}

func TestExtract_NoQID(t *testing.T) {
	d := Extract("Ahmed Ali Hassan 15/03/1984", nil, now)
	assert.False(t, d.Found)
	assert.Empty(t, d.QIDNumber)
	assert.Nil(t, d.Scores)
}

func TestValidate(t *testing.T) {
	t.Run("clean card", func(t *testing.T) {
		v := Validate(Extract(cardText, []string{cardText}, now), now)
		assert.True(t, v.Valid)
		assert.Empty(t, v.Errors)
		assert.Empty(t, v.Warnings)
		assert.InDelta(t, 0.95, v.Scores[ScoreDateConsistency], 1e-9)
		assert.InDelta(t, 0.9, v.Scores[ScoreExpiryDate], 1e-9)
	})

	t.Run("nothing extracted", func(t *testing.T) {
		v := Validate(Data{}, now)
		assert.False(t, v.Valid)
		assert.Equal(t, []string{"No QID number found"}, v.Errors)
		assert.ElementsMatch(t, []string{
			"No name information extracted",
			"No date of birth extracted",
			"No expiry date extracted",
		}, v.Warnings)
	})

	t.Run("invalid qid", func(t *testing.T) {
		v := Validate(Data{QIDNumber: "1234"}, now)
		require.Len(t, v.Errors, 1)
		assert.Equal(t, "Invalid QID number: QID must be 11 digits, got 4", v.Errors[0])
	})

	t.Run("birth year mismatch is a warning", func(t *testing.T) {
		v := Validate(Data{QIDNumber: "28463401234", DateOfBirth: "1990-01-01", ExpiryDate: "2030-01-01"}, now)
		assert.True(t, v.Valid)
		assert.Contains(t, v.Warnings, "Birth year mismatch: QID indicates 1984, extracted date indicates 1990")
		assert.InDelta(t, 0.3, v.Scores[ScoreDateConsistency], 1e-9)
	})

	t.Run("future birth date is an error", func(t *testing.T) {
		v := Validate(Data{QIDNumber: "30163401234", DateOfBirth: "2031-01-01"}, now)
		assert.False(t, v.Valid)
		assert.Contains(t, v.Errors, "Invalid birth year: 2031")
	})

	t.Run("expired card is a warning", func(t *testing.T) {
		v := Validate(Data{QIDNumber: "28463401234", ExpiryDate: "2020-01-01"}, now)
		assert.True(t, v.Valid)
		found := false
		for _, w := range v.Warnings {
			found = found || strings.HasPrefix(w, "QID appears to be expired")
		}
		assert.True(t, found)
	})
}
