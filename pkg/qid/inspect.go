package qid

import (
	"strconv"
	"time"
)

// Components are the positional fields of a normalized QID.
type Components struct {
	CenturyDigit    string `json:"century_digit"`
	YearDigits      string `json:"year_digits"`
	NationalityCode string `json:"nationality_code"`
	SequenceNumber  string `json:"sequence_number"`
}

// Details is what Inspect derives from a structurally valid QID.
type Details struct {
	Number          string     `json:"qid_number"`
	Components      Components `json:"components"`
	BirthYear       int        `json:"birth_year"`
	Age             int        `json:"age"`
	Nationality     string     `json:"nationality"`
	NationalityCode string     `json:"nationality_code"`
}

// Split breaks a normalized 11-digit QID into its components. It does not
// validate; call Validate first.
func Split(number string) Components {
	return Components{
		CenturyDigit:    number[0:1],
		YearDigits:      number[1:3],
		NationalityCode: number[3:6],
		SequenceNumber:  number[6:11],
	}
}

// BirthYear decodes the birth year from the century digit and year digits.
func (c Components) BirthYear() int {
	yy, _ := strconv.Atoi(c.YearDigits)
	if c.CenturyDigit == "3" {
		return 2000 + yy
	}
	return 1900 + yy
}

// Inspect validates raw and decodes its components relative to now. On top of
// the structural checks in Validate it rejects birth years after now.Year().
// The returned error is always a *ValidationError.
func Inspect(raw string, now time.Time) (Details, error) {
	res := Validate(raw)
	if !res.Valid {
		return Details{}, res.Err
	}

	comps := Split(res.Number)
	birthYear := comps.BirthYear()
	if birthYear > now.Year() {
		return Details{}, &ValidationError{Kind: KindFutureBirthYear, BirthYear: birthYear}
	}

	nationality, _ := Nationality(comps.NationalityCode)
	return Details{
		Number:          res.Number,
		Components:      comps,
		BirthYear:       birthYear,
		Age:             now.Year() - birthYear,
		Nationality:     nationality,
		NationalityCode: comps.NationalityCode,
	}, nil
}
