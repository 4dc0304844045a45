// Package extraction pulls QID card fields out of raw OCR text and scores
// how much each one can be trusted.
package extraction

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"qidscan/pkg/qid"
)

var (
	qidPattern     = regexp.MustCompile(`\b[23]\d{10}\b`)
	englishPattern = regexp.MustCompile(`\b[A-Z][a-z]+(?: [A-Z][a-z]+){1,3}\b`)
	arabicPattern  = regexp.MustCompile(`[\x{0600}-\x{06FF}\s]+`)

	dayFirstPattern  = regexp.MustCompile(`\b(\d{1,2})[/\-.](\d{1,2})[/\-.](\d{4})\b`)
	yearFirstPattern = regexp.MustCompile(`\b(\d{4})[/\-.](\d{1,2})[/\-.](\d{1,2})\b`)
	shortYearPattern = regexp.MustCompile(`\b(\d{1,2})[/\-.](\d{1,2})[/\-.](\d{2})\b`)
)

// asciiDigits folds Arabic-Indic (U+0660..) and Extended Arabic-Indic
// (U+06F0..) digits, as printed on the Arabic side of the card, to ASCII.
var asciiDigits = func() *strings.Replacer {
	pairs := make([]string, 0, 40)
	for i := range rune(10) {
		pairs = append(pairs, string('\u0660'+i), string('0'+i), string('\u06F0'+i), string('0'+i))
	}
	return strings.NewReplacer(pairs...)
}()

const (
	minDateYear = 1900
	maxDateYear = 2050
	// two-digit years below this pivot are 20YY, the rest 19YY
	shortYearPivot = 50
	minArabicRunes = 4
)

// Names holds the best English and Arabic name candidates. Either may be empty.
type Names struct {
	English string `json:"english"`
	Arabic  string `json:"arabic"`
}

// Empty reports whether neither script produced a name.
func (n Names) Empty() bool {
	return n.English == "" && n.Arabic == ""
}

// QIDNumbers returns every 11-digit candidate in text that passes
// qid.Inspect at now, in order of appearance, in ASCII digits.
func QIDNumbers(text string, now time.Time) []string {
	var out []string
	for _, m := range qidPattern.FindAllString(asciiDigits.Replace(text), -1) {
		if _, err := qid.Inspect(m, now); err == nil {
			out = append(out, m)
		}
	}
	return out
}

// ExtractNames picks the longest capitalised 2-4 word English run and the
// longest Arabic run of more than three characters. Ties go to the first.
func ExtractNames(text string) Names {
	var names Names
	for _, m := range englishPattern.FindAllString(text, -1) {
		if len(m) > len(names.English) {
			names.English = m
		}
	}

	best := 0
	for _, m := range arabicPattern.FindAllString(text, -1) {
		m = strings.TrimSpace(m)
		n := utf8.RuneCountInString(m)
		if n < minArabicRunes {
			continue
		}
		if n > best {
			names.Arabic, best = m, n
		}
	}
	return names
}

// Dates returns the distinct plausible dates in text as sorted ISO strings.
// Accepted layouts are DD/MM/YYYY, YYYY/MM/DD and DD/MM/YY with '/', '-' or
// '.' separators. Day and month are range-checked but not calendar-checked.
// Arabic-Indic digits are read as their ASCII values.
func Dates(text string) []string {
	text = asciiDigits.Replace(text)
	seen := make(map[string]struct{})
	add := func(y, m, d int) {
		if y < minDateYear || y > maxDateYear || m < 1 || m > 12 || d < 1 || d > 31 {
			return
		}
		seen[fmt.Sprintf("%04d-%02d-%02d", y, m, d)] = struct{}{}
	}

	for _, g := range dayFirstPattern.FindAllStringSubmatch(text, -1) {
		add(atoi(g[3]), atoi(g[2]), atoi(g[1]))
	}
	for _, g := range yearFirstPattern.FindAllStringSubmatch(text, -1) {
		add(atoi(g[1]), atoi(g[2]), atoi(g[3]))
	}
	for _, g := range shortYearPattern.FindAllStringSubmatch(text, -1) {
		y := atoi(g[3])
		if y < shortYearPivot {
			y += 2000
		} else {
			y += 1900
		}
		add(y, atoi(g[2]), atoi(g[1]))
	}

	out := make([]string, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	slices.Sort(out)
	return out
}

// dateYear returns the year of an ISO date, or 0 when it does not parse.
func dateYear(iso string) int {
	if len(iso) < 4 {
		return 0
	}
	y, err := strconv.Atoi(iso[:4])
	if err != nil {
		return 0
	}
	return y
}

// matches come from \d groups, so Atoi cannot fail
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
