//go:build go1.18

package qid

import (
	"strings"
	"testing"
)

// FuzzValidate checks that arbitrary input never panics and that a result
// carries either a number or an error, never both.
func FuzzValidate(f *testing.F) {
	f.Add("")
	f.Add("28425001234")
	f.Add("284-2500-1234")
	f.Add("15425001234")
	f.Add("'; DROP TABLE scans;--")
	f.Add(string([]byte{0x00, 0xff, 0x32}))
	f.Add(strings.Repeat("3", 1000))

	f.Fuzz(func(t *testing.T, input string) {
		res := Validate(input)

		if res.Valid == (res.Err != nil) {
			t.Fatalf("valid=%v but err=%v", res.Valid, res.Err)
		}
		if res.Valid {
			if len(res.Number) != Length {
				t.Fatalf("accepted %q with %d digits", res.Number, len(res.Number))
			}
			if res.Number[0] != '2' && res.Number[0] != '3' {
				t.Fatalf("accepted century digit %q", res.Number[0])
			}
			if again := Validate(res.Number); again != res {
				t.Fatalf("validation not idempotent: %+v vs %+v", res, again)
			}
		} else if res.Number != "" {
			t.Fatalf("invalid result carries number %q", res.Number)
		}
	})
}

// FuzzFormat checks that Format either groups exactly 11 digits or returns the
// input untouched.
func FuzzFormat(f *testing.F) {
	f.Add("28425001234")
	f.Add("123")
	f.Add("284 2500 1234")

	f.Fuzz(func(t *testing.T, input string) {
		out := Format(input)
		if len(Normalize(input)) != Length {
			if out != input {
				t.Fatalf("Format(%q) = %q, want input unchanged", input, out)
			}
			return
		}
		if len(out) != 13 || out[3] != '-' || out[8] != '-' {
			t.Fatalf("Format(%q) = %q, want DDD-DDDD-DDDD", input, out)
		}
		if Format(out) != out {
			t.Fatalf("Format not idempotent on %q", out)
		}
	})
}
