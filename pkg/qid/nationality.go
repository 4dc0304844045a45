package qid

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed nationalities.yaml
var nationalitiesYAML []byte

var nationalities = mustLoadNationalities(nationalitiesYAML)

func mustLoadNationalities(data []byte) map[string]string {
	table := make(map[string]string)
	if err := yaml.Unmarshal(data, &table); err != nil {
		panic(fmt.Sprintf("qid: parse nationality table: %v", err))
	}
	return table
}

// Nationality returns the nationality for a three digit QID nationality code.
// Unknown codes render as "Unknown (CCC)" and ok is false.
func Nationality(code string) (name string, ok bool) {
	if name, ok := nationalities[code]; ok {
		return name, true
	}
	return fmt.Sprintf("Unknown (%s)", code), false
}
