package e2e

import (
	"os"
	"testing"

	"github.com/cucumber/godog"
)

// TestFeatures runs the Gherkin scenarios against a live server. Set
// QIDSCAN_E2E_BASE_URL (e.g. http://localhost:8080) to enable.
func TestFeatures(t *testing.T) {
	baseURL := os.Getenv("QIDSCAN_E2E_BASE_URL")
	if baseURL == "" {
		t.Skip("QIDSCAN_E2E_BASE_URL not set")
	}
	tc := NewTestContext(baseURL)

	suite := godog.TestSuite{
		ScenarioInitializer: func(ctx *godog.ScenarioContext) {
			RegisterSteps(ctx, tc)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
			Strict:   true,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
