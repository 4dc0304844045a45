package qid

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cucumber/godog"
)

type TestContext interface {
	POST(path string, body any) error
	GetResponseField(field string) (any, error)
}

// RegisterSteps registers steps for the number validation endpoints
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &qidSteps{tc: tc}

	ctx.Step(`^I validate the QID "([^"]*)"$`, steps.validate)
	ctx.Step(`^I format the QID "([^"]*)"$`, steps.format)
	ctx.Step(`^I classify the scores:$`, steps.classify)
	ctx.Step(`^the tier for "([^"]*)" should be "([^"]*)"$`, steps.tierShouldBe)
	ctx.Step(`^the validation error kind should be "([^"]*)"$`, steps.errorKindShouldBe)
}

type qidSteps struct {
	tc TestContext
}

func (s *qidSteps) validate(_ context.Context, number string) error {
	return s.tc.POST("/api/v1/qid/validate", map[string]string{"qid_number": number})
}

func (s *qidSteps) format(_ context.Context, number string) error {
	return s.tc.POST("/api/v1/qid/format", map[string]string{"qid_number": number})
}

func (s *qidSteps) classify(_ context.Context, table *godog.Table) error {
	scores := make(map[string]float64, len(table.Rows))
	for _, row := range table.Rows[1:] {
		var score float64
		if err := json.Unmarshal([]byte(row.Cells[1].Value), &score); err != nil {
			return fmt.Errorf("score for %s: %w", row.Cells[0].Value, err)
		}
		scores[row.Cells[0].Value] = score
	}
	return s.tc.POST("/api/v1/qid/classify", map[string]any{"scores": scores})
}

func (s *qidSteps) tierShouldBe(_ context.Context, field, want string) error {
	v, err := s.tc.GetResponseField("tiers")
	if err != nil {
		return err
	}
	tiers, ok := v.(map[string]any)
	if !ok {
		return fmt.Errorf("tiers is not an object: %v", v)
	}
	if got := fmt.Sprint(tiers[field]); got != want {
		return fmt.Errorf("expected tier %q for %s, got %q", want, field, got)
	}
	return nil
}

func (s *qidSteps) errorKindShouldBe(_ context.Context, want string) error {
	v, err := s.tc.GetResponseField("error")
	if err != nil {
		return err
	}
	body, ok := v.(map[string]any)
	if !ok {
		return fmt.Errorf("error is not an object: %v", v)
	}
	if got := fmt.Sprint(body["kind"]); got != want {
		return fmt.Errorf("expected error kind %q, got %q", want, got)
	}
	return nil
}
