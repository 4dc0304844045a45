package e2e

import (
	"context"

	"github.com/cucumber/godog"

	"qidscan/e2e/steps/capture"
	"qidscan/e2e/steps/common"
	"qidscan/e2e/steps/qid"
	"qidscan/e2e/steps/ratelimit"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		tc.Reset()
		return ctx, nil
	})

	common.RegisterSteps(ctx, tc)
	qid.RegisterSteps(ctx, tc)
	capture.RegisterSteps(ctx, tc)
	ratelimit.RegisterSteps(ctx, tc)
}
