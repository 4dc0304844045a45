package ratelimit

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	SetClientIP(ip string)
}

// RegisterSteps registers per-IP scan rate limiting steps. The client IP step
// only takes effect when the server trusts the test runner as a proxy.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ratelimitSteps{tc: tc}

	ctx.Step(`^I am a client with IP "([^"]*)"$`, steps.clientWithIP)
	ctx.Step(`^I send (\d+) scan requests$`, steps.sendScanRequests)
	ctx.Step(`^every scan response should have been (\d+) or (\d+)$`, steps.everyResponseWasOneOf)
	ctx.Step(`^the last scan response should have been (\d+)$`, steps.lastResponseWas)
}

type ratelimitSteps struct {
	tc       TestContext
	statuses []int
}

func (s *ratelimitSteps) clientWithIP(_ context.Context, ip string) error {
	s.tc.SetClientIP(ip)
	s.statuses = nil
	return nil
}

// sendScanRequests posts an empty image so each request is cheap for the
// server but still counts against the OCR budget.
func (s *ratelimitSteps) sendScanRequests(_ context.Context, n int) error {
	s.statuses = s.statuses[:0]
	for range n {
		if err := s.tc.POST("/api/v1/qid/process", map[string]string{"image_data": ""}); err != nil {
			return err
		}
		s.statuses = append(s.statuses, s.tc.GetLastResponseStatus())
	}
	return nil
}

func (s *ratelimitSteps) everyResponseWasOneOf(_ context.Context, a, b int) error {
	for i, got := range s.statuses {
		if got != a && got != b {
			return fmt.Errorf("request %d returned %d, want %d or %d", i+1, got, a, b)
		}
	}
	return nil
}

func (s *ratelimitSteps) lastResponseWas(_ context.Context, want int) error {
	if len(s.statuses) == 0 {
		return fmt.Errorf("no scan requests sent")
	}
	if got := s.statuses[len(s.statuses)-1]; got != want {
		return fmt.Errorf("last request returned %d, want %d", got, want)
	}
	return nil
}
