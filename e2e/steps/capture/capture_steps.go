package capture

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

type TestContext interface {
	POST(path string, body any) error
	GET(path string, headers map[string]string) error
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	GetSessionID() string
	SetSessionID(id string)
}

// RegisterSteps registers desktop-to-mobile capture session steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &captureSteps{tc: tc}

	ctx.Step(`^I create a capture session$`, steps.createSession)
	ctx.Step(`^I fetch the capture session$`, steps.fetchSession)
	ctx.Step(`^I fetch the capture session QR code$`, steps.fetchQR)
	ctx.Step(`^I submit a frame with image data "([^"]*)"$`, steps.submitFrame)
	ctx.Step(`^the response should be a PNG image$`, steps.responseIsPNG)
	ctx.Step(`^the mobile URL should point at the session$`, steps.mobileURLPointsAtSession)
}

type captureSteps struct {
	tc TestContext
}

func (s *captureSteps) createSession(_ context.Context) error {
	if err := s.tc.POST("/api/v1/capture/sessions", "{}"); err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() != 201 {
		return fmt.Errorf("create session: %d %s", s.tc.GetLastResponseStatus(), s.tc.GetLastResponseBody())
	}
	id, err := s.tc.GetResponseField("session_id")
	if err != nil {
		return err
	}
	s.tc.SetSessionID(fmt.Sprint(id))
	return nil
}

func (s *captureSteps) fetchSession(_ context.Context) error {
	return s.tc.GET("/api/v1/capture/sessions/"+s.tc.GetSessionID(), nil)
}

func (s *captureSteps) fetchQR(_ context.Context) error {
	return s.tc.GET("/api/v1/capture/sessions/"+s.tc.GetSessionID()+"/qr.png", nil)
}

func (s *captureSteps) submitFrame(_ context.Context, imageData string) error {
	return s.tc.POST("/api/v1/capture/sessions/"+s.tc.GetSessionID()+"/frames",
		map[string]string{"image_data": imageData})
}

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func (s *captureSteps) responseIsPNG(_ context.Context) error {
	body := s.tc.GetLastResponseBody()
	if len(body) < len(pngMagic) || string(body[:len(pngMagic)]) != string(pngMagic) {
		return fmt.Errorf("response is not a PNG (%d bytes)", len(body))
	}
	return nil
}

func (s *captureSteps) mobileURLPointsAtSession(_ context.Context) error {
	v, err := s.tc.GetResponseField("mobile_url")
	if err != nil {
		return err
	}
	want := "/capture/" + s.tc.GetSessionID()
	if got := fmt.Sprint(v); len(got) < len(want) || got[len(got)-len(want):] != want {
		return fmt.Errorf("mobile_url %q does not end in %q", got, want)
	}
	return nil
}
