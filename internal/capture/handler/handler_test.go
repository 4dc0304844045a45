package handler

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"qidscan/internal/capture/handler/mocks"
	"qidscan/internal/capture/models"
	"qidscan/internal/platform/logger"
	dErrors "qidscan/pkg/domain-errors"
	"qidscan/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.router = chi.NewRouter()
	New(s.service, logger.Discard()).Register(s.router)
}

func session(status models.Status) *models.Session {
	return &models.Session{
		ID:        "3f0c9a7e-1111-4222-8333-444455556666",
		Status:    status,
		MobileURL: "https://scan.example.qa/capture/3f0c9a7e-1111-4222-8333-444455556666",
		CreatedAt: testutil.FixedNow,
		ExpiresAt: testutil.FixedNow.Add(10 * time.Minute),
	}
}

func (s *HandlerSuite) TestCreate() {
	s.service.EXPECT().CreateSession(gomock.Any()).Return(session(models.StatusPending), nil)

	rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodPost, "/api/v1/capture/sessions", `{}`))
	s.Equal(http.StatusCreated, rr.Code)

	body := testutil.Decode[createResponse](s.T(), rr)
	s.Equal("3f0c9a7e-1111-4222-8333-444455556666", body.SessionID)
	s.Equal(models.StatusPending, body.Status)
	s.Equal("/api/v1/capture/sessions/3f0c9a7e-1111-4222-8333-444455556666/qr.png", body.QRURL)
	s.True(body.ExpiresAt.Equal(testutil.FixedNow.Add(10 * time.Minute)))
}

func (s *HandlerSuite) TestCreateHidesStoreErrors() {
	s.service.EXPECT().CreateSession(gomock.Any()).
		Return(nil, dErrors.Wrap(errors.New("redis: connection refused"), dErrors.CodeInternal, "failed to create capture session"))

	rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodPost, "/api/v1/capture/sessions", `{}`))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusInternalServerError, "internal_error")
	s.NotContains(rr.Body.String(), "redis")
}

func (s *HandlerSuite) TestGet() {
	s.Run("returns the session", func() {
		s.service.EXPECT().Session(gomock.Any(), "abc").Return(session(models.StatusCompleted), nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodGet, "/api/v1/capture/sessions/abc", ""))
		s.Equal(http.StatusOK, rr.Code)
		testutil.AssertJSONContains(s.T(), rr, "status", "completed")
	})

	s.Run("expired session is gone", func() {
		s.service.EXPECT().Session(gomock.Any(), "old").Return(nil, dErrors.New(dErrors.CodeGone, "capture session expired"))

		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodGet, "/api/v1/capture/sessions/old", ""))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusGone, "gone")
	})

	s.Run("unknown session is not found", func() {
		s.service.EXPECT().Session(gomock.Any(), "nope").Return(nil, dErrors.New(dErrors.CodeNotFound, "capture session not found"))

		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodGet, "/api/v1/capture/sessions/nope", ""))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})
}

func (s *HandlerSuite) TestQR() {
	png := []byte{0x89, 'P', 'N', 'G'}
	s.service.EXPECT().QRCode(gomock.Any(), "abc").Return(png, nil)

	rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodGet, "/api/v1/capture/sessions/abc/qr.png", ""))
	s.Equal(http.StatusOK, rr.Code)
	s.Equal("image/png", rr.Header().Get("Content-Type"))
	s.Equal(png, rr.Body.Bytes())
}

func (s *HandlerSuite) TestSubmitFrame() {
	s.Run("processes the frame", func() {
		s.service.EXPECT().SubmitFrame(gomock.Any(), "abc", "data:image/jpeg;base64,AAAA").
			Return(session(models.StatusCompleted), nil)

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost,
			"/api/v1/capture/sessions/abc/frames", frameRequest{ImageData: "data:image/jpeg;base64,AAAA"}))
		s.Equal(http.StatusOK, rr.Code)
		testutil.AssertJSONContains(s.T(), rr, "status", "completed")
	})

	s.Run("second frame conflicts", func() {
		s.service.EXPECT().SubmitFrame(gomock.Any(), "abc", gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeConflict, "capture session already received a frame"))

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost,
			"/api/v1/capture/sessions/abc/frames", frameRequest{ImageData: "x"}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "conflict")
	})

	s.Run("empty body", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodPost, "/api/v1/capture/sessions/abc/frames", ""))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
		testutil.AssertJSONContains(s.T(), rr, "error_description", "request body is empty")
	})
}

func (s *HandlerSuite) TestLimiterGuardsOnlyFrames() {
	reject := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})
	}
	router := chi.NewRouter()
	New(s.service, logger.Discard()).WithLimiter(reject).Register(router)

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(s.T(), http.MethodPost,
		"/api/v1/capture/sessions/abc/frames", frameRequest{ImageData: "x"}))
	s.Equal(http.StatusTooManyRequests, rr.Code)

	s.service.EXPECT().Session(gomock.Any(), "abc").Return(session(models.StatusPending), nil)
	rr = testutil.DoRequest(router, testutil.NewRequestWithBody(s.T(), http.MethodGet, "/api/v1/capture/sessions/abc", ""))
	s.Equal(http.StatusOK, rr.Code)
}
