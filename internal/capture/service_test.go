package capture

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qidscan/internal/audit"
	"qidscan/internal/capture/models"
	"qidscan/internal/capture/store/memory"
	"qidscan/internal/ocr"
	"qidscan/internal/platform/logger"
	scanmodels "qidscan/internal/scan/models"
	dErrors "qidscan/pkg/domain-errors"
	"qidscan/pkg/testutil"
)

type fakeProcessor struct {
	result *scanmodels.Result
	err    error
	got    []scanmodels.ProcessRequest
}

func (f *fakeProcessor) Process(_ context.Context, req scanmodels.ProcessRequest) (*scanmodels.Result, error) {
	f.got = append(f.got, req)
	return f.result, f.err
}

type recordingEmitter struct {
	events []audit.Event
}

func (r *recordingEmitter) Emit(_ context.Context, e audit.Event) {
	r.events = append(r.events, e)
}

func newService(p Processor, opts ...Option) (*Service, *recordingEmitter) {
	rec := &recordingEmitter{}
	opts = append([]Option{
		WithLogger(logger.Discard()),
		WithAudit(rec),
		WithPublicBaseURL("https://scan.example.qa/"),
		WithTTL(10 * time.Minute),
	}, opts...)
	return NewService(memory.NewInMemoryStore(), p, opts...), rec
}

func TestCaptureSessionLifecycle(t *testing.T) {
	processor := &fakeProcessor{result: &scanmodels.Result{
		Success: true,
		Data:    &scanmodels.CardData{QIDNumber: "28412345678"},
	}}
	svc, rec := newService(processor)
	ctx := testutil.WithDevice(testutil.Context(testutil.FixedNow), "Mozilla/5.0 (X11; Linux x86_64)", "desktop")

	var session *models.Session
	testutil.Given(t, "a desktop creates a session", func(t *testing.T) {
		var err error
		session, err = svc.CreateSession(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, session.Status)
		assert.Equal(t, "https://scan.example.qa/capture/"+session.ID, session.MobileURL)
		assert.Equal(t, "desktop", session.CreatorDevice)
		assert.Equal(t, testutil.FixedNow.Add(10*time.Minute), session.ExpiresAt)
	})

	testutil.When(t, "a phone submits a frame", func(t *testing.T) {
		phone := testutil.WithDevice(testutil.Context(testutil.FixedNow.Add(time.Minute)), "iPhone", "mobile")
		got, err := svc.SubmitFrame(phone, session.ID, "data:image/png;base64,AAAA")
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, got.Status)
		assert.Equal(t, "mobile", got.SubmitterDevice)

		require.Len(t, processor.got, 1)
		require.NotNil(t, processor.got[0].Metadata)
		assert.Equal(t, session.ID, processor.got[0].Metadata.SessionID)
		assert.Equal(t, "mobile", processor.got[0].Metadata.DeviceType)
	})

	testutil.Then(t, "the desktop sees the result", func(t *testing.T) {
		got, err := svc.Session(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, got.Status)
		require.NotNil(t, got.Result)
		assert.Equal(t, "28412345678", got.Result.Data.QIDNumber)
		require.NotNil(t, got.CompletedAt)
	})

	testutil.Then(t, "a second frame is refused", func(t *testing.T) {
		_, err := svc.SubmitFrame(ctx, session.ID, "data:image/png;base64,AAAA")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
		assert.Len(t, processor.got, 1)
	})

	testutil.Then(t, "both steps are audited", func(t *testing.T) {
		require.Len(t, rec.events, 2)
		assert.Equal(t, audit.ActionSessionCreated, rec.events[0].Action)
		assert.Equal(t, audit.ActionFrameSubmitted, rec.events[1].Action)
		assert.True(t, rec.events[1].Success)
	})
}

func TestSubmitFrameScanFailureMarksSessionFailed(t *testing.T) {
	processor := &fakeProcessor{result: &scanmodels.Result{
		Success: false,
		Error:   &scanmodels.ScanError{Code: scanmodels.CodeNoTextExtracted, Message: "No text could be extracted from the image"},
	}}
	svc, rec := newService(processor)
	ctx := testutil.Context(testutil.FixedNow)

	session, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	got, err := svc.SubmitFrame(ctx, session.ID, "data:image/png;base64,AAAA")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Equal(t, "No text could be extracted from the image", got.Error)
	assert.Equal(t, scanmodels.CodeNoTextExtracted, rec.events[1].ErrorCode)
}

func TestSubmitFrameProcessorErrorHidesInternals(t *testing.T) {
	processor := &fakeProcessor{err: dErrors.Wrap(errors.New("tesseract: segfault"), dErrors.CodeInternal, "boom")}
	svc, _ := newService(processor)
	ctx := testutil.Context(testutil.FixedNow)

	session, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	got, err := svc.SubmitFrame(ctx, session.ID, "data:image/png;base64,AAAA")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Equal(t, "image processing failed", got.Error)
}

func TestSubmitFrameErrors(t *testing.T) {
	svc, _ := newService(&fakeProcessor{result: &scanmodels.Result{Success: true}})
	ctx := testutil.Context(testutil.FixedNow)
	session, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	tests := []struct {
		name  string
		ctx   context.Context
		id    string
		image string
		code  dErrors.Code
	}{
		{name: "empty image", ctx: ctx, id: session.ID, image: " ", code: dErrors.CodeBadRequest},
		{name: "unknown session", ctx: ctx, id: "missing", image: "data:,x", code: dErrors.CodeNotFound},
		{name: "expired session", ctx: testutil.Context(testutil.FixedNow.Add(time.Hour)), id: session.ID, image: "data:,x", code: dErrors.CodeGone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SubmitFrame(tt.ctx, tt.id, tt.image)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestSessionExpired(t *testing.T) {
	svc, _ := newService(&fakeProcessor{})
	session, err := svc.CreateSession(testutil.Context(testutil.FixedNow))
	require.NoError(t, err)

	_, err = svc.Session(testutil.Context(testutil.FixedNow.Add(11*time.Minute)), session.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeGone))
}

func TestQRCodeEncodesMobileURL(t *testing.T) {
	svc, _ := newService(&fakeProcessor{}, WithQRSize(200))
	ctx := testutil.Context(testutil.FixedNow)
	session, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	data, err := svc.QRCode(ctx, session.ID)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	require.NoError(t, err)
	result, err := qrcode.NewQRCodeReader().Decode(bmp, nil)
	require.NoError(t, err)
	assert.Equal(t, session.MobileURL, result.GetText())
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	qr, err := RenderQR("hello", 100)
	require.NoError(t, err)
	pngPath := filepath.Join(dir, "card.png")
	require.NoError(t, os.WriteFile(pngPath, qr, 0o600))

	frame, err := FileSource{Path: pngPath}.Capture(ctx)
	require.NoError(t, err)
	assert.Equal(t, "image/png", frame.MIME)
	assert.Contains(t, frame.ImageData, "data:image/png;base64,")

	raw, err := ocr.DecodeImageData(frame.ImageData)
	require.NoError(t, err)
	assert.Equal(t, qr, raw)

	textPath := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(textPath, []byte("not an image"), 0o600))
	_, err = FileSource{Path: textPath}.Capture(ctx)
	assert.ErrorIs(t, err, ocr.ErrUnsupportedFormat)

	_, err = FileSource{Path: filepath.Join(dir, "missing.png")}.Capture(ctx)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
