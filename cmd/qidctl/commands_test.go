package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qidscan/internal/capture"
	scanhandler "qidscan/internal/scan/handler"
	"qidscan/internal/scan/models"
	"qidscan/pkg/qid"
)

type fakeProcessor struct {
	result *models.Result
	got    models.ProcessRequest
}

func (f *fakeProcessor) Process(_ context.Context, req models.ProcessRequest) (*models.Result, error) {
	f.got = req
	return f.result, nil
}

func execute(t *testing.T, factory processorFactory, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	if factory == nil {
		factory = func(context.Context, string, string) (scanhandler.Processor, error) {
			t.Fatal("processor should not be built")
			return nil, nil
		}
	}
	cmd := newRootCmd(factory)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidate(t *testing.T) {
	out, err := execute(t, nil, "validate", "284 634 12345")
	require.NoError(t, err)
	assert.Contains(t, out, "valid: 284-6341-2345")
	assert.Contains(t, out, "1984")
	assert.Contains(t, out, "Qatari (634)")

	out, err = execute(t, nil, "validate", "12345")
	require.ErrorIs(t, err, errInvalidQID)
	assert.Contains(t, out, "QID must be 11 digits, got 5")
}

func TestValidateJSON(t *testing.T) {
	out, err := execute(t, nil, "--json", "validate", "18463412345")
	require.ErrorIs(t, err, errInvalidQID)

	var res models.NumberValidation
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.False(t, res.Valid)
	require.NotNil(t, res.Error)
	assert.Equal(t, qid.KindInvalidCenturyDigit, res.Error.Kind)
}

func TestFormat(t *testing.T) {
	out, err := execute(t, nil, "format", "28463412345")
	require.NoError(t, err)
	assert.Equal(t, "284-6341-2345\n", out)
}

func TestValidateSeveral(t *testing.T) {
	out, err := execute(t, nil, "validate", "28463412345", "12345")
	require.ErrorIs(t, err, errInvalidQID, "any invalid input fails the command")
	assert.Contains(t, out, "valid: 284-6341-2345")
	assert.Contains(t, out, "QID must be 11 digits, got 5")

	out, err = execute(t, nil, "--json", "validate", "28463412345", "30063412345")
	require.NoError(t, err)
	var res []models.NumberValidation
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res, 2)
	assert.Equal(t, "28463412345", res[0].QIDNumber)
	assert.Equal(t, "30063412345", res[1].QIDNumber)
}

func TestFormatSeveral(t *testing.T) {
	out, err := execute(t, nil, "format", "28463412345", "123")
	require.NoError(t, err)
	assert.Equal(t, "284-6341-2345\n123\n", out)
}

func TestClassify(t *testing.T) {
	out, err := execute(t, nil, "--json", "classify", "qid_number=0.95", "name=0.7", "dob=0.2")
	require.NoError(t, err)

	var res struct {
		Tiers map[string]qid.Tier `json:"tiers"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, map[string]qid.Tier{"qid_number": qid.TierHigh, "name": qid.TierMedium, "dob": qid.TierLow}, res.Tiers)

	_, err = execute(t, nil, "classify", "oops")
	require.Error(t, err)
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	img, err := capture.RenderQR("not a card", 120)
	require.NoError(t, err)
	path := filepath.Join(dir, "card.png")
	require.NoError(t, os.WriteFile(path, img, 0o600))

	dob := "15/03/1984"
	processor := &fakeProcessor{result: &models.Result{
		Success: true,
		Data: &models.CardData{
			QIDNumber:          "28463412345",
			FormattedQIDNumber: "284-6341-2345",
			DateOfBirth:        &dob,
			Nationality:        "Qatar",
			ConfidenceScores:   map[string]float64{"qid_number": 0.95, "overall": 0.6},
		},
		ProcessingMetadata: models.ProcessingMetadata{ProcessingID: "p-1", Timestamp: time.Unix(0, 0).UTC()},
	}}
	var gotRemote string
	factory := func(_ context.Context, _, remoteURL string) (scanhandler.Processor, error) {
		gotRemote = remoteURL
		return processor, nil
	}

	out, err := execute(t, factory, "scan", path, "--remote", "http://scanner.internal:8080")
	require.NoError(t, err)
	assert.Equal(t, "http://scanner.internal:8080", gotRemote)
	assert.Contains(t, processor.got.ImageData, "data:image/png;base64,")
	assert.Equal(t, "cli", processor.got.Metadata.DeviceType)
	assert.Contains(t, out, "QID 284-6341-2345")
	assert.Contains(t, out, "15/03/1984")
	assert.Contains(t, out, "high")
	assert.Contains(t, out, "low")
}

func TestScanFailureReturnsError(t *testing.T) {
	dir := t.TempDir()
	img, err := capture.RenderQR("blank", 120)
	require.NoError(t, err)
	path := filepath.Join(dir, "blank.png")
	require.NoError(t, os.WriteFile(path, img, 0o600))

	processor := &fakeProcessor{result: &models.Result{
		Error: &models.ScanError{Code: models.CodeNoTextExtracted, Message: "No text could be extracted from the image"},
	}}
	factory := func(context.Context, string, string) (scanhandler.Processor, error) { return processor, nil }

	out, err := execute(t, factory, "scan", path)
	require.ErrorIs(t, err, errScanFailed)
	assert.Contains(t, out, "NO_TEXT_EXTRACTED: No text could be extracted from the image")
}

func TestScanMissingFile(t *testing.T) {
	_, err := execute(t, nil, "scan", filepath.Join(t.TempDir(), "missing.png"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
