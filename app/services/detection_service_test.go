package services_test

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/krishimitra/app/services"
	"github.com/shashiranjanraj/krishimitra/pkg/storage"
	"github.com/shashiranjanraj/krishimitra/pkg/vision"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func newDisk(t *testing.T) storage.Disk {
	t.Helper()
	disk, err := storage.NewLocal(t.TempDir(), "/uploads")
	require.NoError(t, err)
	return disk
}

func TestAnalyzeStoresAndDetects(t *testing.T) {
	img := pngBytes(t)
	detector := &mockDetector{}
	detector.On("Detect", mock.Anything, img).
		Return([]vision.Detection{{Label: "leaf_blight", Confidence: 0.91}}, nil).Once()
	disk := newDisk(t)
	svc := services.NewDetectionService(disk, detector)

	res, err := svc.Analyze(context.Background(), 4, img)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(res.Image, ".png"))
	assert.Equal(t, "/uploads/"+res.Image, res.URL)
	require.Len(t, res.Predictions, 1)
	assert.Equal(t, "leaf_blight", res.Predictions[0].Label)

	stored, err := disk.Get(context.Background(), "uploads/4/"+res.Image)
	require.NoError(t, err)
	assert.Equal(t, img, stored)

	got, contentType, err := svc.Fetch(context.Background(), 4, res.Image)
	require.NoError(t, err)
	assert.Equal(t, img, got)
	assert.Equal(t, "image/png", contentType)
}

func TestAnalyzeRejectsUndecodableImage(t *testing.T) {
	detector := &mockDetector{}
	_, err := services.NewDetectionService(newDisk(t), detector).
		Analyze(context.Background(), 4, []byte("not an image"))
	assert.ErrorIs(t, err, vision.ErrDetection)
	detector.AssertNotCalled(t, "Detect", mock.Anything, mock.Anything)
}

func TestAnalyzeDetectorFailure(t *testing.T) {
	detector := &mockDetector{}
	detector.On("Detect", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: timeout", vision.ErrDetection))
	root := t.TempDir()
	disk, err := storage.NewLocal(root, "/uploads")
	require.NoError(t, err)

	res, err := services.NewDetectionService(disk, detector).Analyze(context.Background(), 4, pngBytes(t))
	assert.ErrorIs(t, err, vision.ErrDetection)
	assert.Nil(t, res)

	left, err := os.ReadDir(filepath.Join(root, "uploads", "4"))
	require.NoError(t, err)
	assert.Empty(t, left, "the failed upload is not kept")
}

func TestFetchIsScopedToFarmer(t *testing.T) {
	img := pngBytes(t)
	detector := &mockDetector{}
	detector.On("Detect", mock.Anything, mock.Anything).Return([]vision.Detection{}, nil)
	svc := services.NewDetectionService(newDisk(t), detector)

	res, err := svc.Analyze(context.Background(), 4, img)
	require.NoError(t, err)

	_, _, err = svc.Fetch(context.Background(), 5, res.Image)
	assert.ErrorIs(t, err, services.ErrUploadNotFound)

	for _, name := range []string{"", "..", "../4/" + res.Image, `..\4\x.png`, "missing.png"} {
		_, _, err = svc.Fetch(context.Background(), 4, name)
		assert.ErrorIs(t, err, services.ErrUploadNotFound, name)
	}
}
