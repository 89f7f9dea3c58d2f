package services

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/shashiranjanraj/krishimitra/pkg/logger"
	"github.com/shashiranjanraj/krishimitra/pkg/storage"
	"github.com/shashiranjanraj/krishimitra/pkg/vision"
)

// Detector finds diseases in an image.
type Detector interface {
	Detect(ctx context.Context, img []byte) ([]vision.Detection, error)
}

// DetectionResult is what the disease page shows after an upload.
type DetectionResult struct {
	Image       string             `json:"image"`
	URL         string             `json:"url"`
	Predictions []vision.Detection `json:"predictions"`
}

// DetectionService stores disease images per farmer and runs detection on
// them.
type DetectionService struct {
	disk     storage.Disk
	detector Detector
}

func NewDetectionService(disk storage.Disk, detector Detector) *DetectionService {
	return &DetectionService{disk: disk, detector: detector}
}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// Analyze stores img under a fresh name in the farmer's upload folder and
// runs detection on it. Images that do not decode are rejected with
// vision.ErrDetection before anything is stored; a failed detection removes
// the stored copy again.
func (s *DetectionService) Analyze(ctx context.Context, farmerID uint, img []byte) (*DetectionResult, error) {
	contentType, err := vision.ContentType(img)
	if err != nil {
		return nil, err
	}

	name := uuid.NewString() + extensions[contentType]
	key := uploadKey(farmerID, name)
	if err := s.disk.Put(ctx, key, img, contentType); err != nil {
		return nil, fmt.Errorf("store upload: %w: %v", ErrStorageUnavailable, err)
	}

	found, err := s.detector.Detect(ctx, img)
	if err != nil {
		if derr := s.disk.Delete(context.WithoutCancel(ctx), key); derr != nil {
			logger.WithCtx(ctx).Warn("detection: remove failed upload", "image", name, "error", derr)
		}
		return nil, err
	}

	logger.WithCtx(ctx).Info("detection: image analysed", "image", name, "detections", len(found))
	return &DetectionResult{Image: name, URL: "/uploads/" + name, Predictions: found}, nil
}

// Fetch returns one of the farmer's own uploads. Other farmers' files and
// names that try to leave the folder are ErrUploadNotFound.
func (s *DetectionService) Fetch(ctx context.Context, farmerID uint, name string) ([]byte, string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil, "", ErrUploadNotFound
	}

	b, err := s.disk.Get(ctx, uploadKey(farmerID, name))
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrInvalidPath):
		return nil, "", ErrUploadNotFound
	case err != nil:
		return nil, "", fmt.Errorf("read upload: %w: %v", ErrStorageUnavailable, err)
	}

	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return b, contentType, nil
}

func uploadKey(farmerID uint, name string) string {
	return path.Join("uploads", strconv.FormatUint(uint64(farmerID), 10), name)
}
