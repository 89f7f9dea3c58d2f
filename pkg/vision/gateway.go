// Package vision sends crop images to a disease-detection model and returns
// what it found.
//
//	gw := vision.New(vision.NewHTTPDetector(khttp.Default, url, token), 20*time.Second)
//	detections, err := gw.Detect(ctx, imageBytes)
//
// The gateway surfaces detections exactly as the model emits them: no
// confidence threshold, no deduplication and no box suppression.
package vision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"time"

	"github.com/shashiranjanraj/krishimitra/pkg/logger"
	"github.com/shashiranjanraj/krishimitra/pkg/metrics"
)

// ErrDetection wraps every failure: undecodable image, model error, timeout.
var ErrDetection = errors.New("vision: detection failed")

// Detection is one labelled box. Box is [x1, y1, x2, y2] in pixels when the
// model reports it.
type Detection struct {
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	Box        []float64 `json:"box,omitempty"`
}

// Detector runs the model on an already-validated image.
type Detector interface {
	Detect(ctx context.Context, img []byte, contentType string) ([]Detection, error)
}

// Gateway validates images and bounds each model call.
type Gateway struct {
	detector Detector
	timeout  time.Duration
}

// New returns a Gateway. A non-positive timeout means 20s.
func New(d Detector, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Gateway{detector: d, timeout: timeout}
}

// ContentType sniffs a supported image format (jpeg, png, gif). It returns
// an ErrDetection error for anything else.
func ContentType(img []byte) (string, error) {
	if len(img) == 0 {
		return "", fmt.Errorf("%w: empty image", ErrDetection)
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return "", fmt.Errorf("%w: decode image: %v", ErrDetection, err)
	}
	return "image/" + format, nil
}

// Detect returns the model's detections. Zero detections is an empty,
// non-nil slice. A confidence outside [0,1], NaN included, fails the whole
// call.
func (g *Gateway) Detect(ctx context.Context, img []byte) ([]Detection, error) {
	contentType, err := ContentType(img)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	found, err := g.detector.Detect(ctx, img, contentType)
	if err != nil {
		metrics.ObserveGateway("vision", "error", start)
		logger.WithCtx(ctx).Error("vision: detector failed", "error", err)
		if errors.Is(err, ErrDetection) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrDetection, err)
	}

	for _, d := range found {
		if !(d.Confidence >= 0 && d.Confidence <= 1) {
			metrics.ObserveGateway("vision", "error", start)
			logger.WithCtx(ctx).Error("vision: confidence out of range", "label", d.Label, "confidence", d.Confidence)
			return nil, fmt.Errorf("%w: confidence %v for %q outside [0,1]", ErrDetection, d.Confidence, d.Label)
		}
	}

	metrics.ObserveGateway("vision", "ok", start)
	if found == nil {
		found = []Detection{}
	}
	return found, nil
}
