package vision_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	khttp "github.com/shashiranjanraj/krishimitra/pkg/http"
	"github.com/shashiranjanraj/krishimitra/pkg/testkit"
	"github.com/shashiranjanraj/krishimitra/pkg/vision"
)

func leafPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{G: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func gateway(steps ...testkit.MockStep) (*vision.Gateway, *testkit.MockTransport) {
	mt := testkit.NewMockTransport(steps...)
	det := vision.NewHTTPDetector(khttp.NewClient(mt), "http://vision.local/detect", "secret")
	return vision.New(det, time.Second), mt
}

func TestDetectReturnsEveryBox(t *testing.T) {
	gw, mt := gateway(testkit.MockStep{
		Method:   "POST",
		MatchURL: "http://vision.local/detect",
		Body: []byte(`{"detections":[
			{"label":"leaf_blight","confidence":0.91,"box":[1,2,3,4]},
			{"label":"leaf_blight","confidence":0.12,"box":[1,2,3,4]}]}`),
	})

	got, err := gw.Detect(context.Background(), leafPNG(t))
	require.NoError(t, err)
	require.Len(t, got, 2, "low-confidence duplicates are kept")
	assert.Equal(t, "leaf_blight", got[0].Label)
	assert.InDelta(t, 0.91, got[0].Confidence, 1e-9)
	assert.Equal(t, []float64{1, 2, 3, 4}, got[0].Box)

	req := mt.Requests()[0]
	assert.Equal(t, "image/png", req.Header.Get("Content-Type"))
	assert.Equal(t, "Bearer secret", req.Header.Get("Authorization"))
}

func TestZeroDetectionsIsEmptyNotError(t *testing.T) {
	gw, _ := gateway(testkit.MockStep{Body: []byte(`{"detections":[]}`)})
	got, err := gw.Detect(context.Background(), leafPNG(t))
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	gw, _ = gateway(testkit.MockStep{Body: []byte(`{}`)})
	got, err = gw.Detect(context.Background(), leafPNG(t))
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestDetectFailures(t *testing.T) {
	cases := map[string]struct {
		image []byte
		step  testkit.MockStep
	}{
		"not an image":   {image: []byte("definitely not a png"), step: testkit.MockStep{}},
		"empty upload":   {image: nil, step: testkit.MockStep{}},
		"model error":    {step: testkit.MockStep{StatusCode: 500, Body: []byte(`{"error":"cuda"}`)}},
		"unreachable":    {step: testkit.MockStep{Err: errors.New("connection refused")}},
		"malformed body": {step: testkit.MockStep{Body: []byte(`{"detections":`)}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			gw, _ := gateway(tc.step)
			img := tc.image
			if img == nil && name != "empty upload" {
				img = leafPNG(t)
			}
			_, err := gw.Detect(context.Background(), img)
			assert.ErrorIs(t, err, vision.ErrDetection)
		})
	}
}

func TestDetectorWithoutURL(t *testing.T) {
	gw := vision.New(vision.NewHTTPDetector(nil, "", ""), time.Second)
	_, err := gw.Detect(context.Background(), leafPNG(t))
	assert.ErrorIs(t, err, vision.ErrDetection)
}

type fixedDetector []vision.Detection

func (d fixedDetector) Detect(context.Context, []byte, string) ([]vision.Detection, error) {
	return d, nil
}

func TestDetectRejectsConfidenceOutOfRange(t *testing.T) {
	for name, conf := range map[string]float64{
		"above one": 1.5,
		"negative":  -0.1,
		"nan":       math.NaN(),
		"infinite":  math.Inf(1),
	} {
		t.Run(name, func(t *testing.T) {
			det := fixedDetector{{Label: "rust", Confidence: 0.8}, {Label: "leaf_blight", Confidence: conf}}
			got, err := vision.New(det, time.Second).Detect(context.Background(), leafPNG(t))
			assert.ErrorIs(t, err, vision.ErrDetection)
			assert.Nil(t, got)
		})
	}
}

func TestDetectKeepsConfidenceBounds(t *testing.T) {
	det := fixedDetector{{Label: "healthy", Confidence: 0}, {Label: "rust", Confidence: 1}}
	got, err := vision.New(det, time.Second).Detect(context.Background(), leafPNG(t))
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
