package vision

import (
	"context"
	"fmt"

	khttp "github.com/shashiranjanraj/krishimitra/pkg/http"
)

// HTTPDetector posts raw image bytes to a model server and expects
//
//	{"detections":[{"label":"leaf_blight","confidence":0.91,"box":[x1,y1,x2,y2]}]}
type HTTPDetector struct {
	client *khttp.Client
	url    string
	token  string
}

func NewHTTPDetector(client *khttp.Client, url, token string) *HTTPDetector {
	if client == nil {
		client = khttp.Default
	}
	return &HTTPDetector{client: client, url: url, token: token}
}

type detectResponse struct {
	Detections []Detection `json:"detections"`
}

// Detect makes a single attempt; the caller's context carries the deadline.
func (d *HTTPDetector) Detect(ctx context.Context, img []byte, contentType string) ([]Detection, error) {
	if d.url == "" {
		return nil, fmt.Errorf("%w: VISION_URL not configured", ErrDetection)
	}

	resp, err := d.client.Post(d.url).
		WithContext(ctx).
		Bearer(d.token).
		Raw(img, contentType).
		Send()
	if err != nil {
		return nil, err
	}
	if err := resp.Throw(); err != nil {
		return nil, err
	}

	var out detectResponse
	if err := resp.JSON(&out); err != nil {
		return nil, err
	}
	return out.Detections, nil
}
