package controllers

import (
	"errors"
	"net/http"

	"github.com/shashiranjanraj/krishimitra/app/services"
	"github.com/shashiranjanraj/krishimitra/pkg/ctx"
	"github.com/shashiranjanraj/krishimitra/pkg/session"
)

// DetectionController handles disease image uploads and serves them back to
// their owner.
type DetectionController struct {
	detection *services.DetectionService
}

func NewDetectionController(detection *services.DetectionService) *DetectionController {
	return &DetectionController{detection: detection}
}

func (d *DetectionController) Show(c *ctx.Context) { c.Page("disease-detection", nil) }

// Upload runs detection on the posted "file" field and renders the result.
func (d *DetectionController) Upload(c *ctx.Context) {
	file, header, err := c.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile) && blankFileField(c):
		c.FlashRedirect(session.FlashError, msgNoFileSelected, "/disease-detection")
		return
	case errors.Is(err, http.ErrMissingFile):
		c.FlashRedirect(session.FlashError, msgNoFile, "/disease-detection")
		return
	case err != nil:
		c.Logger().Warn("detection: bad upload", "error", err)
		c.FlashRedirect(session.FlashError, msgBadImage, "/disease-detection")
		return
	}
	if header.Filename == "" {
		file.Close()
		c.FlashRedirect(session.FlashError, msgNoFileSelected, "/disease-detection")
		return
	}

	img, err := ctx.ReadAll(file)
	if err != nil {
		c.Logger().Warn("detection: read upload", "error", err)
		c.FlashRedirect(session.FlashError, msgBadImage, "/disease-detection")
		return
	}

	id, _ := c.Identity()
	result, err := d.detection.Analyze(c.Context(), id.FarmerID, img)
	if err != nil {
		c.Logger().Error("detection: analyse failed", "error", err)
		c.FlashRedirect(session.FlashError, msgBadImage, "/disease-detection")
		return
	}
	c.Page("disease-detection", result)
}

// Serve returns one of the signed-in farmer's uploads. Anything else is 404.
func (d *DetectionController) Serve(c *ctx.Context) {
	id, _ := c.Identity()
	b, contentType, err := d.detection.Fetch(c.Context(), id.FarmerID, c.Param("filename"))
	switch {
	case errors.Is(err, services.ErrUploadNotFound):
		c.NotFound()
		return
	case err != nil:
		c.Logger().Error("detection: read upload failed", "error", err)
		c.Error(http.StatusInternalServerError, msgGeneric)
		return
	}
	c.Blob(contentType, b)
}

// blankFileField reports a "file" part sent with an empty filename, which is
// what a browser posts when nothing was chosen. The multipart reader files
// such parts under plain values.
func blankFileField(c *ctx.Context) bool {
	if c.R.MultipartForm == nil {
		return false
	}
	_, ok := c.R.MultipartForm.Value["file"]
	return ok
}
