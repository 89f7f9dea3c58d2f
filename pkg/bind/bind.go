// Package bind decodes and validates request bodies into structs.
package bind

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/shashiranjanraj/krishimitra/config"
	"github.com/shashiranjanraj/krishimitra/pkg/validate"
)

// MaxBodyBytes caps JSON bodies (MAX_BODY_BYTES, default 4 MB).
func MaxBodyBytes() int64 {
	n := config.Int("MAX_BODY_BYTES", 4<<20)
	if n <= 0 {
		return 4 << 20
	}
	return int64(n)
}

// MaxUploadBytes caps multipart uploads (MAX_UPLOAD_BYTES, default 10 MB).
func MaxUploadBytes() int64 {
	n := config.Int("MAX_UPLOAD_BYTES", 10<<20)
	if n <= 0 {
		return 10 << 20
	}
	return int64(n)
}

// JSON decodes r.Body into dest and runs validate.Struct on it.
// It returns (errs, nil) on validation failures and (nil, err) when the body
// is malformed or too large. An empty body decodes as {}.
func JSON(r *http.Request, dest interface{}) (errs map[string]string, err error) {
	r.Body = http.MaxBytesReader(nil, r.Body, MaxBodyBytes())

	if err = json.NewDecoder(r.Body).Decode(dest); err != nil && !errors.Is(err, io.EOF) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, fmt.Errorf("request body too large (max %d bytes)", maxErr.Limit)
		}
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	errs = validate.Struct(dest)
	if validate.HasErrors(errs) {
		return errs, nil
	}
	return nil, nil
}
