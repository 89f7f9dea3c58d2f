package storage

import (
	"context"
	"fmt"

	"github.com/shashiranjanraj/krishimitra/config"
)

// FromConfig builds the disk named by STORAGE_DISK ("local" or "s3").
//
//	STORAGE_DISK=local  STORAGE_LOCAL_ROOT=storage  STORAGE_URL=http://localhost:8080/storage
//	STORAGE_DISK=s3     S3_BUCKET S3_REGION S3_KEY S3_SECRET S3_ENDPOINT S3_URL S3_PREFIX
func FromConfig(ctx context.Context) (Disk, error) {
	switch name := config.Get("STORAGE_DISK", "local"); name {
	case "local":
		return NewLocal(
			config.Get("STORAGE_LOCAL_ROOT", "storage"),
			config.Get("STORAGE_URL", "http://localhost:"+config.AppPort()+"/storage"),
		)
	case "s3":
		return NewS3(ctx, S3Config{
			Bucket:   config.Get("S3_BUCKET", ""),
			Region:   config.Get("S3_REGION", "us-east-1"),
			Key:      config.Get("S3_KEY", ""),
			Secret:   config.Get("S3_SECRET", ""),
			Endpoint: config.Get("S3_ENDPOINT", ""),
			URL:      config.Get("S3_URL", ""),
			Prefix:   config.Get("S3_PREFIX", ""),
		})
	default:
		return nil, fmt.Errorf("storage: unsupported STORAGE_DISK %q (supported: local, s3)", name)
	}
}
