package config

import (
	"os"
	"strings"
)

// localS3Config points at the minio container from the dev compose file.
func localS3Config() S3Config {
	return S3Config{
		Endpoint:  firstNonEmpty(strings.TrimSpace(os.Getenv("ANALYSIS_MINIO_ENDPOINT")), "minio:9000"),
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("ANALYSIS_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ANALYSIS_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER")), "savedanalysis"),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ANALYSIS_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD")), "savedanalysis123"),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("ANALYSIS_S3_BUCKET")), "saved-analyses"),
		UseSSL:    false,
	}
}
