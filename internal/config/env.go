package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables consulted when the matching config field is empty.
const (
	EnvStorageAccountKey = "STORAGE_ACCOUNT_KEY"
	EnvContainerAudios   = "CONTAINER_AUDIOS"
	EnvContainerJSON     = "CONTAINER_JSON"
	EnvContainerLogs     = "CONTAINER_LOGS"
	EnvCosmosEndpoint    = "COSMOS_ENDPOINT"
	EnvCosmosKey         = "COSMOS_KEY"
	EnvAWSRegion         = "AWS_REGION"
	EnvS3Bucket          = "S3_BUCKET"
	EnvGCSBucket         = "GCS_BUCKET"
	EnvGCSCredentials    = "GOOGLE_APPLICATION_CREDENTIALS"
	EnvNtfyTopic         = "NTFY_TOPIC"
)

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment.
// Variables already set are left alone. A missing file is not an error; the
// returned bool reports whether a file was read.
func LoadEnvFile(path string) (bool, error) {
	if path == "" {
		path = ".env"
	}
	expanded, err := expandPath(path)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(expanded); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat env file: %w", err)
	}
	if err := godotenv.Load(expanded); err != nil {
		return false, fmt.Errorf("load env file %s: %w", expanded, err)
	}
	return true, nil
}

func lookupEnv(target *string, keys ...string) {
	if *target != "" {
		return
	}
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok && value != "" {
			*target = value
			return
		}
	}
}
