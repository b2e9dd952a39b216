package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr       string
	DataFile   string
	CORSOrigin string

	// Blob storage
	StorageDir  string
	BlobBackend string // "fs" or "s3"
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3UseSSL    bool

	// PDF converter
	ConverterURL     string
	ConverterTimeout time.Duration

	// Public repo publishing
	PublicRepoDir  string
	PublicRepoSlug string

	// Centralized auth
	AuthBaseURL  string
	RequireLogin bool
	SessionTTL   time.Duration

	// Session backend
	RedisURL string

	// Search
	MeiliURL       string
	MeiliMasterKey string
}

func Load() Config {
	return Config{
		Addr:       getenv("API_ADDR", ":8787"),
		DataFile:   getenv("WEBTERMS_DATA_FILE", "./data/db.json"),
		CORSOrigin: getenv("WEBTERMS_CORS_ORIGIN", "*"),

		StorageDir:  getenv("WEBTERMS_STORAGE_DIR", "./storage"),
		BlobBackend: getenv("WEBTERMS_BLOB_BACKEND", "fs"),
		S3Endpoint:  getenv("WEBTERMS_S3_ENDPOINT", "localhost:9000"),
		S3AccessKey: getenv("WEBTERMS_S3_ACCESS_KEY", ""),
		S3SecretKey: getenv("WEBTERMS_S3_SECRET_KEY", ""),
		S3Bucket:    getenv("WEBTERMS_S3_BUCKET", "webterms-documents"),
		S3UseSSL:    getenv("WEBTERMS_S3_USE_SSL", "false") == "true",

		ConverterURL:     getenv("WEBTERMS_CONVERTER_URL", ""),
		ConverterTimeout: time.Duration(getenvInt("WEBTERMS_CONVERTER_TIMEOUT_SECONDS", 120)) * time.Second,

		PublicRepoDir:  getenv("WEBTERMS_PUBLIC_REPO_DIR", "./data/public-repo"),
		PublicRepoSlug: getenv("WEBTERMS_PUBLIC_REPO_SLUG", "CIMAFOUNDATION/cima-legal-public-docs"),

		AuthBaseURL:  getenv("WEBTERMS_AUTH_BASE_URL", ""),
		RequireLogin: getenv("WEBTERMS_REQUIRE_LOGIN", "true") != "false",
		SessionTTL:   time.Duration(getenvInt("WEBTERMS_SESSION_TTL_SECONDS", 28800)) * time.Second,

		RedisURL: getenv("REDIS_URL", ""),

		MeiliURL:       getenv("MEILI_URL", ""),
		MeiliMasterKey: getenv("MEILI_MASTER_KEY", ""),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
