package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var loadOnce sync.Once

func loadEnv() {
	loadOnce.Do(func() {
		// .env is optional; in containers the environment is already populated
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		}
	})
}

// Config returns a required environment variable and exits when it is missing.
func Config(envVar string) string {
	loadEnv()

	envVarValue := os.Getenv(envVar)
	if envVarValue == "" {
		fmt.Fprintf(os.Stderr, "%s not set\n", envVar)
		os.Exit(1)
	}

	return envVarValue
}

// Optional returns the variable or def when it is unset.
func Optional(envVar, def string) string {
	loadEnv()

	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return def
}

type Settings struct {
	Port        string
	AppURL      string
	DatabaseURL string
	JWTSecret   string
	LogLevel    string
	AvatarDir   string

	StorageDriver string
	GCSProjectID  string
	GCSBucketName string
	GCSUploadPath string
	GCSSignedURLs bool
	GCSMakePublic bool

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MinioPublicURL string

	OpenAIAPIKey string
	GeminiAPIKey string

	RedisURL             string
	GenerationRateLimit  int
	GenerationRateWindow time.Duration

	GenerationWorkers int
	GenerationQueue   int
	GenerationTimeout time.Duration

	UploadURLExpiry time.Duration
	UploadExpiry    time.Duration
	JanitorInterval time.Duration
}

// Load reads every setting the server needs. Only DATABASE_URL and JWT_SECRET are mandatory.
func Load() (*Settings, error) {
	loadEnv()

	s := &Settings{
		Port:        Optional("PORT", "3000"),
		AppURL:      Optional("APP_URL", "http://localhost:3000"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		LogLevel:    Optional("LOG_LEVEL", "info"),
		AvatarDir:   Optional("AVATAR_DIR", "/tmp/avatars"),

		StorageDriver: Optional("STORAGE_DRIVER", "gcs"),
		GCSProjectID:  os.Getenv(gcsKey("PROJECT_ID")),
		GCSBucketName: os.Getenv(gcsKey("BUCKET_NAME")),
		GCSUploadPath: Optional(gcsKey("UPLOAD_PATH"), "images/"),

		MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    Optional("MINIO_BUCKET", "decor-images"),
		MinioPublicURL: os.Getenv("MINIO_PUBLIC_URL"),

		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
		GeminiAPIKey: Optional("GEMINI_API_KEY", os.Getenv("GOOGLE_GENAI_API_KEY")),

		RedisURL: os.Getenv("REDIS_URL"),
	}

	if s.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if s.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	var err error
	if s.GCSSignedURLs, err = boolVar(gcsKey("SIGNED_URLS"), false); err != nil {
		return nil, err
	}
	if s.GCSMakePublic, err = boolVar(gcsKey("MAKE_BUCKET_PUBLIC"), false); err != nil {
		return nil, err
	}
	if s.MinioUseSSL, err = boolVar("MINIO_USE_SSL", true); err != nil {
		return nil, err
	}
	if s.GenerationWorkers, err = intVar("GENERATION_WORKERS", 4); err != nil {
		return nil, err
	}
	if s.GenerationQueue, err = intVar("GENERATION_QUEUE", 100); err != nil {
		return nil, err
	}
	if s.GenerationRateLimit, err = intVar("GENERATION_RATE_LIMIT", 10); err != nil {
		return nil, err
	}
	if s.GenerationRateWindow, err = durationVar("GENERATION_RATE_WINDOW", time.Hour); err != nil {
		return nil, err
	}
	if s.GenerationTimeout, err = durationVar("GENERATION_TIMEOUT", 5*time.Minute); err != nil {
		return nil, err
	}
	if s.UploadURLExpiry, err = durationVar("UPLOAD_URL_EXPIRY", 15*time.Minute); err != nil {
		return nil, err
	}
	if s.UploadExpiry, err = durationVar("UPLOAD_EXPIRY", time.Hour); err != nil {
		return nil, err
	}
	if s.JanitorInterval, err = durationVar("JANITOR_INTERVAL", 15*time.Minute); err != nil {
		return nil, err
	}

	switch s.StorageDriver {
	case "gcs":
		if s.GCSBucketName == "" {
			return nil, fmt.Errorf("GCS_BUCKET_NAME is required for the gcs storage driver")
		}
	case "minio":
		if s.MinioEndpoint == "" || s.MinioAccessKey == "" || s.MinioSecretKey == "" {
			return nil, fmt.Errorf("MINIO_ENDPOINT, MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required for the minio storage driver")
		}
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", s.StorageDriver)
	}

	return s, nil
}

// gcsKey names the GCS_ variable, falling back to the older GSC_ spelling when only that one is set.
func gcsKey(name string) string {
	if os.Getenv("GCS_"+name) == "" && os.Getenv("GSC_"+name) != "" {
		return "GSC_" + name
	}
	return "GCS_" + name
}

func intVar(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return n, nil
}

func boolVar(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean", key)
	}
	return b, nil
}

func durationVar(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration", key)
	}
	return d, nil
}
