package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string
	AppMode     string
	LogMode     string
	FrontendURL string

	StoreDriver string
	DBHost      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBPort      string

	JWTSecret     string
	JWTExpiryDays int

	RedisEnabled  bool
	RedisHost     string
	RedisPort     string
	RedisPassword string

	S3Region     string
	S3Bucket     string
	S3AccessKey  string
	S3SecretKey  string
	S3Endpoint   string
	S3PublicBase string

	AIServiceURL           string
	AITimeoutSec           int
	AIVerifyMedicineExpiry bool

	UploadMaxBytes int64

	AuthRateLimit     int
	DonationRateLimit int

	AdminEmail    string
	AdminPassword string
}

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		AppPort:     getEnv("APP_PORT", "8080"),
		AppMode:     getEnv("APP_MODE", "debug"),
		LogMode:     getEnv("LOG_MODE", "development"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPassword:  getEnv("DB_PASSWORD", "postgres"),
		DBName:      getEnv("DB_NAME", "medishare"),
		DBPort:      getEnv("DB_PORT", "5432"),

		JWTSecret:     getEnv("JWT_SECRET", "change-me"),
		JWTExpiryDays: getEnvAsInt("JWT_EXPIRY_DAYS", 30),

		RedisEnabled:  getEnvAsBool("REDIS_ENABLED", false),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		S3Region:     getEnv("S3_REGION", "us-east-1"),
		S3Bucket:     getEnv("S3_BUCKET", ""),
		S3AccessKey:  getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:  getEnv("S3_SECRET_KEY", ""),
		S3Endpoint:   getEnv("S3_ENDPOINT", ""),
		S3PublicBase: strings.TrimRight(getEnv("S3_PUBLIC_BASE", ""), "/"),

		AIServiceURL:           strings.TrimRight(getEnv("AI_SERVICE_URL", ""), "/"),
		AITimeoutSec:           getEnvAsInt("AI_TIMEOUT_SEC", 20),
		AIVerifyMedicineExpiry: getEnvAsBool("AI_VERIFY_MEDICINE_EXPIRY", false),

		UploadMaxBytes: int64(getEnvAsInt("UPLOAD_MAX_BYTES", 5*1024*1024)),

		AuthRateLimit:     getEnvAsInt("AUTH_RATE_LIMIT", 10),
		DonationRateLimit: getEnvAsInt("DONATION_RATE_LIMIT", 20),

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}
