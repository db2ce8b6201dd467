package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	Backend BackendConfig
	Payment PaymentConfig
	Limits  LimitConfig
	Jwt     JwtConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

type PaymentConfig struct {
	MidtransServerKey string
	PremiumPriceIDR   int64
}

type LimitConfig struct {
	DailyQuestions int
	RetrievalLimit int
}

type JwtConfig struct {
	Secret string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Backend: BackendConfig{
			BaseURL: getEnv("LEGAL_BACKEND_URL", "http://localhost:8000"),
			Timeout: getEnvAsDuration("LEGAL_BACKEND_TIMEOUT", 60*time.Second),
		},
		Payment: PaymentConfig{
			MidtransServerKey: getEnv("MIDTRANS_SERVER_KEY", ""),
			PremiumPriceIDR:   int64(getEnvAsInt("PREMIUM_PRICE_IDR", 75000)),
		},
		Limits: LimitConfig{
			DailyQuestions: getEnvAsInt("DAILY_QUESTION_LIMIT", 5),
			RetrievalLimit: getEnvAsInt("RETRIEVAL_LIMIT", 5),
		},
		Jwt: JwtConfig{
			Secret: getEnv("JWT_SECRET", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
