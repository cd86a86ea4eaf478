package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

var (
	LogLevel        string
	RunAddress      string
	APIBaseURL      string
	CachePath       string
	KeyPath         string
	MaxDailyItems   int
	UnlockCost      int
	SubmissionAward int
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using default values")
	}

	LogLevel = os.Getenv("LOG_LEVEL")
	if LogLevel == "" {
		LogLevel = "info"
	}

	RunAddress = os.Getenv("RUN_ADDRESS")
	if RunAddress == "" {
		RunAddress = "127.0.0.1:8090"
	}

	APIBaseURL = os.Getenv("API_BASE_URL")
	if APIBaseURL == "" {
		APIBaseURL = "https://api.uplift.app"
	}

	CachePath = os.Getenv("CACHE_PATH")
	if CachePath == "" {
		CachePath = "uplift.db"
	}

	KeyPath = os.Getenv("KEY_PATH")
	if KeyPath == "" {
		KeyPath = "uplift.key"
	}

	MaxDailyItems = intEnv("MAX_DAILY_ITEMS", 3)
	UnlockCost = intEnv("UNLOCK_COST", 5)
	SubmissionAward = intEnv("SUBMISSION_AWARD", 2)
}

func intEnv(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("invalid %s=%q, using default %d", name, raw, fallback)
		return fallback
	}
	return value
}
