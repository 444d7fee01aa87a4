package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port                 string
	LogLevel             string
	DatabasePath         string
	FxRatesPath          string
	TransactionsSeedPath string

	DefaultAssetStrategy string
	DefaultCashStrategy  string

	// DefaultUsdToRonRate is used when a request does not override it.
	// Zero means "look up USD->RON in the historical rate table instead".
	DefaultUsdToRonRate float64
}

var Cfg *AppConfig

func LoadConfig() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", err)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	Cfg = &AppConfig{
		Port:                 getEnv("PORT", "8080"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		DatabasePath:         getEnv("DATABASE_PATH", "./portfoliotracker.db"),
		FxRatesPath:          getEnv("FX_RATES_PATH", "data/historicalExchangeRate.json"),
		TransactionsSeedPath: getEnv("TRANSACTIONS_SEED_PATH", ""),
		DefaultAssetStrategy: getEnv("DEFAULT_ASSET_STRATEGY", "FIFO"),
		DefaultCashStrategy:  getEnv("DEFAULT_CASH_STRATEGY", "FIFO"),
		DefaultUsdToRonRate:  getEnvAsFloat("DEFAULT_USD_TO_RON_RATE", 0),
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, FxRatesPath=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.FxRatesPath)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	log.Printf("Invalid float value for %s ('%s'), using default: %g", key, valueStr, fallback)
	return fallback
}
