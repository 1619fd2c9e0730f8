package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

func Load() {
	err := godotenv.Load(".env")
	if err != nil {
		log.Println("⚠️  No .env file found — falling back to system environment variables")
	} else {
		log.Println("✅ .env file loaded")
	}
}

// Getenv returns the variable or fallback when unset.
func Getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Duration parses a duration env var, falling back on parse failure.
func Duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("⚠️  Invalid duration for %s (%q), using %s", key, v, fallback)
		return fallback
	}
	return d
}

// Float parses a float env var, falling back on parse failure.
func Float(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("⚠️  Invalid number for %s (%q), using %v", key, v, fallback)
		return fallback
	}
	return f
}

// Bool parses a boolean env var.
func Bool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
