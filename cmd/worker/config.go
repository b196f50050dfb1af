package main

import (
	"log"
	"os"
)

// Config holds all configuration for the worker
type Config struct {
	RedisAddr string

	// SweepInterval is the cron expression for the expiry sweeps
	SweepInterval string
}

// loadConfig loads configuration from environment variables
func loadConfig() *Config {
	cfg := &Config{
		RedisAddr:     getEnv("REDIS_HOST", "localhost:6379"),
		SweepInterval: getEnv("EXPIRE_SWEEP_CRON", "@every 10m"),
	}

	log.Printf("[Config] Redis: %s, sweep: %s", cfg.RedisAddr, cfg.SweepInterval)
	return cfg
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
