package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnv loads environment variables from the first .env file found in the
// current directory or its parents. Variables already set are left alone.
func LoadEnv() error {
	envPaths := []string{".env", "../.env", "../../.env"}

	for _, envPath := range envPaths {
		err := godotenv.Load(envPath)
		if err == nil {
			return nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// GetEnv gets environment variable with default
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt gets integer environment variable with default
func GetEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetEnvFloat gets float environment variable with default
func GetEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// GetEnvBool gets boolean environment variable with default
func GetEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return defaultValue
}

// Capabilities lists the optional scoring backends enabled for this process.
// They are resolved once at startup and handed to the scoring engine.
type Capabilities struct {
	DoubleMetaphone bool
	Semantic        bool
	ModelPath       string
	TokenizerPath   string
	OrtLibrary      string
}

// LoadCapabilities reads capability switches from the environment.
func LoadCapabilities() Capabilities {
	return Capabilities{
		DoubleMetaphone: GetEnvBool("MATCHER_DOUBLE_METAPHONE", true),
		Semantic:        GetEnvBool("MATCHER_SEMANTIC", true),
		ModelPath:       GetEnv("MATCHER_MODEL_PATH", ""),
		TokenizerPath:   GetEnv("MATCHER_TOKENIZER_PATH", ""),
		OrtLibrary:      GetEnv("MATCHER_ORT_LIBRARY", ""),
	}
}
