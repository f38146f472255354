package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Host                string
	Port                int
	APIKey              string // empty disables the API key check
	DetectorModel       string
	OCRModel            string
	Region              string
	Backend             string
	ConfidenceThreshold float64
	Username            string
	SerialKey           string
	Signature           string
	DatabasePath        string
	ResultsDirectory    string
	ModelsDirectory     string
	LogDirectory        string
	SaveImages          bool
	MaxLogEntries       int // capacity of the operational log ring
	RetentionDays       int // 0 disables the retention sweep
}

// fileConfig mirrors the optional server_config.yaml layout.
type fileConfig struct {
	Server struct {
		Host   string `yaml:"host"`
		Port   int    `yaml:"port"`
		APIKey string `yaml:"api_key"`
	} `yaml:"server"`
	Models struct {
		Detector   string  `yaml:"detector"`
		OCR        string  `yaml:"ocr"`
		Region     string  `yaml:"region"`
		Backend    string  `yaml:"backend"`
		Confidence float64 `yaml:"confidence"`
	} `yaml:"models"`
	Storage struct {
		SaveImages    *bool `yaml:"save_images"`
		MaxLogs       int   `yaml:"max_logs"`
		RetentionDays int   `yaml:"retention_days"`
	} `yaml:"storage"`
}

// Load builds the startup configuration. Precedence is environment variable,
// then server_config.yaml, then the built-in default. Credentials may also
// come from ~/.anpr/credentials.env, loaded without overriding the process
// environment.
func Load() *Config {
	loadCredentialFiles()
	yml := loadFileConfig()

	saveImages := true
	if yml.Storage.SaveImages != nil {
		saveImages = *yml.Storage.SaveImages
	}

	return &Config{
		Host:                getEnv("ANPR_HOST", or(yml.Server.Host, "0.0.0.0")),
		Port:                getEnvAsInt("ANPR_PORT", orInt(yml.Server.Port, 8000)),
		APIKey:              getEnv("ANPR_API_KEY", yml.Server.APIKey),
		DetectorModel:       getEnv("ANPR_DETECTOR", or(yml.Models.Detector, "micro_320p_fp32")),
		OCRModel:            getEnv("ANPR_OCR", or(yml.Models.OCR, "small_fp32")),
		Region:              getEnv("ANPR_REGION", or(yml.Models.Region, "eup")),
		Backend:             getEnv("ANPR_BACKEND", or(yml.Models.Backend, "cpu")),
		ConfidenceThreshold: getEnvAsFloat("ANPR_CONFIDENCE", orFloat(yml.Models.Confidence, 0.25)),
		Username:            getEnv("ANPR_USERNAME", ""),
		SerialKey:           getEnv("ANPR_SERIAL_KEY", ""),
		Signature:           getEnv("ANPR_SIGNATURE", ""),
		DatabasePath:        getEnv("ANPR_DATABASE", filepath.Join(".", "anpr_history.db")),
		ResultsDirectory:    getEnv("ANPR_RESULTS_DIR", filepath.Join(".", "results")),
		ModelsDirectory:     getEnv("ANPR_MODELS_DIR", defaultModelsDir()),
		LogDirectory:        getEnv("ANPR_LOG_DIR", filepath.Join(".", "logs")),
		SaveImages:          getEnvAsBool("ANPR_SAVE_IMAGES", saveImages),
		MaxLogEntries:       getEnvAsInt("ANPR_MAX_LOGS", orInt(yml.Storage.MaxLogs, 500)),
		RetentionDays:       getEnvAsInt("ANPR_RETENTION_DAYS", yml.Storage.RetentionDays),
	}
}

// HasCredentials reports whether the full credential triple is present.
func (c *Config) HasCredentials() bool {
	return c.Username != "" && c.SerialKey != "" && c.Signature != ""
}

// loadCredentialFiles pulls in .env and the user-level credentials file.
// Existing environment variables keep priority.
func loadCredentialFiles() {
	_ = godotenv.Load()
	if home, err := os.UserHomeDir(); err == nil {
		_ = godotenv.Load(filepath.Join(home, ".anpr", "credentials.env"))
	}
}

func loadFileConfig() fileConfig {
	var fc fileConfig
	path := getEnv("ANPR_CONFIG", "server_config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return fc
	}
	// A malformed file is treated as absent; env vars and defaults still apply.
	_ = yaml.Unmarshal(data, &fc)
	return fc
}

func defaultModelsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "models")
	}
	return filepath.Join(home, ".anpr", "models")
}

func or(value, defaultValue string) string {
	if value != "" {
		return value
	}
	return defaultValue
}

func orInt(value, defaultValue int) int {
	if value != 0 {
		return value
	}
	return defaultValue
}

func orFloat(value, defaultValue float64) float64 {
	if value != 0 {
		return value
	}
	return defaultValue
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
