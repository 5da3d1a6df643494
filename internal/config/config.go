// Package config loads the YAML configuration used by the voxa command
// line tools.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	APIKey   string    `yaml:"api_key"`
	BaseURL  string    `yaml:"base_url"`
	LogLevel string    `yaml:"log_level"`
	TTS      TTSConfig `yaml:"tts"`
	STT      STTConfig `yaml:"stt"`
}

type TTSConfig struct {
	ModelID    string `yaml:"model_id"`
	Voice      string `yaml:"voice"`
	Language   string `yaml:"language"`
	Format     string `yaml:"format"`
	SampleRate int    `yaml:"sample_rate"`
}

type STTConfig struct {
	Model      string `yaml:"model"`
	Language   string `yaml:"language"`
	Encoding   string `yaml:"encoding"`
	SampleRate int    `yaml:"sample_rate"`
}

func Default() Config {
	return Config{
		BaseURL:  "https://api.voxa.ai",
		LogLevel: "info",
		TTS: TTSConfig{
			ModelID:    "aria-2",
			Format:     "raw",
			SampleRate: 24000,
		},
		STT: STTConfig{
			Model:      "scribe-1",
			Encoding:   "pcm_s16le",
			SampleRate: 16000,
		},
	}
}

// Load reads path on top of the defaults. An empty path skips the file
// and returns defaults plus environment overrides. A .env file in the
// working directory is loaded first, without clobbering real env vars.
func Load(path string) (Config, error) {
	cfg := Default()

	if err := loadEnvFile(".env"); err != nil {
		return cfg, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.APIKey, "VOXA_API_KEY")
	overrideString(&cfg.BaseURL, "VOXA_BASE_URL")
	overrideString(&cfg.LogLevel, "VOXA_LOG_LEVEL")
	overrideString(&cfg.TTS.Voice, "VOXA_TTS_VOICE")
	overrideString(&cfg.TTS.ModelID, "VOXA_TTS_MODEL_ID")
	overrideString(&cfg.STT.Model, "VOXA_STT_MODEL")
	overrideInt(&cfg.STT.SampleRate, "VOXA_STT_SAMPLE_RATE")
}

func validate(cfg Config) error {
	if cfg.BaseURL == "" {
		return fmt.Errorf("base_url must not be empty")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level %q is not one of debug, info, warn, error", cfg.LogLevel)
	}
	if cfg.TTS.SampleRate <= 0 {
		return fmt.Errorf("tts.sample_rate must be positive")
	}
	if cfg.STT.SampleRate <= 0 {
		return fmt.Errorf("stt.sample_rate must be positive")
	}
	return nil
}

// loadEnvFile reads KEY=VALUE lines into the process environment.
// Variables already set win over file values. A missing file is fine.
func loadEnvFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open env file %q: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, val, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		val = strings.TrimSpace(val)
		val = strings.Trim(val, `"'`)
		if err := os.Setenv(key, val); err != nil {
			return fmt.Errorf("set env %q from %q: %w", key, path, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan env file %q: %w", path, err)
	}
	return nil
}

func overrideString(target *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*target = v
	}
}

func overrideInt(target *int, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}
