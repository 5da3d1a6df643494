package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "voxa.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL != "https://api.voxa.ai" {
		t.Fatalf("base_url=%q", cfg.BaseURL)
	}
	if cfg.TTS.ModelID != "aria-2" || cfg.TTS.SampleRate != 24000 {
		t.Fatalf("tts defaults=%+v", cfg.TTS)
	}
	if cfg.STT.Model != "scribe-1" || cfg.STT.Encoding != "pcm_s16le" {
		t.Fatalf("stt defaults=%+v", cfg.STT)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
api_key: sk-from-file
log_level: debug
tts:
  voice: nova
  format: wav
stt:
  language: fr
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIKey != "sk-from-file" || cfg.LogLevel != "debug" {
		t.Fatalf("cfg=%+v", cfg)
	}
	if cfg.TTS.Voice != "nova" || cfg.TTS.Format != "wav" {
		t.Fatalf("tts=%+v", cfg.TTS)
	}
	// Untouched fields keep their defaults.
	if cfg.TTS.ModelID != "aria-2" || cfg.STT.SampleRate != 16000 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
	if cfg.STT.Language != "fr" {
		t.Fatalf("stt=%+v", cfg.STT)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, "api_key: sk-from-file\n")
	t.Setenv("VOXA_API_KEY", "sk-from-env")
	t.Setenv("VOXA_STT_SAMPLE_RATE", "48000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIKey != "sk-from-env" {
		t.Fatalf("api_key=%q", cfg.APIKey)
	}
	if cfg.STT.SampleRate != 48000 {
		t.Fatalf("stt sample_rate=%d", cfg.STT.SampleRate)
	}
}

func TestLoadReadsDotenvWithoutClobberingEnv(t *testing.T) {
	dir := t.TempDir()
	env := "VOXA_API_KEY=sk-from-dotenv\nexport VOXA_BASE_URL=\"https://staging.voxa.ai\"\n# comment\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	oldwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(oldwd); err != nil {
			t.Fatalf("chdir back: %v", err)
		}
	})
	t.Setenv("VOXA_BASE_URL", "https://real.voxa.ai")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIKey != "sk-from-dotenv" {
		t.Fatalf("api_key=%q", cfg.APIKey)
	}
	// The real environment wins over the .env file.
	if cfg.BaseURL != "https://real.voxa.ai" {
		t.Fatalf("base_url=%q", cfg.BaseURL)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	if _, err := Load(writeConfigFile(t, "log_level: loud\n")); err == nil {
		t.Fatal("expected error for bad log_level")
	}
	if _, err := Load(writeConfigFile(t, "tts:\n  sample_rate: -1\n")); err == nil {
		t.Fatal("expected error for negative sample rate")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
