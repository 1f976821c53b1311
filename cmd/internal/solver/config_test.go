package solver

import (
	"errors"
	"testing"
	"time"
)

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv("AYA_PROVIDER_API_KEYS", "")
	t.Setenv("GROQ_API_KEY", "")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if cfg.BaseURL != DefaultBaseURL || cfg.MaxTokens != 1000 || cfg.Timeout != 60*time.Second {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.MaxUploadBytes != 10<<20 {
		t.Fatalf("MaxUploadBytes=%d", cfg.MaxUploadBytes)
	}
	if len(cfg.APIKeys) != 0 {
		t.Fatalf("expected no keys, got %v", cfg.APIKeys)
	}
}

func TestLoadConfigFromEnv_Keys(t *testing.T) {
	t.Setenv("AYA_PROVIDER_API_KEYS", "k1, k2,,k3")
	t.Setenv("GROQ_API_KEY", "ignored")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if len(cfg.APIKeys) != 3 || cfg.APIKeys[0] != "k1" || cfg.APIKeys[2] != "k3" {
		t.Fatalf("unexpected keys: %v", cfg.APIKeys)
	}

	t.Setenv("AYA_PROVIDER_API_KEYS", "")
	cfg, err = LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if len(cfg.APIKeys) != 1 || cfg.APIKeys[0] != "ignored" {
		t.Fatalf("expected GROQ_API_KEY fallback, got %v", cfg.APIKeys)
	}
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("AYA_PROVIDER_MODEL", "pinned")
	t.Setenv("AYA_PROVIDER_VISION_MODEL", "-")
	t.Setenv("AYA_PROVIDER_MAX_TOKENS", "256")
	t.Setenv("AYA_PROVIDER_TIMEOUT", "5s")
	t.Setenv("AYA_SOLVER_MAX_UPLOAD_BYTES", "1024")
	t.Setenv("AYA_SOLVER_MAX_IMAGE_PIXELS", "250000")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if cfg.Model != "pinned" || cfg.VisionModel != "" {
		t.Fatalf("unexpected models: %+v", cfg)
	}
	if cfg.MaxTokens != 256 || cfg.Timeout != 5*time.Second || cfg.MaxUploadBytes != 1024 || cfg.MaxImagePixels != 250000 {
		t.Fatalf("unexpected limits: %+v", cfg)
	}
}

func TestLoadConfigFromEnv_Invalid(t *testing.T) {
	for _, kv := range [][2]string{
		{"AYA_PROVIDER_MAX_TOKENS", "zero"},
		{"AYA_PROVIDER_TIMEOUT", "-1s"},
		{"AYA_SOLVER_MAX_UPLOAD_BYTES", "0"},
		{"AYA_SOLVER_MAX_IMAGE_PIXELS", "-5"},
	} {
		t.Run(kv[0], func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			if _, err := LoadConfigFromEnv(); !errors.Is(err, ErrConfig) {
				t.Fatalf("expected ErrConfig, got %v", err)
			}
		})
	}
}
