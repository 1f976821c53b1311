package solver

import (
	"os"
	"strings"
	"time"

	"aya/cmd/internal/envcfg"
)

const (
	// DefaultBaseURL is Groq's OpenAI-compatible endpoint.
	DefaultBaseURL = "https://api.groq.com/openai/v1"

	DefaultFallbackModel  = "llama-3.1-8b-instant"
	DefaultVisionModel    = "meta-llama/llama-4-scout-17b-16e-instruct"
	DefaultMaxTokens      = 1000
	DefaultTimeout        = 60 * time.Second
	DefaultMaxUploadBytes = 10 << 20 // 10 MiB

	// DefaultMaxImagePixels bounds decoded image size (4000x4000, 64 MiB as RGBA).
	DefaultMaxImagePixels = 16_000_000
)

// DefaultPreferredModels is the order in which listed models are picked when no model is pinned.
var DefaultPreferredModels = []string{
	"llama-3.3-70b-versatile",
	"llama-3.1-8b-instant",
	"llama3-8b-8192",
	"llama3-70b-8192",
	"mixtral-8x7b-32768",
	"gemma-7b-it",
}

// Config controls the provider client and request limits.
type Config struct {
	BaseURL string
	APIKeys []string

	// Model pins the chat model. When empty the first available entry of
	// PreferredModels is used, then any listed model, then FallbackModel.
	Model           string
	PreferredModels []string
	FallbackModel   string

	// VisionModel serves image problems. Empty means use the chat model.
	VisionModel string

	MaxTokens      int
	Timeout        time.Duration
	MaxUploadBytes int64
	MaxImagePixels int64
}

// DefaultConfig returns the defaults LoadConfigFromEnv starts from.
func DefaultConfig() Config {
	return Config{
		BaseURL:         DefaultBaseURL,
		PreferredModels: append([]string(nil), DefaultPreferredModels...),
		FallbackModel:   DefaultFallbackModel,
		VisionModel:     DefaultVisionModel,
		MaxTokens:       DefaultMaxTokens,
		Timeout:         DefaultTimeout,
		MaxUploadBytes:  DefaultMaxUploadBytes,
		MaxImagePixels:  DefaultMaxImagePixels,
	}
}

// LoadConfigFromEnv reads solver configuration.
//
// Keys come from AYA_PROVIDER_API_KEYS (comma separated, tried in order), falling
// back to a single GROQ_API_KEY. Other variables:
//   - AYA_PROVIDER_BASE_URL
//   - AYA_PROVIDER_MODEL
//   - AYA_PROVIDER_PREFERRED_MODELS
//   - AYA_PROVIDER_FALLBACK_MODEL
//   - AYA_PROVIDER_VISION_MODEL ("-" disables the separate vision model)
//   - AYA_PROVIDER_MAX_TOKENS
//   - AYA_PROVIDER_TIMEOUT
//   - AYA_SOLVER_MAX_UPLOAD_BYTES
//   - AYA_SOLVER_MAX_IMAGE_PIXELS
//
// Returns ErrConfig if a value is present but invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	cfg.APIKeys = envcfg.EnvCSV("AYA_PROVIDER_API_KEYS", "")
	if len(cfg.APIKeys) == 0 {
		if k := strings.TrimSpace(os.Getenv("GROQ_API_KEY")); k != "" {
			cfg.APIKeys = []string{k}
		}
	}

	cfg.BaseURL = envcfg.EnvString("AYA_PROVIDER_BASE_URL", cfg.BaseURL)
	cfg.Model = envcfg.EnvString("AYA_PROVIDER_MODEL", "")
	if pm := envcfg.EnvCSV("AYA_PROVIDER_PREFERRED_MODELS", ""); len(pm) > 0 {
		cfg.PreferredModels = pm
	}
	cfg.FallbackModel = envcfg.EnvString("AYA_PROVIDER_FALLBACK_MODEL", cfg.FallbackModel)
	cfg.VisionModel = envcfg.EnvString("AYA_PROVIDER_VISION_MODEL", cfg.VisionModel)
	if cfg.VisionModel == "-" {
		cfg.VisionModel = ""
	}

	if os.Getenv("AYA_PROVIDER_MAX_TOKENS") != "" {
		n := envcfg.EnvInt("AYA_PROVIDER_MAX_TOKENS", 0)
		if n <= 0 {
			return Config{}, ErrConfig
		}
		cfg.MaxTokens = n
	}
	if os.Getenv("AYA_PROVIDER_TIMEOUT") != "" {
		d := envcfg.EnvDuration("AYA_PROVIDER_TIMEOUT", 0)
		if d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.Timeout = d
	}
	if os.Getenv("AYA_SOLVER_MAX_UPLOAD_BYTES") != "" {
		n := envcfg.EnvInt64("AYA_SOLVER_MAX_UPLOAD_BYTES", 0)
		if n <= 0 {
			return Config{}, ErrConfig
		}
		cfg.MaxUploadBytes = n
	}
	if os.Getenv("AYA_SOLVER_MAX_IMAGE_PIXELS") != "" {
		n := envcfg.EnvInt64("AYA_SOLVER_MAX_IMAGE_PIXELS", 0)
		if n <= 0 {
			return Config{}, ErrConfig
		}
		cfg.MaxImagePixels = n
	}

	return cfg, nil
}
