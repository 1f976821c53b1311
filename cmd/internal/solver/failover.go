package solver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"
)

// Failover reasons reported to the observer.
const (
	ReasonQuota = "quota"
	ReasonAuth  = "auth"
)

// FailoverObserver is told each time a key is skipped.
type FailoverObserver interface {
	ObserveFailover(reason string)
}

type noopFailoverObserver struct{}

func (noopFailoverObserver) ObserveFailover(string) {}

// KeyRing is a Provider that tries its API keys in order, starting with the key
// that last succeeded. Quota and invalid-key errors move to the next key; any
// other error is returned at once.
type KeyRing struct {
	keys    []string
	clients []ChatClient
	models  *modelResolver
	vision  string

	log *slog.Logger
	obs FailoverObserver

	mu      sync.Mutex
	current int
}

// KeyRingOption configures a KeyRing.
type KeyRingOption func(*KeyRing)

// WithFailoverObserver sets the failover observer (metrics).
func WithFailoverObserver(obs FailoverObserver) KeyRingOption {
	return func(k *KeyRing) {
		if obs != nil {
			k.obs = obs
		}
	}
}

// WithKeyRingLogger sets the logger.
func WithKeyRingLogger(log *slog.Logger) KeyRingOption {
	return func(k *KeyRing) {
		if log != nil {
			k.log = log
		}
	}
}

// NewKeyRing builds a KeyRing over cfg.APIKeys using factory to create clients.
func NewKeyRing(cfg Config, factory ClientFactory, opts ...KeyRingOption) (*KeyRing, error) {
	if factory == nil {
		return nil, errors.New("solver: nil client factory")
	}
	keys := make([]string, 0, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, ErrNoKeys
	}

	kr := &KeyRing{
		keys:    keys,
		clients: make([]ChatClient, len(keys)),
		models: &modelResolver{
			pinned:    cfg.Model,
			preferred: cfg.PreferredModels,
			fallback:  cfg.FallbackModel,
		},
		vision: cfg.VisionModel,
		log:    slog.Default(),
		obs:    noopFailoverObserver{},
	}
	if kr.models.fallback == "" {
		kr.models.fallback = DefaultFallbackModel
	}
	for i, k := range keys {
		kr.clients[i] = factory(k)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(kr)
		}
	}
	return kr, nil
}

// Len returns the number of keys.
func (k *KeyRing) Len() int { return len(k.keys) }

// Current returns the index of the key the next request starts with.
func (k *KeyRing) Current() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.current
}

func (k *KeyRing) Complete(ctx context.Context, req Request) (Completion, error) {
	start := k.Current()

	var lastErr error
	for i := 0; i < len(k.clients); i++ {
		if err := ctx.Err(); err != nil {
			return Completion{}, err
		}
		idx := (start + i) % len(k.clients)
		c := k.clients[idx]

		model := k.models.resolve(ctx, c)
		if len(req.ImagePNG) > 0 && k.vision != "" {
			model = k.vision
		}

		out, err := completeWith(ctx, c, model, req)
		if err == nil {
			k.mu.Lock()
			k.current = idx
			k.mu.Unlock()
			return out, nil
		}

		reason := classify(err)
		if reason == "" {
			return Completion{}, err
		}
		k.obs.ObserveFailover(reason)
		k.log.Warn("solver.provider.failover", "key_index", idx, "reason", reason)
		lastErr = err
	}
	return Completion{}, fmt.Errorf("%w: %w", ErrNoUsableKey, lastErr)
}

// classify returns ReasonQuota or ReasonAuth for errors that should move to the
// next key, and "" for terminal errors.
func classify(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if r := classifyStatus(apiErr.HTTPStatusCode); r != "" {
			return r
		}
		code, _ := apiErr.Code.(string)
		for _, s := range []string{code, apiErr.Type} {
			switch s {
			case "rate_limit_exceeded", "insufficient_quota":
				return ReasonQuota
			case "invalid_api_key":
				return ReasonAuth
			}
		}
		return ""
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatus(reqErr.HTTPStatusCode)
	}
	return ""
}

func classifyStatus(status int) string {
	switch status {
	case http.StatusTooManyRequests:
		return ReasonQuota
	case http.StatusUnauthorized, http.StatusForbidden:
		return ReasonAuth
	default:
		return ""
	}
}
