// Package app wires the Aya server runtime: config, logging, storage, HTTP routes
// and the realtime session channel.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"aya/cmd/identity"
	"aya/cmd/internal/auth/api"
	"aya/cmd/internal/auth/session"
	"aya/cmd/internal/metrics"
	"aya/cmd/internal/realtime"
	"aya/cmd/internal/solver"
	"aya/cmd/internal/web"
	"aya/cmd/security/password"
)

// App is the Aya server runtime: it owns storage, HTTP wiring and realtime dependencies.
type App struct {
	cfg Config
	log Logger

	storage *Storage
	creds   *identity.Store
	hub     *realtime.Hub
	metrics *metrics.Metrics

	auth  *api.Handler
	ws    *realtime.WSGateway
	solve *solver.Handler
	web   http.Handler
}

// New constructs a fully wired App instance from config and logger.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat, nil)
	}

	st, err := OpenStorage(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	a, err := build(ctx, cfg, log, st)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return a, nil
}

func build(ctx context.Context, cfg Config, log Logger, st *Storage) (*App, error) {
	a := &App{cfg: cfg, log: log, storage: st}

	creds, err := NewCredentialStore(cfg, log, st)
	if err != nil {
		return nil, err
	}
	a.creds = creds

	if cfg.SeedUsername != "" {
		created, err := creds.Seed(ctx, cfg.SeedUsername, cfg.SeedPassword)
		if err != nil {
			return nil, err
		}
		if created {
			log.Info("identity.seed.created", "username", cfg.SeedUsername)
		}
	}
	if !creds.EnrollmentEnabled() {
		log.Warn("identity.enroll.disabled", "reason", "no admin secret configured")
	}

	var hubOpts []realtime.HubOption
	if cfg.MetricsEnabled {
		a.metrics = metrics.New()
		hubOpts = append(hubOpts, realtime.WithConnectionObserver(a.metrics))
	}
	a.hub = realtime.NewHub(log, hubOpts...)

	notifiers := session.Notifiers{a.hub}
	if a.metrics != nil {
		notifiers = append(notifiers, a.metrics)
	}
	registry, err := session.NewRegistry(st.Sessions,
		session.WithNotifier(notifiers),
		session.WithRegistryLogger(log),
	)
	if err != nil {
		return nil, err
	}

	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	tokens, err := session.NewPasetoV4PublicManager(sessCfg)
	if err != nil {
		return nil, err
	}
	if tokens.Ephemeral() {
		log.Warn("session.key.ephemeral", "note", "set AYA_PASETO_V4_SECRET_KEY_HEX so sessions survive restarts")
	}
	log.Info("session.key.ready", "public_key", tokens.PublicKeyHex())
	sessions, err := session.NewService(registry, tokens)
	if err != nil {
		return nil, err
	}

	var authOpts []api.HandlerOption
	if a.metrics != nil {
		authOpts = append(authOpts, api.WithObserver(a.metrics))
	}
	a.auth, err = api.NewHandler(log, creds, sessions, api.LoadConfigFromEnv(), authOpts...)
	if err != nil {
		return nil, err
	}

	a.ws, err = realtime.NewWSGateway(log, a.hub, a.auth, registry)
	if err != nil {
		return nil, err
	}

	a.solve, err = newSolveHandler(log, a.metrics)
	if err != nil {
		return nil, err
	}

	a.web, err = web.Handler()
	if err != nil {
		return nil, err
	}

	return a, nil
}

// NewCredentialStore builds the credential store over st with the password
// configuration from the environment.
func NewCredentialStore(cfg Config, log Logger, st *Storage) (*identity.Store, error) {
	pwCfg, err := password.FromEnv()
	if err != nil {
		return nil, err
	}
	if pwCfg.Scheme == password.SchemeSHA256 {
		log.Warn("identity.scheme.legacy", "scheme", string(pwCfg.Scheme), "note", "unsalted digests are weak; prefer argon2id")
	}
	return identity.NewStore(st.Credentials,
		identity.WithAdminSecret(cfg.AdminSecret),
		identity.WithPasswordConfig(pwCfg),
		identity.WithLogger(log),
	)
}

func newSolveHandler(log Logger, m *metrics.Metrics) (*solver.Handler, error) {
	cfg, err := solver.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}

	var ringOpts []solver.KeyRingOption
	svcOpts := []solver.Option{solver.WithLogger(log)}
	if m != nil {
		ringOpts = append(ringOpts, solver.WithFailoverObserver(m))
		svcOpts = append(svcOpts, solver.WithObserver(m))
	}
	ringOpts = append(ringOpts, solver.WithKeyRingLogger(log))

	hc := &http.Client{Timeout: cfg.Timeout}
	var provider solver.Provider
	ring, err := solver.NewKeyRing(cfg, solver.OpenAIClientFactory(cfg.BaseURL, hc), ringOpts...)
	switch {
	case err == nil:
		provider = ring
		log.Info("solver.provider.ready", "base_url", cfg.BaseURL, "keys", ring.Len())
	case errors.Is(err, solver.ErrNoKeys):
		// The rest of the app stays usable; every solve reports the missing key.
		provider = solver.ProviderFunc(func(context.Context, solver.Request) (solver.Completion, error) {
			return solver.Completion{}, solver.ErrNoKeys
		})
		log.Warn("solver.provider.disabled", "reason", "no API keys configured")
	default:
		return nil, err
	}

	svc, err := solver.NewService(provider, cfg, svcOpts...)
	if err != nil {
		return nil, err
	}
	return solver.NewHandler(log, svc, cfg)
}

// Handler returns the fully wrapped HTTP handler.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.storage, a.auth, a.ws, a.solve, a.web, a.metrics)

	var h http.Handler = WithRequestLogging(mux, a.log)
	if a.metrics != nil {
		h = a.metrics.Middleware(h)
	}
	return WithSecurityHeaders(h)
}

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 30*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 90*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "storage", a.storage.Backend, "metrics", a.metrics != nil)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		_ = a.Close()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), nonZeroDuration(a.cfg.ShutdownTimeout, 10*time.Second))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		_ = a.Close()
		return err
	}

	if err := a.Close(); err != nil {
		a.log.Error("storage.close.fail", "err", err)
	}

	a.log.Info("server.stopped")
	return nil
}

// Close releases storage resources.
func (a *App) Close() error {
	return a.storage.Close()
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
