package cli

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/semmy-space/shelf/internal/api"
	"github.com/semmy-space/shelf/internal/app"
	"github.com/semmy-space/shelf/internal/config"
	"github.com/semmy-space/shelf/internal/metrics"
	"github.com/semmy-space/shelf/internal/output"
)

// userAgent is sent with every request.
const userAgent = "shelf-cli"

// SessionProvider lazily opens the application session on first use, so
// commands such as config and version never touch the store.
type SessionProvider struct {
	cfg     *config.Config
	globals *Globals
	log     hclog.Logger
	metrics *metrics.Collector

	once sync.Once
	sess *app.Session
	err  error
}

// NewSessionProvider creates a SessionProvider for cfg and globals.
func NewSessionProvider(cfg *config.Config, globals *Globals, log hclog.Logger) *SessionProvider {
	return &SessionProvider{
		cfg:     cfg,
		globals: globals,
		log:     log,
		metrics: metrics.New(),
	}
}

// APIURL resolves the base URL: flag/env > config.
func (sp *SessionProvider) APIURL() string {
	if sp.globals.APIURL != "" {
		return sp.globals.APIURL
	}
	return sp.cfg.APIURL
}

func (sp *SessionProvider) options() app.Options {
	backend := sp.globals.StoreBackend
	if backend == "" {
		backend = sp.cfg.StoreBackend
	}
	timeout := sp.globals.Timeout
	if timeout <= 0 {
		timeout = sp.cfg.TimeoutDuration()
	}

	return app.Options{
		APIURL:       sp.APIURL(),
		Secret:       sp.globals.SecretKey,
		StoreBackend: backend,
		RateLimit:    sp.cfg.RateLimit,
		Timeout:      timeout,
		UserAgent:    userAgent,
		Metrics:      sp.metrics,
		Logger:       sp.log,
	}
}

// Session returns the session, opening it on first call.
func (sp *SessionProvider) Session() (*app.Session, error) {
	sp.once.Do(func() {
		sess, err := app.Open(sp.options())
		if err != nil {
			sp.err = output.Wrap(output.ExitConfigError, err, "Failed to open session")
			return
		}
		sp.sess = sess
	})
	return sp.sess, sp.err
}

// Remote returns the session for a command that talks to the API. It fails
// early when no base URL is configured.
func (sp *SessionProvider) Remote() (*app.Session, error) {
	if sp.APIURL() == "" {
		return nil, output.NewCLIError(output.ExitConfigError, "API base URL is not configured").
			WithHint("Run: shelf config set api_url https://example.com/api (or set SHELF_API_URL)")
	}
	return sp.Session()
}

// SignedIn returns the session and the current user, running the auth gate.
func (sp *SessionProvider) SignedIn(ctx context.Context) (*app.Session, *api.User, error) {
	sess, err := sp.Remote()
	if err != nil {
		return nil, nil, err
	}
	user, err := sess.Auth.EnsureUser(ctx)
	if err != nil {
		return nil, nil, err
	}
	return sess, user, nil
}

// Close closes the session and writes the metrics file when requested.
func (sp *SessionProvider) Close() error {
	if sp.sess != nil {
		sp.sess.Close()
	}

	if sp.globals.MetricsFile == "" {
		return nil
	}
	if err := sp.metrics.WriteTextfile(sp.globals.MetricsFile); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
