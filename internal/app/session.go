// Package app assembles the client: encrypted store, credential-aware
// transport, persistent state and the account and catalogue services.
package app

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/semmy-space/shelf/internal/api"
	"github.com/semmy-space/shelf/internal/auth"
	"github.com/semmy-space/shelf/internal/metrics"
	"github.com/semmy-space/shelf/internal/pipeline"
	"github.com/semmy-space/shelf/internal/secrets"
	"github.com/semmy-space/shelf/internal/state"
	"github.com/semmy-space/shelf/internal/transport"
)

// Persisted value names.
const (
	UserKey     = "user"
	TemplateKey = "template"
)

// Options configures Open.
type Options struct {
	// APIURL is the base every descriptor path is resolved against.
	APIURL string
	// Secret is the encryption secret. Empty leaves the store read-only
	// and every write fails with secrets.ErrMissingKey.
	Secret string
	// StoreBackend names the storage area kind (see secrets.NewBackend).
	StoreBackend string
	// Backend overrides StoreBackend with a ready backend.
	Backend secrets.Backend

	RateLimit  float64
	Timeout    time.Duration
	UserAgent  string
	HTTPClient *http.Client
	Metrics    *metrics.Collector
	Logger     hclog.Logger
}

// Session owns every long-lived component for one process.
type Session struct {
	apiURL   string
	log      hclog.Logger
	store    *secrets.SecureStore
	creds    *auth.CredentialSource
	factory  *transport.Factory
	registry *state.Registry
	metrics  *metrics.Collector

	User     *state.Value[*api.UserResponse]
	Template *state.Value[int]
	Auth     *auth.Service
	Books    *Catalog

	mu      sync.Mutex
	closers []func()
	closed  bool
}

// Open builds a Session from opts.
func Open(opts Options) (*Session, error) {
	log := opts.Logger
	if log == nil {
		log = hclog.NewNullLogger()
	}

	backend := opts.Backend
	if backend == nil {
		b, err := secrets.NewBackend(opts.StoreBackend, log.Named("store"))
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
		backend = b
	}
	log.Debug("store opened", "backend", secrets.Describe(backend))

	store := secrets.NewSecureStore(backend, opts.Secret, secrets.WithLogger(log.Named("store")))
	creds := auth.NewCredentialSource(store)

	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = transport.DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	factory := transport.NewFactory(
		transport.WithHTTPClient(httpClient),
		transport.WithCredentials(creds),
		transport.WithRateLimit(opts.RateLimit),
		transport.WithMetrics(m),
		transport.WithLogger(log.Named("http")),
		transport.WithUserAgent(opts.UserAgent),
	)

	s := &Session{
		apiURL:   opts.APIURL,
		log:      log,
		store:    store,
		creds:    creds,
		factory:  factory,
		registry: state.NewRegistry(),
		metrics:  m,
	}

	var err error
	stateLog := state.WithLogger(log.Named("state"))
	if s.User, err = state.Register[*api.UserResponse](s.registry, store, UserKey, nil, stateLog); err != nil {
		return nil, err
	}
	if s.Template, err = state.Register(s.registry, store, TemplateKey, 0, stateLog); err != nil {
		return nil, err
	}

	s.Auth = auth.NewService(creds, s.User, factory, opts.APIURL, log.Named("auth"), s.pipelineOptions()...)
	s.onClose(s.Auth.Close)
	s.Books = newCatalog(s)

	return s, nil
}

func (s *Session) pipelineOptions() []pipeline.Option {
	return []pipeline.Option{
		pipeline.WithLogger(s.log.Named("pipeline")),
		pipeline.WithMetrics(s.metrics),
	}
}

func (s *Session) onClose(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closers = append(s.closers, fn)
}

// NewPipeline creates a pipeline bound to the session's transport and base
// URL. It is closed together with the session.
func NewPipeline[T any](s *Session, opts ...pipeline.Option) *pipeline.Pipeline[T] {
	p := pipeline.New[T](s.factory, s.apiURL, append(s.pipelineOptions(), opts...)...)
	s.onClose(p.Close)
	return p
}

// APIURL returns the configured base URL.
func (s *Session) APIURL() string {
	return s.apiURL
}

// Store returns the encrypted store.
func (s *Session) Store() *secrets.SecureStore {
	return s.store
}

// Credentials returns the credential source used by every request.
func (s *Session) Credentials() *auth.CredentialSource {
	return s.creds
}

// Metrics returns the session's collector.
func (s *Session) Metrics() *metrics.Collector {
	return s.metrics
}

// StateNames lists the persisted value names.
func (s *Session) StateNames() []string {
	return s.registry.Names()
}

// Close cancels every in-flight call and waits for it to settle.
// It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	closers := s.closers
	s.closers = nil
	s.mu.Unlock()

	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
}
