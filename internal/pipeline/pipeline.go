// Package pipeline executes schema-validated, cancellable API calls and
// exposes their lifecycle as an observable State.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/semmy-space/shelf/internal/metrics"
	"github.com/semmy-space/shelf/internal/schema"
	"github.com/semmy-space/shelf/internal/transport"
)

// Descriptor describes one API call. Schema is mandatory.
type Descriptor[T any] struct {
	Path    string
	Method  string
	BaseURL string
	Body    any
	Options *transport.RequestOptions
	Schema  schema.Schema[T]
}

// ClientSource resolves a transport client for a base URL.
type ClientSource interface {
	Client(baseURL string) (*transport.Client, error)
}

type config struct {
	log           hclog.Logger
	metrics       *metrics.Collector
	clearOnCancel bool
	supersede     bool
	subBuffer     int
}

// Option configures a Pipeline.
type Option func(*config)

// WithLogger sets the logger for cancellation and outcome traces.
func WithLogger(log hclog.Logger) Option {
	return func(c *config) {
		if log != nil {
			c.log = log
		}
	}
}

// WithMetrics records every settle outcome on m.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// WithClearLoadingOnCancel resets the state to Idle when a canceled
// invocation was the only one in flight. Without it a canceled call leaves
// the state in Loading.
func WithClearLoadingOnCancel() Option {
	return func(c *config) {
		c.clearOnCancel = true
	}
}

// WithSupersede lets only the most recent invocation publish its outcome.
// Without it, whichever invocation settles last wins.
func WithSupersede() Option {
	return func(c *config) {
		c.supersede = true
	}
}

var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// Pipeline owns the request state for one logical call site. It is safe for
// concurrent use.
type Pipeline[T any] struct {
	clients ClientSource
	baseURL string
	cfg     config

	mu       sync.Mutex
	state    State[T]
	gen      uint64
	inflight map[uint64]context.CancelFunc
	subs     map[chan State[T]]struct{}
	closed   bool
	wg       sync.WaitGroup
}

// New creates an idle pipeline. baseURL is used for descriptors that do not
// override it.
func New[T any](clients ClientSource, baseURL string, opts ...Option) *Pipeline[T] {
	cfg := config{log: hclog.NewNullLogger(), subBuffer: 16}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Pipeline[T]{
		clients:  clients,
		baseURL:  baseURL,
		cfg:      cfg,
		inflight: make(map[uint64]context.CancelFunc),
		subs:     make(map[chan State[T]]struct{}),
	}
}

// State returns the current snapshot.
func (p *Pipeline[T]) State() State[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Subscribe returns a channel receiving every published state, starting with
// the current one. Slow readers lose intermediate states, never the latest.
// The returned func unsubscribes and closes the channel.
func (p *Pipeline[T]) Subscribe() (<-chan State[T], func()) {
	ch := make(chan State[T], p.cfg.subBuffer)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	p.subs[ch] = struct{}{}
	ch <- p.state
	p.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if _, ok := p.subs[ch]; ok {
				delete(p.subs, ch)
				close(ch)
			}
		})
	}
}

// Invoke starts desc in the background and returns its cancellation handle.
// An earlier in-flight invocation keeps running.
func (p *Pipeline[T]) Invoke(ctx context.Context, desc Descriptor[T]) context.CancelFunc {
	id, ctx, cancel, ok := p.begin(ctx)
	if !ok {
		return func() {}
	}

	go func() {
		defer p.wg.Done()
		p.run(ctx, id, cancel, desc)
	}()
	return cancel
}

// Do runs desc synchronously and returns the state this invocation settled
// into. A canceled invocation returns a Loading state (Idle with
// WithClearLoadingOnCancel).
func (p *Pipeline[T]) Do(ctx context.Context, desc Descriptor[T]) State[T] {
	id, ctx, cancel, ok := p.begin(ctx)
	if !ok {
		return p.State()
	}
	defer p.wg.Done()
	return p.run(ctx, id, cancel, desc)
}

// Close cancels every in-flight invocation, waits for them to return and
// closes all subscriptions. Later invocations are ignored.
func (p *Pipeline[T]) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for _, cancel := range p.inflight {
		cancel()
	}
	p.mu.Unlock()

	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	for ch := range p.subs {
		close(ch)
		delete(p.subs, ch)
	}
}

func (p *Pipeline[T]) begin(parent context.Context) (uint64, context.Context, context.CancelFunc, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, nil, nil, false
	}

	p.gen++
	id := p.gen
	ctx, cancel := context.WithCancel(parent)
	p.inflight[id] = cancel
	p.wg.Add(1)

	p.publishLocked(State[T]{Status: Loading})
	return id, ctx, cancel, true
}

func (p *Pipeline[T]) run(ctx context.Context, id uint64, cancel context.CancelFunc, desc Descriptor[T]) State[T] {
	defer cancel()

	result, canceled := p.execute(ctx, desc)

	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inflight, id)

	if canceled {
		p.cfg.log.Debug("request canceled", "method", methodOf(desc), "path", desc.Path)
		p.cfg.metrics.RecordOutcome("canceled")
		if !p.cfg.clearOnCancel {
			return State[T]{Status: Loading}
		}
		if !p.closed && len(p.inflight) == 0 && p.state.Status == Loading {
			p.publishLocked(State[T]{})
		}
		return State[T]{}
	}

	p.cfg.metrics.RecordOutcome(result.Status.String())
	if result.Status != Success {
		p.cfg.log.Debug("request failed", "status", result.Status, "detail", result.ErrorDetail)
	}

	switch {
	case p.closed:
	case p.cfg.supersede && id != p.gen:
		p.cfg.log.Debug("dropping superseded result", "path", desc.Path)
	default:
		p.publishLocked(result)
	}
	return result
}

func (p *Pipeline[T]) execute(ctx context.Context, desc Descriptor[T]) (State[T], bool) {
	if desc.Schema == nil {
		return failed[T](ValidationError, MissingSchemaDetail, errors.New(MissingSchemaDetail)), false
	}

	method := methodOf(desc)
	if !allowedMethods[method] {
		err := fmt.Errorf("unsupported method %q", method)
		return failed[T](TransportError, err.Error(), err), false
	}

	base := desc.BaseURL
	if base == "" {
		base = p.baseURL
	}

	client, err := p.clients.Client(base)
	if err != nil {
		return failed[T](TransportError, transportDetail(err), err), false
	}

	resp, err := client.Do(ctx, method, desc.Path, desc.Body, desc.Options)
	if err != nil {
		// Only this invocation's own token counts as cancellation; an HTTP
		// client timeout is a transport failure.
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return State[T]{}, true
		}
		return failed[T](TransportError, transportDetail(err), err), false
	}

	data, issues := desc.Schema.Parse(resp.Body)
	if len(issues) > 0 {
		return failed[T](ValidationError, ValidationPrefix+issues.Error(), issues), false
	}

	return State[T]{Status: Success, Data: &data}, false
}

// publishLocked must be called with p.mu held.
func (p *Pipeline[T]) publishLocked(s State[T]) {
	p.state = s
	for ch := range p.subs {
		select {
		case ch <- s:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}

func failed[T any](status Status, detail string, cause error) State[T] {
	return State[T]{Status: status, ErrorDetail: detail, cause: cause}
}

func methodOf[T any](desc Descriptor[T]) string {
	if desc.Method == "" {
		return http.MethodGet
	}
	return desc.Method
}

func transportDetail(err error) string {
	if err == nil || err.Error() == "" {
		return UnknownTransportError
	}
	return err.Error()
}
