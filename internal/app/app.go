// Package app wires configuration, providers, metrics, the transcript
// archive and the workflow for the command line and the HTTP gateway.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/newthinker/nurexia/internal/config"
	"github.com/newthinker/nurexia/internal/core"
	"github.com/newthinker/nurexia/internal/llm"
	"github.com/newthinker/nurexia/internal/llm/factory"
	"github.com/newthinker/nurexia/internal/metrics"
	"github.com/newthinker/nurexia/internal/storage/archive"
	"github.com/newthinker/nurexia/internal/workflow"
	"go.uber.org/zap"
)

// App is the main application orchestrator.
type App struct {
	cfg      *config.Config
	logger   *zap.Logger
	metrics  *metrics.Registry
	registry *llm.Registry
	workflow *workflow.Workflow
	archiver *archive.Archiver
}

// Option configures an App.
type Option func(*options)

type options struct {
	httpClient *http.Client
	registry   *llm.Registry
	metrics    *metrics.Registry
	store      archive.Storage
}

// WithHTTPClient sets the client used by the REST providers.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithRegistry replaces the provider registry built from configuration.
func WithRegistry(r *llm.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithMetrics shares an existing metrics registry.
func WithMetrics(m *metrics.Registry) Option {
	return func(o *options) { o.metrics = m }
}

// WithStorage archives transcripts to store regardless of configuration.
func WithStorage(store archive.Storage) Option {
	return func(o *options) { o.store = store }
}

// New creates an App from cfg.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.Defaults()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{cfg: cfg, logger: logger, metrics: o.metrics, registry: o.registry}
	if a.metrics == nil {
		a.metrics = metrics.NewRegistry()
	}
	if a.registry == nil {
		var fopts []factory.Option
		if o.httpClient != nil {
			fopts = append(fopts, factory.WithHTTPClient(o.httpClient))
		}
		reg, err := factory.New(cfg, logger, fopts...)
		if err != nil {
			return nil, fmt.Errorf("building provider registry: %w", err)
		}
		a.registry = reg
	}

	store := o.store
	if store == nil && cfg.Archive.Enabled {
		s, err := archive.Open(cfg.Archive)
		if err != nil {
			return nil, fmt.Errorf("opening transcript archive: %w", err)
		}
		store = s
	}

	wopts := []workflow.Option{
		workflow.WithLogger(logger),
		workflow.WithMetrics(a.metrics),
	}
	if store != nil {
		a.archiver = archive.NewArchiver(store, logger, a.metrics)
		wopts = append(wopts, workflow.WithTerminalHook(a.archiver.Hook))
		logger.Info("transcript archive enabled", zap.String("type", cfg.Archive.Type))
	}
	a.workflow = workflow.New(a.registry, wopts...)
	return a, nil
}

func (a *App) Config() *config.Config       { return a.cfg }
func (a *App) Logger() *zap.Logger          { return a.logger }
func (a *App) Metrics() *metrics.Registry   { return a.metrics }
func (a *App) Registry() *llm.Registry      { return a.registry }
func (a *App) Workflow() *workflow.Workflow { return a.workflow }

// Request is one conversation turn as submitted by a caller. Empty
// fields fall back to the configured defaults.
type Request struct {
	Provider         string
	Model            string
	Mode             string
	Messages         []core.Message
	Temperature      *float64
	Verbose          bool
	WorkingDirectory string
	PendingAction    *core.Action
}

// NewState builds the initial conversation state for req.
func (a *App) NewState(req Request) *core.State {
	provider := req.Provider
	if provider == "" {
		provider = a.cfg.Defaults.Provider
	}
	mode := req.Mode
	if mode == "" {
		mode = a.cfg.Defaults.Mode
	}
	temperature := a.cfg.Defaults.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	s := core.NewState(provider, req.Model)
	s.Mode = core.Mode(mode)
	s.WorkingDirectory = req.WorkingDirectory
	s.PendingAction = req.PendingAction
	for _, m := range req.Messages {
		s.Messages = append(s.Messages, core.NewMessage(m.Role, m.Content, m.Metadata))
	}
	s.Options[llm.OptTemperature] = temperature
	if req.Verbose {
		s.Options[llm.OptVerbose] = true
	}
	return s
}

// Run executes req to a terminal state.
func (a *App) Run(ctx context.Context, req Request) *core.State {
	return a.workflow.Execute(ctx, a.NewState(req))
}

// Stream executes req with incremental delivery. The state becomes
// terminal once the stream ends or is closed; on error it is already
// terminal.
func (a *App) Stream(ctx context.Context, req Request) (*core.State, llm.Stream, error) {
	s := a.NewState(req)
	stream, err := a.workflow.ExecuteStreaming(ctx, s)
	return s, stream, err
}

// Providers returns the capabilities of every registered provider.
func (a *App) Providers() map[string]llm.Capabilities {
	return a.registry.ListCapabilities()
}

// TestConnection checks a provider's credentials and reachability.
func (a *App) TestConnection(ctx context.Context, name, model string) (bool, string) {
	ok, msg := a.connect(ctx, name, model)
	if a.registry.Has(name) {
		a.metrics.RecordConnectionTest(name, ok)
	}
	a.logger.Info("connection test",
		zap.String("provider", name),
		zap.Bool("ok", ok),
	)
	return ok, msg
}

// connect validates the provider's configuration before any network call,
// so a missing credential is reported without constructing a client.
// Registered backends without a config entry skip straight to the test.
func (a *App) connect(ctx context.Context, name, model string) (bool, string) {
	if a.registry.Has(name) {
		err := a.cfg.ValidateProvider(name)
		var ce *core.Error
		if err != nil && !errors.Is(err, core.ErrUnknownProvider) && errors.As(err, &ce) {
			a.logger.Debug("provider config invalid", zap.String("provider", name), zap.Error(err))
			return false, ce.Message
		}
	}
	return a.registry.TestConnection(ctx, name, model)
}
