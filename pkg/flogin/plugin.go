// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flogin Contributors

// Package flogin is an SDK for writing Flow Launcher plugins.
//
// A plugin registers search handlers (condition/callback pairs) and runs a
// long-lived JSON-RPC session over its standard streams. The SDK routes the
// host's query, context-menu, and result-click requests to the registered
// handlers and converts their return values into wire-format result lists.
//
//	func main() {
//		p := flogin.New(flogin.Options{})
//		p.RegisterSearchHandler(flogin.NewSearchHandler(nil,
//			func(ctx context.Context, q *flogin.Query) (flogin.Outcome, error) {
//				return flogin.One("You typed: " + q.Text()), nil
//			}))
//		p.Run(context.Background())
//	}
package flogin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"

	"github.com/cibere/flogin/internal/envinfo"
	"github.com/cibere/flogin/internal/logging"
	"github.com/cibere/flogin/internal/observability"
	"github.com/cibere/flogin/pkg/errutil"
	"github.com/cibere/flogin/pkg/flow"
	"github.com/cibere/flogin/pkg/jsonrpc"
)

// ErrNotInitialized is returned when plugin metadata is requested before the
// host has sent the initialize request.
var ErrNotInitialized = errors.New("plugin has not been initialized by the host yet")

// Options configures a Plugin.
type Options struct {
	// IgnoreCancellationRequests makes the host's $/cancelRequest
	// notifications a logged no-op.
	IgnoreCancellationRequests bool
	// SettingsNoUpdate stops host query requests from replacing the local
	// settings snapshot. Useful with a custom settings menu.
	SettingsNoUpdate bool
	// DisableLogOverrideFiles skips scanning for *.flogin.debug and
	// *.flogin.prod marker files.
	DisableLogOverrideFiles bool
	// MetricsAddr serves /metrics and /healthz when non-empty. The
	// FLOGIN_METRICS_ADDR environment variable overrides it.
	MetricsAddr string
	// Logger overrides the SDK-managed logger.
	Logger *slog.Logger
}

// Plugin routes host requests to registered search handlers, context-menu
// producers, result-click callbacks, and user events.
type Plugin struct {
	opts     Options
	registry *prometheus.Registry

	rpcOnce sync.Once
	rpc     *jsonrpc.Client
	api     *flow.Client

	mu             sync.Mutex
	logger         *slog.Logger
	events         map[string]EventHandler
	errorHandler   ErrorHandler
	searchHandlers []*SearchHandler
	results        map[string]*Result
	settings       *Settings
	metadata       *flow.PluginMetadata
	lastQuery      *Query
}

// New creates a plugin with no handlers registered.
func New(opts Options) *Plugin {
	p := &Plugin{
		opts:     opts,
		registry: prometheus.NewRegistry(),
		logger:   opts.Logger,
		results:  make(map[string]*Result),
	}
	p.errorHandler = p.defaultOnError
	p.events = map[string]EventHandler{
		"on_query":        p.onQuery,
		"on_context_menu": p.onContextMenu,
	}
	return p
}

// ensureRPC builds the transport on first use.
func (p *Plugin) ensureRPC() {
	p.rpcOnce.Do(func() {
		metrics := jsonrpc.NewMetrics(p.registry)
		p.rpc = jsonrpc.NewClient(p, jsonrpc.Options{
			IgnoreCancellations: p.opts.IgnoreCancellationRequests,
			Logger:              p.log(),
			Metrics:             metrics,
		})
		p.api = flow.NewClient(p.rpc)
	})
}

// API exposes the host's callable surface.
func (p *Plugin) API() *flow.Client {
	p.ensureRPC()
	return p.api
}

// Metadata returns the plugin's metadata as reported by the host, or
// ErrNotInitialized before the initialize request has arrived.
func (p *Plugin) Metadata() (*flow.PluginMetadata, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.metadata == nil {
		return nil, ErrNotInitialized
	}
	return p.metadata, nil
}

// LastQuery returns the most recent query from the host, or nil before the
// first query request.
func (p *Plugin) LastQuery() *Query {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastQuery
}

// Settings returns the plugin's settings store. Before the first query
// request it is empty unless LoadSettings was called.
func (p *Plugin) Settings() *Settings {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.settings == nil {
		p.settings = newSettings(nil, p.opts.SettingsNoUpdate)
	}
	return p.settings
}

// LoadSettings populates the settings store from the host-managed settings
// file instead of waiting for the first query request.
func (p *Plugin) LoadSettings(ctx context.Context) error {
	meta, err := p.Metadata()
	if err != nil {
		return err
	}
	data, err := LoadSettingsFile(ctx, PluginSettingsPath(meta.Name))
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settings = newSettings(data, p.opts.SettingsNoUpdate)
	return nil
}

// RegisterSearchHandler appends a handler to the selection order.
func (p *Plugin) RegisterSearchHandler(h *SearchHandler) {
	p.mu.Lock()
	p.searchHandlers = append(p.searchHandlers, h)
	p.mu.Unlock()
	p.log().Debug("registered search handler", "name", h.label())
}

// RegisterSearchHandlers appends several handlers in order.
func (p *Plugin) RegisterSearchHandlers(handlers ...*SearchHandler) {
	for _, h := range handlers {
		p.RegisterSearchHandler(h)
	}
}

// RegisterEvent registers a handler for a named host event. The host request
// method "foo" dispatches to the event registered as "on_foo". Built-in
// events (on_query, on_context_menu) can be overridden.
func (p *Plugin) RegisterEvent(name string, h EventHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events[name] = h
}

// SetErrorHandler replaces the generic event error fallback.
func (p *Plugin) SetErrorHandler(h ErrorHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errorHandler = h
}

// Run serves the plugin over the process's standard streams until the host
// closes the pipe. Any fatal error is logged before being returned.
func (p *Plugin) Run(ctx context.Context) error {
	p.configureLogging()

	if addr := p.metricsAddr(); addr != "" {
		server := observability.NewServer(addr, p.registry, p.log())
		stop, err := server.Start()
		if err != nil {
			p.log().Warn("observability server failed to start", "addr", addr, "err", err)
		} else {
			defer stop()
		}
	}

	err := p.Serve(ctx, os.Stdin, os.Stdout)
	if err != nil {
		errutil.LogError(p.log(), "a fatal error has occurred which crashed the plugin", err)
	}
	return err
}

// Serve runs the JSON-RPC session over the given streams. Exposed separately
// from Run for tests and custom runners.
func (p *Plugin) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	p.ensureRPC()
	return p.rpc.Serve(ctx, r, w)
}

// HandleRequest implements jsonrpc.Handler: it classifies one inbound
// request as a result click, a built-in pipeline, or a user event, and runs
// it inside the event wrapper.
func (p *Plugin) HandleRequest(ctx context.Context, method string, params []json.RawMessage) (any, bool) {
	if slug, isAction := strings.CutPrefix(method, ActionMethodPrefix); isAction {
		return p.processAction(ctx, slug)
	}

	if method == "initialize" {
		return p.runEvent(ctx, "on_initialize", p.initializeWrapper, params, nil), true
	}

	name := "on_" + method
	p.mu.Lock()
	handler, ok := p.events[name]
	p.mu.Unlock()
	if !ok {
		return nil, false
	}
	return p.runEvent(ctx, name, handler, params, nil), true
}

// processAction resolves a result click by slug. An unknown slug means there
// is nothing to run and the caller falls through to not-found handling.
func (p *Plugin) processAction(ctx context.Context, slug string) (any, bool) {
	p.mu.Lock()
	result, ok := p.results[slug]
	p.mu.Unlock()
	if !ok {
		return nil, false
	}

	fn := func(ctx context.Context, _ []json.RawMessage) (any, error) {
		if result.Callback == nil {
			return jsonrpc.NewExecuteResponse(), nil
		}
		v, err := result.Callback(ctx)
		if err != nil {
			return nil, err
		}
		return wrapActionValue(v), nil
	}

	var hook errorHook
	if result.OnError != nil {
		hook = func(ctx context.Context, err error) (any, error) {
			return result.OnError(ctx, err)
		}
	}
	return p.runEvent(ctx, ActionMethodPrefix+slug, fn, nil, hook), true
}

// wrapActionValue converts a click callback's return into a response: nil
// hides the window, a bool is the hide flag, response values pass through.
func wrapActionValue(v any) any {
	switch t := v.(type) {
	case nil:
		return jsonrpc.NewExecuteResponse()
	case bool:
		return &jsonrpc.ExecuteResponse{Hide: t}
	default:
		return v
	}
}

// onQuery is the query pipeline entry point. Params carry the raw query and
// the current settings snapshot.
func (p *Plugin) onQuery(ctx context.Context, params []json.RawMessage) (any, error) {
	if len(params) == 0 {
		return nil, oops.Code("INVALID_QUERY_PARAMS").Errorf("query request carried no parameters")
	}

	var raw rawQuery
	if err := json.Unmarshal(params[0], &raw); err != nil {
		return nil, oops.Code("INVALID_QUERY_PARAMS").Wrap(err)
	}
	q := &Query{data: raw, plugin: p}

	var snapshot map[string]any
	if len(params) > 1 {
		if err := json.Unmarshal(params[1], &snapshot); err != nil {
			p.log().Warn("discarding unreadable settings snapshot", "err", err)
		}
	}

	p.mu.Lock()
	p.lastQuery = q
	// Results from the previous query can no longer be clicked.
	p.results = make(map[string]*Result)
	if p.settings == nil {
		p.settings = newSettings(snapshot, p.opts.SettingsNoUpdate)
	} else {
		p.settings.update(snapshot)
	}
	p.mu.Unlock()

	return p.processSearchHandlers(ctx, q)
}

// processSearchHandlers tries registered handlers in order and runs the
// first whose condition matches. No match is an empty success, not an error.
func (p *Plugin) processSearchHandlers(ctx context.Context, q *Query) (any, error) {
	p.mu.Lock()
	handlers := make([]*SearchHandler, len(p.searchHandlers))
	copy(handlers, p.searchHandlers)
	p.mu.Unlock()

	for _, h := range handlers {
		if !h.matches(q) {
			continue
		}

		out, err := h.Callback(ctx, q)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			if h.OnError == nil {
				return nil, err
			}
			p.log().Debug("search handler failed, running its error callback", "handler", h.label(), "err", err)
			out, err = h.OnError(ctx, q, err)
			if err != nil {
				return nil, err
			}
		}

		results, failure, err := p.collectOutcome(out)
		if err != nil {
			return nil, err
		}
		if failure != nil {
			return failure, nil
		}
		return p.queryResponse(results), nil
	}

	return p.queryResponse(nil), nil
}

// onContextMenu replays a result's context-menu producer. Params carry the
// clicked result's context data, whose first element is its slug.
func (p *Plugin) onContextMenu(ctx context.Context, params []json.RawMessage) (any, error) {
	var data []string
	if len(params) > 0 {
		if err := json.Unmarshal(params[0], &data); err != nil {
			return nil, oops.Code("INVALID_CONTEXT_MENU_PARAMS").Wrap(err)
		}
	}
	if len(data) == 0 {
		return p.queryResponse(nil), nil
	}

	p.mu.Lock()
	result, ok := p.results[data[0]]
	p.mu.Unlock()
	if !ok || result.ContextMenu == nil {
		return p.queryResponse(nil), nil
	}

	out, err := result.ContextMenu(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		if result.OnContextMenuError == nil {
			return nil, err
		}
		out, err = result.OnContextMenuError(ctx, err)
		if err != nil {
			return nil, err
		}
	}

	results, failure, err := p.collectOutcome(out)
	if err != nil {
		return nil, err
	}
	if failure != nil {
		return failure, nil
	}
	return p.queryResponse(results), nil
}

// initializeWrapper stores the metadata the host sends and fires the user's
// initialization event. The host expects a non-hiding execute response.
func (p *Plugin) initializeWrapper(ctx context.Context, params []json.RawMessage) (any, error) {
	if len(params) == 0 {
		return nil, oops.Code("INVALID_INITIALIZE_PARAMS").Errorf("initialize request carried no parameters")
	}
	var arg struct {
		CurrentPluginMetadata flow.PluginMetadata `json:"currentPluginMetadata"`
	}
	if err := json.Unmarshal(params[0], &arg); err != nil {
		return nil, oops.Code("INVALID_INITIALIZE_PARAMS").Wrap(err)
	}

	p.mu.Lock()
	p.metadata = &arg.CurrentPluginMetadata
	handler, registered := p.events["on_initialization"]
	p.mu.Unlock()
	p.log().Debug("initialized by host", "plugin", arg.CurrentPluginMetadata.Name)

	if registered {
		// The initialization event outlives the initialize request.
		go p.runEvent(context.WithoutCancel(ctx), "on_initialization", handler, nil, nil)
	}

	return &jsonrpc.ExecuteResponse{Hide: false}, nil
}

// collectOutcome normalizes an Outcome into results, registering each one so
// later click and context-menu requests can find it. A Failure outcome comes
// back as the error-response passthrough.
func (p *Plugin) collectOutcome(out Outcome) ([]*Result, *jsonrpc.ErrorResponse, error) {
	items, failure := out.collect()
	if failure != nil {
		return nil, failure, nil
	}

	results := make([]*Result, 0, len(items))
	for _, item := range items {
		r, err := resultFromAny(item)
		if err != nil {
			return nil, nil, oops.Code("BAD_RESULT_ITEM").Wrap(err)
		}
		results = append(results, r)
	}
	p.registerResults(results)
	return results, nil, nil
}

// registerResults maps each result's slug for later correlation, overwriting
// stale entries.
func (p *Plugin) registerResults(results []*Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range results {
		p.results[r.Slug()] = r
	}
}

// queryResponse builds a success response around results, draining pending
// settings changes into it.
func (p *Plugin) queryResponse(results []*Result) *QueryResponse {
	var changes map[string]any
	p.mu.Lock()
	settings := p.settings
	p.mu.Unlock()
	if settings != nil {
		changes = settings.popChanges()
	}
	return &QueryResponse{Results: results, SettingsChange: changes}
}

// log returns the active logger.
func (p *Plugin) log() *slog.Logger {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.logger == nil {
		return slog.Default()
	}
	return p.logger
}

// configureLogging points the SDK logger at a log file next to the plugin,
// honoring the *.flogin.debug and *.flogin.prod override marker files.
// Stdout belongs to the wire, so nothing may ever log there.
func (p *Plugin) configureLogging() {
	if p.opts.Logger != nil {
		return
	}

	var w io.Writer
	if p.logSuppressed() {
		w = io.Discard
	} else {
		f, err := os.OpenFile("flogin.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			w = os.Stderr
		} else {
			w = f
		}
	}

	logger := logging.Setup("flogin", envinfo.RawVersion(), "text", w)
	p.mu.Lock()
	p.logger = logger
	p.mu.Unlock()
}

// logSuppressed reports whether a *.flogin.prod marker in the working
// directory disables file logging. A *.flogin.debug marker beats a prod
// marker and keeps logging on.
func (p *Plugin) logSuppressed() bool {
	if p.opts.DisableLogOverrideFiles {
		return false
	}
	entries, _ := os.ReadDir(".")
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".flogin.debug") {
			return false
		}
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".flogin.prod") {
			return true
		}
	}
	return false
}

func (p *Plugin) metricsAddr() string {
	if addr := os.Getenv("FLOGIN_METRICS_ADDR"); addr != "" {
		return addr
	}
	return p.opts.MetricsAddr
}
