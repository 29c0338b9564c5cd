// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flogin Contributors

package jsonrpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/samber/oops"
)

// Handler resolves inbound requests to response payloads. The plugin
// dispatcher implements it.
type Handler interface {
	// HandleRequest runs the dispatch target for method, blocking until it
	// completes. ok is false when no target exists for the method. The
	// returned value must implement ResponseValue to reach the wire.
	HandleRequest(ctx context.Context, method string, params []json.RawMessage) (value any, ok bool)
}

// Options configures a Client.
type Options struct {
	// IgnoreCancellations makes $/cancelRequest notifications a logged no-op.
	IgnoreCancellations bool
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Metrics is optional transport instrumentation.
	Metrics *Metrics
}

// pendingCall carries the resolution of one outbound request back to its
// caller. The channel is buffered so resolution never blocks the read loop.
type pendingCall struct {
	result json.RawMessage
	err    error
}

// Client owns the duplex stream to the host. It correlates outbound requests
// to responses by id, dispatches inbound requests to the Handler, and tracks
// in-flight inbound work for cooperative cancellation.
//
// Serve's read loop is the only consumer of the inbound stream; every decoded
// line is processed on its own goroutine so a slow handler never blocks
// subsequent frames.
type Client struct {
	handler Handler
	log     *slog.Logger
	metrics *Metrics

	ignoreCancellations bool

	writeMu sync.Mutex
	w       io.Writer

	mu      sync.Mutex
	lastID  int64
	pending map[int64]chan pendingCall
	tasks   map[int64]context.CancelFunc
}

// NewClient creates a client that dispatches inbound requests to handler.
func NewClient(handler Handler, opts Options) *Client {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		handler:             handler,
		log:                 log,
		metrics:             opts.Metrics,
		ignoreCancellations: opts.IgnoreCancellations,
		// The counter is bumped before use, so the first outbound id is 2.
		// Id 1 belongs to the host's initialize request.
		lastID:  1,
		pending: make(map[int64]chan pendingCall),
		tasks:   make(map[int64]context.CancelFunc),
	}
}

// Request sends method with positional params to the host and blocks until
// the matching response arrives or ctx is done. Error responses surface as
// *Error or *FlowError depending on their code.
func (c *Client) Request(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}

	c.mu.Lock()
	c.lastID++
	id := c.lastID
	ch := make(chan pendingCall, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	req := &Request{JSONRPC: Version, ID: id, Method: method, Params: params}
	if err := c.write(req); err != nil {
		return nil, err
	}

	select {
	case call := <-ch:
		return call.result, call.err
	case <-ctx.Done():
		return nil, oops.Code("REQUEST_ABANDONED").With("method", method).With("id", id).Wrap(ctx.Err())
	}
}

// Serve runs the read loop over r, writing frames to w. It returns when r
// reaches EOF or fails. Handlers dispatched before EOF may still be running
// when Serve returns.
func (c *Client) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	c.writeMu.Lock()
	c.w = w
	c.writeMu.Unlock()

	const initialBufferSize = 64 * 1024
	const maxFrameSize = 10 * 1024 * 1024 // result previews can carry base64 payloads

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, initialBufferSize), maxFrameSize)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		// The scanner reuses its buffer; the goroutine needs its own copy.
		frame := make([]byte, len(line))
		copy(frame, line)

		c.count(c.metricsFramesRead)
		go c.processFrame(ctx, frame)
	}

	if err := scanner.Err(); err != nil {
		return oops.Code("STREAM_READ_FAILED").Wrap(err)
	}
	return nil
}

// processFrame decodes and routes one inbound line. It runs on its own
// goroutine; a panicking handler must never take down the read loop.
func (c *Client) processFrame(ctx context.Context, line []byte) {
	defer func() {
		if v := recover(); v != nil {
			c.countAnomaly("panic")
			c.log.Error("panic while processing frame", "panic", fmt.Sprint(v))
		}
	}()

	msg, err := Decode(line)
	if err != nil {
		c.countAnomaly("decode")
		c.log.Error("discarding undecodable frame", "err", err)
		return
	}

	switch m := msg.(type) {
	case *InboundNotification:
		c.handleNotification(m)
	case *InboundRequest:
		c.handleRequest(ctx, m)
	case *InboundResult:
		c.resolve(m.ID, pendingCall{result: m.Result})
	case *InboundError:
		c.resolve(m.ID, pendingCall{err: errorFromObject(m.Err)})
	}
}

// resolve completes the pending call for id. An unknown id or a second
// resolution of the same id is a logged anomaly, never fatal.
func (c *Client) resolve(id int64, call pendingCall) {
	c.mu.Lock()
	ch, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()

	if !ok {
		c.countAnomaly("unknown_response_id")
		c.log.Error("response received for unknown request", "id", id)
		return
	}

	select {
	case ch <- call:
	default:
		// Already resolved; the first value stands.
		c.countAnomaly("double_resolve")
		c.log.Warn("dropping second resolution of request", "id", id)
	}
}

// handleNotification routes an inbound notification. Only the cancellation
// method is recognized; notifications never get a reply either way.
func (c *Client) handleNotification(n *InboundNotification) {
	if n.Method == CancelRequestMethod {
		var params struct {
			ID int64 `json:"id"`
		}
		if err := json.Unmarshal(n.Params, &params); err != nil {
			c.countAnomaly("bad_cancellation")
			c.log.Error("cancellation notification with unusable params", "err", err)
			return
		}
		c.handleCancellation(params.ID)
		return
	}

	c.countAnomaly("unknown_notification")
	c.log.Error("unknown notification method received",
		"method", n.Method, "err", NewMethodNotFound(fmt.Sprintf("notification method %q not found", n.Method)))
}

// handleCancellation requests cooperative cancellation of the in-flight task
// registered under id.
func (c *Client) handleCancellation(id int64) {
	if c.ignoreCancellations {
		c.log.Debug("ignoring cancellation request", "id", id)
		return
	}

	c.mu.Lock()
	cancel, ok := c.tasks[id]
	if ok {
		delete(c.tasks, id)
	}
	c.mu.Unlock()

	if !ok {
		c.countAnomaly("unknown_task_id")
		c.log.Error("cancellation requested for unknown task", "id", id)
		return
	}
	cancel()
	c.log.Debug("cancelled task", "id", id)
}

// handleRequest dispatches one inbound request and writes back exactly one
// response, unless the request is cancelled mid-flight, in which case the
// host gets no reply by design.
func (c *Client) handleRequest(ctx context.Context, req *InboundRequest) {
	c.mu.Lock()
	// Keep outbound ids ahead of every id the host has handed out.
	if req.ID > c.lastID {
		c.lastID = req.ID
	}
	c.mu.Unlock()

	if c.handler == nil {
		c.writeMethodNotFound(req)
		return
	}

	rctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.tasks[req.ID] = cancel
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.tasks, req.ID)
		c.mu.Unlock()
		cancel()
	}()

	value, ok := c.handler.HandleRequest(rctx, req.Method, req.Params)
	if rctx.Err() != nil {
		c.log.Debug("request cancelled, suppressing response", "id", req.ID, "method", req.Method)
		return
	}
	if !ok {
		c.writeMethodNotFound(req)
		return
	}

	rv, isResponse := value.(ResponseValue)
	if !isResponse {
		// Free-form payloads never reach the wire.
		err := NewInternalError("Internal Error: Invalid Response Object", fmt.Sprintf("%v", value))
		c.countAnomaly("invalid_response_object")
		c.log.Error("dispatch target produced a non-response value",
			"method", req.Method, "value", fmt.Sprintf("%T", value))
		c.writeResponse(req.ID, err.Response())
		return
	}
	c.writeResponse(req.ID, rv)
}

func (c *Client) writeMethodNotFound(req *InboundRequest) {
	err := NewMethodNotFound(fmt.Sprintf("request method %q was not found", req.Method))
	c.countAnomaly("unknown_request_method")
	c.log.Error("unknown request method received", "method", req.Method, "err", err)
	c.writeResponse(req.ID, err.Response())
}

// writeResponse encodes and writes the response for an inbound request id.
func (c *Client) writeResponse(id int64, value ResponseValue) {
	resp, err := value.ResponseMessage(id)
	if err != nil {
		c.log.Error("failed to build response message", "id", id, "err", err)
		resp, _ = NewInternalError("Internal error", err.Error()).Response().ResponseMessage(id)
	}
	if resp == nil {
		return
	}
	if err := c.write(resp); err != nil {
		c.log.Error("failed to write response", "id", id, "err", err)
	}
}

// write encodes one frame and writes it whole under the write lock.
func (c *Client) write(msg any) error {
	data, err := Encode(msg)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.w == nil {
		return oops.Code("NOT_SERVING").Errorf("client is not attached to a stream")
	}
	if _, err := c.w.Write(data); err != nil {
		return oops.Code("STREAM_WRITE_FAILED").Wrap(err)
	}
	c.count(c.metricsFramesWritten)
	return nil
}

// InFlightTasks reports how many inbound requests are currently registered
// for cancellation. Exposed for observability and tests.
func (c *Client) InFlightTasks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tasks)
}

func (c *Client) metricsFramesRead() {
	c.metrics.FramesTotal.WithLabelValues("read").Inc()
}

func (c *Client) metricsFramesWritten() {
	c.metrics.FramesTotal.WithLabelValues("written").Inc()
}

func (c *Client) count(inc func()) {
	if c.metrics != nil {
		inc()
	}
}

func (c *Client) countAnomaly(kind string) {
	if c.metrics != nil {
		c.metrics.AnomaliesTotal.WithLabelValues(kind).Inc()
	}
}
