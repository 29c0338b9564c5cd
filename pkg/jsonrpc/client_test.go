// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flogin Contributors

package jsonrpc_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/cibere/flogin/pkg/jsonrpc"
)

// frameWriter collects every frame the client writes. Each Write call
// carries exactly one encoded frame.
type frameWriter struct {
	mu     sync.Mutex
	frames []json.RawMessage
	wrote  chan struct{}
}

func newFrameWriter() *frameWriter {
	return &frameWriter{wrote: make(chan struct{}, 64)}
}

func (w *frameWriter) Write(p []byte) (int, error) {
	frame := make([]byte, len(p))
	copy(frame, p)

	w.mu.Lock()
	w.frames = append(w.frames, frame)
	w.mu.Unlock()

	w.wrote <- struct{}{}
	return len(p), nil
}

// waitFrame blocks until the client has written another frame.
func (w *frameWriter) waitFrame(t *testing.T) json.RawMessage {
	t.Helper()
	select {
	case <-w.wrote:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a frame")
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames[len(w.frames)-1]
}

func (w *frameWriter) all() []json.RawMessage {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]json.RawMessage(nil), w.frames...)
}

// handlerFunc adapts a function to the Handler interface.
type handlerFunc func(ctx context.Context, method string, params []json.RawMessage) (any, bool)

func (f handlerFunc) HandleRequest(ctx context.Context, method string, params []json.RawMessage) (any, bool) {
	return f(ctx, method, params)
}

// startClient wires a client to a host-side pipe and a frame collector.
// The returned writer plays the host's sending half.
func startClient(t *testing.T, handler jsonrpc.Handler, opts jsonrpc.Options) (*jsonrpc.Client, io.WriteCloser, *frameWriter) {
	t.Helper()

	hostIn, hostOut := io.Pipe()
	out := newFrameWriter()
	client := jsonrpc.NewClient(handler, opts)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = client.Serve(context.Background(), hostIn, out)
	}()
	t.Cleanup(func() {
		_ = hostOut.Close()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("serve loop did not stop")
		}
	})

	// The pipe write only returns once Serve's read loop has consumed it,
	// so an empty line (skipped by the loop) guarantees the writer is
	// attached before any test issues an outbound request.
	_, err := io.WriteString(hostOut, "\r\n")
	require.NoError(t, err)

	return client, hostOut, out
}

func hostSend(t *testing.T, w io.Writer, frame string) {
	t.Helper()
	_, err := fmt.Fprintf(w, "%s\r\n", frame)
	require.NoError(t, err)
}

func TestClient_RequestCorrelation(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	client, host, out := startClient(t, nil, jsonrpc.Options{})

	type reply struct {
		result json.RawMessage
		err    error
	}

	// First outbound id is 2; the second request takes 3.
	first := make(chan reply, 1)
	go func() {
		res, err := client.Request(context.Background(), "First", nil)
		first <- reply{res, err}
	}()
	out.waitFrame(t)

	second := make(chan reply, 1)
	go func() {
		res, err := client.Request(context.Background(), "Second", nil)
		second <- reply{res, err}
	}()
	out.waitFrame(t)

	// Answer out of order. Each caller must still get its own result.
	hostSend(t, host, `{"jsonrpc":"2.0","id":3,"result":"for-second"}`)
	hostSend(t, host, `{"jsonrpc":"2.0","id":2,"result":"for-first"}`)

	r1 := <-first
	require.NoError(t, r1.err)
	assert.JSONEq(t, `"for-first"`, string(r1.result))

	r2 := <-second
	require.NoError(t, r2.err)
	assert.JSONEq(t, `"for-second"`, string(r2.result))
}

func TestClient_ErrorResponses(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	client, host, out := startClient(t, nil, jsonrpc.Options{})

	t.Run("server range code surfaces as FlowError", func(t *testing.T) {
		errCh := make(chan error, 1)
		go func() {
			_, err := client.Request(context.Background(), "ChangeQuery", []any{"x", false})
			errCh <- err
		}()
		out.waitFrame(t)
		hostSend(t, host, `{"jsonrpc":"2.0","id":2,"error":{"code":-32001,"message":"host rejected"}}`)

		var flowErr *jsonrpc.FlowError
		require.ErrorAs(t, <-errCh, &flowErr)
		assert.Equal(t, -32001, flowErr.Code)
		assert.Equal(t, "host rejected", flowErr.Message)
	})

	t.Run("protocol code surfaces as Error", func(t *testing.T) {
		errCh := make(chan error, 1)
		go func() {
			_, err := client.Request(context.Background(), "Bogus", nil)
			errCh <- err
		}()
		out.waitFrame(t)
		hostSend(t, host, `{"jsonrpc":"2.0","id":3,"error":{"code":-32601,"message":"Method not found"}}`)

		var rpcErr *jsonrpc.Error
		require.ErrorAs(t, <-errCh, &rpcErr)
		assert.Equal(t, jsonrpc.CodeMethodNotFound, rpcErr.Code)
	})

	t.Run("unknown positive code stays an Error with the raw code", func(t *testing.T) {
		errCh := make(chan error, 1)
		go func() {
			_, err := client.Request(context.Background(), "Bogus", nil)
			errCh <- err
		}()
		out.waitFrame(t)
		hostSend(t, host, `{"jsonrpc":"2.0","id":4,"error":{"code":1234,"message":"weird"}}`)

		var rpcErr *jsonrpc.Error
		require.ErrorAs(t, <-errCh, &rpcErr)
		assert.Equal(t, 1234, rpcErr.Code)
	})
}

func TestClient_RequestContextCancelled(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	client, _, out := startClient(t, nil, jsonrpc.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := client.Request(ctx, "Never", nil)
		errCh <- err
	}()
	out.waitFrame(t)
	cancel()

	err := <-errCh
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_UnknownResponseIDIsNonFatal(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	client, host, out := startClient(t, nil, jsonrpc.Options{})

	hostSend(t, host, `{"jsonrpc":"2.0","id":99,"result":"orphan"}`)

	// The client must keep serving after the anomaly.
	type reply struct {
		result json.RawMessage
		err    error
	}
	resCh := make(chan reply, 1)
	go func() {
		res, err := client.Request(context.Background(), "Ping", nil)
		resCh <- reply{res, err}
	}()
	out.waitFrame(t)
	hostSend(t, host, `{"jsonrpc":"2.0","id":2,"result":"pong"}`)

	r := <-resCh
	require.NoError(t, r.err)
	assert.JSONEq(t, `"pong"`, string(r.result))
}

func TestClient_DuplicateResponseKeepsFirstResult(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	client, host, out := startClient(t, nil, jsonrpc.Options{})

	type reply struct {
		result json.RawMessage
		err    error
	}
	resCh := make(chan reply, 1)
	go func() {
		res, err := client.Request(context.Background(), "Ping", nil)
		resCh <- reply{res, err}
	}()
	out.waitFrame(t)

	hostSend(t, host, `{"jsonrpc":"2.0","id":2,"result":"first"}`)
	r := <-resCh
	require.NoError(t, r.err)
	assert.JSONEq(t, `"first"`, string(r.result))

	// A second answer for the same id must not disturb the settled call,
	// and the loop must keep serving afterwards.
	hostSend(t, host, `{"jsonrpc":"2.0","id":2,"result":"second"}`)

	go func() {
		res, err := client.Request(context.Background(), "Ping", nil)
		resCh <- reply{res, err}
	}()
	out.waitFrame(t)
	hostSend(t, host, `{"jsonrpc":"2.0","id":3,"result":"third"}`)

	r2 := <-resCh
	require.NoError(t, r2.err)
	assert.JSONEq(t, `"third"`, string(r2.result))
	assert.JSONEq(t, `"first"`, string(r.result))
}

func TestClient_UnknownCancellationIsNonFatal(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	handler := handlerFunc(func(_ context.Context, _ string, _ []json.RawMessage) (any, bool) {
		return jsonrpc.NewExecuteResponse(), true
	})
	_, host, out := startClient(t, handler, jsonrpc.Options{})

	// No task with id 77 was ever registered.
	hostSend(t, host, `{"jsonrpc":"2.0","method":"$/cancelRequest","params":{"id":77}}`)

	hostSend(t, host, `{"jsonrpc":"2.0","id":4,"method":"ping","params":[]}`)

	var resp jsonrpc.Response
	require.NoError(t, json.Unmarshal(out.waitFrame(t), &resp))
	assert.Equal(t, int64(4), resp.ID)
	assert.JSONEq(t, `{"hide":true}`, string(resp.Result))
}

func TestClient_InboundRequestDispatch(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	handler := handlerFunc(func(_ context.Context, method string, _ []json.RawMessage) (any, bool) {
		switch method {
		case "known":
			return jsonrpc.NewExecuteResponse(), true
		case "freeform":
			return "not a response value", true
		default:
			return nil, false
		}
	})
	_, host, out := startClient(t, handler, jsonrpc.Options{})

	t.Run("known method gets its response", func(t *testing.T) {
		hostSend(t, host, `{"jsonrpc":"2.0","id":7,"method":"known","params":[]}`)

		var resp jsonrpc.Response
		require.NoError(t, json.Unmarshal(out.waitFrame(t), &resp))
		assert.Equal(t, int64(7), resp.ID)
		assert.JSONEq(t, `{"hide":true}`, string(resp.Result))
	})

	t.Run("unknown method gets method-not-found", func(t *testing.T) {
		hostSend(t, host, `{"jsonrpc":"2.0","id":8,"method":"nope","params":[]}`)

		var resp jsonrpc.Response
		require.NoError(t, json.Unmarshal(out.waitFrame(t), &resp))
		assert.Equal(t, int64(8), resp.ID)
		require.NotNil(t, resp.Error)
		assert.Equal(t, jsonrpc.CodeMethodNotFound, resp.Error.Code)
	})

	t.Run("non-response value becomes an internal error", func(t *testing.T) {
		hostSend(t, host, `{"jsonrpc":"2.0","id":9,"method":"freeform","params":[]}`)

		var resp jsonrpc.Response
		require.NoError(t, json.Unmarshal(out.waitFrame(t), &resp))
		assert.Equal(t, int64(9), resp.ID)
		require.NotNil(t, resp.Error)
		assert.Equal(t, jsonrpc.CodeInternalError, resp.Error.Code)
		assert.Equal(t, "Internal Error: Invalid Response Object", resp.Error.Message)
	})
}

func TestClient_CancellationSuppressesResponse(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	started := make(chan struct{}, 1)
	handler := handlerFunc(func(ctx context.Context, method string, _ []json.RawMessage) (any, bool) {
		if method == "block" {
			started <- struct{}{}
			<-ctx.Done()
			return jsonrpc.NewExecuteResponse(), true
		}
		return jsonrpc.NewExecuteResponse(), true
	})
	_, host, out := startClient(t, handler, jsonrpc.Options{})

	hostSend(t, host, `{"jsonrpc":"2.0","id":5,"method":"block","params":[]}`)
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("handler never started")
	}

	hostSend(t, host, `{"jsonrpc":"2.0","method":"$/cancelRequest","params":{"id":5}}`)

	// The fence request proves the cancelled request produced no frame.
	hostSend(t, host, `{"jsonrpc":"2.0","id":6,"method":"fence","params":[]}`)

	var resp jsonrpc.Response
	require.NoError(t, json.Unmarshal(out.waitFrame(t), &resp))
	assert.Equal(t, int64(6), resp.ID)

	for _, frame := range out.all() {
		var seen jsonrpc.Response
		require.NoError(t, json.Unmarshal(frame, &seen))
		assert.NotEqual(t, int64(5), seen.ID, "cancelled request must not be answered")
	}
}

func TestClient_IgnoreCancellations(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	handler := handlerFunc(func(ctx context.Context, _ string, _ []json.RawMessage) (any, bool) {
		started <- struct{}{}
		select {
		case <-ctx.Done():
		case <-release:
		}
		return jsonrpc.NewExecuteResponse(), true
	})
	_, host, out := startClient(t, handler, jsonrpc.Options{IgnoreCancellations: true})

	hostSend(t, host, `{"jsonrpc":"2.0","id":5,"method":"block","params":[]}`)
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("handler never started")
	}

	hostSend(t, host, `{"jsonrpc":"2.0","method":"$/cancelRequest","params":{"id":5}}`)
	close(release)

	var resp jsonrpc.Response
	require.NoError(t, json.Unmarshal(out.waitFrame(t), &resp))
	assert.Equal(t, int64(5), resp.ID)
	assert.JSONEq(t, `{"hide":true}`, string(resp.Result))
}

func TestClient_HostIDsAdvanceCounter(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	handler := handlerFunc(func(context.Context, string, []json.RawMessage) (any, bool) {
		return jsonrpc.NewExecuteResponse(), true
	})
	client, host, out := startClient(t, handler, jsonrpc.Options{})

	hostSend(t, host, `{"jsonrpc":"2.0","id":40,"method":"anything","params":[]}`)
	out.waitFrame(t)

	// The next outbound id must be past every id the host has used.
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = client.Request(context.Background(), "Next", nil)
	}()
	frame := out.waitFrame(t)

	var req jsonrpc.Request
	require.NoError(t, json.Unmarshal(frame, &req))
	assert.Equal(t, int64(41), req.ID)

	hostSend(t, host, `{"jsonrpc":"2.0","id":41,"result":null}`)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("request never resolved")
	}
}

func TestClient_RequestWithoutStream(t *testing.T) {
	client := jsonrpc.NewClient(nil, jsonrpc.Options{})
	_, err := client.Request(context.Background(), "Anything", nil)
	require.Error(t, err)
}
