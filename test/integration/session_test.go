// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flogin Contributors

//go:build integration

package integration

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/cibere/flogin/pkg/flogin"
	"github.com/cibere/flogin/pkg/jsonrpc"
)

// scriptedHost plays Flow Launcher's side of the pipe: it writes request
// frames to the plugin's stdin and collects every frame the plugin writes
// back.
type scriptedHost struct {
	toPlugin *io.PipeWriter
	frames   chan jsonrpc.Response
	done     chan struct{}
}

func startSession(p *flogin.Plugin) *scriptedHost {
	pluginIn, hostOut := io.Pipe()
	hostIn, pluginOut := io.Pipe()

	h := &scriptedHost{
		toPlugin: hostOut,
		frames:   make(chan jsonrpc.Response, 64),
		done:     make(chan struct{}),
	}

	go func() {
		defer close(h.done)
		defer pluginOut.Close()
		_ = p.Serve(context.Background(), pluginIn, pluginOut)
	}()

	go func() {
		scanner := bufio.NewScanner(hostIn)
		for scanner.Scan() {
			var resp jsonrpc.Response
			if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
				continue
			}
			h.frames <- resp
		}
	}()

	return h
}

func (h *scriptedHost) stop() {
	_ = h.toPlugin.Close()
	Eventually(h.done).WithTimeout(5 * time.Second).Should(BeClosed())
}

func (h *scriptedHost) send(frame string) {
	_, err := fmt.Fprintf(h.toPlugin, "%s\r\n", frame)
	Expect(err).NotTo(HaveOccurred())
}

// expectResponse waits for the response frame answering the given id.
// Frames for other ids fail the spec; ordering across concurrent requests
// is not assumed anywhere else.
func (h *scriptedHost) expectResponse(id int64) jsonrpc.Response {
	var resp jsonrpc.Response
	Eventually(h.frames).WithTimeout(5 * time.Second).Should(Receive(&resp))
	Expect(resp.ID).To(Equal(id))
	return resp
}

// queryPayload is the host-visible shape of a query response's result field.
type queryPayload struct {
	SettingsChange map[string]any `json:"settingsChange"`
	DebugMessage   string         `json:"debugMessage"`
	Result         []struct {
		Title         string `json:"title"`
		JSONRPCAction struct {
			Method string `json:"method"`
		} `json:"jsonRPCAction"`
		ContextData []string `json:"contextData"`
	} `json:"result"`
}

func decodeQueryPayload(resp jsonrpc.Response) queryPayload {
	var payload queryPayload
	Expect(json.Unmarshal(resp.Result, &payload)).To(Succeed())
	return payload
}

var _ = Describe("Plugin session", func() {
	var (
		plugin *flogin.Plugin
		host   *scriptedHost
	)

	BeforeEach(func() {
		plugin = flogin.New(flogin.Options{
			Logger: discardLogger(),
		})
		plugin.RegisterSearchHandler(flogin.NewSearchHandler(nil,
			func(_ context.Context, q *flogin.Query) (flogin.Outcome, error) {
				r := flogin.NewResult("echo: " + q.Text())
				r.Callback = func(context.Context) (any, error) { return nil, nil }
				r.ContextMenu = func(context.Context) (flogin.Outcome, error) {
					return flogin.One("menu for " + q.Text()), nil
				}
				return flogin.Results(r), nil
			}))

		host = startSession(plugin)
	})

	AfterEach(func() {
		host.stop()
	})

	initialize := func() {
		host.send(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":[{"currentPluginMetadata":{"id":"abc","name":"Echo"}}]}`)
		resp := host.expectResponse(1)
		Expect(string(resp.Result)).To(MatchJSON(`{"hide":false}`))
	}

	It("answers initialize without hiding the window", func() {
		initialize()

		meta, err := plugin.Metadata()
		Expect(err).NotTo(HaveOccurred())
		Expect(meta.Name).To(Equal("Echo"))
	})

	It("runs the query pipeline end to end", func() {
		initialize()

		host.send(`{"jsonrpc":"2.0","id":2,"method":"query","params":[{"search":"hi","rawQuery":"e hi","actionKeyword":"e"},{}]}`)
		payload := decodeQueryPayload(host.expectResponse(2))

		Expect(payload.Result).To(HaveLen(1))
		Expect(payload.Result[0].Title).To(Equal("echo: hi"))
		Expect(payload.Result[0].JSONRPCAction.Method).To(HavePrefix(flogin.ActionMethodPrefix))
		Expect(payload.Result[0].ContextData).To(HaveLen(1))
	})

	It("routes result clicks back through the wire slug", func() {
		initialize()

		host.send(`{"jsonrpc":"2.0","id":2,"method":"query","params":[{"search":"hi","rawQuery":"e hi","actionKeyword":"e"},{}]}`)
		payload := decodeQueryPayload(host.expectResponse(2))
		method := payload.Result[0].JSONRPCAction.Method

		host.send(fmt.Sprintf(`{"jsonrpc":"2.0","id":3,"method":%q,"params":[]}`, method))
		resp := host.expectResponse(3)
		Expect(string(resp.Result)).To(MatchJSON(`{"hide":true}`))
	})

	It("replays context menus from the wire context data", func() {
		initialize()

		host.send(`{"jsonrpc":"2.0","id":2,"method":"query","params":[{"search":"hi","rawQuery":"e hi","actionKeyword":"e"},{}]}`)
		payload := decodeQueryPayload(host.expectResponse(2))
		slug := payload.Result[0].ContextData[0]

		data, err := json.Marshal([][]string{{slug}})
		Expect(err).NotTo(HaveOccurred())
		host.send(fmt.Sprintf(`{"jsonrpc":"2.0","id":3,"method":"context_menu","params":%s}`, data))

		menu := decodeQueryPayload(host.expectResponse(3))
		Expect(menu.Result).To(HaveLen(1))
		Expect(menu.Result[0].Title).To(Equal("menu for hi"))
	})

	It("answers unknown methods with method-not-found", func() {
		host.send(`{"jsonrpc":"2.0","id":9,"method":"does_not_exist","params":[]}`)
		resp := host.expectResponse(9)
		Expect(resp.Error).NotTo(BeNil())
		Expect(resp.Error.Code).To(Equal(jsonrpc.CodeMethodNotFound))
	})
})

var _ = Describe("Cancellation", func() {
	It("suppresses the response of a cancelled query", func() {
		entered := make(chan struct{})
		plugin := flogin.New(flogin.Options{Logger: discardLogger()})
		plugin.RegisterSearchHandler(flogin.NewSearchHandler(nil,
			func(ctx context.Context, _ *flogin.Query) (flogin.Outcome, error) {
				close(entered)
				<-ctx.Done()
				return flogin.Outcome{}, ctx.Err()
			}))

		host := startSession(plugin)
		defer host.stop()

		host.send(`{"jsonrpc":"2.0","id":4,"method":"query","params":[{"search":"slow","rawQuery":"slow"},{}]}`)
		Eventually(entered).WithTimeout(5 * time.Second).Should(BeClosed())

		host.send(`{"jsonrpc":"2.0","method":"$/cancelRequest","params":{"id":4}}`)

		// The fence request proves the cancelled one produced no frame.
		host.send(`{"jsonrpc":"2.0","id":5,"method":"does_not_exist","params":[]}`)
		resp := host.expectResponse(5)
		Expect(resp.Error).NotTo(BeNil())
		Consistently(host.frames).WithTimeout(200 * time.Millisecond).ShouldNot(Receive())
	})
})
