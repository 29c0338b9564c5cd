// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flogin Contributors

// Package flow wraps Flow Launcher's host API: the fixed set of outbound
// JSON-RPC methods a plugin may call back into.
package flow

import (
	"context"
	"encoding/json"

	"github.com/samber/oops"

	"github.com/cibere/flogin/pkg/jsonrpc"
)

// Client issues host API calls over the plugin's JSON-RPC pipe.
//
// Do not construct one directly; use the plugin's API accessor.
type Client struct {
	rpc *jsonrpc.Client
}

// NewClient wraps rpc with the typed host API surface.
func NewClient(rpc *jsonrpc.Client) *Client {
	return &Client{rpc: rpc}
}

// call issues one host API request and returns its raw result payload.
func (c *Client) call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	res, err := c.rpc.Request(ctx, method, params)
	if err != nil {
		return nil, oops.Code("FLOW_API_CALL_FAILED").With("method", method).Wrap(err)
	}
	return res, nil
}

// FuzzySearch asks the host how similar two strings are, using the same
// matcher it ranks results with.
func (c *Client) FuzzySearch(ctx context.Context, text, compareTo string) (*FuzzySearchResult, error) {
	res, err := c.call(ctx, "FuzzySearch", text, compareTo)
	if err != nil {
		return nil, err
	}
	var out FuzzySearchResult
	if err := json.Unmarshal(res, &out); err != nil {
		return nil, oops.Code("FLOW_API_BAD_RESULT").With("method", "FuzzySearch").Wrap(err)
	}
	return &out, nil
}

// ChangeQuery changes the query text in the launcher window. When requery is
// true the host re-sends a query request even if the text is unchanged.
func (c *Client) ChangeQuery(ctx context.Context, newQuery string, requery bool) error {
	_, err := c.call(ctx, "ChangeQuery", newQuery, requery)
	return err
}

// ShowErrorMessage triggers an error notification.
func (c *Client) ShowErrorMessage(ctx context.Context, title, text string) error {
	_, err := c.call(ctx, "ShowMsgError", title, text)
	return err
}

// ShowNotification shows a notification window in the corner of the user's
// screen. icon may be empty.
func (c *Client) ShowNotification(ctx context.Context, title, content, icon string, useMainWindowAsOwner bool) error {
	_, err := c.call(ctx, "ShowMsg", title, content, icon, useMainWindowAsOwner)
	return err
}

// OpenSettingsMenu tells the host to open its settings dialog.
func (c *Client) OpenSettingsMenu(ctx context.Context) error {
	_, err := c.call(ctx, "OpenSettingDialog")
	return err
}

// OpenURL opens a url in the user's default browser.
func (c *Client) OpenURL(ctx context.Context, url string, inPrivate bool) error {
	_, err := c.call(ctx, "OpenUrl", url, inPrivate)
	return err
}

// RunShellCommand runs a shell command through the host.
func (c *Client) RunShellCommand(ctx context.Context, cmd, filename string) error {
	_, err := c.call(ctx, "ShellRun", cmd, filename)
	return err
}

// RestartFlow restarts the host application.
func (c *Client) RestartFlow(ctx context.Context) error {
	_, err := c.call(ctx, "RestartApp")
	return err
}

// SaveAllAppSettings asks the host to persist all application settings.
func (c *Client) SaveAllAppSettings(ctx context.Context) error {
	_, err := c.call(ctx, "SaveAppAllSettings")
	return err
}

// SavePluginSettings asks the host to persist this plugin's settings.
func (c *Client) SavePluginSettings(ctx context.Context) (json.RawMessage, error) {
	return c.call(ctx, "SavePluginSettings")
}

// ReloadAllPluginData triggers a reload of every plugin's data.
func (c *Client) ReloadAllPluginData(ctx context.Context) error {
	_, err := c.call(ctx, "ReloadAllPluginDataAsync")
	return err
}

// ShowMainWindow shows the launcher window.
func (c *Client) ShowMainWindow(ctx context.Context) error {
	_, err := c.call(ctx, "ShowMainWindow")
	return err
}

// HideMainWindow hides the launcher window.
func (c *Client) HideMainWindow(ctx context.Context) error {
	_, err := c.call(ctx, "HideMainWindow")
	return err
}

// IsMainWindowVisible reports whether the launcher window is currently shown.
func (c *Client) IsMainWindowVisible(ctx context.Context) (bool, error) {
	res, err := c.call(ctx, "IsMainWindowVisible")
	if err != nil {
		return false, err
	}
	var visible bool
	if err := json.Unmarshal(res, &visible); err != nil {
		return false, oops.Code("FLOW_API_BAD_RESULT").With("method", "IsMainWindowVisible").Wrap(err)
	}
	return visible, nil
}

// CheckForUpdates asks the host to check for a new version of itself.
func (c *Client) CheckForUpdates(ctx context.Context) error {
	_, err := c.call(ctx, "CheckForNewUpdate")
	return err
}

// GetAllPlugins enumerates the metadata of every installed plugin.
func (c *Client) GetAllPlugins(ctx context.Context) ([]PluginMetadata, error) {
	res, err := c.call(ctx, "GetAllPlugins")
	if err != nil {
		return nil, err
	}
	var entries []struct {
		Metadata PluginMetadata `json:"metadata"`
	}
	if err := json.Unmarshal(res, &entries); err != nil {
		return nil, oops.Code("FLOW_API_BAD_RESULT").With("method", "GetAllPlugins").Wrap(err)
	}
	out := make([]PluginMetadata, len(entries))
	for i, e := range entries {
		out[i] = e.Metadata
	}
	return out, nil
}

// AddKeyword registers an extra action keyword for a plugin.
func (c *Client) AddKeyword(ctx context.Context, pluginID, keyword string) error {
	_, err := c.call(ctx, "AddActionKeyword", pluginID, keyword)
	return err
}

// RemoveKeyword removes an action keyword from a plugin.
func (c *Client) RemoveKeyword(ctx context.Context, pluginID, keyword string) error {
	_, err := c.call(ctx, "RemoveActionKeyword", pluginID, keyword)
	return err
}

// OpenDirectory opens a directory in the file manager, optionally
// pre-selecting a file. file may be empty.
func (c *Client) OpenDirectory(ctx context.Context, directory, file string) error {
	var f any
	if file != "" {
		f = file
	}
	_, err := c.call(ctx, "OpenDirectory", directory, f)
	return err
}

// UpdateResults pushes a new result list for rawQuery. The host only applies
// it while rawQuery still matches what the user has typed. results must
// marshal to the wire result list shape.
func (c *Client) UpdateResults(ctx context.Context, rawQuery string, results any) error {
	payload := map[string]any{
		"settingsChange": map[string]any{},
		"debugMessage":   "",
		"result":         results,
	}
	_, err := c.call(ctx, "UpdateResults", rawQuery, payload)
	return err
}
