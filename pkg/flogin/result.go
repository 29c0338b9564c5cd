// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flogin Contributors

package flogin

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/oklog/ulid/v2"
)

// ActionMethodPrefix marks inbound request methods that are result clicks.
// The suffix is the clicked result's slug.
const ActionMethodPrefix = "flogin.action."

// ActionFunc runs when the user clicks a result. The returned value controls
// whether the launcher window hides afterwards: nil hides it, a bool is the
// hide flag, and a *jsonrpc.ExecuteResponse passes through unchanged.
type ActionFunc func(ctx context.Context) (any, error)

// ActionErrorFunc turns a failed click into a response. It must return an
// ExecuteResponse or ErrorResponse value.
type ActionErrorFunc func(ctx context.Context, err error) (any, error)

// ContextMenuFunc produces the context-menu entries for a result.
type ContextMenuFunc func(ctx context.Context) (Outcome, error)

// ContextMenuErrorFunc turns a failed context-menu producer into an Outcome.
type ContextMenuErrorFunc func(ctx context.Context, err error) (Outcome, error)

// Result is one display entry in the launcher. Only Title is ordinarily
// needed; everything else refines presentation or behavior.
//
// Each Result carries an opaque slug, minted once and cached, which the wire
// form embeds so later click and context-menu requests can be correlated back
// to this object.
type Result struct {
	Title              string
	SubTitle           string
	Icon               string
	TitleHighlightData []int
	TitleTooltip       string
	SubTitleTooltip    string
	CopyText           string
	Score              int
	Preview            *ResultPreview
	AutoCompleteText   string
	Progress           *ProgressBar
	RoundedIcon        bool
	Glyph              *Glyph

	// Callback runs when the result is clicked.
	Callback ActionFunc
	// OnError handles a Callback failure. Nil falls back to the plugin's
	// generic error handler.
	OnError ActionErrorFunc
	// ContextMenu produces the result's context-menu entries.
	ContextMenu ContextMenuFunc
	// OnContextMenuError handles a ContextMenu failure.
	OnContextMenuError ContextMenuErrorFunc

	slugOnce sync.Once
	slug     string
}

// ResultPreview configures the host's preview panel for a result.
type ResultPreview struct {
	PreviewImagePath string `json:"previewImagePath,omitempty"`
	IsMedia          bool   `json:"isMedia"`
	Description      string `json:"description,omitempty"`
}

// ProgressBar renders a progress bar inside a result entry.
type ProgressBar struct {
	Progress int
	Color    string
}

// Glyph renders a font glyph in place of an icon.
type Glyph struct {
	Glyph      string `json:"glyph"`
	FontFamily string `json:"fontFamily"`
}

// NewResult creates a result with just a title.
func NewResult(title string) *Result {
	return &Result{Title: title}
}

// Slug returns the result's unique identifier, minting it on first use.
func (r *Result) Slug() string {
	r.slugOnce.Do(func() {
		if r.slug == "" {
			r.slug = ulid.Make().String()
		}
	})
	return r.slug
}

// wireResult is the host-facing field mapping. The progress bar flattens into
// the result object itself.
type wireResult struct {
	Title              string          `json:"title,omitempty"`
	SubTitle           string          `json:"subTitle,omitempty"`
	IcoPath            string          `json:"icoPath,omitempty"`
	TitleHighlightData []int           `json:"titleHighlightData,omitempty"`
	TitleTooltip       string          `json:"titleTooltip,omitempty"`
	SubtitleTooltip    string          `json:"subtitleTooltip,omitempty"`
	CopyText           string          `json:"copyText,omitempty"`
	Score              int             `json:"score,omitempty"`
	Preview            *ResultPreview  `json:"preview,omitempty"`
	AutoCompleteText   string          `json:"autoCompleteText,omitempty"`
	ProgressBar        *int            `json:"progressBar,omitempty"`
	ProgressBarColor   string          `json:"progressBarColor,omitempty"`
	RoundedIcon        bool            `json:"roundedIcon,omitempty"`
	Glyph              *Glyph          `json:"glyph,omitempty"`
	JSONRPCAction      *wireAction     `json:"jsonRPCAction"`
	ContextData        []string        `json:"contextData"`
}

type wireAction struct {
	Method string `json:"method"`
}

// MarshalJSON emits the wire result shape, always embedding the click action
// method and context data slug.
func (r *Result) MarshalJSON() ([]byte, error) {
	w := wireResult{
		Title:              r.Title,
		SubTitle:           r.SubTitle,
		IcoPath:            r.Icon,
		TitleHighlightData: r.TitleHighlightData,
		TitleTooltip:       r.TitleTooltip,
		SubtitleTooltip:    r.SubTitleTooltip,
		CopyText:           r.CopyText,
		Score:              r.Score,
		Preview:            r.Preview,
		AutoCompleteText:   r.AutoCompleteText,
		RoundedIcon:        r.RoundedIcon,
		Glyph:              r.Glyph,
		JSONRPCAction:      &wireAction{Method: ActionMethodPrefix + r.Slug()},
		ContextData:        []string{r.Slug()},
	}
	if r.Progress != nil {
		w.ProgressBar = &r.Progress.Progress
		w.ProgressBarColor = r.Progress.Color
	}
	return json.Marshal(w)
}

// ResultFromWire parses a wire-shaped result object. Callbacks are not
// recoverable from the wire form and stay nil.
func ResultFromWire(data []byte) (*Result, error) {
	var w wireResult
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	r := &Result{
		Title:              w.Title,
		SubTitle:           w.SubTitle,
		Icon:               w.IcoPath,
		TitleHighlightData: w.TitleHighlightData,
		TitleTooltip:       w.TitleTooltip,
		SubTitleTooltip:    w.SubtitleTooltip,
		CopyText:           w.CopyText,
		Score:              w.Score,
		Preview:            w.Preview,
		AutoCompleteText:   w.AutoCompleteText,
		RoundedIcon:        w.RoundedIcon,
		Glyph:              w.Glyph,
	}
	if w.ProgressBar != nil {
		r.Progress = &ProgressBar{Progress: *w.ProgressBar, Color: w.ProgressBarColor}
	}
	return r, nil
}

// resultFromAny coerces one normalization item into a Result: Results pass
// through, raw wire maps are parsed, strings become titles, and anything
// else is stringified into a title.
func resultFromAny(item any) (*Result, error) {
	switch v := item.(type) {
	case *Result:
		return v, nil
	case string:
		return NewResult(v), nil
	case json.RawMessage:
		return ResultFromWire(v)
	case map[string]any:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return ResultFromWire(data)
	case fmt.Stringer:
		return NewResult(v.String()), nil
	default:
		return NewResult(fmt.Sprint(v)), nil
	}
}
