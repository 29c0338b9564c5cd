// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flogin Contributors

package flogin

import (
	"context"
	"strings"
)

// SearchGroup is a hierarchical search handler: it claims queries starting
// with its prefix, strips the prefix, and delegates the next token to a
// registered subhandler. Groups nest; a subhandler may itself be a group.
//
// When the remaining text names no subhandler, the root callback runs. The
// default root lists the registered keys as results whose clicks rewrite the
// query to drill into that subhandler.
type SearchGroup struct {
	prefix string
	sep    string
	parent *SearchGroup

	order []string
	subs  map[string]groupEntry
	root  SearchCallback
}

// groupEntry is either a leaf callback or a nested group.
type groupEntry struct {
	callback SearchCallback
	group    *SearchGroup
}

// NewSearchGroup creates a group claiming queries that start with prefix.
// The separator defaults to a single space.
func NewSearchGroup(prefix string) *SearchGroup {
	return &SearchGroup{prefix: prefix, sep: " ", subs: make(map[string]groupEntry)}
}

// WithSeparator overrides the token separator.
func (g *SearchGroup) WithSeparator(sep string) *SearchGroup {
	g.sep = sep
	return g
}

// Handle registers a leaf subhandler under key.
func (g *SearchGroup) Handle(key string, callback SearchCallback) *SearchGroup {
	if _, exists := g.subs[key]; !exists {
		g.order = append(g.order, key)
	}
	g.subs[key] = groupEntry{callback: callback}
	return g
}

// Group nests sub under its own prefix as a subhandler.
func (g *SearchGroup) Group(sub *SearchGroup) *SearchGroup {
	sub.parent = g
	sub.sep = g.sep
	if _, exists := g.subs[sub.prefix]; !exists {
		g.order = append(g.order, sub.prefix)
	}
	g.subs[sub.prefix] = groupEntry{group: sub}
	return g
}

// Root overrides the default root callback, which runs when no subhandler
// token matches.
func (g *SearchGroup) Root(callback SearchCallback) *SearchGroup {
	g.root = callback
	return g
}

// Handler wraps the group for registration with the plugin.
func (g *SearchGroup) Handler() *SearchHandler {
	return &SearchHandler{
		Name:      "group:" + g.prefix,
		Condition: g,
		Callback:  g.callback,
	}
}

// Match implements Condition: the group claims the query when the text, once
// a separator is appended, starts with the group's prefix plus separator.
func (g *SearchGroup) Match(q *Query) bool {
	return strings.HasPrefix(q.Text()+g.sep, g.prefix+g.sep)
}

// Signature joins the prefixes from the outermost parent down to this group.
func (g *SearchGroup) Signature() string {
	var parts []string
	for node := g; node != nil; node = node.parent {
		parts = append(parts, node.prefix)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, g.sep)
}

// callback strips this group's prefix from the query's working text and
// dispatches the first remaining token.
func (g *SearchGroup) callback(ctx context.Context, q *Query) (Outcome, error) {
	parts := strings.Split(q.Text(), g.sep)
	stripped := strings.TrimPrefix(q.Text(), g.prefix)
	stripped = strings.TrimPrefix(stripped, g.sep)
	q.setText(stripped)

	var token string
	if len(parts) > 1 {
		token = parts[1]
	}

	entry, ok := g.subs[token]
	if !ok {
		if g.root != nil {
			return g.root(ctx, q)
		}
		return g.listSubhandlers(q), nil
	}
	if entry.group != nil {
		return entry.group.callback(ctx, q)
	}
	return entry.callback(ctx, q)
}

// listSubhandlers is the default root: one result per registered key, whose
// click rewrites the query to drill into that subhandler.
func (g *SearchGroup) listSubhandlers(q *Query) Outcome {
	plugin := q.plugin
	results := make([]*Result, 0, len(g.order))
	for _, key := range g.order {
		results = append(results, g.keyResult(plugin, key))
	}
	return Results(results...)
}

// keyResult builds the drill-in result for one subhandler key.
func (g *SearchGroup) keyResult(plugin *Plugin, key string) *Result {
	target := g.Signature() + g.sep + key + g.sep
	if last := plugin.LastQuery(); last != nil {
		target = last.Keyword() + " " + target
	}

	return &Result{
		Title:            key,
		AutoCompleteText: target,
		Callback: func(ctx context.Context) (any, error) {
			if err := plugin.API().ChangeQuery(ctx, target, false); err != nil {
				return nil, err
			}
			return false, nil
		},
	}
}
