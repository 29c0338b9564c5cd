// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flogin Contributors

package flogin

import "context"

// rawQuery is the wire shape of the first query parameter.
type rawQuery struct {
	Search        string `json:"search"`
	RawQuery      string `json:"rawQuery"`
	IsReQuery     bool   `json:"isReQuery"`
	ActionKeyword string `json:"actionKeyword"`
}

// Query is one search request from the host. A fresh Query is built per
// query request; the plugin keeps a reference to the latest one until the
// next arrives.
type Query struct {
	data   rawQuery
	plugin *Plugin

	// ConditionData carries auxiliary data produced by whichever condition
	// matched this query, e.g. regex submatches. It is reset before each
	// condition is evaluated so data never leaks across conditions.
	ConditionData any
}

// Text is the query with the keyword stripped.
func (q *Query) Text() string {
	return q.data.Search
}

// RawText is the raw, complete query including the keyword.
func (q *Query) RawText() string {
	return q.data.RawQuery
}

// Keyword is the action keyword that routed the query to this plugin, or "*"
// when the plugin is triggered without one.
func (q *Query) Keyword() string {
	if q.data.ActionKeyword == "" {
		return "*"
	}
	return q.data.ActionKeyword
}

// IsRequery reports whether the host intentionally resent the same query
// text, e.g. to force a refresh.
func (q *Query) IsRequery() bool {
	return q.data.IsReQuery
}

// setText rewrites the working text. Search groups use it to strip their
// prefix before delegating to subhandlers.
func (q *Query) setText(text string) {
	q.data.Search = text
}

// Update changes the query text in the launcher window.
func (q *Query) Update(ctx context.Context, text string, requery bool) error {
	return q.plugin.API().ChangeQuery(ctx, text, requery)
}

// UpdateResults pushes a new result list for this query. It only takes
// effect while the user has not typed anything new.
func (q *Query) UpdateResults(ctx context.Context, results []*Result) error {
	q.plugin.registerResults(results)
	return q.plugin.API().UpdateResults(ctx, q.RawText(), results)
}

// BackToQueryResults re-runs this query, replacing whatever is currently
// shown (e.g. a context menu) with its results.
func (q *Query) BackToQueryResults(ctx context.Context) error {
	return q.plugin.API().ChangeQuery(ctx, q.RawText(), true)
}
