// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flogin Contributors

package flogin

import (
	"regexp"
	"slices"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// Condition decides whether a search handler runs for a query. A condition
// may stash auxiliary match data in the query's ConditionData slot; the
// dispatcher resets the slot before each evaluation.
type Condition interface {
	Match(q *Query) bool
}

// ConditionFunc adapts a plain predicate to a Condition.
type ConditionFunc func(q *Query) bool

func (f ConditionFunc) Match(q *Query) bool { return f(q) }

// PlainTextCondition matches when the query text equals Text exactly.
type PlainTextCondition struct {
	Text string
}

func (c *PlainTextCondition) Match(q *Query) bool {
	return q.Text() == c.Text
}

// RegexCondition matches when Pattern matches the query text. On match it
// sets ConditionData to the submatch slice from FindStringSubmatch.
type RegexCondition struct {
	Pattern *regexp.Regexp
}

func (c *RegexCondition) Match(q *Query) bool {
	m := c.Pattern.FindStringSubmatch(q.Text())
	if m == nil {
		return false
	}
	q.ConditionData = m
	return true
}

// GlobCondition matches the query text against a glob pattern.
type GlobCondition struct {
	pattern glob.Glob
}

// NewGlobCondition compiles pattern into a condition.
func NewGlobCondition(pattern string) (*GlobCondition, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, oops.Code("BAD_GLOB_PATTERN").With("pattern", pattern).Wrap(err)
	}
	return &GlobCondition{pattern: g}, nil
}

func (c *GlobCondition) Match(q *Query) bool {
	return c.pattern.Match(q.Text())
}

// KeywordCondition gates a handler on the query's action keyword, with
// either an allow list or a deny list but never both.
type KeywordCondition struct {
	allowed    []string
	disallowed []string
}

// AllowKeywords builds a condition that matches only the given keywords.
func AllowKeywords(keywords ...string) *KeywordCondition {
	return &KeywordCondition{allowed: keywords}
}

// DisallowKeywords builds a condition that matches every keyword except the
// given ones.
func DisallowKeywords(keywords ...string) *KeywordCondition {
	return &KeywordCondition{disallowed: keywords}
}

func (c *KeywordCondition) Match(q *Query) bool {
	if c.allowed != nil {
		return slices.Contains(c.allowed, q.Keyword())
	}
	return !slices.Contains(c.disallowed, q.Keyword())
}

// AllCondition matches when every sub-condition matches. On success it sets
// ConditionData to a map from sub-condition index to the data that
// sub-condition produced; each sub-condition's data is captured and cleared
// before the next runs.
type AllCondition struct {
	Conditions []Condition
}

func (c *AllCondition) Match(q *Query) bool {
	data := make(map[int]any, len(c.Conditions))
	for i, cond := range c.Conditions {
		q.ConditionData = nil
		if !cond.Match(q) {
			q.ConditionData = nil
			return false
		}
		data[i] = q.ConditionData
	}
	q.ConditionData = data
	return true
}

// AnyCondition matches when any sub-condition matches, trying them in order
// and stopping at the first. ConditionData becomes a MatchedCondition naming
// the winner and its data.
type AnyCondition struct {
	Conditions []Condition
}

// MatchedCondition records which sub-condition of an AnyCondition matched.
type MatchedCondition struct {
	Index     int
	Condition Condition
	Data      any
}

func (c *AnyCondition) Match(q *Query) bool {
	for i, cond := range c.Conditions {
		q.ConditionData = nil
		if cond.Match(q) {
			q.ConditionData = MatchedCondition{Index: i, Condition: cond, Data: q.ConditionData}
			return true
		}
	}
	q.ConditionData = nil
	return false
}
