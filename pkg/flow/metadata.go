// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flogin Contributors

package flow

// PluginMetadata is the host's record of one installed plugin, delivered in
// the initialize request and by GetAllPlugins.
type PluginMetadata struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Author          string   `json:"author"`
	Version         string   `json:"version"`
	Language        string   `json:"language"`
	Description     string   `json:"description"`
	Website         string   `json:"website"`
	Disabled        bool     `json:"disabled"`
	Directory       string   `json:"pluginDirectory"`
	Keywords        []string `json:"actionKeywords"`
	MainKeyword     string   `json:"actionKeyword"`
	ExecuteFilePath string   `json:"executeFilePath"`
	IcoPath         string   `json:"icoPath"`
}

// FuzzySearchResult is the host matcher's verdict on two strings.
type FuzzySearchResult struct {
	Score           int   `json:"score"`
	MatchData       []int `json:"matchData"`
	SearchPrecision int   `json:"searchPrecision"`
}

// Matched reports whether the score clears the host's precision threshold.
func (r *FuzzySearchResult) Matched() bool {
	return r.Score >= r.SearchPrecision
}
