// Package search defines the request and response shapes exchanged with the
// managed search backend.
package search

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// DefaultCount is the initial value of every numeric ranking parameter.
const DefaultCount = 1

// MinCount is the smallest accepted value of every numeric ranking parameter.
const MinCount = 1

// ErrEmptyQuery is returned when a request is built without query text.
var ErrEmptyQuery = errors.New("Please enter a search query")

// SearchRequest carries the query and ranking parameters of one search.
type SearchRequest struct {
	Query                     string `json:"query" yaml:"query"`
	PageSize                  int    `json:"pageSize" yaml:"pageSize"`
	SummaryResultCount        int    `json:"summaryResultCount" yaml:"summaryResultCount"`
	MaxSnippetCount           int    `json:"maxSnippetCount" yaml:"maxSnippetCount"`
	MaxExtractiveAnswerCount  int    `json:"maxExtractiveAnswerCount" yaml:"maxExtractiveAnswerCount"`
	MaxExtractiveSegmentCount int    `json:"maxExtractiveSegmentCount" yaml:"maxExtractiveSegmentCount"`
}

// NewSearchRequest returns a request for query with every count at its default.
func NewSearchRequest(query string) SearchRequest {
	return SearchRequest{
		Query:                     query,
		PageSize:                  DefaultCount,
		SummaryResultCount:        DefaultCount,
		MaxSnippetCount:           DefaultCount,
		MaxExtractiveAnswerCount:  DefaultCount,
		MaxExtractiveSegmentCount: DefaultCount,
	}
}

// Validate reports whether the request may be sent.
func (r SearchRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return ErrEmptyQuery
	}

	counts := []struct {
		name  string
		value int
	}{
		{"pageSize", r.PageSize},
		{"summaryResultCount", r.SummaryResultCount},
		{"maxSnippetCount", r.MaxSnippetCount},
		{"maxExtractiveAnswerCount", r.MaxExtractiveAnswerCount},
		{"maxExtractiveSegmentCount", r.MaxExtractiveSegmentCount},
	}
	for _, c := range counts {
		if c.value < MinCount {
			return fmt.Errorf("%s must be at least %d, got %d", c.name, MinCount, c.value)
		}
	}
	return nil
}

// SearchResponse is the backend payload. Every field is optional.
type SearchResponse struct {
	Summary *Summary         `json:"summary,omitempty" yaml:"summary,omitempty"`
	Results []ResultDocument `json:"results,omitempty" yaml:"results,omitempty"`
}

// Summary is the backend-generated synthesis of the results.
type Summary struct {
	SummaryText         string              `json:"summaryText,omitempty" yaml:"summaryText,omitempty"`
	SummaryWithMetadata SummaryWithMetadata `json:"summaryWithMetadata,omitempty" yaml:"summaryWithMetadata,omitempty"`
}

// SummaryWithMetadata holds the citation references of a summary.
type SummaryWithMetadata struct {
	References []Reference `json:"references,omitempty" yaml:"references,omitempty"`
}

// Reference is a citation attached to the summary. Top-level references carry
// their text in ChunkContents.
type Reference struct {
	Title          string      `json:"title,omitempty" yaml:"title,omitempty"`
	Document       string      `json:"document,omitempty" yaml:"document,omitempty"`
	URI            string      `json:"uri,omitempty" yaml:"uri,omitempty"`
	PageIdentifier Locator     `json:"pageIdentifier,omitempty" yaml:"pageIdentifier,omitempty"`
	Content        string      `json:"content,omitempty" yaml:"content,omitempty"`
	ChunkContents  []Reference `json:"chunkContents,omitempty" yaml:"chunkContents,omitempty"`
}

// ResultDocument is one entry of SearchResponse.Results.
type ResultDocument struct {
	ID       string   `json:"id,omitempty" yaml:"id,omitempty"`
	Document Document `json:"document,omitempty" yaml:"document,omitempty"`
}

// Document is the backend document attached to a result.
type Document struct {
	ID                string            `json:"id,omitempty" yaml:"id,omitempty"`
	Name              string            `json:"name,omitempty" yaml:"name,omitempty"`
	StructData        StructData        `json:"structData,omitempty" yaml:"structData,omitempty"`
	DerivedStructData DerivedStructData `json:"derivedStructData,omitempty" yaml:"derivedStructData,omitempty"`
}

// StructData is the user-supplied document metadata.
type StructData struct {
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
}

// DerivedStructData holds the spans the backend extracted for the query.
type DerivedStructData struct {
	Snippets           []Snippet           `json:"snippets,omitempty" yaml:"snippets,omitempty"`
	ExtractiveAnswers  []ExtractiveAnswer  `json:"extractive_answers,omitempty" yaml:"extractive_answers,omitempty"`
	ExtractiveSegments []ExtractiveSegment `json:"extractive_segments,omitempty" yaml:"extractive_segments,omitempty"`
}

// Snippet is a highlighted excerpt. Its text is backend markup.
type Snippet struct {
	Snippet       Markup `json:"snippet" yaml:"snippet"`
	SnippetStatus string `json:"snippet_status,omitempty" yaml:"snippet_status,omitempty"`
}

// ExtractiveAnswer is a verbatim answer span with its page.
type ExtractiveAnswer struct {
	PageNumber Locator `json:"pageNumber,omitempty" yaml:"pageNumber,omitempty"`
	Content    string  `json:"content" yaml:"content"`
}

// ExtractiveSegment is a verbatim segment with its page and relevance score.
type ExtractiveSegment struct {
	PageNumber     Locator `json:"pageNumber,omitempty" yaml:"pageNumber,omitempty"`
	Content        string  `json:"content" yaml:"content"`
	RelevanceScore float64 `json:"relevanceScore" yaml:"relevanceScore"`
}

// Locator is a page reference. The backend serializes it either as a JSON
// number or as a string depending on the document source.
type Locator string

// UnmarshalJSON accepts a string, a number or null.
func (l *Locator) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*l = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*l = Locator(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("page locator must be a string or number: %s", string(data))
	}
	*l = Locator(n.String())
	return nil
}

// String returns the locator text.
func (l Locator) String() string {
	return string(l)
}
