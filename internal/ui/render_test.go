package ui

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cymbal-labs/searchdemo/internal/search"
	"github.com/cymbal-labs/searchdemo/internal/state"
)

const refundPolicyResponse = `{
	"summary": {
		"summaryText": "Refunds are accepted within 30 days.",
		"summaryWithMetadata": {
			"references": [
				{"chunkContents": [{"pageIdentifier": "2", "content": "Refund window"}]},
				{"chunkContents": [{"pageIdentifier": "9", "content": "never shown"}]}
			]
		}
	},
	"results": [{
		"id": "policy",
		"document": {
			"structData": {"title": "docs/policy.pdf"},
			"derivedStructData": {
				"snippets": [{"snippet": "<b>30 days</b>"}],
				"extractive_answers": [{"pageNumber": 3, "content": "within 30 days of purchase"}],
				"extractive_segments": [{"pageNumber": 5, "content": "Refund requests", "relevanceScore": 0.91}]
			}
		}
	}]
}`

func TestRenderNilResponse(t *testing.T) {
	view := Render(nil)

	assert.Equal(t, SummaryPlaceholder, view.Summary)
	assert.False(t, view.HasSummary)
	assert.Empty(t, view.Documents)
}

func TestRenderMissingSummary(t *testing.T) {
	view := Render(&search.SearchResponse{Results: []search.ResultDocument{{}}})

	assert.Equal(t, SummaryPlaceholder, view.Summary)
	require.Len(t, view.Documents, 1)
	assert.Empty(t, view.Documents[0].References)
	assert.Empty(t, view.Documents[0].Snippets)
	assert.Empty(t, view.Documents[0].Answers)
	assert.Empty(t, view.Documents[0].Segments)
}

func TestRenderMissingResults(t *testing.T) {
	view := Render(&search.SearchResponse{Summary: &search.Summary{SummaryText: "hello"}})

	assert.Equal(t, "hello", view.Summary)
	assert.True(t, view.HasSummary)
	assert.NotNil(t, view.Documents)
	assert.Len(t, view.Documents, 0)
}

func TestDisplayTitle(t *testing.T) {
	cases := map[string]string{
		"docs/readme.md":             "readme.md",
		"plainname.txt":              "plainname.txt",
		"docs/policy.pdf":            "policy.pdf",
		"gs://bucket/docs/guide.pdf": "guide.pdf",
		"docs/sub/nested.pdf":        "sub",
		"":                           "",
	}

	for input, expected := range cases {
		assert.Equal(t, expected, DisplayTitle(input), "title %q", input)
	}
}

func TestFormatScore(t *testing.T) {
	assert.Equal(t, "0.87", FormatScore(0.8675))
	assert.Equal(t, "0.91", FormatScore(0.91))
	assert.Equal(t, "1.00", FormatScore(1))
	assert.Equal(t, "0.00", FormatScore(0))

	// exact binary halves round up
	assert.Equal(t, "0.13", FormatScore(0.125))
	assert.Equal(t, "0.63", FormatScore(0.625))
	assert.Equal(t, "0.38", FormatScore(0.375))
	// nearest float64 lies below the half
	assert.Equal(t, "0.14", FormatScore(0.145))
	assert.Equal(t, "1.00", FormatScore(1.005))

	assert.Equal(t, "NaN", FormatScore(math.NaN()))
}

func TestRenderKeepsBackendOrder(t *testing.T) {
	resp := &search.SearchResponse{Results: []search.ResultDocument{
		{Document: search.Document{StructData: search.StructData{Title: "b"}}},
		{Document: search.Document{StructData: search.StructData{Title: "a"}}},
		{Document: search.Document{StructData: search.StructData{Title: "b"}}},
	}}

	view := Render(resp)
	require.Len(t, view.Documents, 3)
	assert.Equal(t, "b", view.Documents[0].Title)
	assert.Equal(t, "a", view.Documents[1].Title)
	assert.Equal(t, "b", view.Documents[2].Title)
}

func TestRenderSharesFirstReferenceAcrossDocuments(t *testing.T) {
	var resp search.SearchResponse
	require.NoError(t, json.Unmarshal([]byte(refundPolicyResponse), &resp))
	resp.Results = append(resp.Results, resp.Results[0])

	view := Render(&resp)
	require.Len(t, view.Documents, 2)
	for _, doc := range view.Documents {
		assert.Equal(t, []ReferenceView{{Page: "2", Content: "Refund window"}}, doc.References)
	}
}

func TestRefundPolicyScenario(t *testing.T) {
	var resp search.SearchResponse
	require.NoError(t, json.Unmarshal([]byte(refundPolicyResponse), &resp))

	searcher := &fakeSearcher{respond: func(search.SearchRequest) (*search.SearchResponse, error) {
		return &resp, nil
	}}
	session := newTestSession(searcher, state.LastWriteWins)

	var rendered []ResultView
	session.Store.Subscribe(func(s state.Snapshot) { rendered = append(rendered, Render(s.Response)) })

	session.Query.Change("refund policy")
	require.NoError(t, session.Form.Search(context.Background()))

	calls := searcher.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, search.NewSearchRequest("refund policy"), calls[0])

	require.NotEmpty(t, rendered)
	view := rendered[len(rendered)-1]
	assert.Equal(t, view, session.View())

	assert.Equal(t, "Refunds are accepted within 30 days.", view.Summary)
	require.Len(t, view.Documents, 1)
	doc := view.Documents[0]
	assert.Equal(t, "policy.pdf", doc.Title)

	require.Len(t, doc.Snippets, 1)
	assert.Equal(t, search.Markup("<b>30 days</b>"), doc.Snippets[0])
	assert.Equal(t, []search.Segment{{Text: "30 days", Emphasis: true}}, doc.Snippets[0].Segments())

	require.Len(t, doc.Answers, 1)
	assert.Equal(t, "3", doc.Answers[0].Page)

	require.Len(t, doc.Segments, 1)
	assert.Equal(t, "5", doc.Segments[0].Page)
	assert.Equal(t, "0.91", doc.Segments[0].Score)
}
