package search

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSearchRequestDefaults(t *testing.T) {
	req := NewSearchRequest("refund policy")

	assert.Equal(t, "refund policy", req.Query)
	assert.Equal(t, 1, req.PageSize)
	assert.Equal(t, 1, req.SummaryResultCount)
	assert.Equal(t, 1, req.MaxSnippetCount)
	assert.Equal(t, 1, req.MaxExtractiveAnswerCount)
	assert.Equal(t, 1, req.MaxExtractiveSegmentCount)
	require.NoError(t, req.Validate())
}

func TestValidateRejectsBlankQuery(t *testing.T) {
	for _, query := range []string{"", "   ", "\t\n"} {
		err := NewSearchRequest(query).Validate()
		require.ErrorIs(t, err, ErrEmptyQuery)
		assert.Equal(t, "Please enter a search query", err.Error())
	}
}

func TestValidateRejectsCountsBelowMinimum(t *testing.T) {
	req := NewSearchRequest("q")
	req.MaxSnippetCount = 0

	err := req.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maxSnippetCount")
}

func TestDecodeFullResponse(t *testing.T) {
	payload := `{
		"summary": {
			"summaryText": "Refunds within 30 days.",
			"summaryWithMetadata": {
				"references": [{
					"title": "policy",
					"chunkContents": [{"pageIdentifier": "4", "content": "thirty days"}]
				}]
			}
		},
		"results": [{
			"id": "doc-1",
			"document": {
				"structData": {"title": "docs/policy.pdf"},
				"derivedStructData": {
					"snippets": [{"snippet": "<b>30 days</b>", "snippet_status": "SUCCESS"}],
					"extractive_answers": [{"pageNumber": "3", "content": "answer"}],
					"extractive_segments": [{"pageNumber": 5, "content": "segment", "relevanceScore": 0.91}]
				}
			}
		}]
	}`

	var resp SearchResponse
	require.NoError(t, json.Unmarshal([]byte(payload), &resp))

	require.NotNil(t, resp.Summary)
	assert.Equal(t, "Refunds within 30 days.", resp.Summary.SummaryText)
	require.Len(t, resp.Summary.SummaryWithMetadata.References, 1)
	chunks := resp.Summary.SummaryWithMetadata.References[0].ChunkContents
	require.Len(t, chunks, 1)
	assert.Equal(t, Locator("4"), chunks[0].PageIdentifier)

	require.Len(t, resp.Results, 1)
	derived := resp.Results[0].Document.DerivedStructData
	assert.Equal(t, "docs/policy.pdf", resp.Results[0].Document.StructData.Title)
	assert.Equal(t, Markup("<b>30 days</b>"), derived.Snippets[0].Snippet)
	assert.Equal(t, "3", derived.ExtractiveAnswers[0].PageNumber.String())
	assert.Equal(t, "5", derived.ExtractiveSegments[0].PageNumber.String())
	assert.InDelta(t, 0.91, derived.ExtractiveSegments[0].RelevanceScore, 1e-9)
}

func TestDecodeEmptyResponse(t *testing.T) {
	var resp SearchResponse
	require.NoError(t, json.Unmarshal([]byte(`{}`), &resp))

	assert.Nil(t, resp.Summary)
	assert.Empty(t, resp.Results)
}

func TestLocatorRejectsObjects(t *testing.T) {
	var l Locator
	require.Error(t, json.Unmarshal([]byte(`{"page": 1}`), &l))
}

func TestLocatorAcceptsNull(t *testing.T) {
	l := Locator("7")
	require.NoError(t, json.Unmarshal([]byte(`null`), &l))
	assert.Equal(t, Locator(""), l)
}
