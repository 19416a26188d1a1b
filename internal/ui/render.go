package ui

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/cymbal-labs/searchdemo/internal/search"
)

// SummaryPlaceholder is shown until a response with a summary arrives.
const SummaryPlaceholder = "Summary will appear here for your answers"

// ResultView is the read-only view model of one response.
type ResultView struct {
	Summary    string         `json:"summary" yaml:"summary"`
	HasSummary bool           `json:"hasSummary" yaml:"hasSummary"`
	Documents  []DocumentView `json:"documents" yaml:"documents"`
}

// DocumentView is one result document.
type DocumentView struct {
	ID         string          `json:"id,omitempty" yaml:"id,omitempty"`
	Title      string          `json:"title" yaml:"title"`
	RawTitle   string          `json:"rawTitle" yaml:"rawTitle"`
	References []ReferenceView `json:"references" yaml:"references"`
	Snippets   []search.Markup `json:"snippets" yaml:"snippets"`
	Answers    []AnswerView    `json:"extractiveAnswers" yaml:"extractiveAnswers"`
	Segments   []SegmentView   `json:"extractiveSegments" yaml:"extractiveSegments"`
}

// ReferenceView is one citation chunk.
type ReferenceView struct {
	Page    string `json:"page" yaml:"page"`
	Content string `json:"content" yaml:"content"`
}

// AnswerView is one extractive answer.
type AnswerView struct {
	Page    string `json:"page" yaml:"page"`
	Content string `json:"content" yaml:"content"`
}

// SegmentView is one extractive segment; Score is already formatted.
type SegmentView struct {
	Page           string  `json:"page" yaml:"page"`
	Content        string  `json:"content" yaml:"content"`
	Score          string  `json:"score" yaml:"score"`
	RelevanceScore float64 `json:"relevanceScore" yaml:"relevanceScore"`
}

// Render builds the view for resp. It has no side effects and accepts a nil
// response or any missing optional field. Backend order is kept everywhere.
func Render(resp *search.SearchResponse) ResultView {
	view := ResultView{Summary: SummaryPlaceholder, Documents: []DocumentView{}}
	if resp == nil {
		return view
	}

	if resp.Summary != nil {
		view.Summary = resp.Summary.SummaryText
		view.HasSummary = true
	}

	// Every document shows the chunks of the first summary reference.
	references := sharedReferences(resp.Summary)

	for _, result := range resp.Results {
		doc := result.Document
		derived := doc.DerivedStructData

		dv := DocumentView{
			ID:         firstNonEmpty(result.ID, doc.ID),
			Title:      DisplayTitle(doc.StructData.Title),
			RawTitle:   doc.StructData.Title,
			References: references,
			Snippets:   make([]search.Markup, 0, len(derived.Snippets)),
			Answers:    make([]AnswerView, 0, len(derived.ExtractiveAnswers)),
			Segments:   make([]SegmentView, 0, len(derived.ExtractiveSegments)),
		}

		for _, s := range derived.Snippets {
			dv.Snippets = append(dv.Snippets, s.Snippet)
		}
		for _, a := range derived.ExtractiveAnswers {
			dv.Answers = append(dv.Answers, AnswerView{Page: a.PageNumber.String(), Content: a.Content})
		}
		for _, s := range derived.ExtractiveSegments {
			dv.Segments = append(dv.Segments, SegmentView{
				Page:           s.PageNumber.String(),
				Content:        s.Content,
				Score:          FormatScore(s.RelevanceScore),
				RelevanceScore: s.RelevanceScore,
			})
		}

		view.Documents = append(view.Documents, dv)
	}

	return view
}

// DisplayTitle shortens a path-like title: when it contains "docs/", only the
// path segment right after it is shown.
func DisplayTitle(title string) string {
	const marker = "docs/"
	idx := strings.Index(title, marker)
	if idx < 0 {
		return title
	}
	rest := title[idx+len(marker):]
	if slash := strings.Index(rest, "/"); slash >= 0 {
		rest = rest[:slash]
	}
	return rest
}

// FormatScore renders a relevance score with exactly two decimals. Exact
// halves round away from zero, so 0.125 is "0.13"; values just below a half,
// such as the float64 nearest 0.145, round down.
func FormatScore(score float64) string {
	exact := new(big.Rat).SetFloat64(score)
	if exact == nil {
		return strconv.FormatFloat(score, 'f', 2, 64)
	}
	return exact.FloatString(2)
}

func sharedReferences(summary *search.Summary) []ReferenceView {
	out := []ReferenceView{}
	if summary == nil || len(summary.SummaryWithMetadata.References) == 0 {
		return out
	}
	for _, chunk := range summary.SummaryWithMetadata.References[0].ChunkContents {
		out = append(out, ReferenceView{Page: chunk.PageIdentifier.String(), Content: chunk.Content})
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
