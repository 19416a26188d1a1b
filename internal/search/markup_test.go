package search

import (
	"html/template"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkupHTMLIsUnescaped(t *testing.T) {
	m := Markup("<b>30 days</b> &amp; more")
	assert.Equal(t, template.HTML("<b>30 days</b> &amp; more"), m.HTML())
}

func TestMarkupText(t *testing.T) {
	cases := map[string]string{
		"<b>30 days</b>":                "30 days",
		"refunds within <b>30</b> days": "refunds within 30 days",
		"fish &amp; chips":              "fish & chips",
		"plain":                         "plain",
		"":                              "",
	}

	for input, expected := range cases {
		assert.Equal(t, expected, Markup(input).Text(), "input %q", input)
	}
}

func TestMarkupSegments(t *testing.T) {
	segments := Markup("refunds within <b>30 days</b> of <em>purchase</em>.").Segments()

	assert.Equal(t, []Segment{
		{Text: "refunds within "},
		{Text: "30 days", Emphasis: true},
		{Text: " of "},
		{Text: "purchase", Emphasis: true},
		{Text: "."},
	}, segments)
}

func TestMarkupSegmentsMergesNestedEmphasis(t *testing.T) {
	segments := Markup("<b>bold <i>both</i></b>").Segments()

	assert.Equal(t, []Segment{{Text: "bold both", Emphasis: true}}, segments)
}
