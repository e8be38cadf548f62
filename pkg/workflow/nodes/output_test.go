package nodes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseResponse(t *testing.T) {
	p := ParseResponse("Intro text.\n<screen>\n  Rain falls.\n</screen>\n<mood>calm</mood>\n<next_prompts>\n1. Wait\n2) Run\n* Hide\n\n</next_prompts>")
	assert.Equal(t, "Rain falls.", p.Screen)
	assert.Equal(t, []string{"Wait", "Run", "Hide"}, p.NextPrompts)
	assert.Equal(t, "calm", p.Tags["mood"])
	assert.Equal(t, "", p.Summary)

	content := p.Content()
	assert.Equal(t, "calm", content["mood"])
	assert.Equal(t, "Rain falls.", content[TagScreen])
}

func TestParseResponse_ScreenFallbacks(t *testing.T) {
	p := ParseResponse("Plain story. <summary>short</summary>")
	assert.Equal(t, "Plain story.", p.Screen, "tagged blocks are stripped")
	assert.Equal(t, "short", p.Summary)
	assert.Empty(t, p.NextPrompts)

	p = ParseResponse("<summary>only</summary>")
	assert.Equal(t, "<summary>only</summary>", p.Screen, "whole text when nothing is left")

	p = ParseResponse("a <b>unclosed")
	assert.Equal(t, "a <b>unclosed", p.Screen)
	assert.Empty(t, p.Tags)
}

func TestParseResponse_FirstTagWins(t *testing.T) {
	p := ParseResponse("<Summary>one</Summary><summary>two</summary>")
	assert.Equal(t, "one", p.Summary)
}
