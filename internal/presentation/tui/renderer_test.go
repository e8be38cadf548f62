package tui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRenderer(t *testing.T) {
	render := NewRenderer()
	out, err := render("**Mira** waves.")
	require.NoError(t, err)
	assert.Contains(t, out, "Mira")
	assert.Contains(t, out, "waves.")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "v1.2.3")
	assert.Contains(t, buf.String(), "branching roleplay engine v1.2.3")
	assert.Contains(t, buf.String(), `\__\__,_|`)
}
