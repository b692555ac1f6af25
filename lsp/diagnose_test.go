package lsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func TestDiagnose(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		line    protocol.UInteger
		message string
	}{
		{name: "valid", text: "workers = 2\n"},
		{name: "negative limit", text: "workers = 2\nmax-inlined-code-length = -4\n", line: 1, message: "must not be negative, got -4"},
		{name: "unknown pass", text: "\n\npasses = [\"evaluation\", \"obfuscate\"]\n", line: 2, message: `unknown pass "obfuscate"`},
		{name: "unknown key", text: "workers = 2\nmax-code = 3\n", line: 1, message: "unknown key"},
		{name: "syntax", text: "workers = 2\nmicro-edition = \n", line: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diagnose(tt.text)
			if tt.name == "valid" {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, 1)
			assert.Equal(t, tt.line, got[0].Range.Start.Line)
			if tt.message != "" {
				assert.Equal(t, tt.message, got[0].Message)
			}
		})
	}
}

func TestComplete(t *testing.T) {
	text := "workers = 2\npasses = [\"\n"

	keys := Complete(text, protocol.Position{Line: 0, Character: 0})
	require.NotEmpty(t, keys)
	assert.Equal(t, "allow-access-modification", keys[0].Label)

	passes := Complete(text, protocol.Position{Line: 1, Character: 11})
	var labels []string
	for _, item := range passes {
		labels = append(labels, item.Label)
	}
	assert.Equal(t, []string{"tail-recursion", "evaluation", "inline", "initializers"}, labels)

	assert.Empty(t, Complete(text, protocol.Position{Line: 0, Character: 10}))
}

func TestHover(t *testing.T) {
	text := "max-resulting-code-length = 100\n"
	h := Hover(text, protocol.Position{Line: 0, Character: 5})
	require.NotNil(t, h)
	assert.Contains(t, h.Contents.(protocol.MarkupContent).Value, "**max-resulting-code-length**")

	assert.Nil(t, Hover(text, protocol.Position{Line: 0, Character: 29}))
}
